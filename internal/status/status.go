// Package status provides a thread-safe status tracker for the power-watch
// daemon. It is read by the HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/power-watch/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	DebounceSamples int
	DebounceHoldMs  int64
	HeartbeatMs     int64
	Source          string // "gpio" or "mqtt"
	Broker          string // MQTT broker URL when Source is "mqtt"
	RedisAddr       string
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Power         logic.PowerState
	Since         time.Time
	Baselined     bool
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	SensorHealthy bool
	StoreHealthy  bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// StateDuration returns how long the confirmed power state has held.
// Zero when no state has been confirmed yet.
func (s Snapshot) StateDuration() time.Duration {
	if s.Since.IsZero() {
		return 0
	}
	return s.Now.Sub(s.Since)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the confirmed power state, its start time, baseline status, and
// event counts. Called from the sensing loop on every tick.
func (t *Tracker) Update(power logic.PowerState, since time.Time, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Power = power
	t.snap.Since = since
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSensorHealthy records whether the last sensor read succeeded.
func (t *Tracker) SetSensorHealthy(healthy bool) {
	t.mu.Lock()
	t.snap.SensorHealthy = healthy
	t.mu.Unlock()
}

// SetStoreHealthy records whether the last store operation succeeded.
func (t *Tracker) SetStoreHealthy(healthy bool) {
	t.mu.Lock()
	t.snap.StoreHealthy = healthy
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
