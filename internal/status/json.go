package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Power         string       `json:"power"`
	Since         string       `json:"since,omitempty"`
	StateSeconds  int64        `json:"state_seconds"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Sensor        SensorStatus `json:"sensor"`
	Store         StoreStatus  `json:"store"`
	Counts        CountsJSON   `json:"event_counts"`
	Config        ConfigJSON   `json:"config"`
}

// SensorStatus reports sensor source health.
type SensorStatus struct {
	Healthy bool   `json:"healthy"`
	Source  string `json:"source"`
	Broker  string `json:"broker,omitempty"`
}

// StoreStatus reports store health.
type StoreStatus struct {
	Healthy bool   `json:"healthy"`
	Addr    string `json:"addr"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64  `json:"poll_ms"`
	DebounceSamples int    `json:"debounce_samples"`
	DebounceHoldMs  int64  `json:"debounce_hold_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	Source          string `json:"source"`
	HTTPAddr        string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	power := string(snap.Power)
	if power == "" {
		power = "UNKNOWN"
	}

	inner := StatusInner{
		Power:         power,
		StateSeconds:  int64(snap.StateDuration().Truncate(time.Second).Seconds()),
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Sensor:        SensorStatus{Healthy: snap.SensorHealthy, Source: snap.Config.Source, Broker: snap.Config.Broker},
		Store:         StoreStatus{Healthy: snap.StoreHealthy, Addr: snap.Config.RedisAddr},
		Counts:        CountsJSON{Up: snap.Counts.Up, Down: snap.Counts.Down},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			DebounceSamples: snap.Config.DebounceSamples,
			DebounceHoldMs:  snap.Config.DebounceHoldMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Source:          snap.Config.Source,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
	if !snap.Since.IsZero() {
		inner.Since = snap.Since.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
