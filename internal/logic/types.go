// Package logic contains pure business logic for power state tracking.
// This package has NO external dependencies (no sensors, Redis, Telegram, or
// time.Sleep). Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// PowerState represents the confirmed, debounced power status of the host.
type PowerState string

const (
	StateUp      PowerState = "UP"
	StateDown    PowerState = "DOWN"
	StateUnknown PowerState = "UNKNOWN"
)

// Reading is a single raw sensor sample. Readings are ephemeral: they are
// produced by a sensor adapter, consumed by the Detector, and never persisted.
type Reading struct {
	State PowerState
	At    time.Time
}

// ReadingFromSensor converts a raw sensor result into a Reading.
// A read error maps to UNKNOWN, which never forces a transition by itself.
func ReadingFromSensor(up bool, err error, at time.Time) Reading {
	if err != nil {
		return Reading{State: StateUnknown, At: at}
	}
	if up {
		return Reading{State: StateUp, At: at}
	}
	return Reading{State: StateDown, At: at}
}

// Transition is a confirmed power-state change that passed the debounce
// window. At is the time of the reading that confirmed it. PrevSince is when
// the From state had been confirmed (zero when unknown), letting messages say
// how long the previous state lasted.
type Transition struct {
	From      PowerState
	To        PowerState
	At        time.Time
	PrevSince time.Time
}

// CorrelationID ties a transition to the notification it produces, making
// retries idempotent and log lines greppable.
func (t Transition) CorrelationID() string {
	return fmt.Sprintf("%s@%d", t.To, t.At.Unix())
}

// Window configures the debounce filter. A candidate state is confirmed only
// once it has been observed for MinSamples consecutive readings AND has been
// pending for at least MinHold. A zero value disables that threshold.
type Window struct {
	MinSamples int
	MinHold    time.Duration
}

// EventCounts tracks confirmed transitions since startup.
type EventCounts struct {
	Up   int
	Down int
}
