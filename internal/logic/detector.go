package logic

import "time"

// Detector tracks the confirmed power state and filters raw readings through
// the debounce window. It is not safe for concurrent use; the sensing loop is
// its only caller.
type Detector struct {
	window    Window
	confirmed PowerState
	since     time.Time

	pending      PowerState
	pendingSince time.Time
	pendingCount int

	counts EventCounts
}

// NewDetector creates a detector seeded with the last persisted state, or
// StateUnknown with the boot time on first run.
func NewDetector(window Window, initial PowerState, since time.Time) *Detector {
	if initial == "" {
		initial = StateUnknown
	}
	return &Detector{
		window:    window,
		confirmed: initial,
		since:     since,
	}
}

// Process consumes one raw reading and returns a confirmed transition, or nil
// if the reading did not change the confirmed state.
//
// UNKNOWN readings (sensor glitches) clear any pending candidate and never
// produce a transition: a broken sensor must not report the power as down,
// and sparse evidence must not confirm a change.
func (d *Detector) Process(r Reading) *Transition {
	if r.State == StateUnknown {
		d.clearPending()
		return nil
	}

	if r.State == d.confirmed {
		d.clearPending()
		return nil
	}

	if r.State != d.pending {
		// New candidate, restart the window.
		d.pending = r.State
		d.pendingSince = r.At
		d.pendingCount = 1
	} else {
		d.pendingCount++
	}

	if d.pendingCount < d.window.MinSamples {
		return nil
	}
	if r.At.Sub(d.pendingSince) < d.window.MinHold {
		return nil
	}

	tr := &Transition{From: d.confirmed, To: r.State, At: r.At, PrevSince: d.since}
	d.confirmed = r.State
	d.since = r.At
	d.clearPending()

	switch tr.To {
	case StateUp:
		d.counts.Up++
	case StateDown:
		d.counts.Down++
	}

	return tr
}

func (d *Detector) clearPending() {
	d.pending = ""
	d.pendingSince = time.Time{}
	d.pendingCount = 0
}

// Confirmed returns the current confirmed state and when it was confirmed.
func (d *Detector) Confirmed() (PowerState, time.Time) {
	return d.confirmed, d.since
}

// Counts returns the confirmed transition counts since startup.
func (d *Detector) Counts() EventCounts {
	return d.counts
}
