// Package store persists power-watch state in a key-value store so restarts
// never re-send stale or duplicate alerts. Redis is the real backend; Memory
// mirrors its semantics for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/power-watch/internal/logic"
)

// Key layout. All keys live in a dedicated namespace; the layout is append
// only (new keys may be added, existing ones keep their meaning).
const (
	KeyState        = "power:state"
	KeyLastNotified = "power:last_notified"
	KeyHeartbeat    = "power:heartbeat"
	KeyUpdateCursor = "power:update_cursor"
)

// ErrMarkConflict is returned by CompareAndSwapMark when the stored
// last-notified mark no longer matches the expected previous value.
var ErrMarkConflict = errors.New("store: last_notified mark changed concurrently")

// Record is the persisted confirmed power state.
type Record struct {
	State logic.PowerState `json:"state"`
	Since time.Time        `json:"since"`
}

// Mark is the persisted dedup mark: the last state a notification was
// successfully delivered for, and when.
type Mark struct {
	State logic.PowerState `json:"state"`
	At    time.Time        `json:"at"`
}

// Equal reports whether two marks describe the same delivery.
func (m Mark) Equal(other Mark) bool {
	return m.State == other.State && m.At.Equal(other.At)
}

// Store is the narrow persistence interface shared by the sensing loop, the
// notification dispatcher, and the command handler. Reads may be concurrent;
// each key has a single writer, and the dedup mark is CAS-protected.
type Store interface {
	// LoadState returns the persisted confirmed state, or nil on first boot.
	LoadState(ctx context.Context) (*Record, error)

	// SaveState persists a confirmed state record.
	SaveState(ctx context.Context, rec Record) error

	// LoadMark returns the persisted dedup mark, or nil if nothing has ever
	// been notified.
	LoadMark(ctx context.Context) (*Mark, error)

	// CompareAndSwapMark writes next only if the stored mark still equals
	// prev (nil prev = expect absent). Returns ErrMarkConflict otherwise.
	CompareAndSwapMark(ctx context.Context, prev *Mark, next Mark) error

	// Heartbeat records that the process (and therefore host power) was
	// alive at t. LoadHeartbeat returns the last recorded time, with ok
	// false if none was ever written.
	Heartbeat(ctx context.Context, t time.Time) error
	LoadHeartbeat(ctx context.Context) (time.Time, bool, error)

	// LoadCursor and SaveCursor persist the inbound bot update offset so a
	// restart does not replay already-handled commands.
	LoadCursor(ctx context.Context) (int64, bool, error)
	SaveCursor(ctx context.Context, cursor int64) error

	// Ping verifies connectivity. Failure at startup is fatal.
	Ping(ctx context.Context) error

	Close() error
}

// RetryPolicy describes bounded exponential backoff for transient store and
// transport failures.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Base     time.Duration // delay before the second attempt
	Max      time.Duration // delay cap
}

// Backoff returns the delay to wait after the given zero-based failed
// attempt: Base, 2*Base, 4*Base, ... capped at Max.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Do runs op up to p.Attempts times, sleeping the backoff between failures.
// It returns the last error once attempts are exhausted, or early if the
// context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(i)):
		}
	}
	return err
}
