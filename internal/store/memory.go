package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Store with the same CAS semantics as Redis. It
// doubles as the test double: error fields let tests script failures the way
// the sensor and publisher fakes do.
type Memory struct {
	mu        sync.Mutex
	state     *Record
	mark      *Mark
	heartbeat *time.Time
	cursor    *int64

	// Error injection for tests. When set, the corresponding call fails.
	SaveStateErr error
	LoadStateErr error
	MarkErr      error
	LoadMarkErr  error
	HeartbeatErr error
	CursorErr    error
	PingErr      error

	// Call counters for assertions.
	SaveStateCalls int
	MarkCalls      int

	Closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadState(ctx context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadStateErr != nil {
		return nil, m.LoadStateErr
	}
	if m.state == nil {
		return nil, nil
	}
	rec := *m.state
	return &rec, nil
}

func (m *Memory) SaveState(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveStateCalls++
	if m.SaveStateErr != nil {
		return m.SaveStateErr
	}
	m.state = &rec
	return nil
}

func (m *Memory) LoadMark(ctx context.Context) (*Mark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadMarkErr != nil {
		return nil, m.LoadMarkErr
	}
	if m.mark == nil {
		return nil, nil
	}
	mark := *m.mark
	return &mark, nil
}

func (m *Memory) CompareAndSwapMark(ctx context.Context, prev *Mark, next Mark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkCalls++
	if m.MarkErr != nil {
		return m.MarkErr
	}
	switch {
	case m.mark == nil && prev != nil:
		return ErrMarkConflict
	case m.mark != nil && prev == nil:
		return ErrMarkConflict
	case m.mark != nil && !m.mark.Equal(*prev):
		return ErrMarkConflict
	}
	m.mark = &next
	return nil
}

func (m *Memory) Heartbeat(ctx context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HeartbeatErr != nil {
		return m.HeartbeatErr
	}
	m.heartbeat = &t
	return nil
}

func (m *Memory) LoadHeartbeat(ctx context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HeartbeatErr != nil {
		return time.Time{}, false, m.HeartbeatErr
	}
	if m.heartbeat == nil {
		return time.Time{}, false, nil
	}
	return *m.heartbeat, true, nil
}

func (m *Memory) LoadCursor(ctx context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CursorErr != nil {
		return 0, false, m.CursorErr
	}
	if m.cursor == nil {
		return 0, false, nil
	}
	return *m.cursor, true, nil
}

func (m *Memory) SaveCursor(ctx context.Context, cursor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CursorErr != nil {
		return m.CursorErr
	}
	m.cursor = &cursor
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// SetMark seeds the dedup mark directly, bypassing CAS. Test helper.
func (m *Memory) SetMark(mark Mark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mark = &mark
}

// SetState seeds the state record directly. Test helper.
func (m *Memory) SetState(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = &rec
}
