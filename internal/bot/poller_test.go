package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/power-watch/internal/logic"
	"github.com/sweeney/power-watch/internal/store"
)

// scriptedUpdates returns one batch per call, then cancels the poller.
type scriptedUpdates struct {
	batches [][]Message
	offsets []int64
	call    int
	cancel  context.CancelFunc
}

func (s *scriptedUpdates) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]Message, int64, error) {
	s.offsets = append(s.offsets, offset)
	if s.call >= len(s.batches) {
		s.cancel()
		return nil, offset, ctx.Err()
	}
	batch := s.batches[s.call]
	s.call++
	next := offset
	for _, m := range batch {
		if m.UpdateID >= next {
			next = m.UpdateID + 1
		}
	}
	return batch, next, nil
}

func TestPollerAdvancesAndPersistsCursor(t *testing.T) {
	now := time.Now().UTC()
	st := store.NewMemory()
	st.SetState(store.Record{State: logic.StateUp, Since: now.Add(-time.Hour)})
	require.NoError(t, st.SaveCursor(context.Background(), 200))

	sender := NewFakeSender()
	h := NewHandler(st, sender, adminID, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	script := &scriptedUpdates{
		cancel: cancel,
		batches: [][]Message{
			{{UpdateID: 200, MessageID: 1, ChatID: chatID, SenderID: adminID, Text: "/status", Date: now}},
			{{UpdateID: 201, MessageID: 2, ChatID: chatID, SenderID: strangerID, Text: "/status", Date: now}},
		},
	}

	p := NewPoller(script, st, h, 25*time.Second, nil)
	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Started from the persisted cursor, then advanced per batch.
	assert.Equal(t, []int64{200, 201, 202}, script.offsets)

	cursor, ok, loadErr := st.LoadCursor(context.Background())
	require.NoError(t, loadErr)
	require.True(t, ok)
	assert.Equal(t, int64(202), cursor)

	// Admin got status, stranger got the refusal.
	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "Power is UP")
	assert.Equal(t, replyUnauthorized, sent[1].Text)
}

// failingThenCancelled fails once, then cancels on the next call.
type failingThenCancelled struct {
	cancel context.CancelFunc
	calls  int
}

func (f *failingThenCancelled) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]Message, int64, error) {
	f.calls++
	if f.calls == 1 {
		return nil, offset, errors.New("telegram: 502 bad gateway")
	}
	f.cancel()
	return nil, offset, ctx.Err()
}

func TestPollerSurvivesTransportErrors(t *testing.T) {
	st := store.NewMemory()
	sender := NewFakeSender()
	h := NewHandler(st, sender, adminID, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	script := &failingThenCancelled{cancel: cancel}

	p := NewPoller(script, st, h, time.Second, nil)
	p.errBackoff = time.Millisecond

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, script.calls, "poller retried after the transport error")
}

func TestPollerFailsFastWhenCursorUnreadable(t *testing.T) {
	st := store.NewMemory()
	st.CursorErr = assert.AnError
	p := NewPoller(&scriptedUpdates{cancel: func() {}}, st, NewHandler(st, NewFakeSender(), adminID, 0, nil), time.Second, nil)

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
