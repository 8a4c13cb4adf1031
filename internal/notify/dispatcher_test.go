package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/power-watch/internal/bot"
	"github.com/sweeney/power-watch/internal/logic"
	"github.com/sweeney/power-watch/internal/store"
)

const chatID = int64(-100777)

var fastRetry = store.RetryPolicy{Attempts: 4, Base: time.Millisecond, Max: 2 * time.Millisecond}

func downAt(at time.Time) logic.Transition {
	return logic.Transition{
		From:      logic.StateUp,
		To:        logic.StateDown,
		At:        at,
		PrevSince: at.Add(-3 * time.Hour),
	}
}

func TestNotifyDelivers(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	require.NoError(t, d.Notify(context.Background(), downAt(at)))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, chatID, sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "Power is DOWN")
	assert.Contains(t, sent[0].Text, "3 hours")

	mark, err := st.LoadMark(context.Background())
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.Equal(t, logic.StateDown, mark.State)
	assert.True(t, mark.At.Equal(at))
}

func TestNotifySkipsWhenMarkMatches(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	st.SetMark(store.Mark{State: logic.StateDown, At: at.Add(-time.Minute)})
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	// Same target state again, e.g. a replay after restart.
	require.NoError(t, d.Notify(context.Background(), downAt(at)))

	assert.Empty(t, sender.Sent())
	assert.Zero(t, st.MarkCalls, "mark not rewritten on skip")
}

func TestNotifyRetriesTransientSendFailures(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	sender := bot.NewFakeSender()
	sender.Errs = []error{assert.AnError, assert.AnError, assert.AnError}
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	require.NoError(t, d.Notify(context.Background(), downAt(at)))

	assert.Equal(t, 4, sender.Calls(), "three failures then success")
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, 1, st.MarkCalls, "mark written exactly once")
}

func TestNotifyExhaustedRetriesLeaveMarkUntouched(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	sender := bot.NewFakeSender()
	sender.Errs = []error{assert.AnError, assert.AnError, assert.AnError, assert.AnError}
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	err := d.Notify(context.Background(), downAt(at))
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	mark, loadErr := st.LoadMark(context.Background())
	require.NoError(t, loadErr)
	assert.Nil(t, mark, "no mark after failed delivery")
	assert.Zero(t, st.MarkCalls)
}

func TestNotifyMarkWriteFailureReplaysDelivery(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	st.MarkErr = assert.AnError
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	// First attempt: message goes out, mark write fails.
	err := d.Notify(context.Background(), downAt(at))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, sender.Sent(), 1)

	// Replay after restart re-sends; at-least-once, and the message text
	// carries the same confirmation time.
	err = d.Notify(context.Background(), downAt(at))
	assert.ErrorIs(t, err, assert.AnError)
	sent := sender.Sent()
	assert.Len(t, sent, 2)
	assert.Equal(t, sent[0].Text, sent[1].Text)
}

func TestRunDeliversInOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	ch := make(chan logic.Transition, 2)
	ch <- downAt(at)
	ch <- logic.Transition{From: logic.StateDown, To: logic.StateUp, At: at.Add(time.Hour), PrevSince: at}
	close(ch)

	d.Run(context.Background(), ch)

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "DOWN")
	assert.Contains(t, sent[1].Text, "UP")
	assert.Contains(t, sent[1].Text, "down for 1 hours")
}

func TestStartupGapOutageReport(t *testing.T) {
	boot := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	require.NoError(t, st.Heartbeat(context.Background(), boot.Add(-2*time.Hour-30*time.Minute)))
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	require.NoError(t, d.ReportStartupGap(context.Background(), boot))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "offline for about 2 hours 30 minutes")
}

func TestStartupGapShortGapIsRedeploy(t *testing.T) {
	boot := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemory()
	require.NoError(t, st.Heartbeat(context.Background(), boot.Add(-20*time.Second)))
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	require.NoError(t, d.ReportStartupGap(context.Background(), boot))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "redeploy")
	assert.NotContains(t, sent[0].Text, "offline for about")
}

func TestStartupGapFirstBootSendsNothing(t *testing.T) {
	st := store.NewMemory()
	sender := bot.NewFakeSender()
	d := NewDispatcher(st, sender, chatID, fastRetry, nil, nil)

	require.NoError(t, d.ReportStartupGap(context.Background(), time.Now()))
	assert.Empty(t, sender.Sent())
}

func TestTransitionTextUnknownBaseline(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	text := TransitionText(logic.Transition{From: logic.StateUnknown, To: logic.StateUp, At: at})
	assert.Contains(t, text, "Power is UP")
	assert.NotContains(t, text, "down for", "no previous duration on first baseline")
}
