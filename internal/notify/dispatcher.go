// Package notify delivers confirmed power transitions to the chat exactly
// once per distinct state, surviving restarts via a persisted dedup mark.
// Delivery is at-least-once across a crash between send and mark write; the
// message text carries the confirmation time, so duplicates are harmless.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/power-watch/internal/bot"
	"github.com/sweeney/power-watch/internal/logic"
	"github.com/sweeney/power-watch/internal/metrics"
	"github.com/sweeney/power-watch/internal/store"
)

// ErrDeliveryFailed is returned by Notify when every send attempt failed.
// The dedup mark stays untouched so a later run re-attempts the delivery.
var ErrDeliveryFailed = errors.New("notify: delivery failed after retries")

// redeployGap is the heartbeat gap below which a boot is treated as a
// redeploy rather than a power outage.
const redeployGap = time.Minute

// Dispatcher sends transition notifications in confirmation order. A single
// Run loop consumes the channel, so no later notification can overtake an
// earlier one.
type Dispatcher struct {
	store   store.Store
	sender  bot.Sender
	chatID  int64
	retry   store.RetryPolicy
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewDispatcher creates a Dispatcher. metrics may be nil.
func NewDispatcher(st store.Store, sender bot.Sender, chatID int64, retry store.RetryPolicy, m *metrics.Metrics, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		store:   st,
		sender:  sender,
		chatID:  chatID,
		retry:   retry,
		metrics: m,
		log:     log,
	}
}

// Run consumes transitions until the channel closes or the context is
// cancelled. Failed deliveries are logged and dropped; the untouched dedup
// mark lets a restart replay them.
func (d *Dispatcher) Run(ctx context.Context, transitions <-chan logic.Transition) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			if err := d.Notify(ctx, t); err != nil {
				d.log.Error("notification dropped", "correlation_id", t.CorrelationID(), "error", err)
			}
		}
	}
}

// Notify delivers one transition: skip if the persisted mark already covers
// this state, otherwise send with bounded retry and record the mark.
func (d *Dispatcher) Notify(ctx context.Context, t logic.Transition) error {
	cid := t.CorrelationID()

	mark, err := d.store.LoadMark(ctx)
	if err != nil {
		d.metrics.IncStoreError()
		return fmt.Errorf("load last-notified mark: %w", err)
	}
	if mark != nil && mark.State == t.To {
		d.log.Info("notification already delivered, skipping", "correlation_id", cid, "marked_at", mark.At)
		return nil
	}

	text := TransitionText(t)
	if err := d.send(ctx, text); err != nil {
		d.metrics.IncNotificationFailure()
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, cid, err)
	}
	d.metrics.IncNotificationSent()
	d.log.Info("notification delivered", "correlation_id", cid, "to", t.To)

	next := store.Mark{State: t.To, At: t.At}
	if err := d.store.CompareAndSwapMark(ctx, mark, next); err != nil {
		d.metrics.IncStoreError()
		// Delivery succeeded; a crash before a successful mark write means
		// the transition is re-sent on replay. At-least-once, by contract.
		return fmt.Errorf("record last-notified mark %s: %w", cid, err)
	}
	return nil
}

// ReportStartupGap inspects the persisted heartbeat at boot and tells the
// chat what the gap means: a long gap is a power outage, a short one a
// redeploy. No heartbeat means a first boot, which is only logged.
func (d *Dispatcher) ReportStartupGap(ctx context.Context, bootAt time.Time) error {
	last, ok, err := d.store.LoadHeartbeat(ctx)
	if err != nil {
		d.metrics.IncStoreError()
		return fmt.Errorf("load heartbeat: %w", err)
	}
	if !ok {
		d.log.Info("no heartbeat on record, first boot")
		return nil
	}

	gap := bootAt.Sub(last)
	text := OutageText(gap)
	if gap < redeployGap {
		text = RestartText(gap)
	}
	if err := d.send(ctx, text); err != nil {
		d.metrics.IncNotificationFailure()
		return fmt.Errorf("%w: startup report: %v", ErrDeliveryFailed, err)
	}
	d.metrics.IncNotificationSent()
	d.log.Info("startup report delivered", "gap", gap)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, text string) error {
	attempt := 0
	return d.retry.Do(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			d.metrics.IncNotificationRetry()
		}
		attempt++
		err := d.sender.SendMessage(ctx, d.chatID, text)
		if err != nil {
			d.log.Warn("send failed", "attempt", attempt, "error", err)
		}
		return err
	})
}
