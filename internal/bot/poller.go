package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/power-watch/internal/store"
)

// UpdatesClient is the slice of Client the poller needs.
type UpdatesClient interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Message, int64, error)
}

// Poller long-polls the Bot API and feeds messages to the command handler.
// The update offset is persisted so a restart never replays handled commands.
type Poller struct {
	client      UpdatesClient
	store       store.Store
	handler     *Handler
	pollTimeout time.Duration
	errBackoff  time.Duration
	log         *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(client UpdatesClient, st store.Store, handler *Handler, pollTimeout time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		client:      client,
		store:       st,
		handler:     handler,
		pollTimeout: pollTimeout,
		errBackoff:  5 * time.Second,
		log:         log,
	}
}

// Run polls until the context is cancelled. Transport errors back off and
// retry; they never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	cursor, ok, err := p.store.LoadCursor(ctx)
	if err != nil {
		return err
	}
	if ok {
		p.log.Info("resuming bot updates", "cursor", cursor)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, next, err := p.client.GetUpdates(ctx, cursor, p.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			p.log.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.errBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			if err := p.handler.Handle(ctx, msg); err != nil {
				p.log.Error("command handling failed", "update_id", msg.UpdateID, "error", err)
			}
		}

		if next != cursor {
			cursor = next
			if err := p.store.SaveCursor(ctx, cursor); err != nil {
				// Worst case a restart re-reads a handled update; the
				// handler's staleness check keeps that harmless.
				p.log.Warn("persist update cursor failed", "cursor", cursor, "error", err)
			}
		}
	}
}
