package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sweeney/power-watch/internal/logic"
	"github.com/sweeney/power-watch/internal/store"
)

// Replies. The refusal text is fixed so tests and users see one policy.
const (
	replyUnauthorized = "You are not entitled to use this command"
	replyUnknown      = "Unknown command. Try /status."
	replyHelp         = "Commands:\n/status - current power state and how long it has held"
	replyUnavailable  = "Power status is temporarily unavailable, try again later."
	replyNoState      = "No power state has been recorded yet."
)

// Handler answers inbound commands. Only the configured admin may issue them;
// everything the handler does against the store is read-only.
type Handler struct {
	store      store.Store
	sender     Sender
	adminID    int64
	staleAfter time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// NewHandler creates a command handler. staleAfter drops messages that queued
// up while the process was down; zero disables the check.
func NewHandler(st store.Store, sender Sender, adminID int64, staleAfter time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		store:      st,
		sender:     sender,
		adminID:    adminID,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        log,
	}
}

// Handle processes one inbound message. Non-command chatter is ignored;
// commands from anyone but the admin get a refusal reply and nothing else.
func (h *Handler) Handle(ctx context.Context, msg Message) error {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	if h.staleAfter > 0 && h.now().Sub(msg.Date) > h.staleAfter {
		// Queued while we were offline; answering now would only confuse.
		h.log.Debug("dropping stale command", "age", h.now().Sub(msg.Date), "sender", msg.SenderID)
		return nil
	}

	if msg.SenderID != h.adminID {
		h.log.Info("rejected command from unauthorized sender", "sender", msg.SenderID)
		return h.sender.SendReply(ctx, msg.ChatID, msg.MessageID, replyUnauthorized)
	}

	cmd := strings.Fields(text)[0]
	// Strip the @botname suffix Telegram appends in groups.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/status":
		return h.handleStatus(ctx, msg)
	case "/start", "/help":
		return h.sender.SendReply(ctx, msg.ChatID, msg.MessageID, replyHelp)
	default:
		return h.sender.SendReply(ctx, msg.ChatID, msg.MessageID, replyUnknown)
	}
}

func (h *Handler) handleStatus(ctx context.Context, msg Message) error {
	rec, err := h.store.LoadState(ctx)
	if err != nil {
		h.log.Error("status query: load state", "error", err)
		if sendErr := h.sender.SendReply(ctx, msg.ChatID, msg.MessageID, replyUnavailable); sendErr != nil {
			return sendErr
		}
		return err
	}
	if rec == nil {
		return h.sender.SendReply(ctx, msg.ChatID, msg.MessageID, replyNoState)
	}

	held := logic.FormatDuration(h.now().Sub(rec.Since))
	var reply string
	switch rec.State {
	case logic.StateUp:
		reply = fmt.Sprintf("Power is UP, has been for %s.", held)
	case logic.StateDown:
		reply = fmt.Sprintf("Power is DOWN, has been for %s.", held)
	default:
		reply = fmt.Sprintf("Power state is UNKNOWN (since %s ago).", held)
	}
	return h.sender.SendReply(ctx, msg.ChatID, msg.MessageID, reply)
}
