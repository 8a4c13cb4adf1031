// Package bot is the Telegram boundary: an HTTP Bot API client for sending
// alerts and replies, a long-poll loop for inbound messages, and the
// authorized command handler.
package bot

import (
	"context"
	"time"
)

// Message is an inbound chat message, reduced to what the command handler
// needs.
type Message struct {
	UpdateID  int64
	MessageID int64
	ChatID    int64
	SenderID  int64
	Text      string
	Date      time.Time
}

// Sender sends outbound text messages. Implemented by Client and by the test
// fake.
type Sender interface {
	// SendMessage sends plain text to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error

	// SendReply sends plain text as a reply to an earlier message.
	SendReply(ctx context.Context, chatID int64, replyTo int64, text string) error
}
