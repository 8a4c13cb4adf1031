package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Telegram Bot HTTP API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Bot API client. The HTTP timeout must exceed the
// getUpdates long-poll timeout, which callers pass per request.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: "https://api.telegram.org",
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local
// httptest server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response (HTTP %d): %w", method, resp.StatusCode, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("telegram: %s failed (HTTP %d): %s", method, resp.StatusCode, envelope.Description)
	}
	return envelope.Result, nil
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// SendMessage sends plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text})
	return err
}

// SendReply sends plain text as a reply to an earlier message.
func (c *Client) SendReply(ctx context.Context, chatID int64, replyTo int64, text string) error {
	_, err := c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text, ReplyToMessageID: replyTo})
	return err
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	TimeoutSeconds int64    `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// Wire types for the slice of the Bot API update schema we consume.
type update struct {
	UpdateID int64        `json:"update_id"`
	Message  *chatMessage `json:"message"`
}

type chatMessage struct {
	MessageID int64     `json:"message_id"`
	From      *chatUser `json:"from"`
	Chat      chatRef   `json:"chat"`
	Date      int64     `json:"date"`
	Text      string    `json:"text"`
}

type chatUser struct {
	ID int64 `json:"id"`
}

type chatRef struct {
	ID int64 `json:"id"`
}

// GetUpdates long-polls for inbound messages at or after offset. Updates
// without a text message (edits, joins, media) are skipped but still advance
// the cursor via their UpdateID.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Message, int64, error) {
	result, err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		TimeoutSeconds: int64(timeout.Seconds()),
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return nil, offset, err
	}

	var updates []update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, offset, fmt.Errorf("telegram: decode updates: %w", err)
	}

	next := offset
	var msgs []Message
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.From == nil || u.Message.Text == "" {
			continue
		}
		msgs = append(msgs, Message{
			UpdateID:  u.UpdateID,
			MessageID: u.Message.MessageID,
			ChatID:    u.Message.Chat.ID,
			SenderID:  u.Message.From.ID,
			Text:      u.Message.Text,
			Date:      time.Unix(u.Message.Date, 0).UTC(),
		})
	}
	return msgs, next, nil
}
