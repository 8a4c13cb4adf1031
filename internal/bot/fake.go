package bot

import (
	"context"
	"sync"
)

// Sent records one outbound message captured by FakeSender.
type Sent struct {
	ChatID  int64
	ReplyTo int64 // 0 for plain sends
	Text    string
}

// FakeSender records outbound messages for test assertions. Errs scripts
// per-call failures: each call consumes the next error (nil = success); once
// exhausted, calls succeed.
type FakeSender struct {
	mu   sync.Mutex
	Msgs []Sent
	Errs []error

	calls int
}

// NewFakeSender creates a FakeSender.
func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (f *FakeSender) nextErr() error {
	if f.calls < len(f.Errs) {
		err := f.Errs[f.calls]
		f.calls++
		return err
	}
	f.calls++
	return nil
}

// SendMessage records the message or returns the next scripted error.
func (f *FakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr(); err != nil {
		return err
	}
	f.Msgs = append(f.Msgs, Sent{ChatID: chatID, Text: text})
	return nil
}

// SendReply records the reply or returns the next scripted error.
func (f *FakeSender) SendReply(ctx context.Context, chatID int64, replyTo int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr(); err != nil {
		return err
	}
	f.Msgs = append(f.Msgs, Sent{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return nil
}

// Calls returns how many send attempts were made, including failed ones.
func (f *FakeSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Sent returns a copy of the recorded messages.
func (f *FakeSender) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.Msgs))
	copy(out, f.Msgs)
	return out
}

// Reset clears recorded messages and scripted errors.
func (f *FakeSender) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Msgs = nil
	f.Errs = nil
	f.calls = 0
}
