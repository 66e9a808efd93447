package notify

import (
	"context"
	"sync"
)

// FakeNotifier records sent alerts for test assertions.
// Safe for concurrent use: the monitor sends while tests read.
type FakeNotifier struct {
	mu sync.Mutex

	messages []Message
	payloads [][]byte
	closed   bool

	// SendError, if set, is returned by Send and nothing is recorded.
	SendError error

	// Recipient is written into every payload.
	Recipient string
}

// NewFakeNotifier creates a FakeNotifier for testing.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{Recipient: "test"}
}

// Send records the alert.
func (f *FakeNotifier) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendError != nil {
		return f.SendError
	}

	payload, err := FormatPayload(msg, f.Recipient)
	if err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	f.payloads = append(f.payloads, payload)
	return nil
}

// SetSendError changes the error returned by Send.
func (f *FakeNotifier) SetSendError(err error) {
	f.mu.Lock()
	f.SendError = err
	f.mu.Unlock()
}

// Messages returns a copy of the recorded alerts.
func (f *FakeNotifier) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Payloads returns a copy of the recorded JSON payloads.
func (f *FakeNotifier) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.payloads))
	copy(out, f.payloads)
	return out
}

// Count returns how many alerts of type ev were recorded.
func (f *FakeNotifier) Count(ev EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.Event == ev {
			n++
		}
	}
	return n
}

// Close marks the notifier as closed.
func (f *FakeNotifier) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeNotifier) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// IsConnected always reports true.
func (f *FakeNotifier) IsConnected() bool {
	return true
}
