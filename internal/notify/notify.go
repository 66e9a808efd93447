// Package notify delivers short alerts to the operator with abstraction for testing.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// EventType names the alert being sent.
type EventType string

const (
	EventStarted       EventType = "STARTED"
	EventTargetReached EventType = "TARGET_REACHED"
	EventFault         EventType = "FAULT"
	EventStopped       EventType = "STOPPED"
)

// Notifier sends alerts to a fixed recipient.
type Notifier interface {
	// Send delivers one message. Errors after startup are logged by the
	// caller and must not stop the control loop.
	Send(ctx context.Context, msg Message) error

	// Close disconnects from the transport.
	Close() error
}

// ConnectionStatus reports whether the transport connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Message is one alert.
type Message struct {
	Timestamp time.Time
	RunID     string
	Event     EventType
	Text      string
}

// Payload is the wire envelope shared by all transports.
type Payload struct {
	Notification PayloadInner `json:"notification"`
}

// PayloadInner contains the alert details.
type PayloadInner struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Recipient string `json:"recipient"`
	Event     string `json:"event"`
	Text      string `json:"text"`
}

// FormatPayload creates the JSON payload for msg addressed to recipient.
func FormatPayload(msg Message, recipient string) ([]byte, error) {
	return json.Marshal(Payload{
		Notification: PayloadInner{
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
			RunID:     msg.RunID,
			Recipient: recipient,
			Event:     string(msg.Event),
			Text:      msg.Text,
		},
	})
}
