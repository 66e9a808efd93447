package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/heater-control/internal/logger"
)

// TopicPrefix is prepended to the recipient to form the MQTT topic.
const TopicPrefix = "heater/notify/"

// ErrOffline is returned for alerts that cannot wait for a reconnect.
var ErrOffline = errors.New("mqtt broker not connected")

// bufferCapacity bounds alerts held while the broker is unreachable.
const bufferCapacity = 32

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker    string
	ClientID  string
	Recipient string
	Username  string
	Password  string
}

// MQTTNotifier publishes alerts to an MQTT broker.
// Alerts sent while disconnected are buffered and replayed on reconnect.
type MQTTNotifier struct {
	client    paho.Client
	topic     string
	recipient string

	mu  sync.Mutex
	buf *ringBuffer
}

// NewMQTTNotifier connects to the broker. A connection failure here is
// reported to the caller, which treats it as fatal.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	n := newMQTTNotifier(cfg.Recipient)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "heater-control"
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { n.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Msg("mqtt connection lost")
		})

	n.client = paho.NewClient(opts)
	token := n.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return n, nil
}

func newMQTTNotifier(recipient string) *MQTTNotifier {
	return &MQTTNotifier{
		topic:     TopicPrefix + recipient,
		recipient: recipient,
		buf:       newRingBuffer(bufferCapacity),
	}
}

// Send publishes msg with QoS 1. While disconnected the message is buffered,
// except the startup alert, which fails with ErrOffline.
func (n *MQTTNotifier) Send(ctx context.Context, msg Message) error {
	payload, err := FormatPayload(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if !n.client.IsConnectionOpen() {
		if msg.Event == EventStarted {
			return fmt.Errorf("%s alert: %w", msg.Event, ErrOffline)
		}
		n.mu.Lock()
		n.buf.push(pendingAlert{topic: n.topic, payload: payload, qos: 1, event: msg.Event})
		n.mu.Unlock()
		logger.Warn().Str("event", string(msg.Event)).Msg("mqtt offline, alert buffered")
		return nil
	}

	return n.publish(ctx, pendingAlert{topic: n.topic, payload: payload, qos: 1})
}

func (n *MQTTNotifier) publish(ctx context.Context, a pendingAlert) error {
	token := n.client.Publish(a.topic, a.qos, false, a.payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish: %w", ctx.Err())
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replay publishes buffered alerts after a (re)connect.
// Runs on the paho callback goroutine, so it must not block on the token.
func (n *MQTTNotifier) replay() {
	n.mu.Lock()
	pending, dropped := n.buf.drainAll()
	n.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	logger.Info().Int("count", len(pending)).Int("dropped", dropped).Msg("mqtt reconnected, replaying buffered alerts")
	for _, a := range pending {
		n.client.Publish(a.topic, a.qos, false, a.payload)
	}
}

// IsConnected reports whether the broker connection is up.
func (n *MQTTNotifier) IsConnected() bool {
	return n.client.IsConnectionOpen()
}

// Close disconnects from the broker. Alerts still buffered are lost and
// logged as such.
func (n *MQTTNotifier) Close() error {
	n.mu.Lock()
	pending := n.buf.len()
	n.mu.Unlock()
	if pending > 0 {
		logger.Error().Int("pending", pending).Msg("mqtt closing with undelivered alerts")
	}
	n.client.Disconnect(1000) // 1 second timeout
	return nil
}

// Pending returns how many alerts are waiting for the broker.
func (n *MQTTNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.buf.len()
}
