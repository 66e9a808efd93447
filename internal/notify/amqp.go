package notify

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange alerts are published to.
const Exchange = "heater.notify"

// AMQPNotifier publishes alerts to a RabbitMQ topic exchange, routed by
// recipient.
type AMQPNotifier struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	recipient string
}

// NewAMQPNotifier dials url and declares the exchange.
func NewAMQPNotifier(url, recipient string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPNotifier{
		conn:      conn,
		channel:   ch,
		recipient: recipient,
	}, nil
}

// Send publishes msg as a persistent JSON message.
func (n *AMQPNotifier) Send(ctx context.Context, msg Message) error {
	body, err := FormatPayload(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	err = n.channel.PublishWithContext(ctx,
		Exchange,
		n.recipient,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the AMQP connection is still open.
func (n *AMQPNotifier) IsConnected() bool {
	return !n.conn.IsClosed()
}

// Close closes the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.channel.Close()
	if err := n.conn.Close(); err != nil {
		return fmt.Errorf("close amqp: %w", err)
	}
	return nil
}
