package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/imrishuroy/jolly-booking-intake/internal/aws"
)

// Channel is one way of getting an alert to the owner.
type Channel interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// LogChannel writes the alert to the structured log. It is the fallback when
// no transport is configured.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, a Alert) error {
	c.logger.InfoContext(ctx, "booking_alert",
		"kind", a.Kind,
		"booking_id", a.BookingID,
		"status", a.Status,
		"subject", a.Subject,
		"to", a.To,
	)
	return nil
}

// SQSChannel hands alerts to the worker queue.
type SQSChannel struct {
	publisher *aws.Publisher
}

func NewSQSChannel(publisher *aws.Publisher) *SQSChannel {
	return &SQSChannel{publisher: publisher}
}

func (c *SQSChannel) Name() string { return "sqs" }

func (c *SQSChannel) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	_, err = c.publisher.Send(ctx, string(body), map[string]string{
		"kind":       a.Kind,
		"booking_id": a.BookingID,
	})
	return err
}

// amqpPublisher is the part of *amqp.Channel the alert channel needs.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPChannel publishes alerts to a topic exchange, routed by alert kind.
type AMQPChannel struct {
	pub      amqpPublisher
	exchange string
	closeFn  func() error
}

// DialAMQP connects, opens a channel and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPChannel{
		pub:      ch,
		exchange: exchange,
		closeFn: func() error {
			return errors.Join(ch.Close(), conn.Close())
		},
	}, nil
}

func (c *AMQPChannel) Name() string { return "amqp" }

func (c *AMQPChannel) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	err = c.pub.PublishWithContext(ctx, c.exchange, a.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    a.DedupeKey(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", a.Kind, err)
	}
	return nil
}

func (c *AMQPChannel) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}
