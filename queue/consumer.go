// Package queue implements the one-message queue consumption contract the
// job runner expects: each worker drains exactly one message from a private
// ephemeral queue, deletes the queue, and exits.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/shared/backoff"
	"github.com/zapreel/zapreel/shared/config"
)

// Consumer is a single-use message source. The lifecycle is
// Connect → ConsumeOne → DeleteQueue → Close; DeleteQueue must be attempted
// on every path, including errors, because the runner created the queue and
// an undeleted queue leaks.
type Consumer interface {
	Connect(ctx context.Context) error
	// ConsumeOne returns the next message body, or nil when the queue is
	// empty or the body was malformed (malformed bodies are rejected
	// without requeue and do not fail the process).
	ConsumeOne(ctx context.Context) (json.RawMessage, error)
	DeleteQueue() error
	Close() error
}

// BrokerConfig carries the RabbitMQ connection parameters the job runner
// injects through the environment.
type BrokerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

func LoadBrokerConfig() BrokerConfig {
	return BrokerConfig{
		Host:     config.GetEnv("RABBITMQ_HOST", "localhost"),
		Port:     config.GetEnvInt("RABBITMQ_PORT", 5672),
		User:     config.GetEnv("RABBITMQ_USER", "guest"),
		Password: config.GetEnv("RABBITMQ_PASSWORD", "guest"),
		VHost:    config.GetEnv("RABBITMQ_VHOST", "/"),
	}
}

func (c BrokerConfig) url() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

// AMQPConsumer consumes from a durable RabbitMQ queue with manual acks.
type AMQPConsumer struct {
	cfg       BrokerConfig
	queueName string

	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPConsumer(cfg BrokerConfig, queueName string) *AMQPConsumer {
	return &AMQPConsumer{cfg: cfg, queueName: queueName}
}

// Connect dials the broker within the quick retry budget and declares the
// queue durable (idempotent; the runner already declared it).
func (c *AMQPConsumer) Connect(ctx context.Context) error {
	err := backoff.Retry(ctx, backoff.Quick, func(ctx context.Context, attempt int) error {
		conn, err := amqp.Dial(c.cfg.url())
		if err != nil {
			slog.Warn("broker dial failed", "attempt", attempt, "host", c.cfg.Host, "error", err)
			return err
		}
		c.conn = conn
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: broker %s:%d: %v", domain.ErrTransportUnavailable, c.cfg.Host, c.cfg.Port, err)
	}

	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: open channel: %v", domain.ErrTransportUnavailable, err)
	}
	c.channel = channel

	if _, err := channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare queue %s: %v", domain.ErrTransportUnavailable, c.queueName, err)
	}

	slog.Info("connected to broker", "host", c.cfg.Host, "port", c.cfg.Port, "queue", c.queueName)
	return nil
}

// ConsumeOne performs a single basic.get with manual acknowledgement.
// The body is acked before any work starts: the temporary-queue pattern
// makes redelivery meaningless, the runner owns retries.
func (c *AMQPConsumer) ConsumeOne(ctx context.Context) (json.RawMessage, error) {
	if c.channel == nil {
		return nil, fmt.Errorf("consume: not connected")
	}

	delivery, ok, err := c.channel.Get(c.queueName, false)
	if err != nil {
		return nil, fmt.Errorf("basic get: %w", err)
	}
	if !ok {
		slog.Info("no messages in queue", "queue", c.queueName)
		return nil, nil
	}

	if !json.Valid(delivery.Body) {
		slog.Error("malformed message body, rejecting without requeue", "queue", c.queueName)
		_ = delivery.Nack(false, false)
		return nil, nil
	}

	if err := delivery.Ack(false); err != nil {
		return nil, fmt.Errorf("ack message: %w", err)
	}
	return json.RawMessage(delivery.Body), nil
}

// DeleteQueue removes the ephemeral queue. Idempotent.
func (c *AMQPConsumer) DeleteQueue() error {
	if c.channel == nil {
		return nil
	}
	if _, err := c.channel.QueueDelete(c.queueName, false, false, false); err != nil {
		return fmt.Errorf("delete queue %s: %w", c.queueName, err)
	}
	slog.Info("deleted queue", "queue", c.queueName)
	return nil
}

func (c *AMQPConsumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

// DrainOne runs the full shell lifecycle: connect, take one message, delete
// the queue, close. Queue deletion and close are attempted on every path;
// their errors are logged and swallowed so that a processed message is never
// reported as an infrastructure failure.
func DrainOne(ctx context.Context, c Consumer) (json.RawMessage, error) {
	if err := c.Connect(ctx); err != nil {
		// Still try to release whatever was established.
		_ = c.Close()
		return nil, err
	}

	defer func() {
		if err := c.DeleteQueue(); err != nil {
			slog.Error("queue deletion failed", "error", err)
		}
		if err := c.Close(); err != nil {
			slog.Error("consumer close failed", "error", err)
		}
	}()

	return c.ConsumeOne(ctx)
}
