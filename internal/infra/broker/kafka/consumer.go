package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// HandlerFunc adapts a function taking the message body and headers to MessageHandler.
type HandlerFunc func(ctx context.Context, body []byte, headers map[string]string) error

func (f HandlerFunc) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h != nil {
			headers[string(h.Key)] = string(h.Value)
		}
	}
	return f(ctx, msg.Value, headers)
}

const (
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

// Consumer feeds a consumer group into a MessageHandler. A message is marked only
// after it was handled; one that keeps failing ends the session so the group
// redelivers from the last marked offset.
type Consumer struct {
	group    sarama.ConsumerGroup
	handler  MessageHandler
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

type ConsumerOption func(*Consumer)

func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

// WithRetry sets how often a message is tried within one session.
func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	c := &Consumer{group: g, handler: handler, attempts: defaultAttempts, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	go func() {
		for err := range c.group.Errors() {
			if c.logger != nil {
				c.logger.Warn("kafka consumer error", "error", err)
			}
		}
	}()
	h := claimHandler{handler: c.handler, logger: c.logger, attempts: c.attempts, backoff: c.backoff}
	for {
		if err := c.group.Consume(ctx, topics, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type claimHandler struct {
	handler  MessageHandler
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

func (claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.deliver(sess.Context(), msg); err != nil {
			return fmt.Errorf("kafka: %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (h claimHandler) deliver(ctx context.Context, msg *sarama.ConsumerMessage) error {
	attempts := h.attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = h.handler.Handle(ctx, msg); err == nil {
			return nil
		}
		if h.logger != nil {
			h.logger.Warn("kafka message failed", "topic", msg.Topic, "offset", msg.Offset, "attempt", attempt, "error", err)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.backoff):
		}
	}
	return err
}
