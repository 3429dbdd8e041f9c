package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"steuerpilot/pkg/logger"
)

// Consumer wraps a kafka-go reader bound to one topic and consumer group
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// NewConsumer creates a consumer starting from the earliest uncommitted offset
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 10e3
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10e6
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader: reader,
		log:    logger.Get().With("component", "kafka_consumer", "topic", cfg.Topic),
	}
}

// MessageHandler processes one message. Returning an error logs it; the
// consumer moves on rather than stalling the partition.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consume reads until the context is cancelled
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Consumer started")

	for {
		msg, err := c.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Consumer stopped")
				return ctx.Err()
			}
			c.log.Errorw("read failed", "error", err)
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.log.Errorw("handler failed", "key", string(msg.Key), "error", err)
		}
	}
}

// ReadMessage blocks until a message arrives or ctx is cancelled. The
// shutdown check before blocking avoids hanging on I/O during drain.
func (c *Consumer) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	default:
	}
	return c.reader.ReadMessage(ctx)
}

// Close releases the reader and commits offsets
func (c *Consumer) Close() error {
	return c.reader.Close()
}
