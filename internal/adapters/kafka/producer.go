package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"

	"steuerpilot/pkg/logger"
)

// Producer publishes JSON events, one lazily created writer per topic.
// Safe for concurrent use; turn side effects publish from goroutines.
type Producer struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	brokers []string
	log     *logger.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers []string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		brokers: cfg.Brokers,
		log:     logger.Get().With("component", "kafka_producer"),
	}
}

func (p *Producer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	p.writers[topic] = w
	return w
}

// Publish marshals the event and writes it keyed for per-user ordering
func (p *Producer) Publish(ctx context.Context, topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{Key: []byte(key), Value: data}
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		p.log.Errorw("publish failed", "topic", topic, "error", err)
		return err
	}
	p.log.Debugw("published", "topic", topic, "key", key)
	return nil
}

// Close closes every topic writer
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.log.Errorw("writer close failed", "topic", topic, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
