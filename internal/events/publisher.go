package events

import (
	"context"

	"steuerpilot/internal/adapters/kafka"
	"steuerpilot/pkg/logger"
)

// Publisher publishes domain events to Kafka. A nil Publisher is a no-op so
// callers never need to branch on whether Kafka is configured.
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "events"),
	}
}

// PublishTurn publishes a processed conversation turn
func (p *Publisher) PublishTurn(ctx context.Context, event ConversationTurn) {
	p.publish(ctx, kafka.TopicConversationTurn, event.SessionID, event)
}

// PublishExpenseCreated publishes an expense creation
func (p *Publisher) PublishExpenseCreated(ctx context.Context, event ExpenseCreated) {
	p.publish(ctx, kafka.TopicExpenseCreated, event.UserID, event)
}

// PublishProfileUpdated publishes a profile change
func (p *Publisher) PublishProfileUpdated(ctx context.Context, event ProfileUpdated) {
	p.publish(ctx, kafka.TopicProfileUpdated, event.UserID, event)
}

// publish is fire-and-forget: event delivery must never fail a user turn
func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) {
	if p == nil || p.producer == nil {
		return
	}
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Warnw("event publish failed", "topic", topic, "error", err)
	}
}
