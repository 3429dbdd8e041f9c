package consumers

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"steuerpilot/internal/adapters/kafka"
	"steuerpilot/internal/events"
	clickhouserepo "steuerpilot/internal/repository/clickhouse"
	"steuerpilot/pkg/logger"
)

// AnalyticsConsumer drains conversation turn events from Kafka into
// ClickHouse. It is the alternative to the chat server's direct analytics
// write, for deployments where only this process talks to ClickHouse.
type AnalyticsConsumer struct {
	consumer *kafka.Consumer
	turns    *clickhouserepo.TurnRepository
	log      *logger.Logger
}

// NewAnalyticsConsumer creates a new analytics consumer
func NewAnalyticsConsumer(consumer *kafka.Consumer, turns *clickhouserepo.TurnRepository) *AnalyticsConsumer {
	return &AnalyticsConsumer{
		consumer: consumer,
		turns:    turns,
		log:      logger.Get().With("consumer", "analytics"),
	}
}

// Run consumes until the context is cancelled
func (c *AnalyticsConsumer) Run(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handle)
}

func (c *AnalyticsConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	var turn events.ConversationTurn
	if err := json.Unmarshal(msg.Value, &turn); err != nil {
		// Malformed events are dropped, not retried
		c.log.Warnw("skipping unparseable turn event", "key", string(msg.Key), "error", err)
		return nil
	}

	return c.turns.Record(ctx, clickhouserepo.TurnRecord{
		SessionID:  turn.SessionID,
		UserID:     turn.UserID,
		AgentType:  turn.AgentType,
		AgentsRun:  turn.AgentsRun,
		Confidence: turn.Confidence,
		DurationMS: turn.DurationMS,
		Timestamp:  turn.Timestamp,
	})
}
