package clickhouse

import (
	"context"
	"time"

	"steuerpilot/internal/adapters/clickhouse"
	pkgch "steuerpilot/pkg/clickhouse"
	"steuerpilot/pkg/errors"
)

// TurnRecord is one analytics row per processed conversation turn
type TurnRecord struct {
	SessionID  string
	UserID     string
	AgentType  string
	AgentsRun  []string
	Confidence float64
	DurationMS int64
	Timestamp  time.Time
}

// TurnRepository batches turn records into ClickHouse
type TurnRepository struct {
	client *clickhouse.Client
	writer *pkgch.BatchWriter
}

// NewTurnRepository creates a turn analytics repository with a background
// batch writer. Call Start before recording and Stop on shutdown.
func NewTurnRepository(client *clickhouse.Client) *TurnRepository {
	r := &TurnRepository{client: client}
	r.writer = pkgch.NewBatchWriter(pkgch.BatchWriterConfig{
		FlushFunc:    r.flush,
		TableName:    "conversation_turns",
		MaxBatchSize: 200,
		MaxAge:       5 * time.Second,
	})
	return r
}

// Start begins background flushing
func (r *TurnRepository) Start(ctx context.Context) {
	r.writer.Start(ctx)
}

// Stop flushes remaining rows and stops the writer
func (r *TurnRepository) Stop(ctx context.Context) error {
	return r.writer.Stop(ctx)
}

// Record buffers one turn for insertion
func (r *TurnRepository) Record(ctx context.Context, rec TurnRecord) error {
	return r.writer.Add(ctx, rec)
}

func (r *TurnRepository) flush(ctx context.Context, items []interface{}) error {
	batch, err := r.client.Conn().PrepareBatch(ctx, `
		INSERT INTO conversation_turns
			(session_id, user_id, agent_type, agents_run, confidence, duration_ms, timestamp)`)
	if err != nil {
		return errors.Wrap(err, "prepare turn batch")
	}

	for _, item := range items {
		rec, ok := item.(TurnRecord)
		if !ok {
			continue
		}
		if err := batch.Append(
			rec.SessionID, rec.UserID, rec.AgentType, rec.AgentsRun,
			rec.Confidence, rec.DurationMS, rec.Timestamp,
		); err != nil {
			return errors.Wrap(err, "append turn row")
		}
	}

	return errors.Wrap(batch.Send(), "send turn batch")
}
