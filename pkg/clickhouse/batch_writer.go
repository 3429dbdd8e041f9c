package clickhouse

import (
	"context"
	"sync"
	"time"

	"steuerpilot/pkg/logger"
)

// FlushFunc performs the actual INSERT for one accumulated batch.
type FlushFunc func(ctx context.Context, batch []interface{}) error

// BatchWriter buffers rows in memory and writes them to ClickHouse in
// batches. ClickHouse penalizes single-row inserts heavily, so every
// analytics sink goes through one of these.
type BatchWriter struct {
	flushFunc FlushFunc
	table     string
	maxBatch  int
	maxAge    time.Duration
	log       *logger.Logger

	mu        sync.Mutex
	buffer    []interface{}
	lastFlush time.Time
	running   bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// BatchWriterConfig configures a BatchWriter
type BatchWriterConfig struct {
	FlushFunc    FlushFunc
	TableName    string
	MaxBatchSize int           // default 500
	MaxAge       time.Duration // default 5s
}

// NewBatchWriter creates a batch writer. Call Start before Add.
func NewBatchWriter(cfg BatchWriterConfig) *BatchWriter {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}
	return &BatchWriter{
		flushFunc: cfg.FlushFunc,
		table:     cfg.TableName,
		maxBatch:  cfg.MaxBatchSize,
		maxAge:    cfg.MaxAge,
		buffer:    make([]interface{}, 0, cfg.MaxBatchSize),
		lastFlush: time.Now(),
		stopCh:    make(chan struct{}),
		log:       logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start launches the periodic flush loop
func (bw *BatchWriter) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.running {
		bw.mu.Unlock()
		return
	}
	bw.running = true
	bw.mu.Unlock()

	bw.wg.Add(1)
	go bw.loop(ctx)

	bw.log.Infow("batch writer started", "max_batch", bw.maxBatch, "max_age", bw.maxAge)
}

// Add buffers one row, flushing synchronously when the batch is full
func (bw *BatchWriter) Add(ctx context.Context, item interface{}) error {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, item)
	full := len(bw.buffer) >= bw.maxBatch
	bw.mu.Unlock()

	if full {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush writes everything currently buffered
func (bw *BatchWriter) Flush(ctx context.Context) error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}
	batch := bw.buffer
	bw.buffer = make([]interface{}, 0, bw.maxBatch)
	bw.lastFlush = time.Now()
	bw.mu.Unlock()

	// No lock held here so Add stays cheap during slow inserts
	start := time.Now()
	if err := bw.flushFunc(ctx, batch); err != nil {
		bw.log.Errorw("flush failed", "rows", len(batch), "elapsed", time.Since(start), "error", err)
		return err
	}
	bw.log.Debugw("flushed", "rows", len(batch), "elapsed", time.Since(start))
	return nil
}

func (bw *BatchWriter) loop(ctx context.Context) {
	defer bw.wg.Done()

	ticker := time.NewTicker(bw.maxAge)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Buffered rows still go out on cancellation
			if err := bw.Flush(context.Background()); err != nil {
				bw.log.Errorw("final flush failed", "error", err)
			}
			return
		case <-bw.stopCh:
			if err := bw.Flush(context.Background()); err != nil {
				bw.log.Errorw("final flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := bw.Flush(ctx); err != nil {
				bw.log.Errorw("periodic flush failed", "error", err)
			}
		}
	}
}

// Stop flushes remaining rows and waits for the loop to exit
func (bw *BatchWriter) Stop(ctx context.Context) error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return nil
	}
	bw.running = false
	bw.mu.Unlock()

	close(bw.stopCh)

	done := make(chan struct{})
	go func() {
		bw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bw.log.Warnw("stop timed out with rows possibly unflushed")
		return ctx.Err()
	}
}

// BufferSize reports how many rows are waiting, for health checks
func (bw *BatchWriter) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
