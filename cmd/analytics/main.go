package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"steuerpilot/internal/adapters/clickhouse"
	"steuerpilot/internal/adapters/config"
	"steuerpilot/internal/adapters/kafka"
	"steuerpilot/internal/consumers"
	clickhouserepo "steuerpilot/internal/repository/clickhouse"
	"steuerpilot/pkg/logger"
)

// Analytics worker: consumes conversation turn events from Kafka and batches
// them into ClickHouse. Run it instead of pointing the chat server at
// ClickHouse directly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()

	if !cfg.Kafka.Enabled() {
		log.Fatal("KAFKA_BROKERS must be set for the analytics worker")
	}
	if !cfg.ClickHouse.Enabled() {
		log.Fatal("CLICKHOUSE_HOST must be set for the analytics worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer ch.Close()

	turns := clickhouserepo.NewTurnRepository(ch)
	turns.Start(ctx)
	defer turns.Stop(context.Background())

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID + "-analytics",
		Topic:   kafka.TopicConversationTurn,
	})
	defer consumer.Close()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("Shutdown signal received")
		cancel()
	}()

	log.Infow("Analytics worker started", "topic", kafka.TopicConversationTurn)
	worker := consumers.NewAnalyticsConsumer(consumer, turns)
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("Consumer stopped with error: %v", err)
	}
	log.Info("✓ Analytics worker stopped")
}
