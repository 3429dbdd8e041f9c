package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/adapters/clickhouse"
	"steuerpilot/internal/adapters/config"
	"steuerpilot/internal/adapters/errors/noop"
	"steuerpilot/internal/adapters/errors/sentry"
	"steuerpilot/internal/adapters/kafka"
	"steuerpilot/internal/adapters/postgres"
	"steuerpilot/internal/adapters/redis"
	"steuerpilot/internal/adapters/telegram"
	"steuerpilot/internal/agents"
	"steuerpilot/internal/api"
	"steuerpilot/internal/api/health"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/events"
	"steuerpilot/internal/metrics"
	clickhouserepo "steuerpilot/internal/repository/clickhouse"
	postgresrepo "steuerpilot/internal/repository/postgres"
	redisrepo "steuerpilot/internal/repository/redis"
	expensesvc "steuerpilot/internal/services/expense"
	"steuerpilot/internal/services/learning"
	"steuerpilot/internal/services/memory"
	"steuerpilot/internal/workflow"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

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
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Data stores
	pg, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	rd, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rd.Close()

	var ch *clickhouse.Client
	var turns *clickhouserepo.TurnRepository
	if cfg.ClickHouse.Enabled() {
		ch, err = clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Warnf("ClickHouse unavailable, turn analytics disabled: %v", err)
		} else {
			defer ch.Close()
			turns = clickhouserepo.NewTurnRepository(ch)
			turns.Start(ctx)
			defer turns.Stop(context.Background())
		}
	}

	// Events
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		log.Infow("Kafka event publishing enabled", "brokers", cfg.Kafka.Brokers)
	}
	publisher := events.NewPublisher(producer)

	// Model gateway
	gateway, embedder, err := initGateway(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize AI gateway: %v", err)
	}

	// Repositories
	profileRepo := postgresrepo.NewProfileRepository(pg.DB())
	conversationRepo := postgresrepo.NewConversationRepository(pg.DB())
	expenseRepo := postgresrepo.NewExpenseRepository(pg.DB())
	knowledgeRepo := postgresrepo.NewKnowledgeRepository(pg.DB())
	contextRepo := redisrepo.NewContextRepository(rd.Client(), cfg.Session.ContextTTL)
	messageCache := redisrepo.NewMessageCache(rd.Client(), cfg.Session.MessageTTL)

	// Services
	memorySvc := memory.NewService(contextRepo, messageCache, conversationRepo)
	expenseSvc := expensesvc.NewService(expenseRepo, publisher)
	learningSvc := learning.NewService(gateway, profileRepo, conversationRepo)

	// Agents and pipeline
	agentList := []agent.Agent{
		agents.NewProfileAgent(gateway, profileRepo, publisher),
		agents.NewActionAgent(gateway, expenseSvc),
		agents.NewTaxKnowledgeAgent(gateway, knowledgeRepo, embedder),
		agents.NewOrchestratorAgent(gateway),
	}
	processor := workflow.NewProcessor(
		agents.NewRouter(gateway),
		agents.NewExecutor(agentList, cfg.Session.AgentTimeout),
		agents.NewPresenter(gateway),
		memorySvc,
		learningSvc,
		profileRepo,
		publisher,
		turns,
	)

	// Surfaces
	healthHandler := health.New(log, pg.DB(), driverConn(ch), rd.Client(), cfg.App.Name, cfg.App.Version)
	chatHandler := api.NewChatHandler(processor, expenseRepo, profileRepo)
	server := api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}, healthHandler, chatHandler, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(telegram.Config{
			Token:         cfg.Telegram.BotToken,
			Debug:         cfg.App.Debug,
			UpdateTimeout: cfg.Telegram.Timeout,
		}, processor)
		if err != nil {
			log.Errorf("Telegram bot disabled: %v", err)
		} else {
			go func() {
				if err := bot.Start(ctx); err != nil {
					log.Errorf("Telegram bot error: %v", err)
				}
			}()
		}
	}

	log.Info("System initialized successfully")

	waitForShutdown(cancel, errorTracker, server, log)
}

// initGateway builds the provider chain in configured priority order. The
// Gemini provider doubles as the embedder for knowledge retrieval.
func initGateway(ctx context.Context, cfg config.AIConfig) (*ai.Gateway, ai.Embedder, error) {
	var groq, gemini ai.ChatProvider
	var embedder ai.Embedder

	if cfg.GroqKey != "" {
		p, err := ai.NewGroqProvider(cfg.GroqKey, cfg.GroqBaseURL, cfg.GroqModel, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, err
		}
		groq = p
	}
	if cfg.GeminiKey != "" {
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, err
		}
		gemini = p
		embedder = p
	}

	var providers []ai.ChatProvider
	if cfg.DefaultProvider == "gemini" {
		providers = appendProvider(providers, gemini, groq)
	} else {
		providers = appendProvider(providers, groq, gemini)
	}

	gateway, err := ai.NewGateway(providers, cfg.RequestsPerMin, cfg.MaxRetries)
	if err != nil {
		return nil, nil, err
	}
	return gateway, embedder, nil
}

func appendProvider(list []ai.ChatProvider, providers ...ai.ChatProvider) []ai.ChatProvider {
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	return list
}

func driverConn(c *clickhouse.Client) driver.Conn {
	if c == nil {
		return nil
	}
	return c.Conn()
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func waitForShutdown(cancel context.CancelFunc, errorTracker errors.Tracker, server *api.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
