package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"steuerpilot/internal/workflow"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Debug          bool
	UpdateTimeout  int // long-poll timeout in seconds
	HTTPTimeout    time.Duration
	RateLimitBurst int
	RateLimitRate  int // messages per second
}

// Bot is a long-polling Telegram surface over the message processor. Each chat
// maps onto one assistant session.
type Bot struct {
	api       *tgbotapi.BotAPI
	processor *workflow.Processor
	limiter   *rate.Limiter
	log       *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewBot creates a new Telegram bot instance
func NewBot(cfg Config, processor *workflow.Processor) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if cfg.UpdateTimeout == 0 {
		cfg.UpdateTimeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 90 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.RateLimitRate == 0 {
		// Telegram allows 30 msg/sec, stay below it
		cfg.RateLimitRate = 20
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log := logger.Get().With("component", "telegram_bot")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:       api,
		processor: processor,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		log:       log,
	}, nil
}

// Start polls for updates until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Infow("✓ Telegram bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return nil
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go b.handleMessage(ctx, update)
		}
	}
}

// Stop halts update polling
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.api.StopReceivingUpdates()
	b.running = false
	b.log.Infow("✓ Telegram bot stopped")
}

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	sessionID := fmt.Sprintf("tg:%d", msg.Chat.ID)
	userID := fmt.Sprintf("tg:%d", msg.From.ID)

	turnCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	result, err := b.processor.ProcessMessage(turnCtx, msg.Text, sessionID, userID)
	if err != nil {
		b.log.Errorw("telegram turn failed", "chat_id", msg.Chat.ID, "error", err)
		b.send(turnCtx, msg.Chat.ID, "Something went wrong on my side. Please try again.")
		return
	}

	b.send(turnCtx, msg.Chat.ID, result.Content)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}

	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = "Markdown"
	if _, err := b.api.Send(out); err != nil {
		b.log.Errorw("failed to send message", "chat_id", chatID, "error", err)
	}
}
