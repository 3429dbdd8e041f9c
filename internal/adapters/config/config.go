package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"steuerpilot/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Session       SessionConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"steuerpilot"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ClickHouseConfig configures the optional turn-analytics sink.
// When Host is empty the analytics recorder is disabled.
type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"steuerpilot"`
}

func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"steuerpilot"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// TelegramConfig configures the optional Telegram chat surface.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	Timeout  int    `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"30"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

// AIConfig holds provider credentials and gateway policy. The gateway tries
// DefaultProvider first and falls back to the other configured provider.
type AIConfig struct {
	GroqKey         string        `envconfig:"GROQ_API_KEY"`
	GroqModel       string        `envconfig:"GROQ_MODEL" default:"llama-3.3-70b-versatile"`
	GroqBaseURL     string        `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"groq"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries      int           `envconfig:"AI_MAX_RETRIES" default:"3"`
	RequestsPerMin  int           `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

type SessionConfig struct {
	ContextTTL   time.Duration `envconfig:"SESSION_CONTEXT_TTL" default:"24h"`
	MessageTTL   time.Duration `envconfig:"SESSION_MESSAGE_TTL" default:"24h"`
	AgentTimeout time.Duration `envconfig:"AGENT_TIMEOUT" default:"45s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
