package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"steuerpilot/internal/adapters/config"
	"steuerpilot/pkg/errors"
)

// Client owns the PostgreSQL connection pool
type Client struct {
	db *sqlx.DB
}

// NewClient connects and verifies the connection before returning
func NewClient(cfg config.PostgresConfig) (*Client, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Client{db: db}, nil
}

// DB exposes the pool for the repositories
func (c *Client) DB() *sqlx.DB { return c.db }

// Close releases the pool
func (c *Client) Close() error { return c.db.Close() }

// Health reports connectivity for readiness checks
func (c *Client) Health(ctx context.Context) error { return c.db.PingContext(ctx) }
