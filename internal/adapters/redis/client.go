package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"steuerpilot/internal/adapters/config"
	"steuerpilot/pkg/errors"
)

// Client owns the Redis connection used by the session cache
type Client struct {
	rdb *redis.Client
}

// NewClient connects and verifies the connection before returning
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Client{rdb: rdb}, nil
}

// Client exposes the underlying connection for the repositories
func (c *Client) Client() *redis.Client { return c.rdb }

// Close releases the connection
func (c *Client) Close() error { return c.rdb.Close() }

// Health reports connectivity for readiness checks
func (c *Client) Health(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }
