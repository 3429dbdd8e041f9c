package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"steuerpilot/internal/adapters/config"
	"steuerpilot/pkg/errors"
)

// Client owns the ClickHouse connection for the turn analytics sink
type Client struct {
	conn driver.Conn
}

// NewClient connects with LZ4 compression and verifies the connection
func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect clickhouse")
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "ping clickhouse")
	}
	return &Client{conn: conn}, nil
}

// Conn exposes the connection for batch inserts
func (c *Client) Conn() driver.Conn { return c.conn }

// Close releases the connection
func (c *Client) Close() error { return c.conn.Close() }

// Health reports connectivity for readiness checks
func (c *Client) Health(ctx context.Context) error { return c.conn.Ping(ctx) }
