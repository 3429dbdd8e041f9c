package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/session"
	"steuerpilot/pkg/errors"
)

// messageWindow bounds the rolling cache per session
const messageWindow = 10

// Compile-time check that we implement the interface
var _ session.MessageCache = (*MessageCache)(nil)

// MessageCache keeps the last few messages per session in a Redis list so
// routing never hits Postgres on the hot path
type MessageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMessageCache creates a new message cache
func NewMessageCache(client *redis.Client, ttl time.Duration) *MessageCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &MessageCache{client: client, ttl: ttl}
}

// Push appends a message and trims the list to the window
func (c *MessageCache) Push(ctx context.Context, sessionID string, msg conversation.Message) error {
	key := c.getKey(sessionID)

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal message: session_id=%s", sessionID)
	}

	pipe := c.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -messageWindow, -1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to push message: session_id=%s", sessionID)
	}

	return nil
}

// Recent returns up to limit cached messages in chronological order
func (c *MessageCache) Recent(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	key := c.getKey(sessionID)

	if limit <= 0 || limit > messageWindow {
		limit = messageWindow
	}

	raw, err := c.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read messages: session_id=%s", sessionID)
	}

	messages := make([]conversation.Message, 0, len(raw))
	for _, item := range raw {
		var msg conversation.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// Skip unreadable entries rather than failing the turn
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (c *MessageCache) getKey(sessionID string) string {
	return fmt.Sprintf("messages:%s", sessionID)
}
