package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"steuerpilot/internal/domain/session"
	"steuerpilot/pkg/errors"
)

// Compile-time check that we implement the interface
var _ session.ContextRepository = (*ContextRepository)(nil)

// ContextRepository implements session.ContextRepository using Redis
type ContextRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContextRepository creates a new session context repository
func NewContextRepository(client *redis.Client, ttl time.Duration) *ContextRepository {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &ContextRepository{client: client, ttl: ttl}
}

// Get retrieves the context for a session
func (r *ContextRepository) Get(ctx context.Context, sessionID string) (*session.Context, error) {
	key := r.getKey(sessionID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "context not found: session_id=%s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get context from redis: session_id=%s", sessionID)
	}

	var sc session.Context
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal context: session_id=%s", sessionID)
	}

	return &sc, nil
}

// Save stores the context with the configured TTL
func (r *ContextRepository) Save(ctx context.Context, sessionID string, sc *session.Context) error {
	key := r.getKey(sessionID)

	data, err := json.Marshal(sc)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal context: session_id=%s", sessionID)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save context to redis: session_id=%s", sessionID)
	}

	return nil
}

// Delete removes the context
func (r *ContextRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.getKey(sessionID)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete context from redis: session_id=%s", sessionID)
	}
	return nil
}

func (r *ContextRepository) getKey(sessionID string) string {
	return fmt.Sprintf("context:%s", sessionID)
}
