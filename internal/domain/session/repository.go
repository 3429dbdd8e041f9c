package session

import (
	"context"

	"steuerpilot/internal/domain/conversation"
)

// ContextRepository defines the interface for session context caching.
// Implementations must return errors.ErrNotFound on cache miss so callers
// can rehydrate from durable storage.
type ContextRepository interface {
	Get(ctx context.Context, sessionID string) (*Context, error)
	Save(ctx context.Context, sessionID string, sc *Context) error
	Delete(ctx context.Context, sessionID string) error
}

// MessageCache keeps a short rolling window of recent messages per session
// to avoid a database round trip on every routing decision.
type MessageCache interface {
	Push(ctx context.Context, sessionID string, msg conversation.Message) error
	Recent(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error)
}
