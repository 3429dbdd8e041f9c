package conversation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for conversation data access
type Repository interface {
	// GetBySession retrieves the conversation for a session id,
	// errors.ErrNotFound when absent
	GetBySession(ctx context.Context, sessionID string) (*Conversation, error)

	// Create inserts a new conversation
	Create(ctx context.Context, c *Conversation) error

	// UpdateTitle sets the conversation title
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error

	// AppendMessage persists one message and returns its id
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role MessageRole, content string) (uuid.UUID, error)

	// RecentMessages returns the last limit messages in chronological order
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)

	// CountMessages returns the total message count for a conversation
	CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error)
}
