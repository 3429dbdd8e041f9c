package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"steuerpilot/internal/domain/conversation"
	"steuerpilot/pkg/errors"
)

// Compile-time check that we implement the interface
var _ conversation.Repository = (*ConversationRepository)(nil)

// ConversationRepository implements conversation.Repository using sqlx
type ConversationRepository struct {
	db DBTX
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetBySession retrieves the conversation for a session id
func (r *ConversationRepository) GetBySession(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	var c conversation.Conversation

	query := `
		SELECT id, session_id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE session_id = $1`

	err := r.db.GetContext(ctx, &c, query, sessionID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "conversation not found: session_id=%s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get conversation")
	}

	return &c, nil
}

// Create inserts a new conversation
func (r *ConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO conversations (id, session_id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.SessionID, c.UserID, c.Title, c.CreatedAt, c.UpdatedAt)
	return errors.Wrap(err, "create conversation")
}

// UpdateTitle sets the conversation title
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	query := `UPDATE conversations SET title = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, title)
	return errors.Wrap(err, "update conversation title")
}

// AppendMessage persists one message and returns its id
func (r *ConversationRepository) AppendMessage(ctx context.Context, conversationID uuid.UUID, role conversation.MessageRole, content string) (uuid.UUID, error) {
	id := uuid.New()

	query := `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, id, conversationID, role, content, time.Now().UTC())
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "append message")
	}
	return id, nil
}

// RecentMessages returns the last limit messages in chronological order
func (r *ConversationRepository) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]conversation.Message, error) {
	var messages []conversation.Message

	// Fetch newest first, then reverse so callers get chronological order
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &messages, query, conversationID, limit); err != nil {
		return nil, errors.Wrap(err, "recent messages")
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountMessages returns the total message count for a conversation
func (r *ConversationRepository) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int

	query := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`

	if err := r.db.GetContext(ctx, &count, query, conversationID); err != nil {
		return 0, errors.Wrap(err, "count messages")
	}
	return count, nil
}
