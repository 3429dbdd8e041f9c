package conversation

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Conversation groups the messages of one chat session
type Conversation struct {
	ID        uuid.UUID `db:"id"`
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Message is one persisted chat turn half
type Message struct {
	ID             uuid.UUID   `db:"id"`
	ConversationID uuid.UUID   `db:"conversation_id"`
	Role           MessageRole `db:"role"`
	Content        string      `db:"content"`
	CreatedAt      time.Time   `db:"created_at"`
}
