package events

import "time"

// ConversationTurn is emitted after every processed user turn
type ConversationTurn struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	AgentType      string    `json:"agent_type"`
	AgentsRun      []string  `json:"agents_run"`
	Confidence     float64   `json:"confidence"`
	DurationMS     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// ExpenseCreated is emitted when the action agent persists an expense
type ExpenseCreated struct {
	ExpenseID   string    `json:"expense_id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProfileUpdated is emitted when the profile agent writes new field values
type ProfileUpdated struct {
	UserID        string    `json:"user_id"`
	UpdatedFields []string  `json:"updated_fields"`
	Timestamp     time.Time `json:"timestamp"`
}
