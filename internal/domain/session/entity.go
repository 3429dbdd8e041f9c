package session

import (
	"github.com/shopspring/decimal"
)

// PendingExpense is a suggested expense awaiting user confirmation.
// At most one may be open per session; a new suggestion overwrites it.
type PendingExpense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Confidence  float64         `json:"confidence"`
}

// AgentOutput records one agent's result within the current turn so agents
// later in the plan can see it. Turn-scoped, never persisted.
type AgentOutput struct {
	Agent    string                 `json:"agent"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Context is the rolling per-session conversation state. It seeds routing at
// the start of a turn and is written back after synthesis.
type Context struct {
	ConversationStage string                 `json:"conversation_stage,omitempty"`
	MessageCount      int                    `json:"message_count"`
	LastAgent         string                 `json:"last_agent,omitempty"`
	LastTopic         string                 `json:"last_topic,omitempty"`
	RequiresFollowup  bool                   `json:"requires_followup"`
	MissingFields     []string               `json:"missing_fields,omitempty"`
	PendingExpense    *PendingExpense        `json:"pending_expense,omitempty"`
	Extra             map[string]interface{} `json:"extra,omitempty"`

	// AgentOutputs is populated by the executor during a turn and reset at
	// the start of the next one.
	AgentOutputs []AgentOutput `json:"-"`
}

// NewContext returns an empty context for a fresh session
func NewContext() *Context {
	return &Context{ConversationStage: "initial"}
}

// SetExtra records a free-form context value
func (c *Context) SetExtra(key string, value interface{}) {
	if c.Extra == nil {
		c.Extra = make(map[string]interface{})
	}
	c.Extra[key] = value
}

// ClearPending drops the open pending expense, if any
func (c *Context) ClearPending() {
	c.PendingExpense = nil
}
