package agent

import (
	"context"

	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/internal/domain/session"
)

// Input carries everything one agent invocation can see. Context includes the
// rolling agent_outputs list written by agents that ran earlier in this turn.
type Input struct {
	Message   string
	UserID    string
	SessionID string
	Profile   *profile.Profile
	Context   *session.Context
	History   []conversation.Message
}

// Agent is the contract every specialist implements. Handle must not return a
// nil response together with a nil error.
type Agent interface {
	Type() Type
	Handle(ctx context.Context, in Input) (*Response, error)
}
