package agents

import (
	"context"
	"encoding/json"

	"steuerpilot/internal/adapters/ai"
)

// Completer is the slice of the AI gateway the agents depend on. Kept as an
// interface so routing and synthesis can be tested against canned completions.
type Completer interface {
	Complete(ctx context.Context, req ai.ChatRequest) (string, error)
	CompleteJSON(ctx context.Context, req ai.ChatRequest) (json.RawMessage, error)
}
