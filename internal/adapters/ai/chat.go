package ai

import "context"

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a single message in the conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest represents a chat completion request. SystemPrompt, when set,
// is sent ahead of Messages in provider-native form.
type ChatRequest struct {
	Messages     []Message
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ChatProvider is one concrete LLM backend. Implementations must honor ctx
// cancellation and return errors.ErrEmptyCompletion for blank completions.
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
