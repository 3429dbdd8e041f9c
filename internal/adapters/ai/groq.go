package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"steuerpilot/pkg/errors"
)

// Ensure GroqProvider implements ChatProvider
var _ ChatProvider = (*GroqProvider)(nil)

// GroqProvider talks to Groq's OpenAI-compatible chat completions API
// through the official OpenAI SDK pointed at the Groq base URL.
type GroqProvider struct {
	client  openai.Client // NewClient returns Client (not *Client)
	model   string
	timeout time.Duration
}

// NewGroqProvider creates a Groq chat provider
func NewGroqProvider(apiKey, baseURL, model string, timeout time.Duration) (*GroqProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "groq API key not configured")
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)

	return &GroqProvider{client: client, model: model, timeout: timeout}, nil
}

// Name returns the provider name
func (p *GroqProvider) Name() string { return "groq" }

// Complete sends a chat completion request and returns the first choice text
func (p *GroqProvider) Complete(ctx context.Context, req ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "groq chat completion")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.Wrap(errors.ErrEmptyCompletion, "groq returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
