package ai

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"steuerpilot/pkg/errors"
)

// Ensure GeminiProvider implements ChatProvider
var _ ChatProvider = (*GeminiProvider)(nil)

// GeminiProvider talks to the Gemini API via the official genai SDK
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates a Gemini chat provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "gemini API key not configured")
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &GeminiProvider{client: client, model: model, timeout: timeout}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete sends the conversation as alternating role-tagged contents and
// returns the first candidate's text
func (p *GeminiProvider) Complete(ctx context.Context, req ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		config.Temperature = &t
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}
	if len(result.Candidates) == 0 {
		return "", errors.Wrap(errors.ErrEmptyCompletion, "gemini returned no candidates")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return "", errors.Wrap(errors.ErrEmptyCompletion, "gemini candidate has no content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return "", errors.Wrap(errors.ErrEmptyCompletion, "gemini candidate text empty")
	}
	return text, nil
}

// Embed generates an embedding vector for the given text
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := p.client.Models.EmbedContent(ctx, "text-embedding-004", contents, nil)
	if err != nil {
		return nil, errors.Wrap(err, "gemini embed content")
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.Wrap(errors.ErrInternal, "no embedding returned")
	}
	return resp.Embeddings[0].Values, nil
}
