package agents

import (
	"context"
	"fmt"
	"strings"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/pkg/logger"
)

// OrchestratorAgent owns greetings and anything no specialist covers
type OrchestratorAgent struct {
	llm Completer
	log *logger.Logger
}

// NewOrchestratorAgent creates the fallback agent
func NewOrchestratorAgent(llm Completer) *OrchestratorAgent {
	return &OrchestratorAgent{
		llm: llm,
		log: logger.Get().With("agent", "orchestrator"),
	}
}

var _ agent.Agent = (*OrchestratorAgent)(nil)

// Type implements agent.Agent
func (a *OrchestratorAgent) Type() agent.Type { return agent.TypeOrchestrator }

// Handle answers greetings deterministically and routes everything else
// through a general-purpose completion
func (a *OrchestratorAgent) Handle(ctx context.Context, in agent.Input) (*agent.Response, error) {
	if greetingRe.MatchString(in.Message) {
		return a.greet(in), nil
	}
	return a.generalReply(ctx, in)
}

func (a *OrchestratorAgent) greet(in agent.Input) *agent.Response {
	content := "Hello! I'm your German tax assistant. I can answer tax questions, track your expenses, and keep your tax profile up to date. What can I help you with?"
	if in.Profile != nil && in.Profile.EmploymentStatus != "" {
		content = fmt.Sprintf(
			"Hello again! I remember you're %s. I can answer tax questions, track expenses, or update your profile. What would you like to do?",
			strings.ReplaceAll(in.Profile.EmploymentStatus, "_", "-"),
		)
	}

	return &agent.Response{
		AgentType:  agent.TypeOrchestrator,
		Content:    content,
		Confidence: 0.9,
		Reasoning:  "greeting handled without model call",
		SuggestedActions: []agent.SuggestedAction{
			{Action: "ask_tax_question", Description: "Ask a German tax question"},
			{Action: "add_expense", Description: "Track a new expense"},
			{Action: "update_profile", Description: "Tell me about your tax situation"},
		},
	}
}

func (a *OrchestratorAgent) generalReply(ctx context.Context, in agent.Input) (*agent.Response, error) {
	var sb strings.Builder
	sb.WriteString("User profile: ")
	sb.WriteString(in.Profile.Summary())
	sb.WriteString("\n\nRecent conversation:\n")
	for _, m := range tailMessages(in.History, routerHistoryWindow) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
	}
	sb.WriteString("\nUser: ")
	sb.WriteString(in.Message)

	out, err := a.llm.Complete(ctx, ai.ChatRequest{
		SystemPrompt: "You are a friendly German tax assistant. Answer briefly and helpfully. If the question is about taxes, expenses, or the user's situation, suggest the concrete thing you can do for them. Never give binding legal or tax advice.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: sb.String()},
		},
		Temperature: 0.6,
		MaxTokens:   500,
	})
	if err != nil {
		a.log.Warnw("general reply failed", "error", err)
		return &agent.Response{
			AgentType:  agent.TypeOrchestrator,
			Content:    "I can help with German tax questions, expense tracking, and your tax profile. What would you like to know?",
			Confidence: 0.3,
			Reasoning:  "model unavailable, canned reply",
		}, nil
	}

	return &agent.Response{
		AgentType:  agent.TypeOrchestrator,
		Content:    strings.TrimSpace(out),
		Confidence: 0.7,
		Reasoning:  "general conversational reply",
	}, nil
}
