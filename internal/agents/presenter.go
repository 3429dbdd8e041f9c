package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/metrics"
	"steuerpilot/pkg/logger"
)

const (
	mergePenalty       = 0.05
	maxReasoningLen    = 2000
	synthesisMaxTokens = 1200
	synthHistoryWindow = 4
)

// Presenter merges per-agent responses into the one reply sent to the user.
// Single-agent turns pass through verbatim; multi-agent turns go through a
// constrained synthesis pass with a deterministic concatenation fallback.
type Presenter struct {
	llm Completer
	log *logger.Logger
}

// NewPresenter creates a new response presenter
func NewPresenter(llm Completer) *Presenter {
	return &Presenter{
		llm: llm,
		log: logger.Get().With("component", "presenter"),
	}
}

// Combine produces exactly one merged response for the turn
func (p *Presenter) Combine(
	ctx context.Context,
	results []Result,
	userMessage string,
	history []conversation.Message,
) *agent.Response {
	switch len(results) {
	case 0:
		return &agent.Response{
			AgentType:  agent.TypeOrchestrator,
			Content:    "I could not process your message this time. Please try again.",
			Confidence: 0,
		}
	case 1:
		// Verbatim fast path: merging a single answer only risks rewriting it
		resp := results[0].Response
		resp.Content = strings.TrimSpace(resp.Content)
		return resp
	}

	content, err := p.synthesize(ctx, results, userMessage, history)
	if err != nil {
		p.log.Warnw("synthesis failed, using deterministic fallback", "error", err)
		metrics.SynthesisFallbacks.Inc()
		content = concatFallback(results)
	}

	merged := &agent.Response{
		AgentType:        agent.TypeMulti,
		Content:          content,
		Confidence:       mergedConfidence(results),
		Reasoning:        mergedReasoning(results),
		SuggestedActions: mergedActions(results),
		Metadata:         mergedMetadata(results),
	}
	return merged
}

func (p *Presenter) synthesize(
	ctx context.Context,
	results []Result,
	userMessage string,
	history []conversation.Message,
) (string, error) {
	var sb strings.Builder

	sb.WriteString("USER'S ORIGINAL QUESTION:\n")
	sb.WriteString(userMessage)
	sb.WriteString("\n\nRECENT CONVERSATION:\n")
	for _, m := range tailMessages(history, synthHistoryWindow) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
	}

	sb.WriteString("\nAGENT OUTPUTS:\n")
	pendingProposed := false
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("\n[%s] (confidence %.2f)\n%s\n", r.Agent.DisplayName(), r.Response.Confidence, r.Response.Content))
		if r.Response.Reasoning != "" {
			sb.WriteString("Reasoning: " + r.Response.Reasoning + "\n")
		}
		if awaitingConfirmation(r.Response) {
			pendingProposed = true
		}
	}

	if pendingProposed {
		sb.WriteString("\nEXPENSE SUGGESTION DETECTED: one section above proposed adding an expense and is waiting for the user's confirmation. End your answer by explicitly asking the user to confirm and to supply any missing details.\n")
	}

	sb.WriteString(`
TASK:
Combine the sections above into ONE natural answer to the user's question.

CRITICAL GUIDELINES:
- Use ONLY the facts stated above. Do NOT invent numbers, dates, amounts, or expense records. Every amount and date in your answer must appear verbatim in a section above.
- Write one coherent, friendly answer. Never mention agents, sections, or internal mechanics.
- Do not repeat the same fact twice.
- Keep exact figures exactly as written (for example €800 stays €800, 2024-05-01 stays 2024-05-01).`)

	out, err := p.llm.Complete(ctx, ai.ChatRequest{
		SystemPrompt: "You combine draft answer fragments from a German tax assistant into one reply. You never add facts that are not in the fragments.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: sb.String()},
		},
		Temperature: 0.4,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty synthesis output")
	}
	return out, nil
}

// concatFallback must never fail and never lose an agent's content
func concatFallback(results []Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("**%s:**\n%s", r.Agent.DisplayName(), strings.TrimSpace(r.Response.Content)))
	}
	return sb.String()
}

func mergedConfidence(results []Result) float64 {
	max := 0.0
	for _, r := range results {
		if r.Response.Confidence > max {
			max = r.Response.Confidence
		}
	}
	if len(results) > 1 {
		max -= mergePenalty
	}
	return agent.ClampConfidence(max)
}

func mergedReasoning(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Response.Reasoning == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", r.Agent, r.Response.Reasoning))
	}
	joined := strings.Join(parts, " | ")
	return truncateBytes(joined, maxReasoningLen)
}

// truncateBytes cuts s to at most max bytes without splitting a rune
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func mergedActions(results []Result) []agent.SuggestedAction {
	var union []agent.SuggestedAction
	for _, r := range results {
		for _, a := range r.Response.SuggestedActions {
			if !containsAction(union, a) {
				union = append(union, a)
			}
		}
	}
	return union
}

func containsAction(list []agent.SuggestedAction, a agent.SuggestedAction) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

func mergedMetadata(results []Result) map[string]interface{} {
	merged := make(map[string]interface{})
	perAgent := make(map[string]interface{})
	profileUpdated := false
	requiresFollowup := false
	var missing []string

	for _, r := range results {
		md := r.Response.Metadata
		if md == nil {
			continue
		}
		perAgent[string(r.Agent)] = md

		if b, ok := md[agent.MetaProfileUpdated].(bool); ok && b {
			profileUpdated = true
		}
		if b, ok := md[agent.MetaRequiresFollowup].(bool); ok && b {
			requiresFollowup = true
		}
		for _, f := range metadataStrings(md[agent.MetaMissingFields]) {
			if !containsString(missing, f) {
				missing = append(missing, f)
			}
		}

		for k, v := range md {
			switch k {
			case agent.MetaProfileUpdated, agent.MetaRequiresFollowup, agent.MetaMissingFields:
				continue
			}
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}

	merged[agent.MetaProfileUpdated] = profileUpdated
	merged[agent.MetaRequiresFollowup] = requiresFollowup
	if len(missing) > 0 {
		merged[agent.MetaMissingFields] = missing
	}
	merged[agent.MetaPerAgent] = perAgent
	merged[agent.MetaMerged] = true
	merged[agent.MetaAgentType] = string(agent.TypeMulti)
	return merged
}

// metadataStrings tolerates both []string and JSON-decoded []interface{}
func metadataStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func awaitingConfirmation(resp *agent.Response) bool {
	if resp.Metadata != nil {
		if b, ok := resp.Metadata[agent.MetaAwaitingConfirm].(bool); ok && b {
			return true
		}
	}
	lower := strings.ToLower(resp.Reasoning)
	return strings.Contains(lower, "awaiting confirmation") || strings.Contains(lower, "pending")
}
