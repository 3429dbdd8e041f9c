package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/internal/domain/session"
	"steuerpilot/internal/metrics"
	"steuerpilot/pkg/logger"
)

// Rule-pass confidence tiers. Confirmation sits highest so a "yes, add it"
// after a suggestion always reaches the action agent without an LLM call.
const (
	confirmConfidence      = 0.95
	personalInfoConfidence = 0.85
	expenseConfidence      = 0.80
	profileConfidence      = 0.75
	taxTopicConfidence     = 0.70
	greetingConfidence     = 0.60

	defaultPickConfidence = 0.50
	taxFallbackConfidence = 0.55
	routerHistoryWindow   = 6
)

var (
	confirmationRe = regexp.MustCompile(`(?i)^\s*(?:yes|yep|yeah|sure|ok(?:ay)?|ja|jawohl|genau|klar|confirm|do it|go ahead|add it|yes,? add it|please add(?: it)?|mach das)[\s.!,]*$`)

	confirmPrompts = []string{
		"add this expense",
		"should i add",
		"add it?",
	}

	personalInfoPhrases = []string{
		"what do you know about me",
		"my profile",
		"my information",
		"my details",
		"was weißt du über mich",
		"mein profil",
	}

	expenseKeywords = []string{
		"expense", "expenses", "bought", "purchased", "spent", "paid",
		"receipt", "track", "ausgabe", "ausgaben", "gekauft", "beleg",
		"show my expenses", "delete the expense", "update the expense",
	}

	profileUpdatePhrases = []string{
		"my income is", "update my income", "i earn", "i make",
		"i am employed", "i'm employed", "i am self-employed", "i'm self-employed",
		"i am a freelancer", "i'm a freelancer", "i work as", "i am married",
		"i'm married", "i am single", "i'm single", "ich bin", "ich verdiene",
		"mein einkommen",
	}

	taxVocabulary = []string{
		"tax", "taxes", "deduct", "deduction", "deductible", "vat",
		"steuer", "steuern", "absetzen", "absetzbar", "werbungskosten",
		"freibetrag", "pauschale", "umsatzsteuer", "mehrwertsteuer",
		"einkommensteuer", "home office", "homeoffice", "pendlerpauschale",
		"kleinunternehmer", "elster", "finanzamt",
	}

	greetingRe = regexp.MustCompile(`(?i)^\s*(?:hello|hi|hey|hallo|moin|servus|guten\s+(?:tag|morgen|abend)|good\s+(?:morning|afternoon|evening))[\s!.,]*$`)
)

// Router selects the specialist agents for a turn: a deterministic rule pass
// first, then an LLM-scored rubric, merged by max confidence per agent.
type Router struct {
	llm Completer
	log *logger.Logger
}

// NewRouter creates a new agent router
func NewRouter(llm Completer) *Router {
	return &Router{
		llm: llm,
		log: logger.Get().With("component", "router"),
	}
}

// SelectAgents produces the ordered agent picks for this turn
func (r *Router) SelectAgents(
	ctx context.Context,
	message string,
	prof *profile.Profile,
	sessCtx *session.Context,
	history []conversation.Message,
) []agent.Pick {
	rulePicks := r.rulePass(message, history)
	for _, p := range rulePicks {
		metrics.RouterPicks.WithLabelValues(string(p.Agent), "rule").Inc()
	}

	llmPicks := r.llmPass(ctx, message, prof, history)
	for _, p := range llmPicks {
		metrics.RouterPicks.WithLabelValues(string(p.Agent), "llm").Inc()
	}

	merged := mergePicks(rulePicks, llmPicks)
	if len(merged) == 0 {
		metrics.RouterPicks.WithLabelValues(string(agent.TypeOrchestrator), "fallback").Inc()
		merged = []agent.Pick{{
			Agent:      agent.TypeOrchestrator,
			Confidence: defaultPickConfidence,
			Reasons:    "no agent qualified",
		}}
	}

	orderPicks(merged)
	return merged
}

// SelectAgent returns only the top pick's agent name
func (r *Router) SelectAgent(
	ctx context.Context,
	message string,
	prof *profile.Profile,
	sessCtx *session.Context,
	history []conversation.Message,
) agent.Type {
	picks := r.SelectAgents(ctx, message, prof, sessCtx, history)
	top := picks[0]
	for _, p := range picks[1:] {
		if p.Confidence > top.Confidence {
			top = p
		}
	}
	return top.Agent
}

// rulePass is deterministic and never touches the network
func (r *Router) rulePass(message string, history []conversation.Message) []agent.Pick {
	lower := strings.ToLower(message)
	var picks []agent.Pick

	if IsConfirmation(message) && AsksExpenseConfirmation(lastAssistantMessage(history)) {
		picks = append(picks, agent.Pick{
			Agent:      agent.TypeAction,
			Confidence: confirmConfidence,
			Reasons:    "confirmation of a suggested expense",
			Triggers:   []string{"confirmation"},
		})
	}

	if containsAny(lower, personalInfoPhrases) {
		picks = append(picks, agent.Pick{
			Agent:      agent.TypeProfile,
			Confidence: personalInfoConfidence,
			Reasons:    "asks about stored personal information",
			Triggers:   []string{"personal_info"},
		})
	}

	// Purchase keywords only. A bare money figure is not enough: income
	// statements like "update my income to 60000 euro" carry amounts too
	// and belong to the profile agent.
	if containsAny(lower, expenseKeywords) {
		picks = append(picks, agent.Pick{
			Agent:      agent.TypeAction,
			Confidence: expenseConfidence,
			Reasons:    "mentions an expense",
			Triggers:   []string{"expense"},
		})
	}

	if containsAny(lower, profileUpdatePhrases) {
		picks = append(picks, agent.Pick{
			Agent:      agent.TypeProfile,
			Confidence: profileConfidence,
			Reasons:    "states personal or financial facts",
			Triggers:   []string{"profile_update"},
		})
	}

	if containsAny(lower, taxVocabulary) {
		picks = append(picks, agent.Pick{
			Agent:      agent.TypeTaxKnowledge,
			Confidence: taxTopicConfidence,
			Reasons:    "uses tax vocabulary",
			Triggers:   []string{"tax_topic"},
		})
	}

	// Greeting is a pick of last resort: only when nothing specific matched
	if len(picks) == 0 && greetingRe.MatchString(message) {
		picks = append(picks, agent.Pick{
			Agent:      agent.TypeOrchestrator,
			Confidence: greetingConfidence,
			Reasons:    "bare greeting",
			Triggers:   []string{"greeting"},
		})
	}

	return picks
}

// IsConfirmation reports whether the message is a short affirmative reply
func IsConfirmation(message string) bool {
	return confirmationRe.MatchString(message)
}

// AsksExpenseConfirmation reports whether an assistant message asked the user
// to confirm adding an expense
func AsksExpenseConfirmation(assistantMessage string) bool {
	lower := strings.ToLower(assistantMessage)
	for _, p := range confirmPrompts {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// HasTaxVocabulary reports whether the message uses tax-domain terms
func HasTaxVocabulary(message string) bool {
	return containsAny(strings.ToLower(message), taxVocabulary)
}

func lastAssistantMessage(history []conversation.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == conversation.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

const routerSystemPrompt = `You route messages for a German tax assistant to specialist agents. Score EVERY agent independently from 0.0 to 1.0 for how well it matches the user's latest message.

Agents:
- "profile": stores and answers questions about the user's personal tax situation (employment, filing status, income, dependents, goals).
- "action": manages expense records (add, confirm, list, update, delete) and recognizes purchases worth tracking.
- "tax_knowledge": answers German tax questions (deductions, rates, allowances, VAT, deadlines) and runs simple estimates.
- "orchestrator": greetings, small talk, and anything no specialist covers.

Return JSON exactly in this shape:
{"agents":[{"agent":"profile","confidence":0.0,"reasons":"...","triggers":["..."]}, ...]}`

type llmRouteResult struct {
	Agents []struct {
		Agent      string   `json:"agent"`
		Confidence float64  `json:"confidence"`
		Reasons    string   `json:"reasons"`
		Triggers   []string `json:"triggers"`
	} `json:"agents"`
}

func (r *Router) llmPass(
	ctx context.Context,
	message string,
	prof *profile.Profile,
	history []conversation.Message,
) []agent.Pick {
	var sb strings.Builder
	sb.WriteString("User profile: ")
	sb.WriteString(prof.Summary())
	sb.WriteString("\n\nRecent conversation:\n")
	for _, m := range tailMessages(history, routerHistoryWindow) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
	}
	sb.WriteString("\nLatest user message: ")
	sb.WriteString(message)

	raw, err := r.llm.CompleteJSON(ctx, ai.ChatRequest{
		SystemPrompt: routerSystemPrompt,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: sb.String()},
		},
		Temperature: 0.1,
		MaxTokens:   400,
	})
	if err != nil {
		r.log.Warnw("llm routing pass failed", "error", err)
		return r.llmFallback(message)
	}

	var result llmRouteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		r.log.Warnw("llm routing result unparseable", "error", err)
		return r.llmFallback(message)
	}

	picks := make([]agent.Pick, 0, len(result.Agents))
	for _, a := range result.Agents {
		t := agent.Type(strings.ToLower(strings.TrimSpace(a.Agent)))
		if !agent.Known(t) {
			continue
		}
		picks = append(picks, agent.Pick{
			Agent:      t,
			Confidence: agent.ClampConfidence(a.Confidence),
			Reasons:    a.Reasons,
			Triggers:   a.Triggers,
		})
	}
	return picks
}

// llmFallback covers a failed or unparseable scoring pass with one cautious pick
func (r *Router) llmFallback(message string) []agent.Pick {
	metrics.RouterPicks.WithLabelValues(string(agent.TypeTaxKnowledge), "fallback").Inc()
	if HasTaxVocabulary(message) {
		return []agent.Pick{{
			Agent:      agent.TypeTaxKnowledge,
			Confidence: taxFallbackConfidence,
			Reasons:    "routing model unavailable, tax vocabulary present",
		}}
	}
	return []agent.Pick{{
		Agent:      agent.TypeOrchestrator,
		Confidence: defaultPickConfidence,
		Reasons:    "routing model unavailable",
	}}
}

// mergePicks unions picks by agent, keeping the highest confidence and
// concatenating distinct reasons and triggers
func mergePicks(groups ...[]agent.Pick) []agent.Pick {
	byAgent := make(map[agent.Type]*agent.Pick)
	var order []agent.Type

	for _, group := range groups {
		for _, p := range group {
			existing, ok := byAgent[p.Agent]
			if !ok {
				cp := p
				cp.Confidence = agent.ClampConfidence(cp.Confidence)
				byAgent[p.Agent] = &cp
				order = append(order, p.Agent)
				continue
			}
			if p.Confidence > existing.Confidence {
				existing.Confidence = agent.ClampConfidence(p.Confidence)
			}
			if p.Reasons != "" && !strings.Contains(existing.Reasons, p.Reasons) {
				if existing.Reasons != "" {
					existing.Reasons += "; "
				}
				existing.Reasons += p.Reasons
			}
			for _, t := range p.Triggers {
				if !containsString(existing.Triggers, t) {
					existing.Triggers = append(existing.Triggers, t)
				}
			}
		}
	}

	merged := make([]agent.Pick, 0, len(order))
	for _, name := range order {
		merged = append(merged, *byAgent[name])
	}
	return merged
}

// orderPicks sorts by the fixed execution priority, confidence as tiebreak
func orderPicks(picks []agent.Pick) {
	sort.SliceStable(picks, func(i, j int) bool {
		pi, pj := priorityIndex(picks[i].Agent), priorityIndex(picks[j].Agent)
		if pi != pj {
			return pi < pj
		}
		return picks[i].Confidence > picks[j].Confidence
	})
}

func priorityIndex(t agent.Type) int {
	for i, p := range agent.ExecutionPriority {
		if p == t {
			return i
		}
	}
	return len(agent.ExecutionPriority)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func tailMessages(history []conversation.Message, n int) []conversation.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
