package agents

import (
	"context"
	"fmt"
	"strings"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/knowledge"
	"steuerpilot/internal/taxdata"
	"steuerpilot/pkg/logger"
)

const (
	retrievalLimit = 4
	adviceNote     = "\n\n_Note: these are simplified figures for orientation, not binding tax advice. A Steuerberater can assess your individual case._"
)

// TaxKnowledgeAgent answers German tax questions from the retrieved rule base
// plus simplified calculations, personalized with the user's profile.
type TaxKnowledgeAgent struct {
	llm      Completer
	entries  knowledge.Repository
	embedder ai.Embedder // optional, nil disables vector retrieval
	log      *logger.Logger
}

// NewTaxKnowledgeAgent creates the tax knowledge specialist
func NewTaxKnowledgeAgent(llm Completer, entries knowledge.Repository, embedder ai.Embedder) *TaxKnowledgeAgent {
	return &TaxKnowledgeAgent{
		llm:      llm,
		entries:  entries,
		embedder: embedder,
		log:      logger.Get().With("agent", "tax_knowledge"),
	}
}

var _ agent.Agent = (*TaxKnowledgeAgent)(nil)

// Type implements agent.Agent
func (a *TaxKnowledgeAgent) Type() agent.Type { return agent.TypeTaxKnowledge }

// Handle retrieves matching rules, optionally runs an estimate, and asks the
// model to compose the answer from that material only
func (a *TaxKnowledgeAgent) Handle(ctx context.Context, in agent.Input) (*agent.Response, error) {
	retrieved := a.retrieve(ctx, in.Message)
	estimate := a.maybeEstimate(in)

	content, err := a.compose(ctx, in, retrieved, estimate)
	if err != nil {
		a.log.Warnw("answer composition failed, degrading to retrieved text", "error", err)
		content = fallbackAnswer(retrieved, estimate)
	}

	return &agent.Response{
		AgentType:  agent.TypeTaxKnowledge,
		Content:    content + adviceNote,
		Confidence: answerConfidence(retrieved, err),
		Reasoning:  retrievalReasoning(retrieved, estimate),
	}, nil
}

// retrieve merges keyword and vector hits, keyword hits first
func (a *TaxKnowledgeAgent) retrieve(ctx context.Context, query string) []knowledge.Entry {
	hits, err := a.entries.Search(ctx, query, retrievalLimit)
	if err != nil {
		a.log.Warnw("keyword retrieval failed", "error", err)
	}

	if a.embedder != nil && len(hits) < retrievalLimit {
		if vec, err := a.embedder.Embed(ctx, query); err == nil {
			vecHits, err := a.entries.SearchByEmbedding(ctx, vec, retrievalLimit)
			if err != nil {
				a.log.Warnw("vector retrieval failed", "error", err)
			} else {
				hits = mergeEntries(hits, vecHits, retrievalLimit)
			}
		}
	}
	return hits
}

func mergeEntries(primary, secondary []knowledge.Entry, limit int) []knowledge.Entry {
	seen := make(map[int]bool, len(primary))
	for _, e := range primary {
		seen[e.ID] = true
	}
	for _, e := range secondary {
		if len(primary) >= limit {
			break
		}
		if !seen[e.ID] {
			primary = append(primary, e)
			seen[e.ID] = true
		}
	}
	return primary
}

// maybeEstimate runs the simplified income tax calculation when the message
// asks for amounts and the profile carries an income
func (a *TaxKnowledgeAgent) maybeEstimate(in agent.Input) *taxdata.Estimate {
	if in.Profile == nil || in.Profile.AnnualIncome <= 0 {
		return nil
	}
	lower := strings.ToLower(in.Message)
	wantsNumbers := strings.Contains(lower, "how much") ||
		strings.Contains(lower, "wie viel") ||
		strings.Contains(lower, "estimate") ||
		strings.Contains(lower, "calculate") ||
		strings.Contains(lower, "berechne") ||
		strings.Contains(lower, "tax rate") ||
		strings.Contains(lower, "steuersatz")
	if !wantsNumbers {
		return nil
	}
	est := taxdata.EstimateIncomeTax(in.Profile.AnnualIncome, in.Profile.FilingStatus == "married_joint")
	return &est
}

func (a *TaxKnowledgeAgent) compose(
	ctx context.Context,
	in agent.Input,
	retrieved []knowledge.Entry,
	estimate *taxdata.Estimate,
) (string, error) {
	var sb strings.Builder

	sb.WriteString("User profile: ")
	sb.WriteString(in.Profile.Summary())
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(in.Message)

	if len(retrieved) > 0 {
		sb.WriteString("\n\nRELEVANT TAX RULES (use only these facts):\n")
		for _, e := range retrieved {
			sb.WriteString(fmt.Sprintf("\n## %s (%d)\n%s\n", e.Title, e.TaxYear, e.Body))
		}
	}

	if estimate != nil {
		sb.WriteString(fmt.Sprintf(`
CALCULATED ESTIMATE for gross income €%.0f:
- Tax-free allowance: €%.0f
- Taxable income: €%.0f
- Income tax: €%.0f
- Social contributions (approx.): €%.0f
- Net income: €%.0f
- Effective rate: %.1f%%, marginal rate: %.1f%%
`,
			estimate.GrossIncome, estimate.TaxFreeAllowance, estimate.TaxableIncome,
			estimate.TaxLiability, estimate.SocialContributions, estimate.NetIncome,
			estimate.EffectiveRate*100, estimate.MarginalRate*100))
	}

	sb.WriteString("\nAnswer the question using only the rules and figures above. Keep amounts exactly as given. If the material doesn't cover the question, say what you can and name what is missing.")

	out, err := a.llm.Complete(ctx, ai.ChatRequest{
		SystemPrompt: "You are a German tax knowledge assistant. You answer strictly from the provided rules and figures, in plain language, without inventing numbers.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: sb.String()},
		},
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty composition output")
	}
	return out, nil
}

// fallbackAnswer is deterministic: render the retrieved material directly
func fallbackAnswer(retrieved []knowledge.Entry, estimate *taxdata.Estimate) string {
	if len(retrieved) == 0 && estimate == nil {
		return "I couldn't look that up right now. Could you try asking again, or rephrase the question?"
	}

	var sb strings.Builder
	for i, e := range retrieved {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("**%s**\n%s", e.Title, e.Body))
	}
	if estimate != nil {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf(
			"Based on a gross income of €%.0f: roughly €%.0f income tax, €%.0f social contributions, leaving about €%.0f net (effective rate %.1f%%).",
			estimate.GrossIncome, estimate.TaxLiability, estimate.SocialContributions,
			estimate.NetIncome, estimate.EffectiveRate*100))
	}
	return sb.String()
}

func answerConfidence(retrieved []knowledge.Entry, composeErr error) float64 {
	conf := 0.6
	if len(retrieved) > 0 {
		conf = 0.85
	}
	if composeErr != nil {
		conf -= 0.2
	}
	return agent.ClampConfidence(conf)
}

func retrievalReasoning(retrieved []knowledge.Entry, estimate *taxdata.Estimate) string {
	titles := make([]string, 0, len(retrieved))
	for _, e := range retrieved {
		titles = append(titles, e.Title)
	}
	r := "answered from rule base"
	if len(titles) > 0 {
		r += ": " + strings.Join(titles, ", ")
	}
	if estimate != nil {
		r += "; included income tax estimate"
	}
	return r
}
