package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/knowledge"
	"steuerpilot/internal/domain/profile"
)

type memKnowledgeRepo struct {
	entries []knowledge.Entry
}

func (r *memKnowledgeRepo) Search(_ context.Context, query string, limit int) ([]knowledge.Entry, error) {
	lower := strings.ToLower(query)
	var out []knowledge.Entry
	for _, e := range r.entries {
		if len(out) >= limit {
			break
		}
		if strings.Contains(lower, strings.ToLower(e.Title)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memKnowledgeRepo) SearchByEmbedding(_ context.Context, _ []float32, _ int) ([]knowledge.Entry, error) {
	return nil, nil
}

func (r *memKnowledgeRepo) Upsert(_ context.Context, _ *knowledge.Entry, _ []float32) error {
	return nil
}

func TestTaxKnowledgeFallbackRendersRetrievedRules(t *testing.T) {
	repo := &memKnowledgeRepo{entries: []knowledge.Entry{
		{ID: 1, Title: "Werbungskosten", Body: "Work-related expenses reduce taxable income. The flat allowance is €1,230.", TaxYear: 2024},
	}}
	a := NewTaxKnowledgeAgent(&fakeLLM{}, repo, nil) // model unavailable

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "Can I deduct Werbungskosten?",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Werbungskosten")
	assert.Contains(t, resp.Content, "€1,230", "retrieved figures pass through unchanged")
	assert.Contains(t, resp.Content, "Steuerberater", "advice note always appended")
	assert.InDelta(t, 0.65, resp.Confidence, 0.001, "retrieval hit minus composition failure")
}

func TestTaxKnowledgeEstimateRequiresIncomeAndIntent(t *testing.T) {
	a := NewTaxKnowledgeAgent(&fakeLLM{}, &memKnowledgeRepo{}, nil)

	// Income on file and the message asks for amounts
	est := a.maybeEstimate(agent.Input{
		Message: "How much tax will I pay?",
		Profile: &profile.Profile{AnnualIncome: 60000},
	})
	require.NotNil(t, est)
	assert.Equal(t, 60000.0, est.GrossIncome)

	// No income, no estimate
	assert.Nil(t, a.maybeEstimate(agent.Input{
		Message: "How much tax will I pay?",
		Profile: &profile.Profile{},
	}))

	// Income but no numeric intent
	assert.Nil(t, a.maybeEstimate(agent.Input{
		Message: "What are Werbungskosten?",
		Profile: &profile.Profile{AnnualIncome: 60000},
	}))
}

func TestTaxKnowledgeComposedAnswerKeepsModelOutput(t *testing.T) {
	repo := &memKnowledgeRepo{entries: []knowledge.Entry{
		{ID: 1, Title: "Grundfreibetrag", Body: "The basic allowance for 2024 is €11,604.", TaxYear: 2024},
	}}
	llm := &fakeLLM{
		completeFn: func(req ai.ChatRequest) (string, error) {
			assert.Contains(t, req.Messages[0].Content, "RELEVANT TAX RULES")
			return "The Grundfreibetrag for 2024 is €11,604; income below it is tax-free.", nil
		},
	}
	a := NewTaxKnowledgeAgent(llm, repo, nil)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "What is the Grundfreibetrag?",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "€11,604")
	assert.InDelta(t, 0.85, resp.Confidence, 0.001)
	assert.Contains(t, resp.Reasoning, "Grundfreibetrag")
}

func TestTaxKnowledgeNoHitsDegradesGracefully(t *testing.T) {
	a := NewTaxKnowledgeAgent(&fakeLLM{}, &memKnowledgeRepo{}, nil)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "Something entirely unrelated",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
	assert.Less(t, resp.Confidence, 0.6)
}

func TestMergeEntriesDeduplicates(t *testing.T) {
	primary := []knowledge.Entry{{ID: 1}, {ID: 2}}
	secondary := []knowledge.Entry{{ID: 2}, {ID: 3}, {ID: 4}}

	got := mergeEntries(primary, secondary, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, 3, got[2].ID)
}
