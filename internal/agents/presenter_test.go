package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
)

func result(t agent.Type, content string, conf float64) Result {
	return Result{
		Agent:    t,
		Response: &agent.Response{AgentType: t, Content: content, Confidence: conf},
		Elapsed:  10 * time.Millisecond,
	}
}

func TestCombineZeroResults(t *testing.T) {
	p := NewPresenter(&fakeLLM{})
	resp := p.Combine(context.Background(), nil, "anything", nil)

	assert.Equal(t, 0.0, resp.Confidence)
	assert.NotEmpty(t, resp.Content)
}

func TestCombineSingleResultIsVerbatim(t *testing.T) {
	content := "You spent €45.00 on 2024-03-01 for software.  "
	p := NewPresenter(&fakeLLM{}) // any LLM call would fail the test via fallback path

	resp := p.Combine(context.Background(), []Result{result(agent.TypeAction, content, 0.85)}, "what did I spend?", nil)

	assert.Equal(t, "You spent €45.00 on 2024-03-01 for software.", resp.Content)
	assert.Equal(t, agent.TypeAction, resp.AgentType)
	assert.Equal(t, 0.85, resp.Confidence)
}

func TestCombineConfidenceBound(t *testing.T) {
	p := NewPresenter(&fakeLLM{
		completeFn: func(_ ai.ChatRequest) (string, error) {
			return "merged answer", nil
		},
	})

	results := []Result{
		result(agent.TypeProfile, "income noted", 0.9),
		result(agent.TypeTaxKnowledge, "deductions listed", 0.7),
	}
	resp := p.Combine(context.Background(), results, "q", nil)

	assert.LessOrEqual(t, resp.Confidence, 0.9)
	assert.InDelta(t, 0.85, resp.Confidence, 0.001)
	assert.Equal(t, agent.TypeMulti, resp.AgentType)
}

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func TestCombineDoesNotInventNumbers(t *testing.T) {
	// The model echo includes only facts from the contributors
	p := NewPresenter(&fakeLLM{
		completeFn: func(req ai.ChatRequest) (string, error) {
			return "You spent €45.00 on 2024-03-01, and with income 60000 your lump sum covers €1230.", nil
		},
	})

	results := []Result{
		result(agent.TypeAction, "Recorded €45.00 on 2024-03-01.", 0.9),
		result(agent.TypeTaxKnowledge, "At income 60000 the employee lump sum is €1230.", 0.8),
	}
	resp := p.Combine(context.Background(), results, "what did I spend and what can I deduct?", nil)

	allowed := map[string]bool{}
	for _, r := range results {
		for _, n := range numberRe.FindAllString(r.Response.Content, -1) {
			allowed[n] = true
		}
	}
	for _, n := range numberRe.FindAllString(resp.Content, -1) {
		assert.True(t, allowed[n], "number %q not present in any contributor output", n)
	}
}

func TestCombineFallbackConcatenation(t *testing.T) {
	p := NewPresenter(&fakeLLM{
		completeFn: func(_ ai.ChatRequest) (string, error) {
			return "", fmt.Errorf("synthesis model down")
		},
	})

	results := []Result{
		result(agent.TypeProfile, "Income saved: €60000", 0.8),
		result(agent.TypeTaxKnowledge, "Commuter allowance is €0.30/km", 0.7),
	}
	resp := p.Combine(context.Background(), results, "q", nil)

	// The fallback must keep every agent's content under a labeled heading
	assert.Contains(t, resp.Content, "**Profile:**")
	assert.Contains(t, resp.Content, "Income saved: €60000")
	assert.Contains(t, resp.Content, "**Tax Knowledge:**")
	assert.Contains(t, resp.Content, "Commuter allowance is €0.30/km")
}

func TestCombineMergesMetadata(t *testing.T) {
	p := NewPresenter(&fakeLLM{
		completeFn: func(_ ai.ChatRequest) (string, error) { return "merged", nil },
	})

	a := result(agent.TypeProfile, "profile", 0.8)
	a.Response.Metadata = map[string]interface{}{
		agent.MetaProfileUpdated: true,
		agent.MetaMissingFields:  []string{"filing_status"},
		"source":                 "profile",
	}
	b := result(agent.TypeTaxKnowledge, "tax", 0.7)
	b.Response.Metadata = map[string]interface{}{
		agent.MetaRequiresFollowup: true,
		agent.MetaMissingFields:    []string{"filing_status", "annual_income"},
		"source":                   "tax",
	}

	resp := p.Combine(context.Background(), []Result{a, b}, "q", nil)
	md := resp.Metadata
	require.NotNil(t, md)

	assert.Equal(t, true, md[agent.MetaProfileUpdated])
	assert.Equal(t, true, md[agent.MetaRequiresFollowup])
	assert.ElementsMatch(t, []string{"filing_status", "annual_income"}, md[agent.MetaMissingFields])
	assert.Equal(t, "profile", md["source"], "first seen wins on colliding keys")
	assert.Equal(t, true, md[agent.MetaMerged])

	perAgent, ok := md[agent.MetaPerAgent].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, perAgent, "profile")
	assert.Contains(t, perAgent, "tax_knowledge")
}

func TestCombineAsksForConfirmationWhenPendingProposed(t *testing.T) {
	var prompt string
	p := NewPresenter(&fakeLLM{
		completeFn: func(req ai.ChatRequest) (string, error) {
			prompt = req.Messages[0].Content
			return "merged", nil
		},
	})

	a := result(agent.TypeAction, "Should I add this expense?", 0.8)
	a.Response.Metadata = map[string]interface{}{agent.MetaAwaitingConfirm: true}
	b := result(agent.TypeTaxKnowledge, "Laptops are deductible.", 0.7)

	p.Combine(context.Background(), []Result{a, b}, "q", nil)
	assert.Contains(t, prompt, "EXPENSE SUGGESTION DETECTED")
}

func TestMergedReasoningIsBounded(t *testing.T) {
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}
	a := result(agent.TypeProfile, "p", 0.8)
	a.Response.Reasoning = string(long)
	b := result(agent.TypeTaxKnowledge, "t", 0.7)
	b.Response.Reasoning = "short"

	joined := mergedReasoning([]Result{a, b})
	assert.LessOrEqual(t, len(joined), maxReasoningLen)
}

func TestTruncateBytesNeverSplitsARune(t *testing.T) {
	cases := []struct {
		s   string
		max int
	}{
		{strings.Repeat("a", 79) + "über", 80},
		{strings.Repeat("€", 40), 80},
		{"Werbungskostenpauschale für Bürogeräte", 30},
		{"short", 80},
	}
	for _, tc := range cases {
		got := truncateBytes(tc.s, tc.max)
		assert.LessOrEqual(t, len(got), tc.max)
		assert.True(t, utf8.ValidString(got), "truncating %q at %d", tc.s, tc.max)
		assert.True(t, strings.HasPrefix(tc.s, got))
	}
}
