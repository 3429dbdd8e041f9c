package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"steuerpilot/internal/domain/agent"
)

func TestPlanDropsOrchestratorWhenSpecialistsPresent(t *testing.T) {
	plan := Plan([]agent.Pick{
		{Agent: agent.TypeProfile, Confidence: 0.75},
		{Agent: agent.TypeTaxKnowledge, Confidence: 0.7},
		{Agent: agent.TypeOrchestrator, Confidence: 0.9},
	})

	assert.Equal(t, []agent.Type{agent.TypeProfile, agent.TypeTaxKnowledge}, plan)
}

func TestPlanKeepsLoneOrchestrator(t *testing.T) {
	plan := Plan([]agent.Pick{{Agent: agent.TypeOrchestrator, Confidence: 0.6}})
	assert.Equal(t, []agent.Type{agent.TypeOrchestrator}, plan)
}

func TestPlanDeduplicatesPreservingOrder(t *testing.T) {
	plan := Plan([]agent.Pick{
		{Agent: agent.TypeAction, Confidence: 0.95},
		{Agent: agent.TypeAction, Confidence: 0.8},
		{Agent: agent.TypeTaxKnowledge, Confidence: 0.7},
	})

	assert.Equal(t, []agent.Type{agent.TypeAction, agent.TypeTaxKnowledge}, plan)
}

func TestPlanDefaultsToOrchestrator(t *testing.T) {
	assert.Equal(t, []agent.Type{agent.TypeOrchestrator}, Plan(nil))
	assert.Equal(t, []agent.Type{agent.TypeOrchestrator}, Plan([]agent.Pick{{Agent: agent.Type("bogus")}}))
}
