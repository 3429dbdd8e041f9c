package agents

import (
	"steuerpilot/internal/domain/agent"
)

// Plan turns ordered router picks into the agents to run this turn.
// Orchestrator never runs alongside specialists: when at least one specialist
// is picked, the specialists own the answer.
func Plan(picks []agent.Pick) []agent.Type {
	var plan []agent.Type
	seen := make(map[agent.Type]bool)
	hasSpecialist := false

	for _, p := range picks {
		if !agent.Known(p.Agent) || seen[p.Agent] {
			continue
		}
		seen[p.Agent] = true
		plan = append(plan, p.Agent)
		if p.Agent != agent.TypeOrchestrator {
			hasSpecialist = true
		}
	}

	if hasSpecialist {
		filtered := plan[:0]
		for _, t := range plan {
			if t != agent.TypeOrchestrator {
				filtered = append(filtered, t)
			}
		}
		plan = filtered
	}

	if len(plan) == 0 {
		plan = []agent.Type{agent.TypeOrchestrator}
	}
	return plan
}
