package agents

import (
	"context"
	"time"

	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/session"
	"steuerpilot/internal/metrics"
	"steuerpilot/pkg/logger"
)

// Result is one agent's outcome within a turn
type Result struct {
	Agent    agent.Type
	Response *agent.Response
	Elapsed  time.Duration
}

// Executor runs planned agents strictly in order. Each agent's output is
// appended to the turn-scoped context so later agents in the plan can see it.
type Executor struct {
	registry map[agent.Type]agent.Agent
	timeout  time.Duration
	log      *logger.Logger
}

// NewExecutor creates an executor over the given agents
func NewExecutor(agentList []agent.Agent, perAgentTimeout time.Duration) *Executor {
	registry := make(map[agent.Type]agent.Agent, len(agentList))
	for _, a := range agentList {
		registry[a.Type()] = a
	}
	if perAgentTimeout <= 0 {
		perAgentTimeout = 45 * time.Second
	}
	return &Executor{
		registry: registry,
		timeout:  perAgentTimeout,
		log:      logger.Get().With("component", "executor"),
	}
}

// Execute runs the plan sequentially. A failing agent is replaced by a
// low-confidence fallback response; it never aborts the turn.
func (e *Executor) Execute(ctx context.Context, plan []agent.Type, in agent.Input) []Result {
	results := make([]Result, 0, len(plan))

	for _, agentType := range plan {
		a, ok := e.registry[agentType]
		if !ok {
			e.log.Errorw("planned agent not registered", "agent", agentType)
			continue
		}

		start := time.Now()
		resp, err := e.runOne(ctx, a, in)
		elapsed := time.Since(start)
		metrics.RecordAgentCall(string(agentType), elapsed, err)

		if err != nil {
			e.log.Errorw("agent execution failed",
				"agent", agentType,
				"elapsed", elapsed,
				"error", err,
			)
			resp = fallbackResponse(agentType)
		}

		if in.Context != nil {
			in.Context.AgentOutputs = append(in.Context.AgentOutputs, session.AgentOutput{
				Agent:    string(agentType),
				Content:  resp.Content,
				Metadata: resp.Metadata,
			})
		}

		results = append(results, Result{
			Agent:    agentType,
			Response: resp,
			Elapsed:  elapsed,
		})
	}

	return results
}

func (e *Executor) runOne(ctx context.Context, a agent.Agent, in agent.Input) (*agent.Response, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := a.Handle(runCtx, in)
	if err != nil {
		return nil, err
	}
	resp.Confidence = agent.ClampConfidence(resp.Confidence)
	return resp, nil
}

func fallbackResponse(t agent.Type) *agent.Response {
	return &agent.Response{
		AgentType:  t,
		Content:    "I ran into a problem handling part of your request. Could you try rephrasing it?",
		Confidence: 0.1,
		Reasoning:  "internal failure, degraded reply",
	}
}
