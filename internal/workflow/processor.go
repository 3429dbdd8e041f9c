package workflow

import (
	"context"
	"time"

	"steuerpilot/internal/agents"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/internal/events"
	"steuerpilot/internal/metrics"
	"steuerpilot/internal/domain/session"
	clickhouserepo "steuerpilot/internal/repository/clickhouse"
	"steuerpilot/internal/services/learning"
	"steuerpilot/internal/services/memory"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

const historyLimit = 10

// Result is the outward reply for one processed user turn
type Result struct {
	Content          string                  `json:"content"`
	Confidence       float64                 `json:"confidence"`
	Reasoning        string                  `json:"reasoning,omitempty"`
	SuggestedActions []agent.SuggestedAction `json:"suggested_actions,omitempty"`
	Metadata         map[string]interface{}  `json:"metadata,omitempty"`
	ConversationID   string                  `json:"conversation_id"`
}

// Processor owns the per-turn pipeline: persist, route, plan, execute,
// synthesize, persist the reply, update session state, fire side effects.
type Processor struct {
	router    *agents.Router
	executor  *agents.Executor
	presenter *agents.Presenter

	memory   *memory.Service
	learning *learning.Service
	profiles profile.Repository

	publisher *events.Publisher
	turns     *clickhouserepo.TurnRepository // optional analytics sink

	log *logger.Logger
}

// NewProcessor creates the message processor
func NewProcessor(
	router *agents.Router,
	executor *agents.Executor,
	presenter *agents.Presenter,
	memorySvc *memory.Service,
	learningSvc *learning.Service,
	profiles profile.Repository,
	publisher *events.Publisher,
	turns *clickhouserepo.TurnRepository,
) *Processor {
	return &Processor{
		router:    router,
		executor:  executor,
		presenter: presenter,
		memory:    memorySvc,
		learning:  learningSvc,
		profiles:  profiles,
		publisher: publisher,
		turns:     turns,
		log:       logger.Get().With("component", "processor"),
	}
}

// ProcessMessage runs one user turn end to end. The user message is persisted
// before any agent runs so no input is lost on downstream failure.
func (p *Processor) ProcessMessage(ctx context.Context, message, sessionID, userID string) (*Result, error) {
	start := time.Now()

	conv, err := p.memory.GetOrCreateConversation(ctx, sessionID, userID)
	if err != nil {
		metrics.RecordTurn("none", time.Since(start), err)
		return nil, errors.Wrap(err, "open conversation")
	}

	// Context first: a cache-miss rehydration counts durable messages, so it
	// must run before this turn's user message lands.
	sessCtx := p.memory.GetContext(ctx, sessionID, conv)

	if err := p.memory.AppendMessage(ctx, conv, sessionID, conversation.RoleUser, message); err != nil {
		metrics.RecordTurn("none", time.Since(start), err)
		return nil, errors.Wrap(err, "persist user message")
	}

	history := p.memory.RecentHistory(ctx, sessionID, conv, historyLimit)
	prof := p.loadProfile(ctx, userID)

	picks := p.router.SelectAgents(ctx, message, prof, sessCtx, history)
	plan := agents.Plan(picks)

	in := agent.Input{
		Message:   message,
		UserID:    userID,
		SessionID: sessionID,
		Profile:   prof,
		Context:   sessCtx,
		History:   history,
	}
	results := p.executor.Execute(ctx, plan, in)

	final := p.presenter.Combine(ctx, results, message, history)

	if err := p.memory.AppendMessage(ctx, conv, sessionID, conversation.RoleAssistant, final.Content); err != nil {
		// The reply still reaches the user; only its persistence failed
		p.log.Errorw("assistant message persistence failed", "session_id", sessionID, "error", err)
	}

	p.updateContext(ctx, sessionID, sessCtx, message, final)
	p.sideEffects(conv, sessionID, userID, message, final, sessCtx, plan, time.Since(start))

	metrics.RecordTurn(string(final.AgentType), time.Since(start), nil)

	return &Result{
		Content:          final.Content,
		Confidence:       final.Confidence,
		Reasoning:        final.Reasoning,
		SuggestedActions: final.SuggestedActions,
		Metadata:         final.Metadata,
		ConversationID:   conv.ID.String(),
	}, nil
}

func (p *Processor) loadProfile(ctx context.Context, userID string) *profile.Profile {
	prof, err := p.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			p.log.Warnw("profile load failed", "user_id", userID, "error", err)
		}
		return nil
	}
	return prof
}

// updateContext writes the turn's outcome back into the rolling session state
func (p *Processor) updateContext(
	ctx context.Context,
	sessionID string,
	sessCtx *session.Context,
	message string,
	final *agent.Response,
) {
	sessCtx.MessageCount += 2
	sessCtx.LastAgent = string(final.AgentType)
	sessCtx.LastTopic = learning.ClassifyTopic(message)
	if sessCtx.ConversationStage == "initial" {
		sessCtx.ConversationStage = "active"
	}

	sessCtx.RequiresFollowup = false
	sessCtx.MissingFields = nil
	if final.Metadata != nil {
		if b, ok := final.Metadata[agent.MetaRequiresFollowup].(bool); ok {
			sessCtx.RequiresFollowup = b
		}
		if fields, ok := final.Metadata[agent.MetaMissingFields].([]string); ok {
			sessCtx.MissingFields = fields
		}
	}

	if err := p.memory.SaveContext(ctx, sessionID, sessCtx); err != nil {
		p.log.Warnw("context save failed", "session_id", sessionID, "error", err)
	}
}

// sideEffects runs everything the user does not wait for: titles, learning
// summaries, analytics, events. Detached from the request context.
func (p *Processor) sideEffects(
	conv *conversation.Conversation,
	sessionID, userID, message string,
	final *agent.Response,
	sessCtx *session.Context,
	plan []agent.Type,
	elapsed time.Duration,
) {
	profileUpdated := false
	if final.Metadata != nil {
		if b, ok := final.Metadata[agent.MetaProfileUpdated].(bool); ok {
			profileUpdated = b
		}
	}
	messageCount := sessCtx.MessageCount

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		p.learning.MaybeTitle(ctx, conv, messageCount, message)

		if learning.ShouldLearn(messageCount, profileUpdated) {
			history := p.memory.RecentHistory(ctx, sessionID, conv, historyLimit)
			p.learning.Learn(ctx, userID, history)
		}

		agentsRun := make([]string, 0, len(plan))
		for _, t := range plan {
			agentsRun = append(agentsRun, string(t))
		}

		p.publisher.PublishTurn(ctx, events.ConversationTurn{
			SessionID:      sessionID,
			UserID:         userID,
			ConversationID: conv.ID.String(),
			AgentType:      string(final.AgentType),
			AgentsRun:      agentsRun,
			Confidence:     final.Confidence,
			DurationMS:     elapsed.Milliseconds(),
			Timestamp:      time.Now().UTC(),
		})

		if p.turns != nil {
			if err := p.turns.Record(ctx, clickhouserepo.TurnRecord{
				SessionID:  sessionID,
				UserID:     userID,
				AgentType:  string(final.AgentType),
				AgentsRun:  agentsRun,
				Confidence: final.Confidence,
				DurationMS: elapsed.Milliseconds(),
				Timestamp:  time.Now().UTC(),
			}); err != nil {
				p.log.Warnw("turn analytics record failed", "error", err)
			}
		}
	}()
}
