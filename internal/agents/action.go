package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/expense"
	"steuerpilot/internal/domain/session"
	"steuerpilot/internal/metrics"
	expensesvc "steuerpilot/internal/services/expense"
	"steuerpilot/pkg/logger"
)

var declineRe = regexp.MustCompile(`(?i)^\s*(?:no|nope|nein|nah|don't|do not|cancel|forget it|lass es)[\s.!,]*$`)

// ActionAgent is the only writer of expense records. It negotiates a decision
// contract with the model per message and drives the pending-expense
// confirmation protocol across turns.
type ActionAgent struct {
	llm      Completer
	expenses *expensesvc.Service
	log      *logger.Logger
}

// NewActionAgent creates the expense specialist
func NewActionAgent(llm Completer, expenses *expensesvc.Service) *ActionAgent {
	return &ActionAgent{
		llm:      llm,
		expenses: expenses,
		log:      logger.Get().With("agent", "action"),
	}
}

var _ agent.Agent = (*ActionAgent)(nil)

// Type implements agent.Agent
func (a *ActionAgent) Type() agent.Type { return agent.TypeAction }

// Handle resolves an open pending expense first, then falls through to the
// per-message decision
func (a *ActionAgent) Handle(ctx context.Context, in agent.Input) (*agent.Response, error) {
	if in.Context != nil && in.Context.PendingExpense != nil {
		if IsConfirmation(in.Message) && AsksExpenseConfirmation(lastAssistantMessage(in.History)) {
			return a.confirmPending(ctx, in)
		}
		if declineRe.MatchString(in.Message) {
			in.Context.ClearPending()
			return &agent.Response{
				AgentType:  agent.TypeAction,
				Content:    "Alright, I won't add it. Just mention it again if you change your mind.",
				Confidence: 0.9,
				Reasoning:  "pending expense declined and discarded",
			}, nil
		}
		// Not a clear yes or no: the slot stays open, the message is
		// handled on its own merits below.
	}

	decision := a.decide(ctx, in)
	return a.act(ctx, in, decision)
}

func (a *ActionAgent) confirmPending(ctx context.Context, in agent.Input) (*agent.Response, error) {
	pending := in.Context.PendingExpense
	created, err := a.expenses.ConfirmPending(ctx, in.UserID, pending)
	if err != nil {
		a.log.Errorw("pending expense confirmation failed", "user_id", in.UserID, "error", err)
		in.Context.ClearPending()
		return &agent.Response{
			AgentType:  agent.TypeAction,
			Content:    "I couldn't save that expense. Could you tell me the details once more?",
			Confidence: 0.3,
			Reasoning:  "confirmed expense failed to persist, slot discarded",
		}, nil
	}

	in.Context.ClearPending()
	metrics.PendingExpenses.WithLabelValues("confirmed").Inc()

	return &agent.Response{
		AgentType: agent.TypeAction,
		Content: fmt.Sprintf("Done! I've added **%s** (€%s, category: %s, date: %s) to your expenses.",
			created.Description, created.Amount.StringFixed(2), created.Category, created.Date),
		Confidence: 0.95,
		Reasoning:  "pending expense confirmed and saved",
		SuggestedActions: []agent.SuggestedAction{
			{Action: ActionReadExpenses, Description: "Show my tracked expenses"},
		},
	}, nil
}

const actionDecisionPrompt = `You decide what a German tax assistant should do with an expense-related message. Return JSON:
{"action": "add_expense|suggest_expense|read_expenses|update_expense|delete_expense|general_guidance",
 "confidence": 0.0,
 "reasoning": "...",
 "expense_data": {"description": "...", "amount": 0.0, "category": "office_equipment|software|travel|education|communication|vehicle|meals|home_office|other", "date": "YYYY-MM-DD or empty"}}
Use "suggest_expense" when the user mentions a purchase without asking to record it. Use "add_expense" only when they explicitly ask to record it AND the amount is known. Leave expense_data fields empty when the message does not state them.`

func (a *ActionAgent) decide(ctx context.Context, in agent.Input) Decision {
	raw, err := a.llm.CompleteJSON(ctx, ai.ChatRequest{
		SystemPrompt: actionDecisionPrompt,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: in.Message},
		},
		Temperature: 0.1,
		MaxTokens:   300,
	})
	if err == nil {
		var d Decision
		if jsonErr := json.Unmarshal(raw, &d); jsonErr == nil {
			// The model often misses amounts written as "800€"; patch
			// gaps from the deterministic extractor.
			if d.ExpenseData.Amount <= 0 || d.ExpenseData.Date == "" {
				fallback := ExtractExpenseData(in.Message)
				if d.ExpenseData.Amount <= 0 {
					d.ExpenseData.Amount = fallback.Amount
				}
				if d.ExpenseData.Date == "" {
					d.ExpenseData.Date = fallback.Date
				}
				if d.ExpenseData.Description == "" {
					d.ExpenseData.Description = fallback.Description
				}
			}
			d.Normalize()
			return d
		}
	}
	a.log.Warnw("action decision via model failed, using heuristics", "error", err)
	d := HeuristicDecision(in.Message)
	d.Normalize()
	return d
}

func (a *ActionAgent) act(ctx context.Context, in agent.Input, d Decision) (*agent.Response, error) {
	switch d.Action {
	case ActionAddExpense:
		return a.addExpense(ctx, in, d)
	case ActionSuggestExpense:
		return a.suggestExpense(in, d), nil
	case ActionReadExpenses:
		return a.readExpenses(ctx, in)
	case ActionUpdateExpense, ActionDeleteExpense:
		return a.askWhichExpense(ctx, in, d)
	default:
		return a.generalGuidance(ctx, in, d)
	}
}

func (a *ActionAgent) addExpense(ctx context.Context, in agent.Input, d Decision) (*agent.Response, error) {
	pending := pendingFromDecision(d)
	created, err := a.expenses.ConfirmPending(ctx, in.UserID, pending)
	if err != nil {
		a.log.Errorw("direct expense add failed", "user_id", in.UserID, "error", err)
		return &agent.Response{
			AgentType:  agent.TypeAction,
			Content:    "I couldn't save that expense right now. Please try again in a moment.",
			Confidence: 0.3,
			Reasoning:  "expense persistence failed",
		}, nil
	}

	return &agent.Response{
		AgentType: agent.TypeAction,
		Content: fmt.Sprintf("Added **%s** (€%s, category: %s, date: %s) to your expenses.",
			created.Description, created.Amount.StringFixed(2), created.Category, created.Date),
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
	}, nil
}

func (a *ActionAgent) suggestExpense(in agent.Input, d Decision) *agent.Response {
	if d.ExpenseData.Amount <= 0 {
		return &agent.Response{
			AgentType:  agent.TypeAction,
			Content:    "That sounds like it could be a deductible expense. What did it cost? Then I can track it for you.",
			Confidence: 0.6,
			Reasoning:  "purchase mentioned without an amount",
			Metadata: map[string]interface{}{
				agent.MetaRequiresFollowup: true,
			},
		}
	}

	pending := pendingFromDecision(d)
	if in.Context != nil {
		transition := "opened"
		if in.Context.PendingExpense != nil {
			transition = "overwritten"
		}
		metrics.PendingExpenses.WithLabelValues(transition).Inc()
		in.Context.PendingExpense = pending
	}

	return &agent.Response{
		AgentType:  agent.TypeAction,
		Content:    a.expenses.Suggest(pending),
		Confidence: d.Confidence,
		Reasoning:  "suggested expense, awaiting confirmation: " + d.Reasoning,
		Metadata: map[string]interface{}{
			agent.MetaPendingExpense:  pending,
			agent.MetaAwaitingConfirm: true,
		},
	}
}

func (a *ActionAgent) readExpenses(ctx context.Context, in agent.Input) (*agent.Response, error) {
	summary, err := a.expenses.Summary(ctx, in.UserID)
	if err != nil {
		a.log.Errorw("expense listing failed", "user_id", in.UserID, "error", err)
		return &agent.Response{
			AgentType:  agent.TypeAction,
			Content:    "I couldn't load your expenses right now. Please try again in a moment.",
			Confidence: 0.3,
			Reasoning:  "expense store read failed",
		}, nil
	}

	return &agent.Response{
		AgentType:  agent.TypeAction,
		Content:    summary,
		Confidence: 0.9,
		Reasoning:  "listed stored expenses",
	}, nil
}

// askWhichExpense lists recent records so the user can name the one to change
func (a *ActionAgent) askWhichExpense(ctx context.Context, in agent.Input, d Decision) (*agent.Response, error) {
	summary, err := a.expenses.Summary(ctx, in.UserID)
	if err != nil {
		summary = ""
	}
	verb := "update"
	if d.Action == ActionDeleteExpense {
		verb = "delete"
	}

	content := fmt.Sprintf("Which expense would you like to %s?", verb)
	if summary != "" {
		content = summary + "\n\n" + content
	}
	return &agent.Response{
		AgentType:  agent.TypeAction,
		Content:    content,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Metadata: map[string]interface{}{
			agent.MetaRequiresFollowup: true,
		},
	}, nil
}

func (a *ActionAgent) generalGuidance(ctx context.Context, in agent.Input, d Decision) (*agent.Response, error) {
	out, err := a.llm.Complete(ctx, ai.ChatRequest{
		SystemPrompt: "You help a German taxpayer manage deductible expenses. Answer briefly. If they describe a purchase, explain whether it is typically deductible and offer to track it.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: in.Message},
		},
		Temperature: 0.4,
		MaxTokens:   400,
	})
	if err != nil {
		return &agent.Response{
			AgentType:  agent.TypeAction,
			Content:    "I can track expenses for you. Tell me what you bought and what it cost, and I'll take care of the rest.",
			Confidence: 0.4,
			Reasoning:  "guidance model unavailable, canned reply",
		}, nil
	}

	return &agent.Response{
		AgentType:  agent.TypeAction,
		Content:    strings.TrimSpace(out),
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
	}, nil
}

func pendingFromDecision(d Decision) *session.PendingExpense {
	category := d.ExpenseData.Category
	if category == "" {
		category = expense.GuessCategory(d.ExpenseData.Description)
	}
	return &session.PendingExpense{
		Description: d.ExpenseData.Description,
		Amount:      decimal.NewFromFloat(d.ExpenseData.Amount),
		Category:    category,
		Date:        d.ExpenseData.Date,
		Confidence:  d.Confidence,
	}
}
