package agents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/expense"
	"steuerpilot/internal/domain/session"
	expensesvc "steuerpilot/internal/services/expense"
)

type memExpenseRepo struct {
	created []expense.Expense
}

func (m *memExpenseRepo) Create(_ context.Context, e *expense.Expense) error {
	e.ID = uuid.New()
	m.created = append(m.created, *e)
	return nil
}

func (m *memExpenseRepo) GetByID(_ context.Context, id uuid.UUID) (*expense.Expense, error) {
	for i := range m.created {
		if m.created[i].ID == id {
			return &m.created[i], nil
		}
	}
	return nil, assert.AnError
}

func (m *memExpenseRepo) ListByUser(_ context.Context, userID string, limit int) ([]expense.Expense, error) {
	var out []expense.Expense
	for _, e := range m.created {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memExpenseRepo) TotalByUser(_ context.Context, userID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range m.created {
		if e.UserID == userID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (m *memExpenseRepo) Update(_ context.Context, _ *expense.Expense) error { return nil }

func (m *memExpenseRepo) Delete(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func newActionFixture() (*ActionAgent, *memExpenseRepo) {
	repo := &memExpenseRepo{}
	svc := expensesvc.NewService(repo, nil)
	return NewActionAgent(&fakeLLM{}, svc), repo // model calls fail, heuristics take over
}

func TestActionAgentSuggestsThenConfirms(t *testing.T) {
	a, repo := newActionFixture()
	sessCtx := session.NewContext()

	// Turn 1: purchase mention opens a pending slot, nothing persisted yet
	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "I bought a laptop for €800 on 2024-05-01 for work",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)
	require.NotNil(t, sessCtx.PendingExpense)
	assert.Contains(t, resp.Content, "Should I add this expense?")
	assert.Contains(t, resp.Content, "€800.00")
	assert.Equal(t, true, resp.Metadata[agent.MetaAwaitingConfirm])
	assert.Empty(t, repo.created)

	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "I bought a laptop for €800 on 2024-05-01 for work"},
		{Role: conversation.RoleAssistant, Content: resp.Content},
	}

	// Turn 2: explicit confirmation persists and clears the slot
	resp, err = a.Handle(context.Background(), agent.Input{
		Message: "yes, add it",
		UserID:  "u1",
		Context: sessCtx,
		History: history,
	})
	require.NoError(t, err)
	assert.Nil(t, sessCtx.PendingExpense, "slot must be cleared after confirmation")
	assert.Contains(t, resp.Content, "added")

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, "u1", created.UserID)
	assert.True(t, created.Amount.Equal(decimal.NewFromInt(800)), "got %s", created.Amount)
	assert.Equal(t, "2024-05-01", created.Date)
	assert.Equal(t, expense.CategoryOfficeEquipment, created.Category)
}

func TestActionAgentKeepsPendingOnUnrelatedMessage(t *testing.T) {
	a, repo := newActionFixture()
	sessCtx := session.NewContext()

	_, err := a.Handle(context.Background(), agent.Input{
		Message: "I bought a laptop for €800 on 2024-05-01 for work",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)
	require.NotNil(t, sessCtx.PendingExpense)
	before := *sessCtx.PendingExpense

	// Ambiguous follow-up: not a yes, not a no
	_, err = a.Handle(context.Background(), agent.Input{
		Message: "show my expenses",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)
	require.NotNil(t, sessCtx.PendingExpense, "slot must survive unrelated turns")
	assert.Equal(t, before.Description, sessCtx.PendingExpense.Description)
	assert.Empty(t, repo.created, "no implicit confirmation")
}

func TestActionAgentDeclineClearsPending(t *testing.T) {
	a, repo := newActionFixture()
	sessCtx := session.NewContext()

	_, err := a.Handle(context.Background(), agent.Input{
		Message: "I bought a monitor for €250",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)
	require.NotNil(t, sessCtx.PendingExpense)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "no",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)
	assert.Nil(t, sessCtx.PendingExpense)
	assert.Empty(t, repo.created)
	assert.Contains(t, resp.Content, "won't add it")
}

func TestActionAgentNewSuggestionOverwritesPending(t *testing.T) {
	a, _ := newActionFixture()
	sessCtx := session.NewContext()

	_, err := a.Handle(context.Background(), agent.Input{
		Message: "I bought a laptop for €800",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)

	_, err = a.Handle(context.Background(), agent.Input{
		Message: "I also bought a printer for €150",
		UserID:  "u1",
		Context: sessCtx,
	})
	require.NoError(t, err)

	require.NotNil(t, sessCtx.PendingExpense)
	assert.True(t, sessCtx.PendingExpense.Amount.Equal(decimal.NewFromInt(150)), "last proposal wins")
}

func TestActionAgentListsExpenses(t *testing.T) {
	a, repo := newActionFixture()
	repo.created = []expense.Expense{
		{ID: uuid.New(), UserID: "u1", Description: "laptop", Amount: decimal.NewFromInt(800), Category: expense.CategoryOfficeEquipment, Date: "2024-05-01"},
	}

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "show my expenses",
		UserID:  "u1",
		Context: session.NewContext(),
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "laptop")
	assert.Contains(t, resp.Content, "800")
}
