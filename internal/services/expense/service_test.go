package expense

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/domain/expense"
	"steuerpilot/internal/domain/session"
	"steuerpilot/pkg/errors"
)

type stubRepo struct {
	created []expense.Expense
	stored  map[uuid.UUID]expense.Expense
	updated []expense.Expense
}

func newStubRepo() *stubRepo {
	return &stubRepo{stored: make(map[uuid.UUID]expense.Expense)}
}

func (r *stubRepo) Create(_ context.Context, e *expense.Expense) error {
	e.ID = uuid.New()
	r.created = append(r.created, *e)
	r.stored[e.ID] = *e
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*expense.Expense, error) {
	e, ok := r.stored[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &e, nil
}

func (r *stubRepo) ListByUser(_ context.Context, userID string, limit int) ([]expense.Expense, error) {
	var out []expense.Expense
	for _, e := range r.created {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubRepo) TotalByUser(_ context.Context, userID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.created {
		if e.UserID == userID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *stubRepo) Update(_ context.Context, e *expense.Expense) error {
	r.updated = append(r.updated, *e)
	return nil
}

func (r *stubRepo) Delete(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func TestSuggestPromptFormat(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	got := svc.Suggest(&session.PendingExpense{
		Description: "laptop",
		Amount:      decimal.NewFromInt(800),
		Category:    expense.CategoryOfficeEquipment,
	})
	assert.Contains(t, got, "**laptop**")
	assert.Contains(t, got, "€800.00")
	assert.Contains(t, got, "Should I add this expense?")
}

func TestConfirmPendingValidation(t *testing.T) {
	svc := NewService(newStubRepo(), nil)

	_, err := svc.ConfirmPending(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, errors.ErrNoPendingExpense)

	_, err = svc.ConfirmPending(context.Background(), "u1", &session.PendingExpense{
		Description: "mystery",
		Amount:      decimal.Zero,
	})
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

func TestConfirmPendingFillsDefaults(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	created, err := svc.ConfirmPending(context.Background(), "u1", &session.PendingExpense{
		Description: "software license",
		Amount:      decimal.NewFromFloat(49.99),
	})
	require.NoError(t, err)
	assert.Equal(t, expense.CategoryOther, created.Category)
	assert.NotEmpty(t, created.Date, "missing date defaults to today")
	require.Len(t, repo.created, 1)
	assert.Equal(t, "u1", repo.created[0].UserID)
}

func TestSummaryFormatsListAndTotal(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)
	require.NoError(t, repo.Create(context.Background(), &expense.Expense{
		UserID: "u1", Description: "laptop", Amount: decimal.NewFromInt(800),
		Category: expense.CategoryOfficeEquipment, Date: "2024-05-01",
	}))
	require.NoError(t, repo.Create(context.Background(), &expense.Expense{
		UserID: "u1", Description: "train ticket", Amount: decimal.NewFromFloat(29.50),
		Category: expense.CategoryTravel, Date: "2024-05-03",
	}))

	got, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, got, "**laptop**")
	assert.Contains(t, got, "€800.00")
	assert.Contains(t, got, "**train ticket**")
	assert.Contains(t, got, "€29.50")
	assert.Contains(t, got, "Total tracked: €829.50")
}

func TestFormatAmountKeepsTrailingZeros(t *testing.T) {
	cases := []struct {
		amount decimal.Decimal
		want   string
	}{
		{decimal.NewFromInt(800), "800.00"},
		{decimal.NewFromFloat(29.5), "29.50"},
		{decimal.NewFromFloat(829.5), "829.50"},
		{decimal.NewFromFloat(1050.5), "1,050.50"},
		{decimal.NewFromFloat(0.99), "0.99"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatAmount(tc.amount), "amount %s", tc.amount)
	}
}

func TestSummaryEmptyState(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	got, err := svc.Summary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Contains(t, got, "no tracked expenses")
}

func TestUpdateRejectsForeignExpense(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)
	e := &expense.Expense{UserID: "owner", Description: "desk", Amount: decimal.NewFromInt(120)}
	require.NoError(t, repo.Create(context.Background(), e))

	err := svc.Update(context.Background(), "intruder", &expense.Expense{ID: e.ID, UserID: "intruder"})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	assert.Empty(t, repo.updated)
}
