package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"steuerpilot/internal/domain/expense"
	"steuerpilot/pkg/errors"
)

// Compile-time check that we implement the interface
var _ expense.Repository = (*ExpenseRepository)(nil)

// ExpenseRepository implements expense.Repository using sqlx
type ExpenseRepository struct {
	db DBTX
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db DBTX) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	now := time.Now().UTC()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	query := `
		INSERT INTO expenses (id, user_id, description, amount, category, expense_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Description, e.Amount, e.Category, e.Date, e.CreatedAt, e.UpdatedAt,
	)
	return errors.Wrap(err, "create expense")
}

// GetByID retrieves an expense
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	var e expense.Expense

	query := `
		SELECT id, user_id, description, amount, category, expense_date, created_at, updated_at
		FROM expenses
		WHERE id = $1`

	err := r.db.GetContext(ctx, &e, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "expense not found: id=%s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get expense")
	}
	return &e, nil
}

// ListByUser returns the most recent limit expenses, newest first
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string, limit int) ([]expense.Expense, error) {
	var expenses []expense.Expense

	query := `
		SELECT id, user_id, description, amount, category, expense_date, created_at, updated_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &expenses, query, userID, limit); err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}
	return expenses, nil
}

// TotalByUser sums all expense amounts for a user
func (r *ExpenseRepository) TotalByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal

	query := `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return decimal.Zero, errors.Wrap(err, "total expenses")
	}
	return total, nil
}

// Update overwrites an existing expense
func (r *ExpenseRepository) Update(ctx context.Context, e *expense.Expense) error {
	e.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE expenses
		SET description = $2, amount = $3, category = $4, expense_date = $5, updated_at = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		e.ID, e.Description, e.Amount, e.Category, e.Date, e.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "update expense")
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "expense not found: id=%s", e.ID)
	}
	return nil
}

// Delete removes an expense owned by userID
func (r *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	query := `DELETE FROM expenses WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return errors.Wrap(err, "delete expense")
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "expense not found: id=%s", id)
	}
	return nil
}
