package expense

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for expense data access.
// Only the action agent writes expense records.
type Repository interface {
	// Create inserts a new expense
	Create(ctx context.Context, e *Expense) error

	// GetByID retrieves an expense, errors.ErrNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)

	// ListByUser returns the most recent limit expenses for a user,
	// newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]Expense, error)

	// TotalByUser sums all expense amounts for a user
	TotalByUser(ctx context.Context, userID string) (decimal.Decimal, error)

	// Update overwrites an existing expense
	Update(ctx context.Context, e *Expense) error

	// Delete removes an expense owned by userID
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}
