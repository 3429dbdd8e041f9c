package expense

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"steuerpilot/internal/domain/expense"
	"steuerpilot/internal/domain/session"
	"steuerpilot/internal/events"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

const listLimit = 5

// Service manages expense records on behalf of the action agent
type Service struct {
	repo      expense.Repository
	publisher *events.Publisher
	log       *logger.Logger
}

// NewService creates a new expense service
func NewService(repo expense.Repository, publisher *events.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       logger.Get().With("service", "expense"),
	}
}

// Suggest formats a confirmation prompt for a proposed expense. The caller
// stores the pending slot in the session context; nothing is persisted yet.
func (s *Service) Suggest(pending *session.PendingExpense) string {
	return fmt.Sprintf(
		"I think you want to track: **%s** (€%s, category: %s). Should I add this expense?",
		pending.Description,
		pending.Amount.StringFixed(2),
		pending.Category,
	)
}

// ConfirmPending persists the pending expense and returns the created record
func (s *Service) ConfirmPending(ctx context.Context, userID string, pending *session.PendingExpense) (*expense.Expense, error) {
	if pending == nil {
		return nil, errors.ErrNoPendingExpense
	}
	if pending.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrapf(errors.ErrInvalidAmount, "amount=%s", pending.Amount)
	}

	e := &expense.Expense{
		UserID:      userID,
		Description: pending.Description,
		Amount:      pending.Amount,
		Category:    pending.Category,
		Date:        pending.Date,
	}
	if e.Category == "" {
		e.Category = expense.CategoryOther
	}
	if e.Date == "" {
		e.Date = time.Now().UTC().Format("2006-01-02")
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.publisher.PublishExpenseCreated(ctx, events.ExpenseCreated{
		ExpenseID:   e.ID.String(),
		UserID:      userID,
		Description: e.Description,
		Amount:      e.Amount.StringFixed(2),
		Category:    e.Category,
		Date:        e.Date,
		Timestamp:   time.Now().UTC(),
	})

	s.log.Infow("expense created",
		"user_id", userID,
		"amount", e.Amount.StringFixed(2),
		"category", e.Category,
	)
	return e, nil
}

// Summary renders the most recent expenses with a running total
func (s *Service) Summary(ctx context.Context, userID string) (string, error) {
	items, err := s.repo.ListByUser(ctx, userID, listLimit)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "You have no tracked expenses yet. Tell me about a purchase and I can add it for you.", nil
	}

	total, err := s.repo.TotalByUser(ctx, userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Your recent expenses:\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- **%s**: €%s (%s, %s)\n",
			item.Description,
			formatAmount(item.Amount),
			item.Category,
			item.Date,
		))
	}
	sb.WriteString(fmt.Sprintf("\nTotal tracked: €%s", formatAmount(total)))
	return sb.String(), nil
}

// formatAmount renders an amount with thousands separators and exactly two
// decimals, trailing zeros included.
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	dot := strings.IndexByte(fixed, '.')
	whole, err := strconv.ParseInt(fixed[:dot], 10, 64)
	if err != nil {
		return fixed
	}
	return humanize.Comma(whole) + fixed[dot:]
}

// Update overwrites an expense owned by userID
func (s *Service) Update(ctx context.Context, userID string, e *expense.Expense) error {
	existing, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return errors.Wrapf(errors.ErrUnauthorized, "expense %s not owned by user", e.ID)
	}
	return s.repo.Update(ctx, e)
}

// Delete removes an expense owned by userID
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}
