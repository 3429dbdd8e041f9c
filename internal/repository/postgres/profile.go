package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"steuerpilot/internal/domain/profile"
	"steuerpilot/pkg/errors"
)

// Compile-time check that we implement the interface
var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository using sqlx
type ProfileRepository struct {
	db DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves a profile by user id
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	var goals pq.StringArray

	query := `
		SELECT user_id, employment_status, filing_status, annual_income, dependents,
			   tax_goals, risk_tolerance, notes, conversation_count, last_interaction,
			   created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`

	row := r.db.QueryRowContext(ctx, query, userID)
	err := row.Scan(
		&p.UserID, &p.EmploymentStatus, &p.FilingStatus, &p.AnnualIncome, &p.Dependents,
		&goals, &p.RiskTolerance, &p.Notes, &p.ConversationCount, &p.LastInteraction,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "profile not found: user_id=%s", userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get profile")
	}

	p.TaxGoals = []string(goals)
	return &p, nil
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO user_profiles (
			user_id, employment_status, filing_status, annual_income, dependents,
			tax_goals, risk_tolerance, notes, conversation_count, last_interaction,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.EmploymentStatus, p.FilingStatus, p.AnnualIncome, p.Dependents,
		pq.StringArray(p.TaxGoals), p.RiskTolerance, p.Notes, p.ConversationCount,
		p.LastInteraction, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "create profile")
}

// Update overwrites an existing profile
func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE user_profiles
		SET employment_status = $2, filing_status = $3, annual_income = $4,
			dependents = $5, tax_goals = $6, risk_tolerance = $7, notes = $8,
			conversation_count = $9, last_interaction = $10, updated_at = $11
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query,
		p.UserID, p.EmploymentStatus, p.FilingStatus, p.AnnualIncome, p.Dependents,
		pq.StringArray(p.TaxGoals), p.RiskTolerance, p.Notes, p.ConversationCount,
		p.LastInteraction, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "update profile")
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "profile not found: user_id=%s", p.UserID)
	}
	return nil
}

// Upsert creates the profile if missing, updates it otherwise
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO user_profiles (
			user_id, employment_status, filing_status, annual_income, dependents,
			tax_goals, risk_tolerance, notes, conversation_count, last_interaction,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (user_id) DO UPDATE SET
			employment_status = EXCLUDED.employment_status,
			filing_status = EXCLUDED.filing_status,
			annual_income = EXCLUDED.annual_income,
			dependents = EXCLUDED.dependents,
			tax_goals = EXCLUDED.tax_goals,
			risk_tolerance = EXCLUDED.risk_tolerance,
			notes = EXCLUDED.notes,
			conversation_count = EXCLUDED.conversation_count,
			last_interaction = EXCLUDED.last_interaction,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.EmploymentStatus, p.FilingStatus, p.AnnualIncome, p.Dependents,
		pq.StringArray(p.TaxGoals), p.RiskTolerance, p.Notes, p.ConversationCount,
		p.LastInteraction, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "upsert profile")
}
