package profile

import "context"

// Repository defines the interface for profile data access
type Repository interface {
	// Get retrieves a profile by user id, errors.ErrNotFound when absent
	Get(ctx context.Context, userID string) (*Profile, error)

	// Create inserts a new profile
	Create(ctx context.Context, p *Profile) error

	// Update overwrites an existing profile
	Update(ctx context.Context, p *Profile) error

	// Upsert creates the profile if missing, updates it otherwise
	Upsert(ctx context.Context, p *Profile) error
}
