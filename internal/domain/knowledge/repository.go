package knowledge

import "context"

// Repository defines the interface for tax knowledge retrieval
type Repository interface {
	// Search returns entries matching the query by keyword, best first
	Search(ctx context.Context, query string, limit int) ([]Entry, error)

	// SearchByEmbedding returns entries nearest to the query vector
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]Entry, error)

	// Upsert inserts or replaces an entry with an optional embedding
	Upsert(ctx context.Context, e *Entry, embedding []float32) error
}
