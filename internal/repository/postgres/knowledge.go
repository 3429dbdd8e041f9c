package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"steuerpilot/internal/domain/knowledge"
	"steuerpilot/pkg/errors"
)

// Compile-time check that we implement the interface
var _ knowledge.Repository = (*KnowledgeRepository)(nil)

// KnowledgeRepository implements knowledge.Repository using sqlx and pgvector
type KnowledgeRepository struct {
	db DBTX
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db DBTX) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// Search returns entries matching the query by keyword, best first. Matching
// is keyword overlap against the keywords array plus a title ILIKE fallback.
func (r *KnowledgeRepository) Search(ctx context.Context, query string, limit int) ([]knowledge.Entry, error) {
	words := tokenize(query)
	if len(words) == 0 {
		return nil, nil
	}

	sqlQuery := `
		SELECT id, topic, title, body, tax_year, keywords, created_at,
			   cardinality(ARRAY(SELECT UNNEST(keywords) INTERSECT SELECT UNNEST($1::text[]))) AS score
		FROM tax_knowledge
		WHERE keywords && $1::text[] OR title ILIKE '%' || $2 || '%'
		ORDER BY score DESC, tax_year DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, sqlQuery, pq.StringArray(words), words[0], limit)
	if err != nil {
		return nil, errors.Wrap(err, "search knowledge")
	}
	defer func() { _ = rows.Close() }()

	var entries []knowledge.Entry
	for rows.Next() {
		var e knowledge.Entry
		var keywords pq.StringArray
		var score int
		if err := rows.Scan(&e.ID, &e.Topic, &e.Title, &e.Body, &e.TaxYear, &keywords, &e.CreatedAt, &score); err != nil {
			return nil, errors.Wrap(err, "scan knowledge entry")
		}
		e.Keywords = []string(keywords)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SearchByEmbedding returns entries nearest to the query vector by cosine distance
func (r *KnowledgeRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]knowledge.Entry, error) {
	vec := pgvector.NewVector(embedding)

	sqlQuery := `
		SELECT id, topic, title, body, tax_year, keywords, created_at
		FROM tax_knowledge
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, sqlQuery, vec, limit)
	if err != nil {
		return nil, errors.Wrap(err, "search knowledge by embedding")
	}
	defer func() { _ = rows.Close() }()

	var entries []knowledge.Entry
	for rows.Next() {
		var e knowledge.Entry
		var keywords pq.StringArray
		if err := rows.Scan(&e.ID, &e.Topic, &e.Title, &e.Body, &e.TaxYear, &keywords, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan knowledge entry")
		}
		e.Keywords = []string(keywords)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert inserts or replaces an entry keyed by (topic, title)
func (r *KnowledgeRepository) Upsert(ctx context.Context, e *knowledge.Entry, embedding []float32) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var vec interface{}
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}

	query := `
		INSERT INTO tax_knowledge (topic, title, body, tax_year, keywords, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (topic, title) DO UPDATE SET
			body = EXCLUDED.body,
			tax_year = EXCLUDED.tax_year,
			keywords = EXCLUDED.keywords,
			embedding = COALESCE(EXCLUDED.embedding, tax_knowledge.embedding)`

	_, err := r.db.ExecContext(ctx, query,
		e.Topic, e.Title, e.Body, e.TaxYear, pq.StringArray(e.Keywords), vec, e.CreatedAt,
	)
	return errors.Wrap(err, "upsert knowledge entry")
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if len(f) > 2 {
			words = append(words, f)
		}
	}
	return words
}
