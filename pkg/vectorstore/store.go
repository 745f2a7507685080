// Package vectorstore persists embedding vectors in Postgres with the
// pgvector extension and answers nearest-neighbor queries by cosine
// similarity.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/askdocs/askdocs/pkg/models"
	"github.com/askdocs/askdocs/pkg/observability"
)

// Store provides pgvector save and search operations. Each operation
// opens its own transactional scope; nothing is shared between
// concurrent calls beyond the connection pool.
type Store struct {
	db     *sqlx.DB
	logger observability.Logger
}

// New creates a vector store over the given connection pool
func New(db *sqlx.DB, logger observability.Logger) *Store {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Store{db: db, logger: logger}
}

// Save writes one embedding row atomically. On failure the transaction
// rolls back and the error is returned for the caller to nack.
func (s *Store) Save(ctx context.Context, documentID int64, vector []float32) error {
	if len(vector) == 0 {
		return errors.New("embedding vector cannot be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO embeddings (document_id, embedding)
		VALUES ($1, $2::vector)
	`, documentID, formatVector(vector))
	if err != nil {
		return fmt.Errorf("failed to store embedding for document %d: %w", documentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embedding for document %d: %w", documentID, err)
	}

	s.logger.Debug("Saved embedding", map[string]interface{}{
		"document_id": documentID,
		"dimensions":  len(vector),
	})

	return nil
}

// Search returns at most k documents ordered by descending cosine
// similarity to the query vector, computed as 1 - cosine distance.
// An empty store yields an empty slice, never an error. Tie order is
// store-native and must not be assumed stable.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.SimilarityResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if k <= 0 {
		return []models.SimilarityResult{}, nil
	}

	results := []models.SimilarityResult{}
	err := s.db.SelectContext(ctx, &results, `
		SELECT
			d.id,
			d.content,
			d.metadata,
			1 - (e.embedding <=> $1::vector) AS similarity
		FROM embeddings e
		JOIN documents d ON e.document_id = d.id
		ORDER BY similarity DESC
		LIMIT $2
	`, formatVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}

	return results, nil
}

// formatVector renders a vector in pgvector's text format: [f1,f2,...]
func formatVector(vector []float32) string {
	elements := make([]string, len(vector))
	for i, v := range vector {
		elements[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(elements, ",") + "]"
}
