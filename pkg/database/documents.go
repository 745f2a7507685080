package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/askdocs/askdocs/pkg/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// CreateDocument inserts a new document row and returns it with the
// store-assigned identifier and creation timestamp.
func (d *Database) CreateDocument(ctx context.Context, content string, metadata models.Metadata) (*models.Document, error) {
	if content == "" {
		return nil, errors.New("document content cannot be empty")
	}
	if metadata == nil {
		metadata = models.Metadata{}
	}

	var doc models.Document
	err := d.db.QueryRowxContext(ctx, `
		INSERT INTO documents (content, metadata)
		VALUES ($1, $2)
		RETURNING id, content, metadata, created_at
	`, content, metadata).StructScan(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return &doc, nil
}

// GetDocument fetches a document by identifier. Returns ErrNotFound
// when no row exists.
func (d *Database) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	err := d.db.GetContext(ctx, &doc, `
		SELECT id, content, metadata, created_at
		FROM documents
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}

	return &doc, nil
}

// ListDocuments returns documents ordered by identifier with
// offset/limit pagination. The limit is defaulted and capped.
func (d *Database) ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	docs := []models.Document{}
	err := d.db.SelectContext(ctx, &docs, `
		SELECT id, content, metadata, created_at
		FROM documents
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return docs, nil
}

// GetDocumentsByIDs fetches the documents whose identifiers appear in
// ids. Missing identifiers are skipped, not errors; the result order
// follows the input order.
func (d *Database) GetDocumentsByIDs(ctx context.Context, ids []int64) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	docs := []models.Document{}
	err := d.db.SelectContext(ctx, &docs, `
		SELECT id, content, metadata, created_at
		FROM documents
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get documents by ids: %w", err)
	}

	byID := make(map[int64]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	ordered := make([]models.Document, 0, len(docs))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ordered = append(ordered, doc)
		}
	}

	return ordered, nil
}
