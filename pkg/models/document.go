// Package models defines the shared data shapes: documents, embeddings,
// ingestion events, and the API request/response envelopes.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is the schema-less key-value envelope attached to documents.
// It marshals to JSONB in Postgres and to a plain JSON object on the wire.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB columns
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSONB columns
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata source type %T", src)
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Document is a stored free-text document. Rows are created once at
// submission time and never mutated afterwards.
type Document struct {
	ID        int64     `json:"id" db:"id"`
	Content   string    `json:"content" db:"content"`
	Metadata  Metadata  `json:"metadata" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Embedding is a stored vector for a document. Redelivery can produce
// more than one row per document; last write wins on search ties.
type Embedding struct {
	ID         int64     `json:"id" db:"id"`
	DocumentID int64     `json:"document_id" db:"document_id"`
	Vector     []float32 `json:"vector" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// IngestionEvent is the queue wire shape. Content and metadata are
// snapshots taken at enqueue time; the worker embeds what was seen,
// not what the row holds later.
type IngestionEvent struct {
	DocumentID int64    `json:"document_id"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata"`
}

// SimilarityResult is one ranked hit from a vector search. Similarity
// is 1 - cosine distance, in [-1, 1]. Never persisted.
type SimilarityResult struct {
	DocumentID int64    `json:"document_id" db:"id"`
	Content    string   `json:"content" db:"content"`
	Metadata   Metadata `json:"metadata" db:"metadata"`
	Similarity float64  `json:"similarity" db:"similarity"`
}

// RAGAnswer is the final answer plus the documents whose content fed it
type RAGAnswer struct {
	Answer  string     `json:"answer"`
	Sources []Document `json:"sources"`
}
