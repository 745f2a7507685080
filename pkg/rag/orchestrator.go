// Package rag answers natural-language questions by retrieving the
// most similar stored documents and conditioning the generation
// gateway on their content.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/askdocs/askdocs/pkg/models"
	"github.com/askdocs/askdocs/pkg/observability"
)

// NoInformationAnswer is returned verbatim when retrieval finds nothing
const NoInformationAnswer = "I don't have enough information to answer that question."

// Embedder converts the question to a query vector
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the nearest stored documents for a query vector
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]models.SimilarityResult, error)
}

// Generator produces the answer text; it degrades internally and never
// fails.
type Generator interface {
	Generate(ctx context.Context, question string, contexts []string, modelOverride string) string
}

// DocumentResolver resolves similarity hits back to full documents
type DocumentResolver interface {
	GetDocumentsByIDs(ctx context.Context, ids []int64) ([]models.Document, error)
}

// Orchestrator runs the linear query pipeline:
// embed -> search -> generate -> resolve sources.
type Orchestrator struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	documents DocumentResolver
	logger    observability.Logger
	metrics   observability.MetricsClient
}

// New creates a query orchestrator
func New(embedder Embedder, searcher Searcher, generator Generator, documents DocumentResolver, logger observability.Logger, metrics observability.MetricsClient) *Orchestrator {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}
	return &Orchestrator{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		documents: documents,
		logger:    logger,
		metrics:   metrics,
	}
}

// Answer resolves a query to an answer with cited sources. Embedding
// and search failures propagate to the caller; generation failures do
// not, the gateway degrades on its own.
func (o *Orchestrator) Answer(ctx context.Context, req models.QueryRequest) (*models.RAGAnswer, error) {
	if req.Query == "" {
		return nil, errors.New("query cannot be empty")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = models.DefaultTopK
	}

	queryVector, err := o.embedder.GenerateEmbedding(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := o.searcher.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar documents: %w", err)
	}

	if len(results) == 0 {
		o.logger.Info("No similar documents found", map[string]interface{}{
			"query_len": len(req.Query),
		})
		o.metrics.RecordEvent("query", "no_results")
		return &models.RAGAnswer{
			Answer:  NoInformationAnswer,
			Sources: []models.Document{},
		}, nil
	}

	contexts := make([]string, len(results))
	ids := make([]int64, len(results))
	for i, r := range results {
		contexts[i] = r.Content
		ids[i] = r.DocumentID
	}

	answer := o.generator.Generate(ctx, req.Query, contexts, req.Model)

	sources, err := o.documents.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source documents: %w", err)
	}

	o.metrics.IncrementCounter("query.answered", 1)
	o.logger.Info("Query answered", map[string]interface{}{
		"results": len(results),
		"sources": len(sources),
	})

	return &models.RAGAnswer{Answer: answer, Sources: sources}, nil
}
