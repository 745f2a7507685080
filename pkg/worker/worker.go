// Package worker consumes ingestion events, drives the embedding
// gateway, persists vectors, and settles each message according to the
// outcome: ack on success, redeliver on transient failure, drop on
// poison payloads.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/askdocs/askdocs/pkg/observability"
	"github.com/askdocs/askdocs/pkg/queue"
)

// Message is one in-flight queue delivery
type Message interface {
	ID() string
	Body() []byte
	Ack(ctx context.Context) error
	Nack(ctx context.Context, redeliver bool) error
}

// Source yields messages one at a time; it blocks until a message is
// available or the context is cancelled.
type Source interface {
	Next(ctx context.Context) (Message, error)
}

// Embedder converts text to an embedding vector
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorSaver persists one embedding row
type VectorSaver interface {
	Save(ctx context.Context, documentID int64, vector []float32) error
}

// Worker processes ingestion events strictly sequentially: each message
// is handled to completion, including its ack or nack, before the next
// one is fetched. Scale out by running more worker processes.
type Worker struct {
	source   Source
	embedder Embedder
	store    VectorSaver
	logger   observability.Logger
	metrics  observability.MetricsClient
}

// New creates a worker over the given source and collaborators
func New(source Source, embedder Embedder, store VectorSaver, logger observability.Logger, metrics observability.MetricsClient) *Worker {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}
	return &Worker{
		source:   source,
		embedder: embedder,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run consumes messages until ctx is cancelled. Cancellation stops
// message delivery; an in-flight message still settles its ack or nack
// before Run returns. Transient fetch failures are retried with
// exponential backoff; the error is returned only once the backoff
// policy gives up.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started, waiting for messages", nil)

	retry := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	fetchFailures := 0
	for {
		msg, err := w.source.Next(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			w.logger.Info("Worker stopping", nil)
			return nil
		}
		if err != nil {
			// The elapsed-time budget counts from the start of the burst,
			// not from worker start.
			if fetchFailures == 0 {
				retry.Reset()
			}
			fetchFailures++
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				return err
			}
			w.logger.Warn("Failed to fetch message, retrying", map[string]interface{}{
				"error": err.Error(),
				"wait":  wait.String(),
			})
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				w.logger.Info("Worker stopping", nil)
				return nil
			}
			continue
		}
		fetchFailures = 0

		w.handle(ctx, msg)
	}
}

// handle runs one message through the state machine:
// received -> embedding -> persisting -> acked on success;
// gateway/store failure -> nack with redelivery;
// unparseable payload -> nack without redelivery.
func (w *Worker) handle(ctx context.Context, msg Message) {
	// Settlement must complete even when ctx was cancelled mid-message.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	event, err := queue.ParseEvent(msg.Body())
	if err != nil {
		w.logger.Error("Poison message, dropping without redelivery", map[string]interface{}{
			"message_id": msg.ID(),
			"error":      err.Error(),
		})
		w.metrics.RecordEvent("worker", "poison_messages")
		if nackErr := msg.Nack(settleCtx, false); nackErr != nil {
			w.logger.Error("Failed to drop poison message", map[string]interface{}{
				"message_id": msg.ID(),
				"error":      nackErr.Error(),
			})
		}
		return
	}

	w.logger.Info("Processing document", map[string]interface{}{
		"message_id":  msg.ID(),
		"document_id": event.DocumentID,
	})

	start := time.Now()
	vector, err := w.embedder.GenerateEmbedding(ctx, event.Content)
	if err != nil {
		w.requeue(settleCtx, msg, event.DocumentID, "embedding failed", err)
		return
	}

	if err := w.store.Save(ctx, event.DocumentID, vector); err != nil {
		w.requeue(settleCtx, msg, event.DocumentID, "vector store write failed", err)
		return
	}

	if err := msg.Ack(settleCtx); err != nil {
		// The embedding is durable; redelivery would only duplicate it,
		// which at-least-once already permits.
		w.logger.Error("Failed to ack processed message", map[string]interface{}{
			"message_id":  msg.ID(),
			"document_id": event.DocumentID,
			"error":       err.Error(),
		})
		return
	}

	w.metrics.IncrementCounter("worker.documents_embedded", 1)
	w.metrics.RecordDuration("worker.embed_duration", time.Since(start))
	w.logger.Info("Document embedded", map[string]interface{}{
		"message_id":  msg.ID(),
		"document_id": event.DocumentID,
		"dimensions":  len(vector),
	})
}

// requeue nacks with redelivery requested; transient faults are assumed
// retried until an operator intervenes.
func (w *Worker) requeue(ctx context.Context, msg Message, documentID int64, reason string, cause error) {
	w.logger.Error("Transient failure, requeueing message", map[string]interface{}{
		"message_id":  msg.ID(),
		"document_id": documentID,
		"reason":      reason,
		"error":       cause.Error(),
	})
	w.metrics.IncrementCounter("worker.requeued_messages", 1)
	if err := msg.Nack(ctx, true); err != nil {
		w.logger.Error("Failed to requeue message", map[string]interface{}{
			"message_id": msg.ID(),
			"error":      err.Error(),
		})
	}
}
