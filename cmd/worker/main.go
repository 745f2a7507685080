// Command worker consumes ingestion events and computes embeddings.
// Run more worker processes to scale out; each handles one message at
// a time.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/database"
	"github.com/askdocs/askdocs/pkg/embedding"
	"github.com/askdocs/askdocs/pkg/observability"
	"github.com/askdocs/askdocs/pkg/queue"
	"github.com/askdocs/askdocs/pkg/vectorstore"
	"github.com/askdocs/askdocs/pkg/worker"
)

func main() {
	logger := observability.NewLogger("embedding-worker")
	metrics := observability.NewMetricsClient()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database, logger.WithPrefix("database"))
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		_ = db.Close()
	}()

	q, err := queue.New(ctx, cfg.Queue, logger.WithPrefix("queue"))
	if err != nil {
		logger.Fatal("Failed to connect to queue", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		_ = q.Close()
	}()

	embedClient := embedding.NewOpenAIClient(cfg.Embedding, logger.WithPrefix("embedding"))
	vectors := vectorstore.New(db.DB(), logger.WithPrefix("vectorstore"))

	source := worker.NewQueueSource(q.NewConsumer(logger.WithPrefix("consumer")))
	w := worker.New(source, embedClient, vectors, logger, metrics)

	if err := w.Run(ctx); err != nil {
		logger.Fatal("Worker exited with error", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Worker stopped", nil)
}
