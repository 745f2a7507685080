// Command server runs the HTTP API: document submission and listing,
// the query endpoint, and health checks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdocs/askdocs/pkg/api"
	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/database"
	"github.com/askdocs/askdocs/pkg/embedding"
	"github.com/askdocs/askdocs/pkg/generation"
	"github.com/askdocs/askdocs/pkg/observability"
	"github.com/askdocs/askdocs/pkg/queue"
	"github.com/askdocs/askdocs/pkg/rag"
	"github.com/askdocs/askdocs/pkg/vectorstore"
)

func main() {
	logger := observability.NewLogger("api-server")
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

	// The generation key falls back to the embedding key when unset;
	// the first deployment used one OpenAI account for both.
	genCfg := cfg.Generation
	if genCfg.APIKey == "" {
		genCfg.APIKey = cfg.Embedding.APIKey
	}
	genClient := generation.NewOpenAIClient(genCfg, logger.WithPrefix("generation"))

	vectors := vectorstore.New(db.DB(), logger.WithPrefix("vectorstore"))
	orchestrator := rag.New(embedClient, vectors, genClient, db, logger.WithPrefix("rag"), metrics)

	server := api.NewServer(cfg.API, api.Deps{
		Store:       db,
		Publisher:   q,
		Query:       orchestrator,
		DBHealth:    db,
		QueueHealth: q,
		QueueDepth:  q,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("API server failed", map[string]interface{}{"error": err.Error()})
		}
	case <-ctx.Done():
		logger.Info("Shutting down API server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown did not complete cleanly", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}
}
