// Package queue implements the durable ingestion channel between
// document submission and the embedding workers, on top of Redis
// Streams with a consumer group. Delivery is at-least-once; ordering
// is FIFO only relative to a single consumer.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/observability"
)

// streamClient wraps the Redis connection shared by publishers and
// consumers of one stream.
type streamClient struct {
	rdb    *redis.Client
	cfg    config.QueueConfig
	logger observability.Logger
}

func newStreamClient(cfg config.QueueConfig, logger observability.Logger) (*streamClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.RetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis", map[string]interface{}{
		"addr":   cfg.Addr,
		"stream": cfg.Stream,
	})

	return &streamClient{rdb: rdb, cfg: cfg, logger: logger}, nil
}

// ensureGroup creates the consumer group, and the stream with it, if
// either does not exist yet.
func (c *streamClient) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}

func (c *streamClient) close() error {
	return c.rdb.Close()
}
