package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/models"
	"github.com/askdocs/askdocs/pkg/observability"
)

// payloadField is the single entry field carrying the JSON wire shape
// {"document_id": int, "content": string, "metadata": object}.
const payloadField = "payload"

// Queue publishes ingestion events and reports stream depth
type Queue struct {
	client *streamClient
	logger observability.Logger
}

// New connects to Redis and prepares the stream and consumer group
func New(ctx context.Context, cfg config.QueueConfig, logger observability.Logger) (*Queue, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	client, err := newStreamClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := client.ensureGroup(ctx); err != nil {
		_ = client.close()
		return nil, err
	}

	return &Queue{client: client, logger: logger}, nil
}

// Publish appends an ingestion event to the stream. The event carries a
// snapshot of the document content taken now; later edits to the row do
// not change what gets embedded. Returns after Redis has accepted the
// entry.
func (q *Queue) Publish(ctx context.Context, event models.IngestionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion event: %w", err)
	}

	id, err := q.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.client.cfg.Stream,
		Values: map[string]interface{}{payloadField: string(payload)},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to enqueue ingestion event: %w", err)
	}

	q.logger.Info("Document sent to queue", map[string]interface{}{
		"message_id":  id,
		"document_id": event.DocumentID,
	})

	return nil
}

// Depth returns the number of entries currently visible in the stream.
// Acknowledged entries are deleted, so depth tracks outstanding work.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.rdb.XLen(ctx, q.client.cfg.Stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read stream length: %w", err)
	}
	return n, nil
}

// Ping checks queue reachability
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection
func (q *Queue) Close() error {
	return q.client.close()
}

// Delivery is one unacknowledged message handed to a consumer. Exactly
// one of Ack or Nack must be called for each delivery.
type Delivery struct {
	MessageID string
	Payload   []byte

	consumer *Consumer
}

// Ack acknowledges the message after its effects have been durably
// written. The entry is removed from the stream.
func (d *Delivery) Ack(ctx context.Context) error {
	return d.consumer.ack(ctx, d.MessageID)
}

// Nack negatively acknowledges the message. With redeliver true a copy
// is appended back to the stream before the original is acked, so the
// event becomes visible again (transient fault). With redeliver false
// the message is dropped: redelivering a malformed payload can never
// succeed.
func (d *Delivery) Nack(ctx context.Context, redeliver bool) error {
	if redeliver {
		return d.consumer.requeue(ctx, d.MessageID, d.Payload)
	}
	return d.consumer.drop(ctx, d.MessageID)
}

// Consumer is a single queue-consumer handle: one unacknowledged
// message at a time (prefetch = 1), strictly sequential. Horizontal
// scale-out means more consumers, not more in-flight messages per
// consumer.
type Consumer struct {
	client *streamClient
	name   string
	logger observability.Logger
}

// NewConsumer creates a consumer with a process-unique name in the
// configured consumer group.
func (q *Queue) NewConsumer(logger observability.Logger) *Consumer {
	if logger == nil {
		logger = q.logger
	}
	return &Consumer{
		client: q.client,
		name:   "worker-" + uuid.NewString(),
		logger: logger,
	}
}

// Next blocks until a message is available or ctx is cancelled.
// Messages abandoned by dead consumers (pending longer than the
// configured reclaim idle time) are claimed before new ones are read.
func (c *Consumer) Next(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if d, ok := c.reclaim(ctx); ok {
			return d, nil
		}

		streams, err := c.client.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.client.cfg.Group,
			Consumer: c.name,
			Streams:  []string{c.client.cfg.Stream, ">"},
			Count:    1,
			Block:    c.client.cfg.BlockTimeout,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read from consumer group: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				return c.delivery(msg), nil
			}
		}
	}
}

// reclaim claims one message left pending by a disconnected consumer
func (c *Consumer) reclaim(ctx context.Context) (*Delivery, bool) {
	idle := c.client.cfg.ReclaimIdle
	if idle <= 0 {
		idle = 60 * time.Second
	}

	msgs, _, err := c.client.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.client.cfg.Stream,
		Group:    c.client.cfg.Group,
		Consumer: c.name,
		MinIdle:  idle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil || len(msgs) == 0 {
		return nil, false
	}

	c.logger.Warn("Reclaimed abandoned message", map[string]interface{}{
		"message_id": msgs[0].ID,
	})
	return c.delivery(msgs[0]), true
}

func (c *Consumer) delivery(msg redis.XMessage) *Delivery {
	var payload []byte
	if raw, ok := msg.Values[payloadField].(string); ok {
		payload = []byte(raw)
	}
	return &Delivery{MessageID: msg.ID, Payload: payload, consumer: c}
}

func (c *Consumer) ack(ctx context.Context, id string) error {
	if err := c.client.rdb.XAck(ctx, c.client.cfg.Stream, c.client.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", id, err)
	}
	if err := c.client.rdb.XDel(ctx, c.client.cfg.Stream, id).Err(); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}

// requeue appends the copy before acking the original: a crash between
// the two duplicates the event, which at-least-once permits.
func (c *Consumer) requeue(ctx context.Context, id string, payload []byte) error {
	err := c.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.client.cfg.Stream,
		Values: map[string]interface{}{payloadField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to requeue message %s: %w", id, err)
	}
	return c.ack(ctx, id)
}

func (c *Consumer) drop(ctx context.Context, id string) error {
	c.logger.Warn("Dropping message without redelivery", map[string]interface{}{
		"message_id": id,
	})
	return c.ack(ctx, id)
}

// ParseEvent decodes a delivery payload into the ingestion wire shape.
// A payload that fails to parse is a poison message; callers must nack
// without redelivery.
func ParseEvent(payload []byte) (models.IngestionEvent, error) {
	var event models.IngestionEvent
	if len(payload) == 0 {
		return event, errors.New("empty payload")
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("payload is not a valid ingestion event: %w", err)
	}
	if event.DocumentID == 0 || event.Content == "" {
		return event, errors.New("payload is missing document_id or content")
	}
	return event, nil
}
