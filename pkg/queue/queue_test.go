package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/models"
	"github.com/askdocs/askdocs/pkg/observability"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.QueueConfig{
		Addr:         mr.Addr(),
		Stream:       "document-ingest",
		Group:        "embedding-workers",
		BlockTimeout: 50 * time.Millisecond,
		ReclaimIdle:  time.Minute,
		PoolSize:     5,
	}

	q, err := New(context.Background(), cfg, observability.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	return q, mr
}

func TestPublishAndConsume(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	event := models.IngestionEvent{
		DocumentID: 42,
		Content:    "The sky is blue.",
		Metadata:   models.Metadata{"source": "test"},
	}
	require.NoError(t, q.Publish(ctx, event))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	consumer := q.NewConsumer(nil)
	delivery, err := consumer.Next(ctx)
	require.NoError(t, err)

	parsed, err := ParseEvent(delivery.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed.DocumentID)
	assert.Equal(t, "The sky is blue.", parsed.Content)
	assert.Equal(t, "test", parsed.Metadata["source"])
}

func TestAckRemovesMessage(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, models.IngestionEvent{DocumentID: 1, Content: "a"}))

	consumer := q.NewConsumer(nil)
	delivery, err := consumer.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, delivery.Ack(ctx))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestNackWithRedeliveryMakesMessageVisibleAgain(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, models.IngestionEvent{DocumentID: 7, Content: "retry me"}))

	consumer := q.NewConsumer(nil)
	delivery, err := consumer.Next(ctx)
	require.NoError(t, err)
	firstID := delivery.MessageID

	require.NoError(t, delivery.Nack(ctx, true))

	// The copy is a new stream entry and must be consumable again.
	redelivered, err := consumer.Next(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, redelivered.MessageID)

	parsed, err := ParseEvent(redelivered.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), parsed.DocumentID)
	assert.Equal(t, "retry me", parsed.Content)
}

func TestNackWithoutRedeliveryDropsMessage(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, models.IngestionEvent{DocumentID: 9, Content: "poison"}))

	consumer := q.NewConsumer(nil)
	delivery, err := consumer.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, delivery.Nack(ctx, false))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestConsumerStopsOnCancelledContext(t *testing.T) {
	q, _ := testQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	consumer := q.NewConsumer(nil)
	_, err := consumer.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseEvent(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"document_id": 3, "content": "hello", "metadata": {"k": "v"}}`))
		require.NoError(t, err)
		assert.Equal(t, int64(3), event.DocumentID)
		assert.Equal(t, "hello", event.Content)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseEvent([]byte("not json"))
		assert.Error(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"metadata": {}}`))
		assert.Error(t, err)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := ParseEvent(nil)
		assert.Error(t, err)
	})
}
