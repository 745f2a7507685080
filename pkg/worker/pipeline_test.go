package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/models"
	"github.com/askdocs/askdocs/pkg/observability"
	"github.com/askdocs/askdocs/pkg/queue"
)

// syncSaver is safe to poll while the worker goroutine writes
type syncSaver struct {
	mu    sync.Mutex
	saved map[int64][]float32
}

func (s *syncSaver) Save(ctx context.Context, documentID int64, v []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[int64][]float32{}
	}
	s.saved[documentID] = v
	return nil
}

func (s *syncSaver) vector(documentID int64) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[documentID]
}

// Exercises the worker against a real stream-backed queue: publish an
// event, run the worker until the vector lands, and check the queue
// drained.
func TestWorkerDrainsQueue(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.QueueConfig{
		Addr:         mr.Addr(),
		Stream:       "document-ingest",
		Group:        "embedding-workers",
		BlockTimeout: 20 * time.Millisecond,
		ReclaimIdle:  time.Minute,
		PoolSize:     5,
	}

	q, err := queue.New(context.Background(), cfg, observability.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, models.IngestionEvent{
		DocumentID: 11,
		Content:    "The sky is blue.",
		Metadata:   models.Metadata{"source": "e2e"},
	}))

	embedder := &fakeEmbedder{vector: []float32{0.1, 0.9}}
	saver := &syncSaver{}
	w := New(NewQueueSource(q.NewConsumer(nil)), embedder, saver, observability.NewNoopLogger(), nil)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx) }()

	require.Eventually(t, func() bool {
		return saver.vector(11) != nil
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []float32{0.1, 0.9}, saver.vector(11))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}
