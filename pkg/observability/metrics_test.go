package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	c, ok := NewMetricsClient().(*metricsClient)
	require.True(t, ok)

	c.IncrementCounter("worker.documents_embedded", 1)
	c.IncrementCounter("worker.documents_embedded", 1)
	c.IncrementCounter("query.answered", 3)

	assert.Equal(t, 2.0, c.CounterValue("worker.documents_embedded"))
	assert.Equal(t, 3.0, c.CounterValue("query.answered"))
	assert.Equal(t, 0.0, c.CounterValue("never.seen"))
}

func TestMetricsRecordEvent(t *testing.T) {
	c := NewMetricsClient().(*metricsClient)

	c.RecordEvent("worker", "requeued")
	c.RecordEvent("worker", "requeued")

	assert.Equal(t, 2.0, c.CounterValue("worker.requeued"))
}

func TestMetricsRecordDuration(t *testing.T) {
	c := NewMetricsClient().(*metricsClient)

	c.RecordDuration("worker.embed_duration", 50*time.Millisecond)
	c.RecordDuration("worker.embed_duration", 25*time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 75*time.Millisecond, c.durations["worker.embed_duration"])
}
