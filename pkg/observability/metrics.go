package observability

import (
	"sync"
	"time"
)

// MetricsClient records operation counters and durations. The default
// implementation keeps totals in memory; deployments scrape them via
// the health endpoint or replace the client entirely.
type MetricsClient interface {
	IncrementCounter(name string, value float64)
	RecordDuration(name string, duration time.Duration)
	RecordEvent(source, eventType string)
}

type metricsClient struct {
	mu        sync.Mutex
	counters  map[string]float64
	durations map[string]time.Duration
}

// NewMetricsClient creates a new in-memory metrics client
func NewMetricsClient() MetricsClient {
	return &metricsClient{
		counters:  make(map[string]float64),
		durations: make(map[string]time.Duration),
	}
}

// IncrementCounter increments a counter metric by a given value
func (m *metricsClient) IncrementCounter(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

// RecordDuration accumulates a duration metric
func (m *metricsClient) RecordDuration(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[name] += duration
}

// RecordEvent records an event occurrence as a counter
func (m *metricsClient) RecordEvent(source, eventType string) {
	m.IncrementCounter(source+"."+eventType, 1)
}

// CounterValue returns the current value of a counter. Intended for
// tests and diagnostics.
func (m *metricsClient) CounterValue(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// NoopMetricsClient discards all metrics
type NoopMetricsClient struct{}

// NewNoopMetricsClient creates a metrics client that does nothing
func NewNoopMetricsClient() MetricsClient { return &NoopMetricsClient{} }

// IncrementCounter implements MetricsClient.IncrementCounter
func (m *NoopMetricsClient) IncrementCounter(name string, value float64) {}

// RecordDuration implements MetricsClient.RecordDuration
func (m *NoopMetricsClient) RecordDuration(name string, duration time.Duration) {}

// RecordEvent implements MetricsClient.RecordEvent
func (m *NoopMetricsClient) RecordEvent(source, eventType string) {}
