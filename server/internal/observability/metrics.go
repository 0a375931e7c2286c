package observability

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects request counts and latencies per API operation.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	operations map[string]*OperationMetrics

	// Most recent durations, oldest first.
	durations    []time.Duration
	maxDurations int
}

// OperationMetrics holds the counters of one operation.
type OperationMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a new metrics collector keeping the last maxDurations
// latencies for percentiles.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operations:   make(map[string]*OperationMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a finished request.
func (m *Metrics) RecordRequest(operation string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	if failed {
		m.requestFailed.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)

	om, ok := m.operations[operation]
	if !ok {
		om = &OperationMetrics{}
		m.operations[operation] = om
	}
	om.executionCount.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if failed {
		om.errorCount.Add(1)
	}
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.executionCount.Load()
		snap := &OperationSnapshot{
			ExecutionCount: count,
			ErrorCount:     om.errorCount.Load(),
		}
		if count > 0 {
			snap.AverageDurationMs = om.totalDuration.Load() / count
		}
		ops[name] = snap
	}

	sorted := slices.Clone(m.durations)
	slices.Sort(sorted)

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		P50LatencyMs:  percentile(sorted, 50).Milliseconds(),
		P95LatencyMs:  percentile(sorted, 95).Milliseconds(),
		Operations:    ops,
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                         `json:"request_total"`
	RequestFailed int64                         `json:"request_failed"`
	P50LatencyMs  int64                         `json:"p50_latency_ms"`
	P95LatencyMs  int64                         `json:"p95_latency_ms"`
	Operations    map[string]*OperationSnapshot `json:"operations"`
}

// OperationSnapshot represents metrics for a specific operation.
type OperationSnapshot struct {
	ExecutionCount    int64 `json:"execution_count"`
	ErrorCount        int64 `json:"error_count"`
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
