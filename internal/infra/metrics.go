package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed       atomic.Uint64
	ticksSkipped         atomic.Uint64
	rulesEvaluated       atomic.Uint64
	transitionsApplied   atomic.Uint64
	duplicatesSuppressed atomic.Uint64
	eventsPublished      atomic.Uint64
	eventsDropped        atomic.Uint64
	errorsTotal          atomic.Uint64

	// Pass latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records one completed evaluation pass with its latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordTickSkipped records a tick abandoned on feed failure or timeout.
func (m *Metrics) RecordTickSkipped() {
	m.ticksSkipped.Add(1)
}

// RecordRulesEvaluated adds to the evaluated rule count.
func (m *Metrics) RecordRulesEvaluated(n int) {
	m.rulesEvaluated.Add(uint64(n))
}

// RecordTransition records a committed band transition.
func (m *Metrics) RecordTransition() {
	m.transitionsApplied.Add(1)
}

// RecordDuplicateSuppressed records a replayed event that was rejected.
func (m *Metrics) RecordDuplicateSuppressed() {
	m.duplicatesSuppressed.Add(1)
}

// RecordEventPublished records a delivered notification.
func (m *Metrics) RecordEventPublished() {
	m.eventsPublished.Add(1)
}

// RecordEventDropped records a notification dropped for a disconnected owner.
func (m *Metrics) RecordEventDropped() {
	m.eventsDropped.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed       uint64    `json:"ticks_processed"`
	TicksSkipped         uint64    `json:"ticks_skipped"`
	RulesEvaluated       uint64    `json:"rules_evaluated"`
	TransitionsApplied   uint64    `json:"transitions_applied"`
	DuplicatesSuppressed uint64    `json:"duplicates_suppressed"`
	EventsPublished      uint64    `json:"events_published"`
	EventsDropped        uint64    `json:"events_dropped"`
	ErrorsTotal          uint64    `json:"errors_total"`
	AvgPassLatencyNs     int64     `json:"avg_pass_latency_ns"`
	ActiveConnections    int32     `json:"active_connections"`
	Timestamp            time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksProcessed:       m.ticksProcessed.Load(),
		TicksSkipped:         m.ticksSkipped.Load(),
		RulesEvaluated:       m.rulesEvaluated.Load(),
		TransitionsApplied:   m.transitionsApplied.Load(),
		DuplicatesSuppressed: m.duplicatesSuppressed.Load(),
		EventsPublished:      m.eventsPublished.Load(),
		EventsDropped:        m.eventsDropped.Load(),
		ErrorsTotal:          m.errorsTotal.Load(),
		AvgPassLatencyNs:     avgLatency,
		ActiveConnections:    m.activeConnections.Load(),
		Timestamp:            time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.ticksSkipped.Store(0)
	m.rulesEvaluated.Store(0)
	m.transitionsApplied.Store(0)
	m.duplicatesSuppressed.Store(0)
	m.eventsPublished.Store(0)
	m.eventsDropped.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
