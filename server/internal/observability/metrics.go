package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Operations tracked per name.
const (
	OpResolve  = "resolve"
	OpExtract  = "extract"
	OpAnnounce = "announce"
	OpCommand  = "command"
)

// Metrics collects counters for timetable operations.
type Metrics struct {
	mu sync.Mutex

	messagesSent     atomic.Int64
	deliveryFailures atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64

	ops map[string]*OpMetrics

	// Last durations, oldest first.
	durations    []time.Duration
	maxDurations int
}

// OpMetrics represents metrics for one operation.
type OpMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// Count returns how many times the operation ran.
func (o *OpMetrics) Count() int64 { return o.count.Load() }

// Errors returns how many runs failed.
func (o *OpMetrics) Errors() int64 { return o.errorCount.Load() }

// TotalDurationMs returns the summed duration of all runs.
func (o *OpMetrics) TotalDurationMs() int64 { return o.totalDuration.Load() }

// NewMetrics creates a new metrics collector keeping the last maxDurations durations.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		ops:          make(map[string]*OpMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordOp records one run of op.
func (m *Metrics) RecordOp(op string, duration time.Duration, err error) {
	om := m.Op(op)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if err != nil {
		om.errorCount.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordSent records a delivered message.
func (m *Metrics) RecordSent() { m.messagesSent.Add(1) }

// RecordDeliveryFailure records a message the transport refused.
func (m *Metrics) RecordDeliveryFailure() { m.deliveryFailures.Add(1) }

// RecordCache records a grid cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.cacheHits.Add(1)
		return
	}
	m.cacheMisses.Add(1)
}

// Op returns the metrics of op, creating them on first use.
func (m *Metrics) Op(op string) *OpMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.ops[op]
	if !ok {
		om = &OpMetrics{}
		m.ops[op] = om
	}
	return om
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	MessagesSent     int64
	DeliveryFailures int64
	CacheHits        int64
	CacheMisses      int64
	Ops              map[string]OpSnapshot
	AvgDuration      time.Duration
}

// OpSnapshot is a point-in-time copy of one operation's counters.
type OpSnapshot struct {
	Count  int64
	Errors int64
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		MessagesSent:     m.messagesSent.Load(),
		DeliveryFailures: m.deliveryFailures.Load(),
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		Ops:              make(map[string]OpSnapshot, len(m.ops)),
	}
	for name, om := range m.ops {
		s.Ops[name] = OpSnapshot{Count: om.Count(), Errors: om.Errors()}
	}
	if len(m.durations) > 0 {
		var total time.Duration
		for _, d := range m.durations {
			total += d
		}
		s.AvgDuration = total / time.Duration(len(m.durations))
	}
	return s
}
