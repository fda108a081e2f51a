package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// latencyWindow is how many recent persist latencies are kept.
const latencyWindow = 256

// Metrics counts store activity for one process. Counters are lock-free;
// the latency window and exporter sit behind mu.
type Metrics struct {
	entriesAdded    atomic.Int64
	entriesUpdated  atomic.Int64
	entriesDeleted  atomic.Int64
	tagsAdded       atomic.Int64
	tagsRemoved     atomic.Int64
	loads           atomic.Int64
	persists        atomic.Int64
	persistFailures atomic.Int64

	mu        sync.RWMutex
	latencies [latencyWindow]time.Duration
	next      int
	filled    int
	exporter  MetricsExporter
}

func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) IncEntriesAdded()   { m.entriesAdded.Add(1) }
func (m *Metrics) IncEntriesUpdated() { m.entriesUpdated.Add(1) }
func (m *Metrics) IncEntriesDeleted() { m.entriesDeleted.Add(1) }
func (m *Metrics) IncTagsAdded()      { m.tagsAdded.Add(1) }
func (m *Metrics) IncTagsRemoved()    { m.tagsRemoved.Add(1) }
func (m *Metrics) IncLoads()          { m.loads.Add(1) }

// RecordPersist counts one write-through and keeps its latency in a ring.
func (m *Metrics) RecordPersist(d time.Duration, err error) {
	m.persists.Add(1)
	if err != nil {
		m.persistFailures.Add(1)
	}

	m.mu.Lock()
	m.latencies[m.next] = d
	m.next = (m.next + 1) % latencyWindow
	if m.filled < latencyWindow {
		m.filled++
	}
	m.mu.Unlock()
}

// GetSummary returns every counter plus average and max persist latency
// (microseconds) over the recent window.
func (m *Metrics) GetSummary() map[string]interface{} {
	summary := map[string]interface{}{
		"entries_added":    m.entriesAdded.Load(),
		"entries_updated":  m.entriesUpdated.Load(),
		"entries_deleted":  m.entriesDeleted.Load(),
		"tags_added":       m.tagsAdded.Load(),
		"tags_removed":     m.tagsRemoved.Load(),
		"loads":            m.loads.Load(),
		"persists":         m.persists.Load(),
		"persist_failures": m.persistFailures.Load(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.filled == 0 {
		return summary
	}
	var total, worst time.Duration
	for _, d := range m.latencies[:m.filled] {
		total += d
		if d > worst {
			worst = d
		}
	}
	summary["avg_persist_latency_us"] = total.Microseconds() / int64(m.filled)
	summary["max_persist_latency_us"] = worst.Microseconds()
	return summary
}

// Reset zeroes every counter and the latency window. The exporter stays.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.entriesAdded, &m.entriesUpdated, &m.entriesDeleted,
		&m.tagsAdded, &m.tagsRemoved, &m.loads, &m.persists, &m.persistFailures,
	} {
		c.Store(0)
	}
	m.mu.Lock()
	m.next, m.filled = 0, 0
	m.mu.Unlock()
}

// SetExporter attaches the sink used by Flush.
func (m *Metrics) SetExporter(e MetricsExporter) {
	m.mu.Lock()
	m.exporter = e
	m.mu.Unlock()
}

// Flush hands a snapshot labelled event to the exporter, if any. Export
// errors are dropped: metrics never fail a command.
func (m *Metrics) Flush(event string, labels map[string]string) {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()
	if exporter == nil {
		return
	}

	_ = exporter.Export(MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     event,
		Metrics:   m.GetSummary(),
		Labels:    labels,
	})
}
