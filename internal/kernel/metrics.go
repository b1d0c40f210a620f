package kernel

import (
	"sync"
	"time"

	"github.com/hookflow/hookflow/internal/event"
)

// emaAlpha weights the exponential moving average toward recent latencies.
const emaAlpha = 0.2

// PriorityStats breaks processing counts down by event priority.
type PriorityStats struct {
	Processed  uint64        `json:"processed"`
	Failed     uint64        `json:"failed"`
	EMALatency time.Duration `json:"ema_latency"`
}

// PerformanceMetrics is a point-in-time snapshot of kernel throughput.
type PerformanceMetrics struct {
	TotalProcessed uint64                           `json:"total_processed"`
	SuccessRate    float64                          `json:"success_rate"`
	CacheHitRate   float64                          `json:"cache_hit_rate"`
	EMALatency     time.Duration                    `json:"ema_latency"`
	MinLatency     time.Duration                    `json:"min_latency"`
	MaxLatency     time.Duration                    `json:"max_latency"`
	ByPriority     map[event.Priority]PriorityStats `json:"by_priority"`
}

// metricsTracker accumulates processing outcomes under one mutex.
type metricsTracker struct {
	mu sync.Mutex

	processed  uint64
	succeeded  uint64
	ema        float64
	min        time.Duration
	max        time.Duration
	byPriority map[event.Priority]*prioCounter

	dispatches uint64
	cacheHits  uint64
}

type prioCounter struct {
	processed uint64
	failed    uint64
	ema       float64
}

func newMetricsTracker() *metricsTracker {
	return &metricsTracker{byPriority: make(map[event.Priority]*prioCounter)}
}

func (m *metricsTracker) recordEvent(priority event.Priority, latency time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed++
	if success {
		m.succeeded++
	}

	l := float64(latency)
	if m.processed == 1 {
		m.ema = l
		m.min = latency
		m.max = latency
	} else {
		m.ema = emaAlpha*l + (1-emaAlpha)*m.ema
		if latency < m.min {
			m.min = latency
		}
		if latency > m.max {
			m.max = latency
		}
	}

	pc, ok := m.byPriority[priority]
	if !ok {
		pc = &prioCounter{ema: l}
		m.byPriority[priority] = pc
	} else {
		pc.ema = emaAlpha*l + (1-emaAlpha)*pc.ema
	}
	pc.processed++
	if !success {
		pc.failed++
	}
}

// recordDispatch counts one hook-level dispatch for the cache hit rate.
func (m *metricsTracker) recordDispatch(cacheHit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dispatches++
	if cacheHit {
		m.cacheHits++
	}
}

func (m *metricsTracker) snapshot() PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := PerformanceMetrics{
		TotalProcessed: m.processed,
		EMALatency:     time.Duration(m.ema),
		MinLatency:     m.min,
		MaxLatency:     m.max,
		ByPriority:     make(map[event.Priority]PriorityStats, len(m.byPriority)),
	}
	if m.processed > 0 {
		out.SuccessRate = float64(m.succeeded) / float64(m.processed)
	}
	if m.dispatches > 0 {
		out.CacheHitRate = float64(m.cacheHits) / float64(m.dispatches)
	}
	for p, pc := range m.byPriority {
		out.ByPriority[p] = PriorityStats{
			Processed:  pc.processed,
			Failed:     pc.failed,
			EMALatency: time.Duration(pc.ema),
		}
	}
	return out
}
