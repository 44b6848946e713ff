package gateway

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps the last frame render durations in a circular buffer
// and computes percentiles over them. Thread-safe.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []float64 // ms
	pos     int
	count   int
}

// NewLatencyTracker creates a tracker holding the last capacity samples.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 4096
	}
	return &LatencyTracker{samples: make([]float64, capacity)}
}

// Observe adds one frame duration.
func (lt *LatencyTracker) Observe(d time.Duration) {
	lt.Record(float64(d.Microseconds()) / 1000.0)
}

// Record adds a sample in milliseconds.
func (lt *LatencyTracker) Record(ms float64) {
	lt.mu.Lock()
	lt.samples[lt.pos] = ms
	lt.pos = (lt.pos + 1) % len(lt.samples)
	if lt.count < len(lt.samples) {
		lt.count++
	}
	lt.mu.Unlock()
}

// Percentiles returns p50, p95 and p99 in milliseconds, or zeros when empty.
func (lt *LatencyTracker) Percentiles() (p50, p95, p99 float64) {
	lt.mu.Lock()
	sorted := make([]float64, lt.count)
	copy(sorted, lt.samples[:lt.count])
	lt.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	sort.Float64s(sorted)
	return percentile(sorted, 0.50), percentile(sorted, 0.95), percentile(sorted, 0.99)
}

// Count returns the number of samples held.
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.count
}

// percentile interpolates the p-th percentile (0..1) of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	if lower+1 >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}
