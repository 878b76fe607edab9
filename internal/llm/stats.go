package llm

import (
	"slices"
	"sync"
	"time"
)

type callSample struct {
	at         time.Time
	durationMs int64
	absent     bool
}

// StatsSnapshot aggregates the model calls seen in the rolling window.
type StatsSnapshot struct {
	Calls   int     `json:"calls"`
	Absent  int     `json:"absent"`
	MinMs   int64   `json:"min_ms"`
	MaxMs   int64   `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
	OKRatio float64 `json:"ok_ratio"`
}

// LLMStats keeps recent gateway call latencies and outcomes.
type LLMStats struct {
	mu      sync.Mutex
	samples []callSample
	window  time.Duration
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{
		samples: make([]callSample, 0, 256),
		window:  window,
	}
}

// Record adds one call. absent marks a call that produced no usable text.
func (s *LLMStats) Record(durationMs int64, absent bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, callSample{
		at:         now,
		durationMs: max(durationMs, 0),
		absent:     absent,
	})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	absent := 0
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.absent {
			absent++
		}
	}
	slices.Sort(values)

	n := len(values)
	return StatsSnapshot{
		Calls:   n,
		Absent:  absent,
		MinMs:   values[0],
		MaxMs:   values[n-1],
		AvgMs:   float64(sum) / float64(n),
		P50Ms:   percentile(values, 50),
		P95Ms:   percentile(values, 95),
		P99Ms:   percentile(values, 99),
		OKRatio: float64(n-absent) / float64(n),
	}
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
