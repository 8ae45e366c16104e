// Package monitor is a non-blocking observability sink: a bounded ring
// of per-operation metrics with aggregate summaries and threshold
// alerts. Recording never fails and never propagates to callers.
package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Metric is one recorded operation.
type Metric struct {
	Timestamp  time.Time     `json:"timestamp"`
	Operation  string        `json:"operation"`
	Duration   time.Duration `json:"duration"`
	TokensUsed int           `json:"tokens_used"`
	CacheHit   bool          `json:"cache_hit"`
	Error      string        `json:"error,omitempty"`
}

// OperationStats is the per-operation breakdown within a summary.
type OperationStats struct {
	Count       int           `json:"count"`
	AvgDuration time.Duration `json:"avg_duration"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// Summary aggregates all retained metrics.
type Summary struct {
	TotalOperations      int                       `json:"total_operations"`
	SuccessfulOperations int                       `json:"successful_operations"`
	ErrorRate            float64                   `json:"error_rate"`
	Uptime               time.Duration             `json:"uptime"`
	AvgResponseTime      time.Duration             `json:"avg_response_time"`
	MedianResponseTime   time.Duration             `json:"median_response_time"`
	P95ResponseTime      time.Duration             `json:"p95_response_time"`
	AvgTokensPerQuery    float64                   `json:"avg_tokens_per_query"`
	TotalTokens          int                       `json:"total_tokens"`
	CacheHits            int                       `json:"cache_hits"`
	CacheHitRate         float64                   `json:"cache_hit_rate"`
	Operations           map[string]OperationStats `json:"operations"`
}

// WindowStats describes recent activity and classifies its health.
type WindowStats struct {
	Operations       int           `json:"operations"`
	AvgResponseTime  time.Duration `json:"avg_response_time"`
	Errors           int           `json:"errors"`
	ActiveOperations []string      `json:"active_operations"`
	Status           string        `json:"status"`
}

// Thresholds configure alert boundaries.
type Thresholds struct {
	MaxResponseTime time.Duration
	MaxErrorRate    float64
	MinCacheHitRate float64
}

// degradedErrorRatio is the error ratio at which a recent window is
// classified as degraded rather than healthy.
const degradedErrorRatio = 0.1

// CacheCounters are running per-cache totals, maintained separately
// from the metric ring so they survive ring overwrites.
type CacheCounters struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Monitor retains the most recent metrics in a fixed-size ring.
type Monitor struct {
	mu      sync.Mutex
	metrics []Metric
	next    int
	full    bool
	start   time.Time
	caches  map[string]*CacheCounters
}

// New creates a Monitor retaining at most maxMetrics entries.
func New(maxMetrics int) *Monitor {
	if maxMetrics <= 0 {
		maxMetrics = 1000
	}
	return &Monitor{
		metrics: make([]Metric, maxMetrics),
		start:   time.Now(),
		caches:  make(map[string]*CacheCounters),
	}
}

// RecordCacheHit increments the hit counter for the named cache.
func (m *Monitor) RecordCacheHit(cacheName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheLocked(cacheName).Hits++
}

// RecordCacheMiss increments the miss counter for the named cache.
func (m *Monitor) RecordCacheMiss(cacheName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheLocked(cacheName).Misses++
}

// UpdateCacheSize records the current entry count of the named cache.
func (m *Monitor) UpdateCacheSize(cacheName string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheLocked(cacheName).Size = size
}

// CacheStats returns a copy of the per-cache counters.
func (m *Monitor) CacheStats() map[string]CacheCounters {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]CacheCounters, len(m.caches))
	for name, c := range m.caches {
		out[name] = *c
	}
	return out
}

func (m *Monitor) cacheLocked(name string) *CacheCounters {
	c, ok := m.caches[name]
	if !ok {
		c = &CacheCounters{}
		m.caches[name] = c
	}
	return c
}

// Record appends a metric, overwriting the oldest entry once the ring
// is full. It never fails.
func (m *Monitor) Record(metric Metric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics[m.next] = metric
	m.next++
	if m.next == len(m.metrics) {
		m.next = 0
		m.full = true
	}
}

// snapshotLocked returns retained metrics oldest first. Caller holds
// the lock.
func (m *Monitor) snapshotLocked() []Metric {
	if !m.full {
		out := make([]Metric, m.next)
		copy(out, m.metrics[:m.next])
		return out
	}
	out := make([]Metric, 0, len(m.metrics))
	out = append(out, m.metrics[m.next:]...)
	out = append(out, m.metrics[:m.next]...)
	return out
}

// Summary aggregates all retained metrics.
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	metrics := m.snapshotLocked()
	start := m.start
	m.mu.Unlock()

	s := Summary{
		Uptime:     time.Since(start),
		Operations: make(map[string]OperationStats),
	}
	if len(metrics) == 0 {
		return s
	}

	s.TotalOperations = len(metrics)

	var durations []time.Duration
	perOp := make(map[string][]time.Duration)
	for _, metric := range metrics {
		if metric.Error == "" {
			s.SuccessfulOperations++
			durations = append(durations, metric.Duration)
		}
		if metric.TokensUsed > 0 {
			s.TotalTokens += metric.TokensUsed
		}
		if metric.CacheHit {
			s.CacheHits++
		}
		perOp[metric.Operation] = append(perOp[metric.Operation], metric.Duration)
	}

	s.ErrorRate = float64(s.TotalOperations-s.SuccessfulOperations) / float64(s.TotalOperations)
	s.CacheHitRate = float64(s.CacheHits) / float64(s.TotalOperations)

	if tokenOps := countTokenOps(metrics); tokenOps > 0 {
		s.AvgTokensPerQuery = float64(s.TotalTokens) / float64(tokenOps)
	}

	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		s.AvgResponseTime = avgDuration(durations)
		s.MedianResponseTime = durations[len(durations)/2]
		s.P95ResponseTime = durations[p95Index(len(durations))]
	}

	for op, ds := range perOp {
		stats := OperationStats{
			Count:       len(ds),
			AvgDuration: avgDuration(ds),
			MinDuration: ds[0],
			MaxDuration: ds[0],
		}
		for _, d := range ds {
			if d < stats.MinDuration {
				stats.MinDuration = d
			}
			if d > stats.MaxDuration {
				stats.MaxDuration = d
			}
		}
		s.Operations[op] = stats
	}
	return s
}

// RecentWindow filters metrics to those recorded within the given
// duration and classifies the window as healthy or degraded based on
// its error ratio.
func (m *Monitor) RecentWindow(window time.Duration) WindowStats {
	m.mu.Lock()
	metrics := m.snapshotLocked()
	m.mu.Unlock()

	threshold := time.Now().Add(-window)
	var recent []Metric
	for _, metric := range metrics {
		if metric.Timestamp.After(threshold) {
			recent = append(recent, metric)
		}
	}

	stats := WindowStats{Status: "healthy"}
	if len(recent) == 0 {
		return stats
	}

	stats.Operations = len(recent)
	opSet := make(map[string]struct{})
	var durations []time.Duration
	for _, metric := range recent {
		opSet[metric.Operation] = struct{}{}
		if metric.Error == "" {
			durations = append(durations, metric.Duration)
		} else {
			stats.Errors++
		}
	}
	if len(durations) > 0 {
		stats.AvgResponseTime = avgDuration(durations)
	}
	for op := range opSet {
		stats.ActiveOperations = append(stats.ActiveOperations, op)
	}
	sort.Strings(stats.ActiveOperations)

	if float64(stats.Errors)/float64(stats.Operations) >= degradedErrorRatio {
		stats.Status = "degraded"
	}
	return stats
}

// CheckAlerts compares the current summary against thresholds.
func (m *Monitor) CheckAlerts(t Thresholds) []string {
	s := m.Summary()
	if s.TotalOperations == 0 {
		return nil
	}

	var alerts []string
	if t.MaxResponseTime > 0 && s.AvgResponseTime > t.MaxResponseTime {
		alerts = append(alerts, fmt.Sprintf("High average response time: %.2fs", s.AvgResponseTime.Seconds()))
	}
	if t.MaxErrorRate > 0 && s.ErrorRate > t.MaxErrorRate {
		alerts = append(alerts, fmt.Sprintf("High error rate: %.1f%%", s.ErrorRate*100))
	}
	if t.MinCacheHitRate > 0 && s.CacheHitRate < t.MinCacheHitRate {
		alerts = append(alerts, fmt.Sprintf("Low cache hit rate: %.1f%%", s.CacheHitRate*100))
	}
	return alerts
}

// Clear drops all retained metrics.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = 0
	m.full = false
}

func countTokenOps(metrics []Metric) int {
	n := 0
	for _, m := range metrics {
		if m.TokensUsed > 0 {
			n++
		}
	}
	return n
}

func avgDuration(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// p95Index returns the index of the 95th percentile in a sorted slice
// of length n.
func p95Index(n int) int {
	idx := int(float64(n)*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}
