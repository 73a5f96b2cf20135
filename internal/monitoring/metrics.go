package monitoring

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds process-wide counters for the grader service.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	GradesCompleted     int64
	CacheHits           int64
	CacheMisses         int64
	LimiterBackoffs     int64
	ResponseTimeTotal   int64 // in nanoseconds
	ResponseTimeCount   int64
	StartTime           time.Time

	responseTimes      []time.Duration
	responseTimesMutex sync.RWMutex

	requestCountByStatus map[int]int64
	statusMutex          sync.RWMutex

	externalAPIRequests   map[string]int64
	externalAPIErrorCount map[string]int64
	fallbackCount         map[string]int64
	externalAPIMutex      sync.RWMutex

	RateLimitIPBlocks      int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:             time.Now(),
		responseTimes:         make([]time.Duration, 0, 1000),
		requestCountByStatus:  make(map[int]int64),
		externalAPIRequests:   make(map[string]int64),
		externalAPIErrorCount: make(map[string]int64),
		fallbackCount:         make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementGrade counts a completed evaluation.
func (m *Metrics) IncrementGrade() {
	atomic.AddInt64(&m.GradesCompleted, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementBackoff counts an origin entering backoff.
func (m *Metrics) IncrementBackoff() {
	atomic.AddInt64(&m.LimiterBackoffs, 1)
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.externalAPIMutex.Lock()
	defer m.externalAPIMutex.Unlock()

	m.externalAPIRequests[apiName]++
	if !success {
		m.externalAPIErrorCount[apiName]++
	}
}

// RecordFallback records an adapter serving its heuristic result.
func (m *Metrics) RecordFallback(adapter string) {
	m.externalAPIMutex.Lock()
	defer m.externalAPIMutex.Unlock()

	m.fallbackCount[adapter]++
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	atomic.AddInt64(&m.ResponseTimeTotal, duration.Nanoseconds())
	atomic.AddInt64(&m.ResponseTimeCount, 1)

	m.responseTimesMutex.Lock()
	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.requestCountByStatus[statusCode]++
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// AverageResponseTime is the mean of every recorded response time.
func (m *Metrics) AverageResponseTime() time.Duration {
	n := atomic.LoadInt64(&m.ResponseTimeCount)
	if n == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.ResponseTimeTotal) / n)
}

// GetPercentileResponseTime returns the nearest-rank percentile over the
// most recent response times.
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.responseTimesMutex.RLock()
	defer m.responseTimesMutex.RUnlock()

	if len(m.responseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.responseTimes))
	copy(times, m.responseTimes)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	index := int(math.Ceil(percentile/100*float64(len(times)))) - 1
	return times[max(0, min(index, len(times)-1))]
}

// GetExternalAPIStats returns per-backend request, error and fallback counts.
func (m *Metrics) GetExternalAPIStats() map[string]any {
	m.externalAPIMutex.RLock()
	defer m.externalAPIMutex.RUnlock()

	stats := make(map[string]any)
	for api, requests := range m.externalAPIRequests {
		errs := m.externalAPIErrorCount[api]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errs) / float64(requests) * 100
		}

		stats[api] = map[string]any{
			"requests":   requests,
			"errors":     errs,
			"error_rate": errorRate,
		}
	}

	fallbacks := make(map[string]int64, len(m.fallbackCount))
	for adapter, n := range m.fallbackCount {
		fallbacks[adapter] = n
	}
	stats["fallbacks"] = fallbacks

	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]any {
	requests := atomic.LoadInt64(&m.RequestCount)
	errs := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errs) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	m.statusMutex.RLock()
	statusDistribution := make(map[int]int64, len(m.requestCountByStatus))
	for code, count := range m.requestCountByStatus {
		statusDistribution[code] = count
	}
	m.statusMutex.RUnlock()

	return map[string]any{
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"total_requests":           requests,
		"error_count":              errs,
		"error_rate_percent":       errorRate,
		"grades_completed":         atomic.LoadInt64(&m.GradesCompleted),
		"cache_hits":               cacheHits,
		"cache_misses":             cacheMisses,
		"cache_hit_rate_percent":   cacheHitRate,
		"limiter_backoffs":         atomic.LoadInt64(&m.LimiterBackoffs),
		"avg_response_time_ms":     float64(m.AverageResponseTime()) / 1e6,
		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": statusDistribution,
		"external_api_stats":       m.GetExternalAPIStats(),
		"rate_limit": map[string]any{
			"ip_blocks":      atomic.LoadInt64(&m.RateLimitIPBlocks),
			"redis_errors":   atomic.LoadInt64(&m.RateLimitRedisErrors),
			"fallback_count": atomic.LoadInt64(&m.RateLimitFallbackCount),
		},
		"start_time": m.StartTime.Format(time.RFC3339),
	}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.GradesCompleted, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.LimiterBackoffs, 0)
	atomic.StoreInt64(&m.ResponseTimeTotal, 0)
	atomic.StoreInt64(&m.ResponseTimeCount, 0)
	atomic.StoreInt64(&m.RateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)

	m.responseTimesMutex.Lock()
	m.responseTimes = m.responseTimes[:0]
	m.responseTimesMutex.Unlock()

	m.statusMutex.Lock()
	m.requestCountByStatus = make(map[int]int64)
	m.statusMutex.Unlock()

	m.externalAPIMutex.Lock()
	m.externalAPIRequests = make(map[string]int64)
	m.externalAPIErrorCount = make(map[string]int64)
	m.fallbackCount = make(map[string]int64)
	m.externalAPIMutex.Unlock()

	m.StartTime = time.Now()
}
