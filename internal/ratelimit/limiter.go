package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Config holds inbound rate limiter configuration
type Config struct {
	SubmitLimitPerMin int // grade submissions per client IP per minute
	BurstMultiplier   int // in-memory burst capacity multiplier
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		SubmitLimitPerMin: 10,
		BurstMultiplier:   1,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RequestLimiter limits grade submissions per client IP, in Redis when it is
// available and in memory otherwise.
type RequestLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex
}

// NewRequestLimiter creates a limiter. redisClient may be nil or disabled.
func NewRequestLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RequestLimiter {
	if config.SubmitLimitPerMin <= 0 {
		config.SubmitLimitPerMin = DefaultConfig().SubmitLimitPerMin
	}
	if config.BurstMultiplier <= 0 {
		config.BurstMultiplier = 1
	}

	rl := &RequestLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis request limiter initialized")
	} else {
		slog.Info("Redis unavailable, using in-memory request limiting")
	}

	return rl
}

// AllowIP checks whether ip may submit another grade this minute.
func (rl *RequestLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	key := fmt.Sprintf("grader:submit:ip:%s", ip)
	return rl.allow(ctx, key, rl.config.SubmitLimitPerMin, time.Minute)
}

func (rl *RequestLimiter) allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	if rl.redisLimiter != nil && rl.redisClient.IsEnabled() {
		result, err := rl.allowRedis(ctx, key, limit, period)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	} else if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}

	return rl.allowFallback(key, limit, period), nil
}

func (rl *RequestLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

func (rl *RequestLimiter) allowFallback(key string, limit int, period time.Duration) *Result {
	now := time.Now()

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		every := period / time.Duration(limit)
		entry = &fallbackEntry{limiter: rate.NewLimiter(rate.Every(every), limit*rl.config.BurstMultiplier)}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	r := entry.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	allowed := delay == 0
	if !allowed {
		r.CancelAt(now)
	}

	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    now.Add(period),
		RetryAfter: delay,
	}
}

// Cleanup drops in-memory limiters idle for longer than maxIdle.
func (rl *RequestLimiter) Cleanup(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key, entry := range rl.fallbackLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup hourly until ctx ends.
func (rl *RequestLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.Cleanup(time.Hour); n > 0 {
					slog.Info("Cleaned up idle request limiters", "count", n)
				}
			}
		}
	}()
}

// GetStats returns rate limiter statistics
func (rl *RequestLimiter) GetStats() map[string]any {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]any{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"submit_per_minute": rl.config.SubmitLimitPerMin,
	}
	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}
	return stats
}
