package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"golang.org/x/time/rate"
)

// Origins paced by the OriginLimiter. One per external backend.
const (
	OriginPageSpeed = "pagespeed"
	OriginSerpAPI   = "serpapi"
	OriginGCS       = "gcs"
	OriginWhoisXML  = "whoisxml"
	OriginWhois     = "whois"
	OriginMoz       = "moz"
	OriginTarget    = "target"
)

// OriginConfig holds outbound pacing configuration
type OriginConfig struct {
	RequestsPerSecond float64
	MaxRetries        int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
}

// DefaultOriginConfig returns one request per second with up to three
// retries backing off from 1s to 30s.
func DefaultOriginConfig() OriginConfig {
	return OriginConfig{
		RequestsPerSecond: 1.0,
		MaxRetries:        3,
		BaseBackoff:       time.Second,
		MaxBackoff:        30 * time.Second,
	}
}

// originState is the per-origin bookkeeping. mu serialises acquirers of the
// same origin; the remaining fields are guarded by stateMu so that reports
// never wait behind a sleeping acquirer.
type originState struct {
	mu      sync.Mutex
	limiter *rate.Limiter

	stateMu      sync.Mutex
	lastRequest  time.Time
	failures     int
	backoffUntil time.Time
}

// OriginStats is the externally visible state of one origin.
type OriginStats struct {
	Failures         int       `json:"failures"`
	BackoffRemaining int64     `json:"backoff_remaining_ms"`
	LastRequest      time.Time `json:"last_request"`
}

// OriginLimiter paces outbound calls per origin and tracks exponential
// backoff after failures. Different origins never block each other.
type OriginLimiter struct {
	config  OriginConfig
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
	gate    *DistributedGate

	mu     sync.Mutex
	states map[string]*originState

	now func() time.Time
}

// NewOriginLimiter creates a limiter. Zero-valued config fields take the
// defaults; metrics may be nil.
func NewOriginLimiter(config OriginConfig, metrics *monitoring.Metrics) *OriginLimiter {
	def := DefaultOriginConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = def.BaseBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}

	return &OriginLimiter{
		config:  config,
		metrics: metrics,
		logger:  monitoring.Discard(),
		states:  make(map[string]*originState),
		now:     time.Now,
	}
}

// WithGate adds a cross-replica gate consulted after local pacing.
func (l *OriginLimiter) WithGate(gate *DistributedGate) *OriginLimiter {
	l.gate = gate
	return l
}

// WithLogger replaces the default discarding logger.
func (l *OriginLimiter) WithLogger(logger *monitoring.Logger) *OriginLimiter {
	if logger != nil {
		l.logger = logger
	}
	return l
}

func (l *OriginLimiter) state(origin string) *originState {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[origin]
	if !ok {
		st = &originState{limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), 1)}
		l.states[origin] = st
	}
	return st
}

// Acquire blocks until the origin is out of backoff and its minimum request
// interval has elapsed. It returns ctx.Err() if the context ends first.
func (l *OriginLimiter) Acquire(ctx context.Context, origin string) error {
	st := l.state(origin)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.stateMu.Lock()
	wait := st.backoffUntil.Sub(l.now())
	st.stateMu.Unlock()

	if wait > 0 {
		l.logger.Debug("Waiting out backoff", "origin", origin, "wait_ms", wait.Milliseconds())
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}

	if err := st.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if err := l.gate.Wait(ctx, origin); err != nil {
		return err
	}

	st.stateMu.Lock()
	st.lastRequest = l.now()
	st.stateMu.Unlock()
	return nil
}

// ReportSuccess clears the origin's failure count and backoff window.
func (l *OriginLimiter) ReportSuccess(origin string) {
	st := l.state(origin)

	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	st.failures = 0
	st.backoffUntil = time.Time{}
}

// ReportFailure records a failed call, opens a backoff window of
// min(MaxBackoff, BaseBackoff*2^(failures-1)) and reports whether the
// caller may retry.
func (l *OriginLimiter) ReportFailure(origin string) bool {
	st := l.state(origin)

	st.stateMu.Lock()
	defer st.stateMu.Unlock()

	st.failures++
	if st.failures > l.config.MaxRetries {
		l.logger.Warn("Max retries exceeded", "origin", origin, "failures", st.failures)
		return false
	}

	backoff := l.backoffFor(st.failures)
	st.backoffUntil = l.now().Add(backoff)
	if l.metrics != nil {
		l.metrics.IncrementBackoff()
	}

	l.logger.Debug("Backing off", "origin", origin, "failure", st.failures, "backoff_ms", backoff.Milliseconds())
	return true
}

func (l *OriginLimiter) backoffFor(failures int) time.Duration {
	backoff := float64(l.config.BaseBackoff) * math.Pow(2, float64(failures-1))
	if backoff > float64(l.config.MaxBackoff) {
		return l.config.MaxBackoff
	}
	return time.Duration(backoff)
}

// Reset clears one origin, or every origin when origin is empty.
func (l *OriginLimiter) Reset(origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if origin == "" {
		l.states = make(map[string]*originState)
		return
	}
	delete(l.states, origin)
}

// Stats returns the state of every origin seen so far.
func (l *OriginLimiter) Stats() map[string]OriginStats {
	l.mu.Lock()
	snapshot := make(map[string]*originState, len(l.states))
	for origin, st := range l.states {
		snapshot[origin] = st
	}
	l.mu.Unlock()

	now := l.now()
	out := make(map[string]OriginStats, len(snapshot))
	for origin, st := range snapshot {
		st.stateMu.Lock()
		remaining := st.backoffUntil.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		out[origin] = OriginStats{
			Failures:         st.failures,
			BackoffRemaining: remaining.Milliseconds(),
			LastRequest:      st.lastRequest,
		}
		st.stateMu.Unlock()
	}
	return out
}

// Run acquires the origin, calls fn and reports the outcome. The error from
// fn is returned unchanged; retrying is the caller's decision. A rate-limit
// error from fn does not count as a failure.
func (l *OriginLimiter) Run(ctx context.Context, origin string, fn func(context.Context) error) error {
	if err := l.Acquire(ctx, origin); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if !apperrors.IsRateLimited(err) {
			l.ReportFailure(origin)
		}
		return err
	}

	l.ReportSuccess(origin)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
