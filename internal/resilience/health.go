package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name in JSON.
func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// HealthConfig holds the error-rate thresholds for each level.
type HealthConfig struct {
	CheckInterval       time.Duration `json:"check_interval"`
	CheckTimeout        time.Duration `json:"check_timeout"`
	DegradedThreshold   float64       `json:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold"`
	MaxDegradedDuration time.Duration `json:"max_degraded_duration"`
}

// DefaultHealthConfig returns sensible defaults
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		CheckInterval:       30 * time.Second,
		CheckTimeout:        5 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		MaxDegradedDuration: 10 * time.Minute,
	}
}

// BackendHealth is the recorded health of one external backend.
type BackendHealth struct {
	Name          string           `json:"name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time,omitempty"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage string           `json:"status_message"`
}

// HealthCheckFunc probes a dependency.
type HealthCheckFunc func(ctx context.Context) error

// HealthTracker records per-backend outcomes and derives a degradation
// level from the error rate. The level is informational: adapters fall back
// on their own when a call fails.
type HealthTracker struct {
	config   HealthConfig
	backends map[string]*BackendHealth
	checks   map[string]HealthCheckFunc
	mutex    sync.RWMutex
	now      func() time.Time
}

// NewHealthTracker creates a tracker.
func NewHealthTracker(config HealthConfig) *HealthTracker {
	return &HealthTracker{
		config:   config,
		backends: make(map[string]*BackendHealth),
		checks:   make(map[string]HealthCheckFunc),
		now:      time.Now,
	}
}

// Register adds a backend. check may be nil for backends that are only
// observed through RecordRequest.
func (h *HealthTracker) Register(name string, check HealthCheckFunc) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.backends[name]; !exists {
		h.backends[name] = newBackendHealth(name)
	}
	if check != nil {
		h.checks[name] = check
	}
}

func newBackendHealth(name string) *BackendHealth {
	return &BackendHealth{
		Name:          name,
		Level:         LevelNormal,
		StatusMessage: "Backend is healthy",
	}
}

// RecordRequest records one call outcome. Unknown backends are registered
// on first use.
func (h *HealthTracker) RecordRequest(name string, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	b, exists := h.backends[name]
	if !exists {
		b = newBackendHealth(name)
		h.backends[name] = b
	}

	b.TotalRequests++
	if err != nil {
		b.ErrorCount++
		b.LastError = err.Error()
		b.LastErrorTime = h.now()
	}
	b.ErrorRate = float64(b.ErrorCount) / float64(b.TotalRequests)

	h.updateLevel(b)
}

func (h *HealthTracker) updateLevel(b *BackendHealth) {
	oldLevel := b.Level
	now := h.now()

	var level DegradationLevel
	var message string

	switch {
	case b.ErrorRate >= h.config.EmergencyThreshold:
		level = LevelEmergency
		message = "Backend is in emergency state - high error rate"
	case b.ErrorRate >= h.config.CriticalThreshold:
		level = LevelCritical
		message = "Backend is in critical state - elevated error rate"
	case b.ErrorRate >= h.config.DegradedThreshold:
		level = LevelDegraded
		message = "Backend is degraded - moderate error rate"
	default:
		level = LevelNormal
		message = "Backend is healthy"
	}

	if level == LevelDegraded && b.DegradedSince != nil &&
		now.Sub(*b.DegradedSince) > h.config.MaxDegradedDuration {
		level = LevelEmergency
		message = "Backend has been degraded too long"
	}

	switch {
	case level == LevelDegraded && b.DegradedSince == nil:
		b.DegradedSince = &now
	case level != LevelDegraded && level != LevelEmergency:
		b.DegradedSince = nil
	}

	b.Level = level
	b.StatusMessage = message

	if oldLevel != level {
		slog.Warn("Backend degradation level changed",
			"backend", b.Name,
			"old_level", oldLevel.String(),
			"new_level", level.String(),
			"error_rate", b.ErrorRate,
			"total_requests", b.TotalRequests)
	}
}

// Get returns a copy of one backend's health.
func (h *HealthTracker) Get(name string) (BackendHealth, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	b, exists := h.backends[name]
	if !exists {
		return BackendHealth{}, false
	}
	return *b, true
}

// All returns a copy of every backend's health.
func (h *HealthTracker) All() map[string]BackendHealth {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := make(map[string]BackendHealth, len(h.backends))
	for name, b := range h.backends {
		out[name] = *b
	}
	return out
}

// Overall returns the worst level across backends.
func (h *HealthTracker) Overall() DegradationLevel {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	worst := LevelNormal
	for _, b := range h.backends {
		if b.Level > worst {
			worst = b.Level
		}
	}
	return worst
}

// Reset clears a backend's counters.
func (h *HealthTracker) Reset(name string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.backends[name]; exists {
		h.backends[name] = newBackendHealth(name)
		slog.Info("Backend health reset", "backend", name)
	}
}

// RunChecks runs every registered health check once and records the
// results.
func (h *HealthTracker) RunChecks(ctx context.Context) {
	h.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mutex.RUnlock()

	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.config.CheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				h.RecordRequest(name, fmt.Errorf("health check failed for %s: %w", name, err))
				return
			}
			h.RecordRequest(name, nil)
		}(name, check)
	}
	wg.Wait()
}

// StartHealthChecks runs RunChecks every CheckInterval until ctx ends.
func (h *HealthTracker) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(h.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.RunChecks(ctx)
		}
	}
}
