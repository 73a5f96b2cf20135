package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"golang.org/x/sync/semaphore"
)

// ClientConfig configures the shared outbound HTTP client.
type ClientConfig struct {
	MaxConcurrent   int
	Timeout         time.Duration
	MaxIdle         int
	IdleConnTimeout time.Duration
	Breaker         CircuitBreakerConfig
}

// DefaultClientConfig returns sensible defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxConcurrent:   10,
		Timeout:         45 * time.Second,
		MaxIdle:         20,
		IdleConnTimeout: 90 * time.Second,
		Breaker:         DefaultCircuitBreakerConfig(),
	}
}

// errServerStatus marks a 5xx response as a breaker failure while the
// response itself is still handed back to the caller.
var errServerStatus = errors.New("upstream server error")

// Client is the outbound HTTP client shared by every adapter. It bounds
// the number of in-flight requests, trips a breaker per backend and records
// each outcome for health reporting.
type Client struct {
	http     *http.Client
	sem      *semaphore.Weighted
	breakers *CircuitBreakerRegistry
	health   *HealthTracker
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger
}

// NewClient creates a client. health, metrics and logger may be nil.
func NewClient(config ClientConfig, health *HealthTracker, metrics *monitoring.Metrics, logger *monitoring.Logger) *Client {
	def := DefaultClientConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = def.MaxConcurrent
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxIdle <= 0 {
		config.MaxIdle = def.MaxIdle
	}
	if config.IdleConnTimeout <= 0 {
		config.IdleConnTimeout = def.IdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdle,
		MaxConnsPerHost:       config.MaxConcurrent,
		MaxIdleConnsPerHost:   max(1, config.MaxIdle/2),
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if logger == nil {
		logger = monitoring.Discard()
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		sem:      semaphore.NewWeighted(int64(config.MaxConcurrent)),
		breakers: NewCircuitBreakerRegistry(config.Breaker),
		health:   health,
		metrics:  metrics,
		logger:   logger.WithComponent("http_client"),
	}
}

// Do sends req on behalf of backend. Transport errors and 5xx responses count
// against the backend's breaker; 5xx responses are still returned with a nil
// error so the caller can read them.
func (c *Client) Do(ctx context.Context, backend string, req *http.Request) (*http.Response, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	var resp *http.Response
	start := time.Now()

	err := c.breakers.GetOrCreate(backend).Call(func() error {
		var err error
		resp, err = c.http.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	})
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	success := err == nil && status < http.StatusBadRequest

	c.logger.ExternalAPILogger(backend, req.Method, req.URL.Host+req.URL.Path, status, duration, success)
	if c.metrics != nil {
		c.metrics.RecordExternalAPIRequest(backend, success)
	}
	if c.health != nil && !IsCircuitOpen(err) {
		var healthErr error
		switch {
		case err != nil:
			healthErr = err
		case status >= http.StatusInternalServerError:
			healthErr = NewHTTPError(status, resp.Status)
		}
		c.health.RecordRequest(backend, healthErr)
	}

	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	if err != nil {
		c.logger.Debug("Outbound request failed", "backend", backend, "error", err)
		return nil, err
	}
	return resp, nil
}

// DoTarget sends req to the site under evaluation. It shares the concurrency
// bound but has no breaker or health entry, since every request goes to a
// different host.
func (c *Client) DoTarget(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.logger.ExternalAPILogger("target", req.Method, req.URL.Host, status, time.Since(start), err == nil)
	return resp, err
}

// BreakerStats returns the state of every backend's breaker.
func (c *Client) BreakerStats() map[string]any {
	return c.breakers.GetStats()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
