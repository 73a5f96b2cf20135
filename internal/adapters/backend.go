// Package adapters fetches the raw website signals behind the observed score.
// Each adapter resolves one backend at construction: the first configured
// API in its list, or a heuristic fallback. Adapters never return errors;
// failures are reported in the metric's Error field.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
)

// maxAPIBody bounds how much of an API response is decoded.
const maxAPIBody = 10 << 20

// Endpoints holds the base URL of every upstream API. Tests point these at
// httptest servers.
type Endpoints struct {
	PageSpeed string
	SerpAPI   string
	GCS       string
	WhoisXML  string
	Moz       string
}

// DefaultEndpoints returns the production API URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		PageSpeed: "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
		SerpAPI:   "https://serpapi.com/search.json",
		GCS:       "https://www.googleapis.com/customsearch/v1",
		WhoisXML:  "https://www.whoisxmlapi.com/whoisserver/WhoisService",
		Moz:       "https://lsapi.seomoz.com/v2/url_metrics",
	}
}

// Deps are the collaborators shared by every adapter.
type Deps struct {
	Client    *resilience.Client
	Limiter   *ratelimit.OriginLimiter
	Caches    *cache.Registry
	Metrics   *monitoring.Metrics
	Logger    *monitoring.Logger
	Keys      config.APIKeys
	Endpoints Endpoints
	Timeout   time.Duration
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = monitoring.NewMetrics()
	}
	if d.Logger == nil {
		d.Logger = monitoring.Discard()
	}
	if d.Client == nil {
		d.Client = resilience.NewClient(resilience.DefaultClientConfig(), nil, d.Metrics, d.Logger)
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewOriginLimiter(ratelimit.DefaultOriginConfig(), d.Metrics).WithLogger(d.Logger)
	}
	if d.Caches == nil {
		d.Caches = cache.NewRegistry(cache.DefaultMaxSize, cache.DefaultTTL, d.Metrics, d.Logger)
	}
	if d.Endpoints == (Endpoints{}) {
		d.Endpoints = DefaultEndpoints()
	}
	if d.Timeout <= 0 {
		d.Timeout = 45 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Backend is one way of producing a metric. Fetch reports whether its
// result may be cached.
type Backend[In, Out any] struct {
	Name       string
	Configured bool
	Fetch      func(ctx context.Context, in In) (Out, bool)
}

// Select returns the first configured backend. The last entry is the
// heuristic and is used when nothing else is configured.
func Select[In, Out any](backends ...Backend[In, Out]) Backend[In, Out] {
	for _, b := range backends {
		if b.Configured {
			return b
		}
	}
	return backends[len(backends)-1]
}

var errNotCacheable = errors.New("result not cacheable")

// cached serves key from c or runs fetch, storing the result only when
// fetch marks it cacheable.
func cached[T any](c *cache.Cache, key string, fetch func() (T, bool)) T {
	result, _, _ := cache.GetOrCompute(c, key, func() (T, error) {
		v, ok := fetch()
		if !ok {
			return v, errNotCacheable
		}
		return v, nil
	})
	return result
}

// transient reports whether a failure may not recur, so its result must not
// be cached.
func transient(err error) bool {
	return resilience.ShouldRetry(err) ||
		resilience.IsCircuitOpen(err) ||
		apperrors.IsRateLimited(err) ||
		errors.Is(err, context.Canceled)
}

// shortCircuit reports whether an error should send the adapter straight
// to its heuristic.
func shortCircuit(err error) bool {
	return apperrors.IsRateLimited(err) || resilience.IsCircuitOpen(err)
}

// decodeError marks a response body that was not the JSON we expected.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// doJSON performs one attempt against backend under the per-call timeout
// and decodes a 2xx body into out.
func (d *Deps) doJSON(ctx context.Context, backend, method, endpoint string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return apperrors.NewInternalError("building request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.Client.Do(ctx, backend, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resilience.StatusError(backend, resp)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIBody)).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &decodeError{err: err}
	}
	return nil
}

// fallback records that adapter gave up on backend and used its heuristic.
func (d *Deps) fallback(adapter, backend string, reason error) {
	d.Metrics.RecordFallback(adapter)
	d.Logger.FallbackLogger(adapter, backend, reason.Error())
}

// describeError renders err for a metric's Error field.
func describeError(err error) string {
	var httpErr *resilience.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if cause := appErr.Unwrap(); cause != nil {
			return cause.Error()
		}
		return appErr.Message()
	}
	return err.Error()
}
