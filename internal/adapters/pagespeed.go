package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

const (
	BackendPageSpeed = "pagespeed"

	// "Good" thresholds for Core Web Vitals.
	LCPGoodMs = 2500
	CLSGood   = 0.1
	INPGoodMs = 200

	// maxTimingBody caps the body read when timing the target site.
	maxTimingBody = 5 << 20
)

type psiMetric struct {
	Percentile   *float64 `json:"percentile"`
	NumericValue *float64 `json:"numericValue"`
}

// value prefers the CrUX percentile over the raw numeric value.
func (m psiMetric) value() *float64 {
	if m.Percentile != nil {
		return m.Percentile
	}
	return m.NumericValue
}

type psiResponse struct {
	LoadingExperience struct {
		Metrics map[string]psiMetric `json:"metrics"`
	} `json:"loadingExperience"`
	LighthouseResult struct {
		Audits map[string]psiMetric `json:"audits"`
	} `json:"lighthouseResult"`
}

// PageSpeedAdapter measures Core Web Vitals, from PageSpeed Insights when a
// key is configured and from the target's response timing otherwise.
type PageSpeedAdapter struct {
	deps    Deps
	cache   *cache.Cache
	backend Backend[string, types.CoreWebVitals]
}

// NewPageSpeedAdapter creates the adapter and resolves its backend.
func NewPageSpeedAdapter(deps Deps) *PageSpeedAdapter {
	a := &PageSpeedAdapter{deps: deps.withDefaults()}
	a.cache = a.deps.Caches.Get(cache.NamespacePageSpeed)
	a.backend = Select(
		Backend[string, types.CoreWebVitals]{
			Name:       BackendPageSpeed,
			Configured: a.deps.Keys.PageSpeed != "",
			Fetch:      a.fetchFromAPI,
		},
		Backend[string, types.CoreWebVitals]{
			Name:       types.SourceFallback,
			Configured: true,
			Fetch:      a.estimateFromTiming,
		},
	)
	return a
}

// Backend returns the resolved backend name.
func (a *PageSpeedAdapter) Backend() string { return a.backend.Name }

// IsConfigured reports whether a PageSpeed key is in use.
func (a *PageSpeedAdapter) IsConfigured() bool { return a.backend.Name != types.SourceFallback }

// GetMetrics returns the Core Web Vitals for pageURL.
func (a *PageSpeedAdapter) GetMetrics(ctx context.Context, pageURL string) types.CoreWebVitals {
	key := cache.Key("psi_", []any{pageURL}, nil)
	return cached(a.cache, key, func() (types.CoreWebVitals, bool) {
		return a.backend.Fetch(ctx, pageURL)
	})
}

func (a *PageSpeedAdapter) fetchFromAPI(ctx context.Context, pageURL string) (types.CoreWebVitals, bool) {
	params := url.Values{}
	params.Set("url", pageURL)
	params.Set("key", a.deps.Keys.PageSpeed)
	params.Set("strategy", "mobile")
	params.Set("category", "performance")
	endpoint := a.deps.Endpoints.PageSpeed + "?" + params.Encode()

	data, err := resilience.Fetch(ctx, a.deps.Limiter, ratelimit.OriginPageSpeed,
		func(ctx context.Context) (psiResponse, error) {
			var out psiResponse
			err := a.deps.doJSON(ctx, BackendPageSpeed, http.MethodGet, endpoint, nil, &out)
			return out, err
		})
	if err != nil {
		if shortCircuit(err) {
			a.deps.fallback(BackendPageSpeed, BackendPageSpeed, err)
			cwv, _ := a.estimateFromTiming(ctx, pageURL)
			return cwv, false
		}
		return types.CoreWebVitals{Source: BackendPageSpeed, Error: pageSpeedError(err)}, !transient(err)
	}

	return parsePageSpeed(data), true
}

func pageSpeedError(err error) string {
	var httpErr *resilience.HTTPError
	var decodeErr *decodeError
	switch {
	case apperrors.IsTimeout(err):
		return "API request timed out"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("API error: %d", httpErr.StatusCode)
	case errors.As(err, &decodeErr):
		return "Failed to parse API response: " + decodeErr.Error()
	default:
		return "Unexpected error: " + describeError(err)
	}
}

// parsePageSpeed prefers CrUX field data and fills gaps from Lighthouse lab
// audits, which marks the result approximate.
func parsePageSpeed(data psiResponse) types.CoreWebVitals {
	cwv := types.CoreWebVitals{Source: BackendPageSpeed}
	field := data.LoadingExperience.Metrics

	if m, ok := field["LARGEST_CONTENTFUL_PAINT_MS"]; ok {
		if v := m.value(); v != nil {
			cwv.LCPMs = types.Ptr(int(*v))
		}
	}
	if m, ok := field["CUMULATIVE_LAYOUT_SHIFT_SCORE"]; ok {
		if v := m.value(); v != nil {
			cwv.CLS = types.Ptr(*v / 100)
		}
	}
	if m, ok := field["INTERACTION_TO_NEXT_PAINT"]; ok {
		if v := m.value(); v != nil {
			cwv.INPMs = types.Ptr(int(*v))
		}
	}

	audits := data.LighthouseResult.Audits
	if cwv.LCPMs == nil {
		if v := audits["largest-contentful-paint"].NumericValue; v != nil && *v != 0 {
			cwv.LCPMs = types.Ptr(int(*v))
			cwv.IsApproximate = true
		}
	}
	if cwv.CLS == nil {
		if v := audits["cumulative-layout-shift"].NumericValue; v != nil {
			cwv.CLS = types.Ptr(*v)
			cwv.IsApproximate = true
		}
	}
	// TBT is not INP, but doubled it is a usable interactivity proxy.
	if cwv.INPMs == nil {
		if v := audits["total-blocking-time"].NumericValue; v != nil && *v != 0 {
			cwv.INPMs = types.Ptr(int(*v * 2))
			cwv.IsApproximate = true
		}
	}

	var missing []string
	if cwv.LCPMs == nil {
		missing = append(missing, "LCP")
	}
	if cwv.CLS == nil {
		missing = append(missing, "CLS")
	}
	if cwv.INPMs == nil {
		missing = append(missing, "INP")
	}

	switch {
	case len(missing) > 0:
		cwv.Error = fmt.Sprintf("No Chrome user data available for %s. Site may have insufficient traffic for CrUX data.",
			strings.Join(missing, ", "))
	case cwv.IsApproximate:
		cwv.Error = "Using Lighthouse lab data (simulated, not real user metrics)"
	}
	return cwv
}

// estimateFromTiming times a plain GET of the page and derives rough
// metrics from the elapsed time and body size.
func (a *PageSpeedAdapter) estimateFromTiming(ctx context.Context, pageURL string) (types.CoreWebVitals, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.deps.Timeout)
	defer cancel()

	failed := func(err error) (types.CoreWebVitals, bool) {
		msg := "Could not analyze site: " + describeError(err)
		if apperrors.IsTimeout(err) {
			msg = "Site unreachable or timeout"
		}
		return types.CoreWebVitals{Source: types.SourceFallback, IsApproximate: true, Error: msg}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return failed(err)
	}

	start := a.deps.Now()
	resp, err := a.deps.Client.DoTarget(ctx, req)
	if err != nil {
		return failed(err)
	}
	defer resp.Body.Close()

	size, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxTimingBody))
	if err != nil {
		return failed(err)
	}
	elapsed := a.deps.Now().Sub(start)

	return timingEstimate(elapsed, size), true
}

func timingEstimate(elapsed time.Duration, size int64) types.CoreWebVitals {
	totalMs := int(elapsed.Milliseconds())

	cls := 0.05
	switch {
	case size > 500000:
		cls = 0.15
	case size > 200000:
		cls = 0.08
	}

	return types.CoreWebVitals{
		LCPMs:         types.Ptr(int(float64(totalMs) * 1.5)),
		CLS:           types.Ptr(cls),
		INPMs:         types.Ptr(min(totalMs, 500)),
		Source:        types.SourceFallback,
		IsApproximate: true,
		Error:         "Estimated from response timing (PageSpeed API not available)",
	}
}

// CWVSubscore maps the number of passing Core Web Vitals to [0,1]. A page
// with no LCP reading scores zero.
func CWVSubscore(m types.CoreWebVitals) float64 {
	if m.LCPMs == nil {
		return 0
	}

	passing := 0
	if *m.LCPMs <= LCPGoodMs {
		passing++
	}
	if m.CLS != nil && *m.CLS <= CLSGood {
		passing++
	}
	if m.INPMs != nil && *m.INPMs <= INPGoodMs {
		passing++
	}

	switch passing {
	case 3:
		return 1.0
	case 2:
		return 0.75
	case 1:
		return 0.5
	default:
		return 0.25
	}
}
