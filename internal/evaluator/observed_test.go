package evaluator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/adapters"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestEvaluator builds an evaluator with no API keys, a fixed clock and a
// WHOIS lookup that reports a domain registered at the start of 2018.
func newTestEvaluator(t *testing.T, cfg ObservedConfig) *ObservedEvaluator {
	t.Helper()

	metrics := monitoring.NewMetrics()
	client := testClient()
	deps := adapters.Deps{
		Client: client,
		Limiter: ratelimit.NewOriginLimiter(ratelimit.OriginConfig{
			RequestsPerSecond: 1000,
			MaxRetries:        1,
			BaseBackoff:       time.Millisecond,
			MaxBackoff:        time.Millisecond,
		}, metrics),
		Caches:  cache.NewRegistry(100, time.Hour, metrics, nil),
		Metrics: metrics,
		Keys:    config.APIKeys{},
		Timeout: 2 * time.Second,
		Now:     func() time.Time { return fixedNow },
	}
	lookup := func(string) (adapters.WhoisRecord, error) {
		return adapters.WhoisRecord{CreatedDate: "2018-01-01T00:00:00Z", Registrar: "Test Registrar"}, nil
	}

	set := adapters.NewSet(deps, lookup)
	return NewObservedEvaluator(set, NewPageAnalyzer(client, 2*time.Second, nil), cfg, nil)
}

func siteServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	html := page(
		"<title>"+strings.Repeat("t", 40)+"</title>"+metaDescription(strings.Repeat("m", 120)),
		"<h1>Heading</h1>",
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestObservedEvaluatorFallbacks(t *testing.T) {
	server := siteServer(t, http.StatusOK)
	e := newTestEvaluator(t, ObservedConfig{})

	got := e.Evaluate(context.Background(), server.URL+"/", []string{"seo audit"}, "Acme")

	assert.Equal(t, 20, got.CoreWebVitals, "zero elapsed time passes every vital")
	assert.Equal(t, 15, got.OnPage)
	assert.Equal(t, 8, got.AuthorityProxies, "seven year old domain estimates DA 80")
	assert.Equal(t, 0, got.SERPReality)
	assert.Equal(t, 43, got.Total)
	assert.False(t, got.SERPExcluded)

	assert.Equal(t, types.SourceFallback, got.CWV.Source)
	assert.Equal(t, 7, *got.Domain.AgeYears)
	assert.Equal(t, 35, *got.Authority.ReferringDomains)
	require.Len(t, got.SERP.Results, 1)
	assert.Equal(t, adapters.ErrSERPNotConfigured, got.SERP.Results[0].Error)
	assert.Equal(t, []string{"seo audit"}, got.Keywords)

	assert.Equal(t,
		"Core Web Vitals estimated from timing heuristics (approximate); "+
			"Authority estimated from domain age and heuristics (approximate); "+
			"SERP visibility could not be verified (no API configured).",
		got.Notes)
}

func TestObservedEvaluatorExcludesUnverifiedSERP(t *testing.T) {
	server := siteServer(t, http.StatusOK)
	e := newTestEvaluator(t, ObservedConfig{ExcludeUnverifiedSERP: true})

	got := e.Evaluate(context.Background(), server.URL, []string{"a", "b"}, "")

	assert.True(t, got.SERPExcluded)
	assert.Equal(t, 0, got.SERPReality)
	assert.Equal(t, 43, got.Total)
	assert.True(t, strings.HasSuffix(got.Notes, "SERP visibility excluded from scoring (no API configured)."), got.Notes)
}

func TestObservedEvaluatorBrandPresence(t *testing.T) {
	server := siteServer(t, http.StatusOK)

	var calls atomic.Int32
	var gotBrand, gotDomain string
	e := newTestEvaluator(t, ObservedConfig{Brand: func(_ context.Context, brand, domain string) bool {
		calls.Add(1)
		gotBrand, gotDomain = brand, domain
		return true
	}})

	got := e.Evaluate(context.Background(), server.URL, nil, "Acme")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Acme", gotBrand)
	assert.Equal(t, "127.0.0.1", gotDomain)
	assert.Equal(t, 10, got.AuthorityProxies, "brand presence lifts the estimate to DA 100")

	e.Evaluate(context.Background(), server.URL, nil, "")
	assert.Equal(t, int32(1), calls.Load(), "no brand means no check")
}

func TestObservedEvaluatorWithoutKeywords(t *testing.T) {
	server := siteServer(t, http.StatusOK)
	e := newTestEvaluator(t, ObservedConfig{})

	got := e.Evaluate(context.Background(), server.URL, nil, "")
	assert.NotNil(t, got.SERP.Results)
	assert.Empty(t, got.SERP.Results)
	assert.NotNil(t, got.Keywords)
	assert.Equal(t, 0, got.SERPReality)
}

func TestObservedEvaluatorBlockedSite(t *testing.T) {
	server := siteServer(t, http.StatusForbidden)
	e := newTestEvaluator(t, ObservedConfig{})

	got := e.Evaluate(context.Background(), server.URL, nil, "")
	assert.True(t, got.OnPageRaw.BotBlocked)
	assert.Equal(t, 8, got.OnPage, "neutral scores give half of 15, rounded up")
}
