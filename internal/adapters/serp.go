package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

const (
	BackendSerpAPI = "serpapi"
	BackendGCS     = "gcs"

	maxSERPResults = 30
	gcsPageSize    = 10
)

// SERP error strings reported per keyword.
const (
	ErrSERPNotConfigured = "No SERP API configured"
	ErrSERPRateLimited   = "SERP API rate limited"
)

type serpQuery struct {
	domain   string
	keywords []string
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

type gcsResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// SERPAdapter checks where a domain ranks for each target keyword.
type SERPAdapter struct {
	deps    Deps
	cache   *cache.Cache
	backend Backend[serpQuery, types.SERPSummary]
}

// NewSERPAdapter creates the adapter and resolves its backend: SerpApi,
// then Google Custom Search, then the fallback.
func NewSERPAdapter(deps Deps) *SERPAdapter {
	a := &SERPAdapter{deps: deps.withDefaults()}
	a.cache = a.deps.Caches.Get(cache.NamespaceSERP)
	keys := a.deps.Keys
	a.backend = Select(
		Backend[serpQuery, types.SERPSummary]{
			Name:       BackendSerpAPI,
			Configured: keys.SerpAPI != "",
			Fetch:      a.perKeyword(BackendSerpAPI, a.serpAPIKeyword),
		},
		Backend[serpQuery, types.SERPSummary]{
			Name:       BackendGCS,
			Configured: keys.GCSKey != "" && keys.GCSCX != "",
			Fetch:      a.perKeyword(BackendGCS, a.gcsKeyword),
		},
		Backend[serpQuery, types.SERPSummary]{
			Name:       types.SourceFallback,
			Configured: true,
			Fetch:      a.unverified,
		},
	)
	return a
}

// Backend returns the resolved backend name.
func (a *SERPAdapter) Backend() string { return a.backend.Name }

// CheckKeywords ranks domain for each keyword. No keywords yields an empty
// summary without touching any backend.
func (a *SERPAdapter) CheckKeywords(ctx context.Context, domain string, keywords []string) types.SERPSummary {
	if len(keywords) == 0 {
		return types.SERPSummary{Results: []types.SERPResult{}, Source: a.backend.Name}
	}

	domain = strings.ToLower(strings.TrimSpace(domain))
	key := cache.Key("serp_", []any{domain, fmt.Sprintf("%q", keywords)}, nil)
	return cached(a.cache, key, func() (types.SERPSummary, bool) {
		return a.backend.Fetch(ctx, serpQuery{domain: domain, keywords: keywords})
	})
}

// keywordFunc checks one keyword. It returns the result and the error that
// produced it, if any.
type keywordFunc func(ctx context.Context, domain, keyword string) (types.SERPResult, error)

// perKeyword checks keywords one at a time. Once the backend rate limits us
// the remaining keywords are reported unverified rather than queried.
func (a *SERPAdapter) perKeyword(backend string, check keywordFunc) func(context.Context, serpQuery) (types.SERPSummary, bool) {
	return func(ctx context.Context, q serpQuery) (types.SERPSummary, bool) {
		results := make([]types.SERPResult, 0, len(q.keywords))
		cacheable := true
		limited := false

		for _, kw := range q.keywords {
			if limited {
				results = append(results, types.SERPResult{Keyword: kw, Error: ErrSERPRateLimited})
				continue
			}

			res, err := check(ctx, q.domain, kw)
			if err != nil {
				if shortCircuit(err) {
					a.deps.fallback("serp", backend, err)
					limited = true
					res = types.SERPResult{Keyword: kw, Error: ErrSERPRateLimited}
				}
				if transient(err) {
					cacheable = false
				}
			}
			results = append(results, res)
		}

		summary := summarize(results, backend)
		summary.IsApproximate = limited
		return summary, cacheable
	}
}

func (a *SERPAdapter) serpAPIKeyword(ctx context.Context, domain, keyword string) (types.SERPResult, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("api_key", a.deps.Keys.SerpAPI)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(maxSERPResults))
	params.Set("gl", "us")
	params.Set("hl", "en")
	endpoint := a.deps.Endpoints.SerpAPI + "?" + params.Encode()

	data, err := resilience.Fetch(ctx, a.deps.Limiter, ratelimit.OriginSerpAPI,
		func(ctx context.Context) (serpAPIResponse, error) {
			var out serpAPIResponse
			err := a.deps.doJSON(ctx, BackendSerpAPI, http.MethodGet, endpoint, nil, &out)
			return out, err
		})
	if err != nil {
		return types.SERPResult{Keyword: keyword, Error: keywordError(err)}, err
	}

	links := make([]string, 0, len(data.OrganicResults))
	for _, r := range data.OrganicResults {
		links = append(links, r.Link)
	}
	return rankResult(keyword, domain, links, 1), nil
}

// gcsKeyword pages through the first thirty results ten at a time. A 429
// ends paging and the keyword counts as not found.
func (a *SERPAdapter) gcsKeyword(ctx context.Context, domain, keyword string) (types.SERPResult, error) {
	for start := 1; start <= maxSERPResults; start += gcsPageSize {
		params := url.Values{}
		params.Set("q", keyword)
		params.Set("key", a.deps.Keys.GCSKey)
		params.Set("cx", a.deps.Keys.GCSCX)
		params.Set("start", strconv.Itoa(start))
		params.Set("num", strconv.Itoa(gcsPageSize))
		endpoint := a.deps.Endpoints.GCS + "?" + params.Encode()

		data, err := resilience.Fetch(ctx, a.deps.Limiter, ratelimit.OriginGCS,
			func(ctx context.Context) (gcsResponse, error) {
				var out gcsResponse
				err := a.deps.doJSON(ctx, BackendGCS, http.MethodGet, endpoint, nil, &out)
				return out, err
			})
		if err != nil {
			if apperrors.IsRateLimited(err) {
				a.deps.Logger.Warn("GCS rate limited", "keyword", keyword, "start", start)
				return types.SERPResult{Keyword: keyword}, err
			}
			return types.SERPResult{Keyword: keyword, Error: keywordError(err)}, err
		}

		links := make([]string, 0, len(data.Items))
		for _, item := range data.Items {
			links = append(links, item.Link)
		}
		if res := rankResult(keyword, domain, links, start); res.Rank != nil {
			return res, nil
		}
	}
	return types.SERPResult{Keyword: keyword}, nil
}

// unverified reports every keyword as not found.
func (a *SERPAdapter) unverified(_ context.Context, q serpQuery) (types.SERPSummary, bool) {
	a.deps.Logger.Warn("Using SERP fallback - no API configured", "keywords", len(q.keywords))

	results := make([]types.SERPResult, 0, len(q.keywords))
	for _, kw := range q.keywords {
		results = append(results, types.SERPResult{Keyword: kw, Error: ErrSERPNotConfigured})
	}
	summary := summarize(results, types.SourceFallback)
	summary.IsApproximate = true
	return summary, true
}

func keywordError(err error) string {
	if apperrors.IsTimeout(err) {
		return "Timeout"
	}
	return describeError(err)
}

// rankResult finds the first link whose host contains domain. Ranks are
// 1-based and offset by the page's first position.
func rankResult(keyword, domain string, links []string, first int) types.SERPResult {
	for i, link := range links {
		host := linkHost(link)
		if host == "" || !strings.Contains(host, domain) {
			continue
		}
		rank := first + i
		return types.SERPResult{
			Keyword: keyword,
			Rank:    types.Ptr(rank),
			IsTop10: rank <= 10,
			IsTop30: rank <= 30,
		}
	}
	return types.SERPResult{Keyword: keyword}
}

func linkHost(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func summarize(results []types.SERPResult, source string) types.SERPSummary {
	summary := types.SERPSummary{Results: results, Source: source}
	for _, r := range results {
		if r.IsTop10 {
			summary.HitsTop10++
		}
		if r.IsTop30 {
			summary.HitsTop30++
		}
	}
	return summary
}

// SERPSubscore awards one point per top-10 keyword and half a point per
// keyword ranked 11-30, averaged over keywordCount.
func SERPSubscore(summary types.SERPSummary, keywordCount int) float64 {
	if keywordCount <= 0 {
		return 0
	}

	points := 0.0
	for _, r := range summary.Results {
		switch {
		case r.IsTop10:
			points += 1.0
		case r.IsTop30:
			points += 0.5
		}
	}
	return max(0.0, min(1.0, points/float64(keywordCount)))
}
