package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/rounding"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

const (
	BackendMoz      = "moz"
	BackendAhrefs   = "ahrefs"
	BackendMajestic = "majestic"

	// mozSignatureTTL is how long a signed Moz request stays valid, in seconds.
	mozSignatureTTL = 300
)

type authorityQuery struct {
	domain   string
	ageYears *int
	brand    bool
}

type mozResponse struct {
	Results []struct {
		DomainAuthority *float64 `json:"domain_authority"`
		RootDomains     *float64 `json:"root_domains_to_root_domain"`
	} `json:"results"`
}

// AuthorityAdapter reads or estimates domain authority.
type AuthorityAdapter struct {
	deps    Deps
	cache   *cache.Cache
	backend Backend[authorityQuery, types.AuthorityMetrics]
}

// NewAuthorityAdapter creates the adapter and resolves its backend: Moz,
// Ahrefs, Majestic, then the heuristic estimate.
func NewAuthorityAdapter(deps Deps) *AuthorityAdapter {
	a := &AuthorityAdapter{deps: deps.withDefaults()}
	a.cache = a.deps.Caches.Get(cache.NamespaceAuthority)
	keys := a.deps.Keys
	a.backend = Select(
		Backend[authorityQuery, types.AuthorityMetrics]{
			Name:       BackendMoz,
			Configured: keys.MozID != "" && keys.MozSecret != "",
			Fetch:      a.fetchFromMoz,
		},
		Backend[authorityQuery, types.AuthorityMetrics]{
			Name:       BackendAhrefs,
			Configured: keys.Ahrefs != "",
			Fetch:      a.placeholder(BackendAhrefs),
		},
		Backend[authorityQuery, types.AuthorityMetrics]{
			Name:       BackendMajestic,
			Configured: keys.Majestic != "",
			Fetch:      a.placeholder(BackendMajestic),
		},
		Backend[authorityQuery, types.AuthorityMetrics]{
			Name:       types.SourceFallback,
			Configured: true,
			Fetch: func(_ context.Context, q authorityQuery) (types.AuthorityMetrics, bool) {
				return EstimateAuthority(q.ageYears, q.brand), true
			},
		},
	)
	return a
}

// Backend returns the resolved backend name.
func (a *AuthorityAdapter) Backend() string { return a.backend.Name }

// GetAuthority returns authority metrics for domain. ageYears and brand feed
// the heuristic estimate and are ignored by API backends.
func (a *AuthorityAdapter) GetAuthority(ctx context.Context, domain string, ageYears *int, brand bool) types.AuthorityMetrics {
	domain = strings.ToLower(strings.TrimSpace(domain))

	age := "none"
	if ageYears != nil {
		age = strconv.Itoa(*ageYears)
	}
	key := cache.Key("auth_", []any{domain, age, brand}, nil)

	return cached(a.cache, key, func() (types.AuthorityMetrics, bool) {
		return a.backend.Fetch(ctx, authorityQuery{domain: domain, ageYears: ageYears, brand: brand})
	})
}

// MozSignature signs a Moz request: base64(HMAC-SHA1(secret, "id\nexpires")).
func MozSignature(accessID, secret string, expires int64) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(accessID + "\n" + strconv.FormatInt(expires, 10)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (a *AuthorityAdapter) fetchFromMoz(ctx context.Context, q authorityQuery) (types.AuthorityMetrics, bool) {
	body, err := json.Marshal(map[string][]string{"targets": {q.domain}})
	if err != nil {
		return types.AuthorityMetrics{Source: BackendMoz, Error: err.Error()}, false
	}

	data, err := resilience.Fetch(ctx, a.deps.Limiter, ratelimit.OriginMoz,
		func(ctx context.Context) (mozResponse, error) {
			expires := a.deps.Now().Unix() + mozSignatureTTL
			params := url.Values{}
			params.Set("AccessID", a.deps.Keys.MozID)
			params.Set("Expires", strconv.FormatInt(expires, 10))
			params.Set("Signature", MozSignature(a.deps.Keys.MozID, a.deps.Keys.MozSecret, expires))
			endpoint := a.deps.Endpoints.Moz + "?" + params.Encode()

			var out mozResponse
			err := a.deps.doJSON(ctx, BackendMoz, http.MethodPost, endpoint, body, &out)
			return out, err
		})
	if err != nil {
		if shortCircuit(err) {
			a.deps.fallback("authority", BackendMoz, err)
			return EstimateAuthority(q.ageYears, q.brand), false
		}
		msg := describeError(err)
		if apperrors.IsTimeout(err) {
			msg = "Timeout"
		}
		return types.AuthorityMetrics{Source: BackendMoz, Error: msg}, !transient(err)
	}

	if len(data.Results) == 0 {
		return types.AuthorityMetrics{Source: BackendMoz, Error: "No results from Moz"}, true
	}

	result := data.Results[0]
	metrics := types.AuthorityMetrics{
		DomainAuthority:  types.Ptr(0),
		ReferringDomains: types.Ptr(0),
		Source:           BackendMoz,
	}
	if result.DomainAuthority != nil {
		metrics.DomainAuthority = types.Ptr(int(rounding.RoundHalfUp(*result.DomainAuthority, 0)))
	}
	if result.RootDomains != nil {
		metrics.ReferringDomains = types.Ptr(int(*result.RootDomains))
	}
	return metrics, true
}

// placeholder stands in for a paid API whose endpoint depends on the
// subscription. It estimates from the same signals as the fallback but keeps
// the configured backend as the source. Brand presence is only probed in
// fallback mode, so q.brand is false here.
func (a *AuthorityAdapter) placeholder(backend string) func(context.Context, authorityQuery) (types.AuthorityMetrics, bool) {
	return func(_ context.Context, q authorityQuery) (types.AuthorityMetrics, bool) {
		a.deps.Logger.Warn("Authority backend not implemented, using fallback", "backend", backend)
		a.deps.Metrics.RecordFallback("authority")
		m := EstimateAuthority(q.ageYears, q.brand)
		m.Source = backend
		return m, true
	}
}

// EstimateAuthority derives a DA-like figure from domain age and brand
// presence. Referring domains are guessed at five per year for domains two
// years or older.
func EstimateAuthority(ageYears *int, brand bool) types.AuthorityMetrics {
	da := int(rounding.RoundHalfUp(DomainAgeScore(ageYears)*100, 0))
	var refs *int

	if ageYears != nil && *ageYears >= 2 {
		refs = types.Ptr(*ageYears * 5)
		if *refs > 5 {
			da += 40
		}
	}

	if brand {
		da += 20
	}

	return types.AuthorityMetrics{
		DomainAuthority:  types.Ptr(min(da, 100)),
		ReferringDomains: refs,
		Source:           types.SourceFallback,
		IsApproximate:    true,
	}
}

// AuthoritySubscore normalises authority to [0,1]. A failed lookup falls
// back to domain age and brand presence alone.
func AuthoritySubscore(m types.AuthorityMetrics, ageYears *int, brand bool) float64 {
	if m.Error != "" && m.DomainAuthority == nil {
		score := 0.0
		if ageYears != nil {
			switch {
			case *ageYears >= 5:
				score += 0.4
			case *ageYears >= 1:
				score += 0.2
			}
		}
		if brand {
			score += 0.2
		}
		return min(score, 1.0)
	}

	if m.DomainAuthority != nil {
		return min(float64(*m.DomainAuthority)/100.0, 1.0)
	}

	score := 0.0
	if ageYears != nil && *ageYears >= 5 {
		score += 0.4
	}
	if m.ReferringDomains != nil && *m.ReferringDomains > 5 {
		score += 0.4
	}
	if brand {
		score += 0.2
	}
	return min(score, 1.0)
}
