package adapters

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"
)

const (
	BackendWhoisXML = "whoisxml"
	BackendWhois    = "whois"
)

// createdDateLayouts are tried in order against the first 19 characters of
// a creation date.
var createdDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// WhoisRecord is the subset of a WHOIS response the grader uses.
type WhoisRecord struct {
	CreatedDate string
	Registrar   string
}

// WhoisLookup performs a blocking WHOIS query.
type WhoisLookup func(domain string) (WhoisRecord, error)

// LookupWhois queries the registry over port 43 and parses the reply.
func LookupWhois(domain string) (WhoisRecord, error) {
	raw, err := whois.Whois(domain)
	if err != nil {
		return WhoisRecord{}, err
	}

	info, err := whoisparser.Parse(raw)
	if err != nil {
		return WhoisRecord{}, err
	}

	var rec WhoisRecord
	if info.Domain != nil {
		rec.CreatedDate = info.Domain.CreatedDate
	}
	if info.Registrar != nil {
		rec.Registrar = info.Registrar.Name
	}
	return rec, nil
}

type whoisXMLResponse struct {
	WhoisRecord struct {
		CreatedDate   string `json:"createdDate"`
		RegistrarName string `json:"registrarName"`
		RegistryData  struct {
			CreatedDate string `json:"createdDate"`
		} `json:"registryData"`
	} `json:"WhoisRecord"`
}

// WhoisAdapter looks up domain registration age.
type WhoisAdapter struct {
	deps    Deps
	cache   *cache.Cache
	lookup  WhoisLookup
	backend Backend[string, types.DomainInfo]
}

// NewWhoisAdapter creates the adapter. lookup replaces the port-43 client
// and may be nil.
func NewWhoisAdapter(deps Deps, lookup WhoisLookup) *WhoisAdapter {
	if lookup == nil {
		lookup = LookupWhois
	}

	a := &WhoisAdapter{deps: deps.withDefaults(), lookup: lookup}
	a.cache = a.deps.Caches.Get(cache.NamespaceWHOIS)
	a.backend = Select(
		Backend[string, types.DomainInfo]{
			Name:       BackendWhoisXML,
			Configured: a.deps.Keys.WhoisXML != "",
			Fetch:      a.fetchFromAPI,
		},
		Backend[string, types.DomainInfo]{
			Name:       types.SourceFallback,
			Configured: true,
			Fetch:      a.fallbackWhois,
		},
	)
	return a
}

// Backend returns the resolved backend name.
func (a *WhoisAdapter) Backend() string { return a.backend.Name }

// IsConfigured reports whether the WHOISXML API is in use.
func (a *WhoisAdapter) IsConfigured() bool { return a.backend.Name != types.SourceFallback }

// GetDomainInfo returns the registration facts for domain.
func (a *WhoisAdapter) GetDomainInfo(ctx context.Context, domain string) types.DomainInfo {
	domain = CleanDomain(domain)
	key := cache.Key("whois_", []any{domain}, nil)
	return cached(a.cache, key, func() (types.DomainInfo, bool) {
		return a.backend.Fetch(ctx, domain)
	})
}

// CleanDomain lowercases domain, strips a leading "www." and reduces it to
// the registrable domain where the public suffix list knows it.
func CleanDomain(domain string) string {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	domain = strings.TrimPrefix(domain, "www.")
	if net.ParseIP(domain) != nil {
		return domain
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		return etld1
	}
	return domain
}

func (a *WhoisAdapter) fetchFromAPI(ctx context.Context, domain string) (types.DomainInfo, bool) {
	params := url.Values{}
	params.Set("apiKey", a.deps.Keys.WhoisXML)
	params.Set("domainName", domain)
	params.Set("outputFormat", "JSON")
	endpoint := a.deps.Endpoints.WhoisXML + "?" + params.Encode()

	data, err := resilience.Fetch(ctx, a.deps.Limiter, ratelimit.OriginWhoisXML,
		func(ctx context.Context) (whoisXMLResponse, error) {
			var out whoisXMLResponse
			err := a.deps.doJSON(ctx, BackendWhoisXML, http.MethodGet, endpoint, nil, &out)
			return out, err
		})
	if err != nil {
		if shortCircuit(err) {
			a.deps.fallback(BackendWhois, BackendWhoisXML, err)
			info, _ := a.fallbackWhois(ctx, domain)
			return info, false
		}
		msg := describeError(err)
		if apperrors.IsTimeout(err) {
			msg = "Timeout"
		}
		return types.DomainInfo{Domain: domain, Source: BackendWhoisXML, Error: msg}, !transient(err)
	}

	created := data.WhoisRecord.CreatedDate
	if created == "" {
		created = data.WhoisRecord.RegistryData.CreatedDate
	}

	info := a.domainInfo(domain, created, data.WhoisRecord.RegistrarName)
	info.Source = BackendWhoisXML
	return info, true
}

// fallbackWhois runs the blocking lookup on its own goroutine and abandons
// it when the call's deadline passes.
func (a *WhoisAdapter) fallbackWhois(ctx context.Context, domain string) (types.DomainInfo, bool) {
	rec, err := resilience.Fetch(ctx, a.deps.Limiter, ratelimit.OriginWhois,
		func(ctx context.Context) (WhoisRecord, error) {
			return a.lookupWithTimeout(ctx, domain)
		})
	if err != nil {
		a.deps.Logger.Warn("WHOIS fallback failed", "domain", domain, "error", err)
		return types.DomainInfo{
			Domain:        domain,
			Source:        types.SourceFallback,
			Error:         "WHOIS lookup failed: " + describeError(err),
			IsApproximate: true,
		}, !transient(err)
	}

	info := a.domainInfo(domain, rec.CreatedDate, rec.Registrar)
	info.Source = types.SourceFallback
	info.IsApproximate = true
	return info, true
}

func (a *WhoisAdapter) lookupWithTimeout(ctx context.Context, domain string) (WhoisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.deps.Timeout)
	defer cancel()

	type outcome struct {
		rec WhoisRecord
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rec, err := a.lookup(domain)
		done <- outcome{rec: rec, err: err}
	}()

	select {
	case o := <-done:
		return o.rec, o.err
	case <-ctx.Done():
		return WhoisRecord{}, ctx.Err()
	}
}

func (a *WhoisAdapter) domainInfo(domain, created, registrar string) types.DomainInfo {
	info := types.DomainInfo{Domain: domain, Registrar: registrar}

	t, ok := parseCreatedDate(created)
	if !ok {
		if created != "" {
			a.deps.Logger.Warn("Could not parse creation date", "domain", domain, "created", created)
		}
		return info
	}

	info.CreatedDate = t.Format("2006-01-02")
	info.AgeYears = types.Ptr(AgeInYears(t, a.deps.Now()))
	return info
}

func parseCreatedDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 19 {
		s = s[:19]
	}
	for _, layout := range createdDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AgeInYears counts whole 365-day years from created to now.
func AgeInYears(created, now time.Time) int {
	days := int(now.Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 365
}

// DomainAgeScore is the domain age contribution to the estimated authority,
// in [0,0.4].
func DomainAgeScore(ageYears *int) float64 {
	if ageYears == nil {
		return 0
	}
	switch age := *ageYears; {
	case age >= 5:
		return 0.4
	case age >= 3:
		return 0.3
	case age >= 1:
		return 0.2
	default:
		return 0.1
	}
}
