package adapters

import "github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"

// StatusConfigured is reported for single-backend adapters whose API key is set.
const StatusConfigured = "configured"

// Set is the full collection of metric adapters sharing one set of Deps.
type Set struct {
	PageSpeed *PageSpeedAdapter
	SERP      *SERPAdapter
	Whois     *WhoisAdapter
	Authority *AuthorityAdapter
}

// NewSet builds every adapter. lookup may be nil to use the port-43 client.
func NewSet(deps Deps, lookup WhoisLookup) *Set {
	deps = deps.withDefaults()
	return &Set{
		PageSpeed: NewPageSpeedAdapter(deps),
		SERP:      NewSERPAdapter(deps),
		Whois:     NewWhoisAdapter(deps, lookup),
		Authority: NewAuthorityAdapter(deps),
	}
}

// Status reports which backend each adapter resolved to.
func (s *Set) Status() types.ServiceStatus {
	status := types.ServiceStatus{
		PageSpeed: types.SourceFallback,
		SERP:      s.SERP.Backend(),
		WHOIS:     types.SourceFallback,
		Authority: s.Authority.Backend(),
	}
	if s.PageSpeed.IsConfigured() {
		status.PageSpeed = StatusConfigured
	}
	if s.Whois.IsConfigured() {
		status.WHOIS = StatusConfigured
	}
	return status
}
