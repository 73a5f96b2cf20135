package evaluator

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/adapters"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/rounding"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/security"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	noteCWVLive         = "Core Web Vitals from PageSpeed Insights API"
	noteCWVEstimated    = "Core Web Vitals estimated from timing heuristics (approximate)"
	noteAuthorityPrefix = "Authority metrics from "
	noteAuthorityEst    = "Authority estimated from domain age and heuristics (approximate)"
	noteSERPPrefix      = "SERP data from "
	noteSERPUnverified  = "SERP visibility could not be verified (no API configured)"
	noteSERPExcluded    = "SERP visibility excluded from scoring (no API configured)"
)

// ObservedConfig tunes the observed evaluator.
type ObservedConfig struct {
	// ExcludeUnverifiedSERP scores the SERP bucket as unknown rather than
	// zero when no SERP API is configured.
	ExcludeUnverifiedSERP bool
	// Brand defaults to NoBrandPresence.
	Brand BrandChecker
}

// ObservedEvaluator scores what can be measured about a live site.
type ObservedEvaluator struct {
	adapters *adapters.Set
	page     *PageAnalyzer
	brand    BrandChecker
	exclude  bool
	logger   *monitoring.Logger
}

// NewObservedEvaluator wires the evaluator to its adapters and page analyzer.
func NewObservedEvaluator(set *adapters.Set, page *PageAnalyzer, cfg ObservedConfig, logger *monitoring.Logger) *ObservedEvaluator {
	if logger == nil {
		logger = monitoring.Discard()
	}
	brand := cfg.Brand
	if brand == nil {
		brand = NoBrandPresence
	}
	return &ObservedEvaluator{
		adapters: set,
		page:     page,
		brand:    brand,
		exclude:  cfg.ExcludeUnverifiedSERP,
		logger:   logger.WithComponent("observed"),
	}
}

// Evaluate measures pageURL and converts the readings into bucket scores.
// Adapter failures degrade individual buckets; the evaluation itself never
// fails.
func (e *ObservedEvaluator) Evaluate(ctx context.Context, pageURL string, keywords []string, brand string) types.ObservedScoreResult {
	domain := security.ExtractDomain(pageURL)
	if keywords == nil {
		keywords = []string{}
	}

	var (
		cwv    types.CoreWebVitals
		onpage types.OnPageMetrics
		info   types.DomainInfo
		serp   = types.SERPSummary{Results: []types.SERPResult{}, Source: e.adapters.SERP.Backend()}
	)

	// Tasks report failures in their results, so none of them returns an
	// error and the group always waits for all four.
	var g errgroup.Group
	g.Go(func() error {
		cwv = e.adapters.PageSpeed.GetMetrics(ctx, pageURL)
		return nil
	})
	g.Go(func() error {
		onpage = e.page.Analyze(ctx, pageURL)
		return nil
	})
	g.Go(func() error {
		info = e.adapters.Whois.GetDomainInfo(ctx, domain)
		return nil
	})
	if len(keywords) > 0 {
		g.Go(func() error {
			serp = e.adapters.SERP.CheckKeywords(ctx, domain, keywords)
			return nil
		})
	}
	_ = g.Wait()

	hasBrand := false
	if brand != "" && e.adapters.Authority.Backend() == types.SourceFallback {
		hasBrand = e.brand(ctx, brand, domain)
	}
	authority := e.adapters.Authority.GetAuthority(ctx, domain, info.AgeYears, hasBrand)

	result := types.ObservedScoreResult{
		CoreWebVitals:    rounding.BucketScore(adapters.CWVSubscore(cwv), types.WeightCWV),
		OnPage:           rounding.BucketScore(OnPageSubscore(onpage), types.WeightOnPage),
		AuthorityProxies: rounding.BucketScore(adapters.AuthoritySubscore(authority, info.AgeYears, hasBrand), types.WeightAuthority),
		SERPExcluded:     e.exclude && e.adapters.SERP.Backend() == types.SourceFallback,
		CWV:              cwv,
		OnPageRaw:        onpage,
		Domain:           info,
		Authority:        authority,
		SERP:             serp,
		Keywords:         keywords,
	}
	if !result.SERPExcluded {
		result.SERPReality = rounding.BucketScore(adapters.SERPSubscore(serp, len(keywords)), types.WeightSERP)
	}

	result.Total = min(types.HalfScoreMax,
		result.CoreWebVitals+result.OnPage+result.AuthorityProxies+result.SERPReality)
	result.Notes = e.notes(result.SERPExcluded)

	e.logger.Debug("Observed evaluation complete",
		"domain", domain,
		"cwv", result.CoreWebVitals,
		"onpage", result.OnPage,
		"authority", result.AuthorityProxies,
		"serp", result.SERPReality,
		"serp_excluded", result.SERPExcluded,
		"total", result.Total)

	return result
}

// notes describes where each observed reading came from.
func (e *ObservedEvaluator) notes(serpExcluded bool) string {
	parts := make([]string, 0, 3)

	if e.adapters.PageSpeed.IsConfigured() {
		parts = append(parts, noteCWVLive)
	} else {
		parts = append(parts, noteCWVEstimated)
	}

	if b := e.adapters.Authority.Backend(); b != types.SourceFallback {
		parts = append(parts, noteAuthorityPrefix+strings.ToUpper(b))
	} else {
		parts = append(parts, noteAuthorityEst)
	}

	switch b := e.adapters.SERP.Backend(); {
	case serpExcluded:
		parts = append(parts, noteSERPExcluded)
	case b != types.SourceFallback:
		parts = append(parts, noteSERPPrefix+strings.ToUpper(b))
	default:
		parts = append(parts, noteSERPUnverified)
	}

	return strings.Join(parts, "; ") + "."
}
