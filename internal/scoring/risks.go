package scoring

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

// Risk categories, ordered roughly from most to least severe.
const (
	RiskCWVCritical       = "cwv_critical"
	RiskCWVPoor           = "cwv_poor"
	RiskCWVModerate       = "cwv_moderate"
	RiskOnPagePoor        = "onpage_poor"
	RiskOnPageModerate    = "onpage_moderate"
	RiskAuthorityPoor     = "authority_poor"
	RiskAuthorityModerate = "authority_moderate"
	RiskSERPPoor          = "serp_reality_poor"
	RiskSERPModerate      = "serp_reality_moderate"
	RiskDeclaredHigh      = "declared_high"
	RiskObservedHigh      = "observed_high"
)

// MaxRisks is the number of risk statements in every response.
const MaxRisks = 3

// GenericRisk pads the list when fewer than MaxRisks categories apply.
const GenericRisk = "Continue monitoring SEO performance metrics"

// gapThreshold is the declared/observed point difference that is itself a risk.
const gapThreshold = 10

// RiskTemplates holds the headline for each risk category.
var RiskTemplates = map[string]string{
	RiskCWVCritical:       "CRITICAL PERFORMANCE COLLAPSE: Extreme latency detected. Site is actively hemorrhaging users and crawler efficiency.",
	RiskCWVPoor:           "TECHNICAL DECAY: Major performance bottlenecks. Core Web Vitals are in a state of failure.",
	RiskCWVModerate:       "UNSTABLE PERFORMANCE: Inconsistent user experience. Structural speed issues are developing.",
	RiskOnPagePoor:        "STRUCTURAL CATASTROPHE: Fundamental SEO signals (Title, Meta, H1) are missing or catastrophically misconfigured.",
	RiskOnPageModerate:    "SIGNAL MISALIGNMENT: Search engines are likely failing to interpret page relevance correctly.",
	RiskAuthorityPoor:     "TOTAL AUTHORITY VOID: Zero trust signals detected. Domain is invisible to the broader organic ecosystem.",
	RiskAuthorityModerate: "AUTHORITY DEFICIT: Domain trust signals are significantly lagging behind market reality.",
	RiskSERPPoor:          "ORGANIC OBSOLESCENCE: Critical target keywords have zero visibility in top SERP tiers.",
	RiskSERPModerate:      "FRAGMENTED VISIBILITY: Target keywords are failing to achieve or maintain consistent positioning.",
	RiskDeclaredHigh:      "CAPABILITY HALLUCINATION: Self-assessed SEO maturity is radically disconnected from observable technical reality.",
	RiskObservedHigh:      "UNDERUTILIZED ENGINE: Technical execution is strong but is being wasted by an unaligned strategy.",
}

type candidate struct {
	ratio    float64
	category string
}

// threshold maps a ratio below limit onto category.
type threshold struct {
	limit    float64
	category string
}

// bucketRisk returns the first category whose limit the ratio falls under.
func bucketRisk(score, weight int, bands ...threshold) (candidate, bool) {
	ratio := float64(score) / float64(weight)
	for _, b := range bands {
		if ratio < b.limit {
			return candidate{ratio: ratio, category: b.category}, true
		}
	}
	return candidate{}, false
}

// RiskCategories ranks the weakest signals and returns up to MaxRisks
// categories, weakest first. Ties keep bucket order.
func RiskCategories(declared types.DeclaredScoreResult, observed types.ObservedScoreResult) []string {
	var candidates []candidate
	add := func(c candidate, ok bool) {
		if ok {
			candidates = append(candidates, c)
		}
	}

	add(bucketRisk(observed.CoreWebVitals, types.WeightCWV,
		threshold{0.4, RiskCWVCritical}, threshold{0.6, RiskCWVPoor}, threshold{0.8, RiskCWVModerate}))
	add(bucketRisk(observed.OnPage, types.WeightOnPage,
		threshold{0.5, RiskOnPagePoor}, threshold{0.75, RiskOnPageModerate}))
	add(bucketRisk(observed.AuthorityProxies, types.WeightAuthority,
		threshold{0.5, RiskAuthorityPoor}, threshold{0.75, RiskAuthorityModerate}))
	if !observed.SERPExcluded {
		add(bucketRisk(observed.SERPReality, types.WeightSERP,
			threshold{0.5, RiskSERPPoor}, threshold{0.75, RiskSERPModerate}))
	}

	switch gap := declared.Total - observed.Total; {
	case gap > gapThreshold:
		candidates = append(candidates, candidate{0, RiskDeclaredHigh})
	case gap < -gapThreshold:
		candidates = append(candidates, candidate{0, RiskObservedHigh})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.ratio, b.ratio)
	})

	out := make([]string, 0, MaxRisks)
	for _, c := range candidates {
		if len(out) == MaxRisks {
			break
		}
		if !slices.Contains(out, c.category) {
			out = append(out, c.category)
		}
	}

	for _, filler := range []string{RiskCWVModerate, RiskOnPageModerate} {
		if len(out) < MaxRisks && !slices.Contains(out, filler) {
			out = append(out, filler)
		}
	}
	return out
}

// TopRisks renders the ranked categories as statements with the measured
// evidence behind each one. The list is padded with GenericRisk.
func TopRisks(declared types.DeclaredScoreResult, observed types.ObservedScoreResult) []string {
	categories := RiskCategories(declared, observed)

	risks := make([]string, 0, MaxRisks)
	for _, c := range categories {
		msg := RiskTemplates[c]
		if ev := evidence(c, declared, observed); ev != "" {
			msg += " (" + ev + ")"
		}
		risks = append(risks, msg)
	}
	if len(risks) < MaxRisks {
		risks = append(risks, GenericRisk)
	}
	return risks
}

func evidence(category string, declared types.DeclaredScoreResult, observed types.ObservedScoreResult) string {
	switch category {
	case RiskCWVCritical, RiskCWVPoor, RiskCWVModerate:
		return cwvEvidence(observed.CWV)
	case RiskOnPagePoor, RiskOnPageModerate:
		return onPageEvidence(observed.OnPageRaw)
	case RiskAuthorityPoor, RiskAuthorityModerate:
		return authorityEvidence(observed.Domain, observed.Authority)
	case RiskSERPPoor, RiskSERPModerate:
		return serpEvidence(observed.SERP, len(observed.Keywords))
	case RiskDeclaredHigh, RiskObservedHigh:
		return fmt.Sprintf("declared %d vs observed %d", declared.Total, observed.Total)
	}
	return ""
}

func cwvEvidence(m types.CoreWebVitals) string {
	var parts []string
	if m.LCPMs != nil {
		parts = append(parts, fmt.Sprintf("LCP %dms", *m.LCPMs))
	}
	if m.CLS != nil {
		parts = append(parts, fmt.Sprintf("CLS %.2f", *m.CLS))
	}
	if m.INPMs != nil {
		parts = append(parts, fmt.Sprintf("INP %dms", *m.INPMs))
	}
	if len(parts) == 0 && m.Error != "" {
		return "no performance data"
	}
	return strings.Join(parts, ", ")
}

func onPageEvidence(m types.OnPageMetrics) string {
	switch {
	case m.BotBlocked:
		return "site blocked automated access"
	case m.Error != "":
		return "page could not be fetched: " + m.Error
	}

	var parts []string
	if !m.TitlePresent {
		parts = append(parts, "title missing")
	} else if m.TitleQuality < 1 {
		parts = append(parts, fmt.Sprintf("title %d chars", m.TitleLength))
	}
	switch {
	case !m.MetaPresent:
		parts = append(parts, "meta description missing")
	case !m.MetaUnique:
		parts = append(parts, "meta description generic")
	case m.MetaQuality < 1:
		parts = append(parts, fmt.Sprintf("meta description %d chars", m.MetaLength))
	}
	if !m.H1Present {
		parts = append(parts, "no H1")
	}
	return strings.Join(parts, ", ")
}

func authorityEvidence(info types.DomainInfo, m types.AuthorityMetrics) string {
	var parts []string
	if info.AgeYears != nil {
		parts = append(parts, fmt.Sprintf("domain age %dy", *info.AgeYears))
	}
	if m.DomainAuthority != nil {
		label := "DA"
		if m.IsApproximate {
			label = "est. DA"
		}
		parts = append(parts, fmt.Sprintf("%s %d", label, *m.DomainAuthority))
	}
	return strings.Join(parts, ", ")
}

func serpEvidence(s types.SERPSummary, keywordCount int) string {
	if keywordCount == 0 {
		return "no target keywords"
	}
	if s.Source == types.SourceFallback {
		return "rankings unverified"
	}
	return fmt.Sprintf("%d of %d keywords in top 10", s.HitsTop10, keywordCount)
}
