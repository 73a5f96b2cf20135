package scoring

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declared(total int) types.DeclaredScoreResult {
	return types.DeclaredScoreResult{Total: total}
}

func observed(cwv, onpage, authority, serp int) types.ObservedScoreResult {
	return types.ObservedScoreResult{
		CoreWebVitals:    cwv,
		OnPage:           onpage,
		AuthorityProxies: authority,
		SERPReality:      serp,
		Total:            cwv + onpage + authority + serp,
		OnPageRaw:        types.OnPageMetrics{TitlePresent: true, MetaPresent: true, MetaUnique: true, H1Present: true, TitleQuality: 1, MetaQuality: 1, H1Relevance: 1},
	}
}

func TestFinalScore(t *testing.T) {
	assert.Equal(t, 65, FinalScore(declared(32), observed(14, 10, 6, 3)))
	assert.Equal(t, 100, FinalScore(declared(50), types.ObservedScoreResult{Total: 60}))
	assert.Equal(t, 0, FinalScore(declared(0), types.ObservedScoreResult{Total: -5}))
}

func TestRiskCategories(t *testing.T) {
	excluded := observed(20, 15, 10, 0)
	excluded.SERPExcluded = true

	tests := []struct {
		name     string
		declared types.DeclaredScoreResult
		observed types.ObservedScoreResult
		want     []string
	}{
		{
			name:     "moderate buckets ranked by ratio with ties in bucket order",
			declared: declared(32),
			observed: observed(14, 10, 6, 3),
			want:     []string{RiskAuthorityModerate, RiskSERPModerate, RiskOnPageModerate},
		},
		{
			name:     "everything failing keeps bucket order",
			declared: declared(10),
			observed: observed(0, 0, 0, 0),
			want:     []string{RiskCWVCritical, RiskOnPagePoor, RiskAuthorityPoor},
		},
		{
			name:     "overclaiming ranks first",
			declared: declared(45),
			observed: observed(4, 15, 10, 5),
			want:     []string{RiskDeclaredHigh, RiskCWVCritical, RiskCWVModerate},
		},
		{
			name:     "underclaiming is padded with fillers",
			declared: declared(10),
			observed: observed(20, 15, 10, 5),
			want:     []string{RiskObservedHigh, RiskCWVModerate, RiskOnPageModerate},
		},
		{
			name:     "perfect site gets fillers only",
			declared: declared(50),
			observed: observed(20, 15, 10, 5),
			want:     []string{RiskCWVModerate, RiskOnPageModerate},
		},
		{
			name:     "excluded serp raises no risk",
			declared: declared(45),
			observed: excluded,
			want:     []string{RiskCWVModerate, RiskOnPageModerate},
		},
		{
			name:     "cwv poor band",
			declared: declared(45),
			observed: observed(10, 15, 10, 5),
			want:     []string{RiskCWVPoor, RiskCWVModerate, RiskOnPageModerate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskCategories(tt.declared, tt.observed))
		})
	}
}

func TestTopRisksEvidence(t *testing.T) {
	obs := observed(5, 0, 2, 1)
	obs.CWV = types.CoreWebVitals{LCPMs: types.Ptr(4200), CLS: types.Ptr(0.21), INPMs: types.Ptr(350)}
	obs.OnPageRaw = types.OnPageMetrics{}
	obs.Domain = types.DomainInfo{AgeYears: types.Ptr(2)}
	obs.Authority = types.AuthorityMetrics{DomainAuthority: types.Ptr(30), IsApproximate: true}
	obs.SERP = types.SERPSummary{HitsTop10: 1, Source: "serpapi"}
	obs.Keywords = []string{"a", "b", "c"}

	risks := TopRisks(declared(15), obs)
	require.Len(t, risks, MaxRisks)
	assert.Equal(t, RiskTemplates[RiskOnPagePoor]+" (title missing, meta description missing, no H1)", risks[0])
	assert.Equal(t, RiskTemplates[RiskAuthorityPoor]+" (domain age 2y, est. DA 30)", risks[1])
	assert.Equal(t, RiskTemplates[RiskSERPPoor]+" (1 of 3 keywords in top 10)", risks[2])

	cwvOnly := observed(5, 15, 10, 5)
	cwvOnly.CWV = obs.CWV
	risks = TopRisks(declared(35), cwvOnly)
	assert.Equal(t, RiskTemplates[RiskCWVCritical]+" (LCP 4200ms, CLS 0.21, INP 350ms)", risks[0])
}

func TestTopRisksWithoutEvidence(t *testing.T) {
	risks := TopRisks(declared(50), observed(20, 15, 10, 5))
	require.Len(t, risks, MaxRisks)
	assert.Equal(t, RiskTemplates[RiskCWVModerate], risks[0])
	assert.Equal(t, RiskTemplates[RiskOnPageModerate], risks[1])
	assert.Equal(t, GenericRisk, risks[2])
}

func TestOnPageEvidence(t *testing.T) {
	tests := []struct {
		name string
		m    types.OnPageMetrics
		want string
	}{
		{"blocked", types.OnPageMetrics{BotBlocked: true, Error: "Site restricts automated access"}, "site blocked automated access"},
		{"fetch error", types.OnPageMetrics{Error: "HTTP 500"}, "page could not be fetched: HTTP 500"},
		{"short title generic meta", types.OnPageMetrics{TitlePresent: true, TitleLength: 12, TitleQuality: 0.33, MetaPresent: true, H1Present: true}, "title 12 chars, meta description generic"},
		{"meta length", types.OnPageMetrics{TitlePresent: true, TitleQuality: 1, MetaPresent: true, MetaUnique: true, MetaLength: 70, MetaQuality: 0.66, H1Present: true}, "meta description 70 chars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, onPageEvidence(tt.m))
		})
	}
}

func TestBuildResponse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := types.DeclaredScoreResult{Technical: 15, ContentKeywords: 12, Measurement: 5, Total: 32}
	o := observed(14, 10, 6, 3)
	o.Notes = "Core Web Vitals from PageSpeed Insights API."
	o.Domain = types.DomainInfo{AgeYears: types.Ptr(9)}
	o.Authority = types.AuthorityMetrics{ReferringDomains: types.Ptr(45)}
	o.SERP = types.SERPSummary{HitsTop10: 1, HitsTop30: 2}

	resp := BuildResponse(d, o, Options{Now: func() time.Time { return now }, RequestID: "req-1"})

	assert.Equal(t, 65, resp.TotalScore)
	assert.Equal(t, "Structured", resp.Stage)
	assert.Equal(t, 32, resp.QuestionnaireScore)
	assert.Equal(t, 33, resp.ObservedScore)
	assert.Equal(t, types.DeclaredScores{Technical: 15, ContentKeywords: 12, Measurement: 5}, resp.DimensionScores.Declared)
	assert.Equal(t, types.ObservedScores{CoreWebVitals: 14, OnPage: 10, AuthorityProxies: 6, SERPReality: 3}, resp.DimensionScores.Observed)
	assert.Equal(t, "Minimal — declared and observed capabilities are well-aligned", resp.DeclaredVsObservedGap)
	assert.Len(t, resp.TopRisks, MaxRisks)
	assert.Equal(t, o.Notes, resp.Notes)
	assert.Equal(t, "2025-06-01T12:00:00Z", resp.GeneratedAt)
	assert.Equal(t, "req-1", resp.RequestID)

	raw := resp.RawSignalsSummary
	assert.Equal(t, 9, *raw.DomainAgeYears)
	assert.Equal(t, 45, *raw.ReferringDomainsEstimate)
	assert.Equal(t, 1, raw.SERPHitsTop10)
	assert.Equal(t, 2, raw.SERPHitsTop30)
	assert.True(t, *raw.TitlePresent)
	assert.Nil(t, raw.CWVNotes)
	assert.Nil(t, raw.OnPageNotes)
}

func TestBuildResponseGeneratedAt(t *testing.T) {
	d := types.DeclaredScoreResult{Technical: 15, ContentKeywords: 12, Measurement: 5, Total: 32}
	now := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.FixedZone("CEST", 2*60*60))

	resp := BuildResponse(d, observed(14, 10, 6, 3), Options{Now: func() time.Time { return now }})

	assert.Equal(t, "2025-06-01T10:00:00Z", resp.GeneratedAt)
	_, err := time.Parse(time.RFC3339, resp.GeneratedAt)
	assert.NoError(t, err)
}

func TestBuildResponseChaotic(t *testing.T) {
	var offered []string
	chooser := func(options []string) string {
		offered = options
		return options[1]
	}

	o := observed(0, 0, 5, 0)
	o.Notes = "SERP visibility could not be verified (no API configured)."
	resp := BuildResponse(declared(10), o, Options{Chooser: chooser})

	assert.Equal(t, "Chaotic", resp.Stage)
	assert.Equal(t, ChaoticErrorCodes, offered)
	assert.Equal(t,
		"CRITICAL SYSTEM FAILURE [ERR_AUTHORITY_VOID]: SERP visibility could not be verified (no API configured). "+
			"Structural SEO deficiencies detected. Immediate remediation required to prevent total organic obsolescence and permanent market irrelevance.",
		resp.Notes)
}

func TestBuildResponseRawSignals(t *testing.T) {
	tests := []struct {
		name         string
		onpage       types.OnPageMetrics
		cwvError     string
		wantTitle    *bool
		wantMeta     *bool
		wantNotes    *string
		wantCWVNotes *string
	}{
		{
			name:      "blocked site leaves title and meta unknown",
			onpage:    types.OnPageMetrics{BotBlocked: true, Error: "Site restricts automated access"},
			wantNotes: types.Ptr("Site restricts automated access - on-page data estimated"),
		},
		{
			name:         "fetch error is passed through",
			onpage:       types.OnPageMetrics{Error: "HTTP 500"},
			cwvError:     "API error: 500",
			wantTitle:    types.Ptr(false),
			wantMeta:     types.Ptr(false),
			wantNotes:    types.Ptr("HTTP 500"),
			wantCWVNotes: types.Ptr("API error: 500"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := observed(10, 5, 5, 0)
			o.OnPageRaw = tt.onpage
			o.CWV.Error = tt.cwvError

			raw := BuildResponse(declared(40), o, Options{}).RawSignalsSummary
			assert.Equal(t, tt.wantTitle, raw.TitlePresent)
			assert.Equal(t, tt.wantMeta, raw.MetaUnique)
			assert.Equal(t, tt.wantNotes, raw.OnPageNotes)
			assert.Equal(t, tt.wantCWVNotes, raw.CWVNotes)
		})
	}
}

func TestRandomChooser(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Contains(t, ChaoticErrorCodes, RandomChooser(ChaoticErrorCodes))
	}
}
