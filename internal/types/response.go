package types

// DeclaredScores is the questionnaire breakdown in a response.
type DeclaredScores struct {
	Technical       int `json:"technical"`
	ContentKeywords int `json:"content_keywords"`
	Measurement     int `json:"measurement"`
}

// ObservedScores is the observed-signal breakdown in a response.
type ObservedScores struct {
	CoreWebVitals    int `json:"core_web_vitals"`
	OnPage           int `json:"onpage"`
	AuthorityProxies int `json:"authority_proxies"`
	SERPReality      int `json:"serp_reality"`
}

// DimensionScores groups both breakdowns.
type DimensionScores struct {
	Declared DeclaredScores `json:"declared"`
	Observed ObservedScores `json:"observed"`
}

// RawSignalsSummary exposes the measured values behind the observed scores.
// TitlePresent and MetaUnique are nil when the site blocked the fetch.
type RawSignalsSummary struct {
	LCPMs                    *int     `json:"lcp_ms"`
	CLS                      *float64 `json:"cls"`
	INPMs                    *int     `json:"inp_ms"`
	CWVNotes                 *string  `json:"cwv_notes"`
	TitlePresent             *bool    `json:"title_present"`
	MetaUnique               *bool    `json:"meta_unique"`
	H1Present                bool     `json:"h1_present"`
	OnPageNotes              *string  `json:"onpage_notes"`
	DomainAgeYears           *int     `json:"domain_age_years"`
	ReferringDomainsEstimate *int     `json:"referring_domains_estimate"`
	SERPHitsTop10            int      `json:"serp_hits_top10"`
	SERPHitsTop30            int      `json:"serp_hits_top30"`
}

// GraderResponse is the complete, presentation-ready grading report.
type GraderResponse struct {
	TotalScore            int               `json:"total_score"`
	Stage                 string            `json:"stage"`
	QuestionnaireScore    int               `json:"questionnaire_score"`
	ObservedScore         int               `json:"observed_score"`
	DimensionScores       DimensionScores   `json:"dimension_scores"`
	DeclaredVsObservedGap string            `json:"declared_vs_observed_gap"`
	TopRisks              []string          `json:"top_risks"`
	RawSignalsSummary     RawSignalsSummary `json:"raw_signals_summary"`
	Notes                 string            `json:"notes"`
	GeneratedAt           string            `json:"generated_at"`
	RequestID             string            `json:"request_id,omitempty"`
}

// ServiceStatus reports which backend each metric adapter resolved to.
type ServiceStatus struct {
	PageSpeed string `json:"pagespeed"`
	SERP      string `json:"serp"`
	WHOIS     string `json:"whois"`
	Authority string `json:"authority"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Services ServiceStatus  `json:"services"`
	Backends map[string]any `json:"backends,omitempty"`
}
