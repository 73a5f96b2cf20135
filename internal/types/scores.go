package types

// Declared dimension weights.
const (
	WeightTechnical   = 20
	WeightContent     = 20
	WeightMeasurement = 10
)

// Observed bucket weights.
const (
	WeightCWV       = 20
	WeightOnPage    = 15
	WeightAuthority = 10
	WeightSERP      = 5
)

// Maximum of each half of the final score.
const HalfScoreMax = 50

// DeclaredScoreResult holds the questionnaire dimension scores.
type DeclaredScoreResult struct {
	Technical       int `json:"technical"`
	ContentKeywords int `json:"content_keywords"`
	Measurement     int `json:"measurement"`
	Total           int `json:"total"`
}

// ObservedScoreResult holds the observed bucket scores and the raw metrics
// they were derived from.
type ObservedScoreResult struct {
	CoreWebVitals    int  `json:"core_web_vitals"`
	OnPage           int  `json:"onpage"`
	AuthorityProxies int  `json:"authority_proxies"`
	SERPReality      int  `json:"serp_reality"`
	Total            int  `json:"total"`
	SERPExcluded     bool `json:"serp_excluded"`

	CWV       CoreWebVitals    `json:"cwv"`
	OnPageRaw OnPageMetrics    `json:"onpage_raw"`
	Domain    DomainInfo       `json:"domain"`
	Authority AuthorityMetrics `json:"authority"`
	SERP      SERPSummary      `json:"serp"`
	Keywords  []string         `json:"keywords"`
	Notes     string           `json:"notes"`
}
