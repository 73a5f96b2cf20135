package types

// Source tag used by every adapter when its heuristic produced the value.
const SourceFallback = "fallback"

// CoreWebVitals is the performance reading for one URL.
type CoreWebVitals struct {
	LCPMs         *int     `json:"lcp_ms"`
	CLS           *float64 `json:"cls"`
	INPMs         *int     `json:"inp_ms"`
	Source        string   `json:"source"`
	Error         string   `json:"error,omitempty"`
	IsApproximate bool     `json:"is_approximate"`
}

// SERPResult is the ranking of the target domain for one keyword.
type SERPResult struct {
	Keyword string `json:"keyword"`
	Rank    *int   `json:"rank"`
	IsTop10 bool   `json:"is_top10"`
	IsTop30 bool   `json:"is_top30"`
	Error   string `json:"error,omitempty"`
}

// SERPSummary aggregates keyword rankings for a domain.
type SERPSummary struct {
	Results       []SERPResult `json:"results"`
	HitsTop10     int          `json:"hits_top10"`
	HitsTop30     int          `json:"hits_top30"`
	IsApproximate bool         `json:"is_approximate"`
	Source        string       `json:"source"`
}

// DomainInfo holds the WHOIS facts used for authority estimation.
type DomainInfo struct {
	Domain        string `json:"domain"`
	AgeYears      *int   `json:"age_years"`
	CreatedDate   string `json:"created_date,omitempty"`
	Registrar     string `json:"registrar,omitempty"`
	Source        string `json:"source"`
	Error         string `json:"error,omitempty"`
	IsApproximate bool   `json:"is_approximate"`
}

// AuthorityMetrics is a domain authority reading or estimate.
type AuthorityMetrics struct {
	DomainAuthority  *int   `json:"domain_authority"`
	ReferringDomains *int   `json:"referring_domains"`
	Source           string `json:"source"`
	Error            string `json:"error,omitempty"`
	IsApproximate    bool   `json:"is_approximate"`
}

// Neutral quality assigned to on-page signals the site refused to serve.
const NeutralOnPageQuality = 0.5

// Default H1 relevance before a page has been parsed.
const DefaultH1Relevance = 0.67

// OnPageMetrics is the result of analysing the target page's HTML.
type OnPageMetrics struct {
	TitlePresent     bool    `json:"title_present"`
	TitleLength      int     `json:"title_length"`
	TitleQuality     float64 `json:"title_quality"`
	MetaPresent      bool    `json:"meta_present"`
	MetaLength       int     `json:"meta_length"`
	MetaUnique       bool    `json:"meta_unique"`
	MetaQuality      float64 `json:"meta_quality"`
	H1Present        bool    `json:"h1_present"`
	H1Relevance      float64 `json:"h1_relevance"`
	CanonicalPresent bool    `json:"canonical_present"`
	BotBlocked       bool    `json:"bot_blocked"`
	Error            string  `json:"error,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
