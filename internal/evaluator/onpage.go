package evaluator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

const (
	pageUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	pageAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	pageAcceptLanguage = "en-US,en;q=0.5"

	maxPageBody = 5 << 20
)

const (
	ErrBotBlocked  = "Site restricts automated access"
	ErrPageTimeout = "Timeout fetching page"
)

// Placeholder text that marks a meta description as boilerplate.
var genericMetaPatterns = []string{
	"lorem ipsum",
	"placeholder",
	"add your description here",
	"enter description",
	"default description",
	"todo:",
}

// PageAnalyzer fetches the target page and reads its on-page SEO signals.
type PageAnalyzer struct {
	client  *resilience.Client
	timeout time.Duration
	logger  *monitoring.Logger
}

// NewPageAnalyzer creates a page analyzer. A nil logger discards output.
func NewPageAnalyzer(client *resilience.Client, timeout time.Duration, logger *monitoring.Logger) *PageAnalyzer {
	if logger == nil {
		logger = monitoring.Discard()
	}
	return &PageAnalyzer{client: client, timeout: timeout, logger: logger.WithComponent("onpage")}
}

// Analyze fetches pageURL with browser-like headers and parses the result.
// Failures are reported on the returned metrics, never as an error.
func (p *PageAnalyzer) Analyze(ctx context.Context, pageURL string) types.OnPageMetrics {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return p.failed(pageURL, err)
	}
	req.Header.Set("User-Agent", pageUserAgent)
	req.Header.Set("Accept", pageAccept)
	req.Header.Set("Accept-Language", pageAcceptLanguage)

	resp, err := p.client.DoTarget(ctx, req)
	if err != nil {
		return p.failed(pageURL, err)
	}
	defer apperrors.SafeClose(resp.Body, "page body")

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return types.OnPageMetrics{
			BotBlocked:   true,
			TitleQuality: types.NeutralOnPageQuality,
			MetaQuality:  types.NeutralOnPageQuality,
			H1Relevance:  types.NeutralOnPageQuality,
			Error:        ErrBotBlocked,
		}
	case resp.StatusCode != http.StatusOK:
		return types.OnPageMetrics{H1Relevance: types.DefaultH1Relevance, Error: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	m, err := ParseOnPage(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return p.failed(pageURL, err)
	}
	return m
}

func (p *PageAnalyzer) failed(pageURL string, err error) types.OnPageMetrics {
	msg := err.Error()
	if apperrors.IsTimeout(err) {
		msg = ErrPageTimeout
	}
	p.logger.Warn("On-page analysis failed", "url", pageURL, "error", err)
	return types.OnPageMetrics{H1Relevance: types.DefaultH1Relevance, Error: msg}
}

// ParseOnPage reads title, meta description, H1 and canonical signals from
// an HTML document.
func ParseOnPage(r io.Reader) (types.OnPageMetrics, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return types.OnPageMetrics{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	titleLen := utf8.RuneCountInString(title)

	meta := doc.Find(`meta[name="description"]`).First()
	content, _ := meta.Attr("content")
	metaPresent := content != ""
	content = strings.TrimSpace(content)
	metaLen := utf8.RuneCountInString(content)
	metaUnique := metaPresent && metaLen > 50 && !isGenericMeta(content)

	h1Present := strings.TrimSpace(doc.Find("h1").First().Text()) != ""
	h1Relevance := 0.0
	if h1Present {
		h1Relevance = 1.0
	}

	canonical, _ := doc.Find(`link[rel~="canonical"]`).First().Attr("href")

	return types.OnPageMetrics{
		TitlePresent:     titleLen > 0,
		TitleLength:      titleLen,
		TitleQuality:     titleQuality(titleLen),
		MetaPresent:      metaPresent,
		MetaLength:       metaLen,
		MetaUnique:       metaUnique,
		MetaQuality:      metaQuality(metaPresent, metaUnique, metaLen),
		H1Present:        h1Present,
		H1Relevance:      h1Relevance,
		CanonicalPresent: canonical != "",
	}, nil
}

func isGenericMeta(content string) bool {
	lower := strings.ToLower(content)
	for _, p := range genericMetaPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func titleQuality(length int) float64 {
	switch {
	case length == 0:
		return 0
	case length >= 30 && length <= 60:
		return 1.0
	case length >= 20 && length <= 70:
		return 0.66
	default:
		return 0.33
	}
}

func metaQuality(present, unique bool, length int) float64 {
	switch {
	case !present:
		return 0
	case unique && length >= 100 && length <= 160:
		return 1.0
	case length >= 50 && length <= 200:
		return 0.66
	default:
		return 0.33
	}
}

// OnPageSubscore averages the title, meta and H1 scores. A blocked page keeps
// its neutral scores; any other failure scores zero.
func OnPageSubscore(m types.OnPageMetrics) float64 {
	if m.Error != "" && !m.BotBlocked {
		return 0
	}
	return (m.TitleQuality + m.MetaQuality + m.H1Relevance) / 3.0
}
