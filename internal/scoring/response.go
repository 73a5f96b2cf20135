// Package scoring combines the declared and observed halves of a grade into
// the final report.
package scoring

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/rounding"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

// ChaoticErrorCodes label the failure banner on chaotic-stage reports.
var ChaoticErrorCodes = []string{"ERR_STRUCTURAL_DECAY", "ERR_AUTHORITY_VOID", "ERR_CRAWL_TRAP"}

const (
	chaoticNotes = "CRITICAL SYSTEM FAILURE [%s]: %s Structural SEO deficiencies detected. " +
		"Immediate remediation required to prevent total organic obsolescence and permanent market irrelevance."
	blockedOnPageNotes = "Site restricts automated access - on-page data estimated"
)

// Chooser picks one of the options.
type Chooser func(options []string) string

// RandomChooser picks uniformly at random.
func RandomChooser(options []string) string {
	return options[rand.IntN(len(options))]
}

// Options controls the non-deterministic parts of a response.
type Options struct {
	Chooser   Chooser
	Now       func() time.Time
	RequestID string
}

func (o Options) withDefaults() Options {
	if o.Chooser == nil {
		o.Chooser = RandomChooser
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// FinalScore adds both halves and clamps the result to 0-100.
func FinalScore(declared types.DeclaredScoreResult, observed types.ObservedScoreResult) int {
	return max(0, min(100, declared.Total+observed.Total))
}

// BuildResponse assembles the complete report.
func BuildResponse(declared types.DeclaredScoreResult, observed types.ObservedScoreResult, opts Options) *types.GraderResponse {
	opts = opts.withDefaults()
	total := FinalScore(declared, observed)
	stage := rounding.StageOf(total)

	notes := observed.Notes
	if stage == rounding.StageChaotic {
		notes = fmt.Sprintf(chaoticNotes, opts.Chooser(ChaoticErrorCodes), notes)
	}

	return &types.GraderResponse{
		TotalScore:         total,
		Stage:              string(stage),
		QuestionnaireScore: declared.Total,
		ObservedScore:      observed.Total,
		DimensionScores: types.DimensionScores{
			Declared: types.DeclaredScores{
				Technical:       declared.Technical,
				ContentKeywords: declared.ContentKeywords,
				Measurement:     declared.Measurement,
			},
			Observed: types.ObservedScores{
				CoreWebVitals:    observed.CoreWebVitals,
				OnPage:           observed.OnPage,
				AuthorityProxies: observed.AuthorityProxies,
				SERPReality:      observed.SERPReality,
			},
		},
		DeclaredVsObservedGap: rounding.GapDescription(declared.Total, observed.Total),
		TopRisks:              TopRisks(declared, observed),
		RawSignalsSummary:     rawSignals(observed),
		Notes:                 notes,
		GeneratedAt:           opts.Now().UTC().Format(time.RFC3339),
		RequestID:             opts.RequestID,
	}
}

// rawSignals exposes the measured values. Title and meta findings are left
// unknown for blocked sites rather than reported as absent.
func rawSignals(observed types.ObservedScoreResult) types.RawSignalsSummary {
	cwv, onpage := observed.CWV, observed.OnPageRaw

	s := types.RawSignalsSummary{
		LCPMs:                    cwv.LCPMs,
		CLS:                      cwv.CLS,
		INPMs:                    cwv.INPMs,
		H1Present:                onpage.H1Present,
		DomainAgeYears:           observed.Domain.AgeYears,
		ReferringDomainsEstimate: observed.Authority.ReferringDomains,
		SERPHitsTop10:            observed.SERP.HitsTop10,
		SERPHitsTop30:            observed.SERP.HitsTop30,
	}
	if cwv.Error != "" {
		s.CWVNotes = types.Ptr(cwv.Error)
	}

	switch {
	case onpage.BotBlocked:
		s.OnPageNotes = types.Ptr(blockedOnPageNotes)
	default:
		s.TitlePresent = types.Ptr(onpage.TitlePresent)
		s.MetaUnique = types.Ptr(onpage.MetaUnique)
		if onpage.Error != "" {
			s.OnPageNotes = types.Ptr(onpage.Error)
		}
	}
	return s
}
