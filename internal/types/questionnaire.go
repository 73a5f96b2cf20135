package types

import (
	"fmt"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
)

const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Question IDs grouped by declared dimension.
var (
	TechnicalQuestions   = []string{"T1", "T2", "T3", "T4"}
	ContentQuestions     = []string{"C1", "C2", "C3", "C4"}
	MeasurementQuestions = []string{"M1", "M2"}
)

// Questions is the questionnaire text shown to users, keyed by question ID.
var Questions = map[string]string{
	"T1": "How would you rate your website's page load speed and Core Web Vitals optimization?",
	"T2": "How effectively is your site crawlable and indexable by search engines?",
	"T3": "How well-implemented is your technical SEO infrastructure (sitemaps, robots.txt, structured data)?",
	"T4": "How secure and mobile-friendly is your website (HTTPS, responsive design)?",
	"C1": "How comprehensive is your keyword research and targeting strategy?",
	"C2": "How well-optimized is your on-page content (titles, meta descriptions, headers)?",
	"C3": "How consistent is your content creation and publishing schedule?",
	"C4": "How effectively do you align content with user search intent?",
	"M1": "How well do you track and measure SEO performance metrics?",
	"M2": "How effectively do you use data to inform SEO strategy decisions?",
}

// AnswerScale describes each point of the 1-5 answer scale.
var AnswerScale = map[int]string{
	1: "Not at all / Never",
	2: "Rarely / Minimal effort",
	3: "Sometimes / Moderate effort",
	4: "Often / Good effort",
	5: "Always / Excellent",
}

// QuestionnaireAnswers holds the ten self-assessment answers.
type QuestionnaireAnswers struct {
	T1 int `json:"T1" yaml:"T1"`
	T2 int `json:"T2" yaml:"T2"`
	T3 int `json:"T3" yaml:"T3"`
	T4 int `json:"T4" yaml:"T4"`
	C1 int `json:"C1" yaml:"C1"`
	C2 int `json:"C2" yaml:"C2"`
	C3 int `json:"C3" yaml:"C3"`
	C4 int `json:"C4" yaml:"C4"`
	M1 int `json:"M1" yaml:"M1"`
	M2 int `json:"M2" yaml:"M2"`
}

// ByID returns the answers keyed by question ID.
func (a QuestionnaireAnswers) ByID() map[string]int {
	return map[string]int{
		"T1": a.T1, "T2": a.T2, "T3": a.T3, "T4": a.T4,
		"C1": a.C1, "C2": a.C2, "C3": a.C3, "C4": a.C4,
		"M1": a.M1, "M2": a.M2,
	}
}

// Technical returns T1-T4 in order.
func (a QuestionnaireAnswers) Technical() []int { return []int{a.T1, a.T2, a.T3, a.T4} }

// Content returns C1-C4 in order.
func (a QuestionnaireAnswers) Content() []int { return []int{a.C1, a.C2, a.C3, a.C4} }

// Measurement returns M1-M2 in order.
func (a QuestionnaireAnswers) Measurement() []int { return []int{a.M1, a.M2} }

// Set assigns an answer by question ID.
func (a *QuestionnaireAnswers) Set(id string, value int) error {
	switch id {
	case "T1":
		a.T1 = value
	case "T2":
		a.T2 = value
	case "T3":
		a.T3 = value
	case "T4":
		a.T4 = value
	case "C1":
		a.C1 = value
	case "C2":
		a.C2 = value
	case "C3":
		a.C3 = value
	case "C4":
		a.C4 = value
	case "M1":
		a.M1 = value
	case "M2":
		a.M2 = value
	default:
		return fmt.Errorf("unknown question id %q", id)
	}
	return nil
}

// Validate checks that every answer is present and within the scale.
// A zero value means the answer was missing from the request.
func (a QuestionnaireAnswers) Validate() error {
	problems := map[string]string{}
	for id, v := range a.ByID() {
		switch {
		case v == 0:
			problems[id] = "answer is required"
		case v < MinAnswer || v > MaxAnswer:
			problems[id] = fmt.Sprintf("must be between %d and %d, got %d", MinAnswer, MaxAnswer, v)
		}
	}

	if len(problems) > 0 {
		return apperrors.NewValidationError("Invalid questionnaire answers", problems)
	}
	return nil
}
