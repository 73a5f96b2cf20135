package types

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
)

// BrandCategory is the business category supplied with a grading request.
type BrandCategory string

const (
	BrandSaaS          BrandCategory = "SaaS"
	BrandEcommerce     BrandCategory = "E-commerce"
	BrandAgency        BrandCategory = "Agency"
	BrandPublisher     BrandCategory = "Publisher"
	BrandLocalBusiness BrandCategory = "Local Business"
	BrandEnterprise    BrandCategory = "Enterprise"
	BrandStartup       BrandCategory = "Startup"
	BrandOther         BrandCategory = "Other"
)

// BrandCategories lists the suggested categories in display order.
var BrandCategories = []BrandCategory{
	BrandSaaS, BrandEcommerce, BrandAgency, BrandPublisher,
	BrandLocalBusiness, BrandEnterprise, BrandStartup, BrandOther,
}

const (
	MaxKeywords        = 5
	MaxKeywordLength   = 80
	MinURLLength       = 10
	MaxURLLength       = 2048
	MaxClientRequestID = 100
)

// GraderRequest is the body of a grading submission.
type GraderRequest struct {
	WebsiteURL           string               `json:"website_url" binding:"required"`
	BrandCategory        string               `json:"brand_category" binding:"required"`
	TargetKeywords       []string             `json:"target_keywords"`
	QuestionnaireAnswers QuestionnaireAnswers `json:"questionnaire_answers" binding:"required"`
	ClientRequestID      string               `json:"client_request_id,omitempty"`
}

// Normalize trims free-text fields and normalises the keyword list. It
// rejects requests whose shape cannot be graded.
func (r *GraderRequest) Normalize() error {
	problems := map[string]string{}

	r.WebsiteURL = strings.TrimSpace(r.WebsiteURL)
	if n := utf8.RuneCountInString(r.WebsiteURL); n < MinURLLength || n > MaxURLLength {
		problems["website_url"] = fmt.Sprintf("must be between %d and %d characters", MinURLLength, MaxURLLength)
	}

	r.BrandCategory = strings.TrimSpace(r.BrandCategory)
	if r.BrandCategory == "" {
		problems["brand_category"] = "is required"
	}

	if len(r.TargetKeywords) > MaxKeywords {
		problems["target_keywords"] = fmt.Sprintf("Maximum %d keywords allowed", MaxKeywords)
	} else {
		r.TargetKeywords = NormalizeKeywords(r.TargetKeywords)
	}

	if len(r.ClientRequestID) > MaxClientRequestID {
		problems["client_request_id"] = fmt.Sprintf("must be at most %d characters", MaxClientRequestID)
	}

	if len(problems) > 0 {
		return apperrors.NewValidationError("Invalid request", problems)
	}

	return r.QuestionnaireAnswers.Validate()
}

// NormalizeKeywords trims each keyword, caps it at MaxKeywordLength runes,
// drops blanks and removes case-insensitive duplicates keeping the first.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))

	for _, kw := range keywords {
		trimmed := strings.TrimSpace(kw)
		if utf8.RuneCountInString(trimmed) > MaxKeywordLength {
			trimmed = string([]rune(trimmed)[:MaxKeywordLength])
		}
		if trimmed == "" {
			continue
		}

		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}

	return out
}
