package types

import (
	"strings"
	"testing"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAnswers() QuestionnaireAnswers {
	return QuestionnaireAnswers{T1: 4, T2: 3, T3: 5, T4: 3, C1: 4, C2: 3, C3: 2, C4: 3, M1: 2, M2: 3}
}

func TestQuestionnaireValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(a *QuestionnaireAnswers)
		wantField string
	}{
		{"valid", func(a *QuestionnaireAnswers) {}, ""},
		{"missing answer", func(a *QuestionnaireAnswers) { a.C2 = 0 }, "C2"},
		{"above scale", func(a *QuestionnaireAnswers) { a.M1 = 6 }, "M1"},
		{"below scale", func(a *QuestionnaireAnswers) { a.T4 = -1 }, "T4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnswers()
			tt.mutate(&a)

			err := a.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			appErr := apperrors.ToAppError(err)
			assert.Equal(t, apperrors.CategoryValidation, appErr.Category)
			assert.Contains(t, appErr.Fields, tt.wantField)
		})
	}
}

func TestQuestionnaireSet(t *testing.T) {
	var a QuestionnaireAnswers
	for id := range Questions {
		require.NoError(t, a.Set(id, 3))
	}
	assert.NoError(t, a.Validate())
	assert.Equal(t, []int{3, 3, 3, 3}, a.Technical())
	assert.Equal(t, []int{3, 3}, a.Measurement())

	assert.Error(t, a.Set("X9", 1))
}

func TestNormalizeKeywords(t *testing.T) {
	long := strings.Repeat("k", 100)

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"trims whitespace", []string{"  seo tools  "}, []string{"seo tools"}},
		{"drops blanks", []string{"", "   ", "audit"}, []string{"audit"}},
		{"case-insensitive dedupe keeps first", []string{"SEO Audit", "seo audit", "Other"}, []string{"SEO Audit", "Other"}},
		{"caps length", []string{long}, []string{strings.Repeat("k", MaxKeywordLength)}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKeywords(tt.in))
		})
	}
}

func TestGraderRequestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		req       GraderRequest
		wantField string
	}{
		{
			name: "valid request",
			req: GraderRequest{
				WebsiteURL:           "https://example.com",
				BrandCategory:        " SaaS ",
				TargetKeywords:       []string{"a", "A", "b"},
				QuestionnaireAnswers: validAnswers(),
			},
		},
		{
			name: "too many keywords",
			req: GraderRequest{
				WebsiteURL:           "https://example.com",
				BrandCategory:        "SaaS",
				TargetKeywords:       []string{"1", "2", "3", "4", "5", "6"},
				QuestionnaireAnswers: validAnswers(),
			},
			wantField: "target_keywords",
		},
		{
			name: "short url",
			req: GraderRequest{
				WebsiteURL:           "a.io",
				BrandCategory:        "SaaS",
				QuestionnaireAnswers: validAnswers(),
			},
			wantField: "website_url",
		},
		{
			name: "blank brand",
			req: GraderRequest{
				WebsiteURL:           "https://example.com",
				BrandCategory:        "  ",
				QuestionnaireAnswers: validAnswers(),
			},
			wantField: "brand_category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Normalize()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "SaaS", req.BrandCategory)
				assert.Equal(t, []string{"a", "b"}, req.TargetKeywords)
				return
			}

			require.Error(t, err)
			assert.Contains(t, apperrors.ToAppError(err).Fields, tt.wantField)
		})
	}
}
