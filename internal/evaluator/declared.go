// Package evaluator turns raw inputs into the two halves of a grade: the
// declared score from the questionnaire and the observed score from the
// live site and its backends.
package evaluator

import (
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/rounding"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

// EvaluateDeclared scores the questionnaire. Each dimension is the share of
// the maximum possible answers, scaled to the dimension weight.
func EvaluateDeclared(answers types.QuestionnaireAnswers) types.DeclaredScoreResult {
	technical := rounding.DimensionScore(answers.Technical(), types.WeightTechnical, types.MaxAnswer)
	content := rounding.DimensionScore(answers.Content(), types.WeightContent, types.MaxAnswer)
	measurement := rounding.DimensionScore(answers.Measurement(), types.WeightMeasurement, types.MaxAnswer)

	return types.DeclaredScoreResult{
		Technical:       technical,
		ContentKeywords: content,
		Measurement:     measurement,
		Total:           technical + content + measurement,
	}
}
