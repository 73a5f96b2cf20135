// Package rounding holds the integer scoring arithmetic shared by the
// evaluators and the scoring engine. Every score in a grader response is
// produced by these functions, so their half-up behaviour defines the output.
package rounding

import (
	"math"
	"math/big"
	"strconv"
)

// Stage is the maturity band a total score falls into.
type Stage string

const (
	StageChaotic    Stage = "Chaotic"
	StageReactive   Stage = "Reactive"
	StageStructured Stage = "Structured"
	StageOptimised  Stage = "Optimised"
	StageStrategic  Stage = "Strategic"
)

var stageBands = []struct {
	upper int
	stage Stage
}{
	{30, StageChaotic},
	{50, StageReactive},
	{70, StageStructured},
	{85, StageOptimised},
}

// RoundHalfUp rounds value to the given number of decimals with ties going
// away from zero. The value is first rendered in its shortest decimal form so
// that 2.5 and 0.125 round the way a person reading them would expect.
func RoundHalfUp(value float64, decimals int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	if decimals < 0 {
		decimals = 0
	}

	r, ok := new(big.Rat).SetString(strconv.FormatFloat(value, 'f', -1, 64))
	if !ok {
		return value
	}

	neg := r.Sign() < 0
	if neg {
		r.Neg(r)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))

	floored := new(big.Int).Quo(r.Num(), r.Denom())
	out, _ := new(big.Rat).SetFrac(floored, scale).Float64()
	if neg {
		out = -out
	}
	return out
}

// DimensionScore scales the answers of one questionnaire dimension onto
// weight points. An empty answer list scores zero.
func DimensionScore(answers []int, weight, maxPerAnswer int) int {
	if len(answers) == 0 || maxPerAnswer <= 0 {
		return 0
	}

	sum := 0
	for _, a := range answers {
		sum += a
	}

	scaled := float64(sum*weight) / float64(maxPerAnswer*len(answers))
	return min(weight, int(RoundHalfUp(scaled, 0)))
}

// BucketScore converts a [0,1] subscore into integer points out of weight.
func BucketScore(subscore float64, weight int) int {
	s := max(0, min(1, subscore))
	return min(weight, int(RoundHalfUp(s*float64(weight), 0)))
}

// StageOf maps a 0-100 total onto its maturity stage.
func StageOf(total int) Stage {
	for _, band := range stageBands {
		if total <= band.upper {
			return band.stage
		}
	}
	return StageStrategic
}

// GapDescription explains the distance between declared and observed points.
func GapDescription(declared, observed int) string {
	diff := declared - observed
	abs := diff
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs <= 3:
		return "Minimal — declared and observed capabilities are well-aligned"
	case abs <= 10:
		if diff > 0 {
			return "Moderate — declared capability somewhat exceeds observable execution"
		}
		return "Moderate — observable execution somewhat stronger than declared capability"
	default:
		if diff > 0 {
			return "High — declared capability significantly exceeds observable execution"
		}
		return "High — observable execution significantly stronger than declared capability"
	}
}
