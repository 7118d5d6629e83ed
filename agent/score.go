package agent

import (
	"math"
	"regexp"
	"strings"
)

const (
	targetWords    = 250
	maxLengthScore = 30.0
	maxRefScore    = 20.0
	maxCiteScore   = 20.0
	maxQueryScore  = 30.0
	coveredQueries = 3
)

// citationPattern matches ASCII-digit markers like [12]. Totals are rounded
// half away from zero.
var citationPattern = regexp.MustCompile(`\[[0-9]+\]`)

// ScoreBreakdown holds the four sub-scores of an answer and their rounded sum.
type ScoreBreakdown struct {
	Length     float64 `json:"length"`
	References float64 `json:"references"`
	Citations  float64 `json:"citations"`
	Coverage   float64 `json:"coverage"`
	Total      float64 `json:"total"`
}

// Breakdown scores an answer. Length peaks at 250 words and loses 0.1 per
// word of deviation; references, inline [n] citations and query coverage
// each saturate. An empty answer scores zero everywhere.
func Breakdown(answer string, references, queries []string) ScoreBreakdown {
	if answer == "" {
		return ScoreBreakdown{}
	}

	words := len(strings.Fields(answer))
	b := ScoreBreakdown{
		Length:     math.Max(0, maxLengthScore-0.1*math.Abs(float64(words-targetWords))),
		References: math.Min(maxRefScore, 5*float64(len(references))),
		Citations:  math.Min(maxCiteScore, 4*float64(len(citationPattern.FindAllString(answer, -1)))),
		Coverage:   math.Min(maxQueryScore, 10*float64(min(coveredQueries, len(queries)))),
	}
	b.Total = round2(b.Length + b.References + b.Citations + b.Coverage)
	return b
}

// Score returns the rounded total of Breakdown.
func Score(answer string, references, queries []string) float64 {
	return Breakdown(answer, references, queries).Total
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
