// Package agent runs the reflexion loop: draft an answer, research the
// model's own follow-up queries, revise, score, and repeat while the score
// strictly improves.
//
// Information Hiding:
// - Loop states and transitions hidden behind Run
// - Scoring heuristic and stopping rule internalized in Controller
// - Prompt rendering and provider dialect hidden behind Generator
package agent

import (
	"errors"
	"time"

	"github.com/richinex/reflexion/model"
)

// ErrNegativeIterations is returned by Run for a negative iteration cap.
var ErrNegativeIterations = errors.New("max iterations must be >= 0")

// ScoreRecord is one controller decision, kept for reporting.
type ScoreRecord struct {
	Iteration int            `json:"iteration"`
	Score     float64        `json:"score"`
	Best      float64        `json:"best"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Decision  string         `json:"decision"`
	Reason    StopReason     `json:"reason,omitempty"`
}

// Result is everything a run produced. Answer is nil when the model never
// produced one; Failure describes a model error that ended the run early.
type Result struct {
	RunID       string        `json:"run_id"`
	Question    string        `json:"question"`
	Answer      *string       `json:"answer"`
	References  []string      `json:"references"`
	QueriesUsed []string      `json:"queries_used"`
	Sources     []string      `json:"sources"`
	History     model.History `json:"history"`
	Scores      []ScoreRecord `json:"scores"`
	Iterations  int           `json:"iterations"`
	StopReason  StopReason    `json:"stop_reason"`
	Failure     string        `json:"failure,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// HasAnswer reports whether the run produced a non-nil answer.
func (r Result) HasAnswer() bool {
	return r.Answer != nil
}

// AnswerText returns the answer or "".
func (r Result) AnswerText() string {
	if r.Answer == nil {
		return ""
	}
	return *r.Answer
}

// FinalScore returns the score of the last decision, or 0.
func (r Result) FinalScore() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	return r.Scores[len(r.Scores)-1].Score
}
