package agent

import "github.com/richinex/reflexion/model"

// noScore is below any attainable score, so the first scored answer always
// improves on it.
const noScore = -1.0

// Transition is the controller's routing decision.
type Transition int

const (
	// Continue routes back to the search executor.
	Continue Transition = iota
	// Stop ends the run.
	Stop
)

func (t Transition) String() string {
	if t == Stop {
		return "stop"
	}
	return "continue"
}

// StopReason explains a decision.
type StopReason string

const (
	ReasonNone          StopReason = ""
	ReasonMaxIterations StopReason = "max_iterations"
	ReasonNoAnswer      StopReason = "no_answer"
	ReasonNoImprovement StopReason = "no_improvement"
	ReasonNoQueries     StopReason = "no_actionable_call"
	ReasonModelFailure  StopReason = "model_failure"
	ReasonCancelled     StopReason = "cancelled"
)

// IterationState is what the controller remembers between decisions.
type IterationState struct {
	ToolResults int     `json:"tool_results"`
	Best        float64 `json:"best"`
}

// Decision is the outcome of one Decide call. Score is meaningful only when
// Scored is set.
type Decision struct {
	Next   Transition
	Score  float64
	Scored bool
	Reason StopReason
}

// Controller decides after every revision whether to research again.
// It holds per-run state and must not be shared between runs.
type Controller struct {
	maxIterations int
	state         IterationState
}

// NewController creates a controller allowing maxIterations search passes
// beyond the first.
func NewController(maxIterations int) *Controller {
	return &Controller{
		maxIterations: maxIterations,
		state:         IterationState{Best: noScore},
	}
}

// Reset clears the state for a new run.
func (c *Controller) Reset() {
	c.state = IterationState{Best: noScore}
}

// State returns a copy of the current state.
func (c *Controller) State() IterationState {
	return c.state
}

// MaxIterations returns the configured cap.
func (c *Controller) MaxIterations() int {
	return c.maxIterations
}

// Decide applies, in order: the hard cap on tool results, the no-answer
// short circuit, and the strict-improvement rule. The best score is only
// updated when the loop continues.
func (c *Controller) Decide(history model.History) Decision {
	c.state.ToolResults = history.CountToolResults()
	if c.state.ToolResults > c.maxIterations {
		return Decision{Next: Stop, Reason: ReasonMaxIterations}
	}

	answer, refs := LastAnswer(history)
	if answer == nil {
		return Decision{Next: Continue, Reason: ReasonNoAnswer}
	}

	cur := Score(*answer, refs, LatestQueries(history))
	if cur <= c.state.Best {
		return Decision{Next: Stop, Score: cur, Scored: true, Reason: ReasonNoImprovement}
	}
	c.state.Best = cur
	return Decision{Next: Continue, Score: cur, Scored: true}
}
