// Reflexion loop driver.
//
// Information Hiding:
// - Loop states and transitions hidden
// - Per-run controller and evidence ownership hidden
// - Collaborator calls and failure policy hidden

package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/reflexion/model"
	"github.com/richinex/reflexion/search"
)

type state int

const (
	stateDraft state = iota
	stateSearch
	stateRevise
	stateDecide
	stateDone
)

func (s state) String() string {
	switch s {
	case stateDraft:
		return "draft"
	case stateSearch:
		return "search"
	case stateRevise:
		return "revise"
	case stateDecide:
		return "decide"
	default:
		return "done"
	}
}

// Agent answers questions with the reflexion loop.
type Agent struct {
	config    Config
	generator Generator
	searcher  search.Provider
	evidence  *search.EvidenceSet
	logger    *zap.Logger
}

// New creates an agent. A nil evidence set gives every run its own; a
// non-nil one is shared by all runs.
func New(config Config, generator Generator, searcher search.Provider, evidence *search.EvidenceSet, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		config:    config.withDefaults(),
		generator: generator,
		searcher:  searcher,
		evidence:  evidence,
		logger:    logger,
	}
}

// SharedEvidence returns the shared evidence set, or nil when runs are
// isolated.
func (a *Agent) SharedEvidence() *search.EvidenceSet {
	return a.evidence
}

// run is the mutable state of one Run call.
type run struct {
	history    model.History
	controller *Controller
	executor   *search.Executor
	evidence   *search.EvidenceSet
	result     Result
	logger     *zap.Logger
}

// Run answers question. The loop drafts, then alternates search and revision
// until the controller stops it: after maxIterations+1 search passes at the
// latest, or at the first revision that does not improve the score.
//
// A model failure ends the run without an error; Result.Failure describes it
// and Result.Answer holds the last answer produced, if any. Cancellation
// returns ctx.Err() along with the partial result.
func (a *Agent) Run(ctx context.Context, question string, maxIterations int) (Result, error) {
	if maxIterations < 0 {
		return Result{}, ErrNegativeIterations
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := a.logger.With(zap.String("run_id", runID))

	evidence := a.evidence
	if evidence == nil {
		evidence = search.NewEvidenceSet()
	}

	r := &run{
		history:    model.History{}.Append(model.NewHumanInput(question)),
		controller: NewController(maxIterations),
		executor:   search.NewExecutor(a.searcher, evidence, a.config.Search, logger),
		evidence:   evidence,
		result:     Result{RunID: runID, Question: question},
		logger:     logger,
	}

	var err error
	for st := stateDraft; st != stateDone; {
		if err = ctx.Err(); err != nil {
			r.result.StopReason = ReasonCancelled
			break
		}
		logger.Debug("entering state", zap.Stringer("state", st))

		st, err = a.step(ctx, r, st)
		if err != nil {
			break
		}
	}

	r.finish(start)
	return r.result, err
}

// step executes one state and returns the next.
func (a *Agent) step(ctx context.Context, r *run, st state) (state, error) {
	switch st {
	case stateDraft:
		return a.generate(ctx, r, model.KindAnswerQuestion, a.config.DraftInstruction, stateSearch)

	case stateSearch:
		results := r.executor.Execute(ctx, r.history)
		if len(results) == 0 {
			r.logger.Warn("model produced no actionable invocation")
			r.result.StopReason = ReasonNoQueries
			return stateDone, nil
		}
		r.history = r.history.Append(results...)
		return stateRevise, nil

	case stateRevise:
		return a.generate(ctx, r, model.KindReviseAnswer, a.config.ReviseInstruction, stateDecide)

	case stateDecide:
		return r.decide(), nil
	}
	return stateDone, nil
}

func (a *Agent) generate(ctx context.Context, r *run, kind model.AnswerKind, instruction string, next state) (state, error) {
	msg, err := a.generator.Generate(ctx, r.history, kind, instruction)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.result.StopReason = ReasonCancelled
			return stateDone, ctxErr
		}
		r.logger.Warn("model call failed", zap.String("kind", kind.String()), zap.Error(err))
		r.result.StopReason = ReasonModelFailure
		r.result.Failure = err.Error()
		return stateDone, nil
	}
	r.history = r.history.Append(msg)
	return next, nil
}

func (r *run) decide() state {
	d := r.controller.Decide(r.history)
	st := r.controller.State()

	record := ScoreRecord{
		Iteration: st.ToolResults,
		Score:     d.Score,
		Best:      st.Best,
		Decision:  d.Next.String(),
		Reason:    d.Reason,
	}
	if d.Scored {
		answer, refs := LastAnswer(r.history)
		record.Breakdown = Breakdown(*answer, refs, LatestQueries(r.history))
	}
	r.result.Scores = append(r.result.Scores, record)

	r.logger.Info("controller decision",
		zap.Int("tool_results", st.ToolResults),
		zap.Float64("score", d.Score),
		zap.Float64("best", st.Best),
		zap.Stringer("next", d.Next),
		zap.String("reason", string(d.Reason)),
	)

	if d.Next == Stop {
		r.result.StopReason = d.Reason
		return stateDone
	}
	return stateSearch
}

func (r *run) finish(start time.Time) {
	answer, refs := LastAnswer(r.history)
	r.result.Answer = answer
	r.result.References = refs
	r.result.QueriesUsed = LatestQueries(r.history)
	r.result.Sources = r.evidence.Sources()
	r.result.History = r.history
	r.result.Iterations = r.history.CountToolResults()
	r.result.Elapsed = time.Since(start)
}
