package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/reflexion/model"
)

// Executor defaults.
const (
	DefaultMaxPerQuery = 3
	DefaultConcurrency = 3
	DefaultTimeout     = 20 * time.Second
)

// ExecutorConfig configures an Executor. Zero values take the defaults.
type ExecutorConfig struct {
	// MaxPerQuery caps kept evidence per query after deduplication.
	MaxPerQuery int
	// RawResults is the number of raw hits requested per query.
	RawResults int
	// Concurrency bounds in-flight searches within one invocation.
	Concurrency int
	// Timeout bounds each search call.
	Timeout time.Duration
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.MaxPerQuery <= 0 {
		c.MaxPerQuery = DefaultMaxPerQuery
	}
	if c.RawResults <= 0 {
		c.RawResults = DefaultRawResults
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Executor turns the queries of the latest structured answer into a
// tool-result message per invocation.
type Executor struct {
	provider Provider
	evidence *EvidenceSet
	config   ExecutorConfig
	logger   *zap.Logger
}

// NewExecutor creates an executor. A nil evidence set gets a fresh one.
func NewExecutor(provider Provider, evidence *EvidenceSet, config ExecutorConfig, logger *zap.Logger) *Executor {
	if evidence == nil {
		evidence = NewEvidenceSet()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		provider: provider,
		evidence: evidence,
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// Evidence returns the set the executor deduplicates against.
func (e *Executor) Evidence() *EvidenceSet {
	return e.evidence
}

type fetched struct {
	results []Result
	err     error
}

// Execute inspects the tail of history. For every recognized invocation of a
// trailing model call it searches each normalized query and returns one
// tool result correlated to the invocation ID. Search failures become error
// records. Returns nil when there is nothing actionable.
func (e *Executor) Execute(ctx context.Context, history model.History) []model.Message {
	last, ok := history.Last()
	if !ok || last.Type != model.MessageModelCall || len(last.Calls) == 0 {
		return nil
	}

	var out []model.Message
	for _, call := range last.Calls {
		if _, ok := call.Kind(); !ok {
			e.logger.Debug("skipping unrecognized invocation", zap.String("name", call.Name))
			continue
		}

		args := call.Args()
		queries := make([]string, 0, len(args.SearchQueries))
		for _, raw := range args.SearchQueries {
			if q := NormalizeQuery(raw); q != "" {
				queries = append(queries, q)
			}
		}

		payload, err := model.EncodeOutcomes(e.collect(ctx, queries))
		if err != nil {
			e.logger.Warn("failed to encode search results", zap.String("call_id", call.ID), zap.Error(err))
			payload = "{}"
		}
		out = append(out, model.NewToolResult(call.ID, payload))
	}
	return out
}

// collect fetches every query concurrently, then deduplicates and caps in
// input order so the outcome does not depend on completion order.
func (e *Executor) collect(ctx context.Context, queries []string) []model.QueryOutcome {
	raw := make([]fetched, len(queries))

	var g errgroup.Group
	g.SetLimit(e.config.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
			defer cancel()

			start := time.Now()
			results, err := e.provider.Search(qctx, q, Options{Count: e.config.RawResults})
			raw[i] = fetched{results: results, err: err}

			if err != nil {
				e.logger.Warn("search failed",
					zap.String("provider", e.provider.Name()),
					zap.String("query", q),
					zap.Error(err),
				)
			} else {
				e.logger.Debug("search done",
					zap.String("provider", e.provider.Name()),
					zap.String("query", q),
					zap.Int("hits", len(results)),
					zap.Duration("elapsed", time.Since(start)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]model.QueryOutcome, len(queries))
	for i, q := range queries {
		outcomes[i] = model.QueryOutcome{Query: q}
		if raw[i].err != nil {
			outcomes[i].Err = raw[i].err.Error()
			continue
		}
		outcomes[i].Results = e.keepUnseen(raw[i].results)
	}
	return outcomes
}

// keepUnseen filters hits to newly seen URLs, in order, then caps the kept
// list. Every new URL is registered, including those past the cap.
func (e *Executor) keepUnseen(results []Result) []model.Evidence {
	kept := make([]model.Evidence, 0, e.config.MaxPerQuery)
	for _, r := range results {
		if !e.evidence.Accept(r.URL) {
			continue
		}
		if len(kept) == e.config.MaxPerQuery {
			continue
		}
		kept = append(kept, model.Evidence{
			Title:   r.Title,
			URL:     strings.TrimSpace(r.URL),
			Snippet: r.Text(),
		})
	}
	return kept
}
