package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/reflexion/model"
)

// stubProvider returns canned results per query.
type stubProvider struct {
	mu      sync.Mutex
	results map[string][]Result
	errs    map[string]error
	delays  map[string]time.Duration
	calls   []string
	counts  []int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	s.counts = append(s.counts, opts.Count)
	delay := s.delays[query]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.results[query], nil
}

func answerCall(id, name string, queries ...any) model.ToolInvocation {
	args, _ := json.Marshal(map[string]any{
		"answer":         "draft",
		"references":     []string{},
		"search_queries": queries,
	})
	return model.ToolInvocation{ID: id, Name: name, Arguments: args}
}

func historyWith(calls ...model.ToolInvocation) model.History {
	return model.History{}.Append(model.NewHumanInput("question"), model.NewModelCall(calls...))
}

func decode(t *testing.T, msg model.Message) []model.QueryOutcome {
	t.Helper()
	outcomes, err := model.DecodeOutcomes(msg.Content)
	require.NoError(t, err)
	return outcomes
}

func TestExecuteNothingActionable(t *testing.T) {
	exec := NewExecutor(&stubProvider{}, nil, ExecutorConfig{}, nil)
	ctx := context.Background()

	assert.Nil(t, exec.Execute(ctx, nil))
	assert.Nil(t, exec.Execute(ctx, model.History{}.Append(model.NewHumanInput("q"))))
	assert.Nil(t, exec.Execute(ctx, model.History{}.Append(model.NewModelCall())))
	assert.Nil(t, exec.Execute(ctx, historyWith(answerCall("1", "Unrelated", "q"))))

	tail := historyWith(answerCall("1", "AnswerQuestion", "q")).Append(model.NewToolResult("1", "{}"))
	assert.Nil(t, exec.Execute(ctx, tail))
}

func TestExecuteFiltersAndCaps(t *testing.T) {
	provider := &stubProvider{results: map[string][]Result{
		"first": {
			{Title: "A", URL: "https://a", Content: "content a", Snippet: "snippet a"},
			{Title: "B", URL: " https://b ", Snippet: "snippet b"},
			{Title: "Empty", URL: ""},
			{Title: "C", URL: "https://c"},
			{Title: "D", URL: "https://d"},
		},
		"second": {
			{Title: "A again", URL: "https://a"},
			{Title: "D", URL: "https://d"},
			{Title: "E", URL: "https://e"},
		},
	}}
	exec := NewExecutor(provider, nil, ExecutorConfig{}, nil)

	msgs := exec.Execute(context.Background(), historyWith(answerCall("call-1", "AnswerQuestion", "first", "second")))
	require.Len(t, msgs, 1)
	assert.Equal(t, "call-1", msgs[0].CallID)

	outcomes := decode(t, msgs[0])
	require.Len(t, outcomes, 2)

	assert.Equal(t, "first", outcomes[0].Query)
	require.Len(t, outcomes[0].Results, 3)
	assert.Equal(t, model.Evidence{Title: "A", URL: "https://a", Snippet: "content a"}, outcomes[0].Results[0])
	assert.Equal(t, model.Evidence{Title: "B", URL: "https://b", Snippet: "snippet b"}, outcomes[0].Results[1])
	assert.Equal(t, "https://c", outcomes[0].Results[2].URL)

	// https://d was past the cap for "first" but was still registered.
	assert.Equal(t, "second", outcomes[1].Query)
	require.Len(t, outcomes[1].Results, 1)
	assert.Equal(t, "https://e", outcomes[1].Results[0].URL)

	assert.Equal(t, []string{"https://a", "https://b", "https://c", "https://d", "https://e"}, exec.Evidence().Sources())
	for _, n := range provider.counts {
		assert.Equal(t, DefaultRawResults, n)
	}
}

func TestExecuteErrorRecordDoesNotAbortBatch(t *testing.T) {
	provider := &stubProvider{
		results: map[string][]Result{"ok": {{URL: "https://ok"}}},
		errs:    map[string]error{"q": errors.New("TimeoutError('x')")},
	}
	exec := NewExecutor(provider, nil, ExecutorConfig{}, nil)

	msgs := exec.Execute(context.Background(), historyWith(answerCall("1", "ReviseAnswer", "q", "ok")))
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"q":{"error":"TimeoutError('x')"},"ok":[{"title":"","url":"https://ok","snippet":""}]}`, msgs[0].Content)
}

func TestExecuteOrderIndependentOfCompletion(t *testing.T) {
	provider := &stubProvider{
		results: map[string][]Result{
			"slow": {{URL: "https://shared"}, {URL: "https://slow"}},
			"fast": {{URL: "https://shared"}, {URL: "https://fast"}},
		},
		delays: map[string]time.Duration{"slow": 50 * time.Millisecond},
	}
	exec := NewExecutor(provider, nil, ExecutorConfig{Concurrency: 2}, nil)

	msgs := exec.Execute(context.Background(), historyWith(answerCall("1", "AnswerQuestion", "slow", "fast")))
	require.Len(t, msgs, 1)

	outcomes := decode(t, msgs[0])
	require.Len(t, outcomes, 2)
	assert.Equal(t, "slow", outcomes[0].Query)
	assert.Equal(t, "https://shared", outcomes[0].Results[0].URL)
	assert.Equal(t, "fast", outcomes[1].Query)
	require.Len(t, outcomes[1].Results, 1)
	assert.Equal(t, "https://fast", outcomes[1].Results[0].URL)
}

func TestExecuteNormalizesAndSkipsEmpty(t *testing.T) {
	provider := &stubProvider{results: map[string][]Result{"ai trends": {{URL: "https://x"}}}}
	exec := NewExecutor(provider, nil, ExecutorConfig{}, nil)

	msgs := exec.Execute(context.Background(), historyWith(answerCall("1", "AnswerQuestion", ` "ai trends",  `, "  ", nil, `""`)))
	require.Len(t, msgs, 1)

	outcomes := decode(t, msgs[0])
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ai trends", outcomes[0].Query)
	assert.Equal(t, []string{"ai trends"}, provider.calls)
}

func TestExecuteOneResultPerInvocation(t *testing.T) {
	provider := &stubProvider{results: map[string][]Result{"q": {{URL: "https://q"}}}}
	exec := NewExecutor(provider, nil, ExecutorConfig{}, nil)

	msgs := exec.Execute(context.Background(), historyWith(
		answerCall("a", "AnswerQuestion", "q"),
		answerCall("x", "Other", "q"),
		answerCall("b", "ReviseAnswer"),
	))
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].CallID)
	assert.Equal(t, "b", msgs[1].CallID)
	assert.Equal(t, "{}", msgs[1].Content)
}

func TestExecuteSharedEvidenceAcrossRuns(t *testing.T) {
	shared := NewEvidenceSet()
	shared.Load([]string{"https://known"})
	provider := &stubProvider{results: map[string][]Result{"q": {{URL: "https://known"}, {URL: "https://new"}}}}
	exec := NewExecutor(provider, shared, ExecutorConfig{}, nil)

	msgs := exec.Execute(context.Background(), historyWith(answerCall("1", "AnswerQuestion", "q")))
	outcomes := decode(t, msgs[0])
	require.Len(t, outcomes[0].Results, 1)
	assert.Equal(t, "https://new", outcomes[0].Results[0].URL)
	assert.Equal(t, 2, shared.Len())
}

func TestExecuteTimeoutBecomesErrorRecord(t *testing.T) {
	provider := &stubProvider{delays: map[string]time.Duration{"q": time.Second}}
	exec := NewExecutor(provider, nil, ExecutorConfig{Timeout: 10 * time.Millisecond}, nil)

	msgs := exec.Execute(context.Background(), historyWith(answerCall("1", "AnswerQuestion", "q")))
	outcomes := decode(t, msgs[0])
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Failed())
	assert.Contains(t, outcomes[0].Err, "deadline exceeded")
}

func TestExecuteRegistersHitsPastCap(t *testing.T) {
	hits := make([]Result, 5)
	for i := range hits {
		hits[i] = Result{Title: fmt.Sprint(i + 1), URL: fmt.Sprintf("https://u%d", i+1)}
	}
	provider := &stubProvider{results: map[string][]Result{"q": hits}}
	exec := NewExecutor(provider, nil, ExecutorConfig{}, nil)
	history := historyWith(answerCall("call-1", "AnswerQuestion", "q"))

	first := decode(t, exec.Execute(context.Background(), history)[0])
	require.Len(t, first, 1)
	assert.Len(t, first[0].Results, 3)
	assert.Equal(t, 5, exec.Evidence().Len())

	second := decode(t, exec.Execute(context.Background(), history)[0])
	require.Len(t, second, 1)
	assert.Empty(t, second[0].Results)
	assert.False(t, second[0].Failed())
}
