package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/reflexion/model"
)

func TestLastAnswerNewestFirst(t *testing.T) {
	h := model.History{}.Append(
		model.NewHumanInput("q"),
		answerMsg("c1", model.KindAnswerQuestion, strptr("draft"), nil),
		resultMsg("c1", "a"),
		answerMsg("c2", model.KindReviseAnswer, strptr("revised"), []string{"r1"}),
	)

	answer, refs := LastAnswer(h)
	require.NotNil(t, answer)
	assert.Equal(t, "revised", *answer)
	assert.Equal(t, []string{"r1"}, refs)

	answer, refs = LastAnswer(h, model.KindAnswerQuestion)
	require.NotNil(t, answer)
	assert.Equal(t, "draft", *answer)
	assert.Empty(t, refs)
}

func TestLastAnswerScansInvocationsInReverse(t *testing.T) {
	first := model.AnswerArgs{Answer: strptr("first")}
	second := model.AnswerArgs{Answer: strptr("second")}
	h := model.History{}.Append(model.NewModelCall(
		model.ToolInvocation{ID: "a", Name: "AnswerQuestion", Arguments: first.Encode()},
		model.ToolInvocation{ID: "b", Name: "AnswerQuestion", Arguments: second.Encode()},
		model.ToolInvocation{ID: "c", Name: "Unrelated", Arguments: first.Encode()},
	))

	answer, _ := LastAnswer(h)
	require.NotNil(t, answer)
	assert.Equal(t, "second", *answer)
}

func TestLastAnswerNone(t *testing.T) {
	answer, refs := LastAnswer(model.History{}.Append(model.NewHumanInput("q")))
	assert.Nil(t, answer)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)

	// An invocation without an answer field yields nil and stops the scan.
	h := model.History{}.Append(
		answerMsg("c1", model.KindAnswerQuestion, strptr("old"), nil),
		model.NewModelCall(model.ToolInvocation{ID: "c2", Name: "ReviseAnswer", Arguments: []byte(`{"references":["r"]}`)}),
	)
	answer, refs = LastAnswer(h)
	assert.Nil(t, answer)
	assert.Equal(t, []string{"r"}, refs)
}

func TestLatestQueries(t *testing.T) {
	h := model.History{}.Append(
		model.NewHumanInput("q"),
		resultMsg("c1", "old"),
		answerMsg("c2", model.KindReviseAnswer, strptr("x"), nil),
		resultMsg("c2", "zeta", "alpha", "mid"),
	)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, LatestQueries(h))
}

func TestLatestQueriesUnparseable(t *testing.T) {
	h := model.History{}.Append(
		resultMsg("c1", "older"),
		model.NewToolResult("c2", "not json"),
	)
	assert.Empty(t, LatestQueries(h))
	assert.Empty(t, LatestQueries(model.History{}))
}

func TestLatestQueriesRepeatedKeyCountsOnce(t *testing.T) {
	h := model.History{}.Append(
		model.NewHumanInput("q"),
		model.NewToolResult("c1", `{"a":[],"b":[],"a":[]}`),
	)
	queries := LatestQueries(h)
	assert.Equal(t, []string{"a", "b"}, queries)
	assert.Equal(t, 20.0, Breakdown("x", nil, queries).Coverage)
}
