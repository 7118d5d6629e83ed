package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/reflexion/model"
)

func TestControllerHardCapIgnoresScore(t *testing.T) {
	c := NewController(0)
	h := model.History{}.Append(
		model.NewHumanInput("q"),
		answerMsg("c1", model.KindAnswerQuestion, strptr("draft"), nil, "a"),
		resultMsg("c1", "a"),
		answerMsg("c2", model.KindReviseAnswer, strptr(words(250)), []string{"r1", "r2", "r3", "r4"}),
	)

	d := c.Decide(h)
	assert.Equal(t, Stop, d.Next)
	assert.Equal(t, ReasonMaxIterations, d.Reason)
	assert.False(t, d.Scored)
	assert.Equal(t, noScore, c.State().Best)
}

func TestControllerNoAnswerContinues(t *testing.T) {
	c := NewController(2)
	h := model.History{}.Append(
		model.NewHumanInput("q"),
		resultMsg("c1", "a"),
	)
	d := c.Decide(h)
	assert.Equal(t, Continue, d.Next)
	assert.Equal(t, ReasonNoAnswer, d.Reason)
	assert.Equal(t, 1, c.State().ToolResults)
}

func TestControllerMonotonicStop(t *testing.T) {
	c := NewController(10)
	h := model.History{}.Append(model.NewHumanInput("q"))

	// Each revision adds a reference (+5) until the fourth repeats the third.
	refs := [][]string{{"r1"}, {"r1", "r2"}, {"r1", "r2", "r3"}, {"x", "y", "z"}}
	want := []Transition{Continue, Continue, Continue, Stop}

	var best float64
	for i, r := range refs {
		id := string(rune('a' + i))
		h = h.Append(resultMsg(id, "q1"), answerMsg(id, model.KindReviseAnswer, strptr("answer"), r))
		d := c.Decide(h)
		require.True(t, d.Scored)
		assert.Equal(t, want[i], d.Next, "decision %d", i)
		if d.Next == Continue {
			assert.Greater(t, d.Score, best)
			best = d.Score
		}
		assert.Equal(t, best, c.State().Best)
	}
	assert.Equal(t, ReasonNoImprovement, c.Decide(h).Reason)
}

func TestControllerEmptyAnswers(t *testing.T) {
	c := NewController(5)
	h := model.History{}.Append(
		model.NewHumanInput("q"),
		answerMsg("c1", model.KindAnswerQuestion, strptr(""), nil),
		resultMsg("c1"),
		answerMsg("c2", model.KindReviseAnswer, strptr(""), nil),
	)
	d := c.Decide(h)
	assert.Equal(t, Continue, d.Next)
	assert.Equal(t, 0.0, d.Score)

	h = h.Append(resultMsg("c2"), answerMsg("c3", model.KindReviseAnswer, strptr(""), nil))
	d = c.Decide(h)
	assert.Equal(t, Stop, d.Next)
	assert.Equal(t, ReasonNoImprovement, d.Reason)
	assert.Equal(t, 0.0, c.State().Best)
}

func TestControllerCapAtMaxPlusOne(t *testing.T) {
	c := NewController(2)
	h := model.History{}.Append(model.NewHumanInput("q"))
	for i := 1; i <= 3; i++ {
		refs := make([]string, i)
		h = h.Append(resultMsg("c", "q"), answerMsg("c", model.KindReviseAnswer, strptr("a"), refs))
		d := c.Decide(h)
		if i <= 2 {
			assert.Equal(t, Continue, d.Next)
		} else {
			assert.Equal(t, Stop, d.Next)
			assert.Equal(t, ReasonMaxIterations, d.Reason)
		}
	}
}

func TestControllerReset(t *testing.T) {
	c := NewController(3)
	h := model.History{}.Append(resultMsg("c", "q"), answerMsg("c", model.KindReviseAnswer, strptr("a"), nil))
	c.Decide(h)
	require.NotEqual(t, noScore, c.State().Best)

	c.Reset()
	assert.Equal(t, IterationState{Best: noScore}, c.State())
	assert.Equal(t, Continue, c.Decide(h).Next)
}
