package agent

import (
	"fmt"
	"strings"

	"github.com/richinex/reflexion/model"
)

func strptr(s string) *string { return &s }

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func answerMsg(id string, kind model.AnswerKind, answer *string, refs []string, queries ...string) model.Message {
	args := model.AnswerArgs{Answer: answer, References: refs, SearchQueries: queries}
	return model.NewModelCall(model.ToolInvocation{ID: id, Name: kind.String(), Arguments: args.Encode()})
}

func resultMsg(id string, queries ...string) model.Message {
	outcomes := make([]model.QueryOutcome, 0, len(queries))
	for i, q := range queries {
		outcomes = append(outcomes, model.QueryOutcome{
			Query:   q,
			Results: []model.Evidence{{Title: q, URL: fmt.Sprintf("https://example.com/%s/%d", id, i)}},
		})
	}
	payload, err := model.EncodeOutcomes(outcomes)
	if err != nil {
		panic(err)
	}
	return model.NewToolResult(id, payload)
}
