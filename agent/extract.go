package agent

import (
	"slices"

	"github.com/richinex/reflexion/model"
)

// LastAnswer returns the answer and references of the most recent invocation
// whose kind is in kinds (all kinds when none are given). Messages are scanned
// newest first, and so are the invocations inside each model call. The answer
// is nil when no such invocation exists.
func LastAnswer(history model.History, kinds ...model.AnswerKind) (*string, []string) {
	if len(kinds) == 0 {
		kinds = model.AllKinds()
	}
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Type != model.MessageModelCall {
			continue
		}
		for j := len(msg.Calls) - 1; j >= 0; j-- {
			call := msg.Calls[j]
			kind, ok := call.Kind()
			if !ok || !slices.Contains(kinds, kind) {
				continue
			}
			args := call.Args()
			refs := args.References
			if refs == nil {
				refs = []string{}
			}
			return args.Answer, refs
		}
	}
	return nil, []string{}
}

// LatestQueries returns the query keys of the most recent tool result, in
// payload order. Only that result is consulted: if it does not parse, the
// answer is empty rather than an older result's keys.
func LatestQueries(history model.History) []string {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsToolResult() {
			continue
		}
		keys, err := model.DecodeQueryKeys(history[i].Content)
		if err != nil {
			return []string{}
		}
		return keys
	}
	return []string{}
}
