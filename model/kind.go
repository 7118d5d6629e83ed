// Package model provides domain types shared across packages.
//
// Information Hiding:
// - Tool-name string matching confined to ParseAnswerKind
// - Lenient decoding of model-produced payloads hidden behind AnswerArgs
// - Ordered JSON encoding of search bundles hidden behind EncodeOutcomes
package model

import "fmt"

// AnswerKind identifies one of the two structured-answer tools the model is
// allowed to call.
type AnswerKind int

const (
	// KindAnswerQuestion is the initial draft.
	KindAnswerQuestion AnswerKind = iota
	// KindReviseAnswer is a revision produced after research.
	KindReviseAnswer
)

// String returns the tool name for the kind.
func (k AnswerKind) String() string {
	switch k {
	case KindAnswerQuestion:
		return "AnswerQuestion"
	case KindReviseAnswer:
		return "ReviseAnswer"
	default:
		return fmt.Sprintf("AnswerKind(%d)", int(k))
	}
}

// ParseAnswerKind resolves a tool name. Matching is exact, as tool names
// are echoed back verbatim by providers.
func ParseAnswerKind(name string) (AnswerKind, bool) {
	switch name {
	case "AnswerQuestion":
		return KindAnswerQuestion, true
	case "ReviseAnswer":
		return KindReviseAnswer, true
	default:
		return 0, false
	}
}

// AllKinds returns every kind, revisions first.
func AllKinds() []AnswerKind {
	return []AnswerKind{KindReviseAnswer, KindAnswerQuestion}
}
