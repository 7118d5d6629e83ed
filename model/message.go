package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MessageType tags the Message variant.
type MessageType string

const (
	MessageHuman      MessageType = "human"
	MessageModelCall  MessageType = "model_call"
	MessageToolResult MessageType = "tool_result"
)

// Message is one conversation entry. Exactly the fields of its Type are set:
// Content for human input, Calls for model calls, CallID and Content for tool
// results (Content then holds the JSON object keyed by query).
type Message struct {
	Type    MessageType      `json:"type"`
	Content string           `json:"content,omitempty"`
	Calls   []ToolInvocation `json:"calls,omitempty"`
	CallID  string           `json:"call_id,omitempty"`
}

// NewHumanInput creates a human message.
func NewHumanInput(text string) Message {
	return Message{Type: MessageHuman, Content: text}
}

// NewModelCall creates a model message carrying tool invocations.
func NewModelCall(calls ...ToolInvocation) Message {
	copied := make([]ToolInvocation, len(calls))
	copy(copied, calls)
	return Message{Type: MessageModelCall, Calls: copied}
}

// NewToolResult creates a tool result correlated to callID.
func NewToolResult(callID, payload string) Message {
	return Message{Type: MessageToolResult, CallID: callID, Content: payload}
}

// IsToolResult reports whether m is a tool result.
func (m Message) IsToolResult() bool {
	return m.Type == MessageToolResult
}

// ToolInvocation is a named tool call produced by the model.
type ToolInvocation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Kind resolves the invocation name to a structured-answer kind.
func (t ToolInvocation) Kind() (AnswerKind, bool) {
	return ParseAnswerKind(t.Name)
}

// Args decodes the argument payload. Malformed payloads yield zero args.
func (t ToolInvocation) Args() AnswerArgs {
	var args AnswerArgs
	if len(t.Arguments) == 0 {
		return args
	}
	_ = json.Unmarshal(t.Arguments, &args)
	return args
}

// Reflection is the model's self-critique of its answer.
type Reflection struct {
	Missing     string `json:"missing,omitempty"`
	Superfluous string `json:"superfluous,omitempty"`
}

// AnswerArgs is the structured-answer payload. Answer is nil when the field
// is absent or null.
type AnswerArgs struct {
	Answer        *string     `json:"answer,omitempty"`
	References    []string    `json:"references"`
	SearchQueries []string    `json:"search_queries"`
	Reflection    *Reflection `json:"reflection,omitempty"`
}

// UnmarshalJSON decodes leniently: missing fields stay empty, non-string
// list entries are coerced to their JSON text and a bare string stands in
// for a one-element list.
func (a *AnswerArgs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = AnswerArgs{}
	if v, ok := raw["answer"]; ok && !isNull(v) {
		s := textOf(v)
		a.Answer = &s
	}
	a.References = textList(raw["references"])
	a.SearchQueries = textList(raw["search_queries"])

	if v, ok := raw["reflection"]; ok && !isNull(v) {
		var r Reflection
		if err := json.Unmarshal(v, &r); err == nil {
			a.Reflection = &r
		} else {
			a.Reflection = &Reflection{Missing: textOf(v)}
		}
	}
	return nil
}

// Encode marshals the args for use as an invocation payload.
func (a AnswerArgs) Encode() json.RawMessage {
	if a.References == nil {
		a.References = []string{}
	}
	if a.SearchQueries == nil {
		a.SearchQueries = []string{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

// textOf returns the string value of v, or its raw JSON text otherwise.
func textOf(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if isNull(v) {
		return ""
	}
	return string(bytes.TrimSpace(v))
}

func textList(v json.RawMessage) []string {
	if isNull(v) {
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return []string{textOf(v)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if isNull(item) {
			continue
		}
		out = append(out, textOf(item))
	}
	return out
}

// String renders a short description, used in logs.
func (m Message) String() string {
	switch m.Type {
	case MessageHuman:
		return "human(" + strconv.Quote(preview(m.Content, 40)) + ")"
	case MessageModelCall:
		names := make([]string, len(m.Calls))
		for i, c := range m.Calls {
			names[i] = c.Name
		}
		return fmt.Sprintf("model_call%v", names)
	case MessageToolResult:
		return "tool_result(" + m.CallID + ")"
	default:
		return string(m.Type)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
