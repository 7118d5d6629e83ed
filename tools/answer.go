package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/richinex/reflexion/model"
)

var reflectionParam = ToolParameter{
	Name:        "reflection",
	ParamType:   "object",
	Description: "Your reflection on the initial answer.",
	Required:    true,
	Properties: []ToolParameter{
		{Name: "missing", ParamType: "string", Description: "Critique of what is missing.", Required: true},
		{Name: "superfluous", ParamType: "string", Description: "Critique of what is superfluous.", Required: true},
	},
}

var searchQueriesParam = ToolParameter{
	Name:        "search_queries",
	ParamType:   "array",
	Description: "1-3 search queries for researching improvements to address the critique of your current answer.",
	Required:    true,
	Items:       &ToolParameter{ParamType: "string"},
}

// AnswerTool is one of the two structured-answer tools. The model is forced
// to call it; its arguments are the answer itself.
type AnswerTool struct {
	kind     model.AnswerKind
	metadata ToolMetadata
}

var _ Tool = (*AnswerTool)(nil)

// NewAnswerQuestionTool returns the initial-draft tool.
func NewAnswerQuestionTool() *AnswerTool {
	return &AnswerTool{
		kind: model.KindAnswerQuestion,
		metadata: ToolMetadata{
			Name:        model.KindAnswerQuestion.String(),
			Description: "Answer the question. Provide an answer, reflection, and then follow up with search queries to improve the answer.",
			Parameters: []ToolParameter{
				{Name: "answer", ParamType: "string", Description: "~250 word detailed answer to the question.", Required: true},
				reflectionParam,
				searchQueriesParam,
				{
					Name:        "references",
					ParamType:   "array",
					Description: "Sources supporting the answer, if any.",
					Items:       &ToolParameter{ParamType: "string"},
				},
			},
		},
	}
}

// NewReviseAnswerTool returns the revision tool.
func NewReviseAnswerTool() *AnswerTool {
	return &AnswerTool{
		kind: model.KindReviseAnswer,
		metadata: ToolMetadata{
			Name:        model.KindReviseAnswer.String(),
			Description: "Revise your original answer to your question. Provide an answer, reflection, cite your reflection with references, and finally add search queries to improve the answer.",
			Parameters: []ToolParameter{
				{Name: "answer", ParamType: "string", Description: "~250 word detailed answer to the question.", Required: true},
				reflectionParam,
				searchQueriesParam,
				{
					Name:        "references",
					ParamType:   "array",
					Description: "Citations motivating your updated answer.",
					Required:    true,
					Items:       &ToolParameter{ParamType: "string"},
				},
			},
		},
	}
}

// Kind returns the answer kind the tool produces.
func (t *AnswerTool) Kind() model.AnswerKind {
	return t.kind
}

// Metadata returns the tool metadata.
func (t *AnswerTool) Metadata() ToolMetadata {
	return t.metadata
}

// Validate reports the first missing required field. Callers treat the
// result as advisory: malformed payloads are still consumed with defaults.
func (t *AnswerTool) Validate(args json.RawMessage) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(args, &raw); err != nil {
		return fmt.Errorf("%s: arguments are not a JSON object: %w", t.metadata.Name, err)
	}
	for _, p := range t.metadata.Parameters {
		if !p.Required {
			continue
		}
		v, ok := raw[p.Name]
		if !ok || string(v) == "null" {
			return fmt.Errorf("%s: missing required field %q", t.metadata.Name, p.Name)
		}
	}

	var parsed model.AnswerArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return fmt.Errorf("%s: %w", t.metadata.Name, err)
	}
	if parsed.Answer == nil || *parsed.Answer == "" {
		return errors.New(t.metadata.Name + ": answer is empty")
	}
	return nil
}
