package tools

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/richinex/reflexion/model"
)

func TestAnswerToolsRegistry(t *testing.T) {
	r := AnswerTools()

	names := r.Names()
	if len(names) != 2 || names[0] != "AnswerQuestion" || names[1] != "ReviseAnswer" {
		t.Fatalf("unexpected names: %v", names)
	}
	for _, kind := range model.AllKinds() {
		tool, ok := r.ForKind(kind)
		if !ok {
			t.Fatalf("no tool for %s", kind)
		}
		if at, ok := tool.(*AnswerTool); !ok || at.Kind() != kind {
			t.Errorf("tool for %s has wrong kind", kind)
		}
	}

	if err := r.Register(NewReviseAnswerTool()); err == nil {
		t.Error("expected duplicate registration error")
	}
	if _, err := NewRegistry().Definition(model.KindAnswerQuestion); err == nil {
		t.Error("expected error for empty registry")
	}
	if !strings.Contains(r.Description(), "search_queries (array)") {
		t.Errorf("description missing parameters:\n%s", r.Description())
	}
}

func TestDefinitionSchema(t *testing.T) {
	def, err := AnswerTools().Definition(model.KindReviseAnswer)
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if def.Name != "ReviseAnswer" {
		t.Errorf("name = %s", def.Name)
	}

	props := def.Parameters["properties"].(map[string]interface{})

	queries := props["search_queries"].(map[string]interface{})
	if queries["type"] != "array" {
		t.Errorf("search_queries type = %v", queries["type"])
	}
	if items := queries["items"].(map[string]interface{}); items["type"] != "string" {
		t.Errorf("search_queries items = %v", items)
	}

	reflection := props["reflection"].(map[string]interface{})
	if reflection["type"] != "object" {
		t.Errorf("reflection type = %v", reflection["type"])
	}
	inner := reflection["properties"].(map[string]interface{})
	if _, ok := inner["missing"]; !ok {
		t.Error("reflection.missing missing")
	}

	required := def.Parameters["required"].([]string)
	want := map[string]bool{"answer": true, "reflection": true, "search_queries": true, "references": true}
	if len(required) != len(want) {
		t.Fatalf("required = %v", required)
	}
	for _, r := range required {
		if !want[r] {
			t.Errorf("unexpected required field %s", r)
		}
	}

	// The schema must survive JSON encoding for providers that marshal it.
	if _, err := json.Marshal(def.Parameters); err != nil {
		t.Fatalf("schema not encodable: %v", err)
	}
}

func TestAnswerQuestionReferencesOptional(t *testing.T) {
	def, _ := AnswerTools().Definition(model.KindAnswerQuestion)
	for _, r := range def.Parameters["required"].([]string) {
		if r == "references" {
			t.Error("references should be optional for the draft")
		}
	}
}

func TestAnswerToolValidate(t *testing.T) {
	tool := NewReviseAnswerTool()

	tests := []struct {
		name    string
		args    string
		wantErr string
	}{
		{"valid", `{"answer":"a","reflection":{"missing":"","superfluous":""},"search_queries":[],"references":[]}`, ""},
		{"not object", `[]`, "not a JSON object"},
		{"missing references", `{"answer":"a","reflection":{},"search_queries":[]}`, `"references"`},
		{"null answer", `{"answer":null,"reflection":{},"search_queries":[],"references":[]}`, `"answer"`},
		{"empty answer", `{"answer":"","reflection":{},"search_queries":[],"references":[]}`, "answer is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tool.Validate(json.RawMessage(tt.args))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
