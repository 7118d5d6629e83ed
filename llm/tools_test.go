package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

var answerTool = ToolDefinition{
	Name:        "AnswerQuestion",
	Description: "Answer the question.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"answer":         map[string]interface{}{"type": "string"},
			"search_queries": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"answer", "search_queries"},
	},
}

func TestOpenAIForcedToolChoice(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "AnswerQuestion", "arguments": "{\"answer\":\"hi\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`))
	}))
	defer srv.Close()

	config := openai.DefaultConfig("sk-test")
	config.BaseURL = srv.URL + "/v1"
	provider := NewOpenAIProviderWithConfig(config, "gpt-4o", 100, 0)

	messages := []ChatMessage{
		SystemMessage("sys"),
		UserMessage("q"),
		AssistantToolCalls(ToolCall{ID: "call_0", Name: "AnswerQuestion", Arguments: json.RawMessage(`{}`)}),
		ToolMessage("call_0", "AnswerQuestion", `{"q":[]}`),
	}
	resp, err := provider.ChatWithTools(context.Background(), messages, []ToolDefinition{answerTool}, ForceTool("AnswerQuestion"))
	if err != nil {
		t.Fatalf("ChatWithTools failed: %v", err)
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Name != "AnswerQuestion" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if string(resp.ToolCalls[0].Arguments) != `{"answer":"hi"}` {
		t.Errorf("unexpected arguments: %s", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}

	choice, ok := captured["tool_choice"].(map[string]any)
	if !ok {
		t.Fatalf("tool_choice missing from request: %v", captured["tool_choice"])
	}
	if choice["type"] != "function" {
		t.Errorf("tool_choice type = %v", choice["type"])
	}
	if fn, _ := choice["function"].(map[string]any); fn["name"] != "AnswerQuestion" {
		t.Errorf("tool_choice function = %v", choice["function"])
	}

	sent, _ := captured["messages"].([]any)
	if len(sent) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sent))
	}
	toolMsg, _ := sent[3].(map[string]any)
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_0" {
		t.Errorf("unexpected tool message: %v", toolMsg)
	}
}

func TestAnthropicForcedToolChoice(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "tool_use", "id": "toolu_1", "name": "AnswerQuestion", "input": {"answer": "hi"}}],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 5, "output_tokens": 6}
		}`))
	}))
	defer srv.Close()

	provider := NewAnthropicProvider("sk-ant-test", "claude-sonnet-4-20250514", 100, 0,
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	messages := []ChatMessage{
		SystemMessage("first"),
		SystemMessage("second"),
		UserMessage("q"),
	}
	resp, err := provider.ChatWithTools(context.Background(), messages, []ToolDefinition{answerTool}, ForceTool("AnswerQuestion"))
	if err != nil {
		t.Fatalf("ChatWithTools failed: %v", err)
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "toolu_1" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	var args map[string]any
	if err := json.Unmarshal(resp.ToolCalls[0].Arguments, &args); err != nil || args["answer"] != "hi" {
		t.Errorf("unexpected arguments: %s", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 11 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}

	choice, _ := captured["tool_choice"].(map[string]any)
	if choice["type"] != "tool" || choice["name"] != "AnswerQuestion" {
		t.Errorf("unexpected tool_choice: %v", captured["tool_choice"])
	}
	system, _ := captured["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("expected one system block, got %v", captured["system"])
	}
	if block, _ := system[0].(map[string]any); block["text"] != "first\n\nsecond" {
		t.Errorf("unexpected system text: %v", block["text"])
	}
}

func TestConvertToAnthropicMessagesMergesToolResults(t *testing.T) {
	messages := []ChatMessage{
		UserMessage("q"),
		AssistantToolCalls(
			ToolCall{ID: "a", Name: "AnswerQuestion", Arguments: json.RawMessage(`{"answer":"x"}`)},
			ToolCall{ID: "b", Name: "AnswerQuestion", Arguments: json.RawMessage(`not json`)},
		),
		ToolMessage("a", "AnswerQuestion", "{}"),
		ToolMessage("b", "AnswerQuestion", "{}"),
		UserMessage("next"),
	}

	converted := convertToAnthropicMessages(messages)
	if len(converted) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(converted))
	}
	if len(converted[2].Content) != 2 {
		t.Errorf("expected tool results merged into one turn, got %d blocks", len(converted[2].Content))
	}
	if converted[1].Content[1].OfToolUse == nil {
		t.Fatal("expected tool_use block")
	}
	if input, ok := converted[1].Content[1].OfToolUse.Input.(map[string]interface{}); !ok || input == nil {
		t.Errorf("malformed arguments should become an empty object, got %#v", converted[1].Content[1].OfToolUse.Input)
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]ChatMessage{
		SystemMessage("a"),
		UserMessage("u"),
		SystemMessage(""),
		SystemMessage("b"),
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 1 || rest[0].Role != RoleUser {
		t.Errorf("rest = %+v", rest)
	}
}

func TestConvertToGeminiSchema(t *testing.T) {
	schema := convertToGeminiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"queries": map[string]interface{}{"type": "array"},
			"reflection": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"missing": map[string]interface{}{"type": "string", "description": "gaps"},
				},
				"required": []interface{}{"missing"},
			},
		},
		"required": []string{"queries"},
	})

	if len(schema.Required) != 1 || schema.Required[0] != "queries" {
		t.Errorf("required = %v", schema.Required)
	}
	queries := schema.Properties["queries"]
	if queries == nil || queries.Items == nil {
		t.Fatal("array property must get an items schema")
	}
	reflection := schema.Properties["reflection"]
	if reflection == nil || reflection.Properties["missing"] == nil {
		t.Fatal("nested object properties not converted")
	}
	if reflection.Properties["missing"].Description != "gaps" {
		t.Errorf("description lost")
	}
	if len(reflection.Required) != 1 {
		t.Errorf("nested required lost: %v", reflection.Required)
	}
}

// flakyProvider fails a fixed number of times before succeeding.
type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (f *flakyProvider) Name() string  { return "flaky" }
func (f *flakyProvider) Model() string { return "m" }

func (f *flakyProvider) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, choice *ToolChoice) (LLMResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Content: "ok"}, nil
}

func TestClientRetriesTransientErrors(t *testing.T) {
	p := &flakyProvider{failures: 2, err: errors.New("connection reset")}
	c := NewClient(p, WithMaxRetries(3), WithBaseDelay(time.Millisecond))

	resp, err := c.ChatWithTools(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if resp.Content != "ok" || p.calls != 3 {
		t.Errorf("content=%q calls=%d", resp.Content, p.calls)
	}
}

func TestClientGivesUp(t *testing.T) {
	p := &flakyProvider{failures: 10, err: errors.New("timeout")}
	c := NewClient(p, WithMaxRetries(2), WithBaseDelay(time.Millisecond))

	_, err := c.ChatWithTools(context.Background(), nil, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d", p.calls)
	}
}

func TestClientDoesNotRetryAuthErrors(t *testing.T) {
	p := &flakyProvider{failures: 10, err: errors.New("status 401: unauthorized")}
	c := NewClient(p, WithMaxRetries(5), WithBaseDelay(time.Millisecond))

	if _, err := c.ChatWithTools(context.Background(), nil, nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 {
		t.Errorf("auth errors must not be retried, calls = %d", p.calls)
	}
}

func TestClientHonorsCancellation(t *testing.T) {
	p := &flakyProvider{failures: 10, err: errors.New("timeout")}
	c := NewClient(p, WithMaxRetries(5), WithBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.ChatWithTools(ctx, nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseProviderType(t *testing.T) {
	cases := map[string]ProviderType{
		"openai": ProviderOpenAI, "GPT": ProviderOpenAI,
		"claude": ProviderAnthropic, "google": ProviderGemini,
		"deepseek": ProviderDeepSeek,
	}
	for in, want := range cases {
		got, err := ParseProviderType(in)
		if err != nil || got != want {
			t.Errorf("ParseProviderType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseProviderType("bard"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLookupAPIKeyAlias(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	key, name := ProviderGemini.LookupAPIKey()
	if key != "g-key" || name != "GOOGLE_API_KEY" {
		t.Errorf("LookupAPIKey = %q, %q", key, name)
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := ProviderOpenAI.FromEnv(); err == nil {
		t.Error("expected missing key error")
	}
}
