package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	jsonutil "github.com/richinex/reflexion/internal/json"
	"github.com/richinex/reflexion/llm"
	"github.com/richinex/reflexion/model"
	"github.com/richinex/reflexion/tools"
)

// Generator produces the next structured answer. The returned message is a
// model call holding exactly one invocation of kind.
type Generator interface {
	Generate(ctx context.Context, history model.History, kind model.AnswerKind, instruction string) (model.Message, error)
}

// LLMGenerator is a Generator backed by a tool-calling chat provider.
type LLMGenerator struct {
	provider llm.Provider
	registry *tools.Registry
	now      func() time.Time
	logger   *zap.Logger
}

var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator creates a generator. A nil registry means the built-in
// answer tools; a nil logger disables logging.
func NewLLMGenerator(provider llm.Provider, registry *tools.Registry, logger *zap.Logger) *LLMGenerator {
	if registry == nil {
		registry = tools.AnswerTools()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMGenerator{
		provider: provider,
		registry: registry,
		now:      time.Now,
		logger:   logger,
	}
}

// Generate renders the conversation, forces the tool for kind and converts
// the reply. A reply without a tool call is accepted when its text embeds
// the arguments as a JSON object.
func (g *LLMGenerator) Generate(ctx context.Context, history model.History, kind model.AnswerKind, instruction string) (model.Message, error) {
	def, err := g.registry.Definition(kind)
	if err != nil {
		return model.Message{}, err
	}

	messages := g.render(history, instruction)
	resp, err := g.provider.ChatWithTools(ctx, messages, []llm.ToolDefinition{def}, llm.ForceTool(def.Name))
	if err != nil {
		return model.Message{}, fmt.Errorf("generate %s: %w", kind, err)
	}

	var calls []model.ToolInvocation
	for _, tc := range resp.ToolCalls {
		if tc.Name != def.Name {
			g.logger.Debug("ignoring unexpected tool call", zap.String("name", tc.Name))
			continue
		}
		calls = append(calls, model.ToolInvocation{ID: callID(tc.ID), Name: tc.Name, Arguments: tc.Arguments})
	}

	if len(calls) == 0 {
		raw, err := jsonutil.ExtractObject(resp.Content)
		if err != nil {
			return model.Message{}, fmt.Errorf("generate %s: model returned no tool call: %w", kind, err)
		}
		g.logger.Debug("recovered arguments from text reply", zap.String("kind", kind.String()))
		calls = append(calls, model.ToolInvocation{ID: callID(""), Name: def.Name, Arguments: raw})
	}

	if tool, ok := g.registry.ForKind(kind); ok {
		for _, c := range calls {
			if err := tool.Validate(c.Arguments); err != nil {
				g.logger.Warn("malformed answer payload", zap.String("call_id", c.ID), zap.Error(err))
			}
		}
	}

	return model.NewModelCall(calls[0]), nil
}

func (g *LLMGenerator) render(history model.History, instruction string) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.SystemMessage(actorPrompt(g.now(), instruction)))

	names := make(map[string]string)
	for _, msg := range history {
		switch msg.Type {
		case model.MessageHuman:
			messages = append(messages, llm.UserMessage(msg.Content))
		case model.MessageModelCall:
			calls := make([]llm.ToolCall, 0, len(msg.Calls))
			for _, c := range msg.Calls {
				names[c.ID] = c.Name
				args := c.Arguments
				if len(args) == 0 {
					args = []byte("{}")
				}
				calls = append(calls, llm.ToolCall{ID: c.ID, Name: c.Name, Arguments: args})
			}
			messages = append(messages, llm.AssistantToolCalls(calls...))
		case model.MessageToolResult:
			messages = append(messages, llm.ToolMessage(msg.CallID, names[msg.CallID], msg.Content))
		}
	}

	return append(messages, llm.SystemMessage(formatReminder))
}

func callID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}
