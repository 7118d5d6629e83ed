// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"errors"

	"go.uber.org/zap"

	"github.com/richinex/reflexion/llm"
	"github.com/richinex/reflexion/search"
	"github.com/richinex/reflexion/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder().LLM(p).Search(s).Build()
type Builder struct {
	generator Generator
	provider  llm.Provider
	registry  *tools.Registry
	searcher  search.Provider
	evidence  *search.EvidenceSet
	logger    *zap.Logger
	config    Config
}

// NewBuilder creates a builder with the default configuration.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// LLM sets the chat provider. Ignored when Generator is also set.
func (b *Builder) LLM(provider llm.Provider) *Builder {
	b.provider = provider
	return b
}

// Tools overrides the answer tool registry used with LLM.
func (b *Builder) Tools(registry *tools.Registry) *Builder {
	b.registry = registry
	return b
}

// Generator sets the answer generator directly.
func (b *Builder) Generator(g Generator) *Builder {
	b.generator = g
	return b
}

// Search sets the search collaborator.
func (b *Builder) Search(p search.Provider) *Builder {
	b.searcher = p
	return b
}

// SharedEvidence makes every run use set instead of a fresh evidence set.
// The set is safe for concurrent runs; callers clear it with Reset.
func (b *Builder) SharedEvidence(set *search.EvidenceSet) *Builder {
	b.evidence = set
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Instructions overrides the draft and revise instructions. Empty values keep
// the defaults.
func (b *Builder) Instructions(draft, revise string) *Builder {
	b.config.DraftInstruction = draft
	b.config.ReviseInstruction = revise
	return b
}

// SearchConfig sets the executor limits.
func (b *Builder) SearchConfig(cfg search.ExecutorConfig) *Builder {
	b.config.Search = cfg
	return b
}

// Build creates the agent.
func (b *Builder) Build() (*Agent, error) {
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gen := b.generator
	if gen == nil {
		if b.provider == nil {
			return nil, errors.New("agent: an LLM provider or generator is required")
		}
		gen = NewLLMGenerator(b.provider, b.registry, logger)
	}
	if b.searcher == nil {
		return nil, errors.New("agent: a search provider is required")
	}

	return New(b.config, gen, b.searcher, b.evidence, logger), nil
}
