// Agent construction from settings.
//
// Information Hiding:
// - Provider and search client creation hidden
// - Credential lookup hidden
// - MCP server lifecycle hidden

package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/richinex/reflexion/agent"
	"github.com/richinex/reflexion/config"
	"github.com/richinex/reflexion/llm"
	"github.com/richinex/reflexion/mcp"
	"github.com/richinex/reflexion/search"
)

// createProvider builds the retrying LLM client named by settings.
func createProvider(settings config.Settings, logger *zap.Logger) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	provider, err := providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
	if err != nil {
		return nil, err
	}

	return llm.NewClient(provider,
		llm.WithMaxRetries(settings.LLM.MaxRetries),
		llm.WithLogger(logger),
	), nil
}

// createSearch builds the search collaborator named by settings. The
// returned close function releases an MCP server process, if any.
func createSearch(ctx context.Context, settings config.Settings) (search.Provider, func() error, error) {
	if settings.Search.Provider == "mcp" {
		p, err := createMCPSearch(ctx, settings.Search.MCP)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}

	apiKey, err := config.SearchAPIKeyFor(settings.Search.Provider)
	if err != nil {
		return nil, nil, err
	}
	p, err := search.NewProvider(settings.Search.Provider, apiKey, settings.Search.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return p, func() error { return nil }, nil
}

func createMCPSearch(ctx context.Context, cfg config.MCPConfig) (*mcp.SearchProvider, error) {
	if cfg.ConfigPath == "" {
		return nil, fmt.Errorf("mcp search requires an MCP config file (REFLEXION_MCP_CONFIG or search.mcp.config)")
	}
	servers, err := mcp.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	server, err := servers.Server(cfg.Server)
	if err != nil {
		return nil, err
	}
	return mcp.NewSearchProvider(ctx, server, cfg.Tool)
}

// CreateAgent creates a reflexion agent from settings. A non-nil evidence set
// is shared across runs. The caller must call the returned close function
// when done with the agent.
func CreateAgent(ctx context.Context, settings config.Settings, evidence *search.EvidenceSet, logger *zap.Logger) (*agent.Agent, func() error, error) {
	provider, err := createProvider(settings, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("llm provider: %w", err)
	}
	searcher, closeSearch, err := createSearch(ctx, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("search provider: %w", err)
	}

	a, err := agent.NewBuilder().
		LLM(provider).
		Search(searcher).
		SharedEvidence(evidence).
		Logger(logger).
		SearchConfig(search.ExecutorConfig{
			MaxPerQuery: settings.Search.ResultsPerQuery,
			RawResults:  settings.Search.RawResults,
			Concurrency: settings.Search.Concurrency,
			Timeout:     settings.Search.Timeout,
		}).
		Build()
	if err != nil {
		_ = closeSearch()
		return nil, nil, err
	}
	return a, closeSearch, nil
}
