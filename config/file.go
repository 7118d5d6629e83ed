package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration. Unset fields leave the
// environment-derived value alone.
type File struct {
	Provider      string     `yaml:"provider,omitempty"`
	Model         string     `yaml:"model,omitempty"`
	MaxTokens     *uint32    `yaml:"max_tokens,omitempty"`
	Temperature   *float64   `yaml:"temperature,omitempty"`
	MaxRetries    *uint32    `yaml:"max_retries,omitempty"`
	MaxIterations *int       `yaml:"max_iterations,omitempty"`
	Search        SearchFile `yaml:"search,omitempty"`
	Database      string     `yaml:"database,omitempty"`
}

// SearchFile is the search section of File.
type SearchFile struct {
	Provider        string  `yaml:"provider,omitempty"`
	ResultsPerQuery *int    `yaml:"results_per_query,omitempty"`
	RawResults      *int    `yaml:"raw_results,omitempty"`
	Concurrency     *int    `yaml:"concurrency,omitempty"`
	Timeout         string  `yaml:"timeout,omitempty"` // e.g. "20s"
	MCP             MCPFile `yaml:"mcp,omitempty"`
}

// MCPFile is the search.mcp section of File.
type MCPFile struct {
	Config string `yaml:"config,omitempty"`
	Server string `yaml:"server,omitempty"`
	Tool   string `yaml:"tool,omitempty"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &f, nil
}

// Load builds settings from the environment and overlays the YAML file at
// path when path is non-empty. An explicit provider beats the file's.
func Load(path, provider string) (Settings, error) {
	var f *File
	if path != "" {
		var err error
		if f, err = LoadFile(path); err != nil {
			return Settings{}, err
		}
		if provider == "" {
			provider = f.Provider
		}
	}

	s, err := New(provider)
	if err != nil {
		return Settings{}, err
	}
	if f == nil {
		return s, nil
	}
	if err := f.apply(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (f *File) apply(s *Settings) error {
	if f.Model != "" {
		s.LLM.Model = f.Model
	}
	if f.MaxTokens != nil {
		s.LLM.MaxTokens = *f.MaxTokens
	}
	if f.Temperature != nil {
		s.LLM.Temperature = *f.Temperature
	}
	if f.MaxRetries != nil {
		s.LLM.MaxRetries = *f.MaxRetries
	}
	if f.MaxIterations != nil {
		s.Agent.MaxIterations = *f.MaxIterations
	}
	if f.Search.Provider != "" {
		s.Search.Provider = normalizeSearch(f.Search.Provider)
	}
	if f.Search.ResultsPerQuery != nil {
		s.Search.ResultsPerQuery = *f.Search.ResultsPerQuery
	}
	if f.Search.RawResults != nil {
		s.Search.RawResults = *f.Search.RawResults
	}
	if f.Search.Concurrency != nil {
		s.Search.Concurrency = *f.Search.Concurrency
	}
	if f.Search.Timeout != "" {
		d, err := time.ParseDuration(f.Search.Timeout)
		if err != nil {
			return fmt.Errorf("invalid search timeout %q: %w", f.Search.Timeout, err)
		}
		s.Search.Timeout = d
	}
	if f.Search.MCP.Config != "" {
		s.Search.MCP.ConfigPath = f.Search.MCP.Config
	}
	if f.Search.MCP.Server != "" {
		s.Search.MCP.Server = f.Search.MCP.Server
	}
	if f.Search.MCP.Tool != "" {
		s.Search.MCP.Tool = f.Search.MCP.Tool
	}
	if f.Database != "" {
		s.Storage.Path = f.Database
	}
	return nil
}
