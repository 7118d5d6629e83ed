// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// Load() additionally overlays a YAML file.

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultProvider is used when neither flag, file nor LLM_PROVIDER names one.
const DefaultProvider = "gemini"

// DefaultDatabase is the run history location.
const DefaultDatabase = ".reflexion/reflexion.db"

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Agent   AgentConfig
	Search  SearchConfig
	Storage StorageConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
	MaxRetries  uint32
}

// AgentConfig holds loop configuration.
type AgentConfig struct {
	MaxIterations int
}

// SearchConfig holds search collaborator configuration.
type SearchConfig struct {
	Provider        string
	ResultsPerQuery int
	RawResults      int
	Concurrency     int
	Timeout         time.Duration
	MCP             MCPConfig
}

// MCPConfig selects the MCP server backing the "mcp" search provider.
type MCPConfig struct {
	ConfigPath string // Anthropic-style mcpServers JSON file
	Server     string // empty selects the only configured server
	Tool       string // empty selects the first tool named like "search"
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Path string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-pro", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// Search providers and the variable holding their key ("" when keyless).
var searchProviders = map[string]string{
	"tavily":     "TAVILY_API_KEY",
	"brave":      "BRAVE_API_KEY",
	"duckduckgo": "",
	"mcp":        "",
}

var searchAliases = map[string]string{
	"ddg": "duckduckgo",
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LLM_PROVIDER, then DefaultProvider.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = DefaultProvider
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	s.LLM.Provider = provider
	s.LLM.Model = os.Getenv(info.modelEnv)
	if s.LLM.Model == "" {
		s.LLM.Model = info.defaultModel
	}

	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", 4096); err != nil {
		return Settings{}, err
	}
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", 0.7); err != nil {
		return Settings{}, err
	}
	if s.LLM.MaxRetries, err = getEnvUint32("LLM_MAX_RETRIES", 3); err != nil {
		return Settings{}, err
	}
	if s.Agent.MaxIterations, err = getEnvInt("REFLEXION_MAX_ITERATIONS", 2); err != nil {
		return Settings{}, err
	}
	if s.Search.ResultsPerQuery, err = getEnvInt("REFLEXION_RESULTS_PER_QUERY", 3); err != nil {
		return Settings{}, err
	}
	if s.Search.RawResults, err = getEnvInt("REFLEXION_RAW_RESULTS", 5); err != nil {
		return Settings{}, err
	}
	if s.Search.Concurrency, err = getEnvInt("REFLEXION_SEARCH_CONCURRENCY", 3); err != nil {
		return Settings{}, err
	}
	if s.Search.Timeout, err = getEnvDuration("REFLEXION_SEARCH_TIMEOUT", 20*time.Second); err != nil {
		return Settings{}, err
	}

	s.Search.Provider = normalizeSearch(getEnvString("SEARCH_PROVIDER", "tavily"))
	s.Search.MCP = MCPConfig{
		ConfigPath: os.Getenv("REFLEXION_MCP_CONFIG"),
		Server:     os.Getenv("REFLEXION_MCP_SERVER"),
		Tool:       os.Getenv("REFLEXION_MCP_TOOL"),
	}
	s.Storage.Path = getEnvString("REFLEXION_DB", DefaultDatabase)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate checks ranges and known names.
func (s Settings) Validate() error {
	if _, err := getProviderInfo(s.LLM.Provider); err != nil {
		return err
	}
	if _, ok := searchProviders[s.Search.Provider]; !ok {
		return fmt.Errorf("unknown search provider: %q", s.Search.Provider)
	}
	if s.Agent.MaxIterations < 0 {
		return fmt.Errorf("max iterations must be >= 0, got %d", s.Agent.MaxIterations)
	}
	if s.Search.ResultsPerQuery < 1 {
		return fmt.Errorf("results per query must be >= 1, got %d", s.Search.ResultsPerQuery)
	}
	if s.Search.RawResults < 1 {
		return fmt.Errorf("raw results must be >= 1, got %d", s.Search.RawResults)
	}
	if s.Search.Concurrency < 1 {
		return fmt.Errorf("search concurrency must be >= 1, got %d", s.Search.Concurrency)
	}
	if s.Search.Timeout <= 0 {
		return fmt.Errorf("search timeout must be positive, got %s", s.Search.Timeout)
	}
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

func normalizeSearch(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := searchAliases[name]; ok {
		return canonical
	}
	return name
}

// WithSearchProvider returns a copy of s using the named search backend.
// Aliases such as "ddg" are accepted.
func (s Settings) WithSearchProvider(name string) Settings {
	s.Search.Provider = normalizeSearch(name)
	return s
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
// Gemini also accepts GOOGLE_API_KEY.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if key := os.Getenv(info.apiKeyEnv); key != "" {
		return key, nil
	}
	if provider == "gemini" {
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
}

// SearchAPIKeyFor returns the key for a search provider. Keyless providers
// return "" and no error.
func SearchAPIKeyFor(name string) (string, error) {
	name = normalizeSearch(name)
	env, ok := searchProviders[name]
	if !ok {
		return "", fmt.Errorf("unknown search provider: %q", name)
	}
	if env == "" {
		return "", nil
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", env)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the supported provider names, sorted.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// KeyStatus reports whether a credential variable is set.
type KeyStatus struct {
	Name string
	Set  bool
}

// KeyReport lists every known credential variable and whether it is set.
func KeyReport() []KeyStatus {
	var names []string
	for _, info := range providers {
		names = append(names, info.apiKeyEnv)
	}
	for _, env := range searchProviders {
		if env != "" {
			names = append(names, env)
		}
	}
	names = append(names, "GOOGLE_API_KEY")
	sort.Strings(names)

	report := make([]KeyStatus, 0, len(names))
	for _, n := range names {
		report = append(report, KeyStatus{Name: n, Set: os.Getenv(n) != ""})
	}
	return report
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
