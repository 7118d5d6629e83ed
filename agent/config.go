// Agent configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

import "github.com/richinex/reflexion/search"

// DefaultMaxIterations is the number of research passes allowed beyond the
// first when the caller does not choose one.
const DefaultMaxIterations = 2

// Config holds agent configuration.
type Config struct {
	// DraftInstruction guides the first answer.
	DraftInstruction string

	// ReviseInstruction guides every revision.
	ReviseInstruction string

	// Search configures the per-run search executor.
	Search search.ExecutorConfig
}

// DefaultConfig returns the stock instructions and search limits.
func DefaultConfig() Config {
	return Config{
		DraftInstruction:  DraftInstruction,
		ReviseInstruction: ReviseInstruction,
		Search: search.ExecutorConfig{
			MaxPerQuery: search.DefaultMaxPerQuery,
			RawResults:  search.DefaultRawResults,
			Concurrency: search.DefaultConcurrency,
			Timeout:     search.DefaultTimeout,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DraftInstruction == "" {
		c.DraftInstruction = d.DraftInstruction
	}
	if c.ReviseInstruction == "" {
		c.ReviseInstruction = d.ReviseInstruction
	}
	return c
}
