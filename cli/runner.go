// Command execution for CLI commands.
//
// Information Hiding:
// - Settings resolution and agent setup hidden
// - Run persistence and shared-source bookkeeping hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/reflexion/agent"
	"github.com/richinex/reflexion/config"
	"github.com/richinex/reflexion/internal/logging"
	"github.com/richinex/reflexion/search"
	"github.com/richinex/reflexion/storage"
)

// Options holds CLI execution options. Zero values defer to configuration.
type Options struct {
	Provider      string
	Search        string
	MaxIter       int // negative: use configuration
	ConfigPath    string
	DBPath        string
	NoSave        bool
	SharedSources bool
	ExportMD      string
	ExportJSON    string
	Verbose       bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{MaxIter: -1}
}

// LoadSettings resolves configuration and applies flag overrides.
func LoadSettings(opts Options) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath, opts.Provider)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.MaxIter >= 0 {
		settings.Agent.MaxIterations = opts.MaxIter
	}
	if opts.Search != "" {
		settings = settings.WithSearchProvider(opts.Search)
	}
	if opts.DBPath != "" {
		settings.Storage.Path = opts.DBPath
	}
	return settings, settings.Validate()
}

// Run answers question with the reflexion loop and prints the outcome.
func Run(ctx context.Context, question string, opts Options, out io.Writer) error {
	settings, err := LoadSettings(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(opts.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logKeys(logger)

	var store storage.Store
	if !opts.NoSave || opts.SharedSources {
		s, err := storage.OpenSqlite(settings.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()
		store = s
	}

	var evidence *search.EvidenceSet
	if opts.SharedSources {
		evidence = search.NewEvidenceSet()
		seen, err := store.Sources(ctx)
		if err != nil {
			return fmt.Errorf("failed to load shared sources: %w", err)
		}
		evidence.Load(seen)
		logger.Debug("loaded shared sources", zap.Int("count", len(seen)))
	}

	a, closeAgent, err := CreateAgent(ctx, settings, evidence, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeAgent() }()

	fmt.Fprintf(out, "Researching with %s + %s (max %d iterations)...\n\n",
		settings.LLM.Provider, settings.Search.Provider, settings.Agent.MaxIterations)

	res, runErr := a.Run(ctx, question, settings.Agent.MaxIterations)
	if runErr != nil && res.RunID == "" {
		return runErr
	}

	run := storage.Run{
		Result:        res,
		Provider:      settings.LLM.Provider,
		Model:         settings.LLM.Model,
		Search:        settings.Search.Provider,
		MaxIterations: settings.Agent.MaxIterations,
		CreatedAt:     time.Now(),
	}

	// Persist what we have even when the run was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	if opts.SharedSources {
		if err := store.AddSources(persistCtx, res.Sources); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save shared sources: %v\n", err)
		}
	}
	if !opts.NoSave {
		if err := store.SaveRun(persistCtx, run); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save run: %v\n", err)
		}
	}

	PrintResult(out, res, opts.Verbose)

	if opts.ExportMD != "" {
		if err := os.WriteFile(opts.ExportMD, ExportMarkdown(res), 0644); err != nil {
			return fmt.Errorf("failed to write markdown export: %w", err)
		}
		fmt.Fprintf(out, "\nMarkdown written to %s\n", opts.ExportMD)
	}
	if opts.ExportJSON != "" {
		data, err := ExportJSON(run)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.ExportJSON, data, 0644); err != nil {
			return fmt.Errorf("failed to write JSON export: %w", err)
		}
		fmt.Fprintf(out, "Run JSON written to %s\n", opts.ExportJSON)
	}

	if runErr != nil {
		return runErr
	}
	if res.Failure != "" && !res.HasAnswer() {
		return fmt.Errorf("run failed: %s", res.Failure)
	}
	return nil
}

func logKeys(logger *zap.Logger) {
	for _, k := range config.KeyReport() {
		logger.Debug("environment key", zap.String("name", k.Name), zap.Bool("loaded", k.Set))
	}
}

// stopReasonText describes why a run ended.
func stopReasonText(r agent.StopReason) string {
	switch r {
	case agent.ReasonMaxIterations:
		return "iteration limit reached"
	case agent.ReasonNoImprovement:
		return "score stopped improving"
	case agent.ReasonNoQueries:
		return "model produced no actionable call"
	case agent.ReasonModelFailure:
		return "model call failed"
	case agent.ReasonCancelled:
		return "cancelled"
	default:
		return string(r)
	}
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
