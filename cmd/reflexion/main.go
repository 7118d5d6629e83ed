// Package main provides the reflexion CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/reflexion/cli"
	"github.com/richinex/reflexion/storage"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "reflexion",
		Short: "Answer questions with a self-critiquing research loop",
		Long: `A CLI tool that answers a question by drafting, critiquing and revising.

Each iteration the model writes an answer, reflects on what is missing,
proposes search queries, and revises with the new evidence. The loop stops
when the answer's quality score stops improving or the iteration cap is hit.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Run database path (default .reflexion/reflexion.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(sourcesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func baseOptions() cli.Options {
	opts := cli.DefaultOptions()
	opts.ConfigPath = configPath
	opts.DBPath = dbPath
	opts.Verbose = verbose
	return opts
}

func runCmd() *cobra.Command {
	var (
		provider      string
		searchName    string
		maxIter       int
		noSave        bool
		sharedSources bool
		exportMD      string
		exportJSON    string
	)

	cmd := &cobra.Command{
		Use:   "run [question]",
		Short: "Research and answer a question",
		Long: `Run the draft, search and revise loop on a question.

Each revision is scored on length, references, citations and query
coverage. The answer with the last improving score is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := baseOptions()
			opts.Provider = provider
			opts.Search = searchName
			if cmd.Flags().Changed("max-iter") {
				opts.MaxIter = maxIter
			}
			opts.NoSave = noSave
			opts.SharedSources = sharedSources
			opts.ExportMD = exportMD
			opts.ExportJSON = exportJSON
			return cli.Run(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	cmd.Flags().StringVar(&searchName, "search", "", "Search provider (tavily, brave, duckduckgo, mcp)")
	cmd.Flags().IntVarP(&maxIter, "max-iter", "m", 2, "Maximum search/revise cycles")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record the run")
	cmd.Flags().BoolVar(&sharedSources, "shared-sources", false, "Skip sources already seen by earlier runs")
	cmd.Flags().StringVar(&exportMD, "export-md", "", "Write the final answer as markdown to this file")
	cmd.Flags().StringVar(&exportJSON, "export-json", "", "Write the full run as JSON to this file")

	return cmd
}

// withStore opens the run database for the duration of fn.
func withStore(fn func(store storage.Store) error) error {
	store, err := cli.OpenStore(baseOptions())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return cli.ListRuns(cmd.Context(), store, limit, cmd.OutOrStdout())
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a recorded run (ID prefixes accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return cli.ShowRun(cmd.Context(), store, args[0], verbose, cmd.OutOrStdout())
			})
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [id] [id]",
		Short: "Compare two recorded runs side by side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return cli.CompareRuns(cmd.Context(), store, args[0], args[1], cmd.OutOrStdout())
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return cli.DeleteRun(cmd.Context(), store, args[0], cmd.OutOrStdout())
			})
		},
	}

	cmd.AddCommand(listCmd, showCmd, compareCmd, deleteCmd)
	return cmd
}

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source set shared across runs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List shared sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return cli.ListSources(cmd.Context(), store, cmd.OutOrStdout())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget all shared sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return cli.ClearSources(cmd.Context(), store, cmd.OutOrStdout())
			})
		},
	})

	return cmd
}
