package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/richinex/reflexion/storage"
)

// OpenStore opens the run database named by opts or configuration.
func OpenStore(opts Options) (storage.Store, error) {
	settings, err := LoadSettings(opts)
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenSqlite(settings.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// ListRuns prints the most recent runs, newest first.
func ListRuns(ctx context.Context, store storage.RunStorage, limit int, out io.Writer) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPROVIDER\tSCORE\tITER\tSTOP\tQUESTION")
	for _, r := range runs {
		score := fmt.Sprintf("%.2f", r.Score)
		if !r.HasAnswer {
			score = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(r.ID), r.CreatedAt.Format("2006-01-02 15:04"), r.Provider,
			score, r.Iterations, r.StopReason, truncateString(oneLine(r.Question), 50))
	}
	return w.Flush()
}

// ShowRun prints one stored run in full.
func ShowRun(ctx context.Context, store storage.RunStorage, id string, verbose bool, out io.Writer) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", headerColor("Question:"), run.Result.Question)
	fmt.Fprintf(out, "%s %s/%s + %s, max %d iterations, %s\n\n",
		dimColor("Settings:"), run.Provider, run.Model, run.Search, run.MaxIterations,
		run.CreatedAt.Format("2006-01-02 15:04:05"))
	PrintResult(out, run.Result, verbose)
	return nil
}

// CompareRuns prints two runs side by side.
func CompareRuns(ctx context.Context, store storage.RunStorage, idA, idB string, out io.Writer) error {
	a, err := store.GetRun(ctx, idA)
	if err != nil {
		return err
	}
	b, err := store.GetRun(ctx, idB)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	row := func(label, left, right string) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", label, left, right)
	}
	row("", shortID(a.ID()), shortID(b.ID()))
	row("Question", truncateString(oneLine(a.Result.Question), 40), truncateString(oneLine(b.Result.Question), 40))
	row("Provider", a.Provider+"/"+a.Model, b.Provider+"/"+b.Model)
	row("Search", a.Search, b.Search)
	row("Score", fmt.Sprintf("%.2f", a.Result.FinalScore()), fmt.Sprintf("%.2f", b.Result.FinalScore()))
	row("Iterations", fmt.Sprint(a.Result.Iterations), fmt.Sprint(b.Result.Iterations))
	row("Stop", string(a.Result.StopReason), string(b.Result.StopReason))
	row("Words", fmt.Sprint(len(strings.Fields(a.Result.AnswerText()))), fmt.Sprint(len(strings.Fields(b.Result.AnswerText()))))
	row("References", fmt.Sprint(len(a.Result.References)), fmt.Sprint(len(b.Result.References)))
	row("Sources", fmt.Sprint(len(a.Result.Sources)), fmt.Sprint(len(b.Result.Sources)))
	row("Elapsed", a.Result.Elapsed.String(), b.Result.Elapsed.String())
	if err := w.Flush(); err != nil {
		return err
	}

	diff := a.Result.FinalScore() - b.Result.FinalScore()
	switch {
	case diff > 0:
		fmt.Fprintf(out, "\n%s scores higher by %.2f\n", shortID(a.ID()), diff)
	case diff < 0:
		fmt.Fprintf(out, "\n%s scores higher by %.2f\n", shortID(b.ID()), -diff)
	default:
		fmt.Fprintln(out, "\nScores are equal")
	}
	return nil
}

// DeleteRun removes one stored run.
func DeleteRun(ctx context.Context, store storage.RunStorage, id string, out io.Writer) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if err := store.DeleteRun(ctx, run.ID()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %s\n", run.ID())
	return nil
}

// ListSources prints the shared evidence set.
func ListSources(ctx context.Context, store storage.SourceStorage, out io.Writer) error {
	urls, err := store.Sources(ctx)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Fprintln(out, u)
	}
	fmt.Fprintf(out, "%d shared sources\n", len(urls))
	return nil
}

// ClearSources forgets the shared evidence set.
func ClearSources(ctx context.Context, store storage.SourceStorage, out io.Writer) error {
	if err := store.ClearSources(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Shared sources cleared")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
