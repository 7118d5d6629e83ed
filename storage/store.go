// Package storage provides run history and shared-source persistence.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Each storage implementation encapsulates its own data structures and protocols

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richinex/reflexion/agent"
)

// ErrRunNotFound is returned when no run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted agent run with the settings that produced it.
type Run struct {
	Result        agent.Result `json:"result"`
	Provider      string       `json:"provider"`
	Model         string       `json:"model"`
	Search        string       `json:"search"`
	MaxIterations int          `json:"max_iterations"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ID returns the run ID.
func (r Run) ID() string {
	return r.Result.RunID
}

// Summary condenses the run for listings.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:         r.Result.RunID,
		Question:   r.Result.Question,
		Provider:   r.Provider,
		Score:      r.Result.FinalScore(),
		Iterations: r.Result.Iterations,
		StopReason: string(r.Result.StopReason),
		HasAnswer:  r.Result.HasAnswer(),
		CreatedAt:  r.CreatedAt,
	}
}

// RunSummary is one row of a run listing.
type RunSummary struct {
	ID         string
	Question   string
	Provider   string
	Score      float64
	Iterations int
	StopReason string
	HasAnswer  bool
	CreatedAt  time.Time
}

// RunStorage defines the interface for storing run history.
// Implementations can use different backends (memory, database).
type RunStorage interface {
	// SaveRun inserts or replaces a run.
	SaveRun(ctx context.Context, run Run) error

	// GetRun loads a run by full ID or unique ID prefix.
	// Returns ErrRunNotFound when nothing matches.
	GetRun(ctx context.Context, id string) (Run, error)

	// ListRuns lists runs newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRun deletes a run by full ID or unique prefix.
	DeleteRun(ctx context.Context, id string) error
}

// SourceStorage persists the evidence set shared between runs.
type SourceStorage interface {
	// AddSources records URLs as seen. Duplicates are ignored.
	AddSources(ctx context.Context, urls []string) error

	// Sources returns all recorded URLs, sorted.
	Sources(ctx context.Context) ([]string, error)

	// ClearSources forgets all recorded URLs.
	ClearSources(ctx context.Context) error
}

// Store combines run and source storage.
type Store interface {
	RunStorage
	SourceStorage
	Close() error
}

// matchID picks the single candidate equal to id or prefixed by it.
func matchID(id string, candidates []string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrRunNotFound
	}
	var matches []string
	for _, c := range candidates {
		if c == id {
			return c, nil
		}
		if strings.HasPrefix(c, id) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run id %q is ambiguous (%d matches)", id, len(matches))
	}
}
