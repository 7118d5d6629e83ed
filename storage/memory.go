// In-memory storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/richinex/reflexion/agent"
)

// InMemoryStorage implements Store using in-memory maps.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu      sync.RWMutex
	runs    map[string]Run
	sources map[string]struct{}
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		runs:    make(map[string]Run),
		sources: make(map[string]struct{}),
	}
}

// SaveRun stores a copy of run.
func (s *InMemoryStorage) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID()] = cloneRun(run)
	return nil
}

// GetRun loads a run by ID or unique prefix.
func (s *InMemoryStorage) GetRun(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	full, err := matchID(id, s.idsLocked())
	if err != nil {
		return Run{}, err
	}
	return cloneRun(s.runs[full]), nil
}

// ListRuns lists runs newest first.
func (s *InMemoryStorage) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRun deletes a run by ID or unique prefix.
func (s *InMemoryStorage) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full, err := matchID(id, s.idsLocked())
	if err != nil {
		return err
	}
	delete(s.runs, full)
	return nil
}

func (s *InMemoryStorage) idsLocked() []string {
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids
}

// AddSources records URLs as seen.
func (s *InMemoryStorage) AddSources(ctx context.Context, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			s.sources[u] = struct{}{}
		}
	}
	return nil
}

// Sources returns all recorded URLs, sorted.
func (s *InMemoryStorage) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sources))
	for u := range s.sources {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// ClearSources forgets all recorded URLs.
func (s *InMemoryStorage) ClearSources(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sources = make(map[string]struct{})
	return nil
}

// Close is a no-op.
func (s *InMemoryStorage) Close() error {
	return nil
}

// cloneRun copies the slices callers could mutate.
func cloneRun(r Run) Run {
	res := r.Result
	res.References = cloneStrings(res.References)
	res.QueriesUsed = cloneStrings(res.QueriesUsed)
	res.Sources = cloneStrings(res.Sources)
	if res.History != nil {
		res.History = res.History.Append()
	}
	if res.Scores != nil {
		res.Scores = append([]agent.ScoreRecord{}, res.Scores...)
	}
	if res.Answer != nil {
		a := *res.Answer
		res.Answer = &a
	}
	r.Result = res
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

// Verify InMemoryStorage implements Store
var _ Store = (*InMemoryStorage)(nil)
