// Package search provides web search collaborators and the search step of
// the reflexion loop.
//
// Information Hiding:
// - Provider wire formats and authentication hidden behind Provider
// - Seen-URL bookkeeping hidden behind EvidenceSet
// - Concurrent dispatch and deterministic reassembly hidden behind Executor
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Result is a raw hit returned by a search backend. Backends that return a
// page extract fill Content; those that return a short description fill
// Snippet.
type Result struct {
	Title   string
	URL     string
	Content string
	Snippet string
}

// Text returns the best available body for the hit.
func (r Result) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Snippet
}

// Options tunes a single search call.
type Options struct {
	// Count is the maximum number of raw hits to request.
	Count int
}

// DefaultRawResults is the per-invocation raw result cap.
const DefaultRawResults = 5

// Provider is a web search backend.
type Provider interface {
	// Name returns the backend name (for logging/debugging).
	Name() string

	// Search runs one query. A single bounded request is made; errors are
	// returned, never retried.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Provider names accepted by NewProvider.
const (
	ProviderTavily     = "tavily"
	ProviderBrave      = "brave"
	ProviderDuckDuckGo = "duckduckgo"
)

// NewProvider constructs a backend by name. Brave and DuckDuckGo are wrapped
// with a one request per second limiter.
func NewProvider(name, apiKey string, timeout time.Duration) (Provider, error) {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderTavily, "":
		return NewTavilyWithClient(apiKey, "basic", client), nil
	case ProviderBrave:
		return RateLimited(NewBraveWithClient(apiKey, client), rate.NewLimiter(rate.Every(time.Second), 1)), nil
	case ProviderDuckDuckGo, "ddg":
		return RateLimited(NewDuckDuckGoWithClient(client), rate.NewLimiter(rate.Every(time.Second), 1)), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", name)
	}
}

// RequiresKey reports whether the named backend needs an API key.
func RequiresKey(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderDuckDuckGo, "ddg":
		return false
	default:
		return true
	}
}

func resultCount(opts Options) int {
	if opts.Count <= 0 {
		return DefaultRawResults
	}
	return opts.Count
}
