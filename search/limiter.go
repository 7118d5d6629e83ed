package search

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// limitedProvider gates every call through a shared token bucket.
type limitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// RateLimited wraps p so that calls wait on limiter before being issued.
// Sharing one limiter across wrappers shares the budget.
func RateLimited(p Provider, limiter *rate.Limiter) Provider {
	if limiter == nil {
		return p
	}
	return &limitedProvider{inner: p, limiter: limiter}
}

func (l *limitedProvider) Name() string {
	return l.inner.Name()
}

func (l *limitedProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", l.inner.Name(), err)
	}
	return l.inner.Search(ctx, query, opts)
}
