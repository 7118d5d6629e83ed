// LLMClient - Provider wrapper with bounded retry.
//
// Information Hiding:
// - Retry strategy implementation hidden
// - Backoff algorithm hidden
// - Error classification logic hidden

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxRetries is the number of attempts made per request.
const DefaultMaxRetries = 3

// Client wraps a Provider with retry on transient failures. It implements
// Provider itself so callers can use either.
type Client struct {
	provider   Provider
	maxRetries uint32
	baseDelay  time.Duration
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRetries sets the number of attempts (minimum 1).
func WithMaxRetries(n uint32) ClientOption {
	return func(c *Client) {
		if n == 0 {
			n = 1
		}
		c.maxRetries = n
	}
}

// WithBaseDelay sets the initial backoff delay.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:   provider,
		maxRetries: DefaultMaxRetries,
		baseDelay:  500 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the underlying provider name.
func (c *Client) Name() string {
	return c.provider.Name()
}

// Model returns the underlying model.
func (c *Client) Model() string {
	return c.provider.Model()
}

// ChatWithTools calls the provider, retrying transient failures with
// exponential backoff.
func (c *Client) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, choice *ToolChoice) (LLMResponse, error) {
	var lastErr error

	for attempt := uint32(0); attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Warn("retrying model call",
				zap.String("provider", c.provider.Name()),
				zap.Uint32("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return LLMResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.provider.ChatWithTools(ctx, messages, tools, choice)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) {
			return LLMResponse{}, err
		}
	}

	return LLMResponse{}, fmt.Errorf("%s failed after %d attempts: %w", c.provider.Name(), c.maxRetries, lastErr)
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// calculateBackoff returns the backoff duration for the given attempt.
func (c *Client) calculateBackoff(attempt uint32) time.Duration {
	const maxDelay = 10 * time.Second

	delay := c.baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// shouldRetry determines if an error is retryable.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	errLower := strings.ToLower(err.Error())

	// Don't retry auth, validation or quota configuration problems
	nonRetryable := []string{"401", "403", "invalid api key", "unauthorized", "permission", "invalid_request", "400"}
	for _, s := range nonRetryable {
		if strings.Contains(errLower, s) {
			return false
		}
	}

	return true
}

var _ Provider = (*Client)(nil)
