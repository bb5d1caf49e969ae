package llmclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/kortexhq/kortex/pkg/types"
)

// RetryConfig controls the exponential-backoff-with-jitter policy applied
// around a Client (spec §4.5: llm.retry_base_ms / retry_cap_ms /
// retry_max_attempts).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	CapDelay    time.Duration
	// Rand supplies jitter; defaults to a package-level source when nil so
	// callers never need to seed one themselves.
	Rand *rand.Rand
}

// DefaultRetryConfig mirrors the config defaults from spec §6.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		CapDelay:    120 * time.Second,
	}
}

// RetryClient wraps a Client with full-jitter exponential backoff: each
// retry waits a random duration between 0 and min(cap, base*2^(n-1)),
// where n is the 1-based retry number, which avoids the thundering-herd retries a fixed backoff produces when
// many episodes in the queue hit a rate limit at once.
type RetryClient struct {
	client Client
	config *RetryConfig
	rng    *rand.Rand
}

// NewRetryClient wraps client with the given retry policy.
func NewRetryClient(client Client, config *RetryConfig) *RetryClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 2 * time.Second
	}
	if config.CapDelay <= 0 {
		config.CapDelay = 120 * time.Second
	}
	rng := config.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RetryClient{client: client, config: config, rng: rng}
}

// Chat implements Client.
func (r *RetryClient) Chat(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	return r.run(ctx, func() (*types.CompletionResponse, error) {
		return r.client.Chat(ctx, messages)
	})
}

// ChatJSON implements Client.
func (r *RetryClient) ChatJSON(ctx context.Context, messages []types.Message, schema any) (*types.CompletionResponse, error) {
	return r.run(ctx, func() (*types.CompletionResponse, error) {
		return r.client.ChatJSON(ctx, messages, schema)
	})
}

// Close implements Client.
func (r *RetryClient) Close() error { return r.client.Close() }

func (r *RetryClient) run(ctx context.Context, call func() (*types.CompletionResponse, error)) (*types.CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.jitteredDelay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := call()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("llmclient: exhausted %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// jitteredDelay implements full jitter: Uniform(0, min(cap,
// base*2^(attempt-1))), where attempt is the 1-based retry number.
func (r *RetryClient) jitteredDelay(attempt int) time.Duration {
	backoff := float64(r.config.BaseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(r.config.CapDelay) {
		backoff = float64(r.config.CapDelay)
	}
	return time.Duration(r.rng.Float64() * backoff)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	if errors.Is(err, ErrRateLimit) {
		return true
	}

	var refusalErr *RefusalError
	if errors.As(err, &refusalErr) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"500", "internal server error",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"rate limit",
		"too many requests",
		"429",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	type httpErrorWithStatusCode interface {
		HTTPStatusCode() int
	}
	if httpErr, ok := err.(httpErrorWithStatusCode); ok {
		statusCode := httpErr.HTTPStatusCode()
		if statusCode >= 500 || statusCode == http.StatusTooManyRequests {
			return true
		}
	}

	return false
}
