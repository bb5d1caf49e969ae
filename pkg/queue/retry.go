package queue

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/types"
)

// RetryConfig bounds the per-episode retry policy applied on top of a
// Processor (spec §4.5's retrying state: a transient failure bumps
// Episode.Attempts and is retried with full-jitter backoff before
// settling into failed). BaseDelay backs off kerr.KindRateLimited
// (LLM/embedding provider) errors; GraphStoreBaseDelay backs off
// kerr.KindTransient errors with a smaller base, per spec §4.5. Both
// share MaxAttempts and CapDelay.
type RetryConfig struct {
	MaxAttempts         int
	BaseDelay           time.Duration
	GraphStoreBaseDelay time.Duration
	CapDelay            time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.GraphStoreBaseDelay <= 0 {
		c.GraphStoreBaseDelay = 500 * time.Millisecond
	}
	if c.CapDelay <= 0 {
		c.CapDelay = 120 * time.Second
	}
	return c
}

// WithRetry wraps a Processor so transient (kerr.KindTransient,
// graph-store) and rate_limited (kerr.KindRateLimited, LLM/embedding)
// failures retry with backoff instead of failing the episode on the
// first error. Other errors (validation, bad LLM output, exhaustion)
// propagate immediately, per spec §4.5's "llm_bad_output is not retried".
func WithRetry(processor Processor, cfg RetryConfig) Processor {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return func(ctx context.Context, episode *types.Episode) error {
		var lastErr error

		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			err := processor(ctx, episode)
			if err == nil {
				return nil
			}
			lastErr = err

			base, retryable := retryBase(err, cfg)
			if !retryable {
				return err
			}

			if attempt == cfg.MaxAttempts {
				break
			}

			episode.Status = types.StatusRetrying
			episode.Attempts = attempt
			episode.LastError = err.Error()

			delay := jitteredDelay(rng, attempt, base, cfg.CapDelay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return kerr.Exhausted(fmt.Sprintf("episode %s", episode.UUID), cfg.MaxAttempts, lastErr)
	}
}

// retryBase reports the backoff base delay for a retryable error kind and
// whether the kind is retryable at all.
func retryBase(err error, cfg RetryConfig) (time.Duration, bool) {
	switch {
	case kerr.Is(err, kerr.KindRateLimited):
		return cfg.BaseDelay, true
	case kerr.Is(err, kerr.KindTransient):
		return cfg.GraphStoreBaseDelay, true
	default:
		return 0, false
	}
}

func jitteredDelay(rng *rand.Rand, attempt int, base, cap time.Duration) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt-1))
	if backoff > float64(cap) {
		backoff = float64(cap)
	}
	return time.Duration(rng.Float64() * backoff)
}
