package kerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kortexhq/kortex/pkg/kerr"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := kerr.NotFound("graphstore.GetEntity", "entity n1 not found")
	wrapped := fmt.Errorf("resolver: %w", err)

	assert.True(t, errors.Is(wrapped, kerr.NotFound("", "")))
	assert.False(t, errors.Is(wrapped, kerr.Conflict("", "")))
}

func TestIsHelper(t *testing.T) {
	err := kerr.RateLimited("llmclient.Chat", errors.New("429"))
	assert.True(t, kerr.Is(err, kerr.KindRateLimited))
	assert.False(t, kerr.Is(err, kerr.KindTransient))
}

func TestExhaustedMessage(t *testing.T) {
	err := kerr.Exhausted("queue.dispatch", 5, errors.New("still failing"))
	assert.Contains(t, err.Error(), "exhausted after 5 attempts")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := kerr.Internal("orchestrator.persist", "unexpected nil driver", cause)
	assert.ErrorIs(t, err, cause)
}
