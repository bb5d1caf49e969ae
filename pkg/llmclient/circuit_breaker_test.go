package llmclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/llmclient"
	"github.com/kortexhq/kortex/pkg/types"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	fc := &fakeClient{failN: 100, failErr: errors.New("boom")}
	cb := llmclient.NewCircuitBreakerClient(fc, llmclient.CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         60,
		Timeout:          30,
		ReadyToTripRatio: 0.5,
	}, "test-breaker", nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Chat(context.Background(), nil)
		require.Error(t, err)
	}

	_, err := cb.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "breaker")
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	fc := &fakeClient{resp: &types.CompletionResponse{Content: "ok"}}
	cb := llmclient.NewCircuitBreakerClient(fc, llmclient.CircuitBreakerConfig{MaxRequests: 3, Interval: 60, Timeout: 30, ReadyToTripRatio: 0.6}, "test-breaker", nil)

	resp, err := cb.Chat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}
