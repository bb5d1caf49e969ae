package llmclient_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/llmclient"
	"github.com/kortexhq/kortex/pkg/types"
)

type fakeClient struct {
	calls   int
	failN   int
	failErr error
	resp    *types.CompletionResponse
}

func (f *fakeClient) Chat(_ context.Context, _ []types.Message) (*types.CompletionResponse, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, f.failErr
	}
	return f.resp, nil
}

func (f *fakeClient) ChatJSON(ctx context.Context, messages []types.Message, _ any) (*types.CompletionResponse, error) {
	return f.Chat(ctx, messages)
}

func (f *fakeClient) Close() error { return nil }

func TestRetryClientSucceedsAfterTransientFailures(t *testing.T) {
	fc := &fakeClient{failN: 2, failErr: llmclient.NewRateLimitError("slow down"), resp: &types.CompletionResponse{Content: "ok"}}
	rc := llmclient.NewRetryClient(fc, &llmclient.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		CapDelay:    10 * time.Millisecond,
		Rand:        rand.New(rand.NewSource(1)),
	})

	resp, err := rc.Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, fc.calls)
}

func TestRetryClientStopsOnNonRetryableError(t *testing.T) {
	fc := &fakeClient{failN: 5, failErr: llmclient.NewRefusalError("refused")}
	rc := llmclient.NewRetryClient(fc, &llmclient.RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, CapDelay: time.Millisecond})

	_, err := rc.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, fc.calls)
}

func TestRetryClientExhaustsAttempts(t *testing.T) {
	fc := &fakeClient{failN: 100, failErr: errors.New("rate limit exceeded")}
	rc := llmclient.NewRetryClient(fc, &llmclient.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, CapDelay: time.Millisecond})

	_, err := rc.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 3, fc.calls)
}
