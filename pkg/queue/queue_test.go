package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/types"
)

func newStore(t *testing.T) *graphstore.BadgerStore {
	t.Helper()
	store, err := graphstore.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestQueueProcessesEpisodeToDone(t *testing.T) {
	store := newStore(t)
	var processed int32
	proc := func(_ context.Context, _ *types.Episode) error {
		atomic.AddInt32(&processed, 1)
		return nil
	}

	q := queue.New(queue.Config{MaxInflightEpisodes: 2, LLMSemaphore: 2}, store, proc, nil)
	ep := &types.Episode{UUID: "ep-1", GroupID: "g1", Content: "hello", ReferenceTime: time.Now()}
	require.NoError(t, q.Enqueue(context.Background(), ep))
	q.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&processed))
	got, err := store.GetEpisode(context.Background(), "ep-1", "g1")
	require.NoError(t, err)
	require.Equal(t, types.StatusDone, got.Status)
}

func TestQueueSerializesWithinGroup(t *testing.T) {
	store := newStore(t)
	var mu sync.Mutex
	var order []string

	proc := func(_ context.Context, ep *types.Episode) error {
		mu.Lock()
		order = append(order, ep.UUID)
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	q := queue.New(queue.Config{MaxInflightEpisodes: 4, LLMSemaphore: 4}, store, proc, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ep := &types.Episode{UUID: string(rune('a' + i)), GroupID: "shared-group", Content: "x", ReferenceTime: time.Now()}
		require.NoError(t, q.Enqueue(ctx, ep))
	}
	q.Wait()

	require.Len(t, order, 5)
	for i := 0; i < 5; i++ {
		require.Equal(t, string(rune('a'+i)), order[i])
	}
}

func TestQueueMarksFailedOnNonTransientError(t *testing.T) {
	store := newStore(t)
	proc := func(_ context.Context, _ *types.Episode) error {
		return kerr.Validation("test", "bad input")
	}

	q := queue.New(queue.Config{MaxInflightEpisodes: 1, LLMSemaphore: 1}, store, proc, nil)
	ep := &types.Episode{UUID: "ep-1", GroupID: "g1", Content: "x", ReferenceTime: time.Now()}
	require.NoError(t, q.Enqueue(context.Background(), ep))
	q.Wait()

	got, err := store.GetEpisode(context.Background(), "ep-1", "g1")
	require.NoError(t, err)
	require.Equal(t, types.StatusFailed, got.Status)
}

func TestWithRetryRetriesTransientErrors(t *testing.T) {
	var calls int32
	base := func(_ context.Context, _ *types.Episode) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return kerr.Transient("test", context.DeadlineExceeded)
		}
		return nil
	}

	wrapped := queue.WithRetry(base, queue.RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, CapDelay: time.Millisecond})
	ep := &types.Episode{UUID: "ep-1", GroupID: "g1"}
	err := wrapped(context.Background(), ep)
	require.NoError(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestWithRetryExhaustsAfterMaxAttempts(t *testing.T) {
	base := func(_ context.Context, _ *types.Episode) error {
		return kerr.Transient("test", context.DeadlineExceeded)
	}

	wrapped := queue.WithRetry(base, queue.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, CapDelay: time.Millisecond})
	ep := &types.Episode{UUID: "ep-1", GroupID: "g1"}
	err := wrapped(context.Background(), ep)
	require.Error(t, err)
	require.True(t, kerr.Is(err, kerr.KindExhausted))
}
