package graphstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/types"
)

func newTestStore(t *testing.T) *graphstore.BadgerStore {
	t.Helper()
	store, err := graphstore.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStoreEntityRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := &types.Entity{UUID: "e1", GroupID: "g1", Name: "Alice", Label: "Person", Embedding: []float32{1, 0, 0}}
	require.NoError(t, store.UpsertEntity(ctx, entity))

	got, err := store.GetEntity(ctx, "e1", "g1")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)

	byName, err := store.GetEntityByName(ctx, "g1", "alice")
	require.NoError(t, err)
	require.Equal(t, "e1", byName.UUID)
}

func TestBadgerStoreEdgeExpireSoftUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	edge := &types.RelationEdge{
		UUID: "r1", GroupID: "g1", SourceUUID: "e1", TargetUUID: "e2",
		RelationType: "WORKS_AT", Fact: "Alice works at Acme", EpisodeUUIDs: []string{"ep1"},
	}
	require.NoError(t, store.UpsertEdge(ctx, edge))

	got, err := store.GetEdge(ctx, "r1", "g1")
	require.NoError(t, err)
	require.False(t, got.IsExpired())

	now := time.Now().UTC()
	require.NoError(t, store.ExpireEdge(ctx, "r1", "g1", now))

	got, err = store.GetEdge(ctx, "r1", "g1")
	require.NoError(t, err)
	require.True(t, got.IsExpired())
}

func TestBadgerStoreSearchEntitiesByVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntity(ctx, &types.Entity{UUID: "e1", GroupID: "g1", Name: "A", Label: "Person", Embedding: []float32{1, 0, 0}}))
	require.NoError(t, store.UpsertEntity(ctx, &types.Entity{UUID: "e2", GroupID: "g1", Name: "B", Label: "Person", Embedding: []float32{0, 1, 0}}))

	results, err := store.SearchEntitiesByVector(ctx, "g1", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "e1", results[0].UUID)
}

func TestBadgerStoreGetEdgesForEntityExcludesExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expiredAt := time.Now().UTC()
	require.NoError(t, store.UpsertEdge(ctx, &types.RelationEdge{
		UUID: "r1", GroupID: "g1", SourceUUID: "e1", TargetUUID: "e2",
		RelationType: "OLD", Fact: "stale fact", EpisodeUUIDs: []string{"ep1"}, ExpiredAt: &expiredAt,
	}))
	require.NoError(t, store.UpsertEdge(ctx, &types.RelationEdge{
		UUID: "r2", GroupID: "g1", SourceUUID: "e1", TargetUUID: "e2",
		RelationType: "NEW", Fact: "current fact", EpisodeUUIDs: []string{"ep2"},
	}))

	active, err := store.GetEdgesForEntity(ctx, "e1", "g1", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "r2", active[0].UUID)

	all, err := store.GetEdgesForEntity(ctx, "e1", "g1", true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
