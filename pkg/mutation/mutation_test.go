package mutation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/types"
)

func newStore(t *testing.T) *graphstore.BadgerStore {
	t.Helper()
	store, err := graphstore.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedEdge(t *testing.T, store *graphstore.BadgerStore) *types.RelationEdge {
	t.Helper()
	ctx := context.Background()
	a := &types.Entity{UUID: "a", GroupID: "g1", Name: "Alice", Label: "Person", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	b := &types.Entity{UUID: "b", GroupID: "g1", Name: "Bob", Label: "Person", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.UpsertEntity(ctx, a))
	require.NoError(t, store.UpsertEntity(ctx, b))

	edge := &types.RelationEdge{
		UUID: "ed1", GroupID: "g1", SourceUUID: "a", TargetUUID: "b",
		RelationType: "KNOWS", Fact: "Alice knows Bob",
		EpisodeUUIDs: []string{"ep1"}, CreatedAt: time.Now(),
	}
	require.NoError(t, store.UpsertEdge(ctx, edge))
	return edge
}

func TestUpdateEdgeExpiresOldAndCreatesNew(t *testing.T) {
	store := newStore(t)
	edge := seedEdge(t, store)
	svc := mutation.New(store, nil, nil)

	updated, err := svc.UpdateEdge(context.Background(), mutation.UpdateEdgeInput{
		EdgeUUID: edge.UUID, GroupID: "g1", NewFact: "Alice no longer knows Bob", Reason: "correction",
	})
	require.NoError(t, err)
	require.NotEqual(t, edge.UUID, updated.UUID)
	require.Equal(t, "Alice knows Bob", updated.OriginalFact)
	require.Equal(t, "correction", updated.UpdateReason)
	require.Contains(t, updated.EpisodeUUIDs, "ep1")
	require.Len(t, updated.EpisodeUUIDs, 2)

	old, err := store.GetEdge(context.Background(), edge.UUID, "g1")
	require.NoError(t, err)
	require.True(t, old.IsExpired())
}

func TestDeleteEpisodeCascadesToOrphanedEdgesAndEntities(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	edge := seedEdge(t, store)

	ep := &types.Episode{UUID: "ep1", GroupID: "g1", Content: "x", ReferenceTime: time.Now(), EntityEdgeUUIDs: []string{edge.UUID}}
	require.NoError(t, store.UpsertEpisode(ctx, ep))

	svc := mutation.New(store, nil, nil)
	require.NoError(t, svc.DeleteEpisode(ctx, "g1", "ep1"))

	_, err := store.GetEdge(ctx, edge.UUID, "g1")
	require.Error(t, err)
	require.True(t, kerr.Is(err, kerr.KindNotFound))

	_, err = store.GetEntity(ctx, "a", "g1")
	require.Error(t, err)
	require.True(t, kerr.Is(err, kerr.KindNotFound))
}
