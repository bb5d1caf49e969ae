package kortex_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/types"
)

type fakeLLM struct{}

func (fakeLLM) Chat(_ context.Context, _ []types.Message) (*types.CompletionResponse, error) {
	return nil, fmt.Errorf("Chat not used in this test")
}

func (fakeLLM) ChatJSON(_ context.Context, _ []types.Message, _ any) (*types.CompletionResponse, error) {
	return &types.CompletionResponse{Content: `{"entities": []}`}, nil
}

func (fakeLLM) Close() error { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) { return []float32{1, 0, 0}, nil }
func (fakeEmbedder) Dimensions() int                                            { return 3 }
func (fakeEmbedder) Close() error                                               { return nil }

func newTestClient(t *testing.T) *kortex.Client {
	t.Helper()
	store, err := graphstore.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, err := kortex.NewClient(store, fakeLLM{}, fakeEmbedder{}, &kortex.Config{GroupID: "g1"}, nil)
	require.NoError(t, err)
	return c
}

func TestIngestAssignsIDAndDrains(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ep := &types.Episode{Content: "Alice met Bob for coffee"}
	require.NoError(t, c.Ingest(ctx, ep))
	require.NotEmpty(t, ep.UUID)
	require.Equal(t, "g1", ep.GroupID)

	c.Wait()

	stored, err := c.GetEpisode(ctx, ep.UUID, "g1")
	require.NoError(t, err)
	require.Equal(t, types.StatusDone, stored.Status)
}

func TestIngestFoldsSourceURLIntoSourceDescription(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ep := &types.Episode{
		Content:           "a fact",
		SourceDescription: "a doc",
		SourceURL:         "https://example.com/a",
	}
	require.NoError(t, c.Ingest(ctx, ep))
	c.Wait()

	stored, err := c.GetEpisode(ctx, ep.UUID, "g1")
	require.NoError(t, err)
	require.Equal(t, "a doc, source_url: https://example.com/a", stored.SourceDescription)
}

func TestGetEntityReturnsNotFoundKind(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetEntity(context.Background(), uuid.NewString(), "")
	require.Error(t, err)
	require.True(t, kerr.Is(err, kerr.KindNotFound))
}

func TestUpdateEdgeExpiresOldAndReturnsNew(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	store := c.Store()

	src := &types.Entity{UUID: uuid.NewString(), GroupID: "g1", Name: "Alice"}
	dst := &types.Entity{UUID: uuid.NewString(), GroupID: "g1", Name: "Bob"}
	require.NoError(t, store.UpsertEntity(ctx, src))
	require.NoError(t, store.UpsertEntity(ctx, dst))

	edge := &types.RelationEdge{
		UUID: uuid.NewString(), GroupID: "g1",
		SourceUUID: src.UUID, TargetUUID: dst.UUID,
		RelationType: "KNOWS", Fact: "Alice knows Bob",
	}
	require.NoError(t, store.UpsertEdge(ctx, edge))

	updated, err := c.UpdateEdge(ctx, mutation.UpdateEdgeInput{
		EdgeUUID: edge.UUID,
		NewFact:  "Alice used to know Bob",
		Reason:   "correction",
	})
	require.NoError(t, err)
	require.NotEqual(t, edge.UUID, updated.UUID)

	old, err := store.GetEdge(ctx, edge.UUID, "g1")
	require.NoError(t, err)
	require.NotNil(t, old.ExpiredAt)
}

func TestDeleteEpisodeCascades(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ep := &types.Episode{Content: "a short-lived episode"}
	require.NoError(t, c.Ingest(ctx, ep))
	c.Wait()

	require.NoError(t, c.DeleteEpisode(ctx, "g1", ep.UUID))

	_, err := c.GetEpisode(ctx, ep.UUID, "g1")
	require.Error(t, err)
	require.True(t, kerr.Is(err, kerr.KindNotFound))
}
