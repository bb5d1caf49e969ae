package orchestrator_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/ontology"
	"github.com/kortexhq/kortex/pkg/orchestrator"
	"github.com/kortexhq/kortex/pkg/resolver"
	"github.com/kortexhq/kortex/pkg/types"
)

type fakeLLM struct {
	entityResp  string
	factResp    string
	summaryResp string
	calls       int
}

func (f *fakeLLM) Chat(_ context.Context, _ []types.Message) (*types.CompletionResponse, error) {
	return nil, fmt.Errorf("Chat not used in this test")
}

func (f *fakeLLM) ChatJSON(_ context.Context, messages []types.Message, _ any) (*types.CompletionResponse, error) {
	f.calls++
	// Distinguish the entity-extraction, fact-extraction, and
	// summary-refresh calls by the marker each prompt builder embeds in
	// its user message.
	for _, m := range messages {
		if strings.Contains(m.Content, "<EXISTING SUMMARY>") {
			return &types.CompletionResponse{Content: f.summaryResp}, nil
		}
		if strings.Contains(m.Content, "<ENTITIES>") {
			return &types.CompletionResponse{Content: f.factResp}, nil
		}
	}
	return &types.CompletionResponse{Content: f.entityResp}, nil
}

func (f *fakeLLM) Close() error { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	// Each text in a batch gets a distinct one-hot vector, so unrelated
	// entities extracted together are not merged by embedding similarity.
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 3)
		v[i%3] = 1
		out[i] = v
	}
	return out, nil
}
func (fakeEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) { return []float32{1, 0, 0}, nil }
func (fakeEmbedder) Dimensions() int                                            { return 3 }
func (fakeEmbedder) Close() error                                               { return nil }

func newTestOrchestrator(t *testing.T, llm *fakeLLM) (*orchestrator.Orchestrator, *graphstore.BadgerStore) {
	t.Helper()
	store, err := graphstore.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := ontology.NewRegistry()
	res := resolver.New(store, fakeEmbedder{}, resolver.Options{})

	o := orchestrator.New(orchestrator.Config{
		Store:    store,
		LLM:      llm,
		Embed:    fakeEmbedder{},
		Resolver: res,
		Ontology: reg,
	})
	return o, store
}

func TestProcessExtractsEntitiesAndPersists(t *testing.T) {
	llm := &fakeLLM{
		entityResp: `{"entities": [{"name": "Ada Lovelace", "entity_type_id": 0, "summary": "a mathematician"}, {"name": "Analytical Engine", "entity_type_id": 0, "summary": "a machine"}]}`,
		factResp:   `{"facts": []}`,
	}
	o, store := newTestOrchestrator(t, llm)

	ep := &types.Episode{
		UUID:          "ep-1",
		GroupID:       "g1",
		Content:       "Ada Lovelace wrote notes on the Analytical Engine.",
		ReferenceTime: time.Now(),
	}

	err := o.Process(context.Background(), ep)
	require.NoError(t, err)

	entities, err := store.GetEntitiesByGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, entities, 2)
}

func TestProcessSkipsFactExtractionWithFewerThanTwoEntities(t *testing.T) {
	llm := &fakeLLM{
		entityResp: `{"entities": [{"name": "Ada Lovelace", "entity_type_id": 0, "summary": "a mathematician"}]}`,
		factResp:   `{"facts": []}`,
	}
	o, store := newTestOrchestrator(t, llm)

	ep := &types.Episode{
		UUID:          "ep-1",
		GroupID:       "g1",
		Content:       "Ada Lovelace wrote about computation.",
		ReferenceTime: time.Now(),
	}

	err := o.Process(context.Background(), ep)
	require.NoError(t, err)

	entities, err := store.GetEntitiesByGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	// Only the entity-extraction ChatJSON call happened; fact extraction
	// was skipped since fewer than two entities were resolved.
	require.Equal(t, 1, llm.calls)
}

func TestProcessPopulatesEntityAttributes(t *testing.T) {
	llm := &fakeLLM{
		entityResp: `{"entities": [{"name": "Ada Lovelace", "entity_type_id": 0, "summary": "a mathematician", "attributes": {"born": "1815"}}, {"name": "Analytical Engine", "entity_type_id": 0, "summary": "a machine"}]}`,
		factResp:   `{"facts": []}`,
	}
	o, store := newTestOrchestrator(t, llm)

	ep := &types.Episode{
		UUID:          "ep-1",
		GroupID:       "g1",
		Content:       "Ada Lovelace, born 1815, wrote notes on the Analytical Engine.",
		ReferenceTime: time.Now(),
	}

	err := o.Process(context.Background(), ep)
	require.NoError(t, err)

	entity, err := store.GetEntityByName(context.Background(), "g1", "Ada Lovelace")
	require.NoError(t, err)
	require.Equal(t, "1815", entity.Attributes["born"])
}

func TestProcessRefreshesSummaryOnAttributeUpdatingRemention(t *testing.T) {
	llm := &fakeLLM{
		entityResp: `{"entities": [{"name": "Ada Lovelace", "entity_type_id": 0, "summary": "promoted to department head", "attributes": {"title": "department head"}}]}`,
		summaryResp: `{"summary": "Ada Lovelace, now department head."}`,
	}
	o, store := newTestOrchestrator(t, llm)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntity(ctx, &types.Entity{
		UUID: "existing-1", GroupID: "g1", Name: "Ada Lovelace", Label: "unclassified",
		Summary: "a mathematician", EpisodeUUIDs: []string{"ep-0"},
	}))

	ep := &types.Episode{
		UUID:          "ep-1",
		GroupID:       "g1",
		Content:       "Ada Lovelace was promoted to department head.",
		ReferenceTime: time.Now(),
	}

	err := o.Process(ctx, ep)
	require.NoError(t, err)

	entity, err := store.GetEntityByName(ctx, "g1", "Ada Lovelace")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace, now department head.", entity.Summary)
	require.Contains(t, entity.UpdatedEpisodeUUIDs, "ep-1")
}

func TestProcessRejectsInvalidEpisode(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeLLM{})
	err := o.Process(context.Background(), &types.Episode{})
	require.Error(t, err)
}
