package llmclient_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/llmclient"
	"github.com/kortexhq/kortex/pkg/ontology"
	"github.com/kortexhq/kortex/pkg/types"
)

func TestBuildEntityExtractionPromptIncludesOntologyLabels(t *testing.T) {
	reg := ontology.NewRegistry()
	episode := &types.Episode{UUID: "ep-1", GroupID: "g1", Content: "Alice works at Acme.", ReferenceTime: time.Now()}

	msgs := llmclient.BuildEntityExtractionPrompt(reg, episode, nil)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "Alice works at Acme.")
	assert.Contains(t, msgs[1].Content, "Person")
}

func TestBuildFactExtractionPromptListsEntities(t *testing.T) {
	episode := &types.Episode{UUID: "ep-1", GroupID: "g1", Content: "Alice works at Acme.", ReferenceTime: time.Now()}
	entities := []*types.Entity{
		{UUID: "e1", Name: "Alice", Label: "Person"},
		{UUID: "e2", Name: "Acme", Label: "Organization"},
	}

	msgs := llmclient.BuildFactExtractionPrompt(episode, entities)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Alice")
	assert.Contains(t, msgs[1].Content, "Acme")
	assert.Contains(t, msgs[1].Content, "SCREAMING_SNAKE_CASE")
}

func TestBuildSummaryPromptIncludesExistingSummary(t *testing.T) {
	entity := &types.Entity{Name: "Alice", Summary: "Works in engineering."}
	msgs := llmclient.BuildSummaryPrompt(entity, "Alice was promoted to VP.")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Works in engineering.")
	assert.Contains(t, msgs[1].Content, "promoted to VP")
}
