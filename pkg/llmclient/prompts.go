package llmclient

import (
	"fmt"
	"strings"

	"github.com/kortexhq/kortex/pkg/ontology"
	"github.com/kortexhq/kortex/pkg/types"
)

// BuildEntityExtractionPrompt builds the message list for extracting entity
// mentions from an episode's content, tagged against the registered
// ontology labels. The LLM is asked to return entity_type_id indices that
// round-trip through ontology.Registry.ByIndex.
func BuildEntityExtractionPrompt(reg *ontology.Registry, episode *types.Episode, previousEpisodes []*types.Episode) []types.Message {
	sys := `You are an AI assistant that extracts entities from text.
Your task is to identify every distinct person, place, organization, document, event, or concept mentioned, classify it against the provided entity types, and return strict JSON.
Do not invent entities that are not supported by the text. Prefer the most specific entity type that applies.`

	var typesDoc strings.Builder
	typesDoc.WriteString("0\tunclassified\t(no description available)\n")
	for i, name := range reg.Names() {
		label, _ := reg.Lookup(name)
		typesDoc.WriteString(fmt.Sprintf("%d\t%s\t%s\n", i+1, label.Name, label.Description))
	}

	var prevDoc strings.Builder
	for _, ep := range previousEpisodes {
		prevDoc.WriteString("- ")
		prevDoc.WriteString(ep.Content)
		prevDoc.WriteString("\n")
	}

	user := fmt.Sprintf(`<ENTITY TYPES>
entity_type_id	name	description
%s</ENTITY TYPES>

<PREVIOUS EPISODES>
%s</PREVIOUS EPISODES>

<CURRENT EPISODE>
%s
</CURRENT EPISODE>

Extract every entity mentioned in the current episode. When the text states a concrete attribute of the entity (a title, a founding date, a location, a quantity — anything beyond the summary prose), include it in "attributes" as flat key/value pairs; omit attributes you are not confident about. Respond with JSON of the form:
{"entities": [{"name": "...", "entity_type_id": 1, "summary": "...", "attributes": {"key": "value"}}]}`,
		typesDoc.String(), prevDoc.String(), episode.Content)

	return []types.Message{
		{Role: types.RoleSystem, Content: sys},
		{Role: types.RoleUser, Content: user},
	}
}

// BuildFactExtractionPrompt builds the message list for extracting
// relational facts (edges) between a set of already-resolved entities
// mentioned in an episode.
func BuildFactExtractionPrompt(episode *types.Episode, entities []*types.Entity) []types.Message {
	sys := `You are an AI assistant that extracts factual relationships between entities from text.
Each fact is a single relationship between exactly two of the listed entities, grounded in an explicit statement in the text.
Use SCREAMING_SNAKE_CASE for relation_type (e.g. WORKS_AT, LOCATED_IN, ACQUIRED). If the text states when a fact became true or stopped being true, include valid_at/invalid_at as RFC3339 timestamps; otherwise omit them. If the fact explicitly contradicts or supersedes an earlier fact about the same relationship (e.g. "Alice no longer works at Acme" superseding "Alice works at Acme"), set "negates": true.`

	var entityDoc strings.Builder
	for _, e := range entities {
		entityDoc.WriteString(fmt.Sprintf("- %s (%s): %s\n", e.Name, e.UUID, e.Label))
	}

	user := fmt.Sprintf(`<ENTITIES>
%s</ENTITIES>

<EPISODE>
%s
</EPISODE>

Extract every factual relationship between the listed entities that the episode supports. Respond with JSON of the form:
{"facts": [{"source_uuid": "...", "target_uuid": "...", "relation_type": "...", "fact": "...", "valid_at": "...", "invalid_at": "...", "negates": false}]}`,
		entityDoc.String(), episode.Content)

	return []types.Message{
		{Role: types.RoleSystem, Content: sys},
		{Role: types.RoleUser, Content: user},
	}
}

// BuildSummaryPrompt asks the model to produce a short entity summary from
// its accumulated mentions, used when merging a duplicate's context into
// the surviving entity (spec §4.3's shallow-merge summary refresh).
func BuildSummaryPrompt(entity *types.Entity, newContext string) []types.Message {
	sys := "You summarize what is known about an entity in at most two sentences, incorporating new context without contradicting established facts unless the new context clearly supersedes them."

	user := fmt.Sprintf(`<ENTITY>
%s
</ENTITY>

<EXISTING SUMMARY>
%s
</EXISTING SUMMARY>

<NEW CONTEXT>
%s
</NEW CONTEXT>

Respond with JSON: {"summary": "..."}`, entity.Name, entity.Summary, newContext)

	return []types.Message{
		{Role: types.RoleSystem, Content: sys},
		{Role: types.RoleUser, Content: user},
	}
}
