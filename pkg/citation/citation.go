// Package citation implements the Citation Service (spec §4.7): it
// expands a RelationEdge's or Entity's episode provenance into the
// ordered chain of source episodes that created or touched it, and
// extracts any source_url embedded in an episode's source_description.
package citation

import (
	"context"
	"regexp"
	"sort"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/types"
)

// sourceURLPattern matches the first http(s) URL following a
// "source_url:" marker in an episode's free-form source_description.
var sourceURLPattern = regexp.MustCompile(`source_url:\s*(https?://[^\s,]+)`)

// ExtractSourceURL pulls the source_url out of an episode's
// source_description, returning ("", false) if none is present.
func ExtractSourceURL(sourceDescription string) (string, bool) {
	m := sourceURLPattern.FindStringSubmatch(sourceDescription)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EdgeCitation is one entry in a RelationEdge's citation chain.
type EdgeCitation struct {
	EpisodeUUID       string          `json:"episode_id"`
	Name              string          `json:"name"`
	BodyKind          types.EpisodeType `json:"body_kind"`
	SourceDescription string          `json:"source_description,omitempty"`
	IngestedAt        string          `json:"ingested_at"`
	SourceURL         *string         `json:"source_url"`
}

// NodeCitation is one entry in an Entity's citation chain, tagged with
// why the episode is cited.
type NodeCitation struct {
	EdgeCitation
	Operation types.MentionOperation `json:"operation"`
}

// Service resolves citation chains against an EpisodeStore.
type Service struct {
	episodes graphstore.EpisodeStore
}

// New constructs a citation Service.
func New(episodes graphstore.EpisodeStore) *Service {
	return &Service{episodes: episodes}
}

// ForEdge expands edge.EpisodeUUIDs into ordered citations.
func (s *Service) ForEdge(ctx context.Context, groupID string, edge *types.RelationEdge) ([]EdgeCitation, error) {
	episodes, err := s.episodes.GetEpisodes(ctx, edge.EpisodeUUIDs, groupID)
	if err != nil {
		return nil, err
	}
	return buildEdgeCitations(episodes), nil
}

// ForEntity expands entity.EpisodeUUIDs into ordered, operation-tagged
// citations. The first episode (chronologically) that mentioned the
// entity is tagged created; a later one that introduced a new attribute
// (per entity.UpdatedEpisodeUUIDs, set by the resolver's merge step) is
// tagged updated; everything else is tagged referenced.
func (s *Service) ForEntity(ctx context.Context, groupID string, entity *types.Entity) ([]NodeCitation, error) {
	episodes, err := s.episodes.GetEpisodes(ctx, entity.EpisodeUUIDs, groupID)
	if err != nil {
		return nil, err
	}
	edgeCitations := buildEdgeCitations(episodes)

	updated := make(map[string]bool, len(entity.UpdatedEpisodeUUIDs))
	for _, uuid := range entity.UpdatedEpisodeUUIDs {
		updated[uuid] = true
	}

	out := make([]NodeCitation, len(edgeCitations))
	for i, ec := range edgeCitations {
		op := types.MentionReferenced
		switch {
		case i == 0:
			op = types.MentionCreated
		case updated[ec.EpisodeUUID]:
			op = types.MentionUpdated
		}
		out[i] = NodeCitation{EdgeCitation: ec, Operation: op}
	}
	return out, nil
}

func buildEdgeCitations(episodes []*types.Episode) []EdgeCitation {
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].CreatedAt.Before(episodes[j].CreatedAt)
	})

	out := make([]EdgeCitation, 0, len(episodes))
	for _, ep := range episodes {
		ec := EdgeCitation{
			EpisodeUUID:       ep.UUID,
			Name:              ep.Name,
			BodyKind:          ep.Type,
			SourceDescription: ep.SourceDescription,
			IngestedAt:        ep.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if url, ok := ExtractSourceURL(ep.SourceDescription); ok {
			ec.SourceURL = &url
		} else if ep.SourceURL != "" {
			url := ep.SourceURL
			ec.SourceURL = &url
		}
		out = append(out, ec)
	}
	return out
}
