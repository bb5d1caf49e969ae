// Package mutation implements the Mutation Service (spec §4.8): the
// soft-update edge pattern (expire, never overwrite) and cascading
// episode deletion. Both operations are expected to run behind the
// Episode Queue's group serialization so they never race an in-flight
// ingestion of the same group.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/types"
)

// Service performs mutating operations against a Store outside the
// normal ingestion pipeline.
type Service struct {
	store graphstore.Store
	embed embedder.Client
	log   *slog.Logger
}

// New constructs a mutation Service. embed may be nil, in which case
// updated edges are persisted without a refreshed embedding.
func New(store graphstore.Store, embed embedder.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, embed: embed, log: log}
}

// UpdateEdgeInput describes a caller-requested soft update to an edge.
type UpdateEdgeInput struct {
	EdgeUUID      string
	GroupID       string
	NewFact       string
	NewAttributes map[string]any
	// NewSourceUUID/NewTargetUUID optionally repoint the edge to a
	// different pair of entities; left empty, the update keeps the old
	// edge's endpoints.
	NewSourceUUID string
	NewTargetUUID string
	Reason        string
}

// UpdateEdge expires the edge identified by in.EdgeUUID and persists a
// new edge carrying the updated fact under a fresh UUID. The new edge
// keeps the expired edge's relation type, and its source and target
// unless in.NewSourceUUID/NewTargetUUID repoint them.
// A synthesis episode describing the edit is persisted alongside it so
// the citation chain stays complete.
func (s *Service) UpdateEdge(ctx context.Context, in UpdateEdgeInput) (*types.RelationEdge, error) {
	old, err := s.store.GetEdge(ctx, in.EdgeUUID, in.GroupID)
	if err != nil {
		if kerr.Is(err, kerr.KindNotFound) {
			return nil, kerr.NotFound("mutation.UpdateEdge", fmt.Sprintf("edge %s not found", in.EdgeUUID))
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.store.ExpireEdge(ctx, old.UUID, in.GroupID, now); err != nil {
		return nil, err
	}

	synthesis := &types.Episode{
		UUID:              uuid.NewString(),
		GroupID:           in.GroupID,
		Name:              fmt.Sprintf("edge %s update", old.UUID),
		Content:           fmt.Sprintf("Edge updated: %q -> %q (%s)", old.Fact, in.NewFact, in.Reason),
		Type:              types.EpisodeTypeStructured,
		ReferenceTime:     now,
		CreatedAt:         now,
		Status:            types.StatusDone,
	}
	if err := s.store.UpsertEpisode(ctx, synthesis); err != nil {
		return nil, err
	}

	sourceUUID := old.SourceUUID
	if in.NewSourceUUID != "" {
		sourceUUID = in.NewSourceUUID
	}
	targetUUID := old.TargetUUID
	if in.NewTargetUUID != "" {
		targetUUID = in.NewTargetUUID
	}

	updated := &types.RelationEdge{
		UUID:         uuid.NewString(),
		GroupID:      in.GroupID,
		SourceUUID:   sourceUUID,
		TargetUUID:   targetUUID,
		RelationType: old.RelationType,
		Fact:         in.NewFact,
		Summary:      old.Summary,
		Attributes:   mergeAttributes(old.Attributes, in.NewAttributes),
		EpisodeUUIDs: append(append([]string{}, old.EpisodeUUIDs...), synthesis.UUID),
		CreatedAt:    now,
		ValidAt:      old.ValidAt,
		OriginalFact: old.Fact,
		UpdateReason: in.Reason,
	}

	if s.embed != nil {
		vec, err := s.embed.EmbedSingle(ctx, updated.Fact)
		if err == nil {
			updated.Embedding = vec
		}
	}

	if err := s.store.UpsertEdge(ctx, updated); err != nil {
		return nil, err
	}

	s.log.Info("edge update persisted", "old_edge_uuid", old.UUID, "new_edge_uuid", updated.UUID, "group_id", in.GroupID)
	return updated, nil
}

func mergeAttributes(old, updates map[string]any) map[string]any {
	out := make(map[string]any, len(old)+len(updates))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// DeleteEpisode removes an episode and cascades the deletion: every edge
// referencing it drops it from EpisodeUUIDs (and is deleted outright if
// that empties its provenance), and every entity whose incident edges
// and mentions all disappear is deleted too.
func (s *Service) DeleteEpisode(ctx context.Context, groupID, episodeUUID string) error {
	episode, err := s.store.GetEpisode(ctx, episodeUUID, groupID)
	if err != nil {
		if kerr.Is(err, kerr.KindNotFound) {
			return kerr.NotFound("mutation.DeleteEpisode", fmt.Sprintf("episode %s not found", episodeUUID))
		}
		return err
	}

	touchedEntities := map[string]struct{}{}

	for _, edgeUUID := range episode.EntityEdgeUUIDs {
		edge, err := s.store.GetEdge(ctx, edgeUUID, groupID)
		if err != nil || edge == nil {
			continue
		}
		edge.EpisodeUUIDs = removeString(edge.EpisodeUUIDs, episodeUUID)
		touchedEntities[edge.SourceUUID] = struct{}{}
		touchedEntities[edge.TargetUUID] = struct{}{}

		if len(edge.EpisodeUUIDs) == 0 {
			if err := s.store.DeleteEdge(ctx, edge.UUID, groupID); err != nil {
				return err
			}
			continue
		}
		if err := s.store.UpsertEdge(ctx, edge); err != nil {
			return err
		}
	}

	entities, err := s.store.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, entity := range entities {
		if _, touched := touchedEntities[entity.UUID]; !touched && !slices.Contains(entity.EpisodeUUIDs, episodeUUID) {
			continue
		}
		entity.EpisodeUUIDs = removeString(entity.EpisodeUUIDs, episodeUUID)
		if len(entity.EpisodeUUIDs) == 0 && !s.hasIncidentEdges(ctx, entity.UUID, groupID) {
			if err := s.store.DeleteEntity(ctx, entity.UUID, groupID); err != nil {
				return err
			}
			continue
		}
		if err := s.store.UpsertEntity(ctx, entity); err != nil {
			return err
		}
	}

	if err := s.store.DeleteEpisode(ctx, episodeUUID, groupID); err != nil {
		return err
	}
	s.log.Info("episode delete persisted", "episode_uuid", episodeUUID, "group_id", groupID)
	return nil
}

func (s *Service) hasIncidentEdges(ctx context.Context, entityUUID, groupID string) bool {
	edges, err := s.store.GetEdgesForEntity(ctx, entityUUID, groupID, true)
	if err != nil {
		return true // fail safe: don't delete an entity we couldn't check
	}
	return len(edges) > 0
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}
