// Package graphstore defines the Graph Store Driver contract (spec §4.1)
// and the two reference implementations kortex ships: an embedded
// key-value store (Badger) for single-process deployments and a Neo4j
// driver for clustered/shared deployments. Both sit behind the same
// interface-segregated contract so pkg/orchestrator, pkg/resolver,
// pkg/search, and pkg/mutation depend on the narrowest slice they need.
package graphstore

import (
	"context"
	"time"

	"github.com/kortexhq/kortex/pkg/types"
)

// Provider names a supported backing store, mirroring config.GraphStoreConfig.Driver.
type Provider string

const (
	ProviderBadger Provider = "badger"
	ProviderNeo4j  Provider = "neo4j"
)

// EntityStore manages entity nodes.
type EntityStore interface {
	GetEntity(ctx context.Context, uuid, groupID string) (*types.Entity, error)
	GetEntities(ctx context.Context, uuids []string, groupID string) ([]*types.Entity, error)
	GetEntitiesByGroup(ctx context.Context, groupID string) ([]*types.Entity, error)
	GetEntityByName(ctx context.Context, groupID, name string) (*types.Entity, error)
	UpsertEntity(ctx context.Context, entity *types.Entity) error
	DeleteEntity(ctx context.Context, uuid, groupID string) error
}

// EdgeStore manages relation edges, including the soft-update pattern:
// ExpireEdge sets ExpiredAt rather than deleting, so a fact's history
// survives a later contradiction.
type EdgeStore interface {
	GetEdge(ctx context.Context, uuid, groupID string) (*types.RelationEdge, error)
	GetEdges(ctx context.Context, uuids []string, groupID string) ([]*types.RelationEdge, error)
	GetEdgesBetween(ctx context.Context, sourceUUID, targetUUID, groupID string) ([]*types.RelationEdge, error)
	GetEdgesForEntity(ctx context.Context, entityUUID, groupID string, includeExpired bool) ([]*types.RelationEdge, error)
	UpsertEdge(ctx context.Context, edge *types.RelationEdge) error
	ExpireEdge(ctx context.Context, uuid, groupID string, expiredAt time.Time) error
	DeleteEdge(ctx context.Context, uuid, groupID string) error
}

// EpisodeStore persists ingested episodes and their provenance links.
type EpisodeStore interface {
	GetEpisode(ctx context.Context, uuid, groupID string) (*types.Episode, error)
	GetEpisodes(ctx context.Context, uuids []string, groupID string) ([]*types.Episode, error)
	GetEpisodesInRange(ctx context.Context, groupID string, start, end time.Time, limit int) ([]*types.Episode, error)
	UpsertEpisode(ctx context.Context, episode *types.Episode) error
	DeleteEpisode(ctx context.Context, uuid, groupID string) error
}

// Searcher provides the lexical and vector primitives pkg/search fuses
// with Reciprocal Rank Fusion; graph-proximity re-ranking is handled by
// pkg/search directly against EdgeStore/EntityStore rather than here.
type Searcher interface {
	SearchEntitiesByText(ctx context.Context, groupID, query string, limit int) ([]*types.Entity, error)
	SearchEdgesByText(ctx context.Context, groupID, query string, limit int) ([]*types.RelationEdge, error)
	SearchEntitiesByVector(ctx context.Context, groupID string, vector []float32, limit int) ([]*types.Entity, error)
	SearchEdgesByVector(ctx context.Context, groupID string, vector []float32, limit int) ([]*types.RelationEdge, error)
}

// Stats reports coarse database-wide counts for operational visibility.
type Stats struct {
	EntityCount  int
	EdgeCount    int
	EpisodeCount int
}

// Admin provides maintenance operations independent of any one group.
type Admin interface {
	GetStats(ctx context.Context, groupID string) (*Stats, error)
	GetAllGroupIDs(ctx context.Context) ([]string, error)
	Close() error
}

// Store is the full Graph Store Driver contract. Most callers should
// depend on one of the narrower interfaces above instead.
type Store interface {
	EntityStore
	EdgeStore
	EpisodeStore
	Searcher
	Admin
}
