package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/types"
)

// fanout is how many candidates each retrieval method pulls before fusion,
// so RRF has enough signal to rerank beyond the final limit.
const fanout = 5

// Engine runs hybrid search over a Store (spec §4.6).
type Engine struct {
	store graphstore.Store
	embed embedder.Client
}

// New constructs a search Engine.
func New(store graphstore.Store, embed embedder.Client) *Engine {
	return &Engine{store: store, embed: embed}
}

// Search runs vector, lexical, and graph-proximity retrieval per
// cfg.Use*, fuses the ranked lists with RRF, filters expired edges unless
// cfg.IncludeExpired, and applies an MMR diversity pass before truncating
// to cfg.Limit.
func (e *Engine) Search(ctx context.Context, cfg *types.SearchConfig) (*types.SearchResults, error) {
	cfg = cfg.WithDefaults()
	want := cfg.Limit * fanout

	entityLists, edgeLists, err := e.gatherRankedLists(ctx, cfg, want)
	if err != nil {
		return nil, err
	}

	entityUUIDs, entityScores := RRF(entityLists, cfg.RankConstant)
	edgeUUIDs, edgeScores := RRF(edgeLists, cfg.RankConstant)

	if cfg.UseGraph && cfg.CenterNodeUUID != "" {
		entityUUIDs, err = e.applyGraphProximity(ctx, cfg, entityUUIDs, entityScores)
		if err != nil {
			return nil, err
		}
		edgeUUIDs, err = e.applyGraphProximity(ctx, cfg, edgeUUIDs, edgeScores)
		if err != nil {
			return nil, err
		}
	}

	entities, err := e.resolveEntities(ctx, cfg.GroupID, entityUUIDs)
	if err != nil {
		return nil, err
	}
	edges, err := e.resolveEdges(ctx, cfg.GroupID, edgeUUIDs, cfg.IncludeExpired, cfg.Now)
	if err != nil {
		return nil, err
	}

	if cfg.UseVector && len(entities) > 1 {
		entities = e.diversifyEntities(ctx, cfg, entities)
	}
	if cfg.UseVector && len(edges) > 1 {
		edges = e.diversifyEdges(ctx, cfg, edges)
	}

	if len(entities) > cfg.Limit {
		entities = entities[:cfg.Limit]
	}
	if len(edges) > cfg.Limit {
		edges = edges[:cfg.Limit]
	}

	return &types.SearchResults{Entities: entities, Edges: edges}, nil
}

// SearchEpisodes implements the episode search surface (spec §4.6):
// lexical matching over an episode's name and content only, with an empty
// query returning the most recent cfg.Limit episodes by reference time.
func (e *Engine) SearchEpisodes(ctx context.Context, cfg *types.SearchConfig) ([]*types.Episode, error) {
	cfg = cfg.WithDefaults()

	episodes, err := e.store.GetEpisodesInRange(ctx, cfg.GroupID, time.Time{}, cfg.Now, 0)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(cfg.Query))
	var matched []*types.Episode
	for _, ep := range episodes {
		if query == "" || strings.Contains(strings.ToLower(ep.Name), query) || strings.Contains(strings.ToLower(ep.Content), query) {
			matched = append(matched, ep)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ReferenceTime.After(matched[j].ReferenceTime) })
	if len(matched) > cfg.Limit {
		matched = matched[:cfg.Limit]
	}
	return matched, nil
}

func (e *Engine) gatherRankedLists(ctx context.Context, cfg *types.SearchConfig, limit int) ([][]string, [][]string, error) {
	var entityLists, edgeLists [][]string

	if cfg.UseVector && e.embed != nil {
		vec, err := e.embed.EmbedSingle(ctx, cfg.Query)
		if err != nil {
			return nil, nil, err
		}
		entities, err := e.store.SearchEntitiesByVector(ctx, cfg.GroupID, vec, limit)
		if err != nil {
			return nil, nil, err
		}
		entityLists = append(entityLists, uuidsOfEntities(entities))

		edges, err := e.store.SearchEdgesByVector(ctx, cfg.GroupID, vec, limit)
		if err != nil {
			return nil, nil, err
		}
		edgeLists = append(edgeLists, uuidsOfEdges(edges))
	}

	if cfg.UseLexical {
		entities, err := e.store.SearchEntitiesByText(ctx, cfg.GroupID, cfg.Query, limit)
		if err != nil {
			return nil, nil, err
		}
		entityLists = append(entityLists, uuidsOfEntities(entities))

		edges, err := e.store.SearchEdgesByText(ctx, cfg.GroupID, cfg.Query, limit)
		if err != nil {
			return nil, nil, err
		}
		edgeLists = append(edgeLists, uuidsOfEdges(edges))
	}

	return entityLists, edgeLists, nil
}

// applyGraphProximity re-ranks an RRF-fused candidate list by multiplying
// each candidate's fused score by 1/(1+hops) from cfg.CenterNodeUUID
// (spec §4.6 step 4), dropping candidates farther than 3 hops — or every
// candidate when CenterNodeUUID doesn't exist — rather than folding
// proximity in as an additional RRF input list.
func (e *Engine) applyGraphProximity(ctx context.Context, cfg *types.SearchConfig, uuids []string, scores []float64) ([]string, error) {
	factors, err := GraphProximityFactors(ctx, e.store, cfg.GroupID, cfg.CenterNodeUUID, uuids, 3)
	if err != nil {
		return nil, err
	}

	type reranked struct {
		uuid  string
		score float64
	}
	out := make([]reranked, 0, len(uuids))
	for i, uuid := range uuids {
		factor, ok := factors[uuid]
		if !ok {
			continue
		}
		out = append(out, reranked{uuid, scores[i] * factor})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })

	result := make([]string, len(out))
	for i, item := range out {
		result[i] = item.uuid
	}
	return result, nil
}

func (e *Engine) resolveEntities(ctx context.Context, groupID string, uuids []string) ([]*types.Entity, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	return e.store.GetEntities(ctx, uuids, groupID)
}

func (e *Engine) resolveEdges(ctx context.Context, groupID string, uuids []string, includeExpired bool, now time.Time) ([]*types.RelationEdge, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	edges, err := e.store.GetEdges(ctx, uuids, groupID)
	if err != nil {
		return nil, err
	}
	if includeExpired {
		return edges, nil
	}
	out := edges[:0]
	for _, edge := range edges {
		if !edge.IsExpired() || (edge.ExpiredAt != nil && edge.ExpiredAt.After(now)) {
			out = append(out, edge)
		}
	}
	return out, nil
}

func (e *Engine) diversifyEntities(ctx context.Context, cfg *types.SearchConfig, entities []*types.Entity) []*types.Entity {
	vec, err := e.embed.EmbedSingle(ctx, cfg.Query)
	if err != nil {
		return entities
	}
	candidates := make(map[string][]float32, len(entities))
	byUUID := make(map[string]*types.Entity, len(entities))
	for _, ent := range entities {
		if len(ent.Embedding) == 0 {
			return entities
		}
		candidates[ent.UUID] = ent.Embedding
		byUUID[ent.UUID] = ent
	}
	ranked, _ := MaximalMarginalRelevance(vec, candidates, cfg.MMRLambda)
	out := make([]*types.Entity, 0, len(ranked))
	for _, uuid := range ranked {
		out = append(out, byUUID[uuid])
	}
	return out
}

func (e *Engine) diversifyEdges(ctx context.Context, cfg *types.SearchConfig, edges []*types.RelationEdge) []*types.RelationEdge {
	vec, err := e.embed.EmbedSingle(ctx, cfg.Query)
	if err != nil {
		return edges
	}
	candidates := make(map[string][]float32, len(edges))
	byUUID := make(map[string]*types.RelationEdge, len(edges))
	for _, edge := range edges {
		if len(edge.Embedding) == 0 {
			return edges
		}
		candidates[edge.UUID] = edge.Embedding
		byUUID[edge.UUID] = edge
	}
	ranked, _ := MaximalMarginalRelevance(vec, candidates, cfg.MMRLambda)
	out := make([]*types.RelationEdge, 0, len(ranked))
	for _, uuid := range ranked {
		out = append(out, byUUID[uuid])
	}
	return out
}

func uuidsOfEntities(entities []*types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.UUID
	}
	return out
}

func uuidsOfEdges(edges []*types.RelationEdge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.UUID
	}
	return out
}
