// Package resolver implements the Entity/Edge Resolver (spec §4.3):
// deduplicating newly extracted entities and facts against what the
// graph already knows, merging attributes on a match, and deciding
// between a contradiction (invalidate the old edge), a duplicate (reuse the
// existing edge), or a genuinely new fact.
package resolver

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/types"
)

// DefaultSimilarityThreshold is the cosine-similarity floor for treating
// two entities as the same (spec §4.3).
const DefaultSimilarityThreshold = 0.85

// DefaultTopK bounds how many embedding-similarity candidates are
// considered before falling back to "create new".
const DefaultTopK = 5

// Options configures a Resolver's matching behavior.
type Options struct {
	SimilarityThreshold float64
	TopK                int
}

func (o Options) withDefaults() Options {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	return o
}

// Resolver deduplicates extracted entities and facts against the graph.
type Resolver struct {
	store   graphstore.Store
	embed   embedder.Client
	options Options
}

// New constructs a Resolver.
func New(store graphstore.Store, embed embedder.Client, options Options) *Resolver {
	return &Resolver{store: store, embed: embed, options: options.withDefaults()}
}

// EntityResolution is the outcome of resolving one extracted entity.
type EntityResolution struct {
	Entity  *types.Entity // the surviving entity: either the match (merged) or the new one
	Matched bool          // true if Entity already existed in the graph
	Updated bool          // true if the match's attributes changed as a result
}

// ResolveEntities matches each extracted entity against the group's
// existing entities by normalized-name equality first, then by
// embedding similarity above the configured threshold, and shallow-merges
// attributes into the survivor on a match.
func (r *Resolver) ResolveEntities(ctx context.Context, groupID string, extracted []*types.Entity) ([]EntityResolution, error) {
	existing, err := r.store.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]EntityResolution, 0, len(extracted))
	for _, candidate := range extracted {
		match := findMatch(candidate, existing, r.options)
		if match == nil {
			out = append(out, EntityResolution{Entity: candidate, Matched: false})
			existing = append(existing, candidate)
			continue
		}

		updated := mergeEntity(match, candidate)
		if updated {
			match.UpdatedEpisodeUUIDs = appendUnique(match.UpdatedEpisodeUUIDs, candidate.EpisodeUUIDs...)
		}
		out = append(out, EntityResolution{Entity: match, Matched: true, Updated: updated})
	}

	return out, nil
}

func findMatch(candidate *types.Entity, existing []*types.Entity, opts Options) *types.Entity {
	for _, e := range existing {
		if e.Label == candidate.Label && normalizeName(e.Name) == normalizeName(candidate.Name) {
			return e
		}
	}

	if len(candidate.Embedding) == 0 {
		return nil
	}

	type scored struct {
		entity *types.Entity
		score  float64
	}
	var candidates []scored
	for _, e := range existing {
		if e.Label != candidate.Label || len(e.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{e, cosineSimilarity(candidate.Embedding, e.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}
	if len(candidates) > 0 && candidates[0].score >= opts.SimilarityThreshold {
		return candidates[0].entity
	}
	return nil
}

// mergeEntity shallow-merges candidate's attributes and episode
// provenance into survivor without overwriting existing attribute keys,
// since a duplicate mention should add context, not erase it. It reports
// whether the merge actually added a new attribute key, which the
// Citation Service uses to tag this mention "updated" rather than merely
// "referenced" (spec §4.7).
func mergeEntity(survivor, candidate *types.Entity) bool {
	if survivor.Attributes == nil {
		survivor.Attributes = map[string]any{}
	}
	updated := false
	for k, v := range candidate.Attributes {
		if _, exists := survivor.Attributes[k]; !exists {
			survivor.Attributes[k] = v
			updated = true
		}
	}
	survivor.EpisodeUUIDs = appendUnique(survivor.EpisodeUUIDs, candidate.EpisodeUUIDs...)
	if survivor.Summary == "" {
		survivor.Summary = candidate.Summary
	}
	return updated
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func appendUnique(base []string, items ...string) []string {
	seen := map[string]struct{}{}
	for _, b := range base {
		seen[b] = struct{}{}
	}
	for _, item := range items {
		if _, ok := seen[item]; !ok {
			base = append(base, item)
			seen[item] = struct{}{}
		}
	}
	return base
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
