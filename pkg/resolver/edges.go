package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/kortexhq/kortex/pkg/types"
)

// EdgeOutcome names what ResolveEdges decided to do with one extracted fact.
type EdgeOutcome string

const (
	// OutcomeDuplicate means the fact already exists and was merely
	// re-cited; the existing edge's provenance was extended.
	OutcomeDuplicate EdgeOutcome = "duplicate"
	// OutcomeContradiction means a prior edge between the same two
	// entities and relation type was invalidated (its InvalidAt set)
	// because this fact supersedes it.
	OutcomeContradiction EdgeOutcome = "contradiction"
	// OutcomeNew means no related edge existed; a new one was created.
	OutcomeNew EdgeOutcome = "new"
)

// EdgeResolution is the outcome of resolving one extracted fact.
type EdgeResolution struct {
	Edge    *types.RelationEdge
	Outcome EdgeOutcome
	// Superseded is the existing edge that Edge contradicts, its InvalidAt
	// already set. Non-nil only when Outcome == OutcomeContradiction;
	// callers persist it via graphstore.EdgeStore.UpsertEdge rather than
	// ExpireEdge (spec §3: expired_at is reserved for soft-update).
	Superseded *types.RelationEdge
}

// ResolveEdges matches each extracted fact against the entity pair's
// existing edges. Tie-break order, most to least specific: a
// contradiction (same relation type, but the LLM tagged the fact as
// negating the existing one, or it shares endpoints + relation with a
// strictly later valid_at) wins over a duplicate (same relation type,
// same fact text) which wins over treating it as new. referenceTime is
// the fallback invalid_at for a contradiction whose candidate carries no
// valid_at of its own (spec §4.3 rule 4).
func (r *Resolver) ResolveEdges(ctx context.Context, groupID string, extracted []*types.RelationEdge, referenceTime time.Time) ([]EdgeResolution, error) {
	out := make([]EdgeResolution, 0, len(extracted))

	for _, candidate := range extracted {
		existing, err := r.store.GetEdgesBetween(ctx, candidate.SourceUUID, candidate.TargetUUID, groupID)
		if err != nil {
			return nil, err
		}

		resolution := resolveOneEdge(candidate, existing, referenceTime)
		out = append(out, resolution)
	}

	return out, nil
}

func resolveOneEdge(candidate *types.RelationEdge, existing []*types.RelationEdge, referenceTime time.Time) EdgeResolution {
	var sameType []*types.RelationEdge
	for _, e := range existing {
		if e.IsExpired() {
			continue
		}
		if strings.EqualFold(e.RelationType, candidate.RelationType) {
			sameType = append(sameType, e)
		}
	}

	for _, e := range sameType {
		if !contradicts(candidate, e) {
			continue
		}
		invalidAt := candidate.ValidAt
		if invalidAt == nil {
			t := referenceTime
			invalidAt = &t
		}
		e.InvalidAt = invalidAt
		return EdgeResolution{Edge: candidate, Outcome: OutcomeContradiction, Superseded: e}
	}

	for _, e := range sameType {
		if strings.EqualFold(strings.TrimSpace(e.Fact), strings.TrimSpace(candidate.Fact)) {
			e.EpisodeUUIDs = appendUnique(e.EpisodeUUIDs, candidate.EpisodeUUIDs...)
			return EdgeResolution{Edge: e, Outcome: OutcomeDuplicate}
		}
	}

	return EdgeResolution{Edge: candidate, Outcome: OutcomeNew}
}

// contradicts reports whether candidate negates existing per spec §4.3
// rule 4: either the LLM tagged the candidate as negating it, or the two
// share endpoints and relation type but candidate's valid_at is strictly
// later than existing's.
func contradicts(candidate, existing *types.RelationEdge) bool {
	if candidate.Negates {
		return true
	}
	if candidate.ValidAt == nil || existing.ValidAt == nil {
		return false
	}
	return candidate.ValidAt.After(*existing.ValidAt)
}
