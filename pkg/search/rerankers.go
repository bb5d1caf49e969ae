package search

import (
	"context"
	"math"
	"sort"

	"github.com/kortexhq/kortex/pkg/graphstore"
)

// DefaultMMRLambda balances relevance against diversity when no lambda is
// supplied (spec §4.6's MMR diversity pass).
const DefaultMMRLambda = 0.5

// RRF (Reciprocal Rank Fusion) merges several ranked UUID lists into one,
// using the standard 1/(rank+k) scoring convention.
func RRF(results [][]string, rankConstant int) ([]string, []float64) {
	if rankConstant <= 0 {
		rankConstant = 60
	}

	scores := make(map[string]float64)
	for _, result := range results {
		for i, uuid := range result {
			scores[uuid] += 1.0 / float64(i+1+rankConstant)
		}
	}

	type uuidScore struct {
		uuid  string
		score float64
	}
	scored := make([]uuidScore, 0, len(scores))
	for uuid, score := range scores {
		scored = append(scored, uuidScore{uuid, score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	uuids := make([]string, len(scored))
	scoreList := make([]float64, len(scored))
	for i, item := range scored {
		uuids[i] = item.uuid
		scoreList[i] = item.score
	}
	return uuids, scoreList
}

// GraphProximityFactors computes, for each of candidateUUIDs, the
// multiplicative re-rank factor 1/(1+hops) from centerUUID (spec §4.6
// step 4), found via breadth-first search over non-expired edges out to
// maxDepth hops. A candidate farther than maxDepth hops — or unreached
// because centerUUID doesn't exist or has no neighbors — is omitted from
// the returned map entirely rather than scored, so the caller drops it
// instead of merely down-ranking it. This replaces the teacher's
// NodeDistanceReranker/EpisodeMentionsReranker, both of which assigned a
// fixed placeholder distance rather than walking the graph.
func GraphProximityFactors(ctx context.Context, store graphstore.Store, groupID, centerUUID string, candidateUUIDs []string, maxDepth int) (map[string]float64, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}

	if _, err := store.GetEntity(ctx, centerUUID, groupID); err != nil {
		return map[string]float64{}, nil
	}

	distances := map[string]int{centerUUID: 0}
	frontier := []string{centerUUID}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, uuid := range frontier {
			edges, err := store.GetEdgesForEntity(ctx, uuid, groupID, false)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				neighbor := e.TargetUUID
				if neighbor == uuid {
					neighbor = e.SourceUUID
				}
				if _, seen := distances[neighbor]; !seen {
					distances[neighbor] = depth + 1
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	factors := make(map[string]float64, len(candidateUUIDs))
	for _, uuid := range candidateUUIDs {
		d, reached := distances[uuid]
		if !reached || d > maxDepth {
			continue
		}
		factors[uuid] = 1.0 / (1.0 + float64(d))
	}
	return factors, nil
}

// MaximalMarginalRelevance reranks candidates to balance relevance to the
// query against redundancy: each candidate is scored once as
// lambda*sim(query) - (1-lambda)*(its highest similarity to any other
// candidate), and the list is sorted by that score. It is a single scoring
// pass, not a greedy selection against already-chosen results.
func MaximalMarginalRelevance(queryVector []float32, candidates map[string][]float32, mmrLambda float64) ([]string, []float64) {
	if mmrLambda <= 0 {
		mmrLambda = DefaultMMRLambda
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	normalized := make(map[string][]float32, len(candidates))
	uuids := make([]string, 0, len(candidates))
	for uuid, vec := range candidates {
		normalized[uuid] = normalizeL2(vec)
		uuids = append(uuids, uuid)
	}
	queryNorm := normalizeL2(queryVector)

	type scored struct {
		uuid  string
		score float64
	}
	var out []scored
	for _, uuid := range uuids {
		querySim := cosineSimilarity(queryNorm, normalized[uuid])
		maxSim := 0.0
		for _, other := range uuids {
			if other == uuid {
				continue
			}
			if sim := cosineSimilarity(normalized[uuid], normalized[other]); sim > maxSim {
				maxSim = sim
			}
		}
		out = append(out, scored{uuid, mmrLambda*querySim - (1-mmrLambda)*maxSim})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })

	resultUUIDs := make([]string, len(out))
	resultScores := make([]float64, len(out))
	for i, item := range out {
		resultUUIDs[i] = item.uuid
		resultScores[i] = item.score
	}
	return resultUUIDs, resultScores
}

func normalizeL2(vector []float32) []float32 {
	if len(vector) == 0 {
		return vector
	}
	var norm float32
	for _, v := range vector {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		return vector
	}
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = v / norm
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
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
