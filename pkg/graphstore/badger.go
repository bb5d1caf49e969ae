package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/types"
)

// BadgerStore is the embedded reference Store implementation: a single
// badger.DB holding entities, edges, and episodes as JSON values under
// group-scoped key prefixes. Lexical and vector search are done by
// scanning the group's keys in-process, which is adequate at the scale
// a single embedded store is meant for; Neo4jStore delegates both to
// native index queries instead.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if absent) a badger database at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func entityKey(groupID, uuid string) []byte  { return []byte("entity:" + groupID + ":" + uuid) }
func entityPrefix(groupID string) []byte     { return []byte("entity:" + groupID + ":") }
func edgeKey(groupID, uuid string) []byte    { return []byte("edge:" + groupID + ":" + uuid) }
func edgePrefix(groupID string) []byte       { return []byte("edge:" + groupID + ":") }
func episodeKey(groupID, uuid string) []byte { return []byte("episode:" + groupID + ":" + uuid) }
func episodePrefix(groupID string) []byte    { return []byte("episode:" + groupID + ":") }

func (s *BadgerStore) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("graphstore: marshal: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) getJSON(key []byte, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err == badger.ErrKeyNotFound {
		return kerr.NotFound("graphstore.get", "key not found")
	}
	return err
}

func (s *BadgerStore) scanPrefix(prefix []byte, visit func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error { return visit(val) }); err != nil {
				return err
			}
		}
		return nil
	})
}

// -- EntityStore --

func (s *BadgerStore) GetEntity(_ context.Context, uuid, groupID string) (*types.Entity, error) {
	var e types.Entity
	if err := s.getJSON(entityKey(groupID, uuid), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *BadgerStore) GetEntities(ctx context.Context, uuids []string, groupID string) ([]*types.Entity, error) {
	out := make([]*types.Entity, 0, len(uuids))
	for _, id := range uuids {
		e, err := s.GetEntity(ctx, id, groupID)
		if err != nil {
			if kerr.Is(err, kerr.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *BadgerStore) GetEntitiesByGroup(_ context.Context, groupID string) ([]*types.Entity, error) {
	var out []*types.Entity
	err := s.scanPrefix(entityPrefix(groupID), func(val []byte) error {
		var e types.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	return out, err
}

func (s *BadgerStore) GetEntityByName(ctx context.Context, groupID, name string) (*types.Entity, error) {
	entities, err := s.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return nil, kerr.NotFound("graphstore.GetEntityByName", "no entity named "+name)
}

func (s *BadgerStore) UpsertEntity(_ context.Context, entity *types.Entity) error {
	if entity.UpdatedAt.IsZero() {
		entity.UpdatedAt = time.Now().UTC()
	}
	return s.putJSON(entityKey(entity.GroupID, entity.UUID), entity)
}

func (s *BadgerStore) DeleteEntity(_ context.Context, uuid, groupID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entityKey(groupID, uuid))
	})
}

// -- EdgeStore --

func (s *BadgerStore) GetEdge(_ context.Context, uuid, groupID string) (*types.RelationEdge, error) {
	var e types.RelationEdge
	if err := s.getJSON(edgeKey(groupID, uuid), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *BadgerStore) GetEdges(ctx context.Context, uuids []string, groupID string) ([]*types.RelationEdge, error) {
	out := make([]*types.RelationEdge, 0, len(uuids))
	for _, id := range uuids {
		e, err := s.GetEdge(ctx, id, groupID)
		if err != nil {
			if kerr.Is(err, kerr.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *BadgerStore) allEdges(groupID string) ([]*types.RelationEdge, error) {
	var out []*types.RelationEdge
	err := s.scanPrefix(edgePrefix(groupID), func(val []byte) error {
		var e types.RelationEdge
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	return out, err
}

func (s *BadgerStore) GetEdgesBetween(_ context.Context, sourceUUID, targetUUID, groupID string) ([]*types.RelationEdge, error) {
	all, err := s.allEdges(groupID)
	if err != nil {
		return nil, err
	}
	var out []*types.RelationEdge
	for _, e := range all {
		if (e.SourceUUID == sourceUUID && e.TargetUUID == targetUUID) ||
			(e.SourceUUID == targetUUID && e.TargetUUID == sourceUUID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *BadgerStore) GetEdgesForEntity(_ context.Context, entityUUID, groupID string, includeExpired bool) ([]*types.RelationEdge, error) {
	all, err := s.allEdges(groupID)
	if err != nil {
		return nil, err
	}
	var out []*types.RelationEdge
	for _, e := range all {
		if e.SourceUUID != entityUUID && e.TargetUUID != entityUUID {
			continue
		}
		if !includeExpired && e.IsExpired() {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *BadgerStore) UpsertEdge(_ context.Context, edge *types.RelationEdge) error {
	return s.putJSON(edgeKey(edge.GroupID, edge.UUID), edge)
}

func (s *BadgerStore) ExpireEdge(ctx context.Context, uuid, groupID string, expiredAt time.Time) error {
	edge, err := s.GetEdge(ctx, uuid, groupID)
	if err != nil {
		return err
	}
	edge.ExpiredAt = &expiredAt
	return s.UpsertEdge(ctx, edge)
}

func (s *BadgerStore) DeleteEdge(_ context.Context, uuid, groupID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(edgeKey(groupID, uuid))
	})
}

// -- EpisodeStore --

func (s *BadgerStore) GetEpisode(_ context.Context, uuid, groupID string) (*types.Episode, error) {
	var e types.Episode
	if err := s.getJSON(episodeKey(groupID, uuid), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *BadgerStore) GetEpisodes(ctx context.Context, uuids []string, groupID string) ([]*types.Episode, error) {
	out := make([]*types.Episode, 0, len(uuids))
	for _, id := range uuids {
		e, err := s.GetEpisode(ctx, id, groupID)
		if err != nil {
			if kerr.Is(err, kerr.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *BadgerStore) GetEpisodesInRange(_ context.Context, groupID string, start, end time.Time, limit int) ([]*types.Episode, error) {
	var out []*types.Episode
	err := s.scanPrefix(episodePrefix(groupID), func(val []byte) error {
		var e types.Episode
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if !e.ReferenceTime.Before(start) && !e.ReferenceTime.After(end) {
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferenceTime.Before(out[j].ReferenceTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BadgerStore) UpsertEpisode(_ context.Context, episode *types.Episode) error {
	return s.putJSON(episodeKey(episode.GroupID, episode.UUID), episode)
}

func (s *BadgerStore) DeleteEpisode(_ context.Context, uuid, groupID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(episodeKey(groupID, uuid))
	})
}

// -- Searcher --

func (s *BadgerStore) SearchEntitiesByText(ctx context.Context, groupID, query string, limit int) ([]*types.Entity, error) {
	entities, err := s.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []*types.Entity
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Summary), q) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BadgerStore) SearchEdgesByText(ctx context.Context, groupID, query string, limit int) ([]*types.RelationEdge, error) {
	edges, err := s.allEdges(groupID)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []*types.RelationEdge
	for _, e := range edges {
		if strings.Contains(strings.ToLower(e.Fact), q) || strings.Contains(strings.ToLower(e.RelationType), q) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BadgerStore) SearchEntitiesByVector(ctx context.Context, groupID string, vector []float32, limit int) ([]*types.Entity, error) {
	entities, err := s.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.Slice(entities, func(i, j int) bool {
		return cosineSimilarity(vector, entities[i].Embedding) > cosineSimilarity(vector, entities[j].Embedding)
	})
	if limit > 0 && len(entities) > limit {
		entities = entities[:limit]
	}
	return entities, nil
}

func (s *BadgerStore) SearchEdgesByVector(ctx context.Context, groupID string, vector []float32, limit int) ([]*types.RelationEdge, error) {
	edges, err := s.allEdges(groupID)
	if err != nil {
		return nil, err
	}
	sort.Slice(edges, func(i, j int) bool {
		return cosineSimilarity(vector, edges[i].Embedding) > cosineSimilarity(vector, edges[j].Embedding)
	})
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	return edges, nil
}

// -- Admin --

func (s *BadgerStore) GetStats(ctx context.Context, groupID string) (*Stats, error) {
	entities, err := s.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	edges, err := s.allEdges(groupID)
	if err != nil {
		return nil, err
	}
	var episodeCount int
	err = s.scanPrefix(episodePrefix(groupID), func(_ []byte) error { episodeCount++; return nil })
	if err != nil {
		return nil, err
	}
	return &Stats{EntityCount: len(entities), EdgeCount: len(edges), EpisodeCount: episodeCount}, nil
}

func (s *BadgerStore) GetAllGroupIDs(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte("entity:")); it.ValidForPrefix([]byte("entity:")); it.Next() {
			key := string(it.Item().Key())
			parts := strings.SplitN(key, ":", 3)
			if len(parts) == 3 {
				seen[parts[1]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
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

var _ Store = (*BadgerStore)(nil)
