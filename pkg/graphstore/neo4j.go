package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/types"
)

// Neo4jStore implements Store against a Neo4j database. Entities are
// stored as (:Entity) nodes, edges as (:Entity)-[:RELATES_TO]->(:Entity)
// relationships carrying the fact/provenance properties, and episodes as
// standalone (:Episode) nodes. No relationship links an episode to the
// entities it mentions; that provenance lives in Entity.EpisodeUUIDs.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore opens a driver connection; callers must call Close.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graphstore: open neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{driver: driver, database: database}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

// -- EntityStore --

func (s *Neo4jStore) GetEntity(ctx context.Context, uuid, groupID string) (*types.Entity, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity {uuid: $uuid, group_id: $group_id}) RETURN e`,
			map[string]any{"uuid": uuid, "group_id": groupID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, kerr.NotFound("graphstore.GetEntity", "entity not found")
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	record := result.(*neo4j.Record)
	node, _ := record.Get("e")
	return entityFromNode(node.(neo4j.Node)), nil
}

func (s *Neo4jStore) GetEntities(ctx context.Context, uuids []string, groupID string) ([]*types.Entity, error) {
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

func (s *Neo4jStore) GetEntitiesByGroup(ctx context.Context, groupID string) ([]*types.Entity, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity {group_id: $group_id}) RETURN e`, map[string]any{"group_id": groupID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.Entity, 0, len(records))
		for _, record := range records {
			n, _ := record.Get("e")
			out = append(out, entityFromNode(n.(neo4j.Node)))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.Entity), nil
}

func (s *Neo4jStore) GetEntityByName(ctx context.Context, groupID, name string) (*types.Entity, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity {group_id: $group_id}) WHERE toLower(e.name) = toLower($name) RETURN e LIMIT 1`,
			map[string]any{"group_id": groupID, "name": name})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, kerr.NotFound("graphstore.GetEntityByName", "no entity named "+name)
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	record := result.(*neo4j.Record)
	n, _ := record.Get("e")
	return entityFromNode(n.(neo4j.Node)), nil
}

func (s *Neo4jStore) UpsertEntity(ctx context.Context, entity *types.Entity) error {
	if entity.UpdatedAt.IsZero() {
		entity.UpdatedAt = time.Now().UTC()
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (e:Entity {uuid: $uuid, group_id: $group_id})
			SET e.name = $name, e.label = $label, e.summary = $summary,
			    e.attributes = $attributes, e.embedding = $embedding,
			    e.created_at = $created_at, e.updated_at = $updated_at,
			    e.episode_uuids = $episode_uuids
		`, entityParams(entity))
	})
	return err
}

func (s *Neo4jStore) DeleteEntity(ctx context.Context, uuid, groupID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `MATCH (e:Entity {uuid: $uuid, group_id: $group_id}) DETACH DELETE e`,
			map[string]any{"uuid": uuid, "group_id": groupID})
	})
	return err
}

// -- EdgeStore --

func (s *Neo4jStore) GetEdge(ctx context.Context, uuid, groupID string) (*types.RelationEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Entity)-[r:RELATES_TO {uuid: $uuid, group_id: $group_id}]->(t:Entity) RETURN r, s.uuid AS source, t.uuid AS target`,
			map[string]any{"uuid": uuid, "group_id": groupID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, kerr.NotFound("graphstore.GetEdge", "edge not found")
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return edgeFromRecord(result.(*neo4j.Record)), nil
}

func (s *Neo4jStore) GetEdges(ctx context.Context, uuids []string, groupID string) ([]*types.RelationEdge, error) {
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

func (s *Neo4jStore) GetEdgesBetween(ctx context.Context, sourceUUID, targetUUID, groupID string) ([]*types.RelationEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:Entity {uuid: $source, group_id: $group_id})-[r:RELATES_TO]-(t:Entity {uuid: $target, group_id: $group_id})
			RETURN r, s.uuid AS source, t.uuid AS target
		`, map[string]any{"source": sourceUUID, "target": targetUUID, "group_id": groupID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.RelationEdge, 0, len(records))
		for _, record := range records {
			out = append(out, edgeFromRecord(record))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.RelationEdge), nil
}

func (s *Neo4jStore) GetEdgesForEntity(ctx context.Context, entityUUID, groupID string, includeExpired bool) ([]*types.RelationEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (s:Entity {group_id: $group_id})-[r:RELATES_TO]-(t:Entity {group_id: $group_id})
		WHERE s.uuid = $entity_uuid OR t.uuid = $entity_uuid
		RETURN r, s.uuid AS source, t.uuid AS target
	`
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"entity_uuid": entityUUID, "group_id": groupID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.RelationEdge, 0, len(records))
		for _, record := range records {
			edge := edgeFromRecord(record)
			if !includeExpired && edge.IsExpired() {
				continue
			}
			out = append(out, edge)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.RelationEdge), nil
}

func (s *Neo4jStore) UpsertEdge(ctx context.Context, edge *types.RelationEdge) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (s:Entity {uuid: $source_uuid, group_id: $group_id})
			MATCH (t:Entity {uuid: $target_uuid, group_id: $group_id})
			MERGE (s)-[r:RELATES_TO {uuid: $uuid, group_id: $group_id}]->(t)
			SET r.relation_type = $relation_type, r.fact = $fact, r.summary = $summary,
			    r.attributes = $attributes, r.embedding = $embedding,
			    r.episode_uuids = $episode_uuids, r.created_at = $created_at,
			    r.valid_at = $valid_at, r.invalid_at = $invalid_at, r.expired_at = $expired_at
		`, edgeParams(edge))
	})
	return err
}

func (s *Neo4jStore) ExpireEdge(ctx context.Context, uuid, groupID string, expiredAt time.Time) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH ()-[r:RELATES_TO {uuid: $uuid, group_id: $group_id}]-()
			SET r.expired_at = $expired_at
		`, map[string]any{"uuid": uuid, "group_id": groupID, "expired_at": expiredAt.Format(time.RFC3339)})
	})
	return err
}

func (s *Neo4jStore) DeleteEdge(ctx context.Context, uuid, groupID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `MATCH ()-[r:RELATES_TO {uuid: $uuid, group_id: $group_id}]-() DELETE r`,
			map[string]any{"uuid": uuid, "group_id": groupID})
	})
	return err
}

// -- EpisodeStore --

func (s *Neo4jStore) GetEpisode(ctx context.Context, uuid, groupID string) (*types.Episode, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Episode {uuid: $uuid, group_id: $group_id}) RETURN e`,
			map[string]any{"uuid": uuid, "group_id": groupID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, kerr.NotFound("graphstore.GetEpisode", "episode not found")
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	record := result.(*neo4j.Record)
	n, _ := record.Get("e")
	return episodeFromNode(n.(neo4j.Node)), nil
}

func (s *Neo4jStore) GetEpisodes(ctx context.Context, uuids []string, groupID string) ([]*types.Episode, error) {
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

func (s *Neo4jStore) GetEpisodesInRange(ctx context.Context, groupID string, start, end time.Time, limit int) ([]*types.Episode, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Episode {group_id: $group_id})
			WHERE e.reference_time >= $start AND e.reference_time <= $end
			RETURN e ORDER BY e.reference_time LIMIT $limit
		`, map[string]any{
			"group_id": groupID,
			"start":    start.Format(time.RFC3339),
			"end":      end.Format(time.RFC3339),
			"limit":    int64(limit),
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.Episode, 0, len(records))
		for _, record := range records {
			n, _ := record.Get("e")
			out = append(out, episodeFromNode(n.(neo4j.Node)))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.Episode), nil
}

func (s *Neo4jStore) UpsertEpisode(ctx context.Context, episode *types.Episode) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (e:Episode {uuid: $uuid, group_id: $group_id})
			SET e.name = $name, e.content = $content, e.type = $type,
			    e.source_url = $source_url, e.reference_time = $reference_time,
			    e.created_at = $created_at, e.status = $status,
			    e.entity_edge_uuids = $entity_edge_uuids
		`, episodeParams(episode))
	})
	return err
}

func (s *Neo4jStore) DeleteEpisode(ctx context.Context, uuid, groupID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `MATCH (e:Episode {uuid: $uuid, group_id: $group_id}) DETACH DELETE e`,
			map[string]any{"uuid": uuid, "group_id": groupID})
	})
	return err
}

// -- Searcher --

func (s *Neo4jStore) SearchEntitiesByText(ctx context.Context, groupID, query string, limit int) ([]*types.Entity, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {group_id: $group_id})
			WHERE toLower(e.name) CONTAINS toLower($query) OR toLower(e.summary) CONTAINS toLower($query)
			RETURN e LIMIT $limit
		`, map[string]any{"group_id": groupID, "query": query, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.Entity, 0, len(records))
		for _, record := range records {
			n, _ := record.Get("e")
			out = append(out, entityFromNode(n.(neo4j.Node)))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.Entity), nil
}

func (s *Neo4jStore) SearchEdgesByText(ctx context.Context, groupID, query string, limit int) ([]*types.RelationEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:Entity)-[r:RELATES_TO {group_id: $group_id}]->(t:Entity)
			WHERE toLower(r.fact) CONTAINS toLower($query)
			RETURN r, s.uuid AS source, t.uuid AS target LIMIT $limit
		`, map[string]any{"group_id": groupID, "query": query, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.RelationEdge, 0, len(records))
		for _, record := range records {
			out = append(out, edgeFromRecord(record))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*types.RelationEdge), nil
}

// SearchEntitiesByVector fetches the group's entities and ranks them by
// cosine similarity in-process; it does not use a Neo4j vector index.
func (s *Neo4jStore) SearchEntitiesByVector(ctx context.Context, groupID string, vector []float32, limit int) ([]*types.Entity, error) {
	entities, err := s.GetEntitiesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return rankEntitiesByVector(entities, vector, limit), nil
}

func (s *Neo4jStore) SearchEdgesByVector(ctx context.Context, groupID string, vector []float32, limit int) ([]*types.RelationEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Entity)-[r:RELATES_TO {group_id: $group_id}]->(t:Entity) RETURN r, s.uuid AS source, t.uuid AS target`,
			map[string]any{"group_id": groupID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*types.RelationEdge, 0, len(records))
		for _, record := range records {
			out = append(out, edgeFromRecord(record))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return rankEdgesByVector(result.([]*types.RelationEdge), vector, limit), nil
}

// -- Admin --

func (s *Neo4jStore) GetStats(ctx context.Context, groupID string) (*Stats, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {group_id: $group_id})
			OPTIONAL MATCH (s:Entity {group_id: $group_id})-[r:RELATES_TO]->(t:Entity {group_id: $group_id})
			OPTIONAL MATCH (ep:Episode {group_id: $group_id})
			RETURN count(DISTINCT e) AS entities, count(DISTINCT r) AS edges, count(DISTINCT ep) AS episodes
		`, map[string]any{"group_id": groupID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	record := result.(*neo4j.Record)
	entities, _ := record.Get("entities")
	edges, _ := record.Get("edges")
	episodes, _ := record.Get("episodes")
	return &Stats{
		EntityCount:  int(entities.(int64)),
		EdgeCount:    int(edges.(int64)),
		EpisodeCount: int(episodes.(int64)),
	}, nil
}

func (s *Neo4jStore) GetAllGroupIDs(ctx context.Context) ([]string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity) RETURN DISTINCT e.group_id AS group_id`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(records))
		for _, record := range records {
			v, _ := record.Get("group_id")
			out = append(out, v.(string))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

var _ Store = (*Neo4jStore)(nil)
