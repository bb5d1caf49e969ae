package graphstore

import (
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kortexhq/kortex/pkg/types"
)

func entityParams(e *types.Entity) map[string]any {
	return map[string]any{
		"uuid":          e.UUID,
		"group_id":      e.GroupID,
		"name":          e.Name,
		"label":         e.Label,
		"summary":       e.Summary,
		"attributes":    attributesToNeo4j(e.Attributes),
		"embedding":     embeddingToFloat64(e.Embedding),
		"created_at":    formatTime(e.CreatedAt),
		"updated_at":    formatTime(e.UpdatedAt),
		"episode_uuids": e.EpisodeUUIDs,
	}
}

func entityFromNode(n neo4j.Node) *types.Entity {
	props := n.Props
	e := &types.Entity{
		UUID:    stringProp(props, "uuid"),
		GroupID: stringProp(props, "group_id"),
		Name:    stringProp(props, "name"),
		Label:   stringProp(props, "label"),
		Summary: stringProp(props, "summary"),
	}
	e.Attributes = attributesFromNeo4j(props["attributes"])
	e.Embedding = embeddingFromAny(props["embedding"])
	e.CreatedAt = parseTime(stringProp(props, "created_at"))
	e.UpdatedAt = parseTime(stringProp(props, "updated_at"))
	e.EpisodeUUIDs = stringSliceProp(props, "episode_uuids")
	return e
}

func edgeParams(e *types.RelationEdge) map[string]any {
	return map[string]any{
		"uuid":          e.UUID,
		"group_id":      e.GroupID,
		"source_uuid":   e.SourceUUID,
		"target_uuid":   e.TargetUUID,
		"relation_type": e.RelationType,
		"fact":          e.Fact,
		"summary":       e.Summary,
		"attributes":    attributesToNeo4j(e.Attributes),
		"embedding":     embeddingToFloat64(e.Embedding),
		"episode_uuids": e.EpisodeUUIDs,
		"created_at":    formatTime(e.CreatedAt),
		"valid_at":      formatTimePtr(e.ValidAt),
		"invalid_at":    formatTimePtr(e.InvalidAt),
		"expired_at":    formatTimePtr(e.ExpiredAt),
	}
}

func edgeFromRecord(record *neo4j.Record) *types.RelationEdge {
	rel, _ := record.Get("r")
	relationship := rel.(neo4j.Relationship)
	props := relationship.Props

	source, _ := record.Get("source")
	target, _ := record.Get("target")

	e := &types.RelationEdge{
		UUID:         stringProp(props, "uuid"),
		GroupID:      stringProp(props, "group_id"),
		SourceUUID:   asString(source),
		TargetUUID:   asString(target),
		RelationType: stringProp(props, "relation_type"),
		Fact:         stringProp(props, "fact"),
		Summary:      stringProp(props, "summary"),
	}
	e.Attributes = attributesFromNeo4j(props["attributes"])
	e.Embedding = embeddingFromAny(props["embedding"])
	e.EpisodeUUIDs = stringSliceProp(props, "episode_uuids")
	e.CreatedAt = parseTime(stringProp(props, "created_at"))
	e.ValidAt = parseTimePtr(stringProp(props, "valid_at"))
	e.InvalidAt = parseTimePtr(stringProp(props, "invalid_at"))
	e.ExpiredAt = parseTimePtr(stringProp(props, "expired_at"))
	return e
}

func episodeParams(e *types.Episode) map[string]any {
	return map[string]any{
		"uuid":              e.UUID,
		"group_id":          e.GroupID,
		"name":              e.Name,
		"content":           e.Content,
		"type":              string(e.Type),
		"source_url":        e.SourceURL,
		"reference_time":    formatTime(e.ReferenceTime),
		"created_at":        formatTime(e.CreatedAt),
		"status":            string(e.Status),
		"entity_edge_uuids": e.EntityEdgeUUIDs,
	}
}

func episodeFromNode(n neo4j.Node) *types.Episode {
	props := n.Props
	e := &types.Episode{
		UUID:      stringProp(props, "uuid"),
		GroupID:   stringProp(props, "group_id"),
		Name:      stringProp(props, "name"),
		Content:   stringProp(props, "content"),
		Type:      types.EpisodeType(stringProp(props, "type")),
		SourceURL: stringProp(props, "source_url"),
		Status:    types.EpisodeStatus(stringProp(props, "status")),
	}
	e.ReferenceTime = parseTime(stringProp(props, "reference_time"))
	e.CreatedAt = parseTime(stringProp(props, "created_at"))
	e.EntityEdgeUUIDs = stringSliceProp(props, "entity_edge_uuids")
	return e
}

func rankEntitiesByVector(entities []*types.Entity, vector []float32, limit int) []*types.Entity {
	sort.Slice(entities, func(i, j int) bool {
		return cosineSimilarity(vector, entities[i].Embedding) > cosineSimilarity(vector, entities[j].Embedding)
	})
	if limit > 0 && len(entities) > limit {
		entities = entities[:limit]
	}
	return entities
}

func rankEdgesByVector(edges []*types.RelationEdge, vector []float32, limit int) []*types.RelationEdge {
	sort.Slice(edges, func(i, j int) bool {
		return cosineSimilarity(vector, edges[i].Embedding) > cosineSimilarity(vector, edges[j].Embedding)
	})
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	return edges
}

func stringProp(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func stringSliceProp(props map[string]any, key string) []string {
	v, ok := props[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func embeddingToFloat64(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func embeddingFromAny(v any) []float32 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			out = append(out, float32(f))
		}
	}
	return out
}

func attributesToNeo4j(attrs map[string]any) []byte {
	return marshalAttributes(attrs)
}

func attributesFromNeo4j(v any) map[string]any {
	b, ok := v.([]byte)
	if !ok {
		return nil
	}
	return unmarshalAttributes(b)
}
