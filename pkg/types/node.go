package types

import "sort"

// ReverseEntities returns a copy of entities ordered oldest-created-first.
func ReverseEntities(entities []*Entity) []*Entity {
	out := make([]*Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// IndexEntitiesByUUID builds a UUID lookup table for going from a
// RelationEdge's endpoint UUIDs back to Entity.
func IndexEntitiesByUUID(entities []*Entity) map[string]*Entity {
	idx := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		idx[e.UUID] = e
	}
	return idx
}
