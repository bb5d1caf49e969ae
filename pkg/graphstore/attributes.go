package graphstore

import "encoding/json"

// marshalAttributes/unmarshalAttributes store Entity/RelationEdge
// Attributes maps as a JSON blob property, since Neo4j properties can't
// hold an arbitrary nested map directly.
func marshalAttributes(attrs map[string]any) []byte {
	if len(attrs) == 0 {
		return nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalAttributes(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
