// Package types defines the core data types for the kortex knowledge graph.
//
// This package contains the fundamental shapes used throughout kortex:
//   - Episode: a unit of raw ingested content, with bi-temporal bookkeeping
//   - Entity: a node in the graph
//   - RelationEdge: a directed, bi-temporal fact between two entities
//   - Mention: the provenance link an Entity has back to an Episode
//   - SearchConfig: configuration for hybrid search calls
//
// # Validation
//
// Types provide Validate() and ValidateForCreate() methods for input
// validation:
//
//	e := &types.Entity{Name: "Ada Lovelace", GroupID: "group-1"}
//	if err := e.Validate(); err != nil {
//	    // handle validation error
//	}
//
// # JSON Serialization
//
// All types are JSON-serializable with appropriate struct tags.
package types
