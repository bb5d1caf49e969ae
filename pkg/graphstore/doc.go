// Package graphstore is the Graph Store Driver layer (spec §4.1): the
// Store interface plus two implementations, an embedded BadgerStore and
// a clustered Neo4jStore. Both implement the soft-update pattern for
// edges (ExpireEdge sets ExpiredAt rather than mutating a fact in
// place) so bi-temporal history survives contradictions.
package graphstore
