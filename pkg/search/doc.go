// Package search implements the Search Engine (spec §4.6): hybrid
// retrieval over entities and relation edges combining vector
// similarity, lexical matching, and graph proximity, fused by
// Reciprocal Rank Fusion and optionally diversified with Maximal
// Marginal Relevance. Expired edges are excluded unless the caller
// asks for them.
package search
