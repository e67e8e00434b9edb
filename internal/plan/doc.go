// Package plan defines the logical plan IR emitted by lowering: an arena of
// typed operator vertices connected by data-movement edges.
//
// A Builder owns the arena while a compilation is in progress. Build
// validates the structural invariants and returns an immutable *Plan that
// may be shared across goroutines.
//
// Vertices are addressed by VertexID (1-based, 0 means "none"). Tree nodes
// and rewrite passes hold ids, never pointers into the arena.
package plan
