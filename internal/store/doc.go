// Package store provides SQLite-backed storage for graph statistics and
// compiled plans.
//
// Tables:
//   - vertex_stats: vertex population per label ("*" for the whole graph)
//   - edge_stats: edge count and average degrees per edge label
//   - plans: compiled plans keyed by plan fingerprint
//
// A Store implements cost.Statistics, so a match step can be costed
// straight from the database.
//
// # Determinism
//
// Listing queries order by seq ASC, fingerprint COLLATE BINARY ASC so
// repeated reads return identical results. Plans are stored as canonical
// JSON, and a plan's fingerprint is the hash of exactly those bytes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
