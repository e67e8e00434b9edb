// Package query decodes YAML query documents into traversal trees.
//
// A document names a query and lists its steps. Each step is either a bare
// step name or a single-key mapping from the step name to its argument:
//
//	name: people-by-city
//	steps:
//	  - v: {labels: [person]}
//	  - has: {property: age, pred: {gt: 30}}
//	  - out: knows
//	  - groupCount: {by: {property: city}}
//
// Steps that take sub-traversals (where, not, local, optional, union,
// choose, and by: {sub: ...}) take nested step lists that start from the
// enclosing row. The right side of join is a complete query that starts
// with its own source step.
package query
