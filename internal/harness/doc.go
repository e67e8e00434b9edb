// Package harness runs compile scenarios: YAML files that pair a schema,
// optional statistics and a query with the plan they are expected to
// produce.
//
// # Scenario Format
//
//	name: count_neighbours
//	description: "Counting hops funnels to one partition"
//	schema: |
//	  schema: {
//	    vertexLabels: {person: 1}
//	    edgeLabels: {knows: 10}
//	    properties: {age: {id: 2, types: ["int"]}}
//	  }
//	statistics:
//	  vertices: {person: 1000}
//	  edges:
//	    knows: {count: 5000, out_degree: 5, in_degree: 5}
//	config:
//	  disabled_passes: [range-count]
//	query:
//	  steps: [v, {out: knows}, count]
//	expect:
//	  ops: [SOURCE_VERTEX, VERTEX_HOP, COUNT]
//	  shuffles: [Forward, ShuffleByConst]
//	  output_type: Scalar(long)
//	  passes: []
//
// schema_file may replace the inline schema; relative paths resolve
// against the scenario file. A scenario expecting a failed compilation
// sets expect.error to the error code and no other expectation.
//
// Every run uses a fixed compilation id, a fresh sequence clock and an
// in-memory plan archive, so repeated runs produce identical plans.
//
// # Golden Files
//
// RunWithGolden compares the plan's Explain text with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
