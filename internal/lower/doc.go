// Package lower turns a validated traversal tree into a logical plan.
//
// Lowering walks each chain source to sink and emits one or more plan
// vertices per step, recording the step's own vertex in Node.Vertex. Each
// edge gets a movement strategy:
//
//   - steps that read element data (properties, adjacency, labels) take
//     ShuffleByKey(identity) when their input is not partition local
//   - global steps (order, range, sample, aggregates, cap) take
//     ShuffleByConst, or ShuffleByKey(join key) inside a per-row
//     sub-traversal
//   - group and groupCount first emit KEY_ENTRY and then shuffle by the
//     map key
//   - dedup shuffles by its dedup key
//
// Per-row sub-traversals are spliced between an ENTER_KEY vertex that tags
// each outer row with a fresh system label and a binary join vertex. Both
// join inputs move Forward unless some edge inside the sub moved rows, in
// which case both shuffle by the join key.
package lower
