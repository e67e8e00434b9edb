// Package rewrite optimizes traversal trees in place before lowering.
//
// A Manager runs a fixed ordered pipeline of passes:
//
//	label-pushdown   tag rows with a label as late as possible
//	order-terminal   keep order() results ordered past reshuffling steps
//	order-range      push order().limit(k) down to a source pre-limit
//	range-count      fuse limit(k).count() into a capped count
//	edge-props       skip fetching edge properties nobody reads
//
// Every pass is idempotent and may be disabled. Passes only change cost,
// never results, so a plan lowered without them is still correct.
package rewrite
