// Package cost chooses an expansion order for multi-hop pattern steps.
//
// A Pattern is turned into a candidate graph whose states record which
// bindings are bound and which hops are covered. Every path from the empty
// state to the final state is a candidate lowering. Candidates are
// enumerated depth-first in construction order, so the as-written order
// is always candidate 0, and scored with cardinality estimates from a
// pluggable Statistics provider. The cheapest candidate wins; ties keep
// the first one seen.
//
// Statistics are best effort. Missing entries fall back to fixed defaults
// and never fail selection.
package cost
