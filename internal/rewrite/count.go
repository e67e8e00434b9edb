package rewrite

import "github.com/roach88/gplan/internal/tree"

// rangeCount replaces range(0, k) followed by count() with a single count
// that stops at k.
type rangeCount struct{}

func (rangeCount) Name() string { return PassRangeCount }

func (rangeCount) Apply(_ *tree.Context, t *tree.Traversal) bool {
	return eachTraversal(t, func(tr *tree.Traversal) bool {
		changed := false
		for _, n := range tr.Nodes() {
			rng, ok := n.Payload.(*tree.Range)
			if !ok || rng.Low != 0 || rng.High < 0 || !unconditioned(n) || n.Window != nil {
				continue
			}
			next := n.Next()
			if next == nil {
				continue
			}
			if _, ok := next.Payload.(*tree.Count); !ok {
				continue
			}
			next.Payload = &tree.CountLimit{Limit: rng.High}
			tr.Remove(n)
			changed = true
		}
		return changed
	})
}
