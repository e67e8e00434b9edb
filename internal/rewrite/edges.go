package rewrite

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
)

// edgeProps clears FetchProps on edge hops whose only consumer never
// reads edge properties, and sets it back when the consumer changes.
type edgeProps struct{}

func (edgeProps) Name() string { return PassEdgeProps }

func (edgeProps) Apply(_ *tree.Context, t *tree.Traversal) bool {
	return eachTraversal(t, func(tr *tree.Traversal) bool {
		changed := false
		for _, n := range tr.Nodes() {
			hop, ok := n.Payload.(*tree.EdgeHop)
			if !ok {
				continue
			}
			want := !skipsEdgeProps(n)
			if hop.FetchProps != want {
				hop.FetchProps = want
				changed = true
			}
		}
		return changed
	})
}

// skipsEdgeProps reports whether the edges produced by n are only used
// for their endpoints or counted.
func skipsEdgeProps(n *tree.Node) bool {
	if len(n.Labels) > 0 || n.After.Has(plan.LabelStart) {
		return false
	}
	next := n.Next()
	if next == nil {
		return false
	}
	switch next.Payload.(type) {
	case *tree.EdgeVertex, *tree.EdgeBothV, *tree.Count, *tree.CountLimit:
		return true
	}
	return false
}
