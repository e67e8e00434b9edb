package rewrite

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
)

// labelPushdown moves each LabelStart requirement downstream through
// steps that pass rows through unchanged, stopping before the first step
// that reads the label or changes the row. Fewer pipeline stages then
// carry the tag.
type labelPushdown struct{}

func (labelPushdown) Name() string { return PassLabelPushdown }

func (labelPushdown) Apply(_ *tree.Context, t *tree.Traversal) bool {
	return eachTraversal(t, func(tr *tree.Traversal) bool {
		changed := false
		for _, n := range tr.Nodes() {
			if !bindsRow(n) {
				continue
			}
			for _, name := range n.After.Labels(plan.LabelStart) {
				to := pushTarget(n, name)
				if to == n {
					continue
				}
				n.After.Remove(plan.LabelStart, name)
				to.After.Add(plan.LabelStart, name)
				changed = true
			}
		}
		return changed
	})
}

// bindsRow reports whether the labels of n bind its output row. Match
// and ordinal steps bind other values and keep their tags in place.
func bindsRow(n *tree.Node) bool {
	switch n.Payload.(type) {
	case *tree.Match, *tree.Ordinal:
		return false
	}
	return true
}

func pushTarget(n *tree.Node, name string) *tree.Node {
	to := n
	for x := n.Next(); x != nil; x = x.Next() {
		if !preservesRows(x) || x.Uses(name) || x.Binds(name) {
			break
		}
		to = x
	}
	return to
}

// preservesRows reports whether rows leave n exactly as they entered,
// minus any filtered out.
func preservesRows(n *tree.Node) bool {
	switch n.Category() {
	case tree.CategoryFilter, tree.CategoryOrder:
		return true
	}
	switch n.Payload.(type) {
	case *tree.Store, *tree.Ordinal:
		return true
	}
	return false
}
