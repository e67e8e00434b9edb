package rewrite

import (
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
)

// orderTerminal keeps the result of an order() deterministic when a later
// step may reshuffle it. The order is followed by an ordinal step binding
// each row's position; collecting aggregates sort by that ordinal and any
// other reshuffling step is followed by a re-order on it.
type orderTerminal struct{}

func (orderTerminal) Name() string { return PassOrderTerminal }

func (orderTerminal) Apply(ctx *tree.Context, t *tree.Traversal) bool {
	return eachTraversal(t, func(tr *tree.Traversal) bool {
		changed := false
		for _, n := range tr.Nodes() {
			if _, ok := n.Payload.(*tree.Order); !ok || isReorder(ctx, n) {
				continue
			}
			if next := n.Next(); next != nil {
				if _, done := next.Payload.(*tree.Ordinal); done {
					continue
				}
			}
			if fixOrder(ctx, tr, n) {
				changed = true
			}
		}
		return changed
	})
}

type fixKind int

const (
	fixNone fixKind = iota
	fixCollect
	fixReorder
	fixStop
)

// offence classifies how n treats the order of its input rows.
func offence(ctx *tree.Context, n *tree.Node) fixKind {
	if preservesOrder(n) {
		return fixNone
	}
	switch p := n.Payload.(type) {
	case *tree.Fold, *tree.Group, *tree.GroupCount:
		return fixCollect
	case *tree.Store:
		if p.OrderLabel != "" {
			return fixNone
		}
		return fixCollect
	case *tree.Order:
		if isReorder(ctx, n) {
			return fixNone
		}
		return fixStop
	}
	switch n.Category() {
	case tree.CategoryAggregate, tree.CategoryGraph, tree.CategoryStore:
		return fixStop
	}
	return fixReorder
}

// preservesOrder reports whether rows leave n in the order they entered.
// Expansions local to the row keep order; steps splicing sub-traversals
// join rows back and may reorder them.
func preservesOrder(n *tree.Node) bool {
	if len(tree.Subs(n)) > 0 {
		return false
	}
	switch p := n.Payload.(type) {
	case *tree.VertexHop:
		return p.Dir != tree.Both
	case *tree.EdgeHop:
		return p.Dir != tree.Both
	case *tree.Properties, *tree.Values, *tree.PropertyMap, *tree.Unfold:
		return true
	case *tree.Dedup, *tree.Sample:
		return false
	}
	switch n.Category() {
	case tree.CategoryMap, tree.CategoryFilter:
		return true
	}
	return false
}

// fixOrder scans the steps after order and repairs every offender up to
// the first step that ends the rows' life.
func fixOrder(ctx *tree.Context, tr *tree.Traversal, order *tree.Node) bool {
	type action struct {
		n    *tree.Node
		kind fixKind
	}
	var actions []action
scan:
	for x := order.Next(); x != nil; x = x.Next() {
		switch k := offence(ctx, x); k {
		case fixNone:
		case fixStop:
			break scan
		case fixCollect:
			actions = append(actions, action{x, k})
			if _, store := x.Payload.(*tree.Store); !store {
				break scan
			}
		case fixReorder:
			actions = append(actions, action{x, k})
		}
	}
	if len(actions) == 0 {
		return false
	}

	name, _ := ctx.Labels.FreshSystemLabel("ord")
	ord := ctx.NewNode(&tree.Ordinal{Label: name})
	if _, err := ctx.Labels.BindSystem(name, ord); err != nil {
		return false
	}
	ord.Labels = []string{name}
	ord.After.Add(plan.LabelStart, name)
	tr.InsertAfter(order, ord)
	ord.RefreshUsedLabels()

	for _, a := range actions {
		switch a.kind {
		case fixCollect:
			setOrderLabel(a.n, name)
		case fixReorder:
			re := ctx.NewNode(&tree.Order{Comparators: []tree.Comparator{tree.Ascending(tree.Binding(name))}})
			tr.InsertAfter(a.n, re)
			re.RefreshUsedLabels()
		}
		a.n.RefreshUsedLabels()
	}
	return true
}

func setOrderLabel(n *tree.Node, name string) {
	switch p := n.Payload.(type) {
	case *tree.Fold:
		p.OrderLabel = name
	case *tree.Group:
		p.OrderLabel = name
	case *tree.GroupCount:
		p.OrderLabel = name
	case *tree.Store:
		p.OrderLabel = name
	}
}

// isReorder reports whether n is a re-order inserted on an ordinal, that
// is a single comparator on a label in the system id range.
func isReorder(ctx *tree.Context, n *tree.Node) bool {
	p, ok := n.Payload.(*tree.Order)
	if !ok || len(p.Comparators) != 1 {
		return false
	}
	by := p.Comparators[0].By
	if by.Kind != tree.ByBinding {
		return false
	}
	id, err := ctx.Labels.ID(by.Name)
	return err == nil && label.IsSystemID(id)
}

// orderRange fuses order() immediately followed by limit(k) on a source
// into a partition-local pre-limit at the source plus a windowed global
// order. Both ends break ties by partition id so the merge stays exact.
type orderRange struct{}

func (orderRange) Name() string { return PassOrderRange }

func (orderRange) Apply(_ *tree.Context, t *tree.Traversal) bool {
	return eachTraversal(t, func(tr *tree.Traversal) bool {
		changed := false
		for _, n := range tr.Nodes() {
			if fuseOrderRange(tr, n) {
				changed = true
			}
		}
		return changed
	})
}

func fuseOrderRange(tr *tree.Traversal, n *tree.Node) bool {
	order, ok := n.Payload.(*tree.Order)
	if !ok || n.Window != nil || !unconditioned(n) {
		return false
	}
	rn := n.Next()
	if rn == nil {
		return false
	}
	rng, ok := rn.Payload.(*tree.Range)
	if !ok || rng.Low != 0 || rng.High < 0 || !unconditioned(rn) {
		return false
	}
	src := n.Input
	if src == nil || src.PreLimit != nil || !isScan(src) {
		return false
	}
	for _, c := range order.Comparators {
		switch c.By.Kind {
		case tree.BySub, tree.ByBinding:
			return false
		}
		if c.Order == tree.Shuffle {
			return false
		}
	}

	comps := make([]tree.Comparator, len(order.Comparators))
	copy(comps, order.Comparators)
	src.PreLimit = &tree.PreLimit{Limit: rng.High, Comparators: comps}
	src.PartitionTieBreak = true
	n.PartitionTieBreak = true
	n.Window = &tree.Window{Low: 0, High: rng.High}
	tr.Remove(rn)
	return true
}

func isScan(n *tree.Node) bool {
	switch n.Payload.(type) {
	case *tree.SourceVertex, *tree.SourceEdge:
		return true
	}
	return false
}
