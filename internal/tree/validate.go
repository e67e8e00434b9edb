package tree

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/gplan/internal/ir"
)

// Validate checks a traversal before it is rewritten or lowered:
//   - every label read is bound earlier in scope (UNKNOWN_LABEL)
//   - every label and property name resolves in the schema
//     (UNKNOWN_SCHEMA_ELEMENT)
//   - group, groupCount, graph programs and match do not appear inside a
//     per-row sub-traversal (UNSUPPORTED_NESTING)
//   - step arguments are in range (ILLEGAL_ARGUMENT)
//   - every step has an output type (UNSUPPORTED_PROJECTION)
//
// The first error found is returned, attributed to the offending step.
func Validate(ctx *Context, t *Traversal) error {
	if err := t.Err(); err != nil {
		return err
	}
	v := &validator{ctx: ctx, typer: NewTyper(ctx)}
	_, err := v.traversal(t, mapset.NewThreadUnsafeSet[string](), "")
	return err
}

type validator struct {
	ctx   *Context
	typer *Typer
}

// traversal validates t's chain with scope holding the labels visible at
// its source. perRow is the kind of the nearest enclosing per-row step.
// It returns the labels visible at t's sink.
func (v *validator) traversal(t *Traversal, scope mapset.Set[string], perRow Kind) (mapset.Set[string], error) {
	scope = scope.Clone()
	for _, n := range t.Nodes() {
		leaked, err := v.node(n, scope, perRow)
		if err != nil {
			return nil, ir.AttachNode(err, n.ID, string(n.Kind()))
		}
		for _, l := range leaked {
			scope.Add(l)
		}
		for _, l := range n.Labels {
			scope.Add(l)
		}
	}
	return scope, nil
}

// node validates one step and returns the labels its branch subs bind,
// which stay visible downstream.
func (v *validator) node(n *Node, scope mapset.Set[string], perRow Kind) ([]string, error) {
	switch n.Payload.(type) {
	case *Group, *GroupCount, *GraphProgram, *Match:
		if perRow != "" {
			return nil, ir.NewUnsupportedNestingError(string(n.Kind()), string(perRow))
		}
	}
	if err := checkArguments(n); err != nil {
		return nil, err
	}
	if err := v.checkSchema(n); err != nil {
		return nil, err
	}

	var leaked []string
	var rightLabels mapset.Set[string]
	for _, ref := range Subs(n) {
		inner, subScope := perRow, scope
		switch ref.Role {
		case RolePerRow:
			inner = n.Kind()
		case RoleJoin:
			subScope = mapset.NewThreadUnsafeSet[string]()
		}
		out, err := v.traversal(ref.T, subScope, inner)
		if err != nil {
			return nil, err
		}
		switch ref.Role {
		case RoleBranch:
			leaked = append(leaked, out.Difference(scope).ToSlice()...)
		case RoleJoin:
			rightLabels = out
		}
	}

	for _, l := range payloadLabels(n.Payload) {
		if !scope.Contains(l) {
			return nil, ir.NewUnknownLabelError(l)
		}
		if rightLabels != nil && !rightLabels.Contains(l) {
			return nil, ir.NewUnknownLabelError(l)
		}
	}

	if _, err := v.typer.Type(n); err != nil {
		return nil, err
	}
	return leaked, nil
}

func checkArguments(n *Node) error {
	if w := n.Window; w != nil {
		if err := checkWindow(w.Low, w.High); err != nil {
			return err
		}
	}
	switch p := n.Payload.(type) {
	case *Range:
		return checkWindow(p.Low, p.High)
	case *CountLimit:
		if p.Limit < 0 {
			return ir.NewIllegalArgumentError("count limit %d is negative", p.Limit)
		}
	case *Sample:
		if p.N <= 0 {
			return ir.NewIllegalArgumentError("sample size %d must be positive", p.N)
		}
	case *Coin:
		if p.P < 0 || p.P > 1 {
			return ir.NewIllegalArgumentError("coin probability %v outside [0,1]", p.P)
		}
	case *GraphProgram:
		if p.Iterations <= 0 {
			return ir.NewIllegalArgumentError("%s iteration bound %d must be positive", p.Algorithm, p.Iterations)
		}
		if p.Algorithm == PageRank && (p.DampingFactor <= 0 || p.DampingFactor >= 1) {
			return ir.NewIllegalArgumentError("damping factor %v outside (0,1)", p.DampingFactor)
		}
		switch p.Algorithm {
		case PageRank, ConnectedComponents, ShortestPath, LabelPropagation, HITS:
		default:
			return ir.NewIllegalArgumentError("unknown graph algorithm %q", p.Algorithm)
		}
	case *Select:
		if len(p.Labels) == 0 {
			return ir.NewIllegalArgumentError("select needs at least one label")
		}
	case *Project:
		if len(p.Keys) == 0 {
			return ir.NewIllegalArgumentError("project needs at least one key")
		}
	case *Has:
		if p.Property == "" {
			return ir.NewIllegalArgumentError("has needs a property name")
		}
	case *Store:
		if p.Name == "" {
			return ir.NewIllegalArgumentError("store needs a name")
		}
	case *Union:
		if len(p.Branches) == 0 {
			return ir.NewIllegalArgumentError("union needs at least one branch")
		}
	case *Choose:
		if p.Cond == nil || p.Then == nil {
			return ir.NewIllegalArgumentError("choose needs a condition and a then branch")
		}
	case *Local:
		return requireSub(p.Sub, "local")
	case *WhereSub:
		return requireSub(p.Sub, "where")
	case *Not:
		return requireSub(p.Sub, "not")
	case *Optional:
		return requireSub(p.Sub, "optional")
	case *Join:
		if p.Right == nil {
			return ir.NewIllegalArgumentError("join needs a right traversal")
		}
	case *Match:
		if len(p.Hops) == 0 {
			return ir.NewIllegalArgumentError("match needs at least one hop")
		}
		for _, h := range p.Hops {
			if h.From == "" || h.To == "" {
				return ir.NewIllegalArgumentError("match hop needs both endpoints")
			}
		}
	}
	return nil
}

func checkWindow(low, high int64) error {
	if low < 0 {
		return ir.NewIllegalArgumentError("range low bound %d is negative", low)
	}
	if high >= 0 && low > high {
		return ir.NewIllegalArgumentError("range low bound %d exceeds high bound %d", low, high)
	}
	return nil
}

func requireSub(t *Traversal, step string) error {
	if t == nil {
		return ir.NewIllegalArgumentError("%s needs a sub-traversal", step)
	}
	return nil
}

func (v *validator) checkSchema(n *Node) error {
	s := v.ctx.Schema
	if s == nil {
		return nil
	}
	labels := func(names []string) error {
		for _, name := range names {
			if _, err := s.LabelID(name); err != nil {
				return err
			}
		}
		return nil
	}
	props := func(names ...string) error {
		for _, name := range names {
			if name == "" {
				continue
			}
			if _, err := s.PropertyID(name); err != nil {
				return err
			}
		}
		return nil
	}
	byProps := func(bys ...By) error {
		for _, b := range bys {
			if b.Kind == ByProperty {
				if err := props(b.Name); err != nil {
					return err
				}
			}
		}
		return nil
	}

	switch p := n.Payload.(type) {
	case *SourceVertex:
		return labels(p.Labels)
	case *SourceEdge:
		return labels(p.Labels)
	case *HasLabel:
		return labels(p.Labels)
	case *VertexHop:
		return labels(p.EdgeLabels)
	case *EdgeHop:
		return labels(p.EdgeLabels)
	case *Has:
		return props(p.Property)
	case *Properties:
		return props(p.Names...)
	case *Values:
		return props(p.Names...)
	case *PropertyMap:
		return props(p.Names...)
	case *Select:
		return byProps(p.By...)
	case *Project:
		return byProps(p.By...)
	case *Dedup:
		if p.By != nil {
			return byProps(*p.By)
		}
	case *Order:
		for _, c := range p.Comparators {
			if err := byProps(c.By); err != nil {
				return err
			}
		}
	case *Group:
		if err := byProps(p.Key); err != nil {
			return err
		}
		return props(p.Value.Property)
	case *GroupCount:
		return byProps(p.Key)
	case *GraphProgram:
		if err := labels(p.EdgeLabels); err != nil {
			return err
		}
		return props(p.OutputProperties...)
	case *Match:
		for _, h := range p.Hops {
			if h.EdgeLabel == "" {
				continue
			}
			if _, err := s.LabelID(h.EdgeLabel); err != nil {
				return err
			}
		}
	}
	return nil
}
