package query

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/tree"
)

func badArg(err error) error {
	return ir.NewIllegalArgumentError("%v", err)
}

// decodeArg decodes a required argument into v.
func decodeArg(arg *yaml.Node, v any) error {
	if arg == nil {
		return ir.NewIllegalArgumentError("missing argument")
	}
	if err := arg.Decode(v); err != nil {
		return badArg(err)
	}
	return nil
}

// stringList accepts a scalar, a sequence or nothing.
func stringList(arg *yaml.Node) ([]string, error) {
	if arg == nil {
		return nil, nil
	}
	if arg.Kind == yaml.ScalarNode {
		return []string{arg.Value}, nil
	}
	var out []string
	if err := arg.Decode(&out); err != nil {
		return nil, badArg(err)
	}
	return out, nil
}

func int64s(arg *yaml.Node) ([]int64, error) {
	if arg == nil {
		return nil, nil
	}
	if arg.Kind == yaml.ScalarNode {
		var id int64
		if err := arg.Decode(&id); err != nil {
			return nil, badArg(err)
		}
		return []int64{id}, nil
	}
	var out []int64
	if err := arg.Decode(&out); err != nil {
		return nil, badArg(err)
	}
	return out, nil
}

func direction(s string) (tree.Direction, error) {
	switch d := tree.Direction(s); d {
	case "":
		return tree.Out, nil
	case tree.Out, tree.In, tree.Both:
		return d, nil
	}
	return "", ir.NewIllegalArgumentError("direction must be out, in or both, got %q", s)
}

var comparisonOps = map[tree.PredOp]struct{}{
	tree.OpEq: {}, tree.OpNeq: {}, tree.OpLt: {}, tree.OpLte: {}, tree.OpGt: {}, tree.OpGte: {},
}

// predicate decodes a single-key mapping such as {gt: 30},
// {between: [1, 5]} or {and: [{gt: 1}, {lt: 9}]}.
func predicate(n *yaml.Node) (tree.Predicate, error) {
	if n == nil || n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return tree.Predicate{}, ir.NewIllegalArgumentError("predicate must be a single-key mapping")
	}
	op := tree.PredOp(n.Content[0].Value)
	arg := n.Content[1]

	switch op {
	case tree.OpAnd, tree.OpOr:
		if arg.Kind != yaml.SequenceNode || len(arg.Content) == 0 {
			return tree.Predicate{}, ir.NewIllegalArgumentError("%s takes a list of predicates", op)
		}
		children := make([]tree.Predicate, len(arg.Content))
		for i, c := range arg.Content {
			p, err := predicate(c)
			if err != nil {
				return tree.Predicate{}, err
			}
			children[i] = p
		}
		return tree.Predicate{Op: op, Children: children}, nil
	case tree.OpNot:
		p, err := predicate(arg)
		if err != nil {
			return tree.Predicate{}, err
		}
		return tree.NotP(p), nil
	}

	var raw any
	if err := arg.Decode(&raw); err != nil {
		return tree.Predicate{}, badArg(err)
	}
	switch op {
	case tree.OpWithin, tree.OpWithout:
		if _, ok := raw.([]any); !ok {
			raw = []any{raw}
		}
	case tree.OpBetween, tree.OpInside, tree.OpOutside:
		if list, ok := raw.([]any); !ok || len(list) != 2 {
			return tree.Predicate{}, ir.NewIllegalArgumentError("%s takes [low, high]", op)
		}
	case tree.OpStartingWith:
		if _, ok := raw.(string); !ok {
			return tree.Predicate{}, ir.NewIllegalArgumentError("%s takes a string", op)
		}
	default:
		if _, ok := comparisonOps[op]; !ok {
			return tree.Predicate{}, ir.NewIllegalArgumentError("unknown predicate %q", op)
		}
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return tree.Predicate{}, badArg(err)
	}
	return tree.Predicate{Op: op, Value: v}, nil
}

// by decodes a modulator: identity, label, {property: name},
// {binding: name} or {sub: [steps]}.
func (b *builder) by(n *yaml.Node) (tree.By, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch tree.ByKind(n.Value) {
		case tree.ByIdentity:
			return tree.Identity(), nil
		case tree.ByLabel:
			return tree.ElementLabel(), nil
		}
		return tree.By{}, ir.NewIllegalArgumentError("unknown modulator %q", n.Value)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return tree.By{}, ir.NewIllegalArgumentError("modulator must be a single-key mapping")
		}
		kind, arg := tree.ByKind(n.Content[0].Value), n.Content[1]
		switch kind {
		case tree.ByProperty, tree.ByBinding:
			var name string
			if err := decodeArg(arg, &name); err != nil {
				return tree.By{}, err
			}
			if kind == tree.ByProperty {
				return tree.Prop(name), nil
			}
			return tree.Binding(name), nil
		case tree.BySub:
			sub, err := b.subArg(arg)
			if err != nil {
				return tree.By{}, err
			}
			return tree.Sub(sub), nil
		}
		return tree.By{}, ir.NewIllegalArgumentError("unknown modulator %q", kind)
	}
	return tree.By{}, ir.NewIllegalArgumentError("modulator must be a name or a mapping")
}

func (b *builder) bys(nodes []yaml.Node) ([]tree.By, error) {
	out := make([]tree.By, len(nodes))
	for i := range nodes {
		by, err := b.by(&nodes[i])
		if err != nil {
			return nil, fmt.Errorf("by[%d]: %w", i, err)
		}
		out[i] = by
	}
	return out, nil
}

// optionalBy defaults to identity.
func (b *builder) optionalBy(n *yaml.Node) (tree.By, error) {
	if isNull(n) {
		return tree.Identity(), nil
	}
	return b.by(n)
}
