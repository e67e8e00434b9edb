package tree

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/valuetype"
)

// Typer computes step output types. Results are memoized per Typer, so a
// Typer must be discarded after the tree is mutated.
type Typer struct {
	ctx  *Context
	memo map[*Node]valuetype.Type
}

// NewTyper returns a Typer resolving labels and properties through ctx.
func NewTyper(ctx *Context) *Typer {
	return &Typer{ctx: ctx, memo: make(map[*Node]valuetype.Type)}
}

// Type returns the output type of n. It depends only on the types of n's
// inputs and n's own parameters.
func (ty *Typer) Type(n *Node) (valuetype.Type, error) {
	if t, ok := ty.memo[n]; ok {
		return t, nil
	}
	t, err := ty.compute(n)
	if err != nil {
		return nil, ir.AttachNode(err, n.ID, string(n.Kind()))
	}
	ty.memo[n] = t
	return t, nil
}

// TraversalType is the type of t's sink.
func (ty *Typer) TraversalType(t *Traversal) (valuetype.Type, error) {
	return ty.Type(t.Sink)
}

func (ty *Typer) input(n *Node) (valuetype.Type, error) {
	if n.Input == nil {
		return nil, ir.Errorf(ir.ErrCodeInvalidPlan, "%s has no input", n)
	}
	return ty.Type(n.Input)
}

var (
	longType   = valuetype.Scalar{Kind: valuetype.KindLong}
	stringType = valuetype.Scalar{Kind: valuetype.KindString}
	unknown    = valuetype.Scalar{Kind: valuetype.KindUnknown}
)

func (ty *Typer) compute(n *Node) (valuetype.Type, error) {
	switch p := n.Payload.(type) {
	case *SourceVertex:
		return valuetype.Vertex{}, nil
	case *SourceEdge:
		return valuetype.Edge{}, nil
	case *SourceDelegate:
		if p.Host == nil {
			return unknown, nil
		}
		return ty.input(p.Host)
	case *Inject:
		types := make([]valuetype.Type, len(p.Values))
		for i, v := range p.Values {
			types[i] = TypeOfValue(v)
		}
		return valuetype.Union(types...), nil

	case *VertexHop, *EdgeBothV, *EdgeVertex:
		return valuetype.Vertex{}, nil
	case *EdgeHop:
		return valuetype.Edge{}, nil
	case *Unfold:
		in, err := ty.input(n)
		if err != nil {
			return nil, err
		}
		return valuetype.UnfoldOf(in), nil
	case *Properties:
		kinds, err := ty.propertyKinds(p.Names)
		if err != nil {
			return nil, err
		}
		types := make([]valuetype.Type, len(kinds))
		for i, k := range kinds {
			types[i] = valuetype.Property{Kind: k}
		}
		return valuetype.Union(types...), nil
	case *Values:
		kinds, err := ty.propertyKinds(p.Names)
		if err != nil {
			return nil, err
		}
		types := make([]valuetype.Type, len(kinds))
		for i, k := range kinds {
			types[i] = valuetype.Scalar{Kind: k}
		}
		return valuetype.Union(types...), nil
	case *Local:
		return ty.Type(p.Sub.Sink)
	case *Match:
		return valuetype.Map{Key: stringType, Value: valuetype.Vertex{}}, nil

	case *ID:
		return longType, nil
	case *Label:
		return stringType, nil
	case *Constant:
		return TypeOfValue(p.Value), nil
	case *Select:
		return ty.selectType(p)
	case *Project:
		types := make([]valuetype.Type, 0, len(p.Keys))
		for i := range p.Keys {
			t, err := ty.byType(n, byAt(p.By, i))
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		return valuetype.Map{Key: stringType, Value: valuetype.Union(types...)}, nil
	case *PropertyMap:
		kinds, err := ty.propertyKinds(p.Names)
		if err != nil {
			return nil, err
		}
		types := make([]valuetype.Type, len(kinds))
		for i, k := range kinds {
			types[i] = valuetype.Scalar{Kind: k}
		}
		return valuetype.Map{Key: stringType, Value: valuetype.List{Elem: valuetype.Union(types...)}}, nil
	case *Path:
		return ty.pathType(n)
	case *Column:
		in, err := ty.input(n)
		if err != nil {
			return nil, err
		}
		if p.Which == ColumnKeys {
			return valuetype.KeysOf(in)
		}
		return valuetype.ValuesOf(in)

	case *Ordinal, *Has, *HasLabel, *HasID, *Is, *WhereLabel, *WhereSub, *Not,
		*Dedup, *Range, *Sample, *Coin, *SimplePath, *Order, *Store:
		return ty.input(n)

	case *Count, *CountLimit:
		return longType, nil
	case *Sum:
		return ty.reduce(n, "sum")
	case *Max:
		return ty.reduce(n, "max")
	case *Min:
		return ty.reduce(n, "min")
	case *Mean:
		return ty.reduce(n, "mean")
	case *Fold:
		in, err := ty.input(n)
		if err != nil {
			return nil, err
		}
		return valuetype.FoldOf(in), nil
	case *Group:
		key, err := ty.byType(n, p.Key)
		if err != nil {
			return nil, err
		}
		val, err := ty.reducerType(n, p.Value)
		if err != nil {
			return nil, err
		}
		return valuetype.Map{Key: key, Value: val}, nil
	case *GroupCount:
		key, err := ty.byType(n, p.Key)
		if err != nil {
			return nil, err
		}
		return valuetype.Map{Key: key, Value: longType}, nil
	case *Cap:
		store, ok := ty.ctx.StoreNode(p.Name)
		if !ok {
			return nil, ir.NewIllegalArgumentError("cap(%q) has no matching store", p.Name)
		}
		t, err := ty.Type(store)
		if err != nil {
			return nil, err
		}
		return valuetype.List{Elem: t}, nil

	case *GraphProgram:
		if p.Algorithm == ShortestPath {
			return valuetype.Path{Hops: []valuetype.Type{valuetype.Vertex{}}}, nil
		}
		return valuetype.Vertex{}, nil

	case *Union:
		types := make([]valuetype.Type, len(p.Branches))
		for i, b := range p.Branches {
			t, err := ty.Type(b.Sink)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return valuetype.Union(types...), nil
	case *Choose:
		then, err := ty.Type(p.Then.Sink)
		if err != nil {
			return nil, err
		}
		var els valuetype.Type
		if p.Else != nil {
			els, err = ty.Type(p.Else.Sink)
		} else {
			els, err = ty.input(n)
		}
		if err != nil {
			return nil, err
		}
		return valuetype.Union(then, els), nil
	case *Optional:
		sub, err := ty.Type(p.Sub.Sink)
		if err != nil {
			return nil, err
		}
		in, err := ty.input(n)
		if err != nil {
			return nil, err
		}
		return valuetype.Union(sub, in), nil

	case *Join:
		left, err := ty.input(n)
		if err != nil {
			return nil, err
		}
		right, err := ty.Type(p.Right.Sink)
		if err != nil {
			return nil, err
		}
		return valuetype.MapEntry{Key: left, Value: right}, nil
	}
	return nil, ir.Errorf(ir.ErrCodeInvalidPlan, "no type rule for %T", n.Payload)
}

func (ty *Typer) selectType(p *Select) (valuetype.Type, error) {
	types := make([]valuetype.Type, 0, len(p.Labels))
	for i, name := range p.Labels {
		var bound *Node
		var err error
		if p.Pop == PopFirst {
			bound, err = ty.ctx.Labels.ResolveFirst(name)
		} else {
			bound, err = ty.ctx.Labels.Resolve(name)
		}
		if err != nil {
			return nil, err
		}
		t, err := ty.LabelType(bound)
		if err != nil {
			return nil, err
		}
		if b := byAt(p.By, i); b.Kind != ByIdentity {
			t, err = ty.projectBy(t, b)
			if err != nil {
				return nil, err
			}
		}
		if p.Pop == PopAll {
			t = valuetype.List{Elem: t}
		}
		types = append(types, t)
	}
	if len(types) == 1 {
		return types[0], nil
	}
	return valuetype.Map{Key: stringType, Value: valuetype.Union(types...)}, nil
}

// LabelType is the type of the value a step binds under its labels.
// Match steps bind vertices and ordinal steps bind positions; every other
// step binds its output.
func (ty *Typer) LabelType(bound *Node) (valuetype.Type, error) {
	switch bound.Payload.(type) {
	case *Match:
		return valuetype.Vertex{}, nil
	case *Ordinal:
		return longType, nil
	}
	return ty.Type(bound)
}

// byAt returns the modulator applied to the i-th item; modulators are
// reused round-robin and default to identity.
func byAt(bys []By, i int) By {
	if len(bys) == 0 {
		return Identity()
	}
	return bys[i%len(bys)]
}

// byType is the type of modulator b applied to n's input rows.
func (ty *Typer) byType(n *Node, b By) (valuetype.Type, error) {
	in, err := ty.input(n)
	if err != nil {
		return nil, err
	}
	return ty.projectBy(in, b)
}

func (ty *Typer) projectBy(row valuetype.Type, b By) (valuetype.Type, error) {
	switch b.Kind {
	case ByProperty:
		return ty.propertyType(b.Name)
	case ByLabel:
		return stringType, nil
	case ByBinding:
		bound, err := ty.ctx.Labels.Resolve(b.Name)
		if err != nil {
			return nil, err
		}
		return ty.LabelType(bound)
	case BySub:
		return ty.Type(b.Sub.Sink)
	}
	return row, nil
}

func (ty *Typer) reducerType(n *Node, r Reducer) (valuetype.Type, error) {
	var row valuetype.Type
	var err error
	if r.Property != "" {
		row, err = ty.propertyType(r.Property)
	} else {
		row, err = ty.input(n)
	}
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case ReduceCount:
		return longType, nil
	case ReduceFold, "":
		return valuetype.FoldOf(row), nil
	default:
		return valuetype.ReduceOf(string(r.Kind), row)
	}
}

func (ty *Typer) reduce(n *Node, op string) (valuetype.Type, error) {
	in, err := ty.input(n)
	if err != nil {
		return nil, err
	}
	return valuetype.ReduceOf(op, in)
}

// pathType collects the types of every path-recording step from the
// traversal source up to n's input.
func (ty *Typer) pathType(n *Node) (valuetype.Type, error) {
	var hops []valuetype.Type
	for cur := n.Input; cur != nil; cur = cur.Input {
		switch cur.Category() {
		case CategorySource, CategoryMap, CategoryFlatMap:
		default:
			continue
		}
		t, err := ty.Type(cur)
		if err != nil {
			return nil, err
		}
		hops = append([]valuetype.Type{t}, hops...)
	}
	return valuetype.Path{Hops: hops}, nil
}

func (ty *Typer) propertyType(name string) (valuetype.Type, error) {
	if ty.ctx.Schema == nil {
		return unknown, nil
	}
	return schema.PropertyType(ty.ctx.Schema, name)
}

// propertyKinds unions the data types of names. No names means any
// property, typed unknown.
func (ty *Typer) propertyKinds(names []string) ([]valuetype.ScalarKind, error) {
	if len(names) == 0 || ty.ctx.Schema == nil {
		return []valuetype.ScalarKind{valuetype.KindUnknown}, nil
	}
	seen := map[valuetype.ScalarKind]bool{}
	var out []valuetype.ScalarKind
	for _, name := range names {
		kinds, err := ty.ctx.Schema.PropertyDataTypes(name)
		if err != nil {
			return nil, err
		}
		for _, k := range kinds {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out, nil
}

// TypeOfValue infers the type of a literal.
func TypeOfValue(v ir.Value) valuetype.Type {
	switch val := v.(type) {
	case ir.Int:
		return longType
	case ir.Float:
		return valuetype.Scalar{Kind: valuetype.KindDouble}
	case ir.String:
		return stringType
	case ir.Bool:
		return valuetype.Scalar{Kind: valuetype.KindBool}
	case ir.List:
		elems := make([]valuetype.Type, len(val))
		for i, e := range val {
			elems[i] = TypeOfValue(e)
		}
		return valuetype.List{Elem: valuetype.Union(elems...)}
	case ir.Object:
		vals := make([]valuetype.Type, 0, len(val))
		for _, k := range val.SortedKeys() {
			vals = append(vals, TypeOfValue(val[k]))
		}
		return valuetype.Map{Key: stringType, Value: valuetype.Union(vals...)}
	}
	return unknown
}
