package lower

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// node lowers one step fed by in and returns the step's output stream.
func (l *Lowerer) node(n *tree.Node, in stream, f *frame) (stream, error) {
	typ, err := l.typer.Type(n)
	if err != nil {
		return stream{}, err
	}
	out, err := l.lowerPayload(n, in, f, typ)
	if err != nil {
		return stream{}, err
	}
	if _, ok := n.Payload.(*tree.SourceDelegate); ok {
		// Requirements are placed by carryDelegate once the sub is lowered.
		n.Vertex, n.Local = out.v, out.local
		return out, nil
	}
	if w := n.Window; w != nil {
		vx := l.b.Vertex(out.v)
		vx.Op.Args["window"] = windowValue(w.Low, w.High)
		if !f.keyed {
			vx.GlobalStop = true
		}
	}
	if err := l.finish(n, out); err != nil {
		return stream{}, err
	}
	return out, nil
}

func (l *Lowerer) lowerPayload(n *tree.Node, in stream, f *frame, typ valuetype.Type) (stream, error) {
	fwd := plan.ForwardShuffle()

	switch p := n.Payload.(type) {
	case *tree.SourceDelegate:
		return in, nil
	case *tree.SourceVertex:
		args, err := l.sourceArgs(n, p.IDs, p.Labels)
		if err != nil {
			return stream{}, err
		}
		return stream{v: l.add(n, plan.OpSourceVertex, args, typ), local: true, typ: typ}, nil
	case *tree.SourceEdge:
		args, err := l.sourceArgs(n, p.IDs, p.Labels)
		if err != nil {
			return stream{}, err
		}
		return stream{v: l.add(n, plan.OpSourceEdge, args, typ), local: true, typ: typ}, nil
	case *tree.Inject:
		args := ir.Obj(ir.O("values", ir.CloneValue(p.Values)))
		return stream{v: l.add(n, plan.OpInject, args, typ), local: true, typ: typ}, nil

	case *tree.VertexHop:
		args, err := l.hopArgs(p.Dir, p.EdgeLabels)
		if err != nil {
			return stream{}, err
		}
		out := l.step(n, plan.OpVertexHop, args, in, elementShuffle(in), f, typ)
		out.local = false
		return out, nil
	case *tree.EdgeHop:
		args, err := l.hopArgs(p.Dir, p.EdgeLabels)
		if err != nil {
			return stream{}, err
		}
		args["fetch_props"] = ir.Bool(p.FetchProps)
		out := l.step(n, plan.OpEdgeHop, args, in, elementShuffle(in), f, typ)
		out.local = true
		return out, nil
	case *tree.EdgeVertex:
		out := l.step(n, plan.OpEdgeVertex, ir.Obj(ir.O("which", ir.String(p.Which))), in, fwd, f, typ)
		out.local = false
		return out, nil
	case *tree.EdgeBothV:
		out := l.step(n, plan.OpEdgeBothV, nil, in, fwd, f, typ)
		out.local = false
		return out, nil
	case *tree.Unfold:
		out := l.step(n, plan.OpUnfold, nil, in, fwd, f, typ)
		out.local = !carriesElements(typ)
		return out, nil
	case *tree.Properties:
		ids, err := l.propertyIDs(p.Names)
		if err != nil {
			return stream{}, err
		}
		return l.step(n, plan.OpProperties, ir.Obj(ir.O("property_ids", ids)), in, elementShuffle(in), f, typ), nil
	case *tree.Values:
		ids, err := l.propertyIDs(p.Names)
		if err != nil {
			return stream{}, err
		}
		return l.step(n, plan.OpValues, ir.Obj(ir.O("property_ids", ids)), in, elementShuffle(in), f, typ), nil
	case *tree.PropertyMap:
		ids, err := l.propertyIDs(p.Names)
		if err != nil {
			return stream{}, err
		}
		return l.step(n, plan.OpPropertyMap, ir.Obj(ir.O("property_ids", ids)), in, elementShuffle(in), f, typ), nil
	case *tree.Local:
		return l.local(n, p, in, f, typ)
	case *tree.Match:
		return l.match(n, p, in, f, typ)

	case *tree.ID:
		return l.step(n, plan.OpID, nil, in, fwd, f, typ), nil
	case *tree.Label:
		return l.step(n, plan.OpLabel, nil, in, elementShuffle(in), f, typ), nil
	case *tree.Constant:
		return l.step(n, plan.OpConstant, ir.Obj(ir.O("value", ir.CloneValue(p.Value))), in, fwd, f, typ), nil
	case *tree.Path:
		return l.step(n, plan.OpPath, nil, in, fwd, f, typ), nil
	case *tree.Column:
		return l.step(n, plan.OpColumn, ir.Obj(ir.O("which", ir.String(p.Which))), in, fwd, f, typ), nil
	case *tree.Ordinal:
		id, err := l.binding(p.Label)
		if err != nil {
			return stream{}, err
		}
		return l.step(n, plan.OpOrdinal, ir.Obj(ir.O("label", ir.Int(id))), in, fwd, f, typ), nil
	case *tree.Select:
		return l.selectStep(n, p, in, f, typ)
	case *tree.Project:
		return l.project(n, p, in, f, typ)

	case *tree.Has:
		id, err := l.ctx.Schema.PropertyID(p.Property)
		if err != nil {
			return stream{}, err
		}
		args := ir.Obj(ir.O("property_id", ir.Int(id)))
		if p.Pred != nil {
			args["predicate"] = p.Pred.ToValue()
		} else {
			args["exists"] = ir.Bool(true)
		}
		return l.step(n, plan.OpHas, args, in, elementShuffle(in), f, typ), nil
	case *tree.HasLabel:
		ids, err := l.schemaLabels(p.Labels)
		if err != nil {
			return stream{}, err
		}
		return l.step(n, plan.OpHasLabel, ir.Obj(ir.O("label_ids", ids)), in, elementShuffle(in), f, typ), nil
	case *tree.HasID:
		return l.step(n, plan.OpHasID, ir.Obj(ir.O("ids", ir.Ints(p.IDs...))), in, fwd, f, typ), nil
	case *tree.Is:
		return l.step(n, plan.OpIs, ir.Obj(ir.O("predicate", p.Pred.ToValue())), in, fwd, f, typ), nil
	case *tree.WhereLabel:
		return l.whereLabel(n, p, in, f, typ)
	case *tree.WhereSub:
		return l.splice(n, p.Sub, plan.OpJoinFilter, in, f, typ)
	case *tree.Not:
		return l.splice(n, p.Sub, plan.OpJoinNegate, in, f, typ)
	case *tree.Optional:
		return l.splice(n, p.Sub, plan.OpJoinOptional, in, f, typ)
	case *tree.Dedup:
		return l.dedup(n, p, in, f, typ)
	case *tree.Range:
		out := l.step(n, plan.OpRange, windowValue(p.Low, p.High), in, f.global(), f, typ)
		l.b.Vertex(out.v).GlobalStop = !f.keyed
		return out, nil
	case *tree.Sample:
		return l.step(n, plan.OpSample, ir.Obj(ir.O("n", ir.Int(p.N))), in, f.global(), f, typ), nil
	case *tree.Coin:
		return l.step(n, plan.OpCoin, ir.Obj(ir.O("p", ir.Float(p.P))), in, fwd, f, typ), nil
	case *tree.SimplePath:
		return l.step(n, plan.OpSimplePath, nil, in, fwd, f, typ), nil

	case *tree.Order:
		return l.order(n, p, in, f, typ)

	case *tree.Count:
		return l.step(n, plan.OpCount, nil, in, f.global(), f, typ), nil
	case *tree.CountLimit:
		out := l.step(n, plan.OpCountLimit, ir.Obj(ir.O("limit", ir.Int(p.Limit))), in, f.global(), f, typ)
		l.b.Vertex(out.v).GlobalStop = !f.keyed
		return out, nil
	case *tree.Sum:
		return l.step(n, plan.OpSum, nil, in, f.global(), f, typ), nil
	case *tree.Max:
		return l.step(n, plan.OpMax, nil, in, f.global(), f, typ), nil
	case *tree.Min:
		return l.step(n, plan.OpMin, nil, in, f.global(), f, typ), nil
	case *tree.Mean:
		return l.step(n, plan.OpMean, nil, in, f.global(), f, typ), nil
	case *tree.Fold:
		args, err := l.orderLabelArgs(p.OrderLabel)
		if err != nil {
			return stream{}, err
		}
		return l.step(n, plan.OpFold, args, in, f.global(), f, typ), nil
	case *tree.Group:
		return l.group(n, p.Key, &p.Value, p.OrderLabel, in, f, typ)
	case *tree.GroupCount:
		return l.group(n, p.Key, nil, p.OrderLabel, in, f, typ)

	case *tree.Store:
		args, err := l.orderLabelArgs(p.OrderLabel)
		if err != nil {
			return stream{}, err
		}
		args["name"] = ir.String(p.Name)
		out := l.step(n, plan.OpStore, args, in, fwd, f, typ)
		vx := l.b.Vertex(out.v)
		vx.Store, vx.StoreName = true, p.Name
		return out, nil
	case *tree.Cap:
		store, ok := l.ctx.StoreNode(p.Name)
		if !ok || store.Vertex == 0 {
			return stream{}, ir.NewIllegalArgumentError("cap(%q) has no lowered store", p.Name)
		}
		args := ir.Obj(ir.O("name", ir.String(p.Name)), ir.O("store_vertex", ir.Int(store.Vertex)))
		return l.step(n, plan.OpCap, args, in, f.global(), f, typ), nil

	case *tree.GraphProgram:
		args, err := l.programArgs(p)
		if err != nil {
			return stream{}, err
		}
		out := l.step(n, plan.OpGraphProgram, args, in, plan.Shuffle{Kind: plan.Broadcast}, f, typ)
		out.local = true
		return out, nil

	case *tree.Union:
		return l.union(n, p, in, f, typ)
	case *tree.Choose:
		return l.choose(n, p, in, f, typ)
	case *tree.Join:
		return l.join(n, p, in, f, typ)
	}
	return stream{}, ir.Errorf(ir.ErrCodeInvalidPlan, "no lowering for %T", n.Payload)
}

func (l *Lowerer) hopArgs(dir tree.Direction, edgeLabels []string) (ir.Object, error) {
	ids, err := l.schemaLabels(edgeLabels)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = tree.Out
	}
	return ir.Obj(ir.O("direction", ir.String(dir)), ir.O("edge_label_ids", ids)), nil
}

func (l *Lowerer) orderLabelArgs(name string) (ir.Object, error) {
	args := ir.Obj()
	if name == "" {
		return args, nil
	}
	id, err := l.binding(name)
	if err != nil {
		return nil, err
	}
	args["order_label"] = ir.Int(id)
	return args, nil
}

func (l *Lowerer) programArgs(p *tree.GraphProgram) (ir.Object, error) {
	props, err := l.propertyIDs(p.OutputProperties)
	if err != nil {
		return nil, err
	}
	edges, err := l.schemaLabels(p.EdgeLabels)
	if err != nil {
		return nil, err
	}
	dir := p.Dir
	if dir == "" {
		dir = tree.Out
	}
	args := ir.Obj(
		ir.O("algorithm", ir.String(p.Algorithm)),
		ir.O("iterations", ir.Int(p.Iterations)),
		ir.O("output_property_ids", props),
		ir.O("edge_label_ids", edges),
		ir.O("direction", ir.String(dir)),
		ir.O("source_ids", ir.Ints(p.SourceIDs...)),
	)
	if p.Algorithm == tree.PageRank {
		args["damping_factor"] = ir.Float(p.DampingFactor)
	}
	return args, nil
}

func (l *Lowerer) whereLabel(n *tree.Node, p *tree.WhereLabel, in stream, f *frame, typ valuetype.Type) (stream, error) {
	other, err := l.binding(p.Other)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(ir.O("op", ir.String(p.Op)), ir.O("other", ir.Int(other)))
	if p.Start != "" {
		start, err := l.binding(p.Start)
		if err != nil {
			return stream{}, err
		}
		args["start"] = ir.Int(start)
	}
	return l.step(n, plan.OpWhereLabel, args, in, plan.ForwardShuffle(), f, typ), nil
}

func (l *Lowerer) selectStep(n *tree.Node, p *tree.Select, in stream, f *frame, typ valuetype.Type) (stream, error) {
	in, subs, err := l.bySubs(n, p.By, in, f)
	if err != nil {
		return stream{}, err
	}
	labels, err := l.bindings(p.Labels)
	if err != nil {
		return stream{}, err
	}
	bys, err := l.byList(p.By, subs)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(ir.O("labels", labels), ir.O("pop", ir.String(p.Pop)), ir.O("by", bys))

	// Reading a property of a recalled element moves the row to that
	// element's partition.
	s := plan.ForwardShuffle()
	for _, b := range p.By {
		if needsElementData(b) {
			s = plan.ByKey(plan.LabelID(labels[0].(ir.Int)))
			break
		}
	}
	return l.step(n, plan.OpSelect, args, in, s, f, typ), nil
}

func (l *Lowerer) project(n *tree.Node, p *tree.Project, in stream, f *frame, typ valuetype.Type) (stream, error) {
	in, subs, err := l.bySubs(n, p.By, in, f)
	if err != nil {
		return stream{}, err
	}
	bys, err := l.byList(p.By, subs)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(ir.O("keys", ir.Strings(p.Keys...)), ir.O("by", bys))

	s := plan.ForwardShuffle()
	for _, b := range p.By {
		if needsElementData(b) {
			s = elementShuffle(in)
			break
		}
	}
	return l.step(n, plan.OpProject, args, in, s, f, typ), nil
}

// propFill inserts a PROP_FILL vertex when bys read element data and rows
// still carry elements.
func (l *Lowerer) propFill(n *tree.Node, in stream, f *frame, bys ...tree.By) (stream, error) {
	if !carriesElements(in.typ) {
		return in, nil
	}
	args, ok, err := l.fillArgs(bys...)
	if err != nil || !ok {
		return in, err
	}
	return l.step(n, plan.OpPropFill, args, in, elementShuffle(in), f, in.typ), nil
}

func (l *Lowerer) order(n *tree.Node, p *tree.Order, in stream, f *frame, typ valuetype.Type) (stream, error) {
	bys := make([]tree.By, len(p.Comparators))
	for i, c := range p.Comparators {
		bys[i] = c.By
	}
	in, subs, err := l.bySubs(n, bys, in, f)
	if err != nil {
		return stream{}, err
	}
	in, err = l.propFill(n, in, f, bys...)
	if err != nil {
		return stream{}, err
	}
	comps, err := l.comparators(p.Comparators, subs)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(ir.O("comparators", comps))
	if n.PartitionTieBreak {
		args["partition_tie_break"] = ir.Bool(true)
	}
	return l.step(n, plan.OpOrder, args, in, f.global(), f, typ), nil
}

func (l *Lowerer) dedup(n *tree.Node, p *tree.Dedup, in stream, f *frame, typ valuetype.Type) (stream, error) {
	var by tree.By
	if p.By != nil {
		by = *p.By
	}
	in, subs, err := l.bySubs(n, []tree.By{by}, in, f)
	if err != nil {
		return stream{}, err
	}
	in, err = l.propFill(n, in, f, by)
	if err != nil {
		return stream{}, err
	}

	args := ir.Obj()
	var s plan.Shuffle
	switch {
	case len(p.Labels) > 0:
		ids, err := l.bindings(p.Labels)
		if err != nil {
			return stream{}, err
		}
		args["labels"] = ids
		s = plan.ByKey(plan.LabelID(ids[0].(ir.Int)))
	case by.Kind == tree.ByProperty:
		pid, err := l.ctx.Schema.PropertyID(by.Name)
		if err != nil {
			return stream{}, err
		}
		s = plan.ByKeyProperty(label.IdentityID, pid)
	case by.Kind == tree.ByLabel:
		s = plan.ByKey(label.TypeID)
	case by.Kind == tree.BySub:
		s = plan.ByKey(subs[0])
	case by.Kind == tree.ByBinding:
		id, err := l.binding(by.Name)
		if err != nil {
			return stream{}, err
		}
		s = plan.ByKey(id)
	default:
		s = plan.ByKey(label.IdentityID)
	}
	if p.By != nil {
		v, err := l.byValue(by, labelAt(subs, 0))
		if err != nil {
			return stream{}, err
		}
		args["by"] = v
	}
	if f.keyed {
		s = plan.ByKey(f.key)
	}
	return l.step(n, plan.OpDedup, args, in, s, f, typ), nil
}

// group lowers group (value non-nil) and groupCount: a KEY_ENTRY vertex
// computes each row's key next to its element, then rows shuffle by the
// map key into the aggregate.
func (l *Lowerer) group(n *tree.Node, key tree.By, value *tree.Reducer, orderLabel string, in stream, f *frame, typ valuetype.Type) (stream, error) {
	in, subs, err := l.bySubs(n, []tree.By{key}, in, f)
	if err != nil {
		return stream{}, err
	}
	keyVal, err := l.byValue(key, labelAt(subs, 0))
	if err != nil {
		return stream{}, err
	}

	entryArgs := ir.Obj(ir.O("key", keyVal))
	needElement := needsElementData(key)
	if value != nil && value.Property != "" {
		pid, err := l.ctx.Schema.PropertyID(value.Property)
		if err != nil {
			return stream{}, err
		}
		entryArgs["value_property_id"] = ir.Int(pid)
		needElement = true
	}
	entryShuffle := plan.ForwardShuffle()
	if needElement {
		entryShuffle = elementShuffle(in)
	}
	entryType := valuetype.Type(valuetype.MapEntry{Key: valuetype.Scalar{Kind: valuetype.KindUnknown}, Value: in.typ})
	if m, ok := typ.(valuetype.Map); ok {
		entryType = valuetype.MapEntry{Key: m.Key, Value: in.typ}
	}
	entry := l.step(n, plan.OpKeyEntry, entryArgs, in, entryShuffle, f, entryType)

	args, err := l.orderLabelArgs(orderLabel)
	if err != nil {
		return stream{}, err
	}
	kind := plan.OpGroupCount
	if value != nil {
		kind = plan.OpGroup
		reducer := value.Kind
		if reducer == "" {
			reducer = tree.ReduceFold
		}
		args["reducer"] = ir.String(reducer)
	}
	return l.step(n, kind, args, entry, plan.ByKey(label.MapKeyID), f, typ), nil
}
