package lower

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// enter tags each row of in with a fresh system join key.
func (l *Lowerer) enter(n *tree.Node, in stream, f *frame) (stream, plan.LabelID, error) {
	name, key := l.ctx.Labels.FreshSystemLabel("key")
	v := l.add(n, plan.OpEnterKey, ir.Obj(ir.O("key_label", ir.Int(key))), in.typ)
	l.connect(in, v, plan.ForwardShuffle(), f)
	if err := l.ctx.Labels.RequireAfter(l.b, v, plan.LabelStart, name); err != nil {
		return stream{}, 0, err
	}
	return stream{v: v, local: in.local, typ: in.typ}, key, nil
}

// joinShuffle is the movement on both sides of a join closing a keyed
// fragment.
func joinShuffle(sub *frame) plan.Shuffle {
	if sub.moved {
		return plan.ByKey(sub.key)
	}
	return plan.ForwardShuffle()
}

// joinKeyed adds a binary vertex with left on port 0 and right on port 1.
func (l *Lowerer) joinKeyed(n *tree.Node, kind plan.OpKind, args ir.Object, left, right stream, s plan.Shuffle, f *frame, typ valuetype.Type) stream {
	v := l.add(n, kind, args, typ)
	l.connect(left, v, s, f)
	l.connect(right, v, s, f)
	local := localAfter(left, s, typ)
	if s.Kind == plan.Forward && kind == plan.OpJoinOptional {
		local = left.local && right.local
	}
	return stream{v: v, local: local, typ: typ}
}

// splice evaluates sub once per row of in and joins its result back with
// a binary vertex of the given kind.
func (l *Lowerer) splice(n *tree.Node, sub *tree.Traversal, kind plan.OpKind, in stream, f *frame, typ valuetype.Type) (stream, error) {
	entered, key, err := l.enter(n, in, f)
	if err != nil {
		return stream{}, err
	}
	sf := f.sub(key)
	res, err := l.chain(sub, entered, sf)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(ir.O("key_label", ir.Int(key)))
	return l.joinKeyed(n, kind, args, entered, res, joinShuffle(sf), f, typ), nil
}

// bySubs splices every sub-traversal modulator with JOIN_LABEL_VALUE,
// binding each result to a fresh system label. The returned labels are
// aligned with bys; zero marks a modulator without a sub.
func (l *Lowerer) bySubs(n *tree.Node, bys []tree.By, in stream, f *frame) (stream, []plan.LabelID, error) {
	labels := make([]plan.LabelID, len(bys))
	cur := in
	for i, b := range bys {
		if b.Kind != tree.BySub || b.Sub == nil {
			continue
		}
		entered, key, err := l.enter(n, cur, f)
		if err != nil {
			return stream{}, nil, err
		}
		sf := f.sub(key)
		res, err := l.chain(b.Sub, entered, sf)
		if err != nil {
			return stream{}, nil, err
		}
		name, valueLabel := l.ctx.Labels.FreshSystemLabel("by")
		args := ir.Obj(ir.O("key_label", ir.Int(key)), ir.O("label", ir.Int(valueLabel)))
		cur = l.joinKeyed(n, plan.OpJoinLabelValue, args, entered, res, joinShuffle(sf), f, in.typ)
		if err := l.ctx.Labels.RequireAfter(l.b, cur.v, plan.LabelStart, name); err != nil {
			return stream{}, nil, err
		}
		labels[i] = valueLabel
	}
	return cur, labels, nil
}

// local lowers ENTER_KEY, the keyed sub, then LEAVE_KEY.
func (l *Lowerer) local(n *tree.Node, p *tree.Local, in stream, f *frame, typ valuetype.Type) (stream, error) {
	entered, key, err := l.enter(n, in, f)
	if err != nil {
		return stream{}, err
	}
	sf := f.sub(key)
	res, err := l.chain(p.Sub, entered, sf)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(ir.O("key_label", ir.Int(key)))
	return l.step(n, plan.OpLeaveKey, args, res, joinShuffle(sf), f, typ), nil
}

// union lowers each branch from the shared input and folds the results
// left to right with binary UNION vertices.
func (l *Lowerer) union(n *tree.Node, p *tree.Union, in stream, f *frame, typ valuetype.Type) (stream, error) {
	outs := make([]stream, 0, len(p.Branches))
	for _, br := range p.Branches {
		res, err := l.chain(br, in, f)
		if err != nil {
			return stream{}, err
		}
		outs = append(outs, res)
	}
	return l.unionAll(n, outs, f, typ), nil
}

func (l *Lowerer) unionAll(n *tree.Node, outs []stream, f *frame, typ valuetype.Type) stream {
	acc := outs[0]
	for _, o := range outs[1:] {
		v := l.add(n, plan.OpUnion, nil, typ)
		l.connect(acc, v, plan.ForwardShuffle(), f)
		l.connect(o, v, plan.ForwardShuffle(), f)
		acc = stream{v: v, local: acc.local && o.local, typ: typ}
	}
	return acc
}

// choose evaluates the condition once per row, splits rows into a
// matching stream and a negated stream, roots the branches on them and
// unions the results.
func (l *Lowerer) choose(n *tree.Node, p *tree.Choose, in stream, f *frame, typ valuetype.Type) (stream, error) {
	entered, key, err := l.enter(n, in, f)
	if err != nil {
		return stream{}, err
	}
	sf := f.sub(key)
	cond, err := l.chain(p.Cond, entered, sf)
	if err != nil {
		return stream{}, err
	}
	s := joinShuffle(sf)
	args := ir.Obj(ir.O("key_label", ir.Int(key)))
	matched := l.joinKeyed(n, plan.OpJoinFilter, args, entered, cond, s, f, in.typ)
	rest := l.joinKeyed(n, plan.OpJoinNegate, args.Clone(), entered, cond, s, f, in.typ)

	then, err := l.chain(p.Then, matched, f)
	if err != nil {
		return stream{}, err
	}
	els := rest
	if p.Else != nil {
		els, err = l.chain(p.Else, rest, f)
		if err != nil {
			return stream{}, err
		}
	}
	return l.unionAll(n, []stream{then, els}, f, typ), nil
}

// join pairs the input rows with the rows of an independent traversal.
// Both sides shuffle by the first key; without keys the right side is
// broadcast.
func (l *Lowerer) join(n *tree.Node, p *tree.Join, in stream, f *frame, typ valuetype.Type) (stream, error) {
	right, err := l.chain(p.Right, stream{}, &frame{})
	if err != nil {
		return stream{}, err
	}
	keys, err := l.bindings(p.Keys)
	if err != nil {
		return stream{}, err
	}
	left, rs := plan.ForwardShuffle(), plan.Shuffle{Kind: plan.Broadcast}
	if len(keys) > 0 {
		left = plan.ByKey(plan.LabelID(keys[0].(ir.Int)))
		rs = left
	}
	v := l.add(n, plan.OpJoin, ir.Obj(ir.O("key_labels", keys)), typ)
	l.connect(in, v, left, f)
	l.connect(right, v, rs, f)
	return stream{v: v, local: true, typ: typ}, nil
}
