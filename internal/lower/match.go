package lower

import (
	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// match lowers a pattern step in the expansion order picked by the cost
// selector. Input rows are the anchor binding. A candidate starting
// elsewhere scans vertices and joins back to the input on the anchor.
// The step's own vertex is the final SELECT of every binding.
func (l *Lowerer) match(n *tree.Node, p *tree.Match, in stream, f *frame, typ valuetype.Type) (stream, error) {
	hops := make([]cost.Hop, len(p.Hops))
	for i, h := range p.Hops {
		hops[i] = cost.Hop{From: h.From, To: h.To, EdgeLabel: h.EdgeLabel, Dir: cost.Direction(h.Dir)}
	}
	pattern, err := cost.NewPattern(p.Start, hops...)
	if err != nil {
		return stream{}, err
	}
	sel := l.sel
	if p.Pin >= 0 {
		sel = sel.WithPin(p.Pin)
	}
	choice, err := sel.Select(l.goctx, pattern)
	if err != nil {
		return stream{}, err
	}
	if choice.Aborted {
		l.logger.Warn("match cost estimation aborted",
			"node", n.ID,
			"err", choice.Err)
	}
	l.selections = append(l.selections, MatchSelection{NodeID: n.ID, Selection: choice})

	vertexType := valuetype.Type(valuetype.Vertex{})
	cur := in
	row := "" // binding held by the current row
	pending := ""
	anchored := true

	for _, st := range choice.Candidate.Steps {
		switch st.Kind {
		case cost.StepStart:
			pending, row = st.Binding, st.Binding
			if st.Binding != p.Start {
				anchored = false
				v := l.add(n, plan.OpSourceVertex, ir.Obj(), vertexType)
				cur = stream{v: v, local: true, typ: vertexType}
			}
			continue
		}

		from, err := l.binding(st.From)
		if err != nil {
			return stream{}, err
		}
		to := st.Binding
		if st.Kind == cost.StepClose {
			h := p.Hops[st.Hop]
			to = h.To
			if st.From == h.To {
				to = h.From
			}
		}
		toID, err := l.binding(to)
		if err != nil {
			return stream{}, err
		}
		edgeIDs, err := l.schemaLabels(nonEmpty(st.EdgeLabel))
		if err != nil {
			return stream{}, err
		}
		args := ir.Obj(
			ir.O("direction", ir.String(st.Dir)),
			ir.O("edge_label_ids", edgeIDs),
			ir.O("from_label", ir.Int(from)),
			ir.O("to_label", ir.Int(toID)),
		)

		s := plan.ByKey(from)
		if st.From == row {
			s = elementShuffle(cur)
		}
		if st.Kind == cost.StepClose {
			args["close"] = ir.Bool(true)
			next := l.step(n, plan.OpVertexHop, args, cur, s, f, cur.typ)
			next.local = st.From == row && next.local
			cur = next
		} else {
			cur = l.step(n, plan.OpVertexHop, args, cur, s, f, vertexType)
			cur.local = false
			row = st.Binding
			if err := l.ctx.Labels.RequireAfter(l.b, cur.v, plan.LabelStart, st.Binding); err != nil {
				return stream{}, err
			}
		}
		if pending != "" {
			if err := l.ctx.Labels.RequireBefore(l.b, cur.v, plan.LabelStart, pending); err != nil {
				return stream{}, err
			}
			pending = ""
		}
	}

	if !anchored {
		anchor, err := l.binding(p.Start)
		if err != nil {
			return stream{}, err
		}
		v := l.add(n, plan.OpJoin, ir.Obj(ir.O("key_labels", ir.Ints(anchor))), vertexType)
		l.connect(in, v, plan.ByKey(label.IdentityID), f)
		l.connect(cur, v, plan.ByKey(anchor), f)
		cur = stream{v: v, local: false, typ: vertexType}
	}

	labels, err := l.bindings(pattern.Bindings)
	if err != nil {
		return stream{}, err
	}
	args := ir.Obj(
		ir.O("labels", labels),
		ir.O("pop", ir.String(tree.PopLast)),
		ir.O("candidate", ir.Int(choice.Candidate.Index)),
	)
	return l.step(n, plan.OpSelect, args, cur, plan.ForwardShuffle(), f, typ), nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
