package lower

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
)

// schemaLabels resolves vertex or edge label names to schema ids.
func (l *Lowerer) schemaLabels(names []string) (ir.List, error) {
	out := make(ir.List, 0, len(names))
	for _, name := range names {
		id, err := l.ctx.Schema.LabelID(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Int(id))
	}
	return out, nil
}

func (l *Lowerer) propertyIDs(names []string) (ir.List, error) {
	out := make(ir.List, 0, len(names))
	for _, name := range names {
		id, err := l.ctx.Schema.PropertyID(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Int(id))
	}
	return out, nil
}

// binding resolves a traversal label to its id.
func (l *Lowerer) binding(name string) (plan.LabelID, error) {
	return l.ctx.Labels.ID(name)
}

func (l *Lowerer) bindings(names []string) (ir.List, error) {
	out := make(ir.List, 0, len(names))
	for _, name := range names {
		id, err := l.binding(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Int(id))
	}
	return out, nil
}

// byValue encodes a modulator. Sub modulators refer to the label their
// result was joined under; zero means not yet lowered.
func (l *Lowerer) byValue(b tree.By, subLabel plan.LabelID) (ir.Value, error) {
	kind := b.Kind
	if kind == "" {
		kind = tree.ByIdentity
	}
	obj := ir.Obj(ir.O("kind", ir.String(kind)))
	switch kind {
	case tree.ByProperty:
		id, err := l.ctx.Schema.PropertyID(b.Name)
		if err != nil {
			return nil, err
		}
		obj["property_id"] = ir.Int(id)
	case tree.ByBinding:
		id, err := l.binding(b.Name)
		if err != nil {
			return nil, err
		}
		obj["label"] = ir.Int(id)
	case tree.BySub:
		if subLabel != 0 {
			obj["label"] = ir.Int(subLabel)
		}
	}
	return obj, nil
}

func (l *Lowerer) byList(bys []tree.By, subLabels []plan.LabelID) (ir.List, error) {
	out := make(ir.List, len(bys))
	for i, b := range bys {
		v, err := l.byValue(b, labelAt(subLabels, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l *Lowerer) comparators(cs []tree.Comparator, subLabels []plan.LabelID) (ir.List, error) {
	out := make(ir.List, len(cs))
	for i, c := range cs {
		by, err := l.byValue(c.By, labelAt(subLabels, i))
		if err != nil {
			return nil, err
		}
		order := c.Order
		if order == "" {
			order = tree.Asc
		}
		out[i] = ir.Obj(ir.O("by", by), ir.O("order", ir.String(order)))
	}
	return out, nil
}

func labelAt(labels []plan.LabelID, i int) plan.LabelID {
	if i < len(labels) {
		return labels[i]
	}
	return 0
}

// windowValue encodes [low, high); an unbounded high is null.
func windowValue(low, high int64) ir.Object {
	obj := ir.Obj(ir.O("low", ir.Int(low)), ir.O("high", ir.Null{}))
	if high >= 0 {
		obj["high"] = ir.Int(high)
	}
	return obj
}

// sourceArgs encodes a vertex or edge scan including any pushed-down
// pre-limit.
func (l *Lowerer) sourceArgs(n *tree.Node, ids []int64, labels []string) (ir.Object, error) {
	args := ir.Obj()
	if len(ids) > 0 {
		args["ids"] = ir.Ints(ids...)
	}
	if len(labels) > 0 {
		lids, err := l.schemaLabels(labels)
		if err != nil {
			return nil, err
		}
		args["label_ids"] = lids
	}
	if pl := n.PreLimit; pl != nil {
		comps, err := l.comparators(pl.Comparators, nil)
		if err != nil {
			return nil, err
		}
		args["pre_limit"] = ir.Obj(ir.O("limit", ir.Int(pl.Limit)), ir.O("comparators", comps))
	}
	if n.PartitionTieBreak {
		args["partition_tie_break"] = ir.Bool(true)
	}
	return args, nil
}

// needsElementData reports whether evaluating b reads the row's element.
func needsElementData(b tree.By) bool {
	return b.Kind == tree.ByProperty || b.Kind == tree.ByLabel
}

// fillArgs lists the element data a global step needs fetched before
// rows leave their partition. ok is false when nothing is needed.
func (l *Lowerer) fillArgs(bys ...tree.By) (args ir.Object, ok bool, err error) {
	var props []string
	var needLabel bool
	for _, b := range bys {
		switch b.Kind {
		case tree.ByProperty:
			props = append(props, b.Name)
		case tree.ByLabel:
			needLabel = true
		}
	}
	if len(props) == 0 && !needLabel {
		return nil, false, nil
	}
	ids, err := l.propertyIDs(props)
	if err != nil {
		return nil, false, err
	}
	args = ir.Obj(ir.O("property_ids", ids))
	if needLabel {
		args["label"] = ir.Bool(true)
	}
	return args, true, nil
}
