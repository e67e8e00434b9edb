package tree

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
)

func irList(values []any) (ir.List, error) {
	v, err := ir.FromGo(values)
	if err != nil {
		return nil, ir.NewIllegalArgumentError("inject: %v", err)
	}
	return v.(ir.List), nil
}

func (t *Traversal) fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

// add appends a step built from p. Sub-traversals embedded in p get n as
// their host and their build errors are inherited.
func (t *Traversal) add(p Payload) *Traversal {
	n := t.ctx.NewNode(p)
	n.Input = t.Sink
	if t.Sink != nil {
		t.Sink.next = n
	}
	t.Sink = n

	for _, ref := range Subs(n) {
		if ref.T.err != nil {
			t.fail(ref.T.err)
		}
		if src := ref.T.Source(); src != nil {
			if d, ok := src.Payload.(*SourceDelegate); ok {
				d.Host = n
			}
		}
	}
	n.RefreshUsedLabels()

	switch v := p.(type) {
	case *Store:
		t.ctx.stores[v.Name] = n
	case *Match:
		t.bindMatch(n, v)
	}
	return t
}

func (t *Traversal) bindMatch(n *Node, m *Match) {
	seen := map[string]bool{}
	names := []string{m.Start}
	for _, h := range m.Hops {
		names = append(names, h.From, h.To)
	}
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		t.bind(n, name)
	}
}

func (t *Traversal) bind(n *Node, name string) {
	if _, err := t.ctx.Labels.Bind(name, n); err != nil {
		t.fail(ir.AttachNode(err, n.ID, string(n.Kind())))
		return
	}
	n.Labels = append(n.Labels, name)
	if _, isMatch := n.Payload.(*Match); !isMatch {
		n.After.Add(plan.LabelStart, name)
	}
}

// As binds labels to the current step. Rows leaving the step carry the
// labels until rewriting moves the requirement.
func (t *Traversal) As(labels ...string) *Traversal {
	for _, l := range labels {
		t.bind(t.Sink, l)
	}
	return t
}

// PathAdd requests path recording from the current step on.
func (t *Traversal) PathAdd() *Traversal {
	t.Sink.After.Add(plan.PathAdd)
	return t
}

// Adjacency.

func (t *Traversal) Out(labels ...string) *Traversal {
	return t.add(&VertexHop{Dir: Out, EdgeLabels: labels})
}

func (t *Traversal) In(labels ...string) *Traversal {
	return t.add(&VertexHop{Dir: In, EdgeLabels: labels})
}

func (t *Traversal) Both(labels ...string) *Traversal {
	return t.add(&VertexHop{Dir: Both, EdgeLabels: labels})
}

func (t *Traversal) OutE(labels ...string) *Traversal {
	return t.add(&EdgeHop{Dir: Out, EdgeLabels: labels, FetchProps: true})
}

func (t *Traversal) InE(labels ...string) *Traversal {
	return t.add(&EdgeHop{Dir: In, EdgeLabels: labels, FetchProps: true})
}

func (t *Traversal) BothE(labels ...string) *Traversal {
	return t.add(&EdgeHop{Dir: Both, EdgeLabels: labels, FetchProps: true})
}

func (t *Traversal) OutV() *Traversal   { return t.add(&EdgeVertex{Which: Out}) }
func (t *Traversal) InV() *Traversal    { return t.add(&EdgeVertex{Which: In}) }
func (t *Traversal) OtherV() *Traversal { return t.add(&EdgeVertex{Which: Both}) }
func (t *Traversal) BothV() *Traversal  { return t.add(&EdgeBothV{}) }

// Flat maps and maps.

func (t *Traversal) Unfold() *Traversal { return t.add(&Unfold{}) }

func (t *Traversal) Properties(names ...string) *Traversal {
	return t.add(&Properties{Names: names})
}

func (t *Traversal) Values(names ...string) *Traversal {
	return t.add(&Values{Names: names})
}

func (t *Traversal) Local(sub *Traversal) *Traversal { return t.add(&Local{Sub: sub}) }

// Match binds a pattern anchored at start. The cost selector chooses the
// expansion order.
func (t *Traversal) Match(start string, hops ...MatchHop) *Traversal {
	return t.add(&Match{Start: start, Hops: hops, Pin: -1})
}

// MatchPinned is Match with a forced candidate index.
func (t *Traversal) MatchPinned(pin int, start string, hops ...MatchHop) *Traversal {
	return t.add(&Match{Start: start, Hops: hops, Pin: pin})
}

func (t *Traversal) ID() *Traversal    { return t.add(&ID{}) }
func (t *Traversal) Label() *Traversal { return t.add(&Label{}) }

// Path emits the rows' traversal paths; recording starts at the source.
func (t *Traversal) Path() *Traversal {
	t.recordPath()
	return t.add(&Path{})
}

func (t *Traversal) recordPath() {
	if src := t.Source(); src != nil {
		src.After.Add(plan.PathAdd)
	}
}

func (t *Traversal) Constant(v any) *Traversal {
	val, err := ir.FromGo(v)
	if err != nil {
		t.fail(ir.NewIllegalArgumentError("constant: %v", err))
		val = ir.Null{}
	}
	return t.add(&Constant{Value: val})
}

func (t *Traversal) Select(labels ...string) *Traversal {
	return t.add(&Select{Labels: labels, Pop: PopLast})
}

func (t *Traversal) SelectPop(pop Pop, labels ...string) *Traversal {
	return t.add(&Select{Labels: labels, Pop: pop})
}

func (t *Traversal) Project(keys ...string) *Traversal {
	return t.add(&Project{Keys: keys})
}

func (t *Traversal) PropertyMap(names ...string) *Traversal {
	return t.add(&PropertyMap{Names: names})
}

func (t *Traversal) Keys() *Traversal         { return t.add(&Column{Which: ColumnKeys}) }
func (t *Traversal) ColumnValues() *Traversal { return t.add(&Column{Which: ColumnValues}) }

// By appends modulators to the current select, project or dedup step.
func (t *Traversal) By(bys ...By) *Traversal {
	n := t.Sink
	switch p := n.Payload.(type) {
	case *Select:
		p.By = append(p.By, bys...)
	case *Project:
		p.By = append(p.By, bys...)
	case *Dedup:
		if len(bys) > 0 {
			b := bys[len(bys)-1]
			p.By = &b
		}
	default:
		t.fail(ir.NewIllegalArgumentError("by() cannot modulate %s", n.Kind()).WithNode(n.ID, string(n.Kind())))
		return t
	}
	for _, ref := range Subs(n) {
		if ref.T.err != nil {
			t.fail(ref.T.err)
		}
		if d, ok := ref.T.Source().Payload.(*SourceDelegate); ok {
			d.Host = n
		}
	}
	n.RefreshUsedLabels()
	return t
}

// Filters.

func (t *Traversal) Has(property string, pred Predicate) *Traversal {
	return t.add(&Has{Property: property, Pred: &pred})
}

func (t *Traversal) HasKey(property string) *Traversal {
	return t.add(&Has{Property: property})
}

func (t *Traversal) HasLabel(labels ...string) *Traversal {
	return t.add(&HasLabel{Labels: labels})
}

func (t *Traversal) HasID(ids ...int64) *Traversal {
	return t.add(&HasID{IDs: ids})
}

func (t *Traversal) Is(pred Predicate) *Traversal { return t.add(&Is{Pred: pred}) }

// WhereLabel compares labelled values; an empty start compares the
// current row.
func (t *Traversal) WhereLabel(start string, op PredOp, other string) *Traversal {
	return t.add(&WhereLabel{Start: start, Op: op, Other: other})
}

func (t *Traversal) Where(sub *Traversal) *Traversal { return t.add(&WhereSub{Sub: sub}) }
func (t *Traversal) Not(sub *Traversal) *Traversal   { return t.add(&Not{Sub: sub}) }

func (t *Traversal) Dedup(labels ...string) *Traversal {
	return t.add(&Dedup{Labels: labels})
}

func (t *Traversal) Range(low, high int64) *Traversal {
	return t.add(&Range{Low: low, High: high})
}

func (t *Traversal) Limit(n int64) *Traversal { return t.Range(0, n) }

func (t *Traversal) Skip(n int64) *Traversal { return t.Range(n, -1) }

func (t *Traversal) Sample(n int) *Traversal { return t.add(&Sample{N: n}) }

func (t *Traversal) Coin(p float64) *Traversal { return t.add(&Coin{P: p}) }

func (t *Traversal) SimplePath() *Traversal {
	t.recordPath()
	return t.add(&SimplePath{})
}

// Order sorts rows; with no comparators it sorts by the row ascending.
func (t *Traversal) Order(comparators ...Comparator) *Traversal {
	if len(comparators) == 0 {
		comparators = []Comparator{{By: Identity(), Order: Asc}}
	}
	return t.add(&Order{Comparators: comparators})
}

// Ascending is an ascending comparator on b.
func Ascending(b By) Comparator { return Comparator{By: b, Order: Asc} }

// Descending is a descending comparator on b.
func Descending(b By) Comparator { return Comparator{By: b, Order: Desc} }

// Aggregates.

func (t *Traversal) Count() *Traversal { return t.add(&Count{}) }
func (t *Traversal) Sum() *Traversal   { return t.add(&Sum{}) }
func (t *Traversal) Max() *Traversal   { return t.add(&Max{}) }
func (t *Traversal) Min() *Traversal   { return t.add(&Min{}) }
func (t *Traversal) Mean() *Traversal  { return t.add(&Mean{}) }
func (t *Traversal) Fold() *Traversal  { return t.add(&Fold{}) }

func (t *Traversal) Group(key By, value Reducer) *Traversal {
	return t.add(&Group{Key: key, Value: value})
}

func (t *Traversal) GroupCount(key By) *Traversal {
	return t.add(&GroupCount{Key: key})
}

// Side effects.

func (t *Traversal) Store(name string) *Traversal { return t.add(&Store{Name: name}) }
func (t *Traversal) Cap(name string) *Traversal   { return t.add(&Cap{Name: name}) }

// Program appends a whole-graph algorithm step.
func (t *Traversal) Program(p GraphProgram) *Traversal {
	cp := p
	return t.add(&cp)
}

// PageRank is Program with the usual defaults.
func (t *Traversal) PageRank(iterations int, damping float64, outputProperty string) *Traversal {
	return t.Program(GraphProgram{
		Algorithm:        PageRank,
		Iterations:       iterations,
		DampingFactor:    damping,
		OutputProperties: []string{outputProperty},
		Dir:              Out,
	})
}

// Branches.

func (t *Traversal) Union(branches ...*Traversal) *Traversal {
	return t.add(&Union{Branches: branches})
}

func (t *Traversal) Choose(cond, then, els *Traversal) *Traversal {
	return t.add(&Choose{Cond: cond, Then: then, Else: els})
}

func (t *Traversal) Optional(sub *Traversal) *Traversal {
	return t.add(&Optional{Sub: sub})
}

// Join pairs rows with rows of right agreeing on keys.
func (t *Traversal) Join(right *Traversal, keys ...string) *Traversal {
	return t.add(&Join{Right: right, Keys: keys})
}
