package query

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/tree"
)

// Build turns doc into a traversal owned by ctx. The first step must be a
// source step (v, e or inject).
func Build(ctx *tree.Context, doc *Document) (*tree.Traversal, error) {
	b := &builder{ctx: ctx}
	t, err := b.root(doc.Steps)
	if err != nil {
		if doc.Name != "" {
			return nil, fmt.Errorf("query %q: %w", doc.Name, err)
		}
		return nil, err
	}
	return t, nil
}

type builder struct {
	ctx *tree.Context
}

func (b *builder) root(steps Steps) (*tree.Traversal, error) {
	if len(steps) == 0 {
		return nil, ir.NewIllegalArgumentError("query has no steps")
	}
	t, err := b.source(steps[0])
	if err != nil {
		return nil, stepError(steps[0], err)
	}
	return b.chain(t, steps[1:])
}

// sub builds a sub-traversal starting from the enclosing row.
func (b *builder) sub(steps Steps) (*tree.Traversal, error) {
	if len(steps) > 0 && isSource(steps[0].Op) {
		return nil, stepError(steps[0], ir.NewIllegalArgumentError("sub-traversal cannot start with %s", steps[0].Op))
	}
	return b.chain(b.ctx.Sub(), steps)
}

func (b *builder) chain(t *tree.Traversal, steps Steps) (*tree.Traversal, error) {
	for _, s := range steps {
		if isSource(s.Op) {
			return nil, stepError(s, ir.NewIllegalArgumentError("%s is only valid as the first step", s.Op))
		}
		if err := b.step(t, s); err != nil {
			return nil, stepError(s, err)
		}
	}
	if err := t.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func stepError(s Step, err error) error {
	return fmt.Errorf("line %d: %s: %w", s.Line, s.Op, err)
}

func isSource(op string) bool {
	switch op {
	case "v", "e", "inject":
		return true
	}
	return false
}

type sourceArg struct {
	IDs    []int64  `yaml:"ids"`
	Labels []string `yaml:"labels"`
}

func (b *builder) source(s Step) (*tree.Traversal, error) {
	switch s.Op {
	case "v", "e":
		var arg sourceArg
		if s.Arg != nil {
			if s.Arg.Kind == yaml.MappingNode {
				if err := s.Arg.Decode(&arg); err != nil {
					return nil, badArg(err)
				}
			} else {
				ids, err := int64s(s.Arg)
				if err != nil {
					return nil, err
				}
				arg.IDs = ids
			}
		}
		if s.Op == "e" {
			t := b.ctx.E(arg.IDs...)
			if len(arg.Labels) > 0 {
				t.Sink.Payload.(*tree.SourceEdge).Labels = arg.Labels
			}
			return t, nil
		}
		t := b.ctx.V(arg.IDs...)
		t.Sink.Payload.(*tree.SourceVertex).Labels = arg.Labels
		return t, nil
	case "inject":
		var values []any
		if s.Arg != nil {
			if err := s.Arg.Decode(&values); err != nil {
				return nil, badArg(err)
			}
		}
		return b.ctx.Inject(values...), nil
	default:
		return nil, ir.NewIllegalArgumentError("query must start with a source step, got %s", s.Op)
	}
}

// step appends one non-source step to t.
func (b *builder) step(t *tree.Traversal, s Step) error {
	if fn, ok := bareSteps[s.Op]; ok {
		if s.Arg != nil {
			return ir.NewIllegalArgumentError("takes no argument")
		}
		fn(t)
		return nil
	}

	switch s.Op {
	case "out", "in", "both", "outE", "inE", "bothE":
		labels, err := stringList(s.Arg)
		if err != nil {
			return err
		}
		hops[s.Op](t, labels...)
	case "properties", "values", "propertyMap":
		names, err := stringList(s.Arg)
		if err != nil {
			return err
		}
		switch s.Op {
		case "properties":
			t.Properties(names...)
		case "values":
			t.Values(names...)
		default:
			t.PropertyMap(names...)
		}
	case "as":
		labels, err := stringList(s.Arg)
		if err != nil {
			return err
		}
		if len(labels) == 0 {
			return ir.NewIllegalArgumentError("as needs at least one label")
		}
		t.As(labels...)
	case "column":
		var which string
		if err := decodeArg(s.Arg, &which); err != nil {
			return err
		}
		switch tree.ColumnKind(which) {
		case tree.ColumnKeys:
			t.Keys()
		case tree.ColumnValues:
			t.ColumnValues()
		default:
			return ir.NewIllegalArgumentError("column must be keys or values, got %q", which)
		}
	case "constant":
		var v any
		if err := decodeArg(s.Arg, &v); err != nil {
			return err
		}
		t.Constant(v)
	case "local", "where", "not", "optional":
		sub, err := b.subArg(s.Arg)
		if err != nil {
			return err
		}
		switch s.Op {
		case "local":
			t.Local(sub)
		case "where":
			t.Where(sub)
		case "not":
			t.Not(sub)
		default:
			t.Optional(sub)
		}
	case "whereLabel":
		return b.whereLabel(t, s.Arg)
	case "match":
		return b.match(t, s.Arg)
	case "select":
		return b.selectStep(t, s.Arg)
	case "project":
		return b.project(t, s.Arg)
	case "has":
		return b.has(t, s.Arg)
	case "hasKey":
		var name string
		if err := decodeArg(s.Arg, &name); err != nil {
			return err
		}
		t.HasKey(name)
	case "hasLabel":
		labels, err := stringList(s.Arg)
		if err != nil {
			return err
		}
		t.HasLabel(labels...)
	case "hasId":
		ids, err := int64s(s.Arg)
		if err != nil {
			return err
		}
		t.HasID(ids...)
	case "is":
		p, err := predicate(s.Arg)
		if err != nil {
			return err
		}
		t.Is(p)
	case "dedup":
		return b.dedup(t, s.Arg)
	case "range":
		var bounds []int64
		if err := decodeArg(s.Arg, &bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return ir.NewIllegalArgumentError("range takes [low, high], got %d values", len(bounds))
		}
		t.Range(bounds[0], bounds[1])
	case "limit", "skip":
		var n int64
		if err := decodeArg(s.Arg, &n); err != nil {
			return err
		}
		if s.Op == "limit" {
			t.Limit(n)
		} else {
			t.Skip(n)
		}
	case "sample":
		var n int
		if err := decodeArg(s.Arg, &n); err != nil {
			return err
		}
		t.Sample(n)
	case "coin":
		var p float64
		if err := decodeArg(s.Arg, &p); err != nil {
			return err
		}
		t.Coin(p)
	case "order":
		return b.order(t, s.Arg)
	case "group":
		return b.group(t, s.Arg)
	case "groupCount":
		return b.groupCount(t, s.Arg)
	case "store", "cap":
		var name string
		if err := decodeArg(s.Arg, &name); err != nil {
			return err
		}
		if s.Op == "store" {
			t.Store(name)
		} else {
			t.Cap(name)
		}
	case "program":
		return b.program(t, s.Arg)
	case "pageRank":
		return b.pageRank(t, s.Arg)
	case "union":
		return b.union(t, s.Arg)
	case "choose":
		return b.choose(t, s.Arg)
	case "join":
		return b.join(t, s.Arg)
	default:
		return ir.NewIllegalArgumentError("unknown step %q", s.Op)
	}
	return nil
}

var bareSteps = map[string]func(*tree.Traversal) *tree.Traversal{
	"outV":       (*tree.Traversal).OutV,
	"inV":        (*tree.Traversal).InV,
	"otherV":     (*tree.Traversal).OtherV,
	"bothV":      (*tree.Traversal).BothV,
	"unfold":     (*tree.Traversal).Unfold,
	"id":         (*tree.Traversal).ID,
	"label":      (*tree.Traversal).Label,
	"path":       (*tree.Traversal).Path,
	"pathAdd":    (*tree.Traversal).PathAdd,
	"simplePath": (*tree.Traversal).SimplePath,
	"count":      (*tree.Traversal).Count,
	"sum":        (*tree.Traversal).Sum,
	"max":        (*tree.Traversal).Max,
	"min":        (*tree.Traversal).Min,
	"mean":       (*tree.Traversal).Mean,
	"fold":       (*tree.Traversal).Fold,
}

var hops = map[string]func(*tree.Traversal, ...string) *tree.Traversal{
	"out":   (*tree.Traversal).Out,
	"in":    (*tree.Traversal).In,
	"both":  (*tree.Traversal).Both,
	"outE":  (*tree.Traversal).OutE,
	"inE":   (*tree.Traversal).InE,
	"bothE": (*tree.Traversal).BothE,
}

func (b *builder) subArg(arg *yaml.Node) (*tree.Traversal, error) {
	var steps Steps
	if err := decodeArg(arg, &steps); err != nil {
		return nil, err
	}
	return b.sub(steps)
}

type whereLabelArg struct {
	Start string `yaml:"start"`
	Op    string `yaml:"op"`
	Other string `yaml:"other"`
}

func (b *builder) whereLabel(t *tree.Traversal, arg *yaml.Node) error {
	var w whereLabelArg
	if err := decodeArg(arg, &w); err != nil {
		return err
	}
	op := tree.PredOp(w.Op)
	if _, ok := comparisonOps[op]; !ok {
		return ir.NewIllegalArgumentError("whereLabel op must be a comparison, got %q", w.Op)
	}
	if w.Other == "" {
		return ir.NewIllegalArgumentError("whereLabel needs other")
	}
	t.WhereLabel(w.Start, op, w.Other)
	return nil
}

type matchArg struct {
	Start string `yaml:"start"`
	Pin   *int   `yaml:"pin"`
	Hops  []struct {
		From  string `yaml:"from"`
		To    string `yaml:"to"`
		Label string `yaml:"label"`
		Dir   string `yaml:"dir"`
	} `yaml:"hops"`
}

func (b *builder) match(t *tree.Traversal, arg *yaml.Node) error {
	var m matchArg
	if err := decodeArg(arg, &m); err != nil {
		return err
	}
	if m.Start == "" {
		return ir.NewIllegalArgumentError("match needs start")
	}
	hops := make([]tree.MatchHop, len(m.Hops))
	for i, h := range m.Hops {
		dir, err := direction(h.Dir)
		if err != nil {
			return err
		}
		hops[i] = tree.MatchHop{From: h.From, To: h.To, EdgeLabel: h.Label, Dir: dir}
	}
	if m.Pin != nil {
		t.MatchPinned(*m.Pin, m.Start, hops...)
	} else {
		t.Match(m.Start, hops...)
	}
	return nil
}

type selectArg struct {
	Labels []string    `yaml:"labels"`
	Pop    string      `yaml:"pop"`
	By     []yaml.Node `yaml:"by"`
}

func (b *builder) selectStep(t *tree.Traversal, arg *yaml.Node) error {
	var sel selectArg
	if arg != nil && arg.Kind == yaml.MappingNode {
		if err := arg.Decode(&sel); err != nil {
			return badArg(err)
		}
	} else {
		labels, err := stringList(arg)
		if err != nil {
			return err
		}
		sel.Labels = labels
	}
	if len(sel.Labels) == 0 {
		return ir.NewIllegalArgumentError("select needs at least one label")
	}
	pop := tree.PopLast
	if sel.Pop != "" {
		pop = tree.Pop(sel.Pop)
		switch pop {
		case tree.PopLast, tree.PopFirst, tree.PopAll:
		default:
			return ir.NewIllegalArgumentError("pop must be last, first or all, got %q", sel.Pop)
		}
	}
	bys, err := b.bys(sel.By)
	if err != nil {
		return err
	}
	t.SelectPop(pop, sel.Labels...)
	if len(bys) > 0 {
		t.By(bys...)
	}
	return nil
}

type projectArg struct {
	Keys []string    `yaml:"keys"`
	By   []yaml.Node `yaml:"by"`
}

func (b *builder) project(t *tree.Traversal, arg *yaml.Node) error {
	var p projectArg
	if err := decodeArg(arg, &p); err != nil {
		return err
	}
	if len(p.Keys) == 0 {
		return ir.NewIllegalArgumentError("project needs at least one key")
	}
	bys, err := b.bys(p.By)
	if err != nil {
		return err
	}
	t.Project(p.Keys...)
	if len(bys) > 0 {
		t.By(bys...)
	}
	return nil
}

type hasArg struct {
	Property string    `yaml:"property"`
	Pred     yaml.Node `yaml:"pred"`
}

func (b *builder) has(t *tree.Traversal, arg *yaml.Node) error {
	var h hasArg
	if err := decodeArg(arg, &h); err != nil {
		return err
	}
	if h.Property == "" {
		return ir.NewIllegalArgumentError("has needs property")
	}
	if isNull(&h.Pred) {
		t.HasKey(h.Property)
		return nil
	}
	p, err := predicate(&h.Pred)
	if err != nil {
		return err
	}
	t.Has(h.Property, p)
	return nil
}

type dedupArg struct {
	Labels []string  `yaml:"labels"`
	By     yaml.Node `yaml:"by"`
}

func (b *builder) dedup(t *tree.Traversal, arg *yaml.Node) error {
	var d dedupArg
	if arg != nil && arg.Kind == yaml.MappingNode {
		if err := arg.Decode(&d); err != nil {
			return badArg(err)
		}
	} else {
		labels, err := stringList(arg)
		if err != nil {
			return err
		}
		d.Labels = labels
	}
	t.Dedup(d.Labels...)
	if !isNull(&d.By) {
		by, err := b.by(&d.By)
		if err != nil {
			return err
		}
		t.By(by)
	}
	return nil
}

type comparatorArg struct {
	By    yaml.Node `yaml:"by"`
	Order string    `yaml:"order"`
}

func (b *builder) order(t *tree.Traversal, arg *yaml.Node) error {
	var args []comparatorArg
	if arg != nil {
		if err := arg.Decode(&args); err != nil {
			return badArg(err)
		}
	}
	comparators := make([]tree.Comparator, len(args))
	for i, c := range args {
		by := tree.Identity()
		if !isNull(&c.By) {
			var err error
			if by, err = b.by(&c.By); err != nil {
				return err
			}
		}
		order := tree.Asc
		if c.Order != "" {
			order = tree.SortOrder(c.Order)
		}
		switch order {
		case tree.Asc, tree.Desc, tree.Shuffle:
		default:
			return ir.NewIllegalArgumentError("order must be asc, desc or shuffle, got %q", c.Order)
		}
		comparators[i] = tree.Comparator{By: by, Order: order}
	}
	t.Order(comparators...)
	return nil
}

type groupArg struct {
	By    yaml.Node `yaml:"by"`
	Value yaml.Node `yaml:"value"`
}

type reducerArg struct {
	Kind     string `yaml:"kind"`
	Property string `yaml:"property"`
}

func (b *builder) group(t *tree.Traversal, arg *yaml.Node) error {
	var g groupArg
	if arg != nil {
		if err := arg.Decode(&g); err != nil {
			return badArg(err)
		}
	}
	key, err := b.optionalBy(&g.By)
	if err != nil {
		return err
	}
	value := tree.Reducer{Kind: tree.ReduceFold}
	if !isNull(&g.Value) {
		var r reducerArg
		if g.Value.Kind == yaml.ScalarNode {
			r.Kind = g.Value.Value
		} else if err := g.Value.Decode(&r); err != nil {
			return badArg(err)
		}
		value = tree.Reducer{Kind: tree.ReducerKind(r.Kind), Property: r.Property}
		switch value.Kind {
		case tree.ReduceFold, tree.ReduceCount, tree.ReduceSum, tree.ReduceMax, tree.ReduceMin, tree.ReduceMean:
		default:
			return ir.NewIllegalArgumentError("unknown reducer %q", r.Kind)
		}
	}
	t.Group(key, value)
	return nil
}

func (b *builder) groupCount(t *tree.Traversal, arg *yaml.Node) error {
	var g groupArg
	if arg != nil {
		if err := arg.Decode(&g); err != nil {
			return badArg(err)
		}
	}
	key, err := b.optionalBy(&g.By)
	if err != nil {
		return err
	}
	t.GroupCount(key)
	return nil
}

type programArg struct {
	Algorithm        string   `yaml:"algorithm"`
	Iterations       int      `yaml:"iterations"`
	OutputProperties []string `yaml:"outputProperties"`
	EdgeLabels       []string `yaml:"edgeLabels"`
	Dir              string   `yaml:"dir"`
	SourceIDs        []int64  `yaml:"sourceIds"`
	Damping          float64  `yaml:"damping"`
}

func (b *builder) program(t *tree.Traversal, arg *yaml.Node) error {
	var p programArg
	if err := decodeArg(arg, &p); err != nil {
		return err
	}
	alg := tree.Algorithm(p.Algorithm)
	switch alg {
	case tree.PageRank, tree.ConnectedComponents, tree.ShortestPath, tree.LabelPropagation, tree.HITS:
	default:
		return ir.NewIllegalArgumentError("unknown algorithm %q", p.Algorithm)
	}
	dir, err := direction(p.Dir)
	if err != nil {
		return err
	}
	t.Program(tree.GraphProgram{
		Algorithm:        alg,
		Iterations:       p.Iterations,
		OutputProperties: p.OutputProperties,
		EdgeLabels:       p.EdgeLabels,
		Dir:              dir,
		SourceIDs:        p.SourceIDs,
		DampingFactor:    p.Damping,
	})
	return nil
}

type pageRankArg struct {
	Iterations int     `yaml:"iterations"`
	Damping    float64 `yaml:"damping"`
	Output     string  `yaml:"output"`
}

func (b *builder) pageRank(t *tree.Traversal, arg *yaml.Node) error {
	p := pageRankArg{Iterations: 20, Damping: 0.85, Output: "pagerank"}
	if arg != nil {
		if err := arg.Decode(&p); err != nil {
			return badArg(err)
		}
	}
	t.PageRank(p.Iterations, p.Damping, p.Output)
	return nil
}

func (b *builder) union(t *tree.Traversal, arg *yaml.Node) error {
	var branches []Steps
	if err := decodeArg(arg, &branches); err != nil {
		return err
	}
	if len(branches) == 0 {
		return ir.NewIllegalArgumentError("union needs at least one branch")
	}
	subs := make([]*tree.Traversal, len(branches))
	for i, steps := range branches {
		sub, err := b.sub(steps)
		if err != nil {
			return fmt.Errorf("branch %d: %w", i, err)
		}
		subs[i] = sub
	}
	t.Union(subs...)
	return nil
}

type chooseArg struct {
	Cond Steps `yaml:"cond"`
	Then Steps `yaml:"then"`
	Else Steps `yaml:"else"`
}

func (b *builder) choose(t *tree.Traversal, arg *yaml.Node) error {
	var c chooseArg
	if err := decodeArg(arg, &c); err != nil {
		return err
	}
	if len(c.Cond) == 0 {
		return ir.NewIllegalArgumentError("choose needs cond")
	}
	cond, err := b.sub(c.Cond)
	if err != nil {
		return fmt.Errorf("cond: %w", err)
	}
	then, err := b.sub(c.Then)
	if err != nil {
		return fmt.Errorf("then: %w", err)
	}
	var els *tree.Traversal
	if c.Else != nil {
		if els, err = b.sub(c.Else); err != nil {
			return fmt.Errorf("else: %w", err)
		}
	}
	t.Choose(cond, then, els)
	return nil
}

type joinArg struct {
	Right Steps    `yaml:"right"`
	Keys  []string `yaml:"keys"`
}

func (b *builder) join(t *tree.Traversal, arg *yaml.Node) error {
	var j joinArg
	if err := decodeArg(arg, &j); err != nil {
		return err
	}
	right, err := b.root(j.Right)
	if err != nil {
		return fmt.Errorf("right: %w", err)
	}
	t.Join(right, j.Keys...)
	return nil
}
