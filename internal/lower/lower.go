package lower

import (
	"context"
	"log/slog"

	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// Config configures a Lowerer.
type Config struct {
	// Selector chooses expansion orders for match steps.
	Selector cost.Selector

	// Logger receives debug output; nil uses slog.Default().
	Logger *slog.Logger
}

// MatchSelection records the candidate chosen for one match step.
type MatchSelection struct {
	NodeID int
	cost.Selection
}

// Lowerer lowers the traversals of one compilation. It is not safe for
// concurrent use.
type Lowerer struct {
	ctx    *tree.Context
	sel    cost.Selector
	logger *slog.Logger

	b     *plan.Builder
	typer *tree.Typer
	goctx context.Context

	selections []MatchSelection
}

// New returns a Lowerer for traversals built in ctx.
func New(ctx *tree.Context, cfg Config) *Lowerer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Lowerer{ctx: ctx, sel: cfg.Selector, logger: logger}
}

// Selections returns the match choices made by the last Lower call.
func (l *Lowerer) Selections() []MatchSelection { return l.selections }

// Lower lowers t, which must have been validated, into a plan. On error no
// plan is returned.
func (l *Lowerer) Lower(ctx context.Context, t *tree.Traversal) (*plan.Plan, error) {
	if l.ctx.Schema == nil {
		return nil, ir.NewIllegalArgumentError("lowering needs a schema")
	}
	if t.IsSub() {
		return nil, ir.Errorf(ir.ErrCodeInvalidPlan, "cannot lower a sub-traversal without its host")
	}
	l.b = plan.NewBuilder()
	l.typer = tree.NewTyper(l.ctx)
	l.goctx = ctx
	l.selections = nil

	if _, err := l.chain(t, stream{}, &frame{}); err != nil {
		return nil, err
	}
	l.propagateEarlyStop()

	p, err := l.b.Build()
	if err != nil {
		return nil, err
	}
	l.logger.Debug("lowered traversal",
		"nodes", t.Steps(),
		"vertices", p.Len(),
		"edges", len(p.Edges()))
	return p, nil
}

// stream is the output of a lowered fragment.
type stream struct {
	v     plan.VertexID
	local bool
	typ   valuetype.Type
}

// frame is the movement scope of a chain. Chains of per-row
// sub-traversals are keyed by their join key.
type frame struct {
	parent *frame
	keyed  bool
	key    plan.LabelID
	moved  bool
}

func (f *frame) sub(key plan.LabelID) *frame {
	return &frame{parent: f, keyed: true, key: key}
}

// markMoved flags f and every enclosing frame: a shuffle inside a nested
// fragment is also a shuffle inside each fragment containing it.
func (f *frame) markMoved() {
	for x := f; x != nil; x = x.parent {
		x.moved = true
	}
}

// global is the movement into a step that must see every row of its scope.
func (f *frame) global() plan.Shuffle {
	if f.keyed {
		return plan.ByKey(f.key)
	}
	return plan.ByConst()
}

// chain lowers t's steps in order starting from in.
func (l *Lowerer) chain(t *tree.Traversal, in stream, f *frame) (stream, error) {
	created := l.b.Len()
	cur := in
	for _, n := range t.Nodes() {
		out, err := l.node(n, cur, f)
		if err != nil {
			return stream{}, ir.AttachNode(err, n.ID, string(n.Kind()))
		}
		cur = out
	}
	if src := t.Source(); t.IsSub() && !(src.Before.Empty() && src.After.Empty()) {
		if err := l.carryDelegate(src, in.v, created); err != nil {
			return stream{}, ir.AttachNode(err, src.ID, string(src.Kind()))
		}
	}
	return cur, nil
}

// carryDelegate moves the requirements of a sub-traversal's delegate onto
// the before list of every vertex of the sub reading the delegate's rows.
// The delegate has no vertex of its own and from may be shared with
// sibling branches. created is the builder length when the sub started.
func (l *Lowerer) carryDelegate(d *tree.Node, from plan.VertexID, created int) error {
	var readers []plan.VertexID
	for id := plan.VertexID(created + 1); int(id) <= l.b.Len(); id++ {
		for _, e := range l.b.Inbound(id) {
			if e.From == from {
				readers = append(readers, id)
				break
			}
		}
	}
	if len(readers) == 0 {
		return ir.NewIllegalArgumentError("sub-traversal has labels or path recording but no steps")
	}
	for _, v := range readers {
		for _, reqs := range []tree.Requirements{d.Before, d.After} {
			for _, kind := range reqs.Kinds() {
				if err := l.ctx.Labels.RequireBefore(l.b, v, kind, reqs.Labels(kind)...); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (l *Lowerer) add(n *tree.Node, kind plan.OpKind, args ir.Object, typ valuetype.Type) plan.VertexID {
	id := l.b.AddVertex(plan.Op{Kind: kind, Args: args}, n.ID)
	l.b.Vertex(id).OutputType = typ
	return id
}

func (l *Lowerer) connect(from stream, to plan.VertexID, s plan.Shuffle, f *frame) {
	l.b.Connect(from.v, to, s)
	if s.Kind != plan.Forward {
		f.markMoved()
	}
}

// step adds a unary vertex fed by in and returns its stream.
func (l *Lowerer) step(n *tree.Node, kind plan.OpKind, args ir.Object, in stream, s plan.Shuffle, f *frame, typ valuetype.Type) stream {
	v := l.add(n, kind, args, typ)
	l.connect(in, v, s, f)
	return stream{v: v, local: localAfter(in, s, typ), typ: typ}
}

// finish records n's vertex and attaches n's requirements to it.
func (l *Lowerer) finish(n *tree.Node, out stream) error {
	n.Vertex, n.Local = out.v, out.local
	for _, kind := range n.Before.Kinds() {
		if err := l.ctx.Labels.RequireBefore(l.b, out.v, kind, n.Before.Labels(kind)...); err != nil {
			return err
		}
	}
	for _, kind := range n.After.Kinds() {
		if err := l.ctx.Labels.RequireAfter(l.b, out.v, kind, n.After.Labels(kind)...); err != nil {
			return err
		}
	}
	return nil
}

// elementShuffle is the movement into a step that reads element data.
func elementShuffle(in stream) plan.Shuffle {
	if in.local || !carriesElements(in.typ) {
		return plan.ForwardShuffle()
	}
	return plan.ByKey(label.IdentityID)
}

// localAfter reports whether rows of type typ are partition local after
// crossing an edge with movement s.
func localAfter(in stream, s plan.Shuffle, typ valuetype.Type) bool {
	if !carriesElements(typ) {
		return true
	}
	switch s.Kind {
	case plan.Forward:
		return in.local
	case plan.ShuffleByKey:
		return s.Key.Label == label.IdentityID && s.Key.PropertyID == 0
	}
	return false
}

func carriesElements(t valuetype.Type) bool {
	if t == nil {
		return false
	}
	for _, m := range valuetype.Members(t) {
		if valuetype.IsElement(m) {
			return true
		}
	}
	return false
}

// propagateEarlyStop marks every vertex upstream of a GlobalStop vertex,
// up to the nearest blocking vertex, with GlobalFilter.
func (l *Lowerer) propagateEarlyStop() {
	for id := plan.VertexID(1); int(id) <= l.b.Len(); id++ {
		if l.b.Vertex(id).GlobalStop {
			l.markUpstream(id, map[plan.VertexID]bool{})
		}
	}
}

func (l *Lowerer) markUpstream(id plan.VertexID, seen map[plan.VertexID]bool) {
	for _, e := range l.b.Inbound(id) {
		up := l.b.Vertex(e.From)
		if seen[up.ID] || up.Op.Kind.IsBlocking() {
			continue
		}
		seen[up.ID] = true
		up.GlobalFilter = true
		l.markUpstream(up.ID, seen)
	}
}
