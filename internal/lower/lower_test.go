package lower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/testutil"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

func newCtx() *tree.Context { return tree.NewContext(testutil.ModernSchema()) }

func newLowerer(ctx *tree.Context) *Lowerer {
	return New(ctx, Config{
		Selector: cost.NewSelector(testutil.ModernStatistics()),
		Logger:   testutil.DiscardLogger(),
	})
}

// lowerT validates and lowers tr, failing the test on any error.
func lowerT(t *testing.T, ctx *tree.Context, tr *tree.Traversal) *plan.Plan {
	t.Helper()
	require.NoError(t, tr.Err())
	require.NoError(t, tree.Validate(ctx, tr))
	p, err := newLowerer(ctx).Lower(context.Background(), tr)
	require.NoError(t, err)
	return p
}

func shuffles(p *plan.Plan) []plan.Shuffle {
	var out []plan.Shuffle
	for _, e := range p.Edges() {
		out = append(out, e.Shuffle)
	}
	return out
}

func fwd() plan.Shuffle { return plan.ForwardShuffle() }

func vertexOf(t *testing.T, p *plan.Plan, kind plan.OpKind) plan.Vertex {
	t.Helper()
	for _, v := range p.Vertices() {
		if v.Op.Kind == kind {
			return v
		}
	}
	t.Fatalf("no %s vertex in plan %v", kind, p.OpKinds())
	return plan.Vertex{}
}

func TestLower_GroupCountPerNeighbour(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Has("age", tree.Gt(10)).Out("knows").Group(tree.Identity(), tree.Reducer{Kind: tree.ReduceCount})
	p := lowerT(t, ctx, tr)

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpHas, plan.OpVertexHop, plan.OpKeyEntry, plan.OpGroup,
	}, p.OpKinds())
	assert.Equal(t, []plan.Shuffle{fwd(), fwd(), fwd(), plan.ByKey(label.MapKeyID)}, shuffles(p))

	sink, ok := p.Vertex(p.Sink())
	require.True(t, ok)
	assert.Equal(t, valuetype.Map{Key: valuetype.Vertex{}, Value: valuetype.Scalar{Kind: valuetype.KindLong}}, sink.OutputType)
	assert.Equal(t, ir.String("count"), sink.Op.Args["reducer"])

	has := vertexOf(t, p, plan.OpHas)
	assert.Equal(t, ir.Int(2), has.Op.Args["property_id"])
	hop := vertexOf(t, p, plan.OpVertexHop)
	assert.Equal(t, ir.String("out"), hop.Op.Args["direction"])
	assert.Equal(t, ir.Ints(10), hop.Op.Args["edge_label_ids"])
}

func TestLower_LocalChainStaysForward(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Has("age", tree.Gt(10)).HasLabel("person").
		OutE("knows").Has("weight", tree.Gt(0.5)).InV().ID()
	p := lowerT(t, ctx, tr)

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpHas, plan.OpHasLabel, plan.OpEdgeHop,
		plan.OpHas, plan.OpEdgeVertex, plan.OpID,
	}, p.OpKinds())
	for _, s := range shuffles(p) {
		assert.Equal(t, plan.Forward, s.Kind)
	}
	assert.Len(t, p.Edges(), 6)
}

func TestLower_ElementDataAfterHopMoves(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Out().Has("age", tree.Gt(1)))

	assert.Equal(t, []plan.Shuffle{fwd(), plan.ByKey(label.IdentityID)}, shuffles(p))
}

func TestLower_CountFunnels(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Count())

	assert.Equal(t, []plan.Shuffle{plan.ByConst()}, shuffles(p))
}

func TestLower_WhereSplice(t *testing.T) {
	tests := []struct {
		name  string
		sub   func(c *tree.Context) *tree.Traversal
		kinds []plan.OpKind
		join  plan.Shuffle
	}{
		{
			name:  "no movement",
			sub:   func(c *tree.Context) *tree.Traversal { return c.Sub().Out("knows") },
			kinds: []plan.OpKind{plan.OpSourceVertex, plan.OpEnterKey, plan.OpVertexHop, plan.OpJoinFilter},
			join:  fwd(),
		},
		{
			name: "movement inside",
			sub: func(c *tree.Context) *tree.Traversal {
				return c.Sub().Out("knows").Has("age", tree.Gt(30))
			},
			kinds: []plan.OpKind{plan.OpSourceVertex, plan.OpEnterKey, plan.OpVertexHop, plan.OpHas, plan.OpJoinFilter},
			join:  plan.ByKey(-100000),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			p := lowerT(t, ctx, ctx.V().Where(tt.sub(ctx)))

			assert.Equal(t, tt.kinds, p.OpKinds())
			in := p.Inbound(p.Sink())
			require.Len(t, in, 2)
			assert.Equal(t, vertexOf(t, p, plan.OpEnterKey).ID, in[0].From)
			assert.Equal(t, tt.join, in[0].Shuffle)
			assert.Equal(t, tt.join, in[1].Shuffle)

			enter := vertexOf(t, p, plan.OpEnterKey)
			assert.Equal(t, ir.Int(-100000), enter.Op.Args["key_label"])
			assert.Equal(t, []plan.Requirement{{Kind: plan.LabelStart, Labels: []plan.LabelID{-100000}}}, enter.After)
		})
	}
}

func TestLower_NotAndOptional(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Not(ctx.Sub().Out("created")).Optional(ctx.Sub().Out("knows")))

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex,
		plan.OpEnterKey, plan.OpVertexHop, plan.OpJoinNegate,
		plan.OpEnterKey, plan.OpVertexHop, plan.OpJoinOptional,
	}, p.OpKinds())
}

func TestLower_Union(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Union(ctx.Sub().Out(), ctx.Sub().In(), ctx.Sub().Both())
	p := lowerT(t, ctx, tr)

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpVertexHop, plan.OpVertexHop, plan.OpVertexHop,
		plan.OpUnion, plan.OpUnion,
	}, p.OpKinds())
	for _, s := range shuffles(p) {
		assert.Equal(t, fwd(), s)
	}
	assert.Equal(t, plan.VertexID(6), p.Sink())
}

func TestLower_SingleBranchUnion(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Union(ctx.Sub().Out()))

	assert.Equal(t, []plan.OpKind{plan.OpSourceVertex, plan.OpVertexHop}, p.OpKinds())
}

func TestLower_Choose(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Choose(ctx.Sub().HasKey("age"), ctx.Sub().Values("age"), nil)
	p := lowerT(t, ctx, tr)

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpEnterKey, plan.OpHas, plan.OpJoinFilter,
		plan.OpJoinNegate, plan.OpValues, plan.OpUnion,
	}, p.OpKinds())
	assert.Len(t, p.Edges(), 9)

	union := p.Inbound(p.Sink())
	require.Len(t, union, 2)
	assert.Equal(t, vertexOf(t, p, plan.OpValues).ID, union[0].From)
	assert.Equal(t, vertexOf(t, p, plan.OpJoinNegate).ID, union[1].From)
}

func TestLower_LocalRangeIsKeyed(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Local(ctx.Sub().OutE().Limit(2)))

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpEnterKey, plan.OpEdgeHop, plan.OpRange, plan.OpLeaveKey,
	}, p.OpKinds())

	rng := vertexOf(t, p, plan.OpRange)
	assert.False(t, rng.GlobalStop)
	assert.Equal(t, plan.ByKey(-100000), p.Inbound(rng.ID)[0].Shuffle)
	assert.Equal(t, plan.ByKey(-100000), p.Inbound(p.Sink())[0].Shuffle)
	for _, v := range p.Vertices() {
		assert.False(t, v.GlobalFilter, "vertex %d", v.ID)
	}
}

func TestLower_EarlyStop(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Has("age", tree.Gt(10)).Out().Limit(5))

	rng := vertexOf(t, p, plan.OpRange)
	assert.True(t, rng.GlobalStop)
	assert.False(t, rng.GlobalFilter)
	assert.Equal(t, plan.ByConst(), p.Inbound(rng.ID)[0].Shuffle)
	assert.Equal(t, ir.Obj(ir.O("low", ir.Int(0)), ir.O("high", ir.Int(5))), rng.Op.Args)
	for _, kind := range []plan.OpKind{plan.OpSourceVertex, plan.OpHas, plan.OpVertexHop} {
		assert.True(t, vertexOf(t, p, kind).GlobalFilter, "%s", kind)
	}
}

func TestLower_EarlyStopHaltsAtBlocking(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Fold().Unfold().Limit(2))

	assert.True(t, vertexOf(t, p, plan.OpUnfold).GlobalFilter)
	assert.False(t, vertexOf(t, p, plan.OpFold).GlobalFilter)
	assert.False(t, vertexOf(t, p, plan.OpSourceVertex).GlobalFilter)
}

func TestLower_SkipIsUnbounded(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Skip(3))

	rng := vertexOf(t, p, plan.OpRange)
	assert.Equal(t, ir.Null{}, rng.Op.Args["high"])
}

func TestLower_GroupCountByProperty(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *tree.Context) *tree.Traversal
		entry plan.Shuffle
	}{
		{"on source", func(c *tree.Context) *tree.Traversal { return c.V().GroupCount(tree.Prop("age")) }, fwd()},
		{"after hop", func(c *tree.Context) *tree.Traversal { return c.V().Out().GroupCount(tree.Prop("age")) }, plan.ByKey(label.IdentityID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			p := lowerT(t, ctx, tt.build(ctx))

			entry := vertexOf(t, p, plan.OpKeyEntry)
			assert.Equal(t, tt.entry, p.Inbound(entry.ID)[0].Shuffle)
			assert.Equal(t, ir.Obj(ir.O("kind", ir.String("property")), ir.O("property_id", ir.Int(2))), entry.Op.Args["key"])

			sink, _ := p.Vertex(p.Sink())
			assert.Equal(t, plan.OpGroupCount, sink.Op.Kind)
			assert.Equal(t, plan.ByKey(label.MapKeyID), p.Inbound(sink.ID)[0].Shuffle)
		})
	}
}

func TestLower_OrderFillsProperties(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Out().Order(tree.Descending(tree.Prop("age"))))

	assert.Equal(t, []plan.OpKind{plan.OpSourceVertex, plan.OpVertexHop, plan.OpPropFill, plan.OpOrder}, p.OpKinds())
	assert.Equal(t, []plan.Shuffle{fwd(), plan.ByKey(label.IdentityID), plan.ByConst()}, shuffles(p))

	fill := vertexOf(t, p, plan.OpPropFill)
	assert.Equal(t, ir.Ints(2), fill.Op.Args["property_ids"])
}

func TestLower_OrderBySub(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Order(tree.Ascending(tree.Sub(ctx.Sub().Out().Count())))
	p := lowerT(t, ctx, tr)

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpEnterKey, plan.OpVertexHop, plan.OpCount,
		plan.OpJoinLabelValue, plan.OpOrder,
	}, p.OpKinds())

	count := vertexOf(t, p, plan.OpCount)
	assert.Equal(t, plan.ByKey(-100000), p.Inbound(count.ID)[0].Shuffle)

	jlv := vertexOf(t, p, plan.OpJoinLabelValue)
	assert.Equal(t, ir.Int(-100001), jlv.Op.Args["label"])
	for _, e := range p.Inbound(jlv.ID) {
		assert.Equal(t, plan.ByKey(-100000), e.Shuffle)
	}
	assert.Equal(t, plan.ByConst(), p.Inbound(p.Sink())[0].Shuffle)
}

func TestLower_Dedup(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *tree.Context) *tree.Traversal
		kinds []plan.OpKind
		last  plan.Shuffle
	}{
		{
			name:  "identity",
			build: func(c *tree.Context) *tree.Traversal { return c.V().Dedup() },
			kinds: []plan.OpKind{plan.OpSourceVertex, plan.OpDedup},
			last:  plan.ByKey(label.IdentityID),
		},
		{
			name:  "by property",
			build: func(c *tree.Context) *tree.Traversal { return c.V().Out().Dedup().By(tree.Prop("name")) },
			kinds: []plan.OpKind{plan.OpSourceVertex, plan.OpVertexHop, plan.OpPropFill, plan.OpDedup},
			last:  plan.ByKeyProperty(label.IdentityID, 1),
		},
		{
			name:  "by label",
			build: func(c *tree.Context) *tree.Traversal { return c.V().As("a").Out().Dedup("a") },
			kinds: []plan.OpKind{plan.OpSourceVertex, plan.OpVertexHop, plan.OpDedup},
			last:  plan.ByKey(-10),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			p := lowerT(t, ctx, tt.build(ctx))

			assert.Equal(t, tt.kinds, p.OpKinds())
			assert.Equal(t, tt.last, p.Inbound(p.Sink())[0].Shuffle)
		})
	}
}

func TestLower_StoreAndCap(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Store("seen").Cap("seen"))

	store := vertexOf(t, p, plan.OpStore)
	assert.True(t, store.Store)
	assert.Equal(t, "seen", store.StoreName)

	capv := vertexOf(t, p, plan.OpCap)
	assert.Equal(t, ir.Int(store.ID), capv.Op.Args["store_vertex"])
	assert.Equal(t, plan.ByConst(), p.Inbound(capv.ID)[0].Shuffle)
	assert.Equal(t, valuetype.List{Elem: valuetype.Vertex{}}, capv.OutputType)
}

func TestLower_PageRankBroadcasts(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().PageRank(10, 0.85, "rank"))

	prog := vertexOf(t, p, plan.OpGraphProgram)
	assert.Equal(t, plan.Broadcast, p.Inbound(prog.ID)[0].Shuffle.Kind)
	assert.Equal(t, ir.Float(0.85), prog.Op.Args["damping_factor"])
	assert.Equal(t, ir.Ints(5), prog.Op.Args["output_property_ids"])
	assert.Equal(t, ir.Int(10), prog.Op.Args["iterations"])
}

func TestLower_Join(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().As("k").Join(ctx.E().OutV().As("k"), "k")
	p := lowerT(t, ctx, tr)

	assert.Equal(t, []plan.OpKind{plan.OpSourceVertex, plan.OpSourceEdge, plan.OpEdgeVertex, plan.OpJoin}, p.OpKinds())
	assert.ElementsMatch(t, []plan.VertexID{1, 2}, p.Sources())

	in := p.Inbound(p.Sink())
	require.Len(t, in, 2)
	assert.Equal(t, plan.VertexID(1), in[0].From)
	assert.Equal(t, plan.ByKey(-10), in[0].Shuffle)
	assert.Equal(t, plan.ByKey(-10), in[1].Shuffle)
}

func TestLower_Requirements(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().As("a").Out().Path())

	src := vertexOf(t, p, plan.OpSourceVertex)
	require.Len(t, src.After, 2)
	kinds := map[plan.RequirementKind][]plan.LabelID{}
	for _, r := range src.After {
		kinds[r.Kind] = r.Labels
	}
	assert.Equal(t, []plan.LabelID{-10}, kinds[plan.LabelStart])
	assert.Contains(t, kinds, plan.PathAdd)
	assert.Empty(t, kinds[plan.PathAdd])
}

func TestLower_DelegateLabelsStayInBranch(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Union(ctx.Sub().As("x").Out("knows"), ctx.Sub().In("knows")))

	require.Equal(t, []plan.OpKind{plan.OpSourceVertex, plan.OpVertexHop, plan.OpVertexHop, plan.OpUnion}, p.OpKinds())
	src, _ := p.Vertex(1)
	labelled, _ := p.Vertex(2)
	sibling, _ := p.Vertex(3)

	assert.Empty(t, src.After, "shared input must not carry a branch label")
	assert.Equal(t, []plan.Requirement{{Kind: plan.LabelStart, Labels: []plan.LabelID{-10}}}, labelled.Before)
	assert.Empty(t, sibling.Before)
}

func TestLower_DelegatePathInSplicedSub(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().Where(ctx.Sub().Out("knows").Path()))

	enter := vertexOf(t, p, plan.OpEnterKey)
	hop := vertexOf(t, p, plan.OpVertexHop)
	for _, r := range enter.After {
		assert.NotEqual(t, plan.PathAdd, r.Kind, "path recording belongs to the sub's first step")
	}
	require.Len(t, hop.Before, 1)
	assert.Equal(t, plan.PathAdd, hop.Before[0].Kind)
	assert.Empty(t, hop.Before[0].Labels)
}

func TestLower_DelegateRequirementsNeedAStep(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Where(ctx.Sub().As("x"))
	require.NoError(t, tr.Err())

	_, err := newLowerer(ctx).Lower(context.Background(), tr)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeIllegalArgument), "got %v", err)
}

func matchHops() []tree.MatchHop {
	return []tree.MatchHop{
		{From: "a", To: "b", EdgeLabel: "knows", Dir: tree.Out},
		{From: "b", To: "c", EdgeLabel: "created", Dir: tree.Out},
	}
}

func TestLower_MatchAnchored(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().MatchPinned(0, "a", matchHops()...)
	require.NoError(t, tr.Err())
	require.NoError(t, tree.Validate(ctx, tr))
	l := newLowerer(ctx)
	p, err := l.Lower(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, []plan.OpKind{plan.OpSourceVertex, plan.OpVertexHop, plan.OpVertexHop, plan.OpSelect}, p.OpKinds())

	first, _ := p.Vertex(2)
	assert.Equal(t, []plan.Requirement{{Kind: plan.LabelStart, Labels: []plan.LabelID{-10}}}, first.Before)
	assert.Equal(t, []plan.Requirement{{Kind: plan.LabelStart, Labels: []plan.LabelID{-11}}}, first.After)

	sel := vertexOf(t, p, plan.OpSelect)
	assert.Equal(t, ir.Ints(-10, -11, -12), sel.Op.Args["labels"])
	assert.Equal(t, ir.Int(0), sel.Op.Args["candidate"])

	require.Len(t, l.Selections(), 1)
	assert.True(t, l.Selections()[0].Pinned)
}

func TestLower_MatchScansAndJoinsBack(t *testing.T) {
	ctx := newCtx()
	p := lowerT(t, ctx, ctx.V().MatchPinned(1, "a", matchHops()...))

	assert.Equal(t, []plan.OpKind{
		plan.OpSourceVertex, plan.OpSourceVertex, plan.OpVertexHop, plan.OpVertexHop,
		plan.OpJoin, plan.OpSelect,
	}, p.OpKinds())

	second, _ := p.Vertex(4)
	assert.Equal(t, plan.ByKey(-11), p.Inbound(second.ID)[0].Shuffle)

	join := vertexOf(t, p, plan.OpJoin)
	in := p.Inbound(join.ID)
	require.Len(t, in, 2)
	assert.Equal(t, plan.ByKey(label.IdentityID), in[0].Shuffle)
	assert.Equal(t, plan.ByKey(-10), in[1].Shuffle)
}

func TestLower_MatchUsesSelector(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().Match("a", matchHops()...)
	require.NoError(t, tree.Validate(ctx, tr))
	l := newLowerer(ctx)
	_, err := l.Lower(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, l.Selections(), 1)
	sel := l.Selections()[0]
	assert.False(t, sel.Pinned)
	assert.False(t, sel.Aborted)
	assert.Equal(t, 4, sel.Scored)
}

func TestLower_Errors(t *testing.T) {
	t.Run("no schema", func(t *testing.T) {
		ctx := tree.NewContext(nil)
		_, err := newLowerer(ctx).Lower(context.Background(), ctx.V())
		assert.True(t, ir.IsCode(err, ir.ErrCodeIllegalArgument))
	})
	t.Run("sub traversal", func(t *testing.T) {
		ctx := newCtx()
		_, err := newLowerer(ctx).Lower(context.Background(), ctx.Sub().Out())
		assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidPlan))
	})
}
