package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
)

func TestValidate_Accepts(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *Context) *Traversal
	}{
		{"simple chain", func(c *Context) *Traversal { return c.V().Has("age", Gt(10)).Out("knows").Count() }},
		{"labels in order", func(c *Context) *Traversal { return c.V().As("a").Out().As("b").Select("a", "b") }},
		{"label visible in per-row sub", func(c *Context) *Traversal {
			return c.V().As("a").Out().Where(c.Sub().Out().WhereLabel("", OpEq, "a"))
		}},
		{"union branch label leaks", func(c *Context) *Traversal {
			return c.V().Union(c.Sub().Out().As("x"), c.Sub().In().As("x")).Select("x")
		}},
		{"choose branch label leaks", func(c *Context) *Traversal {
			return c.V().Choose(c.Sub().HasKey("age"), c.Sub().Out().As("y"), nil).Select("y")
		}},
		{"group at top level", func(c *Context) *Traversal { return c.V().GroupCount(Prop("age")) }},
		{"group inside branch", func(c *Context) *Traversal {
			return c.V().Union(c.Sub().GroupCount(Identity()), c.Sub().Count())
		}},
		{"join on shared key", func(c *Context) *Traversal {
			return c.V().As("k").Join(c.E().OutV().As("k"), "k")
		}},
		{"page rank", func(c *Context) *Traversal { return c.V().PageRank(20, 0.85, "rank") }},
		{"dedup by property", func(c *Context) *Traversal { return c.V().Dedup().By(Prop("name")) }},
		{"order by property", func(c *Context) *Traversal { return c.V().Order(Descending(Prop("age"))).Limit(3) }},
		{"skip unbounded", func(c *Context) *Traversal { return c.V().Skip(5) }},
		{"match", func(c *Context) *Traversal {
			return c.V().Match("a",
				MatchHop{From: "a", To: "b", EdgeLabel: "knows", Dir: Out},
				MatchHop{From: "b", To: "c", EdgeLabel: "created", Dir: Out},
			).Select("c")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			assert.NoError(t, Validate(ctx, tt.build(ctx)))
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *Context) *Traversal
		code  ir.ErrorCode
		kind  Kind
	}{
		{"unbound select", func(c *Context) *Traversal { return c.V().Select("x") }, ir.ErrCodeUnknownLabel, KindSelect},
		{"select before bind", func(c *Context) *Traversal {
			tr := c.V()
			sel := tr.Select("late")
			return sel.As("late")
		}, ir.ErrCodeUnknownLabel, KindSelect},
		{"per-row sub label does not leak", func(c *Context) *Traversal {
			return c.V().Where(c.Sub().Out().As("z")).Select("z")
		}, ir.ErrCodeUnknownLabel, KindSelect},
		{"join key unbound on right", func(c *Context) *Traversal {
			return c.V().As("k").Join(c.E(), "k")
		}, ir.ErrCodeUnknownLabel, KindJoin},
		{"join right does not see left labels", func(c *Context) *Traversal {
			return c.V().As("k").Join(c.E().Select("k"), "k")
		}, ir.ErrCodeUnknownLabel, KindSelect},
		{"unknown edge label", func(c *Context) *Traversal { return c.V().Out("likes") }, ir.ErrCodeUnknownSchemaElement, KindVertexHop},
		{"unknown vertex label", func(c *Context) *Traversal { return c.V().HasLabel("robot") }, ir.ErrCodeUnknownSchemaElement, KindHasLabel},
		{"unknown property", func(c *Context) *Traversal { return c.V().Has("height", Gt(1)) }, ir.ErrCodeUnknownSchemaElement, KindHas},
		{"unknown by property", func(c *Context) *Traversal { return c.V().GroupCount(Prop("height")) }, ir.ErrCodeUnknownSchemaElement, KindGroupCount},
		{"group count in where", func(c *Context) *Traversal {
			return c.V().Where(c.Sub().Out().GroupCount(Identity()))
		}, ir.ErrCodeUnsupportedNesting, KindGroupCount},
		{"group in local", func(c *Context) *Traversal {
			return c.V().Local(c.Sub().Group(Identity(), Reducer{Kind: ReduceCount}))
		}, ir.ErrCodeUnsupportedNesting, KindGroup},
		{"program in not", func(c *Context) *Traversal {
			return c.V().Not(c.Sub().PageRank(3, 0.5, "rank"))
		}, ir.ErrCodeUnsupportedNesting, KindGraphProgram},
		{"sample zero", func(c *Context) *Traversal { return c.V().Sample(0) }, ir.ErrCodeIllegalArgument, KindSample},
		{"coin above one", func(c *Context) *Traversal { return c.V().Coin(1.5) }, ir.ErrCodeIllegalArgument, KindCoin},
		{"range inverted", func(c *Context) *Traversal { return c.V().Range(5, 2) }, ir.ErrCodeIllegalArgument, KindRange},
		{"range negative", func(c *Context) *Traversal { return c.V().Range(-1, 2) }, ir.ErrCodeIllegalArgument, KindRange},
		{"no iterations", func(c *Context) *Traversal { return c.V().PageRank(0, 0.85, "rank") }, ir.ErrCodeIllegalArgument, KindGraphProgram},
		{"damping one", func(c *Context) *Traversal { return c.V().PageRank(5, 1.0, "rank") }, ir.ErrCodeIllegalArgument, KindGraphProgram},
		{"unknown algorithm", func(c *Context) *Traversal {
			return c.V().Program(GraphProgram{Algorithm: "triangles", Iterations: 1})
		}, ir.ErrCodeIllegalArgument, KindGraphProgram},
		{"empty union", func(c *Context) *Traversal { return c.V().Union() }, ir.ErrCodeIllegalArgument, KindUnion},
		{"cap without store", func(c *Context) *Traversal { return c.V().Cap("missing") }, ir.ErrCodeIllegalArgument, KindCap},
		{"keys of vertex", func(c *Context) *Traversal { return c.V().Keys() }, ir.ErrCodeUnsupportedProjection, KindColumn},
		{"compiler label name", func(c *Context) *Traversal { return c.V().As("$key_1").Select("$key_1") }, ir.ErrCodeIllegalArgument, KindSourceVertex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			err := Validate(ctx, tt.build(ctx))
			require.Error(t, err)
			assert.Equal(t, tt.code, ir.CodeOf(err), err.Error())

			var ce *ir.CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, string(tt.kind), ce.NodeKind)
			assert.NotZero(t, ce.NodeID)
		})
	}
}

func TestValidate_BuildErrorWins(t *testing.T) {
	ctx := newCtx()
	tr := ctx.V().As("~id").Select("nope")
	err := Validate(ctx, tr)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeIllegalArgument))
}

func TestValidate_NoSchema(t *testing.T) {
	ctx := NewContext(nil)
	tr := ctx.V().Out("anything").Has("whatever", Eq(1)).Values("x")
	assert.NoError(t, Validate(ctx, tr))
}
