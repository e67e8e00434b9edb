package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/valuetype"
)

func chain(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder()
	src := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
	has := b.AddVertex(Op{Kind: OpHas, Args: ir.Obj(ir.O("property_id", ir.Int(3)))}, 2)
	hop := b.AddVertex(Op{Kind: OpVertexHop, Args: ir.Obj(ir.O("direction", ir.String("out")))}, 3)
	b.Connect(src, has, ForwardShuffle())
	b.Connect(has, hop, ForwardShuffle())
	b.Vertex(src).OutputType = valuetype.Vertex{}
	return b
}

func TestBuild_Chain(t *testing.T) {
	p, err := chain(t).Build()
	require.NoError(t, err)

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, VertexID(3), p.Sink())
	assert.Equal(t, []VertexID{1}, p.Sources())
	assert.Equal(t, []OpKind{OpSourceVertex, OpHas, OpVertexHop}, p.OpKinds())

	v, ok := p.Vertex(2)
	require.True(t, ok)
	assert.Equal(t, []VertexID{1}, v.Inputs)

	_, ok = p.Vertex(9)
	assert.False(t, ok)
}

func TestBuild_BinaryPorts(t *testing.T) {
	b := NewBuilder()
	src := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
	key := b.AddVertex(Op{Kind: OpEnterKey}, 2)
	hop := b.AddVertex(Op{Kind: OpVertexHop}, 3)
	join := b.AddVertex(Op{Kind: OpJoinFilter}, 2)
	b.Connect(src, key, ForwardShuffle())
	b.Connect(key, hop, ForwardShuffle())
	b.Connect(key, join, ByKey(-100000))
	b.Connect(hop, join, ByKey(-100000))

	p, err := b.Build()
	require.NoError(t, err)

	in := p.Inbound(join)
	require.Len(t, in, 2)
	assert.Equal(t, key, in[0].From)
	assert.Equal(t, 0, in[0].Port)
	assert.Equal(t, hop, in[1].From)
	assert.Equal(t, 1, in[1].Port)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		msg   string
	}{
		{
			name:  "empty",
			build: func(b *Builder) {},
			msg:   "no vertices",
		},
		{
			name: "source with input",
			build: func(b *Builder) {
				a := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
				c := b.AddVertex(Op{Kind: OpSourceVertex}, 2)
				b.Connect(a, c, ForwardShuffle())
			},
			msg: "has 1 inbound edges, want 0",
		},
		{
			name: "unary without input",
			build: func(b *Builder) {
				b.AddVertex(Op{Kind: OpCount}, 1)
			},
			msg: "has 0 inbound edges, want 1",
		},
		{
			name: "binary with one input",
			build: func(b *Builder) {
				a := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
				u := b.AddVertex(Op{Kind: OpUnion}, 2)
				b.Connect(a, u, ForwardShuffle())
			},
			msg: "has 1 inbound edges, want 2",
		},
		{
			name: "duplicate port",
			build: func(b *Builder) {
				a := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
				c := b.AddVertex(Op{Kind: OpSourceVertex}, 2)
				u := b.AddVertex(Op{Kind: OpUnion}, 3)
				b.ConnectPort(a, u, 0, ForwardShuffle())
				b.ConnectPort(c, u, 0, ForwardShuffle())
			},
			msg: "invalid inbound port 0",
		},
		{
			name: "two sinks",
			build: func(b *Builder) {
				a := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
				c := b.AddVertex(Op{Kind: OpCount}, 2)
				d := b.AddVertex(Op{Kind: OpFold}, 3)
				b.Connect(a, c, ForwardShuffle())
				b.Connect(a, d, ForwardShuffle())
			},
			msg: "more than one sink",
		},
		{
			name: "cycle",
			build: func(b *Builder) {
				s := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
				u := b.AddVertex(Op{Kind: OpUnion}, 2)
				m := b.AddVertex(Op{Kind: OpID}, 3)
				f := b.AddVertex(Op{Kind: OpFold}, 4)
				b.Connect(s, u, ForwardShuffle())
				b.Connect(m, u, ForwardShuffle())
				b.Connect(u, m, ForwardShuffle())
				b.Connect(u, f, ForwardShuffle())
			},
			msg: "cycle detected",
		},
		{
			name: "dangling edge",
			build: func(b *Builder) {
				a := b.AddVertex(Op{Kind: OpSourceVertex}, 1)
				b.Connect(a, 7, ForwardShuffle())
			},
			msg: "missing vertex",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			p, err := b.Build()
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidPlan))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRequire_Merges(t *testing.T) {
	b := chain(t)
	require.NoError(t, b.Require(2, After, Requirement{Kind: LabelStart, Labels: []LabelID{-10}}))
	require.NoError(t, b.Require(2, After, Requirement{Kind: LabelStart, Labels: []LabelID{-10, -11}}))
	require.NoError(t, b.Require(2, Before, Requirement{Kind: PathAdd}))

	v := b.Vertex(2)
	assert.Equal(t, []Requirement{{Kind: LabelStart, Labels: []LabelID{-10, -11}}}, v.After)
	assert.Equal(t, []Requirement{{Kind: PathAdd}}, v.Before)

	err := b.Require(42, After, Requirement{Kind: PathAdd})
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidPlan))
}

func TestPlan_AccessorsReturnCopies(t *testing.T) {
	b := chain(t)
	require.NoError(t, b.Require(1, After, Requirement{Kind: LabelStart, Labels: []LabelID{-10}}))
	p, err := b.Build()
	require.NoError(t, err)

	v, _ := p.Vertex(1)
	v.After[0].Labels[0] = -99
	v.Op.Args["x"] = ir.Int(1)

	again, _ := p.Vertex(1)
	assert.Equal(t, LabelID(-10), again.After[0].Labels[0])
	assert.NotContains(t, again.Op.Args, "x")
}

func TestSetShuffle(t *testing.T) {
	b := chain(t)
	assert.True(t, b.SetShuffle(3, 0, ByKey(-1)))
	assert.False(t, b.SetShuffle(3, 1, ByKey(-1)))
	assert.Equal(t, ByKey(-1), b.Inbound(3)[0].Shuffle)
	assert.Len(t, b.Outbound(1), 1)
}

func TestShuffle_String(t *testing.T) {
	assert.Equal(t, "Forward", ForwardShuffle().String())
	assert.Equal(t, "ShuffleByKey(-1)", ByKey(-1).String())
	assert.Equal(t, "ShuffleByKey(-3.p7)", ByKeyProperty(-3, 7).String())
	assert.Equal(t, "ShuffleByConst", ByConst().String())
}

func TestExplain(t *testing.T) {
	b := chain(t)
	require.NoError(t, b.Require(2, After, Requirement{Kind: LabelStart, Labels: []LabelID{-10}}))
	b.Vertex(3).GlobalFilter = true
	p, err := b.Build()
	require.NoError(t, err)

	want := "#1 SOURCE_VERTEX :: Vertex\n" +
		"#2 HAS {\"property_id\":3} <- #1 Forward after=LabelStart(-10)\n" +
		"#3 VERTEX_HOP {\"direction\":\"out\"} <- #2 Forward global-filter\n" +
		"sink #3\n"
	assert.Equal(t, want, p.Explain())
}

func TestFingerprint_Stable(t *testing.T) {
	p1, err := chain(t).Build()
	require.NoError(t, err)
	p2, err := chain(t).Build()
	require.NoError(t, err)

	f1, err := p1.Fingerprint()
	require.NoError(t, err)
	f2, err := p2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)

	b := chain(t)
	b.Vertex(2).GlobalStop = true
	p3, err := b.Build()
	require.NoError(t, err)
	f3, err := p3.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, f1, f3)
}

func TestMarshalCanonical_Shape(t *testing.T) {
	p, err := chain(t).Build()
	require.NoError(t, err)
	data, err := p.MarshalCanonical()
	require.NoError(t, err)

	v, err := ir.UnmarshalValue(data)
	require.NoError(t, err)
	obj := v.(ir.Object)
	assert.Equal(t, ir.Int(3), obj["sink"])
	assert.Len(t, obj["vertices"].(ir.List), 3)

	second := obj["vertices"].(ir.List)[1].(ir.Object)
	in := second["inputs"].(ir.List)[0].(ir.Object)
	assert.Equal(t, ir.Obj(ir.O("kind", ir.String("Forward"))), in["shuffle"])
}

func TestOpKind_Arity(t *testing.T) {
	assert.Equal(t, 0, OpInject.Arity())
	assert.Equal(t, 1, OpGraphProgram.Arity())
	assert.Equal(t, 2, OpJoinLabelValue.Arity())
	assert.True(t, OpOrder.IsBlocking())
	assert.False(t, OpHas.IsBlocking())
}
