package cost

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
)

const statsYAML = `
vertices:
  "*": 100
  person: 60
  software: 40
edges:
  knows: {count: 120, out_degree: 2, in_degree: 1}
  created: {count: 60, out_degree: 1, in_degree: 3}
`

func chain(t *testing.T) Pattern {
	t.Helper()
	p, err := NewPattern("a",
		Hop{From: "a", To: "b", EdgeLabel: "knows", Dir: Out},
		Hop{From: "b", To: "c", EdgeLabel: "created", Dir: Out},
	)
	require.NoError(t, err)
	return p
}

func stats(t *testing.T) *TableStatistics {
	t.Helper()
	ts, err := ParseStatistics([]byte(statsYAML))
	require.NoError(t, err)
	return ts
}

func candidates(g *Graph) []string {
	var out []string
	g.Enumerate(func(steps []Step) bool {
		out = append(out, Candidate{Steps: steps}.String())
		return true
	})
	return out
}

func TestNewPattern_Bindings(t *testing.T) {
	p := chain(t)
	assert.Equal(t, []string{"a", "b", "c"}, p.Bindings)
	assert.Equal(t, "a-knows->b", p.Hops[0].String())
}

func TestNewPattern_Errors(t *testing.T) {
	tests := []struct {
		name  string
		start string
		hops  []Hop
	}{
		{"no start", "", []Hop{{From: "a", To: "b"}}},
		{"no hops", "a", nil},
		{"missing endpoint", "a", []Hop{{From: "a"}}},
		{"disconnected", "a", []Hop{{From: "a", To: "b"}, {From: "c", To: "d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPattern(tt.start, tt.hops...)
			require.Error(t, err)
			assert.True(t, ir.IsCode(err, ir.ErrCodeIllegalArgument))
		})
	}
}

func TestBuildGraph_ChainCandidates(t *testing.T) {
	g := BuildGraph(chain(t))
	want := []string{
		"start(a) expand(a.out(knows)->b) expand(b.out(created)->c)",
		"start(b) expand(b.in(knows)->a) expand(b.out(created)->c)",
		"start(b) expand(b.out(created)->c) expand(b.in(knows)->a)",
		"start(c) expand(c.in(created)->b) expand(b.in(knows)->a)",
	}
	if diff := cmp.Diff(want, candidates(g)); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(0), g.States[0].Bound)
	assert.False(t, g.Final(0))
}

func TestBuildGraph_ClosesCycles(t *testing.T) {
	p, err := NewPattern("a",
		Hop{From: "a", To: "b", EdgeLabel: "knows"},
		Hop{From: "b", To: "c", EdgeLabel: "knows"},
		Hop{From: "a", To: "c", EdgeLabel: "created"},
	)
	require.NoError(t, err)

	var first []Step
	BuildGraph(p).Enumerate(func(steps []Step) bool {
		first = steps
		return false
	})
	kinds := make([]StepKind, len(first))
	for i, s := range first {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []StepKind{StepStart, StepExpand, StepExpand, StepClose}, kinds)
	assert.Equal(t, 2, first[3].Hop)
}

func TestSelect_CheapestWithTieFirstSeen(t *testing.T) {
	sel, err := NewSelector(stats(t)).Select(context.Background(), chain(t))
	require.NoError(t, err)

	assert.Equal(t, 1, sel.Candidate.Index)
	assert.InDelta(t, 400.0, sel.Cost, 1e-9)
	assert.Equal(t, 4, sel.Scored)
	assert.False(t, sel.Aborted)
	assert.NoError(t, sel.Err)
}

func TestSelect_DefaultsPreferAsWritten(t *testing.T) {
	sel, err := NewSelector(nil).Select(context.Background(), chain(t))
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Candidate.Index)
	assert.InDelta(t, 111000.0, sel.Cost, 1e-9)
}

func TestSelect_Deterministic(t *testing.T) {
	s := NewSelector(stats(t))
	first, err := s.Select(context.Background(), chain(t))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := s.Select(context.Background(), chain(t))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelect_Pin(t *testing.T) {
	for i := 0; i < 4; i++ {
		sel, err := NewSelector(stats(t)).WithPin(i).Select(context.Background(), chain(t))
		require.NoError(t, err)
		assert.Equal(t, i, sel.Candidate.Index)
		assert.True(t, sel.Pinned)
	}

	_, err := NewSelector(stats(t)).WithPin(9).Select(context.Background(), chain(t))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeIllegalArgument))

	assert.Nil(t, NewSelector(nil).WithPin(2).WithPin(-1).Pin)
}

func TestSelect_BudgetFallsBackToFirst(t *testing.T) {
	s := NewSelector(stats(t))
	s.StepBudget = 4

	sel, err := s.Select(context.Background(), chain(t))
	require.NoError(t, err)
	assert.True(t, sel.Aborted)
	assert.Equal(t, 0, sel.Candidate.Index)
	assert.Equal(t, 1, sel.Scored)
	assert.True(t, ir.IsCode(sel.Err, ir.ErrCodeCostEstimationAborted))
}

func TestTableStatistics_Lookups(t *testing.T) {
	ctx := context.Background()
	ts := stats(t)

	n, ok := ts.VertexCount(ctx, "")
	assert.True(t, ok)
	assert.Equal(t, 100.0, n)

	n, ok = ts.VertexCount(ctx, "person")
	assert.True(t, ok)
	assert.Equal(t, 60.0, n)

	_, ok = ts.VertexCount(ctx, "robot")
	assert.False(t, ok)

	d, ok := ts.OutDegree(ctx, "knows")
	assert.True(t, ok)
	assert.Equal(t, 2.0, d)

	d, ok = ts.InDegree(ctx, "")
	assert.True(t, ok)
	assert.Equal(t, 4.0, d)

	var empty *TableStatistics
	_, ok = empty.OutDegree(ctx, "knows")
	assert.False(t, ok)
}

func TestParseStatistics_Errors(t *testing.T) {
	_, err := ParseStatistics([]byte("vertices: {person: -1}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")

	_, err = ParseStatistics([]byte("vertices: [1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse statistics")
}

func TestLoadStatistics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(statsYAML), 0o644))

	ts, err := LoadStatistics(path)
	require.NoError(t, err)
	assert.Len(t, ts.Edges, 2)

	_, err = LoadStatistics(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
