package plan

import (
	"github.com/roach88/gplan/internal/ir"
)

// Validate checks the structural invariants of a vertex arena and returns
// the id of its single sink.
//
// Invariants:
//   - vertex ids are dense and 1-based
//   - edges reference existing vertices
//   - sources have no inbound edge; unary vertices exactly one on port 0;
//     binary vertices exactly two on ports 0 and 1
//   - the graph is acyclic
//   - exactly one vertex has no outbound edge
func Validate(vertices []Vertex, edges []Edge) (VertexID, error) {
	if len(vertices) == 0 {
		return 0, ir.Errorf(ir.ErrCodeInvalidPlan, "plan has no vertices")
	}
	for i, v := range vertices {
		if v.ID != VertexID(i+1) {
			return 0, ir.Errorf(ir.ErrCodeInvalidPlan, "vertex at index %d has id %d", i, v.ID)
		}
	}
	exists := func(id VertexID) bool { return id >= 1 && int(id) <= len(vertices) }

	ports := make(map[VertexID][]int, len(vertices))
	outDegree := make(map[VertexID]int, len(vertices))
	for _, e := range edges {
		if !exists(e.From) || !exists(e.To) {
			return 0, ir.Errorf(ir.ErrCodeInvalidPlan, "edge %d->%d references a missing vertex", e.From, e.To)
		}
		ports[e.To] = append(ports[e.To], e.Port)
		outDegree[e.From]++
	}

	for _, v := range vertices {
		want := v.Op.Kind.Arity()
		got := ports[v.ID]
		if len(got) != want {
			return 0, ir.Errorf(ir.ErrCodeInvalidPlan,
				"vertex %d (%s) has %d inbound edges, want %d", v.ID, v.Op.Kind, len(got), want)
		}
		seen := make([]bool, want)
		for _, p := range got {
			if p < 0 || p >= want || seen[p] {
				return 0, ir.Errorf(ir.ErrCodeInvalidPlan,
					"vertex %d (%s) has invalid inbound port %d", v.ID, v.Op.Kind, p)
			}
			seen[p] = true
		}
	}

	if err := detectCycles(len(vertices), edges); err != nil {
		return 0, err
	}

	var sink VertexID
	for _, v := range vertices {
		if outDegree[v.ID] > 0 {
			continue
		}
		if sink != 0 {
			return 0, ir.Errorf(ir.ErrCodeInvalidPlan, "plan has more than one sink (%d and %d)", sink, v.ID)
		}
		sink = v.ID
	}
	if sink == 0 {
		return 0, ir.Errorf(ir.ErrCodeInvalidPlan, "plan has no sink")
	}
	return sink, nil
}

// detectCycles runs a three-colour depth-first search over the edges.
func detectCycles(n int, edges []Edge) error {
	adj := make([][]VertexID, n+1)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	// temporary: on the current DFS stack. permanent: fully explored.
	temporary := make([]bool, n+1)
	permanent := make([]bool, n+1)

	var visit func(id VertexID) error
	visit = func(id VertexID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return ir.Errorf(ir.ErrCodeInvalidPlan, "cycle detected at vertex %d", id)
		}
		temporary[id] = true
		for _, next := range adj[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		temporary[id] = false
		permanent[id] = true
		return nil
	}

	for id := 1; id <= n; id++ {
		if err := visit(VertexID(id)); err != nil {
			return err
		}
	}
	return nil
}
