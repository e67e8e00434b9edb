package plan

import (
	"slices"

	"github.com/roach88/gplan/internal/ir"
)

// Builder assembles a plan during lowering. It is not safe for concurrent
// use; each compilation owns one.
type Builder struct {
	vertices []*Vertex
	edges    []Edge
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddVertex appends a vertex and returns its id. origin is the id of the
// tree node being lowered.
func (b *Builder) AddVertex(op Op, origin int) VertexID {
	id := VertexID(len(b.vertices) + 1)
	if op.Args == nil {
		op.Args = ir.Object{}
	}
	b.vertices = append(b.vertices, &Vertex{ID: id, Op: op, Origin: origin})
	return id
}

// Vertex returns the mutable vertex for id, or nil if it does not exist.
func (b *Builder) Vertex(id VertexID) *Vertex {
	if id <= 0 || int(id) > len(b.vertices) {
		return nil
	}
	return b.vertices[id-1]
}

// Len is the number of vertices added so far.
func (b *Builder) Len() int { return len(b.vertices) }

// Connect adds an edge into the next free port of to.
func (b *Builder) Connect(from, to VertexID, s Shuffle) Edge {
	port := 0
	for _, e := range b.edges {
		if e.To == to {
			port++
		}
	}
	return b.ConnectPort(from, to, port, s)
}

// ConnectPort adds an edge into an explicit port of to.
func (b *Builder) ConnectPort(from, to VertexID, port int, s Shuffle) Edge {
	e := Edge{From: from, To: to, Port: port, Shuffle: s}
	b.edges = append(b.edges, e)
	return e
}

// Inbound returns the edges into id, ordered by port.
func (b *Builder) Inbound(id VertexID) []Edge {
	return inbound(b.edges, id)
}

// Outbound returns the edges leaving id in insertion order.
func (b *Builder) Outbound(id VertexID) []Edge {
	var out []Edge
	for _, e := range b.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// SetShuffle replaces the movement strategy of the edge into to's port.
func (b *Builder) SetShuffle(to VertexID, port int, s Shuffle) bool {
	for i := range b.edges {
		if b.edges[i].To == to && b.edges[i].Port == port {
			b.edges[i].Shuffle = s
			return true
		}
	}
	return false
}

// Require merges a requirement into the before or after list of id. Label
// ids already present for the same kind are not duplicated.
func (b *Builder) Require(id VertexID, phase Phase, req Requirement) error {
	v := b.Vertex(id)
	if v == nil {
		return ir.Errorf(ir.ErrCodeInvalidPlan, "requirement on unknown vertex %d", id)
	}
	list := &v.Before
	if phase == After {
		list = &v.After
	}
	for i := range *list {
		if (*list)[i].Kind == req.Kind {
			for _, l := range req.Labels {
				if !slices.Contains((*list)[i].Labels, l) {
					(*list)[i].Labels = append((*list)[i].Labels, l)
				}
			}
			return nil
		}
	}
	*list = append(*list, Requirement{Kind: req.Kind, Labels: slices.Clone(req.Labels)})
	return nil
}

// Build validates the arena and freezes it into a Plan. The builder must
// not be used afterwards.
func (b *Builder) Build() (*Plan, error) {
	vertices := make([]Vertex, len(b.vertices))
	for i, v := range b.vertices {
		cp := cloneVertex(*v)
		cp.Inputs = nil
		for _, e := range inbound(b.edges, v.ID) {
			cp.Inputs = append(cp.Inputs, e.From)
		}
		vertices[i] = cp
	}
	edges := slices.Clone(b.edges)

	sink, err := Validate(vertices, edges)
	if err != nil {
		return nil, err
	}
	return &Plan{vertices: vertices, edges: edges, sink: sink}, nil
}

func inbound(edges []Edge, id VertexID) []Edge {
	var in []Edge
	for _, e := range edges {
		if e.To == id {
			in = append(in, e)
		}
	}
	slices.SortStableFunc(in, func(a, b Edge) int { return a.Port - b.Port })
	return in
}

func cloneVertex(v Vertex) Vertex {
	v.Op.Args = v.Op.Args.Clone()
	v.Inputs = slices.Clone(v.Inputs)
	v.Before = cloneRequirements(v.Before)
	v.After = cloneRequirements(v.After)
	return v
}

func cloneRequirements(reqs []Requirement) []Requirement {
	if reqs == nil {
		return nil
	}
	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = Requirement{Kind: r.Kind, Labels: slices.Clone(r.Labels)}
	}
	return out
}
