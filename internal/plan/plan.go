package plan

import (
	"slices"
)

// Plan is an immutable, validated logical plan. All accessors return
// copies, so a Plan may be read concurrently.
type Plan struct {
	vertices []Vertex
	edges    []Edge
	sink     VertexID
}

// Len is the number of vertices.
func (p *Plan) Len() int { return len(p.vertices) }

// Sink is the vertex producing the final result.
func (p *Plan) Sink() VertexID { return p.sink }

// Vertex returns a copy of the vertex with the given id.
func (p *Plan) Vertex(id VertexID) (Vertex, bool) {
	if id <= 0 || int(id) > len(p.vertices) {
		return Vertex{}, false
	}
	return cloneVertex(p.vertices[id-1]), true
}

// Vertices returns copies of all vertices in id order.
func (p *Plan) Vertices() []Vertex {
	out := make([]Vertex, len(p.vertices))
	for i, v := range p.vertices {
		out[i] = cloneVertex(v)
	}
	return out
}

// Edges returns all edges in insertion order.
func (p *Plan) Edges() []Edge {
	return slices.Clone(p.edges)
}

// Inbound returns the edges into id ordered by port.
func (p *Plan) Inbound(id VertexID) []Edge {
	return inbound(p.edges, id)
}

// Sources returns the ids of vertices with no inputs.
func (p *Plan) Sources() []VertexID {
	var out []VertexID
	for _, v := range p.vertices {
		if len(v.Inputs) == 0 {
			out = append(out, v.ID)
		}
	}
	return out
}

// OpKinds lists the operator kinds in vertex id order.
func (p *Plan) OpKinds() []OpKind {
	out := make([]OpKind, len(p.vertices))
	for i, v := range p.vertices {
		out[i] = v.Op.Kind
	}
	return out
}
