// Package schema is the compiler's boundary to the graph storage schema:
// label and property name resolution plus property data types.
package schema

import (
	"sort"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/valuetype"
)

// Lookup resolves schema names. Misses are reported as
// UNKNOWN_SCHEMA_ELEMENT compile errors.
type Lookup interface {
	LabelID(name string) (int, error)
	PropertyID(name string) (int, error)
	PropertyDataTypes(name string) ([]valuetype.ScalarKind, error)
}

// Property describes one property key.
type Property struct {
	ID    int
	Types []valuetype.ScalarKind
}

// Schema is an in-memory Lookup. Vertex and edge labels share one id space.
type Schema struct {
	VertexLabels map[string]int
	EdgeLabels   map[string]int
	Properties   map[string]Property
}

var _ Lookup = (*Schema)(nil)

// LabelID resolves a vertex or edge label.
func (s *Schema) LabelID(name string) (int, error) {
	if id, ok := s.VertexLabels[name]; ok {
		return id, nil
	}
	if id, ok := s.EdgeLabels[name]; ok {
		return id, nil
	}
	return 0, ir.NewUnknownSchemaElementError("label", name)
}

// PropertyID resolves a property key.
func (s *Schema) PropertyID(name string) (int, error) {
	p, ok := s.Properties[name]
	if !ok {
		return 0, ir.NewUnknownSchemaElementError("property", name)
	}
	return p.ID, nil
}

// PropertyDataTypes returns the data types a property may hold.
func (s *Schema) PropertyDataTypes(name string) ([]valuetype.ScalarKind, error) {
	p, ok := s.Properties[name]
	if !ok {
		return nil, ir.NewUnknownSchemaElementError("property", name)
	}
	out := make([]valuetype.ScalarKind, len(p.Types))
	copy(out, p.Types)
	return out, nil
}

// LabelNames returns all vertex and edge label names, sorted.
func (s *Schema) LabelNames() []string {
	names := make([]string, 0, len(s.VertexLabels)+len(s.EdgeLabels))
	for n := range s.VertexLabels {
		names = append(names, n)
	}
	for n := range s.EdgeLabels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PropertyType folds a property's data types into a single scalar value
// type (a Variety when the property is polymorphic).
func PropertyType(l Lookup, name string) (valuetype.Type, error) {
	kinds, err := l.PropertyDataTypes(name)
	if err != nil {
		return nil, err
	}
	types := make([]valuetype.Type, len(kinds))
	for i, k := range kinds {
		types[i] = valuetype.Scalar{Kind: k}
	}
	return valuetype.Union(types...), nil
}
