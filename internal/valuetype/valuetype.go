// Package valuetype describes the shape of data flowing between traversal
// steps: scalars, graph elements, collections, paths and unions of these.
//
// Types are immutable values. Two types are equal when their canonical
// renderings (String) are equal.
package valuetype

import (
	"strings"
)

// Type is a sealed interface; only types in this package implement it.
type Type interface {
	valueType()
	String() string
}

// ScalarKind tags the primitive variant of a Scalar or Property type.
type ScalarKind string

const (
	KindBool       ScalarKind = "bool"
	KindInt        ScalarKind = "int"
	KindLong       ScalarKind = "long"
	KindFloat      ScalarKind = "float"
	KindDouble     ScalarKind = "double"
	KindString     ScalarKind = "string"
	KindBytes      ScalarKind = "bytes"
	KindDate       ScalarKind = "date"
	KindIntList    ScalarKind = "int_list"
	KindLongList   ScalarKind = "long_list"
	KindFloatList  ScalarKind = "float_list"
	KindDoubleList ScalarKind = "double_list"
	KindStringList ScalarKind = "string_list"
	KindUnknown    ScalarKind = "unknown"
)

// IsNumeric reports whether values of the kind can be summed or averaged.
func (k ScalarKind) IsNumeric() bool {
	switch k {
	case KindInt, KindLong, KindFloat, KindDouble:
		return true
	}
	return false
}

// ParseScalarKind maps a data type name to a ScalarKind. Unrecognized
// names map to KindUnknown.
func ParseScalarKind(name string) ScalarKind {
	switch k := ScalarKind(strings.ToLower(name)); k {
	case KindBool, KindInt, KindLong, KindFloat, KindDouble, KindString, KindBytes, KindDate,
		KindIntList, KindLongList, KindFloatList, KindDoubleList, KindStringList:
		return k
	}
	return KindUnknown
}

// Scalar is a primitive value.
type Scalar struct {
	Kind ScalarKind
}

// Vertex is a graph vertex.
type Vertex struct{}

// Edge is a graph edge.
type Edge struct{}

// List is an ordered collection.
type List struct {
	Elem Type
}

// Map is a keyed collection, e.g. the output of group or groupCount.
type Map struct {
	Key   Type
	Value Type
}

// MapEntry is a single key/value pair, e.g. an unfolded map.
type MapEntry struct {
	Key   Type
	Value Type
}

// Path is the ordered list of per-hop types recorded by path().
type Path struct {
	Hops []Type
}

// Property is a vertex or edge property object (key + value).
type Property struct {
	Kind ScalarKind
}

// Variety is a union of mutually exclusive shapes. Build it with Union;
// a Variety constructed that way never has fewer than two members.
type Variety struct {
	Members []Type
}

func (Scalar) valueType()   {}
func (Vertex) valueType()   {}
func (Edge) valueType()     {}
func (List) valueType()     {}
func (Map) valueType()      {}
func (MapEntry) valueType() {}
func (Path) valueType()     {}
func (Property) valueType() {}
func (Variety) valueType()  {}

func (t Scalar) String() string   { return "Scalar(" + string(t.Kind) + ")" }
func (Vertex) String() string     { return "Vertex" }
func (Edge) String() string       { return "Edge" }
func (t List) String() string     { return "List(" + str(t.Elem) + ")" }
func (t Map) String() string      { return "Map(" + str(t.Key) + ", " + str(t.Value) + ")" }
func (t MapEntry) String() string { return "MapEntry(" + str(t.Key) + ", " + str(t.Value) + ")" }
func (t Property) String() string { return "Property(" + string(t.Kind) + ")" }

func (t Path) String() string {
	return "Path(" + joinTypes(t.Hops) + ")"
}

func (t Variety) String() string {
	return "Variety(" + joinTypes(t.Members) + ")"
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, m := range ts {
		parts[i] = str(m)
	}
	return strings.Join(parts, ", ")
}

func str(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

// Equal reports whether a and b describe the same shape.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Union combines the output types of mutually exclusive branches.
//
// Nested varieties are flattened and duplicates removed, keeping
// first-seen order. A single distinct member is returned as is; no
// members yields Scalar(unknown).
func Union(types ...Type) Type {
	seen := make(map[string]struct{}, len(types))
	var members []Type
	var add func(t Type)
	add = func(t Type) {
		if t == nil {
			return
		}
		if v, ok := t.(Variety); ok {
			for _, m := range v.Members {
				add(m)
			}
			return
		}
		key := t.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		members = append(members, t)
	}
	for _, t := range types {
		add(t)
	}

	switch len(members) {
	case 0:
		return Scalar{Kind: KindUnknown}
	case 1:
		return members[0]
	}
	return Variety{Members: members}
}

// Members returns the alternatives of t: the members of a Variety, or t
// itself otherwise.
func Members(t Type) []Type {
	if v, ok := t.(Variety); ok {
		out := make([]Type, len(v.Members))
		copy(out, v.Members)
		return out
	}
	return []Type{t}
}

// IsElement reports whether t is a vertex or an edge.
func IsElement(t Type) bool {
	switch t.(type) {
	case Vertex, Edge:
		return true
	}
	return false
}

// IsScalarLike reports whether every alternative of t is a Scalar or a
// Property. Scalar-like rows carry no adjacency and are always partition
// local.
func IsScalarLike(t Type) bool {
	for _, m := range Members(t) {
		switch m.(type) {
		case Scalar, Property:
		default:
			return false
		}
	}
	return true
}
