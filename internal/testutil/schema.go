package testutil

import (
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/valuetype"
)

// ModernCUE is the CUE source of ModernSchema.
const ModernCUE = `
schema: {
	vertexLabels: {person: 1, software: 2}
	edgeLabels: {knows: 10, created: 11}
	properties: {
		name: {id: 1, types: ["string"]}
		age: {id: 2, types: ["int"]}
		weight: {id: 3, types: ["double"]}
		lang: {id: 4, types: ["string"]}
		rank: {id: 5, types: ["double"]}
		component: {id: 6, types: ["long"]}
	}
}
`

// ModernSchema is a small person/software graph schema.
func ModernSchema() *schema.Schema {
	return &schema.Schema{
		VertexLabels: map[string]int{"person": 1, "software": 2},
		EdgeLabels:   map[string]int{"knows": 10, "created": 11},
		Properties: map[string]schema.Property{
			"name":      {ID: 1, Types: []valuetype.ScalarKind{valuetype.KindString}},
			"age":       {ID: 2, Types: []valuetype.ScalarKind{valuetype.KindInt}},
			"weight":    {ID: 3, Types: []valuetype.ScalarKind{valuetype.KindDouble}},
			"lang":      {ID: 4, Types: []valuetype.ScalarKind{valuetype.KindString}},
			"rank":      {ID: 5, Types: []valuetype.ScalarKind{valuetype.KindDouble}},
			"component": {ID: 6, Types: []valuetype.ScalarKind{valuetype.KindLong}},
		},
	}
}
