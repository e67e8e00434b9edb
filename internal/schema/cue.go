package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gplan/internal/valuetype"
)

// definition constrains schema documents. A document may either be the
// schema struct itself or contain it under a top-level "schema" field.
const definition = `
#DataType: "bool" | "int" | "long" | "float" | "double" | "string" | "bytes" | "date" |
	"int_list" | "long_list" | "float_list" | "double_list" | "string_list"

#Schema: {
	vertexLabels: [string]: int & >0
	edgeLabels: [string]: int & >0
	properties: [string]: {
		id: int & >0
		types: [#DataType, ...#DataType]
	}
}
`

// LoadError is a schema document error with source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE reads and compiles a CUE schema file.
func LoadCUE(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return CompileCUE(string(src), path)
}

// CompileCUE compiles CUE source into a Schema. filename is used only for
// error positions.
//
// Example:
//
//	schema: {
//		vertexLabels: {person: 1, software: 2}
//		edgeLabels: {knows: 10, created: 11}
//		properties: {
//			age: {id: 3, types: ["int"]}
//			name: {id: 4, types: ["string"]}
//		}
//	}
func CompileCUE(src, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	def := ctx.CompileString(definition).LookupPath(cue.ParsePath("#Schema"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition: %w", err)
	}

	doc := ctx.CompileString(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if nested := doc.LookupPath(cue.ParsePath("schema")); nested.Exists() {
		doc = nested
	}

	v := def.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Schema{}
	var err error
	if s.VertexLabels, err = parseLabels(v, "vertexLabels"); err != nil {
		return nil, err
	}
	if s.EdgeLabels, err = parseLabels(v, "edgeLabels"); err != nil {
		return nil, err
	}
	if s.Properties, err = parseProperties(v); err != nil {
		return nil, err
	}
	if err := checkUniqueIDs(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseLabels(v cue.Value, field string) (map[string]int, error) {
	out := map[string]int{}
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return out, nil
	}
	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		id, err := iter.Value().Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out[iter.Label()] = int(id)
	}
	return out, nil
}

func parseProperties(v cue.Value) (map[string]Property, error) {
	out := map[string]Property{}
	val := v.LookupPath(cue.ParsePath("properties"))
	if !val.Exists() {
		return out, nil
	}
	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		id, err := iter.Value().LookupPath(cue.ParsePath("id")).Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		typesIter, err := iter.Value().LookupPath(cue.ParsePath("types")).List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		prop := Property{ID: int(id)}
		for typesIter.Next() {
			t, err := typesIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			prop.Types = append(prop.Types, valuetype.ParseScalarKind(t))
		}
		out[name] = prop
	}
	return out, nil
}

func checkUniqueIDs(s *Schema) error {
	labels := map[int]string{}
	for _, group := range []map[string]int{s.VertexLabels, s.EdgeLabels} {
		for _, name := range sortedKeys(group) {
			id := group[name]
			if other, dup := labels[id]; dup {
				return &LoadError{Field: "labels", Message: fmt.Sprintf("labels %q and %q share id %d", other, name, id)}
			}
			labels[id] = name
		}
	}
	props := map[int]string{}
	for _, name := range sortedKeys(s.Properties) {
		id := s.Properties[name].ID
		if other, dup := props[id]; dup {
			return &LoadError{Field: "properties", Message: fmt.Sprintf("properties %q and %q share id %d", other, name, id)}
		}
		props[id] = name
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
