package query

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/ir"
)

// Document is one decoded query.
type Document struct {
	Name  string `yaml:"name"`
	Steps Steps  `yaml:"steps"`

	// fingerprint is computed from the raw step list at parse time.
	fingerprint string
}

// Steps is an ordered step list.
type Steps []Step

// Step is one traversal step. Arg is nil for bare steps and for explicit
// null arguments.
type Step struct {
	Op   string
	Arg  *yaml.Node
	Line int
}

// UnmarshalYAML accepts "count" and {out: knows} forms.
func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	s.Line = n.Line
	switch n.Kind {
	case yaml.ScalarNode:
		s.Op = n.Value
		return nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return fmt.Errorf("line %d: step must have exactly one key, got %d", n.Line, len(n.Content)/2)
		}
		s.Op = n.Content[0].Value
		if arg := n.Content[1]; !isNull(arg) {
			s.Arg = arg
		}
		return nil
	default:
		return fmt.Errorf("line %d: step must be a name or a mapping", n.Line)
	}
}

// isNull reports an absent or explicitly null node. A yaml.Node struct
// field whose key is missing decodes to the zero Node.
func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// Fingerprint identifies the query's steps independent of name, layout
// and key order.
func (d *Document) Fingerprint() string {
	return d.fingerprint
}

// Parse decodes a single query document.
func Parse(data []byte) (*Document, error) {
	docs, err := ParseAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("expected one query document, got %d", len(docs))
	}
	return docs[0], nil
}

// ParseFile decodes the query documents in path.
func ParseFile(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close()

	docs, err := ParseAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// ParseAll decodes every document of a multi-document YAML stream.
func ParseAll(r io.Reader) ([]*Document, error) {
	dec := yaml.NewDecoder(r)
	var docs []*Document
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode query document %d: %w", len(docs), err)
		}
		doc, err := fromNode(&node)
		if err != nil {
			return nil, fmt.Errorf("query document %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errors.New("no query documents")
	}
	return docs, nil
}

func fromNode(node *yaml.Node) (*Document, error) {
	var doc Document
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Steps) == 0 {
		return nil, errors.New("query has no steps")
	}

	fp, err := doc.Steps.fingerprint()
	if err != nil {
		return nil, err
	}
	doc.fingerprint = fp
	return &doc, nil
}

// fingerprint hashes the steps as a list of {op, arg} objects so bare
// and null-argument steps agree.
func (s Steps) fingerprint() (string, error) {
	list := make([]any, len(s))
	for i, step := range s {
		var arg any
		if step.Arg != nil {
			if err := step.Arg.Decode(&arg); err != nil {
				return "", fmt.Errorf("line %d: %w", step.Line, err)
			}
		}
		list[i] = map[string]any{"op": step.Op, "arg": arg}
	}
	return ir.Fingerprint(ir.DomainQuery, list)
}
