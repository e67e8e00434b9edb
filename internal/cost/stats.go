package cost

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults used when a provider has no entry for a label.
const (
	DefaultVertexCount = 1000.0
	DefaultDegree      = 10.0
)

// AllLabels is the key under which whole-graph figures are stored.
const AllLabels = "*"

// Statistics supplies label-level cardinality estimates. Implementations
// are best effort: a false second result means "unknown" and the caller
// falls back to a default. An empty label means every label.
type Statistics interface {
	VertexCount(ctx context.Context, label string) (float64, bool)
	OutDegree(ctx context.Context, edgeLabel string) (float64, bool)
	InDegree(ctx context.Context, edgeLabel string) (float64, bool)
}

// EdgeStats holds per-edge-label degree averages.
type EdgeStats struct {
	Count     float64 `yaml:"count"`
	OutDegree float64 `yaml:"out_degree"`
	InDegree  float64 `yaml:"in_degree"`
}

// TableStatistics is an in-memory Statistics loaded from YAML:
//
//	vertices:
//	  person: 4
//	  software: 2
//	edges:
//	  knows: {count: 2, out_degree: 1.0, in_degree: 0.5}
type TableStatistics struct {
	Vertices map[string]float64  `yaml:"vertices"`
	Edges    map[string]EdgeStats `yaml:"edges"`
}

// ParseStatistics decodes a YAML statistics document.
func ParseStatistics(data []byte) (*TableStatistics, error) {
	var ts TableStatistics
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("parse statistics: %w", err)
	}
	if err := ts.validate(); err != nil {
		return nil, err
	}
	return &ts, nil
}

// LoadStatistics reads a YAML statistics file.
func LoadStatistics(path string) (*TableStatistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read statistics %s: %w", path, err)
	}
	ts, err := ParseStatistics(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

func (t *TableStatistics) validate() error {
	for label, n := range t.Vertices {
		if n < 0 {
			return fmt.Errorf("vertex count for %q is negative", label)
		}
	}
	for label, e := range t.Edges {
		if e.Count < 0 || e.OutDegree < 0 || e.InDegree < 0 {
			return fmt.Errorf("edge statistics for %q are negative", label)
		}
	}
	return nil
}

// VertexCount implements Statistics. Without an explicit "*" entry the
// whole-graph count is the sum over labels.
func (t *TableStatistics) VertexCount(_ context.Context, label string) (float64, bool) {
	if t == nil || len(t.Vertices) == 0 {
		return 0, false
	}
	if label == "" {
		if n, ok := t.Vertices[AllLabels]; ok {
			return n, true
		}
		var sum float64
		for _, n := range t.Vertices {
			sum += n
		}
		return sum, true
	}
	n, ok := t.Vertices[label]
	return n, ok
}

// OutDegree implements Statistics.
func (t *TableStatistics) OutDegree(_ context.Context, edgeLabel string) (float64, bool) {
	return t.degree(edgeLabel, func(e EdgeStats) float64 { return e.OutDegree })
}

// InDegree implements Statistics.
func (t *TableStatistics) InDegree(_ context.Context, edgeLabel string) (float64, bool) {
	return t.degree(edgeLabel, func(e EdgeStats) float64 { return e.InDegree })
}

// degree looks up one label, or sums over every label when edgeLabel is
// empty: a vertex's any-label degree is the sum of its per-label degrees.
func (t *TableStatistics) degree(edgeLabel string, pick func(EdgeStats) float64) (float64, bool) {
	if t == nil || len(t.Edges) == 0 {
		return 0, false
	}
	if edgeLabel == "" {
		if e, ok := t.Edges[AllLabels]; ok {
			return pick(e), true
		}
		var sum float64
		for _, e := range t.Edges {
			sum += pick(e)
		}
		return sum, true
	}
	e, ok := t.Edges[edgeLabel]
	if !ok {
		return 0, false
	}
	return pick(e), true
}
