package testutil

import "github.com/roach88/gplan/internal/cost"

// ModernStatsYAML is the YAML source of ModernStatistics.
const ModernStatsYAML = `
vertices:
  person: 4
  software: 2
edges:
  knows: {count: 2, out_degree: 0.5, in_degree: 0.5}
  created: {count: 4, out_degree: 1, in_degree: 2}
`

// ModernStatistics matches ModernSchema: four people, two programs.
func ModernStatistics() *cost.TableStatistics {
	return &cost.TableStatistics{
		Vertices: map[string]float64{"person": 4, "software": 2},
		Edges: map[string]cost.EdgeStats{
			"knows":   {Count: 2, OutDegree: 0.5, InDegree: 0.5},
			"created": {Count: 4, OutDegree: 1, InDegree: 2},
		},
	}
}
