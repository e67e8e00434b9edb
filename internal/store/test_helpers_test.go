package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/gplan/internal/cost"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPlan builds a plan record with minimal required fields.
func createTestPlan(fp, queryFP string, seq int64) PlanRecord {
	return PlanRecord{
		Fingerprint:      fp,
		QueryFingerprint: queryFP,
		CompilationID:    "compilation-" + fp,
		Seq:              seq,
		Plan:             []byte(`{"vertices":[]}`),
		Explain:          "0 SOURCE_VERTEX",
		CompilerVersion:  "0.1.0",
		FormatVersion:    "1",
	}
}

// socialStatistics is a small social graph: people who know each other
// and create software.
func socialStatistics() *cost.TableStatistics {
	return &cost.TableStatistics{
		Vertices: map[string]float64{
			"person":   1000,
			"software": 50,
		},
		Edges: map[string]cost.EdgeStats{
			"knows":   {Count: 5000, OutDegree: 5, InDegree: 5},
			"created": {Count: 200, OutDegree: 0.2, InDegree: 4},
		},
	}
}
