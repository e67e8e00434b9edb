package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/testutil"
)

const queriesYAML = `name: counted
steps: [v, {out: knows}, count]
---
name: limited
steps: [v, {limit: 5}, count]
`

const brokenYAML = `name: broken
steps: [v, {select: nowhere}]
`

const statsYAML = `vertices:
  person: 1000
  software: 50
edges:
  knows: {count: 5000, out_degree: 5, in_degree: 5}
  created: {count: 200, out_degree: 0.2, in_degree: 4}
`

// fixtures is a directory of CLI inputs.
type fixtures struct {
	dir     string
	schema  string
	stats   string
	queries string
	broken  string
	db      string
}

func writeFixtures(t *testing.T) fixtures {
	t.Helper()
	dir := t.TempDir()
	fx := fixtures{
		dir:     dir,
		schema:  filepath.Join(dir, "schema.cue"),
		stats:   filepath.Join(dir, "stats.yaml"),
		queries: filepath.Join(dir, "queries.yaml"),
		broken:  filepath.Join(dir, "broken.yaml"),
		db:      filepath.Join(dir, "gplan.db"),
	}
	files := map[string]string{
		fx.schema:  testutil.ModernCUE,
		fx.stats:   statsYAML,
		fx.queries: queriesYAML,
		fx.broken:  brokenYAML,
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return fx
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeData unmarshals the data field of a JSON response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
