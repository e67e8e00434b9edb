package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: counted
schema: "schema: {vertexLabels: {person: 1}, edgeLabels: {knows: 10}}"
query:
  steps: [v, {out: knows}, count]
expect:
  ops: [SOURCE_VERTEX, VERTEX_HOP, COUNT]
`

const failingScenario = `name: wrong_ops
schema: "schema: {vertexLabels: {person: 1}}"
query:
  steps: [v, count]
expect:
  ops: [SOURCE_VERTEX, GROUP]
`

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommand_Passes(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"counted.yaml": passingScenario})
	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counted")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommand_Fails(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"counted.yaml":   passingScenario,
		"wrong_ops.yaml": failingScenario,
	})
	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	var result TestResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Total)
}

func TestTestCommand_Filter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"counted.yaml":   passingScenario,
		"wrong_ops.yaml": failingScenario,
	})
	out, err := execute(t, "test", dir, "--filter", "count*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_Golden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"counted.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "counted.golden")

	_, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# counted\n")
	assert.Contains(t, string(data), "#2 VERTEX_HOP")

	_, err = execute(t, "test", dir)
	require.NoError(t, err, "golden files are skipped as scenarios and match")

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0o644))
	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "plan does not match golden file")
}

func TestTestCommand_Errors(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))

	_, err = execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_Empty(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "description: no name\n"})
	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
