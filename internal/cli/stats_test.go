package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsImportAndShow(t *testing.T) {
	fx := writeFixtures(t)
	out, err := execute(t, "--db", fx.db, "stats", "import", fx.stats)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 vertex label(s), 2 edge label(s)")

	out, err = execute(t, "--db", fx.db, "stats", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "vertices:\n")
	assert.Contains(t, out, "  person: 1000\n")
	assert.Contains(t, out, "  knows: {count: 5000, out_degree: 5, in_degree: 5}\n")
	assert.Contains(t, out, "  created: {count: 200, out_degree: 0.2, in_degree: 4}\n")
}

func TestStatsShow_Empty(t *testing.T) {
	fx := writeFixtures(t)
	out, err := execute(t, "--db", fx.db, "stats", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No statistics.")
}

func TestStats_RequiresDB(t *testing.T) {
	fx := writeFixtures(t)
	out, err := execute(t, "stats", "import", fx.stats)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, out, "--db is required")
}

func TestStatsImport_BadFile(t *testing.T) {
	fx := writeFixtures(t)
	_, err := execute(t, "--db", fx.db, "stats", "import", fx.dir+"/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestCompile_UsesStoreStatistics(t *testing.T) {
	fx := writeFixtures(t)
	_, err := execute(t, "--db", fx.db, "stats", "import", fx.stats)
	require.NoError(t, err)

	out, err := execute(t, "--schema", fx.schema, "--db", fx.db, "compile", fx.queries)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 2 of 2 queries")
}

func TestYAMLKey(t *testing.T) {
	assert.Equal(t, "person", yamlKey("person"))
	assert.Equal(t, "'*'", yamlKey("*"))
}
