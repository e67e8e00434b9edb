package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/schema"
)

func TestModernCUEMatchesModernSchema(t *testing.T) {
	compiled, err := schema.CompileCUE(ModernCUE, "modern.cue")
	require.NoError(t, err)
	assert.Equal(t, ModernSchema(), compiled)
}

func TestModernStatsYAMLMatchesModernStatistics(t *testing.T) {
	parsed, err := cost.ParseStatistics([]byte(ModernStatsYAML))
	require.NoError(t, err)
	assert.Equal(t, ModernStatistics(), parsed)
}
