package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"queries": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{"text", "text", func(t *testing.T, out string) {
			assert.Equal(t, "Error [UNKNOWN_LABEL]: label \"a\" is not bound\n", out)
		}},
		{"json", "json", func(t *testing.T, out string) {
			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, CLIError{Code: "UNKNOWN_LABEL", Message: "label \"a\" is not bound"}, *resp.Error)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: tt.format, Writer: buf}

			err := f.Fail(ExitFailure, "UNKNOWN_LABEL", "label \"a\" is not bound")
			assert.Equal(t, ExitFailure, ExitCode(err))
			assert.Equal(t, "UNKNOWN_LABEL: label \"a\" is not bound", err.Error())
			tt.check(t, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	f.VerboseLog("Loaded %d query document(s)", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "Loaded 2 query document(s)\n", diag.String())

	f.Verbose = false
	f.VerboseLog("dropped")
	assert.NotContains(t, diag.String(), "dropped")
}

func TestOutputFormatter_VerboseLogFallsBackToWriter(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, Verbose: true}

	f.VerboseLog("Wrote plans to %s", "plans.json")
	assert.Equal(t, "Wrote plans to plans.json\n", out.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, ExitCode(exitWith(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("unknown flag")))

	wrapped := fmt.Errorf("compile: %w", exitWith(ExitCommandError, "no schema"))
	assert.Equal(t, ExitCommandError, ExitCode(wrapped))
	assert.Equal(t, "compile: no schema", wrapped.Error())
}
