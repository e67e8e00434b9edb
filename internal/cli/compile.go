package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // plan file path
}

// CompiledQuery is the per-query outcome of compile.
type CompiledQuery struct {
	Name             string          `json:"name"`
	QueryFingerprint string          `json:"query_fingerprint"`
	CompilationID    string          `json:"compilation_id,omitempty"`
	Seq              int64           `json:"seq,omitempty"`
	Fingerprint      string          `json:"fingerprint,omitempty"`
	Vertices         int             `json:"vertices,omitempty"`
	Passes           []string        `json:"passes,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	Archived         bool            `json:"archived,omitempty"`
	Plan             json.RawMessage `json:"plan,omitempty"`
	Error            *CLIError       `json:"error,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.yaml>...",
		Short: "Compile queries to execution plans",
		Long: `Compile every query document in the given files.

Queries compile concurrently. With --db the plans are archived in the
store and statistics are read from it unless --stats is given.

Exit codes:
  0 - All queries compiled
  1 - One or more queries failed
  2 - Command error (missing schema, unreadable file, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write plans as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	e, err := loadEnv(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer e.Close()

	docs, err := loadQueries(paths, f)
	if err != nil {
		return err
	}
	c, err := e.newCompiler()
	if err != nil {
		return f.Fail(ExitCommandError, errorCode(err), err.Error())
	}

	items, err := c.CompileBatch(cmd.Context(), docs)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	results := make([]CompiledQuery, len(items))
	failed := 0
	for i, item := range items {
		results[i] = compiledQuery(docs[i].Name, docs[i].Fingerprint(), item)
		if results[i].Error != nil {
			failed++
		}
	}

	if opts.Output != "" {
		if err := writePlans(opts.Output, results); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		f.VerboseLog("Wrote plans to %s", opts.Output)
	}

	if f.JSON() {
		if err := f.Success(results); err != nil {
			return err
		}
	} else {
		printCompiled(f, results)
	}
	if failed > 0 {
		return exitWith(ExitFailure, fmt.Sprintf("%d of %d queries failed", failed, len(results)))
	}
	return nil
}

func compiledQuery(name, queryFP string, item compiler.BatchItem) CompiledQuery {
	out := CompiledQuery{Name: name, QueryFingerprint: queryFP}
	if item.Err != nil {
		out.Error = &CLIError{Code: errorCode(item.Err), Message: item.Err.Error()}
		return out
	}
	res := item.Result
	out.CompilationID = res.CompilationID
	out.Seq = res.Seq
	out.Fingerprint = res.Fingerprint
	out.Vertices = res.Plan.Len()
	out.Passes = res.Passes
	out.Archived = res.Archived
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	if data, err := res.Plan.MarshalCanonical(); err == nil {
		out.Plan = data
	} else {
		out.Error = &CLIError{Code: errorCode(err), Message: err.Error()}
	}
	return out
}

func printCompiled(f *OutputFormatter, results []CompiledQuery) {
	ok := 0
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(f.Writer, "✗ %s\n  %s: %s\n", displayName(r.Name), r.Error.Code, r.Error.Message)
			continue
		}
		ok++
		fmt.Fprintf(f.Writer, "✓ %s  %s  %d vertices", displayName(r.Name), shortFingerprint(r.Fingerprint), r.Vertices)
		if len(r.Passes) > 0 {
			fmt.Fprintf(f.Writer, "  passes: %s", strings.Join(r.Passes, ", "))
		}
		if r.Archived {
			fmt.Fprint(f.Writer, "  (archived)")
		}
		fmt.Fprintln(f.Writer)
		for _, w := range r.Warnings {
			fmt.Fprintf(f.Writer, "  warning: %s\n", w)
		}
	}
	fmt.Fprintf(f.Writer, "\nCompiled %d of %d queries\n", ok, len(results))
}

// writePlans writes the successful plans as a JSON object keyed by query
// name, falling back to the query fingerprint for unnamed queries.
func writePlans(path string, results []CompiledQuery) error {
	plans := map[string]json.RawMessage{}
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		key := r.Name
		if key == "" {
			key = r.QueryFingerprint
		}
		plans[key] = r.Plan
	}
	data, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plans: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
