package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/store"
)

// StatsOptions holds flags for the stats commands.
type StatsOptions struct {
	*RootOptions
	Replace bool
}

// NewStatsCommand creates the stats command group.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Manage label statistics in the store",
	}

	importCmd := &cobra.Command{
		Use:   "import <stats.yaml>",
		Short: "Load a YAML statistics file into the store",
		Long: `Load vertex counts and edge degrees into the --db store. Existing
rows for the same labels are overwritten; --replace clears the tables
first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatsImport(opts, args[0], cmd)
		},
	}
	importCmd.Flags().BoolVar(&opts.Replace, "replace", false, "clear existing statistics first")

	showCmd := &cobra.Command{
		Use:           "show",
		Short:         "Print the statistics held in the store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatsShow(opts, cmd)
		},
	}

	cmd.AddCommand(importCmd, showCmd)
	return cmd
}

// openStore opens the --db store.
func openStore(opts *RootOptions, f *OutputFormatter) (*store.Store, error) {
	if opts.DB == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "--db is required")
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	return st, nil
}

func runStatsImport(opts *StatsOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	ts, err := cost.LoadStatistics(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStatistics, err.Error())
	}
	st, err := openStore(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ImportStatistics(cmd.Context(), ts, opts.Replace); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	summary := map[string]int{"vertex_labels": len(ts.Vertices), "edge_labels": len(ts.Edges)}
	if f.JSON() {
		return f.Success(summary)
	}
	fmt.Fprintf(f.Writer, "✓ Imported %d vertex label(s), %d edge label(s) into %s\n",
		len(ts.Vertices), len(ts.Edges), opts.DB)
	return nil
}

func runStatsShow(opts *StatsOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer st.Close()

	ts, err := st.ReadStatistics(cmd.Context())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	if f.JSON() {
		return f.Success(ts)
	}
	return printStatistics(f.Writer, ts)
}

// printStatistics writes ts in the YAML form stats import accepts, with
// labels sorted.
func printStatistics(w io.Writer, ts *cost.TableStatistics) error {
	if len(ts.Vertices) == 0 && len(ts.Edges) == 0 {
		fmt.Fprintln(w, "No statistics.")
		return nil
	}
	var b strings.Builder
	b.WriteString("vertices:\n")
	for _, label := range sortedKeys(ts.Vertices) {
		fmt.Fprintf(&b, "  %s: %g\n", yamlKey(label), ts.Vertices[label])
	}
	b.WriteString("edges:\n")
	for _, label := range sortedKeys(ts.Edges) {
		e := ts.Edges[label]
		fmt.Fprintf(&b, "  %s: {count: %g, out_degree: %g, in_degree: %g}\n",
			yamlKey(label), e.Count, e.OutDegree, e.InDegree)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// yamlKey quotes keys YAML would not read back as plain strings, such as
// the all-labels key "*".
func yamlKey(k string) string {
	out, err := yaml.Marshal(k)
	if err != nil {
		return k
	}
	return strings.TrimSuffix(string(out), "\n")
}
