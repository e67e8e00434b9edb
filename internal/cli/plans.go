package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/store"
)

// PlansOptions holds flags for the plans commands.
type PlansOptions struct {
	*RootOptions
	Query string // filter by query fingerprint
}

// ArchivedPlan is the JSON form of a stored plan.
type ArchivedPlan struct {
	Fingerprint      string          `json:"fingerprint"`
	QueryFingerprint string          `json:"query_fingerprint"`
	CompilationID    string          `json:"compilation_id"`
	Seq              int64           `json:"seq"`
	CompilerVersion  string          `json:"compiler_version"`
	FormatVersion    string          `json:"format_version"`
	Explain          string          `json:"explain,omitempty"`
	Plan             json.RawMessage `json:"plan,omitempty"`
}

// NewPlansCommand creates the plans command group.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect plans archived by compile --db",
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List archived plans in compilation order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlansList(opts, cmd)
		},
	}
	listCmd.Flags().StringVar(&opts.Query, "query", "", "only plans compiled from this query fingerprint")

	showCmd := &cobra.Command{
		Use:           "show <fingerprint>",
		Short:         "Print one archived plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlansShow(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func runPlansList(opts *PlansOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer st.Close()

	var recs []store.PlanRecord
	if opts.Query != "" {
		recs, err = st.ReadPlansForQuery(cmd.Context(), opts.Query)
	} else {
		recs, err = st.ReadAllPlans(cmd.Context())
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	if f.JSON() {
		out := make([]ArchivedPlan, len(recs))
		for i, r := range recs {
			out[i] = archivedPlan(r, false)
		}
		return f.Success(out)
	}
	if len(recs) == 0 {
		fmt.Fprintln(f.Writer, "No archived plans.")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(f.Writer, "%6d  %s  query %s  %s\n",
			r.Seq, shortFingerprint(r.Fingerprint), shortFingerprint(r.QueryFingerprint), r.CompilationID)
	}
	return nil
}

func runPlansShow(opts *PlansOptions, fingerprint string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ReadPlan(cmd.Context(), fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no plan with fingerprint %s", fingerprint))
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	if f.JSON() {
		return f.Success(archivedPlan(rec, true))
	}
	fmt.Fprintf(f.Writer, "# plan %s\n# query %s\n# compilation %s seq %d (compiler %s, format %s)\n",
		rec.Fingerprint, rec.QueryFingerprint, rec.CompilationID, rec.Seq, rec.CompilerVersion, rec.FormatVersion)
	fmt.Fprint(f.Writer, rec.Explain)
	return nil
}

func archivedPlan(r store.PlanRecord, full bool) ArchivedPlan {
	p := ArchivedPlan{
		Fingerprint:      r.Fingerprint,
		QueryFingerprint: r.QueryFingerprint,
		CompilationID:    r.CompilationID,
		Seq:              r.Seq,
		CompilerVersion:  r.CompilerVersion,
		FormatVersion:    r.FormatVersion,
	}
	if full {
		p.Explain = r.Explain
		p.Plan = r.Plan
	}
	return p
}
