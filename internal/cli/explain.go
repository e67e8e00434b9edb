package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExplainedQuery is the explain output for one query.
type ExplainedQuery struct {
	Name        string   `json:"name"`
	Fingerprint string   `json:"fingerprint"`
	Passes      []string `json:"passes,omitempty"`
	Explain     string   `json:"explain"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <query.yaml>",
		Short: "Print the plan of each query as text",
		Long: `Compile the queries in a file and print each plan, one vertex per
line, with its arguments, inbound edges and output type.

Explain does not archive plans.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExplain(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts, cmd)

	e, err := loadEnv(opts, f)
	if err != nil {
		return err
	}
	defer e.Close()
	// Explaining is read-only.
	e.cfg.Archive = false

	docs, err := loadQueries([]string{path}, f)
	if err != nil {
		return err
	}
	c, err := e.newCompiler()
	if err != nil {
		return f.Fail(ExitCommandError, errorCode(err), err.Error())
	}

	out := make([]ExplainedQuery, 0, len(docs))
	for _, doc := range docs {
		res, err := c.Compile(cmd.Context(), doc)
		if err != nil {
			return f.Fail(ExitFailure, errorCode(err), err.Error())
		}
		out = append(out, ExplainedQuery{
			Name:        doc.Name,
			Fingerprint: res.Fingerprint,
			Passes:      res.Passes,
			Explain:     res.Plan.Explain(),
		})
	}

	if f.JSON() {
		return f.Success(out)
	}
	for i, q := range out {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		fmt.Fprintf(f.Writer, "# %s %s\n", displayName(q.Name), shortFingerprint(q.Fingerprint))
		for _, p := range q.Passes {
			fmt.Fprintf(f.Writer, "# pass %s\n", p)
		}
		fmt.Fprint(f.Writer, q.Explain)
	}
	return nil
}
