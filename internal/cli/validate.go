package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/query"
	"github.com/roach88/gplan/internal/tree"
)

// ValidationResult holds the outcome for one query document.
type ValidationResult struct {
	Name  string    `json:"name"`
	Valid bool      `json:"valid"`
	Type  string    `json:"type,omitempty"`
	Steps int       `json:"steps,omitempty"`
	Error *CLIError `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query.yaml>...",
		Short: "Check queries against the schema without planning",
		Long: `Build each query's traversal tree and check labels, property names
and projections against the schema. No statistics are needed and no plan
is produced; faster than compile for development feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := formatter(opts, cmd)

	sch, err := loadSchema(opts, f)
	if err != nil {
		return err
	}
	docs, err := loadQueries(paths, f)
	if err != nil {
		return err
	}

	results := make([]ValidationResult, len(docs))
	invalid := 0
	for i, doc := range docs {
		results[i] = validateDocument(tree.NewContext(sch), doc)
		if !results[i].Valid {
			invalid++
		}
	}

	if f.JSON() {
		if err := f.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(f.Writer, "✓ %s  %d steps  :: %s\n", displayName(r.Name), r.Steps, r.Type)
				continue
			}
			fmt.Fprintf(f.Writer, "✗ %s\n  %s: %s\n", displayName(r.Name), r.Error.Code, r.Error.Message)
		}
	}
	if invalid > 0 {
		return exitWith(ExitFailure, fmt.Sprintf("%d of %d queries invalid", invalid, len(results)))
	}
	return nil
}

func validateDocument(ctx *tree.Context, doc *query.Document) ValidationResult {
	r := ValidationResult{Name: doc.Name}
	t, err := query.Build(ctx, doc)
	if err == nil {
		err = tree.Validate(ctx, t)
	}
	if err != nil {
		r.Error = &CLIError{Code: errorCode(err), Message: err.Error()}
		return r
	}
	r.Valid = true
	r.Steps = t.Steps()
	if typ, err := tree.NewTyper(ctx).TraversalType(t); err == nil {
		r.Type = typ.String()
	}
	return r
}
