package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Schema is the CUE graph schema file.
	Schema string

	// Stats is a YAML statistics file. It takes precedence over DB.
	Stats string

	// DB is the SQLite store holding statistics and archived plans.
	DB string

	// Config is a YAML compiler config file.
	Config string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gplan",
		Short: "gplan - graph traversal plan compiler",
		Long: `Compile graph traversal queries into distributed execution plans.

Queries are YAML step lists checked against a CUE graph schema. Plans are
costed with label statistics from a YAML file or a SQLite store.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "CUE graph schema file")
	cmd.PersistentFlags().StringVar(&opts.Stats, "stats", "", "YAML statistics file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite store for statistics and plans")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "YAML compiler config file")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewPlansCommand(opts))

	return cmd
}
