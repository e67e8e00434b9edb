package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/query"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/store"
)

// CLI error codes. Compile failures use the compile error code instead.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeNoQueries   = "E003" // No query documents
	ErrCodeSchema      = "E004" // Schema missing or invalid
	ErrCodeStatistics  = "E005" // Statistics file invalid
	ErrCodeConfig      = "E006" // Compiler config invalid
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Store open/read/write error
	ErrCodeQuery       = "E009" // Query document unreadable
)

// env is the state shared by the compiling commands.
type env struct {
	schema *schema.Schema
	stats  cost.Statistics
	store  *store.Store
	cfg    compiler.Config
	logger *slog.Logger
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger logs warnings to w, or everything when verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadEnv reads the schema, statistics, store and config named by the
// global flags. The caller must Close the env.
func loadEnv(opts *RootOptions, f *OutputFormatter) (*env, error) {
	sch, err := loadSchema(opts, f)
	if err != nil {
		return nil, err
	}

	e := &env{schema: sch, cfg: compiler.DefaultConfig(), logger: newLogger(opts, f.diag())}
	if opts.Config != "" {
		if e.cfg, err = compiler.LoadConfig(opts.Config); err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error())
		}
	}
	if opts.DB != "" {
		if e.store, err = store.Open(opts.DB); err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		e.stats = e.store
	}
	if opts.Stats != "" {
		ts, err := cost.LoadStatistics(opts.Stats)
		if err != nil {
			e.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeStatistics, err.Error())
		}
		e.stats = ts
	}
	return e, nil
}

// loadSchema compiles the --schema file.
func loadSchema(opts *RootOptions, f *OutputFormatter) (*schema.Schema, error) {
	if opts.Schema == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeSchema, "--schema is required")
	}
	sch, err := schema.LoadCUE(opts.Schema)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeSchema, err.Error())
	}
	f.VerboseLog("Loaded schema %s", opts.Schema)
	return sch, nil
}

// newCompiler builds a compiler over the env. Plans are archived when a
// store is open.
func (e *env) newCompiler() (*compiler.Compiler, error) {
	opts := []compiler.Option{
		compiler.WithConfig(e.cfg),
		compiler.WithLogger(e.logger),
		compiler.WithClock(compiler.NewCounterAt(e.lastSeq())),
	}
	if e.stats != nil {
		opts = append(opts, compiler.WithStatistics(e.stats))
	}
	if e.store != nil {
		opts = append(opts, compiler.WithArchive(e.store))
	}
	return compiler.New(e.schema, opts...)
}

// lastSeq continues sequence numbers after the newest archived plan.
func (e *env) lastSeq() int64 {
	if e.store == nil {
		return 0
	}
	plans, err := e.store.ReadAllPlans(context.Background())
	if err != nil || len(plans) == 0 {
		return 0
	}
	return plans[len(plans)-1].Seq
}

// loadQueries parses every document in the given files.
func loadQueries(paths []string, f *OutputFormatter) ([]*query.Document, error) {
	var docs []*query.Document
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("query file not found: %s", p))
		}
		ds, err := query.ParseFile(p)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeQuery, err.Error())
		}
		f.VerboseLog("Loaded %d query document(s) from %s", len(ds), p)
		docs = append(docs, ds...)
	}
	if len(docs) == 0 {
		return nil, f.Fail(ExitCommandError, ErrCodeNoQueries, "no query documents")
	}
	return docs, nil
}

// errorCode is the compile error code of err, or ErrCodeGeneric.
func errorCode(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeGeneric
}
