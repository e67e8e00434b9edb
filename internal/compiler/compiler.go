package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/lower"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/query"
	"github.com/roach88/gplan/internal/rewrite"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/store"
	"github.com/roach88/gplan/internal/tree"
)

// Archive persists compiled plans. Implemented by *store.Store.
type Archive interface {
	WritePlan(ctx context.Context, rec store.PlanRecord) (bool, error)
}

// Compiler compiles queries against one schema. Safe for concurrent use.
type Compiler struct {
	schema  schema.Lookup
	stats   cost.Statistics
	cfg     Config
	archive Archive
	logger  *slog.Logger
	ids     IDGenerator
	clock   Clock
	rewrite *rewrite.Manager
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(c *Compiler) { c.cfg = cfg }
}

// WithStatistics sets the cardinality source for match selection.
func WithStatistics(stats cost.Statistics) Option {
	return func(c *Compiler) { c.stats = stats }
}

// WithArchive enables plan archiving when the config allows it.
func WithArchive(a Archive) Option {
	return func(c *Compiler) { c.archive = a }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithIDGenerator replaces the UUIDv7 compilation id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Compiler) { c.ids = g }
}

// WithClock replaces the sequence clock.
func WithClock(clk Clock) Option {
	return func(c *Compiler) { c.clock = clk }
}

// New returns a Compiler for s. The config is validated here so Compile
// never sees a bad one.
func New(s schema.Lookup, opts ...Option) (*Compiler, error) {
	if s == nil {
		return nil, ir.NewIllegalArgumentError("compiler needs a schema")
	}
	c := &Compiler{
		schema: s,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		clock:  &Counter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	mgr, err := rewrite.NewManager(rewrite.Options{
		Disabled: c.cfg.DisabledPasses,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, err
	}
	c.rewrite = mgr
	return c, nil
}

// Config returns the active configuration.
func (c *Compiler) Config() Config { return c.cfg }

// NewContext returns a fresh tree context for building a traversal by
// hand. Pass it with the traversal to CompileTraversal.
func (c *Compiler) NewContext() *tree.Context {
	return tree.NewContext(c.schema)
}

// Result is one successful compilation.
type Result struct {
	CompilationID string
	Seq           int64

	QueryName        string
	QueryFingerprint string

	Plan        *plan.Plan
	Fingerprint string

	// Passes lists the rewrite passes that changed the tree, in order.
	Passes []string

	// Selections records the expansion order chosen for each match step.
	Selections []lower.MatchSelection

	// Warnings holds non-fatal errors (COST_ESTIMATION_ABORTED).
	Warnings []error

	// Archived is set when the plan was newly written to the archive.
	Archived bool
}

// Compile builds doc into a traversal and compiles it.
func (c *Compiler) Compile(ctx context.Context, doc *query.Document) (*Result, error) {
	if doc == nil {
		return nil, errNilDocument
	}
	tctx := c.NewContext()
	return c.run(ctx, doc.Name, doc.Fingerprint(), tctx, func(ctx context.Context) (*tree.Traversal, error) {
		return query.Build(tctx, doc)
	})
}

// CompileTraversal compiles a traversal built in tctx, which must come
// from NewContext. The traversal is rewritten in place.
func (c *Compiler) CompileTraversal(ctx context.Context, name string, tctx *tree.Context, t *tree.Traversal) (*Result, error) {
	return c.run(ctx, name, "", tctx, func(context.Context) (*tree.Traversal, error) {
		return t, t.Err()
	})
}

func (c *Compiler) run(ctx context.Context, name, queryFP string, tctx *tree.Context, build func(context.Context) (*tree.Traversal, error)) (*Result, error) {
	id := c.ids.Generate()
	start := time.Now()
	logger := c.logger.With("compilation_id", id, "query", name)

	ctx, span := startCompileSpan(ctx, name, id)
	res, err := c.compile(ctx, logger, tctx, build)
	if res != nil {
		res.CompilationID = id
		res.QueryName = name
		res.QueryFingerprint = queryFP
		setCompileSpanResult(span, res)
	}
	endSpan(span, err)
	recordCompileMetrics(ctx, time.Since(start), res, err)

	if err != nil {
		logger.Debug("compile failed", "code", ir.CodeOf(err), "err", err)
		return nil, err
	}

	if c.archive != nil && c.cfg.Archive {
		if err := c.archivePlan(ctx, res); err != nil {
			return nil, err
		}
	}
	logger.Info("compiled query",
		"seq", res.Seq,
		"vertices", res.Plan.Len(),
		"fingerprint", res.Fingerprint,
		"passes", res.Passes,
		"archived", res.Archived)
	return res, nil
}

func (c *Compiler) compile(ctx context.Context, logger *slog.Logger, tctx *tree.Context, build func(context.Context) (*tree.Traversal, error)) (*Result, error) {
	t, err := phase(ctx, "Build", build)
	if err != nil {
		return nil, err
	}
	if c.cfg.MaxNodes > 0 && t.Steps() > c.cfg.MaxNodes {
		return nil, ir.NewIllegalArgumentError("traversal has %d steps, limit is %d", t.Steps(), c.cfg.MaxNodes)
	}

	if _, err := phase(ctx, "Validate", func(context.Context) (struct{}, error) {
		return struct{}{}, tree.Validate(tctx, t)
	}); err != nil {
		return nil, err
	}

	passes, _ := phase(ctx, "Rewrite", func(context.Context) ([]string, error) {
		return c.rewrite.Run(tctx, t), nil
	})

	selector := cost.NewSelector(c.stats)
	selector.StepBudget = c.cfg.StepBudget
	lw := lower.New(tctx, lower.Config{Selector: selector, Logger: logger})
	p, err := phase(ctx, "Lower", func(ctx context.Context) (*plan.Plan, error) {
		return lw.Lower(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	fp, err := p.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint plan: %w", err)
	}

	res := &Result{
		Seq:         c.clock.Next(),
		Plan:        p,
		Fingerprint: fp,
		Passes:      passes,
		Selections:  lw.Selections(),
	}
	for _, sel := range res.Selections {
		if sel.Aborted {
			res.Warnings = append(res.Warnings, ir.AttachNode(sel.Err, sel.NodeID, string(tree.KindMatch)))
		}
	}
	return res, nil
}

// phase runs fn inside a child span.
func phase[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := startPhase(ctx, name)
	v, err := fn(ctx)
	endSpan(span, err)
	return v, err
}

func (c *Compiler) archivePlan(ctx context.Context, res *Result) error {
	encoded, err := res.Plan.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	written, err := c.archive.WritePlan(ctx, store.PlanRecord{
		Fingerprint:      res.Fingerprint,
		QueryFingerprint: res.QueryFingerprint,
		CompilationID:    res.CompilationID,
		Seq:              res.Seq,
		Plan:             encoded,
		Explain:          res.Plan.Explain(),
		CompilerVersion:  ir.CompilerVersion,
		FormatVersion:    ir.PlanFormatVersion,
	})
	if err != nil {
		return fmt.Errorf("archive plan: %w", err)
	}
	res.Archived = written
	return nil
}

// IsWarning reports whether err is a non-fatal compile diagnostic.
func IsWarning(err error) bool {
	return ir.IsCode(err, ir.ErrCodeCostEstimationAborted)
}

var errNilDocument = ir.NewIllegalArgumentError("nil query document")
