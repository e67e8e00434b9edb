package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/store"
	"github.com/roach88/gplan/internal/testutil"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Errors describes each failed expectation.
	Errors []string

	// Compile is nil when compilation failed.
	Compile *compiler.Result

	// Err is the compilation error, if any.
	Err error
}

// NewResult returns a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed expectation.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run compiles the scenario's query and checks its expectations.
//
// The returned error covers setup problems only (an unreadable schema,
// bad statistics or config). A compilation that fails or produces the
// wrong plan is reported through Result.
func Run(s *Scenario) (*Result, error) {
	sch, err := s.loadSchema()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	stats, err := s.loadStatistics()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := []compiler.Option{
		compiler.WithConfig(cfg),
		compiler.WithArchive(st),
		compiler.WithLogger(testutil.DiscardLogger()),
		compiler.WithIDGenerator(testutil.NewFixedIDs("")),
		compiler.WithClock(testutil.NewSequenceClock()),
	}
	if stats != nil {
		opts = append(opts, compiler.WithStatistics(stats))
	}
	c, err := compiler.New(sch, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	result := NewResult()
	doc, err := s.loadQuery()
	if err != nil {
		// Query syntax errors are compile errors and may be expected.
		result.Err = err
		checkError(result, s.Expect, err)
		return result, nil
	}

	ctx := context.Background()
	res, err := c.Compile(ctx, doc)
	result.Compile = res
	result.Err = err
	if err != nil {
		checkError(result, s.Expect, err)
		return result, nil
	}
	if s.Expect.Error != "" {
		result.AddError("expected error %s, compilation succeeded", s.Expect.Error)
		return result, nil
	}

	checkPlan(result, s.Expect, res)
	if cfg.Archive {
		checkArchive(ctx, result, st, res)
	}
	return result, nil
}

func checkError(r *Result, want Expect, err error) {
	if want.Error == "" {
		r.AddError("unexpected error: %v", err)
		return
	}
	if got := ir.CodeOf(err); string(got) != want.Error {
		r.AddError("error code: want %s, got %s (%v)", want.Error, got, err)
	}
}

func checkPlan(r *Result, want Expect, res *compiler.Result) {
	p := res.Plan
	if want.Ops != nil {
		got := make([]string, 0, p.Len())
		for _, k := range p.OpKinds() {
			got = append(got, string(k))
		}
		compareList(r, "ops", want.Ops, got)
	}
	if want.Shuffles != nil {
		edges := p.Edges()
		got := make([]string, len(edges))
		for i, e := range edges {
			got[i] = e.Shuffle.String()
		}
		compareList(r, "shuffles", want.Shuffles, got)
	}
	if want.OutputType != "" {
		sink, _ := p.Vertex(p.Sink())
		got := "<nil>"
		if sink.OutputType != nil {
			got = sink.OutputType.String()
		}
		if got != want.OutputType {
			r.AddError("output_type: want %s, got %s", want.OutputType, got)
		}
	}
	if want.Passes != nil {
		compareList(r, "passes", want.Passes, res.Passes)
	}
	if want.Warnings != nil {
		got := make([]string, len(res.Warnings))
		for i, w := range res.Warnings {
			got[i] = string(ir.CodeOf(w))
		}
		compareList(r, "warnings", want.Warnings, got)
	}
	if len(want.ExplainContains) > 0 {
		explain := p.Explain()
		for _, s := range want.ExplainContains {
			if !strings.Contains(explain, s) {
				r.AddError("explain: missing %q in\n%s", s, explain)
			}
		}
	}
}

// checkArchive verifies the plan survived the store round trip.
func checkArchive(ctx context.Context, r *Result, st *store.Store, res *compiler.Result) {
	if !res.Archived {
		r.AddError("plan %s was not archived", res.Fingerprint)
		return
	}
	rec, err := st.ReadPlan(ctx, res.Fingerprint)
	if err != nil {
		r.AddError("read archived plan: %v", err)
		return
	}
	if rec.Explain != res.Plan.Explain() {
		r.AddError("archived plan differs from compiled plan")
	}
}

func compareList(r *Result, name string, want, got []string) {
	if !slices.Equal(want, got) {
		r.AddError("%s: want %v, got %v", name, want, got)
	}
}
