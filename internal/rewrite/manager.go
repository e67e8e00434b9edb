package rewrite

import (
	"log/slog"
	"slices"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/tree"
)

// Pass names in pipeline order.
const (
	PassLabelPushdown = "label-pushdown"
	PassOrderTerminal = "order-terminal"
	PassOrderRange    = "order-range"
	PassRangeCount    = "range-count"
	PassEdgeProps     = "edge-props"
)

// Pass is one tree rewrite. Apply mutates t and every traversal nested in
// it, and reports whether anything changed.
type Pass interface {
	Name() string
	Apply(ctx *tree.Context, t *tree.Traversal) bool
}

// DefaultPasses returns the pipeline in order.
func DefaultPasses() []Pass {
	return []Pass{
		labelPushdown{},
		orderTerminal{},
		orderRange{},
		rangeCount{},
		edgeProps{},
	}
}

// PassNames lists the names of DefaultPasses.
func PassNames() []string {
	passes := DefaultPasses()
	out := make([]string, len(passes))
	for i, p := range passes {
		out[i] = p.Name()
	}
	return out
}

// Options configures a Manager.
type Options struct {
	// Disabled names passes to skip.
	Disabled []string

	// Logger receives one debug record per pass; nil uses slog.Default().
	Logger *slog.Logger
}

// Manager runs the rewrite pipeline.
type Manager struct {
	passes []Pass
	logger *slog.Logger
}

// NewManager returns a Manager running DefaultPasses minus the disabled
// ones. Unknown pass names are rejected.
func NewManager(opts Options) (*Manager, error) {
	names := PassNames()
	for _, d := range opts.Disabled {
		if !slices.Contains(names, d) {
			return nil, ir.NewIllegalArgumentError("unknown rewrite pass %q", d)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger}
	for _, p := range DefaultPasses() {
		if !slices.Contains(opts.Disabled, p.Name()) {
			m.passes = append(m.passes, p)
		}
	}
	return m, nil
}

// Passes returns the names of the enabled passes in order.
func (m *Manager) Passes() []string {
	out := make([]string, len(m.passes))
	for i, p := range m.passes {
		out[i] = p.Name()
	}
	return out
}

// Run applies every enabled pass once, in order, and returns the names of
// the passes that changed the tree.
func (m *Manager) Run(ctx *tree.Context, t *tree.Traversal) []string {
	var changed []string
	for _, p := range m.passes {
		if !p.Apply(ctx, t) {
			m.logger.Debug("rewrite pass", "pass", p.Name(), "changed", false)
			continue
		}
		refreshUsedLabels(t)
		changed = append(changed, p.Name())
		m.logger.Debug("rewrite pass", "pass", p.Name(), "changed", true, "nodes", t.Steps())
	}
	return changed
}

// eachTraversal calls fn for t and every traversal nested in it.
func eachTraversal(t *tree.Traversal, fn func(*tree.Traversal) bool) bool {
	changed := false
	for _, sub := range t.Traversals() {
		if fn(sub) {
			changed = true
		}
	}
	return changed
}

func refreshUsedLabels(t *tree.Traversal) {
	for _, n := range t.Nodes() {
		n.RefreshUsedLabels()
	}
}

// unconditioned reports whether n carries no labels or requirements, so
// it can be dropped or merged without losing a binding.
func unconditioned(n *tree.Node) bool {
	return len(n.Labels) == 0 && n.Before.Empty() && n.After.Empty()
}
