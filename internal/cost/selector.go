package cost

import (
	"context"

	"github.com/roach88/gplan/internal/ir"
)

// DefaultStepBudget caps the transitions explored by one selection.
const DefaultStepBudget = 10000

// Selector picks the cheapest candidate of a pattern.
type Selector struct {
	// Stats supplies estimates; nil uses the defaults.
	Stats Statistics

	// StepBudget caps explored transitions; zero or less uses
	// DefaultStepBudget.
	StepBudget int

	// Pin, when set, forces the candidate with that index and skips
	// estimation.
	Pin *int

	// Input is the estimated number of rows reaching the pattern's
	// anchor. Zero uses the whole-graph vertex count.
	Input float64
}

// NewSelector returns an unpinned selector with the default budget.
func NewSelector(stats Statistics) Selector {
	return Selector{Stats: stats}
}

// WithPin returns a copy of s pinned to candidate i. A negative i clears
// the pin.
func (s Selector) WithPin(i int) Selector {
	if i < 0 {
		s.Pin = nil
		return s
	}
	s.Pin = &i
	return s
}

// Selection is the outcome of Select.
type Selection struct {
	Candidate Candidate
	Cost      float64

	// Scored is the number of complete candidates estimated.
	Scored int
	Pinned bool

	// Aborted is set when the step budget ran out; Candidate is then
	// candidate 0 and Err carries COST_ESTIMATION_ABORTED.
	Aborted bool
	Err     error
}

// Select enumerates the candidates of p and returns the cheapest. The
// only error is an out-of-range pin; budget exhaustion degrades to the
// first candidate.
func (s Selector) Select(ctx context.Context, p Pattern) (Selection, error) {
	g := BuildGraph(p)
	est := newEstimator(ctx, s, p)

	if s.Pin != nil {
		return s.pinned(g, est, *s.Pin)
	}

	budget := s.StepBudget
	if budget <= 0 {
		budget = DefaultStepBudget
	}

	var (
		sel   Selection
		first Candidate
		steps int
		index int
	)
	g.Enumerate(func(path []Step) bool {
		steps += len(path)
		if index > 0 && steps > budget {
			sel.Aborted = true
			return false
		}
		c := Candidate{Index: index, Steps: path}
		cost := est.cost(path)
		if index == 0 {
			first = c
		}
		if index == 0 || cost < sel.Cost {
			sel.Candidate, sel.Cost = c, cost
		}
		sel.Scored++
		index++
		return true
	})

	if sel.Aborted {
		sel.Err = ir.Errorf(ir.ErrCodeCostEstimationAborted,
			"step budget %d exhausted after %d candidates", budget, sel.Scored)
		sel.Candidate = first
		sel.Cost = est.cost(first.Steps)
	}
	return sel, nil
}

func (s Selector) pinned(g *Graph, est *estimator, pin int) (Selection, error) {
	var found *Candidate
	index := 0
	g.Enumerate(func(path []Step) bool {
		if index == pin {
			found = &Candidate{Index: index, Steps: path}
			return false
		}
		index++
		return true
	})
	if found == nil {
		return Selection{}, ir.NewIllegalArgumentError("pinned candidate %d out of range (%d candidates)", pin, index)
	}
	return Selection{Candidate: *found, Cost: est.cost(found.Steps), Pinned: true}, nil
}

// estimator scores candidates as the sum of the estimated row counts
// after every step. Lookups are cached per selection.
type estimator struct {
	ctx      context.Context
	stats    Statistics
	pattern  Pattern
	input    float64
	vertices float64
	degrees  map[Step]float64
}

func newEstimator(ctx context.Context, s Selector, p Pattern) *estimator {
	e := &estimator{ctx: ctx, stats: s.Stats, pattern: p, degrees: make(map[Step]float64)}
	e.vertices = DefaultVertexCount
	if s.Stats != nil {
		if n, ok := s.Stats.VertexCount(ctx, ""); ok && n > 0 {
			e.vertices = n
		}
	}
	e.input = s.Input
	if e.input <= 0 {
		e.input = e.vertices
	}
	return e
}

func (e *estimator) cost(path []Step) float64 {
	var rows, total float64
	for _, st := range path {
		switch st.Kind {
		case StepStart:
			rows = e.input
			if st.Binding != e.pattern.Start {
				rows = e.vertices
				total += e.input
			}
		case StepExpand:
			rows *= e.degree(st)
		case StepClose:
			sel := e.degree(st) / e.vertices
			if sel > 1 {
				sel = 1
			}
			rows *= sel
		}
		total += rows
	}
	return total
}

func (e *estimator) degree(st Step) float64 {
	key := Step{Dir: st.Dir, EdgeLabel: st.EdgeLabel}
	if d, ok := e.degrees[key]; ok {
		return d
	}
	d := e.lookup(st.Dir, st.EdgeLabel)
	e.degrees[key] = d
	return d
}

func (e *estimator) lookup(dir Direction, label string) float64 {
	if e.stats == nil {
		if dir == Both {
			return 2 * DefaultDegree
		}
		return DefaultDegree
	}
	get := func(d Direction) float64 {
		var v float64
		var ok bool
		if d == In {
			v, ok = e.stats.InDegree(e.ctx, label)
		} else {
			v, ok = e.stats.OutDegree(e.ctx, label)
		}
		if !ok {
			return DefaultDegree
		}
		return v
	}
	if dir == Both {
		return get(Out) + get(In)
	}
	return get(dir)
}
