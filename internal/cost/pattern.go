package cost

import (
	"fmt"
	"strings"

	"github.com/roach88/gplan/internal/ir"
)

// MaxHops bounds the size of a pattern.
const MaxHops = 16

// Direction of a hop's edge relative to its From binding.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

// Reverse is the direction seen from the other endpoint.
func (d Direction) Reverse() Direction {
	switch d {
	case Out:
		return In
	case In:
		return Out
	}
	return d
}

// Hop is one edge of a pattern between two bindings.
type Hop struct {
	From      string
	To        string
	EdgeLabel string
	Dir       Direction
}

func (h Hop) String() string {
	label := h.EdgeLabel
	if label == "" {
		label = "*"
	}
	switch h.Dir {
	case In:
		return h.From + "<-" + label + "-" + h.To
	case Both:
		return h.From + "-" + label + "-" + h.To
	}
	return h.From + "-" + label + "->" + h.To
}

// Pattern is a connected set of hops anchored at Start. Bindings lists
// every binding in first-seen order, Start first.
type Pattern struct {
	Start    string
	Bindings []string
	Hops     []Hop
}

// NewPattern builds a pattern and checks it is non-empty, bounded and
// connected to start.
func NewPattern(start string, hops ...Hop) (Pattern, error) {
	if start == "" {
		return Pattern{}, ir.NewIllegalArgumentError("pattern needs a start binding")
	}
	if len(hops) == 0 {
		return Pattern{}, ir.NewIllegalArgumentError("pattern needs at least one hop")
	}
	if len(hops) > MaxHops {
		return Pattern{}, ir.NewIllegalArgumentError("pattern has %d hops, at most %d are supported", len(hops), MaxHops)
	}
	p := Pattern{Start: start, Hops: append([]Hop(nil), hops...)}
	seen := map[string]bool{start: true}
	p.Bindings = []string{start}
	for i, h := range hops {
		if h.From == "" || h.To == "" {
			return Pattern{}, ir.NewIllegalArgumentError("hop %d needs both endpoints", i)
		}
		if h.Dir == "" {
			p.Hops[i].Dir = Out
		}
		for _, b := range []string{h.From, h.To} {
			if !seen[b] {
				seen[b] = true
				p.Bindings = append(p.Bindings, b)
			}
		}
	}
	if err := p.checkConnected(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

func (p Pattern) checkConnected() error {
	reached := map[string]bool{p.Start: true}
	for changed := true; changed; {
		changed = false
		for _, h := range p.Hops {
			if reached[h.From] != reached[h.To] {
				reached[h.From], reached[h.To] = true, true
				changed = true
			}
		}
	}
	for _, b := range p.Bindings {
		if !reached[b] {
			return ir.NewIllegalArgumentError("binding %q is not connected to %q", b, p.Start)
		}
	}
	return nil
}

func (p Pattern) bindingIndex(name string) int {
	for i, b := range p.Bindings {
		if b == name {
			return i
		}
	}
	return -1
}

// StepKind classifies a candidate step.
type StepKind string

const (
	// StepStart binds the first binding. Starting anywhere but the
	// pattern's anchor scans vertices and joins back on the anchor.
	StepStart StepKind = "start"
	// StepExpand binds a new binding by traversing a hop.
	StepExpand StepKind = "expand"
	// StepClose checks a hop whose endpoints are both bound.
	StepClose StepKind = "close"
)

// Step is one transition of the candidate graph.
type Step struct {
	Kind StepKind
	// Binding is bound by start and expand steps.
	Binding string
	// Hop indexes Pattern.Hops; -1 for start steps.
	Hop int
	// From is the binding the hop is traversed from.
	From string
	// Dir is the hop direction seen from From.
	Dir       Direction
	EdgeLabel string
}

func (s Step) String() string {
	switch s.Kind {
	case StepStart:
		return "start(" + s.Binding + ")"
	case StepExpand:
		return fmt.Sprintf("expand(%s.%s(%s)->%s)", s.From, s.Dir, s.EdgeLabel, s.Binding)
	}
	return fmt.Sprintf("close(#%d from %s)", s.Hop, s.From)
}

// Candidate is one complete expansion order.
type Candidate struct {
	Index int
	Steps []Step
}

func (c Candidate) String() string {
	parts := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// Transition is an edge of the candidate graph.
type Transition struct {
	Step Step
	To   int
}

// State is a node of the candidate graph.
type State struct {
	Bound   uint64
	Covered uint64
	Out     []Transition
}

type stateKey struct{ bound, covered uint64 }

// Graph is the candidate graph of a pattern. State 0 is the empty state;
// states are numbered in construction order.
type Graph struct {
	Pattern Pattern
	States  []State

	index map[stateKey]int
	final uint64
}

// BuildGraph constructs every reachable state of p depth-first.
//
// From the empty state a start transition exists for every binding, the
// anchor first. From any other state, if some uncovered hop has both
// endpoints bound the only transition closes the first such hop;
// otherwise each uncovered hop with exactly one bound endpoint can be
// expanded, in hop order.
func BuildGraph(p Pattern) *Graph {
	g := &Graph{
		Pattern: p,
		index:   make(map[stateKey]int),
		final:   (uint64(1) << len(p.Hops)) - 1,
	}
	g.build(0, 0)
	return g
}

// Final reports whether state i covers every hop.
func (g *Graph) Final(i int) bool { return g.States[i].Covered == g.final }

func (g *Graph) build(bound, covered uint64) int {
	key := stateKey{bound, covered}
	if id, ok := g.index[key]; ok {
		return id
	}
	id := len(g.States)
	g.index[key] = id
	g.States = append(g.States, State{Bound: bound, Covered: covered})

	var out []Transition
	for _, step := range g.steps(bound, covered) {
		nb, nc := bound, covered
		if step.Binding != "" {
			nb |= 1 << g.Pattern.bindingIndex(step.Binding)
		}
		if step.Hop >= 0 {
			nc |= 1 << step.Hop
		}
		out = append(out, Transition{Step: step, To: g.build(nb, nc)})
	}
	g.States[id].Out = out
	return id
}

func (g *Graph) steps(bound, covered uint64) []Step {
	p := g.Pattern
	if bound == 0 {
		out := make([]Step, len(p.Bindings))
		for i, b := range p.Bindings {
			out[i] = Step{Kind: StepStart, Binding: b, Hop: -1}
		}
		return out
	}
	isBound := func(name string) bool {
		return bound&(1<<p.bindingIndex(name)) != 0
	}
	for i, h := range p.Hops {
		if covered&(1<<i) == 0 && isBound(h.From) && isBound(h.To) {
			return []Step{{Kind: StepClose, Hop: i, From: h.From, Dir: h.Dir, EdgeLabel: h.EdgeLabel}}
		}
	}
	var out []Step
	for i, h := range p.Hops {
		if covered&(1<<i) != 0 {
			continue
		}
		switch {
		case isBound(h.From):
			out = append(out, Step{Kind: StepExpand, Binding: h.To, Hop: i, From: h.From, Dir: h.Dir, EdgeLabel: h.EdgeLabel})
		case isBound(h.To):
			out = append(out, Step{Kind: StepExpand, Binding: h.From, Hop: i, From: h.To, Dir: h.Dir.Reverse(), EdgeLabel: h.EdgeLabel})
		}
	}
	return out
}

// Enumerate calls fn with each candidate path in depth-first construction
// order until fn returns false.
func (g *Graph) Enumerate(fn func(steps []Step) bool) {
	var path []Step
	var walk func(state int) bool
	walk = func(state int) bool {
		if g.Final(state) {
			return fn(append([]Step(nil), path...))
		}
		for _, t := range g.States[state].Out {
			path = append(path, t.Step)
			if !walk(t.To) {
				return false
			}
			path = path[:len(path)-1]
		}
		return true
	}
	walk(0)
}
