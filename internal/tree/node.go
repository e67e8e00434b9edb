package tree

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/gplan/internal/plan"
)

// Node is one traversal step. It owns its predecessor (Input); the
// successor link is a weak back-reference maintained by Traversal.
type Node struct {
	ID      int
	Payload Payload

	Input *Node
	next  *Node

	// Labels are the names bound at this step.
	Labels []string

	// UsedLabels holds every label the step reads, including reads made by
	// its sub-traversals.
	UsedLabels mapset.Set[string]

	Before Requirements
	After  Requirements

	Window *Window

	// Local reports whether the step's output rows are still co-located
	// with their element's partition. Set by lowering.
	Local bool

	PreLimit          *PreLimit
	PartitionTieBreak bool

	// Vertex is the plan vertex the step was lowered to.
	Vertex plan.VertexID
}

// Window is a result window [Low, High). High < 0 is unbounded.
type Window struct {
	Low  int64
	High int64
}

// PreLimit is a partition-local top-k applied before a global order.
type PreLimit struct {
	Limit       int64
	Comparators []Comparator
}

// Kind returns the kind of the step's payload.
func (n *Node) Kind() Kind { return n.Payload.Kind() }

// Category returns the category of the step's kind.
func (n *Node) Category() Category { return n.Kind().Category() }

// Next returns the successor in the chain, or nil for a sink.
func (n *Node) Next() *Node { return n.next }

func (n *Node) String() string { return fmt.Sprintf("%s#%d", n.Kind(), n.ID) }

// Uses reports whether the step reads label.
func (n *Node) Uses(label string) bool {
	return n.UsedLabels != nil && n.UsedLabels.Contains(label)
}

// Binds reports whether the step binds label.
func (n *Node) Binds(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// RefreshUsedLabels recomputes UsedLabels from the payload and from every
// node of the step's sub-traversals.
func (n *Node) RefreshUsedLabels() {
	used := mapset.NewThreadUnsafeSet[string](payloadLabels(n.Payload)...)
	for _, ref := range Subs(n) {
		for _, sn := range ref.T.Nodes() {
			sn.RefreshUsedLabels()
			used = used.Union(sn.UsedLabels)
		}
	}
	n.UsedLabels = used
}

// payloadLabels lists the labels a payload reads directly.
func payloadLabels(p Payload) []string {
	var out []string
	switch v := p.(type) {
	case *Select:
		out = append(out, v.Labels...)
		out = byBindings(out, v.By...)
	case *Project:
		out = byBindings(out, v.By...)
	case *WhereLabel:
		if v.Start != "" {
			out = append(out, v.Start)
		}
		out = append(out, v.Other)
	case *Dedup:
		out = append(out, v.Labels...)
		if v.By != nil {
			out = byBindings(out, *v.By)
		}
	case *Join:
		out = append(out, v.Keys...)
	case *Fold:
		out = appendNonEmpty(out, v.OrderLabel)
	case *Group:
		out = appendNonEmpty(out, v.OrderLabel)
		out = byBindings(out, v.Key)
	case *GroupCount:
		out = appendNonEmpty(out, v.OrderLabel)
		out = byBindings(out, v.Key)
	case *Store:
		out = appendNonEmpty(out, v.OrderLabel)
	case *Order:
		for _, c := range v.Comparators {
			out = byBindings(out, c.By)
		}
	}
	return out
}

func byBindings(out []string, bys ...By) []string {
	for _, b := range bys {
		if b.Kind == ByBinding {
			out = appendNonEmpty(out, b.Name)
		}
	}
	return out
}

func appendNonEmpty(out []string, s string) []string {
	if s == "" {
		return out
	}
	return append(out, s)
}

// Requirements maps a requirement kind to the label names it covers.
// PathAdd is present with an empty set.
type Requirements map[plan.RequirementKind]mapset.Set[string]

// Add records labels under kind.
func (r Requirements) Add(kind plan.RequirementKind, labels ...string) {
	set, ok := r[kind]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		r[kind] = set
	}
	for _, l := range labels {
		set.Add(l)
	}
}

// Has reports whether kind is present.
func (r Requirements) Has(kind plan.RequirementKind) bool {
	_, ok := r[kind]
	return ok
}

// Labels returns the sorted labels for kind.
func (r Requirements) Labels(kind plan.RequirementKind) []string {
	set, ok := r[kind]
	if !ok {
		return nil
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out
}

// Remove deletes label from kind, dropping the kind once empty. PathAdd
// entries are never dropped by Remove.
func (r Requirements) Remove(kind plan.RequirementKind, label string) {
	set, ok := r[kind]
	if !ok {
		return
	}
	set.Remove(label)
	if kind == plan.LabelStart && set.Cardinality() == 0 {
		delete(r, kind)
	}
}

// Empty reports whether no requirement is present.
func (r Requirements) Empty() bool { return len(r) == 0 }

// Kinds returns the present kinds in a fixed order.
func (r Requirements) Kinds() []plan.RequirementKind {
	var out []plan.RequirementKind
	for _, k := range []plan.RequirementKind{plan.LabelStart, plan.PathAdd} {
		if r.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
