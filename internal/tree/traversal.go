package tree

// Traversal is a chain of steps addressed by its sink. Sub-traversals
// start with a SourceDelegate step.
type Traversal struct {
	ctx  *Context
	Sink *Node
	err  error
}

// Context returns the compilation context the traversal was built in.
func (t *Traversal) Context() *Context { return t.ctx }

// Err returns the first error recorded while building the traversal or
// any traversal attached to it.
func (t *Traversal) Err() error { return t.err }

// Nodes returns the chain from source to sink.
func (t *Traversal) Nodes() []*Node {
	var rev []*Node
	for n := t.Sink; n != nil; n = n.Input {
		rev = append(rev, n)
	}
	out := make([]*Node, len(rev))
	for i, n := range rev {
		out[len(rev)-1-i] = n
	}
	return out
}

// Source returns the first step of the chain.
func (t *Traversal) Source() *Node {
	n := t.Sink
	for n != nil && n.Input != nil {
		n = n.Input
	}
	return n
}

// IsSub reports whether the traversal starts from a delegate.
func (t *Traversal) IsSub() bool {
	src := t.Source()
	return src != nil && src.Kind() == KindSourceDelegate
}

// InsertAfter splices n directly after at.
func (t *Traversal) InsertAfter(at, n *Node) {
	n.Input = at
	n.next = at.next
	if at.next != nil {
		at.next.Input = n
	}
	at.next = n
	if t.Sink == at {
		t.Sink = n
	}
}

// Remove unlinks n from the chain. The source cannot be removed.
func (t *Traversal) Remove(n *Node) bool {
	if n.Input == nil {
		return false
	}
	prev := n.Input
	prev.next = n.next
	if n.next != nil {
		n.next.Input = prev
	}
	if t.Sink == n {
		t.Sink = prev
	}
	n.Input, n.next = nil, nil
	return true
}

// SubRole describes how a sub-traversal is evaluated relative to its host.
type SubRole string

const (
	// RolePerRow subs run once per host row (where, not, by, local,
	// optional, choose condition).
	RolePerRow SubRole = "per-row"

	// RoleBranch subs process a share of the host's stream (union
	// branches, choose then/else).
	RoleBranch SubRole = "branch"

	// RoleJoin is the right side of a binary join.
	RoleJoin SubRole = "join"
)

// SubRef is a sub-traversal embedded in a step.
type SubRef struct {
	T    *Traversal
	Role SubRole
}

// Subs returns the sub-traversals embedded in n in a fixed order.
func Subs(n *Node) []SubRef {
	var out []SubRef
	add := func(t *Traversal, role SubRole) {
		if t != nil {
			out = append(out, SubRef{T: t, Role: role})
		}
	}
	addBy := func(b By) {
		if b.Kind == BySub {
			add(b.Sub, RolePerRow)
		}
	}
	switch p := n.Payload.(type) {
	case *Local:
		add(p.Sub, RolePerRow)
	case *WhereSub:
		add(p.Sub, RolePerRow)
	case *Not:
		add(p.Sub, RolePerRow)
	case *Optional:
		add(p.Sub, RolePerRow)
	case *Union:
		for _, b := range p.Branches {
			add(b, RoleBranch)
		}
	case *Choose:
		add(p.Cond, RolePerRow)
		add(p.Then, RoleBranch)
		add(p.Else, RoleBranch)
	case *Join:
		add(p.Right, RoleJoin)
	case *Select:
		for _, b := range p.By {
			addBy(b)
		}
	case *Project:
		for _, b := range p.By {
			addBy(b)
		}
	case *Dedup:
		if p.By != nil {
			addBy(*p.By)
		}
	case *Order:
		for _, c := range p.Comparators {
			addBy(c.By)
		}
	case *Group:
		addBy(p.Key)
	case *GroupCount:
		addBy(p.Key)
	}
	return out
}

// Traversals returns t followed by every nested sub-traversal in
// pre-order.
func (t *Traversal) Traversals() []*Traversal {
	out := []*Traversal{t}
	for _, n := range t.Nodes() {
		for _, ref := range Subs(n) {
			out = append(out, ref.T.Traversals()...)
		}
	}
	return out
}

// Walk calls fn for every step of t and of its sub-traversals in
// pre-order: a step is visited before its subs, and its subs before the
// next step of the chain.
func (t *Traversal) Walk(fn func(owner *Traversal, n *Node)) {
	for _, n := range t.Nodes() {
		fn(t, n)
		for _, ref := range Subs(n) {
			ref.T.Walk(fn)
		}
	}
}

// Steps is the number of steps in t including sub-traversals.
func (t *Traversal) Steps() int {
	total := 0
	t.Walk(func(*Traversal, *Node) { total++ })
	return total
}
