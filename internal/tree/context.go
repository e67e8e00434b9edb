package tree

import (
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/schema"
)

// Context is the per-compilation state shared by every traversal built
// for one request: the node id counter, the label manager and the
// side-effect registry. It is not safe for concurrent use.
type Context struct {
	Labels *label.Manager[*Node]
	Schema schema.Lookup

	nextID int
	stores map[string]*Node
}

// NewContext returns an empty context resolving names against s.
func NewContext(s schema.Lookup) *Context {
	return &Context{
		Labels: label.NewManager[*Node](),
		Schema: s,
		stores: make(map[string]*Node),
	}
}

// NewNode allocates a detached node with a fresh id.
func (c *Context) NewNode(p Payload) *Node {
	c.nextID++
	return &Node{
		ID:      c.nextID,
		Payload: p,
		Before:  Requirements{},
		After:   Requirements{},
	}
}

// StoreNode returns the store step registered under name.
func (c *Context) StoreNode(name string) (*Node, bool) {
	n, ok := c.stores[name]
	return n, ok
}

// start begins a traversal at a source step.
func (c *Context) start(p Payload) *Traversal {
	n := c.NewNode(p)
	n.RefreshUsedLabels()
	return &Traversal{ctx: c, Sink: n}
}

// V starts at vertices, optionally restricted to ids.
func (c *Context) V(ids ...int64) *Traversal {
	return c.start(&SourceVertex{IDs: ids})
}

// VLabeled starts at vertices carrying one of labels.
func (c *Context) VLabeled(labels ...string) *Traversal {
	return c.start(&SourceVertex{Labels: labels})
}

// E starts at edges, optionally restricted to ids.
func (c *Context) E(ids ...int64) *Traversal {
	return c.start(&SourceEdge{IDs: ids})
}

// Inject starts from literal values.
func (c *Context) Inject(values ...any) *Traversal {
	t := c.start(&Inject{})
	list := make([]any, len(values))
	copy(list, values)
	v, err := irList(list)
	if err != nil {
		t.fail(err)
		return t
	}
	t.Sink.Payload.(*Inject).Values = v
	return t
}

// Sub starts an anonymous sub-traversal. Its host is set when it is
// passed to a step.
func (c *Context) Sub() *Traversal {
	return c.start(&SourceDelegate{})
}
