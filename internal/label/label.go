// Package label allocates and resolves named bindings for one compilation.
//
// Ids encode provenance in their numeric range:
//
//	-1 .. -4          reserved accessors (identity, type label, map key, map value)
//	-10 .. -99999     user labels, allocated downward
//	-100000 and below system labels, allocated downward
//
// A Manager is owned by a single compilation and is not safe for
// concurrent use.
package label

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
)

// Reserved label ids for built-in accessors.
const (
	IdentityID plan.LabelID = -1
	TypeID     plan.LabelID = -2
	MapKeyID   plan.LabelID = -3
	MapValueID plan.LabelID = -4

	firstUserID   plan.LabelID = -10
	firstSystemID plan.LabelID = -100000
)

// Reserved label names.
const (
	IdentityName = "~id"
	TypeName     = "~label"
	MapKeyName   = "~key"
	MapValueName = "~value"

	systemPrefix = "$"
)

// IsReservedID reports whether id belongs to a built-in accessor.
func IsReservedID(id plan.LabelID) bool { return id <= IdentityID && id >= MapValueID }

// IsUserID reports whether id was allocated for a user label.
func IsUserID(id plan.LabelID) bool { return id <= firstUserID && id > firstSystemID }

// IsSystemID reports whether id was allocated for a compiler label.
func IsSystemID(id plan.LabelID) bool { return id <= firstSystemID }

// IsSystemName reports whether name is in the compiler namespace.
func IsSystemName(name string) bool { return strings.HasPrefix(name, systemPrefix) }

// Manager maps label names to ids and to the ordered list of nodes that
// bound them. T is the node type of the caller.
type Manager[T any] struct {
	ids      map[string]plan.LabelID
	names    map[plan.LabelID]string
	bindings map[string][]T
	order    []string

	nextUser   plan.LabelID
	nextSystem plan.LabelID
	fresh      int
}

// NewManager returns a manager with only the reserved labels defined.
func NewManager[T any]() *Manager[T] {
	m := &Manager[T]{
		ids:        make(map[string]plan.LabelID),
		names:      make(map[plan.LabelID]string),
		bindings:   make(map[string][]T),
		nextUser:   firstUserID,
		nextSystem: firstSystemID,
	}
	for name, id := range map[string]plan.LabelID{
		IdentityName: IdentityID,
		TypeName:     TypeID,
		MapKeyName:   MapKeyID,
		MapValueName: MapValueID,
	} {
		m.ids[name] = id
		m.names[id] = name
	}
	return m
}

// Bind records node as a producer of the user label name, allocating an
// id the first time the name is seen. Names are NFC normalized. Names
// starting with "$" belong to the compiler and are rejected.
func (m *Manager[T]) Bind(name string, node T) (plan.LabelID, error) {
	name = norm.NFC.String(name)
	if name == "" {
		return 0, ir.NewIllegalArgumentError("label name must not be empty")
	}
	if IsSystemName(name) {
		return 0, ir.NewIllegalArgumentError("label %q: names starting with %q are reserved", name, systemPrefix)
	}
	id, ok := m.ids[name]
	if !ok {
		var err error
		if id, err = m.allocUser(name); err != nil {
			return 0, err
		}
	}
	if IsReservedID(id) || IsSystemID(id) {
		return 0, ir.NewIllegalArgumentError("label %q is reserved", name)
	}
	m.bindings[name] = append(m.bindings[name], node)
	return id, nil
}

// BindSystem records node as a producer of a label minted by
// FreshSystemLabel.
func (m *Manager[T]) BindSystem(name string, node T) (plan.LabelID, error) {
	id, ok := m.ids[name]
	if !ok || !IsSystemID(id) {
		return 0, ir.NewIllegalArgumentError("label %q is not a system label", name)
	}
	m.bindings[name] = append(m.bindings[name], node)
	return id, nil
}

func (m *Manager[T]) allocUser(name string) (plan.LabelID, error) {
	if m.nextUser <= firstSystemID {
		return 0, ir.NewIllegalArgumentError("user label space exhausted at %q", name)
	}
	id := m.nextUser
	m.nextUser--
	m.define(name, id)
	return id, nil
}

func (m *Manager[T]) allocSystem(name string) (plan.LabelID, error) {
	id := m.nextSystem
	m.nextSystem--
	m.define(name, id)
	return id, nil
}

func (m *Manager[T]) define(name string, id plan.LabelID) {
	m.ids[name] = id
	m.names[id] = name
	m.order = append(m.order, name)
}

// FreshSystemLabel mints a new compiler-internal label and returns its
// name, e.g. "$join_3". Names are never repeated within a manager.
func (m *Manager[T]) FreshSystemLabel(tag string) (string, plan.LabelID) {
	for {
		m.fresh++
		name := fmt.Sprintf("%s%s_%d", systemPrefix, tag, m.fresh)
		if _, taken := m.ids[name]; taken {
			continue
		}
		id, _ := m.allocSystem(name)
		return name, id
	}
}

// ID returns the id of name.
func (m *Manager[T]) ID(name string) (plan.LabelID, error) {
	id, ok := m.ids[norm.NFC.String(name)]
	if !ok {
		return 0, ir.NewUnknownLabelError(name)
	}
	return id, nil
}

// Has reports whether name has an id.
func (m *Manager[T]) Has(name string) bool {
	_, ok := m.ids[norm.NFC.String(name)]
	return ok
}

// Name returns the name currently associated with id.
func (m *Manager[T]) Name(id plan.LabelID) (string, bool) {
	name, ok := m.names[id]
	return name, ok
}

// Resolve returns the last node that bound name.
func (m *Manager[T]) Resolve(name string) (T, error) {
	nodes, err := m.ResolveAll(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return nodes[len(nodes)-1], nil
}

// ResolveFirst returns the first node that bound name.
func (m *Manager[T]) ResolveFirst(name string) (T, error) {
	nodes, err := m.ResolveAll(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return nodes[0], nil
}

// ResolveAll returns every node that bound name, in binding order.
func (m *Manager[T]) ResolveAll(name string) ([]T, error) {
	nodes := m.bindings[norm.NFC.String(name)]
	if len(nodes) == 0 {
		return nil, ir.NewUnknownLabelError(name)
	}
	out := make([]T, len(nodes))
	copy(out, nodes)
	return out, nil
}

// RenameLabel gives an existing label a new name. The id and the bound
// nodes are kept.
func (m *Manager[T]) RenameLabel(oldName, newName string) error {
	oldName = norm.NFC.String(oldName)
	newName = norm.NFC.String(newName)
	id, ok := m.ids[oldName]
	if !ok {
		return ir.NewUnknownLabelError(oldName)
	}
	if IsReservedID(id) {
		return ir.NewIllegalArgumentError("label %q is reserved", oldName)
	}
	if _, taken := m.ids[newName]; taken {
		return ir.NewIllegalArgumentError("label %q already exists", newName)
	}
	delete(m.ids, oldName)
	m.ids[newName] = id
	m.names[id] = newName
	if nodes, ok := m.bindings[oldName]; ok {
		delete(m.bindings, oldName)
		m.bindings[newName] = nodes
	}
	for i, n := range m.order {
		if n == oldName {
			m.order[i] = newName
		}
	}
	return nil
}

// Names returns every non-reserved label name in allocation order.
func (m *Manager[T]) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// RequireBefore attaches a requirement to the before list of vertex v.
func (m *Manager[T]) RequireBefore(b *plan.Builder, v plan.VertexID, kind plan.RequirementKind, names ...string) error {
	return m.require(b, v, plan.Before, kind, names)
}

// RequireAfter attaches a requirement to the after list of vertex v.
func (m *Manager[T]) RequireAfter(b *plan.Builder, v plan.VertexID, kind plan.RequirementKind, names ...string) error {
	return m.require(b, v, plan.After, kind, names)
}

func (m *Manager[T]) require(b *plan.Builder, v plan.VertexID, phase plan.Phase, kind plan.RequirementKind, names []string) error {
	if kind == plan.LabelStart && len(names) == 0 {
		return ir.Errorf(ir.ErrCodeEmptyLabelRequirement,
			"LabelStart requirement on vertex %d has no labels", v)
	}
	ids := make([]plan.LabelID, 0, len(names))
	for _, name := range names {
		id, err := m.ID(name)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return b.Require(v, phase, plan.Requirement{Kind: kind, Labels: ids})
}
