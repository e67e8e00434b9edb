package tree

import (
	"github.com/roach88/gplan/internal/ir"
)

// ByKind selects how a By modulator projects a row.
type ByKind string

const (
	ByIdentity ByKind = "identity"
	ByProperty ByKind = "property"
	ByLabel    ByKind = "label"
	BySub      ByKind = "sub"
	ByBinding  ByKind = "binding"
)

// By is a projection modulator used by select, project, order, dedup and
// group.
type By struct {
	Kind ByKind
	Name string
	Sub  *Traversal
}

// Identity projects the row itself.
func Identity() By { return By{Kind: ByIdentity} }

// Prop projects a property value of the row.
func Prop(name string) By { return By{Kind: ByProperty, Name: name} }

// ElementLabel projects the row's element label.
func ElementLabel() By { return By{Kind: ByLabel} }

// Binding projects the value bound to a label.
func Binding(name string) By { return By{Kind: ByBinding, Name: name} }

// Sub projects the first result of a sub-traversal started from the row.
func Sub(t *Traversal) By { return By{Kind: BySub, Sub: t} }

// SortOrder of a comparator.
type SortOrder string

const (
	Asc     SortOrder = "asc"
	Desc    SortOrder = "desc"
	Shuffle SortOrder = "shuffle"
)

// Comparator is one order key.
type Comparator struct {
	By    By
	Order SortOrder
}

// ReducerKind is the value reduction of a group.
type ReducerKind string

const (
	ReduceFold  ReducerKind = "fold"
	ReduceCount ReducerKind = "count"
	ReduceSum   ReducerKind = "sum"
	ReduceMax   ReducerKind = "max"
	ReduceMin   ReducerKind = "min"
	ReduceMean  ReducerKind = "mean"
)

// Reducer reduces the rows of one group, optionally over a property.
type Reducer struct {
	Kind     ReducerKind
	Property string
}

// PredOp is a predicate operator.
type PredOp string

const (
	OpEq           PredOp = "eq"
	OpNeq          PredOp = "neq"
	OpLt           PredOp = "lt"
	OpLte          PredOp = "lte"
	OpGt           PredOp = "gt"
	OpGte          PredOp = "gte"
	OpWithin       PredOp = "within"
	OpWithout      PredOp = "without"
	OpBetween      PredOp = "between"
	OpInside       PredOp = "inside"
	OpOutside      PredOp = "outside"
	OpStartingWith PredOp = "startingWith"
	OpAnd          PredOp = "and"
	OpOr           PredOp = "or"
	OpNot          PredOp = "not"
)

// Predicate is a value test. Connectives (and, or, not) use Children;
// every other operator uses Value.
type Predicate struct {
	Op       PredOp
	Value    ir.Value
	Children []Predicate
}

func cmpPred(op PredOp, v any) Predicate {
	val, err := ir.FromGo(v)
	if err != nil {
		val = ir.Null{}
	}
	return Predicate{Op: op, Value: val}
}

func Eq(v any) Predicate  { return cmpPred(OpEq, v) }
func Neq(v any) Predicate { return cmpPred(OpNeq, v) }
func Lt(v any) Predicate  { return cmpPred(OpLt, v) }
func Lte(v any) Predicate { return cmpPred(OpLte, v) }
func Gt(v any) Predicate  { return cmpPred(OpGt, v) }
func Gte(v any) Predicate { return cmpPred(OpGte, v) }

func Within(vs ...any) Predicate  { return cmpPred(OpWithin, vs) }
func Without(vs ...any) Predicate { return cmpPred(OpWithout, vs) }

func Between(lo, hi any) Predicate { return cmpPred(OpBetween, []any{lo, hi}) }
func Inside(lo, hi any) Predicate  { return cmpPred(OpInside, []any{lo, hi}) }
func Outside(lo, hi any) Predicate { return cmpPred(OpOutside, []any{lo, hi}) }

func StartingWith(prefix string) Predicate { return cmpPred(OpStartingWith, prefix) }

func And(ps ...Predicate) Predicate { return Predicate{Op: OpAnd, Children: ps} }
func Or(ps ...Predicate) Predicate  { return Predicate{Op: OpOr, Children: ps} }
func NotP(p Predicate) Predicate    { return Predicate{Op: OpNot, Children: []Predicate{p}} }

// ToValue encodes the predicate as an operator argument.
func (p Predicate) ToValue() ir.Value {
	obj := ir.Obj(ir.O("op", ir.String(p.Op)))
	if len(p.Children) > 0 {
		children := make(ir.List, len(p.Children))
		for i, c := range p.Children {
			children[i] = c.ToValue()
		}
		obj["children"] = children
		return obj
	}
	if p.Value != nil {
		obj["value"] = ir.CloneValue(p.Value)
	}
	return obj
}

// IsConnective reports whether the predicate combines other predicates.
func (p Predicate) IsConnective() bool {
	switch p.Op {
	case OpAnd, OpOr, OpNot:
		return true
	}
	return false
}
