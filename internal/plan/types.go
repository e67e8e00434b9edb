package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/valuetype"
)

// VertexID addresses a vertex in the plan arena. The zero value is never a
// valid vertex.
type VertexID int

// LabelID is the integer id of a label binding. Provenance (reserved, user
// or system) is encoded in the numeric range; see package label.
type LabelID int32

// OpKind names a logical operator.
type OpKind string

const (
	OpSourceVertex   OpKind = "SOURCE_VERTEX"
	OpSourceEdge     OpKind = "SOURCE_EDGE"
	OpInject         OpKind = "INJECT"
	OpVertexHop      OpKind = "VERTEX_HOP"
	OpEdgeHop        OpKind = "EDGE_HOP"
	OpEdgeVertex     OpKind = "EDGE_VERTEX"
	OpEdgeBothV      OpKind = "EDGE_BOTH_V"
	OpUnfold         OpKind = "UNFOLD"
	OpProperties     OpKind = "PROPERTIES"
	OpValues         OpKind = "VALUES"
	OpID             OpKind = "ID"
	OpLabel          OpKind = "LABEL"
	OpConstant       OpKind = "CONSTANT"
	OpSelect         OpKind = "SELECT"
	OpProject        OpKind = "PROJECT"
	OpPropertyMap    OpKind = "PROPERTY_MAP"
	OpPath           OpKind = "PATH"
	OpColumn         OpKind = "COLUMN"
	OpOrdinal        OpKind = "ORDINAL"
	OpHas            OpKind = "HAS"
	OpHasLabel       OpKind = "HAS_LABEL"
	OpHasID          OpKind = "HAS_ID"
	OpIs             OpKind = "IS"
	OpWhereLabel     OpKind = "WHERE_LABEL"
	OpDedup          OpKind = "DEDUP"
	OpRange          OpKind = "RANGE"
	OpSample         OpKind = "SAMPLE"
	OpCoin           OpKind = "COIN"
	OpSimplePath     OpKind = "SIMPLE_PATH"
	OpOrder          OpKind = "ORDER"
	OpCount          OpKind = "COUNT"
	OpCountLimit     OpKind = "COUNT_LIMIT"
	OpSum            OpKind = "SUM"
	OpMax            OpKind = "MAX"
	OpMin            OpKind = "MIN"
	OpMean           OpKind = "MEAN"
	OpFold           OpKind = "FOLD"
	OpKeyEntry       OpKind = "KEY_ENTRY"
	OpGroup          OpKind = "GROUP"
	OpGroupCount     OpKind = "GROUP_COUNT"
	OpStore          OpKind = "STORE"
	OpCap            OpKind = "CAP"
	OpGraphProgram   OpKind = "GRAPH_PROGRAM"
	OpPropFill       OpKind = "PROP_FILL"
	OpEnterKey       OpKind = "ENTER_KEY"
	OpLeaveKey       OpKind = "LEAVE_KEY"
	OpJoinFilter     OpKind = "JOIN_FILTER"
	OpJoinNegate     OpKind = "JOIN_NEGATE"
	OpJoinLabelValue OpKind = "JOIN_LABEL_VALUE"
	OpJoinOptional   OpKind = "JOIN_OPTIONAL"
	OpJoin           OpKind = "JOIN"
	OpUnion          OpKind = "UNION"
)

// Arity is the number of inbound edges a vertex of this kind must have.
func (k OpKind) Arity() int {
	switch k {
	case OpSourceVertex, OpSourceEdge, OpInject:
		return 0
	case OpJoinFilter, OpJoinNegate, OpJoinLabelValue, OpJoinOptional, OpJoin, OpUnion:
		return 2
	}
	return 1
}

// IsBlocking reports whether the operator must see its whole input before
// emitting. Early-stop filters do not propagate past a blocking vertex.
func (k OpKind) IsBlocking() bool {
	switch k {
	case OpOrder, OpCount, OpCountLimit, OpSum, OpMax, OpMin, OpMean, OpFold,
		OpGroup, OpGroupCount, OpCap, OpGraphProgram, OpDedup:
		return true
	}
	return false
}

// Op is an operator descriptor: a kind plus typed arguments (label ids,
// property ids, predicates, comparators, windows).
type Op struct {
	Kind OpKind
	Args ir.Object
}

// RequirementKind is a scope requirement attached to a vertex.
type RequirementKind string

const (
	// LabelStart tags every row passing the vertex so the label can be
	// recalled later by name.
	LabelStart RequirementKind = "LabelStart"

	// PathAdd starts recording the row's full traversal path.
	PathAdd RequirementKind = "PathAdd"
)

// Requirement is one scope requirement with the label ids it covers.
type Requirement struct {
	Kind   RequirementKind
	Labels []LabelID
}

func (r Requirement) String() string {
	ids := make([]string, len(r.Labels))
	for i, id := range r.Labels {
		ids[i] = strconv.Itoa(int(id))
	}
	return string(r.Kind) + "(" + strings.Join(ids, ",") + ")"
}

// Phase selects the before or after requirement list of a vertex.
type Phase int

const (
	Before Phase = iota
	After
)

// Vertex is one operator in the plan.
type Vertex struct {
	ID     VertexID
	Op     Op
	Inputs []VertexID // ordered by port; filled by Build

	Before []Requirement
	After  []Requirement

	// GlobalStop marks a vertex that can signal the whole plan to stop
	// once its result window is satisfied. GlobalFilter marks an upstream
	// vertex that honours that signal.
	GlobalStop   bool
	GlobalFilter bool

	// Store marks that the vertex output is also retained as the named
	// side-effect collection StoreName.
	Store     bool
	StoreName string

	// Origin is the id of the tree node the vertex was lowered from.
	Origin int

	OutputType valuetype.Type
}

// ShuffleKind is the data-movement strategy of an edge.
type ShuffleKind string

const (
	Forward        ShuffleKind = "Forward"
	ShuffleByKey   ShuffleKind = "ShuffleByKey"
	ShuffleByConst ShuffleKind = "ShuffleByConst"
	Broadcast      ShuffleKind = "Broadcast"
)

// KeySelector picks the shuffle key of a row: the value bound to Label,
// or that value's property when PropertyID is non-zero.
type KeySelector struct {
	Label      LabelID
	PropertyID int
}

func (k KeySelector) String() string {
	if k.PropertyID != 0 {
		return fmt.Sprintf("%d.p%d", k.Label, k.PropertyID)
	}
	return strconv.Itoa(int(k.Label))
}

// Shuffle is a movement strategy. Key is only meaningful for ShuffleByKey.
type Shuffle struct {
	Kind ShuffleKind
	Key  KeySelector
}

// ForwardShuffle keeps rows on their partition.
func ForwardShuffle() Shuffle { return Shuffle{Kind: Forward} }

// ByKey shuffles rows by the given label's value.
func ByKey(label LabelID) Shuffle {
	return Shuffle{Kind: ShuffleByKey, Key: KeySelector{Label: label}}
}

// ByKeyProperty shuffles rows by a property of the given label's value.
func ByKeyProperty(label LabelID, propertyID int) Shuffle {
	return Shuffle{Kind: ShuffleByKey, Key: KeySelector{Label: label, PropertyID: propertyID}}
}

// ByConst funnels all rows to one partition.
func ByConst() Shuffle { return Shuffle{Kind: ShuffleByConst} }

func (s Shuffle) String() string {
	if s.Kind == ShuffleByKey {
		return "ShuffleByKey(" + s.Key.String() + ")"
	}
	return string(s.Kind)
}

// Edge connects two vertices. Port orders the inputs of the consumer:
// 0 is the left operand, 1 the right.
type Edge struct {
	From    VertexID
	To      VertexID
	Port    int
	Shuffle Shuffle
}
