package tree

import (
	"github.com/roach88/gplan/internal/ir"
)

// Payload carries the per-kind parameters of a Node.
//
// This is a sealed interface; only types in this package implement it.
// Lowering and typing switch exhaustively over the concrete types.
type Payload interface {
	Kind() Kind
}

// Direction of an adjacency expansion or edge endpoint selection.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

// Pop selects which binding of a repeated label select returns.
type Pop string

const (
	PopLast  Pop = "last"
	PopFirst Pop = "first"
	PopAll   Pop = "all"
)

// ColumnKind is the projection of Column.
type ColumnKind string

const (
	ColumnKeys   ColumnKind = "keys"
	ColumnValues ColumnKind = "values"
)

// Algorithm names a whole-graph program.
type Algorithm string

const (
	PageRank            Algorithm = "pageRank"
	ConnectedComponents Algorithm = "connectedComponents"
	ShortestPath        Algorithm = "shortestPath"
	LabelPropagation    Algorithm = "labelPropagation"
	HITS                Algorithm = "hits"
)

// Sources.

type SourceVertex struct {
	IDs    []int64
	Labels []string
}

type SourceEdge struct {
	IDs    []int64
	Labels []string
}

// SourceDelegate starts a sub-traversal. Its rows are the rows arriving at
// Host, the step that embeds the sub-traversal.
type SourceDelegate struct {
	Host *Node
}

type Inject struct {
	Values ir.List
}

// Flat maps.

type VertexHop struct {
	Dir        Direction
	EdgeLabels []string
}

// EdgeHop expands to incident edges. FetchProps is cleared by the
// edge-props pass when no consumer reads edge properties.
type EdgeHop struct {
	Dir        Direction
	EdgeLabels []string
	FetchProps bool
}

type EdgeBothV struct{}

type Unfold struct{}

type Properties struct {
	Names []string
}

type Values struct {
	Names []string
}

// Local evaluates Sub once per input row.
type Local struct {
	Sub *Traversal
}

// MatchHop is one edge of a match pattern between two bindings.
type MatchHop struct {
	From      string
	To        string
	EdgeLabel string
	Dir       Direction
}

// Match binds a pattern of hops starting from the input rows. Pin, when
// non-negative, forces the candidate expansion order with that index.
type Match struct {
	Start string
	Hops  []MatchHop
	Pin   int
}

// Maps.

// EdgeVertex maps an edge to an endpoint: Out is outV, In is inV and Both
// is otherV.
type EdgeVertex struct {
	Which Direction
}

type ID struct{}

type Label struct{}

type Constant struct {
	Value ir.Value
}

// Select recalls labelled values. By modulators apply round-robin to the
// selected labels.
type Select struct {
	Labels []string
	Pop    Pop
	By     []By
}

type Project struct {
	Keys []string
	By   []By
}

type PropertyMap struct {
	Names []string
}

type Path struct{}

type Column struct {
	Which ColumnKind
}

// Ordinal tags each row with its position under Label. Inserted by the
// order-terminal pass.
type Ordinal struct {
	Label string
}

// Filters.

// Has keeps elements whose Property satisfies Pred. A nil Pred tests for
// existence.
type Has struct {
	Property string
	Pred     *Predicate
}

type HasLabel struct {
	Labels []string
}

type HasID struct {
	IDs []int64
}

type Is struct {
	Pred Predicate
}

// WhereLabel compares the value bound to Start (the current row when Start
// is empty) with the value bound to Other.
type WhereLabel struct {
	Start string
	Op    PredOp
	Other string
}

type WhereSub struct {
	Sub *Traversal
}

type Not struct {
	Sub *Traversal
}

// Dedup removes duplicates of the current row, of the values bound to
// Labels, or of the By projection.
type Dedup struct {
	Labels []string
	By     *By
}

// Range keeps rows [Low, High). High < 0 means unbounded.
type Range struct {
	Low  int64
	High int64
}

type Sample struct {
	N int
}

type Coin struct {
	P float64
}

type SimplePath struct{}

// Order.

type Order struct {
	Comparators []Comparator
}

// Aggregates.

type Count struct{}

// CountLimit counts at most Limit rows. Produced by the range-count pass.
type CountLimit struct {
	Limit int64
}

type Sum struct{}

type Max struct{}

type Min struct{}

type Mean struct{}

// Fold collects rows into a list. OrderLabel, when set, sorts the
// collected rows by the ordinal bound under it.
type Fold struct {
	OrderLabel string
}

type Group struct {
	Key        By
	Value      Reducer
	OrderLabel string
}

type GroupCount struct {
	Key        By
	OrderLabel string
}

// Side effects.

type Store struct {
	Name       string
	OrderLabel string
}

type Cap struct {
	Name string
}

// GraphProgram invokes a whole-graph algorithm as one opaque operator.
type GraphProgram struct {
	Algorithm        Algorithm
	Iterations       int
	OutputProperties []string
	EdgeLabels       []string
	Dir              Direction
	SourceIDs        []int64
	DampingFactor    float64
}

// Branches.

type Union struct {
	Branches []*Traversal
}

// Choose routes rows for which Cond yields a result through Then and all
// other rows through Else. A nil Else passes rows through unchanged.
type Choose struct {
	Cond *Traversal
	Then *Traversal
	Else *Traversal
}

type Optional struct {
	Sub *Traversal
}

// Join pairs each input row with the rows of Right that agree on the
// values bound to Keys (on element identity when Keys is empty).
type Join struct {
	Right *Traversal
	Keys  []string
}

func (SourceVertex) Kind() Kind   { return KindSourceVertex }
func (SourceEdge) Kind() Kind     { return KindSourceEdge }
func (SourceDelegate) Kind() Kind { return KindSourceDelegate }
func (Inject) Kind() Kind         { return KindInject }
func (VertexHop) Kind() Kind      { return KindVertexHop }
func (EdgeHop) Kind() Kind        { return KindEdgeHop }
func (EdgeBothV) Kind() Kind      { return KindEdgeBothV }
func (Unfold) Kind() Kind         { return KindUnfold }
func (Properties) Kind() Kind     { return KindProperties }
func (Values) Kind() Kind         { return KindValues }
func (Local) Kind() Kind          { return KindLocal }
func (Match) Kind() Kind          { return KindMatch }
func (EdgeVertex) Kind() Kind     { return KindEdgeVertex }
func (ID) Kind() Kind             { return KindID }
func (Label) Kind() Kind          { return KindLabel }
func (Constant) Kind() Kind       { return KindConstant }
func (Select) Kind() Kind         { return KindSelect }
func (Project) Kind() Kind        { return KindProject }
func (PropertyMap) Kind() Kind    { return KindPropertyMap }
func (Path) Kind() Kind           { return KindPath }
func (Column) Kind() Kind         { return KindColumn }
func (Ordinal) Kind() Kind        { return KindOrdinal }
func (Has) Kind() Kind            { return KindHas }
func (HasLabel) Kind() Kind       { return KindHasLabel }
func (HasID) Kind() Kind          { return KindHasID }
func (Is) Kind() Kind             { return KindIs }
func (WhereLabel) Kind() Kind     { return KindWhereLabel }
func (WhereSub) Kind() Kind       { return KindWhereSub }
func (Not) Kind() Kind            { return KindNot }
func (Dedup) Kind() Kind          { return KindDedup }
func (Range) Kind() Kind          { return KindRange }
func (Sample) Kind() Kind         { return KindSample }
func (Coin) Kind() Kind           { return KindCoin }
func (SimplePath) Kind() Kind     { return KindSimplePath }
func (Order) Kind() Kind          { return KindOrder }
func (Count) Kind() Kind          { return KindCount }
func (CountLimit) Kind() Kind     { return KindCountLimit }
func (Sum) Kind() Kind            { return KindSum }
func (Max) Kind() Kind            { return KindMax }
func (Min) Kind() Kind            { return KindMin }
func (Mean) Kind() Kind           { return KindMean }
func (Fold) Kind() Kind           { return KindFold }
func (Group) Kind() Kind          { return KindGroup }
func (GroupCount) Kind() Kind     { return KindGroupCount }
func (Store) Kind() Kind          { return KindStore }
func (Cap) Kind() Kind            { return KindCap }
func (GraphProgram) Kind() Kind   { return KindGraphProgram }
func (Union) Kind() Kind          { return KindUnion }
func (Choose) Kind() Kind         { return KindChoose }
func (Optional) Kind() Kind       { return KindOptional }
func (Join) Kind() Kind           { return KindJoin }
