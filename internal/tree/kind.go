package tree

// Kind names a traversal step.
type Kind string

const (
	KindSourceVertex   Kind = "V"
	KindSourceEdge     Kind = "E"
	KindSourceDelegate Kind = "delegate"
	KindInject         Kind = "inject"

	KindVertexHop  Kind = "vertexHop"
	KindEdgeHop    Kind = "edgeHop"
	KindEdgeBothV  Kind = "bothV"
	KindUnfold     Kind = "unfold"
	KindProperties Kind = "properties"
	KindValues     Kind = "values"
	KindLocal      Kind = "local"
	KindMatch      Kind = "match"

	KindEdgeVertex  Kind = "edgeVertex"
	KindID          Kind = "id"
	KindLabel       Kind = "label"
	KindConstant    Kind = "constant"
	KindSelect      Kind = "select"
	KindProject     Kind = "project"
	KindPropertyMap Kind = "propertyMap"
	KindPath        Kind = "path"
	KindColumn      Kind = "column"
	KindOrdinal     Kind = "ordinal"

	KindHas        Kind = "has"
	KindHasLabel   Kind = "hasLabel"
	KindHasID      Kind = "hasId"
	KindIs         Kind = "is"
	KindWhereLabel Kind = "whereLabel"
	KindWhereSub   Kind = "where"
	KindNot        Kind = "not"
	KindDedup      Kind = "dedup"
	KindRange      Kind = "range"
	KindSample     Kind = "sample"
	KindCoin       Kind = "coin"
	KindSimplePath Kind = "simplePath"

	KindOrder Kind = "order"

	KindCount      Kind = "count"
	KindCountLimit Kind = "countLimit"
	KindSum        Kind = "sum"
	KindMax        Kind = "max"
	KindMin        Kind = "min"
	KindMean       Kind = "mean"
	KindFold       Kind = "fold"
	KindGroup      Kind = "group"
	KindGroupCount Kind = "groupCount"

	KindStore Kind = "store"
	KindCap   Kind = "cap"

	KindGraphProgram Kind = "graphProgram"

	KindUnion    Kind = "union"
	KindChoose   Kind = "choose"
	KindOptional Kind = "optional"

	KindJoin Kind = "join"
)

// Category groups kinds by their effect on the row stream.
type Category string

const (
	CategorySource    Category = "SOURCE"
	CategoryMap       Category = "MAP"
	CategoryFlatMap   Category = "FLATMAP"
	CategoryFilter    Category = "FILTER"
	CategoryOrder     Category = "ORDER"
	CategoryAggregate Category = "AGGREGATE"
	CategoryGraph     Category = "GRAPH"
	CategoryStore     Category = "STORE"
	CategoryBranch    Category = "BRANCH"
	CategoryJoin      Category = "JOIN"
)

// Category returns the category of the kind.
func (k Kind) Category() Category {
	switch k {
	case KindSourceVertex, KindSourceEdge, KindSourceDelegate, KindInject:
		return CategorySource
	case KindVertexHop, KindEdgeHop, KindEdgeBothV, KindUnfold, KindProperties,
		KindValues, KindLocal, KindMatch:
		return CategoryFlatMap
	case KindEdgeVertex, KindID, KindLabel, KindConstant, KindSelect, KindProject,
		KindPropertyMap, KindPath, KindColumn, KindOrdinal:
		return CategoryMap
	case KindHas, KindHasLabel, KindHasID, KindIs, KindWhereLabel, KindWhereSub,
		KindNot, KindDedup, KindRange, KindSample, KindCoin, KindSimplePath:
		return CategoryFilter
	case KindOrder:
		return CategoryOrder
	case KindCount, KindCountLimit, KindSum, KindMax, KindMin, KindMean, KindFold,
		KindGroup, KindGroupCount:
		return CategoryAggregate
	case KindStore, KindCap:
		return CategoryStore
	case KindGraphProgram:
		return CategoryGraph
	case KindUnion, KindChoose, KindOptional:
		return CategoryBranch
	case KindJoin:
		return CategoryJoin
	}
	return ""
}
