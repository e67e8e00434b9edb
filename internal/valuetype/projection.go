package valuetype

import (
	"github.com/roach88/gplan/internal/ir"
)

// KeysOf is the type produced by a keys projection (select(keys),
// column keys). Maps yield a list of keys, entries yield their key and
// paths yield their label lists.
func KeysOf(t Type) (Type, error) {
	return project("keys", t, func(m Type) (Type, bool) {
		switch v := m.(type) {
		case Map:
			return List{Elem: v.Key}, true
		case MapEntry:
			return v.Key, true
		case Path:
			return List{Elem: Scalar{Kind: KindStringList}}, true
		}
		return nil, false
	})
}

// ValuesOf is the type produced by a values projection.
func ValuesOf(t Type) (Type, error) {
	return project("values", t, func(m Type) (Type, bool) {
		switch v := m.(type) {
		case Map:
			return List{Elem: v.Value}, true
		case MapEntry:
			return v.Value, true
		case Path:
			return List{Elem: Union(v.Hops...)}, true
		}
		return nil, false
	})
}

// PathStepsOf is the type of any single step extracted from a path.
func PathStepsOf(t Type) (Type, error) {
	return project("path step", t, func(m Type) (Type, bool) {
		p, ok := m.(Path)
		if !ok {
			return nil, false
		}
		return Union(p.Hops...), true
	})
}

// PathStep is the type of the i-th step of a path. Negative indexes count
// from the end.
func PathStep(t Type, i int) (Type, error) {
	p, ok := t.(Path)
	if !ok {
		return nil, ir.NewUnsupportedProjectionError("path step", str(t))
	}
	if i < 0 {
		i += len(p.Hops)
	}
	if i < 0 || i >= len(p.Hops) {
		return nil, ir.NewIllegalArgumentError("path step %d out of range for %s", i, p)
	}
	return p.Hops[i], nil
}

// UnfoldOf is the type produced by unfold. It is total: lists yield their
// element, maps their entries, paths their steps, and anything else is
// passed through.
func UnfoldOf(t Type) Type {
	members := Members(t)
	out := make([]Type, 0, len(members))
	for _, m := range members {
		switch v := m.(type) {
		case List:
			out = append(out, v.Elem)
		case Map:
			out = append(out, MapEntry(v))
		case Path:
			out = append(out, Union(v.Hops...))
		default:
			out = append(out, m)
		}
	}
	return Union(out...)
}

// FoldOf is the type produced by fold.
func FoldOf(t Type) Type {
	return List{Elem: t}
}

// ReduceOf is the type produced by the numeric reducers sum, mean, max
// and min. Sums widen integers to long and floats to double; mean is
// always double.
func ReduceOf(op string, t Type) (Type, error) {
	return project(op, t, func(m Type) (Type, bool) {
		var kind ScalarKind
		switch v := m.(type) {
		case Scalar:
			kind = v.Kind
		case Property:
			kind = v.Kind
		default:
			return nil, false
		}
		if kind == KindUnknown {
			return Scalar{Kind: KindUnknown}, true
		}
		switch op {
		case "sum":
			if !kind.IsNumeric() {
				return nil, false
			}
			return Scalar{Kind: widen(kind)}, true
		case "mean":
			if !kind.IsNumeric() {
				return nil, false
			}
			return Scalar{Kind: KindDouble}, true
		default:
			return Scalar{Kind: kind}, true
		}
	})
}

func widen(k ScalarKind) ScalarKind {
	switch k {
	case KindInt, KindLong:
		return KindLong
	}
	return KindDouble
}

// project applies f to every alternative of t. If any alternative is
// rejected, the whole projection fails with UNSUPPORTED_PROJECTION.
func project(op string, t Type, f func(Type) (Type, bool)) (Type, error) {
	members := Members(t)
	out := make([]Type, 0, len(members))
	for _, m := range members {
		r, ok := f(m)
		if !ok {
			return nil, ir.NewUnsupportedProjectionError(op, str(t))
		}
		out = append(out, r)
	}
	return Union(out...), nil
}
