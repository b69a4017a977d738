// Package query implements the Query/Criterion/Specs/Probe IR of spec.md
// §4.D: filters and sort directives attached to parsed Expressions, composed
// into an immutable Query or a tabular-projection Specs.
package query

import "github.com/oxhq/mesh/value"

// Criterion is an optional filter/sort predicate attached to one expression
// within a Query, per spec.md §3/§4.D. The zero Criterion is empty (matches
// everything, imposes no order) and is filtered out of Query construction.
type Criterion struct {
	less         *value.Value
	lessEqual    *value.Value
	greater      *value.Value
	greaterEqual *value.Value

	like    string
	hasLike bool

	any    []value.Value
	hasAny bool

	focus []value.Value

	order    int
	hasOrder bool
}

// IsEmpty reports whether c imposes no constraint at all.
func (c Criterion) IsEmpty() bool {
	return c.less == nil && c.lessEqual == nil && c.greater == nil && c.greaterEqual == nil &&
		!c.hasLike && !c.hasAny && len(c.focus) == 0 && !c.hasOrder
}

// WithLess sets the strict upper bound.
func (c Criterion) WithLess(v value.Value) Criterion { c.less = &v; return c }

// WithLessEqual sets the inclusive upper bound.
func (c Criterion) WithLessEqual(v value.Value) Criterion { c.lessEqual = &v; return c }

// WithGreater sets the strict lower bound.
func (c Criterion) WithGreater(v value.Value) Criterion { c.greater = &v; return c }

// WithGreaterEqual sets the inclusive lower bound.
func (c Criterion) WithGreaterEqual(v value.Value) Criterion { c.greaterEqual = &v; return c }

// WithLike sets a substring/token pattern.
func (c Criterion) WithLike(pattern string) Criterion {
	c.like, c.hasLike = pattern, true
	return c
}

// WithAny sets the set of required alternatives. An empty set is an
// existence test; a set containing Nil is a non-existence alternative.
func (c Criterion) WithAny(alternatives ...value.Value) Criterion {
	c.any = append([]value.Value(nil), alternatives...)
	c.hasAny = true
	return c
}

// WithFocus appends values that should sort before all others.
func (c Criterion) WithFocus(values ...value.Value) Criterion {
	c.focus = append(append([]value.Value(nil), c.focus...), values...)
	return c
}

// WithOrder sets the sort priority: magnitude is priority, sign is
// direction.
func (c Criterion) WithOrder(priority int) Criterion {
	c.order, c.hasOrder = priority, true
	return c
}

func (c Criterion) Less() (value.Value, bool)         { return deref(c.less) }
func (c Criterion) LessEqual() (value.Value, bool)    { return deref(c.lessEqual) }
func (c Criterion) Greater() (value.Value, bool)      { return deref(c.greater) }
func (c Criterion) GreaterEqual() (value.Value, bool) { return deref(c.greaterEqual) }
func (c Criterion) Like() (string, bool)               { return c.like, c.hasLike }
func (c Criterion) Any() ([]value.Value, bool)         { return c.any, c.hasAny }
func (c Criterion) Focus() []value.Value               { return append([]value.Value(nil), c.focus...) }
func (c Criterion) Order() (int, bool)                 { return c.order, c.hasOrder }

func deref(v *value.Value) (value.Value, bool) {
	if v == nil {
		return value.Value{}, false
	}
	return *v, true
}

// Merge intersects c with other, per spec.md §4.D: range bounds tighten,
// `any` sets intersect when both are non-empty (by structural equality), focus
// lists concatenate, and order is last-write-wins (other's order, when set,
// wins).
func (c Criterion) Merge(other Criterion) Criterion {
	out := c

	out.less = tighterUpper(c.less, other.less)
	out.lessEqual = tighterUpper(c.lessEqual, other.lessEqual)
	out.greater = tighterLower(c.greater, other.greater)
	out.greaterEqual = tighterLower(c.greaterEqual, other.greaterEqual)

	if other.hasLike {
		out.like, out.hasLike = other.like, true
	}

	switch {
	case c.hasAny && other.hasAny && len(c.any) > 0 && len(other.any) > 0:
		out.any = intersectValues(c.any, other.any)
		out.hasAny = true
	case other.hasAny:
		out.any, out.hasAny = other.any, true
	case c.hasAny:
		out.any, out.hasAny = c.any, true
	}

	out.focus = append(append([]value.Value(nil), c.focus...), other.focus...)

	if other.hasOrder {
		out.order, out.hasOrder = other.order, true
	}

	return out
}

func tighterUpper(a, b *value.Value) *value.Value {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	cmp, err := value.Compare(*a, *b)
	if err != nil || cmp <= 0 {
		return a
	}
	return b
}

func tighterLower(a, b *value.Value) *value.Value {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	cmp, err := value.Compare(*a, *b)
	if err != nil || cmp >= 0 {
		return a
	}
	return b
}

func intersectValues(a, b []value.Value) []value.Value {
	var out []value.Value
	for _, x := range a {
		for _, y := range b {
			if value.Equal(x, y) {
				out = append(out, x)
				break
			}
		}
	}
	return out
}
