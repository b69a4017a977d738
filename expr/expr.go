package expr

import (
	"fmt"
	"strings"

	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Expression is a parsed path of property-name steps with an optional
// transform pipeline, per spec.md §4.C grammar:
//
//	expr      = *transform path
//	transform = 1*ALPHA ":"
//	path      = step *("." step)
//
// Steps are unescaped at parse time (backslash escapes '.' within a step,
// mirroring value.ParseSelector's escaping rule).
type Expression struct {
	pipeline []Transform
	path     []string
	raw      string
}

// String returns the expression in its original textual form.
func (e *Expression) String() string { return e.raw }

// Path returns the expression's property-name steps, in order.
func (e *Expression) Path() []string { return append([]string(nil), e.path...) }

// Pipeline returns the expression's transform stages, outermost-first (the
// order they appear in the textual form, left to right).
func (e *Expression) Pipeline() []Transform { return append([]Transform(nil), e.pipeline...) }

// IsAggregate reports whether any stage of the pipeline is an aggregate
// transform.
func (e *Expression) IsAggregate() bool {
	for _, t := range e.pipeline {
		if t.IsAggregate() {
			return true
		}
	}
	return false
}

// IsComputed reports whether the expression carries a transform pipeline, as
// opposed to a bare property path.
func (e *Expression) IsComputed() bool { return len(e.pipeline) > 0 }

// Parse parses expr's textual form into an Expression. Path steps may not
// start with '@' (the reserved-field prefix).
func Parse(expr string) (*Expression, error) {
	if expr == "" {
		return nil, fmt.Errorf("expr: empty expression")
	}
	rest := expr
	var pipeline []Transform
	for {
		idx := findUnescapedColon(rest)
		if idx < 0 {
			break
		}
		name := rest[:idx]
		if name == "" || !isAllAlpha(name) {
			break
		}
		t, err := parseTransform(name)
		if err != nil {
			return nil, fmt.Errorf("expr: %q: %w", expr, err)
		}
		pipeline = append(pipeline, t)
		rest = rest[idx+1:]
	}
	if rest == "" {
		return nil, fmt.Errorf("expr: %q: missing path", expr)
	}
	steps, err := parsePath(rest)
	if err != nil {
		return nil, fmt.Errorf("expr: %q: %w", expr, err)
	}
	for _, step := range steps {
		if value.IsReservedPrefix(step) {
			return nil, fmt.Errorf("expr: %q: path step %q must not start with '@'", expr, step)
		}
	}
	return &Expression{pipeline: pipeline, path: steps, raw: expr}, nil
}

func isAllAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func findUnescapedColon(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ':':
			return i
		case '.':
			return -1
		}
	}
	return -1
}

func parsePath(s string) ([]string, error) {
	var steps []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("dangling escape in path %q", s)
			}
			cur.WriteByte(s[i+1])
			i++
		case '.':
			steps = append(steps, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	steps = append(steps, cur.String())
	for _, step := range steps {
		if step == "" {
			return nil, fmt.Errorf("empty path step in %q", s)
		}
	}
	return steps, nil
}

// Apply walks e's path through s, property by property, then folds e's
// transform pipeline over the resulting shape in reverse order (the
// outermost transform, written first, is applied last). Apply fails if any
// path step names a property absent from the shape it is applied to.
func (e *Expression) Apply(s *shape.Shape) (*shape.Shape, error) {
	cur := s
	for _, step := range e.path {
		p, ok := cur.Property(step)
		if !ok {
			return nil, fmt.Errorf("expr: %q: no property %q on shape", e.raw, step)
		}
		cur = p.Shape()
	}
	for i := len(e.pipeline) - 1; i >= 0; i-- {
		var err error
		cur, err = e.pipeline[i].apply(cur)
		if err != nil {
			return nil, fmt.Errorf("expr: %q: %w", e.raw, err)
		}
	}
	return cur, nil
}
