package query

import (
	"fmt"

	"github.com/oxhq/mesh/expr"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Clause pairs an Expression with the Criterion filtering/ordering it.
type Clause struct {
	Expr      *expr.Expression
	Criterion Criterion
}

// Query is the immutable query IR of spec.md §3/§4.D: a model Value, an
// insertion-ordered, expression-deduplicated set of Criteria, and an
// offset/limit pair.
type Query struct {
	model      value.Value
	modelShape *shape.Shape
	clauses    []Clause
	index      map[string]int
	offset     int
	limit      int
}

// New builds a Query. modelShape is the shape clauses validate against,
// unless model itself carries an embedded Specs or a "@shape" field, in
// which case that shape is used instead per spec.md §4.D. Offset < 0 or
// limit < 0 are fatal. Empty criteria are dropped; criteria sharing an
// expression are merged via Criterion.Merge in encounter order.
func New(model value.Value, modelShape *shape.Shape, offset, limit int, clauses ...Clause) (*Query, error) {
	if offset < 0 {
		return nil, fmt.Errorf("query: offset must be >= 0, got %d", offset)
	}
	if limit < 0 {
		return nil, fmt.Errorf("query: limit must be >= 0, got %d", limit)
	}

	effective, err := effectiveShape(model, modelShape)
	if err != nil {
		return nil, err
	}

	q := &Query{model: model, modelShape: modelShape, offset: offset, limit: limit, index: make(map[string]int)}
	for _, clause := range clauses {
		if clause.Expr == nil {
			return nil, fmt.Errorf("query: clause has nil expression")
		}
		if _, err := clause.Expr.Apply(effective); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		if clause.Criterion.IsEmpty() {
			continue
		}
		key := clause.Expr.String()
		if i, ok := q.index[key]; ok {
			q.clauses[i].Criterion = q.clauses[i].Criterion.Merge(clause.Criterion)
			continue
		}
		q.index[key] = len(q.clauses)
		q.clauses = append(q.clauses, clause)
	}
	return q, nil
}

// effectiveShape resolves the shape that a Query's expressions validate
// against: a Specs-embedded shape or an object's "@shape" field take
// precedence over the explicitly supplied fallback.
func effectiveShape(model value.Value, fallback *shape.Shape) (*shape.Shape, error) {
	if embedded, ok := model.Embedded(); ok {
		if specs, ok := embedded.(*Specs); ok {
			return specs.Shape(), nil
		}
	}
	if sm, ok := model.ShapeOf(); ok {
		s, ok := sm.(*shape.Shape)
		if !ok {
			return nil, fmt.Errorf("query: model's @shape is not a *shape.Shape")
		}
		return s, nil
	}
	return fallback, nil
}

// Model returns the query's subject value.
func (q *Query) Model() value.Value { return q.model }

// Clauses returns the query's criteria in insertion order.
func (q *Query) Clauses() []Clause { return append([]Clause(nil), q.clauses...) }

// Offset returns the query's result offset.
func (q *Query) Offset() int { return q.offset }

// Limit returns the query's result limit; 0 means unlimited.
func (q *Query) Limit() int { return q.limit }

// EmbeddedTag implements value.Embedded so a Query can be wrapped as a
// Value's Query-kind variant.
func (q *Query) EmbeddedTag() string { return "query" }

// WithModel rebuilds the query with a new subject model, keeping the
// existing clauses, offset and limit. Used by the model package's expand
// and populate operators, which transform a query's inner model without
// disturbing its criteria.
func (q *Query) WithModel(model value.Value) (*Query, error) {
	return New(model, q.modelShape, q.offset, q.limit, q.clauses...)
}

// WithOffsetLimit rebuilds the query with a new offset/limit, keeping model
// and clauses.
func (q *Query) WithOffsetLimit(offset, limit int) (*Query, error) {
	return New(q.model, q.modelShape, offset, limit, q.clauses...)
}

// MergeClauses rebuilds the query with other's clauses merged in on top of
// q's (pointwise, by expression), keeping q's model.
func (q *Query) MergeClauses(other *Query) (*Query, error) {
	clauses := append(append([]Clause(nil), q.clauses...), other.clauses...)
	return New(q.model, q.modelShape, q.offset, q.limit, clauses...)
}
