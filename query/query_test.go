package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/expr"
	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

func employeeShape(t *testing.T) *shape.Shape {
	t.Helper()
	name, err := shape.New().WithDatatype(value.Text)
	require.NoError(t, err)
	nameProp, err := shape.NewProperty("name", "ex:name", "", false, name)
	require.NoError(t, err)
	s, err := shape.New().WithClazz("Employee")
	require.NoError(t, err)
	s, err = s.WithProperty(nameProp)
	require.NoError(t, err)
	return s
}

func TestCriterionMergeTightensRange(t *testing.T) {
	c1 := query.Criterion{}.WithLess(value.IntegralValue(100))
	c2 := query.Criterion{}.WithLess(value.IntegralValue(50))
	merged := c1.Merge(c2)
	v, ok := merged.Less()
	require.True(t, ok)
	i, _ := v.Integral()
	assert.EqualValues(t, 50, i)
}

func TestCriterionMergeIntersectsAny(t *testing.T) {
	c1 := query.Criterion{}.WithAny(value.IntegralValue(1), value.IntegralValue(2))
	c2 := query.Criterion{}.WithAny(value.IntegralValue(2), value.IntegralValue(3))
	merged := c1.Merge(c2)
	any, ok := merged.Any()
	require.True(t, ok)
	require.Len(t, any, 1)
	i, _ := any[0].Integral()
	assert.EqualValues(t, 2, i)
}

func TestCriterionMergeConcatenatesFocus(t *testing.T) {
	c1 := query.Criterion{}.WithFocus(value.IntegralValue(1))
	c2 := query.Criterion{}.WithFocus(value.IntegralValue(2))
	merged := c1.Merge(c2)
	assert.Len(t, merged.Focus(), 2)
}

func TestCriterionMergeOrderLastWriteWins(t *testing.T) {
	c1 := query.Criterion{}.WithOrder(1)
	c2 := query.Criterion{}.WithOrder(-5)
	merged := c1.Merge(c2)
	order, ok := merged.Order()
	require.True(t, ok)
	assert.Equal(t, -5, order)
}

func TestEmptyCriterionIsEmpty(t *testing.T) {
	assert.True(t, query.Criterion{}.IsEmpty())
	assert.False(t, query.Criterion{}.WithOrder(1).IsEmpty())
}

func TestNewQueryFiltersEmptyCriteria(t *testing.T) {
	s := employeeShape(t)
	e, err := expr.Parse("name")
	require.NoError(t, err)
	q, err := query.New(value.NilValue(), s, 0, 0, query.Clause{Expr: e, Criterion: query.Criterion{}})
	require.NoError(t, err)
	assert.Empty(t, q.Clauses())
}

func TestNewQueryDeduplicatesByExpressionMerging(t *testing.T) {
	s := employeeShape(t)
	e1, err := expr.Parse("name")
	require.NoError(t, err)
	e2, err := expr.Parse("name")
	require.NoError(t, err)

	q, err := query.New(value.NilValue(), s, 0, 0,
		query.Clause{Expr: e1, Criterion: query.Criterion{}.WithLike("a")},
		query.Clause{Expr: e2, Criterion: query.Criterion{}.WithOrder(3)},
	)
	require.NoError(t, err)
	require.Len(t, q.Clauses(), 1)
	like, ok := q.Clauses()[0].Criterion.Like()
	require.True(t, ok)
	assert.Equal(t, "a", like)
	order, ok := q.Clauses()[0].Criterion.Order()
	require.True(t, ok)
	assert.Equal(t, 3, order)
}

func TestNewQueryRejectsUnknownExpressionPath(t *testing.T) {
	s := employeeShape(t)
	e, err := expr.Parse("nonexistent")
	require.NoError(t, err)
	_, err = query.New(value.NilValue(), s, 0, 0, query.Clause{Expr: e, Criterion: query.Criterion{}.WithOrder(1)})
	assert.Error(t, err)
}

func TestNewQueryRejectsNegativeOffset(t *testing.T) {
	s := employeeShape(t)
	_, err := query.New(value.NilValue(), s, -1, 0)
	assert.Error(t, err)
}

func TestNewQueryRejectsNegativeLimit(t *testing.T) {
	s := employeeShape(t)
	_, err := query.New(value.NilValue(), s, 0, -1)
	assert.Error(t, err)
}

func TestNewQueryUsesModelShapeFieldOverFallback(t *testing.T) {
	wrongShape := shape.New()
	realShape := employeeShape(t)
	obj, err := value.NewObj(value.Field{Name: value.FieldShape, Value: value.EmbedShapeValue(realShape)})
	require.NoError(t, err)
	model := value.ObjectValue(obj)

	e, err := expr.Parse("name")
	require.NoError(t, err)
	q, err := query.New(model, wrongShape, 0, 0, query.Clause{Expr: e, Criterion: query.Criterion{}.WithOrder(1)})
	require.NoError(t, err)
	assert.Len(t, q.Clauses(), 1)
}

func TestNewSpecsRejectsDuplicateProbeNames(t *testing.T) {
	s := employeeShape(t)
	e, err := expr.Parse("name")
	require.NoError(t, err)
	_, err = query.NewSpecs(s,
		query.Probe{Name: "n", Expr: e, Model: value.NilValue()},
		query.Probe{Name: "n", Expr: e, Model: value.NilValue()},
	)
	assert.Error(t, err)
}

func TestSpecsEmbedsAsValue(t *testing.T) {
	s := employeeShape(t)
	e, err := expr.Parse("name")
	require.NoError(t, err)
	specs, err := query.NewSpecs(s, query.Probe{Name: "n", Expr: e, Model: value.NilValue()})
	require.NoError(t, err)

	v, err := value.EmbedValue(specs)
	require.NoError(t, err)
	assert.Equal(t, value.Specs, v.Kind())
}

func TestQueryEmbedsAsValue(t *testing.T) {
	s := employeeShape(t)
	q, err := query.New(value.NilValue(), s, 0, 0)
	require.NoError(t, err)
	v, err := value.EmbedValue(q)
	require.NoError(t, err)
	assert.Equal(t, value.Query, v.Kind())
}
