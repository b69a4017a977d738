package queryparser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/queryparser"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

func personShape(t *testing.T) *shape.Shape {
	t.Helper()
	age, err := shape.New().WithDatatype(value.Integral)
	require.NoError(t, err)
	ageProp, err := shape.NewProperty("age", "ex:age", "", false, age)
	require.NoError(t, err)

	name, err := shape.New().WithDatatype(value.String)
	require.NoError(t, err)
	nameProp, err := shape.NewProperty("name", "ex:name", "", false, name)
	require.NoError(t, err)

	s, err := shape.New().WithProperty(ageProp)
	require.NoError(t, err)
	s, err = s.WithProperty(nameProp)
	require.NoError(t, err)
	return s
}

func TestParseRangeBounds(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("age<=65&age>=18", value.NilValue(), s)
	require.NoError(t, err)
	require.Len(t, q.Clauses(), 1)
	c := q.Clauses()[0].Criterion
	le, ok := c.LessEqual()
	require.True(t, ok)
	i, _ := le.Integral()
	assert.EqualValues(t, 65, i)
	ge, ok := c.GreaterEqual()
	require.True(t, ok)
	i, _ = ge.Integral()
	assert.EqualValues(t, 18, i)
}

func TestParseBareLessThanIsReservedError(t *testing.T) {
	s := personShape(t)
	_, err := queryparser.Parse("age<", value.NilValue(), s)
	assert.Error(t, err)
}

func TestParseLikeForm(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("~name=ann", value.NilValue(), s)
	require.NoError(t, err)
	like, ok := q.Clauses()[0].Criterion.Like()
	require.True(t, ok)
	assert.Equal(t, "ann", like)
}

func TestParseOrderForms(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("^age=decreasing", value.NilValue(), s)
	require.NoError(t, err)
	priority, ok := q.Clauses()[0].Criterion.Order()
	require.True(t, ok)
	assert.Equal(t, -1, priority)
}

func TestParseOffsetAndLimit(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("@=10&#=5", value.NilValue(), s)
	require.NoError(t, err)
	assert.Equal(t, 10, q.Offset())
	assert.Equal(t, 5, q.Limit())
}

func TestParseAnySetAccumulatesAcrossRepeatedPaths(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("age=18&age=21", value.NilValue(), s)
	require.NoError(t, err)
	any, ok := q.Clauses()[0].Criterion.Any()
	require.True(t, ok)
	require.Len(t, any, 2)
}

func TestParseWildcardIsExistenceTest(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("age=*", value.NilValue(), s)
	require.NoError(t, err)
	any, ok := q.Clauses()[0].Criterion.Any()
	require.True(t, ok)
	assert.Empty(t, any)
}

func TestParseEmptyValueIsNilMember(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("age=", value.NilValue(), s)
	require.NoError(t, err)
	any, ok := q.Clauses()[0].Criterion.Any()
	require.True(t, ok)
	require.Len(t, any, 1)
	assert.True(t, any[0].IsNil())
}

func TestParseMalformedValueNamesDatatype(t *testing.T) {
	s := personShape(t)
	_, err := queryparser.Parse("age=notanumber", value.NilValue(), s)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Integral")
}

func TestParseUnknownPropertyFails(t *testing.T) {
	s := personShape(t)
	_, err := queryparser.Parse("bogus=1", value.NilValue(), s)
	assert.Error(t, err)
}

func TestParseEmptyQueryStringYieldsUnconstrainedQuery(t *testing.T) {
	s := personShape(t)
	q, err := queryparser.Parse("", value.NilValue(), s)
	require.NoError(t, err)
	assert.Empty(t, q.Clauses())
	assert.Equal(t, 0, q.Offset())
	assert.Equal(t, 0, q.Limit())
}
