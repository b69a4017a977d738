package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

func TestMergeRangeTightensMin(t *testing.T) {
	a, err := shape.New().WithRange("minInclusive", value.IntegralValue(1))
	require.NoError(t, err)
	b, err := shape.New().WithRange("minInclusive", value.IntegralValue(10))
	require.NoError(t, err)

	merged, err := shape.Merge(a, b)
	require.NoError(t, err)
	i, _ := merged.MinInclusive.Integral()
	assert.EqualValues(t, 10, i)
}

func TestMergeRangeTightensMax(t *testing.T) {
	a, err := shape.New().WithRange("maxInclusive", value.IntegralValue(10))
	require.NoError(t, err)
	b, err := shape.New().WithRange("maxInclusive", value.IntegralValue(1))
	require.NoError(t, err)

	merged, err := shape.Merge(a, b)
	require.NoError(t, err)
	i, _ := merged.MaxInclusive.Integral()
	assert.EqualValues(t, 1, i)
}

func TestMergeConflictingDatatype(t *testing.T) {
	a, err := shape.New().WithDatatype(value.Integral)
	require.NoError(t, err)
	b, err := shape.New().WithDatatype(value.String)
	require.NoError(t, err)

	_, err = shape.Merge(a, b)
	assert.Error(t, err)
}

func TestMergeConflictingClazz(t *testing.T) {
	a, err := shape.New().WithClazz("Employee")
	require.NoError(t, err)
	b, err := shape.New().WithClazz("Department")
	require.NoError(t, err)

	_, err = shape.Merge(a, b)
	assert.Error(t, err)
}

func TestMergeUnionFacets(t *testing.T) {
	a := shape.New().WithClazzes("A")
	b := shape.New().WithClazzes("B")
	merged, err := shape.Merge(a, b)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, merged.Clazzes)
}

func TestMergeVirtualOR(t *testing.T) {
	a := shape.New().WithVirtual(true)
	b := shape.New().WithVirtual(false)
	merged, err := shape.Merge(a, b)
	require.NoError(t, err)
	assert.True(t, merged.Virtual)
}

func TestExtendRetainsSubtypeClazz(t *testing.T) {
	base, err := shape.New().WithClazz("Person")
	require.NoError(t, err)
	sub, err := shape.New().WithClazz("Employee")
	require.NoError(t, err)

	extended, err := shape.Extend(sub, base)
	require.NoError(t, err)
	assert.Equal(t, "Employee", extended.Clazz)
}

func TestExtendPropertyAuthoritative(t *testing.T) {
	baseNested, err := shape.New().WithLength("maxLength", 10)
	require.NoError(t, err)
	baseProp, err := shape.NewProperty("code", "ex:code", "", false, baseNested)
	require.NoError(t, err)
	base, err := shape.New().WithProperty(baseProp)
	require.NoError(t, err)

	subNested, err := shape.New().WithLength("maxLength", 5)
	require.NoError(t, err)
	subProp, err := shape.NewProperty("code", "ex:code", "", false, subNested)
	require.NoError(t, err)
	sub, err := shape.New().WithProperty(subProp)
	require.NoError(t, err)

	extended, err := shape.Extend(sub, base)
	require.NoError(t, err)
	p, ok := extended.Property("code")
	require.True(t, ok)
	assert.NotNil(t, p.Shape().MaxLength)
	assert.Equal(t, 5, *p.Shape().MaxLength)
}

func TestDuplicatePropertyNameRejected(t *testing.T) {
	nested := shape.New()
	p1, err := shape.NewProperty("name", "ex:name", "", false, nested)
	require.NoError(t, err)
	s, err := shape.New().WithProperty(p1)
	require.NoError(t, err)

	p2, err := shape.NewProperty("name", "ex:other", "", false, nested)
	require.NoError(t, err)
	_, err = s.WithProperty(p2)
	assert.Error(t, err)
}

func TestPropertyRequiresForwardOrReverse(t *testing.T) {
	_, err := shape.NewProperty("x", "", "", false, shape.New())
	assert.Error(t, err)
}

func TestRecursiveShapeViaLazy(t *testing.T) {
	var employee *shape.Shape
	supervisorProp, err := shape.NewLazyProperty("supervisor", "ex:supervisor", "", false, func() *shape.Shape {
		return employee
	})
	require.NoError(t, err)
	employee, err = shape.New().WithProperty(supervisorProp)
	require.NoError(t, err)

	p, ok := employee.Property("supervisor")
	require.True(t, ok)
	assert.Same(t, employee, p.Shape())
}

func TestWithPatternRejectsInvalidRegex(t *testing.T) {
	_, err := shape.New().WithPattern("[")
	assert.Error(t, err)
}

func TestMinGreaterThanMaxRejected(t *testing.T) {
	s, err := shape.New().WithCount("minCount", 5)
	require.NoError(t, err)
	_, err = s.WithCount("maxCount", 1)
	assert.Error(t, err)
}
