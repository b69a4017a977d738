package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/validate"
	"github.com/oxhq/mesh/value"
)

func mustObj(t *testing.T, fields ...value.Field) *value.Obj {
	t.Helper()
	o, err := value.NewObj(fields...)
	require.NoError(t, err)
	return o
}

func TestDatatypeMismatchIsViolation(t *testing.T) {
	s, err := shape.New().WithDatatype(value.Integral)
	require.NoError(t, err)
	violations := validate.Validate(s, value.StringValue("x"), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "datatype", violations[0].Rule)
}

func TestNilNeverViolatesDatatype(t *testing.T) {
	s, err := shape.New().WithDatatype(value.Integral)
	require.NoError(t, err)
	violations := validate.Validate(s, value.NilValue(), false)
	assert.Empty(t, violations)
}

func TestArrayElementsEachCheckedForDatatype(t *testing.T) {
	s, err := shape.New().WithDatatype(value.Integral)
	require.NoError(t, err)
	v := value.ArrayValue(value.IntegralValue(1), value.StringValue("bad"))
	violations := validate.Validate(s, v, false)
	require.Len(t, violations, 1)
}

func TestRangeViolation(t *testing.T) {
	s, err := shape.New().WithRange("minInclusive", value.IntegralValue(10))
	require.NoError(t, err)
	violations := validate.Validate(s, value.IntegralValue(5), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "minInclusive", violations[0].Rule)
}

func TestLengthViolation(t *testing.T) {
	s, err := shape.New().WithLength("maxLength", 3)
	require.NoError(t, err)
	violations := validate.Validate(s, value.TextValue("", "abcd"), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "maxLength", violations[0].Rule)
}

func TestPatternViolation(t *testing.T) {
	s, err := shape.New().WithPattern(`^\d+$`)
	require.NoError(t, err)
	violations := validate.Validate(s, value.TextValue("", "abc"), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "pattern", violations[0].Rule)
}

func TestLanguageInRejectsNonText(t *testing.T) {
	s := shape.New().WithLanguageIn("en")
	violations := validate.Validate(s, value.StringValue("x"), false)
	require.Len(t, violations, 2)
	assert.Equal(t, "datatype", violations[0].Rule)
	assert.Equal(t, "languageIn", violations[1].Rule)
}

func TestLanguageInWildcardAllowsAny(t *testing.T) {
	s := shape.New().WithLanguageIn(value.WildcardLocale)
	violations := validate.Validate(s, value.TextValue("fr", "bonjour"), false)
	assert.Empty(t, violations)
}

func TestUniqueLangViolation(t *testing.T) {
	s := shape.New().WithUniqueLang(true)
	v := value.ArrayValue(value.TextValue("en", "a"), value.TextValue("en", "b"))
	violations := validate.Validate(s, v, false)
	require.Len(t, violations, 1)
	assert.Equal(t, "uniqueLang", violations[0].Rule)
}

func TestMinCountMeasuresMultiCardinality(t *testing.T) {
	s, err := shape.New().WithCount("minCount", 2)
	require.NoError(t, err)
	violations := validate.Validate(s, value.IntegralValue(1), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "minCount", violations[0].Rule)
}

func TestDeltaModeSkipsMinCountOnAbsent(t *testing.T) {
	s, err := shape.New().WithCount("minCount", 1)
	require.NoError(t, err)
	violations := validate.Validate(s, value.NilValue(), true)
	assert.Empty(t, violations)
}

func TestHasValueRequiresPresence(t *testing.T) {
	s, err := shape.New().WithHasValue(value.IntegralValue(42))
	require.NoError(t, err)
	violations := validate.Validate(s, value.IntegralValue(1), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "hasValue", violations[0].Rule)
}

func TestConstraintNilPasses(t *testing.T) {
	s := shape.New().WithConstraint(func(v value.Value) value.Value { return value.NilValue() })
	violations := validate.Validate(s, value.IntegralValue(1), false)
	assert.Empty(t, violations)
}

func TestConstraintViolationCarriesReturnedValue(t *testing.T) {
	s := shape.New().WithConstraint(func(v value.Value) value.Value { return value.StringValue("too big") })
	violations := validate.Validate(s, value.IntegralValue(1), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "too big", violations[0].Detail)
}

func TestUnknownFieldIsViolation(t *testing.T) {
	nameShape, err := shape.New().WithDatatype(value.Text)
	require.NoError(t, err)
	nameProp, err := shape.NewProperty("name", "ex:name", "", false, nameShape)
	require.NoError(t, err)
	s, err := shape.New().WithProperty(nameProp)
	require.NoError(t, err)

	obj := mustObj(t,
		value.Field{Name: "name", Value: value.TextValue("", "a")},
		value.Field{Name: "mystery", Value: value.IntegralValue(1)},
	)
	violations := validate.Validate(s, value.ObjectValue(obj), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "unknownField", violations[0].Rule)
}

func TestQueryValuedUnknownFieldIsNotAViolation(t *testing.T) {
	s := shape.New()
	q, err := query.New(value.NilValue(), shape.New(), 0, 0)
	require.NoError(t, err)
	qv, err := value.EmbedValue(q)
	require.NoError(t, err)

	obj := mustObj(t, value.Field{Name: "search", Value: qv})
	violations := validate.Validate(s, value.ObjectValue(obj), false)
	assert.Empty(t, violations)
}

func TestEmbeddedPropertyRecursesIntoNested(t *testing.T) {
	nestedName, err := shape.New().WithDatatype(value.Text)
	require.NoError(t, err)
	nestedNameProp, err := shape.NewProperty("name", "ex:name", "", false, nestedName)
	require.NoError(t, err)
	nested, err := shape.New().WithProperty(nestedNameProp)
	require.NoError(t, err)

	outerProp, err := shape.NewProperty("dept", "ex:dept", "", true, nested)
	require.NoError(t, err)
	outer, err := shape.New().WithProperty(outerProp)
	require.NoError(t, err)

	deptObj := mustObj(t, value.Field{Name: "name", Value: value.IntegralValue(1)})
	rootObj := mustObj(t, value.Field{Name: "dept", Value: value.ObjectValue(deptObj)})

	violations := validate.Validate(outer, value.ObjectValue(rootObj), false)
	require.Len(t, violations, 1)
	assert.Equal(t, "datatype", violations[0].Rule)
	assert.Equal(t, "dept.name", violations[0].Path)
}

func TestNonEmbeddedPropertyDoesNotRecurse(t *testing.T) {
	nestedName, err := shape.New().WithDatatype(value.Text)
	require.NoError(t, err)
	nestedNameProp, err := shape.NewProperty("name", "ex:name", "", false, nestedName)
	require.NoError(t, err)
	nested, err := shape.New().WithProperty(nestedNameProp)
	require.NoError(t, err)

	outerProp, err := shape.NewProperty("dept", "ex:dept", "", false, nested)
	require.NoError(t, err)
	outer, err := shape.New().WithProperty(outerProp)
	require.NoError(t, err)

	deptObj := mustObj(t, value.Field{Name: "name", Value: value.IntegralValue(1)})
	rootObj := mustObj(t, value.Field{Name: "dept", Value: value.ObjectValue(deptObj)})

	violations := validate.Validate(outer, value.ObjectValue(rootObj), false)
	assert.Empty(t, violations)
}
