package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/expr"
	"github.com/oxhq/mesh/internal/sqlstore"
	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/store"
	"github.com/oxhq/mesh/value"
)

func openTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(":memory:", false)
	require.NoError(t, err)
	return s
}

func personObj(t *testing.T, id string, age int64) value.Value {
	t.Helper()
	o, err := value.NewObj(
		value.Field{Name: value.FieldID, Value: value.URIValue(id)},
		value.Field{Name: "age", Value: value.IntegralValue(age)},
		value.Field{Name: "name", Value: value.TextValue("en", id)},
	)
	require.NoError(t, err)
	return value.ObjectValue(o)
}

func TestInsertThenRetrieveByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, personObj(t, "urn:p:1", 30)))

	model, err := value.NewObj(
		value.Field{Name: value.FieldID, Value: value.URIValue("urn:p:1")},
		value.Field{Name: "age", Value: value.NilValue()},
		value.Field{Name: "name", Value: value.NilValue()},
	)
	require.NoError(t, err)

	out, found, err := s.Retrieve(ctx, value.ObjectValue(model))
	require.NoError(t, err)
	require.True(t, found)
	o, _ := out.Obj()
	av, _ := o.Get("age")
	age, _ := av.Integral()
	assert.EqualValues(t, 30, age)
}

func TestRetrieveMissingIDReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	model, err := value.NewObj(value.Field{Name: value.FieldID, Value: value.URIValue("urn:p:missing")})
	require.NoError(t, err)

	_, found, err := s.Retrieve(ctx, value.ObjectValue(model))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemoveNonexistentIsNotFoundError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Remove(ctx, personObj(t, "urn:p:gone", 1))
	require.Error(t, err)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.NotFound, storeErr.Code)
}

func TestInsertRequiresID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	obj, err := value.NewObj(value.Field{Name: "age", Value: value.IntegralValue(1)})
	require.NoError(t, err)

	err = s.Insert(ctx, value.ObjectValue(obj))
	require.Error(t, err)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.Underspecified, storeErr.Code)
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Execute(ctx, func(txn store.Txn) error {
		return txn.Insert(ctx, personObj(t, "urn:p:tx", 5))
	})
	require.NoError(t, err)

	model, _ := value.NewObj(value.Field{Name: value.FieldID, Value: value.URIValue("urn:p:tx")})
	_, found, err := s.Retrieve(ctx, value.ObjectValue(model))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestExecuteAbortsOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sentinel := assert.AnError
	err := s.Execute(ctx, func(txn store.Txn) error {
		if err := txn.Insert(ctx, personObj(t, "urn:p:rollback", 5)); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	model, _ := value.NewObj(value.Field{Name: value.FieldID, Value: value.URIValue("urn:p:rollback")})
	_, found, err := s.Retrieve(ctx, value.ObjectValue(model))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRetrieveQueryFiltersByCriterion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, personObj(t, "urn:p:young", 10)))
	require.NoError(t, s.Insert(ctx, personObj(t, "urn:p:old", 80)))

	ageShape, err := shape.New().WithDatatype(value.Integral)
	require.NoError(t, err)
	ageProp, err := shape.NewProperty("age", "ex:age", "", false, ageShape)
	require.NoError(t, err)
	s2, err := shape.New().WithProperty(ageProp)
	require.NoError(t, err)

	ageExpr, err := expr.Parse("age")
	require.NoError(t, err)

	c := query.Criterion{}.WithGreaterEqual(value.IntegralValue(18))
	q, err := query.New(personModel(t), s2, 0, 0, query.Clause{Expr: ageExpr, Criterion: c})
	require.NoError(t, err)

	qv, err := value.EmbedValue(q)
	require.NoError(t, err)

	out, found, err := s.Retrieve(ctx, qv)
	require.NoError(t, err)
	require.True(t, found)
	arr, ok := out.Array()
	require.True(t, ok)
	require.Len(t, arr, 1)
	id, _ := arr[0].ID()
	assert.Equal(t, "urn:p:old", id)
}

func personModel(t *testing.T) value.Value {
	t.Helper()
	o, err := value.NewObj(
		value.Field{Name: value.FieldID, Value: value.NilValue()},
		value.Field{Name: "age", Value: value.NilValue()},
		value.Field{Name: "name", Value: value.NilValue()},
	)
	require.NoError(t, err)
	return value.ObjectValue(o)
}
