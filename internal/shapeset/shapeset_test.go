package shapeset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/internal/shapeset"
	"github.com/oxhq/mesh/value"
)

func writeShape(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".shape.json"), []byte(body), 0o644))
}

func TestLoadBuildsScalarFacets(t *testing.T) {
	dir := t.TempDir()
	writeShape(t, dir, "age", `{
		"datatype": "Integral",
		"minInclusive": {"datatype": "Integral", "value": "0"},
		"maxInclusive": {"datatype": "Integral", "value": "150"}
	}`)

	set, err := shapeset.Load(dir)
	require.NoError(t, err)

	s, err := set.Shape("age")
	require.NoError(t, err)
	assert.True(t, s.HasDatatype())
	assert.Equal(t, value.Integral, s.Datatype)
	require.NotNil(t, s.MinInclusive)
	n, _ := s.MinInclusive.Integral()
	assert.EqualValues(t, 0, n)
}

func TestLoadBuildsNestedProperties(t *testing.T) {
	dir := t.TempDir()
	writeShape(t, dir, "person", `{
		"clazz": "Person",
		"idField": "@id",
		"properties": [
			{"name": "age", "forward": "ex:age", "shape": {"datatype": "Integral"}},
			{"name": "name", "forward": "ex:name", "shape": {"datatype": "Text"}}
		]
	}`)

	set, err := shapeset.Load(dir)
	require.NoError(t, err)

	s, err := set.Shape("person")
	require.NoError(t, err)
	assert.Equal(t, "Person", s.Clazz)
	p, ok := s.Property("age")
	require.True(t, ok)
	assert.Equal(t, value.Integral, p.Shape().Datatype)
}

func TestLoadResolvesSelfReferentialRef(t *testing.T) {
	dir := t.TempDir()
	writeShape(t, dir, "employee", `{
		"clazz": "Employee",
		"properties": [
			{"name": "supervisor", "forward": "ex:supervisor", "ref": "employee"}
		]
	}`)

	set, err := shapeset.Load(dir)
	require.NoError(t, err)

	s, err := set.Shape("employee")
	require.NoError(t, err)
	p, ok := s.Property("supervisor")
	require.True(t, ok)
	assert.Same(t, s, p.Shape())
}

func TestLoadResolvesMutuallyRecursiveRefs(t *testing.T) {
	dir := t.TempDir()
	writeShape(t, dir, "department", `{
		"clazz": "Department",
		"properties": [
			{"name": "head", "forward": "ex:head", "ref": "employee2"}
		]
	}`)
	writeShape(t, dir, "employee2", `{
		"clazz": "Employee",
		"properties": [
			{"name": "department", "forward": "ex:department", "ref": "department"}
		]
	}`)

	set, err := shapeset.Load(dir)
	require.NoError(t, err)

	dept, err := set.Shape("department")
	require.NoError(t, err)
	head, ok := dept.Property("head")
	require.True(t, ok)
	emp := head.Shape()
	assert.Equal(t, "Employee", emp.Clazz)

	deptAgain, ok := emp.Property("department")
	require.True(t, ok)
	assert.Equal(t, "Department", deptAgain.Shape().Clazz)
}

func TestLoadRejectsUnknownRef(t *testing.T) {
	dir := t.TempDir()
	writeShape(t, dir, "broken", `{
		"properties": [
			{"name": "x", "forward": "ex:x", "ref": "missing"}
		]
	}`)

	_, err := shapeset.Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDatatype(t *testing.T) {
	dir := t.TempDir()
	writeShape(t, dir, "bogus", `{"datatype": "NotAKind"}`)

	_, err := shapeset.Load(dir)
	assert.Error(t, err)
}

func TestLoadDiscoversNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeShape(t, sub, "widget", `{"datatype": "String"}`)

	set, err := shapeset.Load(dir)
	require.NoError(t, err)
	assert.Contains(t, set.Names(), "widget")
}

func TestShapeUnknownNameFails(t *testing.T) {
	dir := t.TempDir()
	set, err := shapeset.Load(dir)
	require.NoError(t, err)

	_, err = set.Shape("nope")
	assert.Error(t, err)
}
