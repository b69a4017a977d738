package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func personShapeJSON() string {
	return `{
		"clazz": "Person",
		"idField": "@id",
		"properties": [
			{"name": "age", "forward": "ex:age", "shape": {"datatype": "Integral", "minInclusive": {"datatype": "Integral", "value": "0"}}}
		]
	}`
}

func TestValidateCmdReportsNoViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "person.shape.json"), personShapeJSON())

	valuePath := filepath.Join(dir, "value.json")
	writeFile(t, valuePath, `{"kind":"Object","fields":[{"name":"age","value":{"kind":"Integral","lexical":"30"}}]}`)

	cmd := newValidateCmd()
	out, err := runCmd(t, cmd, "--shapes", dir, "person", valuePath)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestExpandCmdFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "person.shape.json"), personShapeJSON())

	valuePath := filepath.Join(dir, "value.json")
	writeFile(t, valuePath, `{"kind":"Object","fields":[{"name":"age","value":{"kind":"Integral","lexical":"30"}}]}`)

	cmd := newExpandCmd()
	out, err := runCmd(t, cmd, "--shapes", dir, "person", valuePath)
	require.NoError(t, err)
	assert.Contains(t, out, `"age"`)
	assert.Contains(t, out, "30")
}

func TestExpandCmdExplainShowsDiff(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "person.shape.json"), personShapeJSON())

	valuePath := filepath.Join(dir, "value.json")
	writeFile(t, valuePath, `{"kind":"Object","fields":[{"name":"age","value":{"kind":"Integral","lexical":"30"}}]}`)

	cmd := newExpandCmd()
	out, err := runCmd(t, cmd, "--shapes", dir, "--explain", "--no-color", "person", valuePath)
	require.NoError(t, err)
	assert.Contains(t, out, "@@")
}

func TestQueryCmdRunsAgainstStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "person.shape.json"), personShapeJSON())
	dsn := filepath.Join(dir, "mesh.db")

	cmd := newQueryCmd()
	out, err := runCmd(t, cmd, "--shapes", dir, "--dsn", dsn, "person", "age>=0")
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"Array"}`+"\n", out)
}
