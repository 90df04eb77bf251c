package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conn = `machine Conn
open { Idle => Open }
close {
    Open => Closing,
    Closing => Closed,
}
`

func writeDefinition(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "conn.fsm")
	require.NoError(t, os.WriteFile(path, []byte(conn), 0o644))

	return path
}

func TestRun_Dot(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{writeDefinition(t)}, &out))

	assert.True(t, strings.HasPrefix(out.String(), "digraph {\n  label = \"Conn\";\n"))
	assert.Contains(t, out.String(), `"Closing" -> "Closed" [label = "close"];`)
}

func TestRun_EnvDefaultFormat(t *testing.T) {
	t.Setenv("PFSMGEN_FORMAT", "table")

	var out bytes.Buffer
	require.NoError(t, run([]string{writeDefinition(t)}, &out))
	assert.Contains(t, out.String(), `open: Err(NoOp { current: Open }),`)
}

func TestRun_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-format", "json", writeDefinition(t)}, &out))

	var table map[string]map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &table))
	assert.Equal(t, "Ok(Closing)", table["Open"]["close"])
	assert.Equal(t, `Err(InvalidTransition { current: Closed, event: "close" })`, table["Closed"]["close"])
}

func TestRun_GoToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "conn_fsm.go")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-format", "go", "-pkg", "quic", "-type", "ConnState", "-out", dst, writeDefinition(t)}, &out))
	assert.Zero(t, out.Len())

	src, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(src), "// Code generated by pfsmgen from conn.fsm. DO NOT EDIT.")
	assert.Contains(t, string(src), "func (s *ConnState) Close() error")
}

func TestRun_ConvertToYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-format", "yaml", writeDefinition(t)}, &out))

	yamlPath := filepath.Join(t.TempDir(), "conn.yaml")
	require.NoError(t, os.WriteFile(yamlPath, out.Bytes(), 0o644))

	var text bytes.Buffer
	require.NoError(t, run([]string{"-format", "text", yamlPath}, &text))
	assert.Equal(t, "machine Conn\n\nopen { Idle => Open }\n\nclose {\n    Open => Closing,\n    Closing => Closed,\n}\n", text.String())
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer

	require.ErrorIs(t, run(nil, &out), errUsage)
	require.ErrorIs(t, run([]string{"-nope", "x"}, &out), errUsage)
	require.ErrorContains(t, run([]string{"-format", "svg", writeDefinition(t)}, &out), `unknown format "svg"`)
	require.ErrorIs(t, run([]string{filepath.Join(t.TempDir(), "missing.fsm")}, &out), os.ErrNotExist)
}
