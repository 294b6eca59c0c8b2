package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate", worldDir)
	require.NoError(t, err)
	assert.Equal(t, "World "+worldDir+" is valid: 2 entities, 1 equations, 0 opposites, 1 operators (2 files)\n", out)
}

func TestValidate_ValidJSON(t *testing.T) {
	out, _, err := execute(t, "validate", worldDir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data ValidateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Files)
	assert.Equal(t, 2, resp.Data.Entities)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidate_DecodeErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "world.cue", `
equations: [
	{key: "k", formula: "1"},
	{entity: "x", kind: "mood", key: "k", formula: "1"},
]
`)

	out, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "has 2 error(s)")
	assert.Contains(t, out, "E202: entity is required")
	assert.Contains(t, out, "E204:")
}

func TestValidate_BadFormula(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "world.cue", `
entities: x: states: k: 0.5
equations: [{entity: "x", key: "k", formula: "1 +"}]
`)

	out, _, err := execute(t, "validate", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data ValidateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Contains(t, resp.Data.Errors[0].Message, "equation x.k")
}

func TestValidate_CommandErrors(t *testing.T) {
	_, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")

	_, _, err = execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no CUE files")
}
