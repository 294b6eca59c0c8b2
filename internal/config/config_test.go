package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil, "bayan.hcl")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_AllBlocks(t *testing.T) {
	src := `
errors {
  color         = true
  context_lines = 2
  tab_stop      = 8
}

engine {
  max_depth       = 64
  max_propagation = 50
  max_call_depth  = 200
  seed            = 42
}

store {
  path = "sessions.db"
}
`
	cfg, err := Parse([]byte(src), "bayan.hcl")
	require.NoError(t, err)

	assert.Equal(t, ErrorsConfig{Color: true, ContextLines: 2, TabStop: 8}, cfg.Errors)
	assert.Equal(t, EngineConfig{MaxDepth: 64, MaxPropagation: 50, MaxCallDepth: 200, Seed: 42, HasSeed: true}, cfg.Engine)
	assert.Equal(t, "sessions.db", cfg.Store.Path)
}

func TestParse_PartialBlockKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("engine {\n  seed = 0\n}\n"), "bayan.hcl")
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxDepth, cfg.Engine.MaxDepth)
	assert.Equal(t, DefaultMaxPropagation, cfg.Engine.MaxPropagation)
	assert.Equal(t, DefaultMaxCallDepth, cfg.Engine.MaxCallDepth)
	assert.True(t, cfg.Engine.HasSeed)
	assert.Equal(t, int64(0), cfg.Engine.Seed)
	assert.Equal(t, DefaultTabStop, cfg.Errors.TabStop)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "errors {", "failed to parse config"},
		{"unknown attribute", "errors {\n  colour = true\n}\n", "failed to decode config"},
		{"unknown block", "cache {}\n", "failed to decode config"},
		{"wrong type", "errors {\n  tab_stop = \"wide\"\n}\n", "failed to decode config"},
		{"negative context", "errors {\n  context_lines = -1\n}\n", "context_lines must not be negative"},
		{"zero tab stop", "errors {\n  tab_stop = 0\n}\n", "tab_stop must be at least 1"},
		{"zero depth", "engine {\n  max_depth = 0\n}\n", "max_depth must be at least 1"},
		{"zero call depth", "engine {\n  max_call_depth = 0\n}\n", "max_call_depth must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bayan.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("store {\n  path = \"x.db\"\n}\n"), 0o644))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "x.db", cfg.Store.Path)
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), DefaultFile)

	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(missing, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
