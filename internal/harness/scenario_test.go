package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "program.json"), []byte(`{"type": "Program", "body": []}`), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_ResolvesPaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/serve_meal.yaml")
	require.NoError(t, err)

	assert.Equal(t, "serve_meal", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "programs", "serve_meal.json"), s.Program)
	assert.Equal(t, filepath.Join("testdata", "world"), s.World)
	assert.Equal(t, "scenario-serve-meal", s.SessionID)
	require.Len(t, s.Queries, 2)
	assert.Equal(t, []map[string]string{{"V": "0.2"}}, s.Queries[0].Expect)
	assert.Nil(t, s.Queries[1].Expect)
	assert.Len(t, s.Assertions, 5)
}

func TestLoadScenario_Seed(t *testing.T) {
	path := writeScenario(t, `
name: seeded
description: d
program: program.json
seed: 7
assertions:
  - type: output_equals
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.NotNil(t, s.Seed)
	assert.Equal(t, uint64(7), *s.Seed)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown field",
			body: "name: x\ndescription: d\nprogram: program.json\nassertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			body: "description: d\nprogram: program.json\nassertions: [{type: output_equals}]\n",
			want: "name is required",
		},
		{
			name: "missing program file",
			body: "name: x\ndescription: d\nprogram: nope.json\nassertions: [{type: output_equals}]\n",
			want: "program file not found",
		},
		{
			name: "missing world",
			body: "name: x\ndescription: d\nprogram: program.json\nworld: nowhere\nassertions: [{type: output_equals}]\n",
			want: "world directory not found",
		},
		{
			name: "nothing to check",
			body: "name: x\ndescription: d\nprogram: program.json\n",
			want: "at least one assertion or query",
		},
		{
			name: "unknown assertion",
			body: "name: x\ndescription: d\nprogram: program.json\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "fault without kind",
			body: "name: x\ndescription: d\nprogram: program.json\nassertions: [{type: fault}]\n",
			want: "kind is required for fault",
		},
		{
			name: "empty event filter",
			body: "name: x\ndescription: d\nprogram: program.json\nassertions: [{type: event_contains}]\n",
			want: "needs actor, action or target",
		},
		{
			name: "query without goal",
			body: "name: x\ndescription: d\nprogram: program.json\nqueries: [{expect: []}]\n",
			want: "queries[0]: goal is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
