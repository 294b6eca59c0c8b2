package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// savedSession runs the meal program into a fresh database.
func savedSession(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prog := writeFile(t, dir, "p.json", serveMealProgram)
	db := filepath.Join(dir, "bayan.db")
	_, _, err := execute(t, "run", prog, "--world", worldDir, "--db", db)
	require.NoError(t, err)
	return db
}

func TestQuery(t *testing.T) {
	db := savedSession(t)

	tests := []struct {
		name string
		goal string
		want string
	}{
		{"entity state", "state(أحمد, جوع, ?V)", "V = 0.2\n"},
		{"program fact", "parent(?P, zaid)", "P = ali\n"},
		{"ground", "parent(ali, zaid)", "true.\n"},
		{"no proof", "parent(zaid, ?C)", "false.\n"},
		{"conjunction", "property(sky, hot, ?H), state(أحمد, جوع, ?V)", "H = 0.8, V = 0.2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "query", "--db", db, tt.goal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestQuery_JSON(t *testing.T) {
	db := savedSession(t)

	out, _, err := execute(t, "query", "--db", db, "--format", "json", "event(?A, ?Act, ?T, ?X)")
	require.NoError(t, err)

	var resp struct {
		Data QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Greater(t, resp.Data.Restored, 0)
	assert.Equal(t, []map[string]string{{"A": "أحمد", "Act": "تقديم_وجبة", "T": "أحمد", "X": "1"}}, resp.Data.Solutions)
}

func TestQuery_Errors(t *testing.T) {
	db := savedSession(t)

	_, _, err := execute(t, "query", "state(a, b, ?V)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")

	_, _, err = execute(t, "query", "--db", filepath.Join(t.TempDir(), "none.db"), "state(a, b, ?V)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	_, _, err = execute(t, "query", "--db", db, "--session", "nope", "state(a, b, ?V)")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found: nope")

	_, _, err = execute(t, "query", "--db", db, "state(a, b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid goal")
}

func TestFormatSolutions(t *testing.T) {
	names := []string{"X", "Y"}
	sols := []map[string]string{{"Y": "2", "X": "1"}, {"X": "3", "Y": "4"}}
	assert.Equal(t, "X = 1, Y = 2\nX = 3, Y = 4\n", formatSolutions(names, sols))
}
