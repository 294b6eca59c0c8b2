package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	db := savedSession(t)

	out, _, err := execute(t, "events", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "[1] أحمد.تقديم_وجبة(أحمد) value=1 sensitivity=1\n    جوع: 0.6 -> 0.2\n", out)
}

func TestEvents_Filter(t *testing.T) {
	db := savedSession(t)

	out, _, err := execute(t, "events", "--db", db, "--actor", "sky")
	require.NoError(t, err)
	assert.Equal(t, "No events.\n", out)

	out, _, err = execute(t, "events", "--db", db, "--action", "تقديم_وجبة", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			SessionID string `json:"session_id"`
			Events    []struct {
				Seq     int64  `json:"seq"`
				Actor   string `json:"actor"`
				Changes []struct {
					Key string  `json:"key"`
					New float64 `json:"new"`
				} `json:"changes"`
			} `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Data.SessionID)
	require.Len(t, resp.Data.Events, 1)
	assert.Equal(t, int64(1), resp.Data.Events[0].Seq)
	require.Len(t, resp.Data.Events[0].Changes, 1)
	assert.Equal(t, "جوع", resp.Data.Events[0].Changes[0].Key)
	assert.InDelta(t, 0.2, resp.Data.Events[0].Changes[0].New, 1e-9)
}

func TestEvents_NoDatabase(t *testing.T) {
	_, _, err := execute(t, "events")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "events", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEvents_EmptyDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "bayan.db")
	prog := writeFile(t, dir, "p.json", `{"type": "Program", "body": []}`)
	_, _, err := execute(t, "run", prog, "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "events", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No events.\n", out)
}
