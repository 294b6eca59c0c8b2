package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayan/internal/entity"
)

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bayan.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bayan.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(ctx, createTestSnapshot("s1")))
	require.NoError(t, s.Close())

	for range 2 {
		s, err = Open(path)
		require.NoError(t, err)
		v, err := s.userVersion()
		require.NoError(t, err)
		assert.Equal(t, SchemaVersion, v)
		require.NoError(t, s.Close())
	}

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	events, err := s.ReadEvents(ctx, "s1", entity.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveSession(ctx, createTestSnapshot("m1")))
	sess, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m1", sess.ID)
}

func TestOpen_UnwritableDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "bayan.db"))
	assert.Error(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"foreign_keys": "1",
		"busy_timeout": "5000",
	}
	for name, expected := range want {
		got, err := s.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, expected, got, name)
	}
}

func TestOpen_MigrationsCreateIndexes(t *testing.T) {
	s := createTestStore(t)

	for _, idx := range []string{"idx_facts_name", "idx_events_actor", "idx_events_action"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", idx).Scan(&name)
		assert.NoError(t, err, idx)
	}
}

func TestOpen_MigratesOlderDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_events_action")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.userVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_events_action'").Scan(&name)
	assert.NoError(t, err)
}

func TestClose_ZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}
