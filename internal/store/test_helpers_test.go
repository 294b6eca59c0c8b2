package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
)

// createTestStore creates a new on-disk store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot builds a snapshot with two facts and one event.
func createTestSnapshot(id string) Snapshot {
	return Snapshot{
		Session: Session{ID: id, SourceFile: "demo.bayan", Status: StatusOK},
		Facts: []*logic.Predicate{
			logic.NewPredicate("parent", "ali", "omar"),
			logic.NewPredicate("state", "أحمد", "جوع", 0.2),
		},
		Events: []entity.Event{
			{
				Seq: 1, Actor: "أحمد", Action: "تقديم_وجبة", Target: "أحمد",
				Value: 1, Sensitivity: 1,
				Changes: []entity.Change{{Key: "جوع", Old: 0.6, New: 0.2}},
			},
		},
	}
}
