package store

import (
	"context"
	"testing"

	"github.com/roach88/bayan/internal/logic"
)

func TestRestore_RebuildsQueryableKB(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.SaveSession(ctx, createTestSnapshot("s1")); err != nil {
		t.Fatalf("SaveSession() failed: %v", err)
	}

	kb := logic.NewKB()
	n, err := s.Restore(ctx, "s1", kb)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("restored %d facts, want 2", n)
	}

	goals, scope, err := logic.ParseGoals("state(أحمد, جوع, ?V)")
	if err != nil {
		t.Fatalf("ParseGoals() failed: %v", err)
	}
	sols, err := kb.Query(goals...)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(sols) != 1 {
		t.Fatalf("got %d solutions, want 1", len(sols))
	}
	if v := sols[0][scope.Names()[0]]; v != 0.2 {
		t.Errorf("V = %v, want 0.2", v)
	}
}

func TestRestore_UnknownSession(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.Restore(context.Background(), "missing", logic.NewKB()); err == nil {
		t.Error("expected error for unknown session")
	}
}
