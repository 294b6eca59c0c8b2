package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T) *KB {
	t.Helper()
	kb := NewKB()
	kb.Assertz(NewPredicate("parent", "tom", "bob"))
	kb.Assertz(NewPredicate("parent", "bob", "ann"))
	kb.Assertz(NewPredicate("parent", "ann", "joe"))

	// ancestor(X, Y) :- parent(X, Y).
	// ancestor(X, Y) :- parent(X, Z), ancestor(Z, Y).
	s1 := NewScope()
	kb.AssertzRule(&Rule{
		Head: NewPredicate("ancestor", s1.Var("X"), s1.Var("Y")),
		Body: []*Predicate{NewPredicate("parent", s1.Var("X"), s1.Var("Y"))},
	})
	s2 := NewScope()
	kb.AssertzRule(&Rule{
		Head: NewPredicate("ancestor", s2.Var("X"), s2.Var("Y")),
		Body: []*Predicate{
			NewPredicate("parent", s2.Var("X"), s2.Var("Z")),
			NewPredicate("ancestor", s2.Var("Z"), s2.Var("Y")),
		},
	})
	return kb
}

func TestKB_GroundFactQueryYieldsOneEmptySolution(t *testing.T) {
	kb := NewKB()
	kb.Assertz(NewPredicate("likes", "mary", "wine"))

	sols, err := kb.Query(NewPredicate("likes", "mary", "wine"))
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.Empty(t, sols[0])
}

func TestKB_NoProofIsEmptyNotError(t *testing.T) {
	kb := NewKB()

	sols, err := kb.Query(NewPredicate("likes", "mary", "beer"))
	require.NoError(t, err)
	assert.NotNil(t, sols)
	assert.Empty(t, sols)
}

func TestKB_RecursiveRulesInOrder(t *testing.T) {
	kb := family(t)
	s := NewScope()

	sols, err := kb.Query(NewPredicate("ancestor", "tom", s.Var("Who")))
	require.NoError(t, err)

	var who []any
	for _, sol := range sols {
		who = append(who, sol["Who"])
	}
	assert.Equal(t, []any{"bob", "ann", "joe"}, who)
}

func TestKB_SolutionsDoNotLeakBindings(t *testing.T) {
	kb := family(t)
	s := NewScope()
	x := s.Var("X")

	sols, err := kb.Query(NewPredicate("parent", x, s.Var("Y")))
	require.NoError(t, err)
	assert.Len(t, sols, 3)
	assert.False(t, x.Bound(), "query must leave variables unbound")

	for _, sol := range sols {
		assert.Len(t, sol, 2)
	}
}

func TestKB_ConjunctionSharesVariables(t *testing.T) {
	kb := family(t)
	goals, _, err := ParseGoals("parent(?X, ?Y), parent(?Y, ?Z)")
	require.NoError(t, err)

	sols, err := kb.Query(goals...)
	require.NoError(t, err)
	require.Len(t, sols, 2)
	assert.Equal(t, Solution{"X": "tom", "Y": "bob", "Z": "ann"}, sols[0])
	assert.Equal(t, Solution{"X": "bob", "Y": "ann", "Z": "joe"}, sols[1])
}

func TestKB_AssertaPrepends(t *testing.T) {
	kb := NewKB()
	kb.Assertz(NewPredicate("color", "red"))
	kb.Asserta(NewPredicate("color", "blue"))
	kb.Assertz(NewPredicate("color", "green"))

	s := NewScope()
	sols, err := kb.Query(NewPredicate("color", s.Var("C")))
	require.NoError(t, err)
	require.Len(t, sols, 3)
	assert.Equal(t, "blue", sols[0]["C"])
	assert.Equal(t, "red", sols[1]["C"])
	assert.Equal(t, "green", sols[2]["C"])
}

func TestKB_RetractFirstMatchOnly(t *testing.T) {
	kb := NewKB()
	kb.Assertz(NewPredicate("n", 1))
	kb.Assertz(NewPredicate("n", 2))

	s := NewScope()
	assert.True(t, kb.Retract(NewPredicate("n", s.Var("X"))))

	sols, err := kb.Query(NewPredicate("n", s.Var("Y")))
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.Equal(t, int64(2), sols[0]["Y"])

	assert.False(t, kb.Retract(NewPredicate("n", 7)))
	assert.False(t, kb.Retract(NewPredicate("missing", 1)))
}

func TestKB_DuplicateAssertThenRetractAll(t *testing.T) {
	kb := NewKB()
	kb.Assertz(NewPredicate("state", "أحمد", "جوع", 0.6))
	kb.Assertz(NewPredicate("state", "أحمد", "جوع", 0.6))

	s := NewScope()
	removed := kb.RetractAll(NewPredicate("state", "أحمد", "جوع", s.Var("_")))
	assert.Equal(t, 2, removed)

	sols, err := kb.Query(NewPredicate("state", "أحمد", "جوع", s.Var("V")))
	require.NoError(t, err)
	assert.Empty(t, sols)
}

func TestKB_NumericConstantsUnifyAcrossKinds(t *testing.T) {
	kb := NewKB()
	kb.Assertz(NewPredicate("score", "a", 1.0))

	ok, err := kb.Prove(NewPredicate("score", "a", 1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kb.Prove(NewPredicate("score", "a", "1"))
	require.NoError(t, err)
	assert.False(t, ok, "strings never equal numbers")
}

func TestKB_NFCNormalization(t *testing.T) {
	kb := NewKB()
	// "é" composed vs "e" + combining acute.
	kb.Assertz(NewPredicate("word", "café"))

	ok, err := kb.Prove(NewPredicate("word", "café"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKB_DepthLimit(t *testing.T) {
	kb := NewKB(WithMaxDepth(50))
	s := NewScope()
	// loop(X) :- loop(X).
	kb.AssertzRule(&Rule{
		Head: NewPredicate("loop", s.Var("X")),
		Body: []*Predicate{NewPredicate("loop", s.Var("X"))},
	})

	_, err := kb.Query(NewPredicate("loop", 1))
	require.Error(t, err)
	assert.True(t, IsDepthExceededError(err))

	var de *DepthExceededError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 50, de.Limit)
	assert.Equal(t, "RecursionError", de.FaultKind())
}

func TestKB_FactsWithVariablesAreRenamed(t *testing.T) {
	kb := NewKB()
	s := NewScope()
	// same(X, X).
	kb.Assertz(NewPredicate("same", s.Var("X"), s.Var("X")))

	q := NewScope()
	sols, err := kb.Query(
		NewPredicate("same", "a", q.Var("A")),
		NewPredicate("same", "b", q.Var("B")),
	)
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.Equal(t, Solution{"A": "a", "B": "b"}, sols[0])
}

func TestKB_FactsSnapshot(t *testing.T) {
	kb := NewKB()
	kb.Assertz(NewPredicate("b", 1))
	kb.Assertz(NewPredicate("a", 1))
	kb.Assertz(NewPredicate("b", 2))

	var got []string
	for _, f := range kb.Facts() {
		got = append(got, f.String())
	}
	assert.Equal(t, []string{"b(1)", "b(2)", "a(1)"}, got)
	assert.NotNil(t, NewKB().Facts())
}

func TestTrail_UndoIsLIFO(t *testing.T) {
	var trail Trail
	a := &Var{Name: "A"}
	b := &Var{Name: "B"}

	mark := trail.Mark()
	require.True(t, Unify(a, b, &trail))
	require.True(t, Unify(b, NewConst("x"), &trail))
	assert.Equal(t, NewConst("x"), Deref(a))
	assert.Equal(t, 2, trail.Len())

	trail.Undo(mark)
	assert.False(t, a.Bound())
	assert.False(t, b.Bound())
	assert.Equal(t, 0, trail.Len())
}
