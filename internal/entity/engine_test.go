package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayan/internal/logic"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(logic.NewKB(), append([]Option{WithRand(func() float64 { return 0.25 })}, opts...)...)
	require.NoError(t, err)
	return e
}

func prove(t *testing.T, e *Engine, goal *logic.Predicate) bool {
	t.Helper()
	ok, err := e.KB().Prove(goal)
	require.NoError(t, err)
	return ok
}

// TestNew_RequiresKB tests that an engine cannot exist without a store.
func TestNew_RequiresKB(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoKB)
}

// TestSetState_Clamps tests clamping and the mirrored state fact.
func TestSetState_Clamps(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		in   float64
		want float64
	}{
		{0.83, 0.83},
		{1.7, 1.0},
		{-0.2, 0.0},
	}
	for _, tt := range tests {
		got, err := e.SetState("E", "k", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, e.GetState("E", "k"))
		assert.True(t, prove(t, e, logic.NewPredicate("state", "E", "k", tt.want)))
	}

	sols, err := e.KB().Query(logic.NewPredicate("state", "E", "k", logic.NewScope().Var("V")))
	require.NoError(t, err)
	assert.Len(t, sols, 1, "writes replace the previous fact")
	assert.True(t, prove(t, e, logic.NewPredicate("entity", "E")))
}

// TestGet_Defaults tests the 0.5 default for unknown keys and entities.
func TestGet_Defaults(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, DefaultValue, e.GetState("nobody", "x"))
	_, err := e.SetProperty("E", "height", 0.9)
	require.NoError(t, err)
	assert.Equal(t, 0.9, e.GetProperty("E", "height"))
	assert.Equal(t, DefaultValue, e.GetState("E", "height"))
}

// TestApplyAction_ServeMeal tests an effect reducing hunger.
func TestApplyAction_ServeMeal(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.CreateEntity("أحمد", Spec{States: map[string]float64{"جوع": 0.6}}))
	require.NoError(t, e.DefineAction("محمد", "تقديم_وجبة", 0.8, []EffectSpec{
		{On: "جوع", Formula: "value - 0.4*action_value"},
	}))

	results, err := e.ApplyAction("محمد", "تقديم_وجبة", "أحمد", 1.0)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"جوع": 0.2}, results)
	assert.Equal(t, 0.2, e.GetState("أحمد", "جوع"))

	goal, _, err := logic.ParseGoal("state(أحمد, جوع, 0.2)")
	require.NoError(t, err)
	assert.True(t, prove(t, e, goal))
	assert.True(t, prove(t, e, logic.NewPredicate("changed", "أحمد", "جوع", 0.6, 0.2)))
	assert.True(t, prove(t, e, logic.NewPredicate("event", "محمد", "تقديم_وجبة", "أحمد", 1.0)))

	events := e.Events(EventFilter{})
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, []Change{{Key: "جوع", Old: 0.6, New: 0.2}}, events[0].Changes)
}

// TestApplyAction_ReactionResponse tests the += response scaled by
// sensitivity.
func TestApplyAction_ReactionResponse(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.DefineAction("A", "greet", 1, nil))
	e.SetReaction("B", "greet", 0.7, "سعادة += sensitivity*0.3")

	results, err := e.ApplyAction("A", "greet", "B", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.71, results["سعادة"])
	assert.Equal(t, 0.71, e.GetState("B", "سعادة"))
}

// TestApplyAction_ResponseForms tests -= and the additive = form.
func TestApplyAction_ResponseForms(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.DefineAction("A", "poke", 1, nil))
	e.SetReaction("B", "poke", 1, "mood -= 0.1")
	e.SetReaction("C", "poke", 1, "mood = 0.1")

	_, err := e.ApplyAction("A", "poke", "B", 1)
	require.NoError(t, err)
	_, err = e.ApplyAction("A", "poke", "C", 1)
	require.NoError(t, err)

	assert.Equal(t, 0.4, e.GetState("B", "mood"))
	assert.Equal(t, 0.6, e.GetState("C", "mood"))
}

// TestApplyAction_GuardAndProperty tests guarded effects and routing to
// the property map.
func TestApplyAction_GuardAndProperty(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.CreateEntity("T", Spec{
		States:     map[string]float64{"energy": 0.5},
		Properties: map[string]float64{"strength": 0.4},
	}))
	require.NoError(t, e.DefineAction("A", "train", 0.5, []EffectSpec{
		{On: "strength", Formula: "value + power*0.2"},
		{On: "energy", Formula: "value - 0.3", Condition: "value - 0.9"},
	}))
	require.NoError(t, e.DefineAction("A", "rest", 0.5, []EffectSpec{
		{On: "energy", Formula: "1", Condition: "min(1 - value, 0)"},
	}))

	results, err := e.ApplyAction("A", "train", "T", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, e.GetProperty("T", "strength"))
	assert.Equal(t, 0.2, e.GetState("T", "energy"))
	assert.Len(t, results, 2)
	assert.True(t, prove(t, e, logic.NewPredicate("property", "T", "strength", 0.5)))

	results, err = e.ApplyAction("A", "rest", "T", 1)
	require.NoError(t, err)
	assert.Empty(t, results, "zero guard skips the effect")
	assert.Equal(t, 0.2, e.GetState("T", "energy"))
}

// TestApplyAction_UnknownAction tests the fault and that nothing is
// created for the missing actor.
func TestApplyAction_UnknownAction(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ApplyAction("ghost", "haunt", "B", 1)
	require.Error(t, err)
	assert.True(t, IsUnknownActionError(err))
	assert.False(t, prove(t, e, logic.NewPredicate("entity", "ghost")))
	assert.Empty(t, e.Events(EventFilter{}))
}

// TestDefineAction_BadFormula tests that effects are checked up front.
func TestDefineAction_BadFormula(t *testing.T) {
	e := newTestEngine(t)
	err := e.DefineAction("A", "hack", 1, []EffectSpec{{On: "x", Formula: "exec(1)"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function not allowed: exec")

	err = e.DefineAction("A", "noop", 1, []EffectSpec{{Formula: "1"}})
	assert.True(t, IsInvalidSpecError(err))
}

// TestDefineEquation_Propagates tests حر = 1 - برد.
func TestDefineEquation_Propagates(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.CreateEntity("جو", Spec{States: map[string]float64{"برد": 1, "حر": 0}}))

	_, err := e.DefineEquation("جو", KindState, "حر", "1 - برد")
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.GetState("جو", "حر"))

	_, err = e.SetState("جو", "برد", 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.8, e.GetState("جو", "حر"))
	assert.True(t, prove(t, e, logic.NewPredicate("state", "جو", "حر", 0.8)))
}

// TestDefineEquation_ReadsOtherKind tests variable lookup falling back
// to properties and then the default.
func TestDefineEquation_ReadsOtherKind(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.SetProperty("E", "size", 0.4)
	require.NoError(t, err)

	_, err = e.DefineEquation("E", KindState, "load", "size * unknown_key")
	require.NoError(t, err)
	assert.Equal(t, 0.2, e.GetState("E", "load"))
}

// TestDefineOpposites tests that a pair always sums to the total.
func TestDefineOpposites(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.SetState("E", "hot", 0.25)
	require.NoError(t, err)

	require.NoError(t, e.DefineOpposites("E", KindState, "hot", "cold", 1))
	assert.Equal(t, 0.75, e.GetState("E", "cold"))

	_, err = e.SetState("E", "cold", 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.9, e.GetState("E", "hot"))
	assert.Len(t, e.Equations("E"), 2)
}

// TestPropagation_Limit tests that a never-settling cycle faults.
func TestPropagation_Limit(t *testing.T) {
	e := newTestEngine(t, WithMaxPropagation(50))
	_, err := e.DefineEquation("E", KindState, "x", "1 - y")
	require.NoError(t, err)
	_, err = e.DefineEquation("E", KindState, "y", "x")
	require.NoError(t, err)

	_, err = e.SetState("E", "y", 0.3)
	require.Error(t, err)
	assert.True(t, IsPropagationLimitError(err))

	var pe *PropagationLimitError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 50, pe.Limit)
	assert.Equal(t, "PropagationLimitError", pe.FaultKind())

	// The quota is per write.
	_, err = e.SetState("E", "other", 0.3)
	assert.NoError(t, err)
}

// TestPerform_Pronouns tests participant parsing and pronoun expansion.
func TestPerform_Pronouns(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.DefineAction("A", "wave", 1, []EffectSpec{
		{On: "joy", Formula: "value + 0.1*sensitivity"},
	}))

	events, err := e.Perform("wave", []string{"A:0.5", "B"}, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Target)
	assert.Equal(t, 0.5, events[0].Sensitivity)
	assert.Equal(t, 0.55, e.GetState("A", "joy"))
	assert.Equal(t, 0.6, e.GetState("B", "joy"))
	assert.Equal(t, []string{"A", "B"}, e.LastParticipants())

	events, err = e.Perform("wave", []string{"هم:0.2"}, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Actor)
	assert.Equal(t, "B", events[1].Target)
	assert.Equal(t, 0.2, events[1].Sensitivity)
	assert.Equal(t, 0.57, e.GetState("A", "joy"))
	assert.Equal(t, 0.62, e.GetState("B", "joy"))

	assert.Len(t, e.Events(EventFilter{Target: "B"}), 2)
	assert.Len(t, e.Events(EventFilter{Actor: "A", Action: "wave"}), 4)
	assert.Empty(t, e.Events(EventFilter{Action: "other"}))

	seqs := []int64{}
	for _, ev := range e.Events(EventFilter{}) {
		seqs = append(seqs, ev.Seq)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, seqs)
}

// TestPerform_Errors tests empty participant lists and bad values.
func TestPerform_Errors(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Perform("wave", nil, 1)
	assert.Error(t, err)

	_, err = e.Perform("wave", []string{"they"}, 1)
	assert.Error(t, err, "no previous participants")

	_, err = ParseParticipant("A:abc")
	assert.Error(t, err)

	p, err := ParseParticipant("B.0.3")
	require.NoError(t, err)
	assert.Equal(t, Participant{Name: "B", Value: 0.3}, p)
}

// TestParseResponse tests operator precedence of the split.
func TestParseResponse(t *testing.T) {
	tests := []struct {
		in       string
		key, op  string
		expr     string
		hasError bool
	}{
		{in: "a += 0.1", key: "a", op: "+=", expr: "0.1"},
		{in: "a -= b*2", key: "a", op: "-=", expr: "b*2"},
		{in: "a = 0.3", key: "a", op: "+=", expr: "0.3"},
		{in: "just text", hasError: true},
		{in: "+= 1", hasError: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			key, op, expr, err := ParseResponse(tt.in)
			if tt.hasError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.expr, expr)
		})
	}
}

// TestParseKind tests bilingual kind names.
func TestParseKind(t *testing.T) {
	for _, s := range []string{"state", "حالة", "حالات", "states"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, KindState, k)
	}
	k, err := ParseKind("خصائص")
	require.NoError(t, err)
	assert.Equal(t, KindProperty, k)

	_, err = ParseKind("mood")
	assert.Error(t, err)
}

// TestCreateEntity_Reset tests that recreating an entity drops old facts.
func TestCreateEntity_Reset(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.CreateEntity("E", Spec{States: map[string]float64{"a": 0.1}}))
	require.NoError(t, e.CreateEntity("E", Spec{States: map[string]float64{"b": 0.2}}))

	assert.False(t, prove(t, e, logic.NewPredicate("state", "E", "a", 0.1)))
	assert.True(t, prove(t, e, logic.NewPredicate("state", "E", "b", 0.2)))
	assert.Equal(t, []string{"E"}, e.Names())
}
