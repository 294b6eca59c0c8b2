package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoal(t *testing.T) {
	g, scope, err := ParseGoal(`state(أحمد, "جوع", ?V).`)
	require.NoError(t, err)

	assert.Equal(t, "state", g.Name)
	require.Len(t, g.Args, 3)
	assert.Equal(t, NewConst("أحمد"), g.Args[0])
	assert.Equal(t, NewConst("جوع"), g.Args[1])
	assert.Equal(t, scope.Var("V"), g.Args[2])
	assert.Equal(t, []string{"V"}, scope.Names())
}

func TestParseGoals_Numbers(t *testing.T) {
	goals, _, err := ParseGoals("score(a, 3), score(b, -0.25), empty()")
	require.NoError(t, err)
	require.Len(t, goals, 3)

	assert.Equal(t, NewConst(int64(3)), goals[0].Args[1])
	assert.Equal(t, NewConst(-0.25), goals[1].Args[1])
	assert.Empty(t, goals[2].Args)
}

func TestParseGoals_AnonymousVariablesAreDistinct(t *testing.T) {
	g, scope, err := ParseGoal("pair(_, _)")
	require.NoError(t, err)

	assert.NotSame(t, g.Args[0], g.Args[1])
	assert.Empty(t, scope.Names())
}

func TestParseGoals_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "expected predicate name"},
		{"state", "expected '('"},
		{"state(a", "unterminated argument list"},
		{"state(a b)", "expected ',' or ')'"},
		{"state(a) x", "expected ',' between goals"},
		{`state("a)`, "unterminated string"},
		{"state(?)", "expected variable name"},
		{"a(). b()", "unexpected text after '.'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, _, err := ParseGoals(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
