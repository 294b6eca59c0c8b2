package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRand() float64 { return 0.25 }

func TestEval_Arithmetic(t *testing.T) {
	env := Env{
		Vars: map[string]float64{"value": 0.6, "action_value": 1.0, "power": 0.5, "sensitivity": 0.7},
		Rand: fixedRand,
	}

	tests := []struct {
		src  string
		want float64
	}{
		{"value - 0.4*action_value", 0.6 - 0.4},
		{"-value + 1", 0.4},
		{"+power", 0.5},
		{"(value + power) * 2", 2.2},
		{"2 ** 3", 8},
		{"sensitivity*0.3", 0.21},
		{"min(value, power, 0.9)", 0.5},
		{"max(value, power)", 0.6},
		{"clamp(value * 3)", 1},
		{"clamp(5, 0, 2)", 2},
		{"sqrt(0.25)", 0.5},
		{"rand()", 0.25},
		{"value + rand() * 0", 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, env)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEval_ArabicIdentifiers(t *testing.T) {
	f, err := Parse("1 - برد")
	require.NoError(t, err)
	assert.Equal(t, []string{"برد"}, f.Identifiers())
	assert.True(t, f.References("برد"))
	assert.False(t, f.References("حر"))

	got, err := f.Eval(Env{Vars: map[string]float64{"برد": 0.2}})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got, 1e-12)
}

func TestEval_IdentifiersExcludeFunctions(t *testing.T) {
	f, err := Parse("max(a, b) + sqrt(a) + rand()")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Identifiers())
}

func TestParse_RejectsOutsideAllowList(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"value % 2", "operator not allowed: %"},
		{"value < 2", "operator not allowed: <"},
		{"value and 1", "operator not allowed: and"},
		{"not value", "operator not allowed: not"},
		{"abs(value)", "function not allowed: abs"},
		{"exec(1)", "function not allowed: exec"},
		{`"text"`, "unsupported expression"},
		{"value.attr", "unsupported expression"},
		{"[1, 2]", "unsupported expression"},
		{"value +", "syntax"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.True(t, IsFormulaError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEval_RuntimeFaults(t *testing.T) {
	env := Env{Vars: map[string]float64{"zero": 0}}

	tests := []struct {
		src  string
		want string
	}{
		{"unknown + 1", "unknown name: unknown"},
		{"rand", "function name used without call: rand"},
		{"1 / zero", "division by zero"},
		{"sqrt(-1)", "math domain error"},
		{"clamp(1, 2)", "clamp expected 1 or 3 arguments"},
		{"rand(1)", "rand takes no arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Eval(tt.src, env)
			require.Error(t, err)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.src, fe.Formula)
			assert.Contains(t, fe.Msg, tt.want)
			assert.Equal(t, "FormulaError", fe.FaultKind())
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(1.7, 0, 1))
	assert.Equal(t, 0.0, Clamp(-0.2, 0, 1))
	assert.Equal(t, 0.83, Clamp(0.83, 0, 1))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("exec()") })
	assert.NotPanics(t, func() { MustParse("value") })
}
