package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeSpec_Arabic tests the Arabic key spellings and typed values.
func TestDecodeSpec_Arabic(t *testing.T) {
	raw := map[string]any{
		"خصائص": map[string]any{
			"س": map[string]any{"نوع": "عددي", "قيمة": 0.25},
		},
		"حالات": map[string]any{
			"جوع":  0.6,
			"طول": map[string]any{"type": "property", "value": 0.9},
		},
		"أفعال": map[string]any{
			"اذهب": map[string]any{
				"قوة": 0.5,
				"تأثيرات": []any{
					map[string]any{"على": "س", "صيغة": "value + sensitivity", "شرط": "power"},
				},
			},
		},
		"ردود_أفعال": map[string]any{
			"اذهب": map[string]any{"حساسية": 0.7, "استجابة": "جوع -= 0.1"},
		},
	}

	spec, err := DecodeSpec("أحمد", raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"جوع": 0.6}, spec.States)
	assert.Equal(t, map[string]float64{"س": 0.25, "طول": 0.9}, spec.Properties)
	assert.Equal(t, ActionSpec{
		Power:   0.5,
		Effects: []EffectSpec{{On: "س", Formula: "value + sensitivity", Condition: "power"}},
	}, spec.Actions["اذهب"])
	assert.Equal(t, ReactionSpec{Sensitivity: 0.7, Response: "جوع -= 0.1"}, spec.Reactions["اذهب"])
}

// TestDecodeSpec_Defaults tests default power, sensitivity and value.
func TestDecodeSpec_Defaults(t *testing.T) {
	spec, err := DecodeSpec("E", map[string]any{
		"states":    map[string]any{"k": map[string]any{}},
		"actions":   map[string]any{"go": map[string]any{}},
		"reactions": map[string]any{"go": map[string]any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultValue, spec.States["k"])
	assert.Equal(t, 1.0, spec.Actions["go"].Power)
	assert.Equal(t, 1.0, spec.Reactions["go"].Sensitivity)
}

// TestDecodeSpec_Errors tests malformed definitions.
func TestDecodeSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"states not a map", map[string]any{"states": []any{1}}},
		{"value not a number", map[string]any{"states": map[string]any{"k": "high"}}},
		{"effects not a list", map[string]any{"actions": map[string]any{"go": map[string]any{"effects": "x"}}}},
		{"effect missing formula", map[string]any{"actions": map[string]any{"go": map[string]any{
			"effects": []any{map[string]any{"on": "x"}},
		}}}},
		{"response not a string", map[string]any{"reactions": map[string]any{"go": map[string]any{"response": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSpec("E", tt.raw)
			require.Error(t, err)
			assert.True(t, IsInvalidSpecError(err))
		})
	}
}

// TestCreateEntity_FromDecodedSpec tests a decoded definition end to end.
func TestCreateEntity_FromDecodedSpec(t *testing.T) {
	e := newTestEngine(t)
	pusher, err := DecodeSpec("Pusher", map[string]any{
		"properties": map[string]any{"x": map[string]any{"type": "numeric", "value": 0.0}},
		"actions": map[string]any{"go": map[string]any{
			"effects": []any{map[string]any{"on": "x", "formula": "value + sensitivity*0.5"}},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, e.CreateEntity("Pusher", pusher))

	box, err := DecodeSpec("Box", map[string]any{
		"properties": map[string]any{"x": map[string]any{"type": "numeric", "value": 0.1}},
	})
	require.NoError(t, err)
	require.NoError(t, e.CreateEntity("Box", box))

	_, err = e.Perform("go", []string{"Pusher:1.0", "Box:0.5"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, e.GetProperty("Pusher", "x"))
	assert.Equal(t, 0.35, e.GetProperty("Box", "x"))
	assert.Equal(t, []string{"Pusher", "Box"}, e.LastParticipants())
}
