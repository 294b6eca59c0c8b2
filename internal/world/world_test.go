package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
)

func newEngine(t *testing.T) *entity.Engine {
	t.Helper()
	eng, err := entity.New(logic.NewKB())
	require.NoError(t, err)
	return eng
}

func TestLoadString_EnglishSections(t *testing.T) {
	src := `
entities: {
	Ali: {
		states: hunger: 0.6
		actions: eat: {
			power: 1
			effects: [{on: "hunger", formula: "value - 0.4"}]
		}
		reactions: eat: {sensitivity: 0.5, response: "mood += 0.2"}
	}
	Box: {}
}
opposites: [{entity: "Ali", kind: "state", a: "calm", b: "anger"}]
operators: {Feed: "eat", Alpha: "eat"}
`
	w, errs := LoadString(src, "world.cue", LoadModeCollectAll)
	require.Empty(t, errs)

	require.Len(t, w.Entities, 2)
	assert.Equal(t, "Ali", w.Entities[0].Name)
	assert.Equal(t, "Box", w.Entities[1].Name)
	assert.Equal(t, 0.6, w.Entities[0].Spec.States["hunger"])
	assert.Equal(t, 1.0, w.Entities[0].Spec.Actions["eat"].Power)
	assert.Equal(t, entity.ReactionSpec{Sensitivity: 0.5, Response: "mood += 0.2"}, w.Entities[0].Spec.Reactions["eat"])

	require.Len(t, w.Opposites, 1)
	assert.Equal(t, 1.0, w.Opposites[0].Total)
	assert.Equal(t, entity.KindState, w.Opposites[0].Kind)

	assert.Equal(t, []Operator{{Name: "Alpha", Action: "eat"}, {Name: "Feed", Action: "eat"}}, w.Operators)
}

func TestLoad_DirectoryWithArabicSections(t *testing.T) {
	w, errs := Load("testdata/meal", LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 2, w.FileCount)

	eng := newEngine(t)
	bound := map[string]string{}
	require.NoError(t, w.Apply(eng, func(name, action string) { bound[name] = action }))

	assert.Equal(t, map[string]string{"قدّم": "تقديم_وجبة"}, bound)
	assert.InDelta(t, 0.8, eng.GetProperty("sky", "hot"), 1e-12)

	res, err := eng.ApplyAction("أحمد", "تقديم_وجبة", "أحمد", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res["جوع"], 1e-12)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, errs := Load("testdata/does-not-exist", LoadModeFailFast)
	require.Len(t, errs, 1)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestDecode_CollectsErrors(t *testing.T) {
	src := `
entities: Bad: actions: act: effects: [{on: "x"}]
equations: [
	{entity: "Bad", kind: "mood", key: "x", formula: "1"},
	{entity: "Bad", kind: "state", key: "y"},
]
`
	_, errs := LoadString(src, "bad.cue", LoadModeCollectAll)
	require.Len(t, errs, 3)

	codes := make([]string, len(errs))
	for i, err := range errs {
		var le *LoadError
		require.True(t, errors.As(err, &le))
		codes[i] = le.Code
		assert.Contains(t, err.Error(), "bad.cue:")
	}
	assert.Equal(t, []string{ErrCodeEntity, ErrCodeKind, ErrCodeEquation}, codes)
}

func TestDecode_FailFastStopsAtFirst(t *testing.T) {
	src := `equations: [{kind: "state"}, {kind: "mood"}]`
	_, errs := LoadString(src, "bad.cue", LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "entity is required")
}

func TestLoadString_BuildError(t *testing.T) {
	_, errs := LoadString(`entities: {`, "broken.cue", LoadModeFailFast)
	require.Len(t, errs, 1)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
}

func TestApply_ReportsEngineErrors(t *testing.T) {
	w := &World{Equations: []EquationDef{{Entity: "x", Kind: entity.KindState, Key: "k", Formula: "1 +"}}}
	err := w.Apply(newEngine(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "world: equation x.k")
}
