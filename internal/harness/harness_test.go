package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAndRun(t *testing.T, path string) *Result {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func TestRun_ServeMeal(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/serve_meal.yaml")
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "scenario-serve-meal", result.SessionID)
	assert.Equal(t, "0.2\n", result.Output)
	assert.Empty(t, result.FaultKind)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, "أحمد", result.Trace[0].Target)
	assert.Equal(t, 1.0, result.Trace[0].Sensitivity)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
	assert.Equal(t, "زيد", result.Trace[1].Target)
	assert.Equal(t, 0.5, result.Trace[1].Sensitivity)
	assert.Equal(t, []TraceChange{{Key: "جوع", Old: 0.9, New: 0.7}}, result.Trace[1].Changes)

	require.Len(t, result.Queries, 2)
	assert.Len(t, result.Queries[1].Solutions, 2)
}

func TestRun_Family(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/family.yaml")
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []map[string]string{{"G": "ali", "C": "omar"}}, result.Queries[0].Solutions)
	assert.Empty(t, result.Queries[1].Solutions)
	assert.Empty(t, result.Trace)
}

func TestRun_FaultIsRecorded(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/divide.yaml")
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "ZeroDivisionError", result.FaultKind)
	assert.Contains(t, result.Fault, "division by zero")
}

func TestRun_FailedExpectations(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/serve_meal.yaml")
	require.NoError(t, err)
	s.Queries[0].Expect = []map[string]string{{"V": "0.3"}}
	s.Assertions = []Assertion{
		{Type: AssertOutputEquals, Text: "nothing"},
		{Type: AssertGlobalEquals, Name: "missing", Value: "1"},
		{Type: AssertEventOrder, Actions: []string{"تقديم_وجبة", "رقص"}},
		{Type: AssertFault, Kind: "TypeError"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], `V = "0.2", expected "0.3"`)
	assert.Contains(t, result.Errors[1], "Assertion failed: output_equals")
	assert.Contains(t, result.Errors[2], "missing is not defined")
	assert.Contains(t, result.Errors[3], "missing or out of order: رقص")
	assert.Contains(t, result.Errors[4], "Actual: no fault")
}

func TestRun_IsDeterministic(t *testing.T) {
	first := loadAndRun(t, "testdata/scenarios/serve_meal.yaml")
	second := loadAndRun(t, "testdata/scenarios/serve_meal.yaml")
	assert.Equal(t, first, second)
}

func TestRun_Golden(t *testing.T) {
	for _, name := range []string{"serve_meal", "family", "divide"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunSuite(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	res := RunSuite(append(paths, "testdata/scenarios/missing.yaml"))
	assert.Equal(t, 4, res.TotalScenarios)
	assert.Equal(t, 3, res.Passed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "missing.yaml", res.Failures[0].ScenarioName)
}
