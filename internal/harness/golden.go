package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures everything a scenario run observably produced.
type TraceSnapshot struct {
	ScenarioName string
	SessionID    string
	Output       string
	FaultKind    string
	Trace        []TraceEvent
	Queries      []QueryResult
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for
// canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	events := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		changes := make([]any, len(ev.Changes))
		for j, c := range ev.Changes {
			changes[j] = map[string]any{"key": c.Key, "old": c.Old, "new": c.New}
		}
		events[i] = map[string]any{
			"seq":         ev.Seq,
			"actor":       ev.Actor,
			"action":      ev.Action,
			"target":      ev.Target,
			"value":       ev.Value,
			"sensitivity": ev.Sensitivity,
			"changes":     changes,
		}
	}

	queries := make([]any, len(s.Queries))
	for i, q := range s.Queries {
		sols := make([]any, len(q.Solutions))
		for j, sol := range q.Solutions {
			sols[j] = sol
		}
		queries[i] = map[string]any{"goal": q.Goal, "solutions": sols}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"session_id":    s.SessionID,
		"output":        s.Output,
		"events":        events,
		"queries":       queries,
	}
	if s.FaultKind != "" {
		result["fault_kind"] = s.FaultKind
	}
	return result
}

// Snapshot builds the golden snapshot of result.
func (r *Result) Snapshot(scenarioName string) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		SessionID:    r.SessionID,
		Output:       r.Output,
		FaultKind:    r.FaultKind,
		Trace:        r.Trace,
		Queries:      r.Queries,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := result.Snapshot(scenarioName)
	data, err := MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
