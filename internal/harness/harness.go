package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/interp"
	"github.com/roach88/bayan/internal/logic"
	"github.com/roach88/bayan/internal/store"
	"github.com/roach88/bayan/internal/testutil"
	"github.com/roach88/bayan/internal/world"
)

// Harness is the scenario execution engine. It runs one scenario with a
// deterministic clock and session id.
type Harness struct {
	store  *store.Store
	interp *interp.Interpreter
	clock  *testutil.DeterministicClock
	out    *bytes.Buffer
	logger *slog.Logger
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh session backed by a fresh in-memory
// database. Execution flow:
//  1. Apply the world, if any
//  2. Assert setup facts
//  3. Run the program; a fault stops it but not the scenario
//  4. Save the session and read its events back
//  5. Run queries and evaluate assertions
//
// Only harness failures (unreadable program, bad world, store errors)
// are returned as errors; failed expectations are recorded in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for store access.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath, store.WithLogger(quietLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario)
	if err != nil {
		return nil, err
	}
	defer h.interp.Close()

	result := NewResult()
	result.SessionID = h.interp.SessionID()

	if scenario.World != "" {
		if err := h.applyWorld(scenario.World); err != nil {
			return nil, err
		}
	}
	if err := h.assertFacts(scenario.Facts); err != nil {
		return nil, err
	}

	runErr, err := h.runProgram(scenario.Program)
	if err != nil {
		return nil, err
	}
	result.Output = h.out.String()
	if runErr != nil {
		kind, _ := interp.KindOf(runErr)
		result.FaultKind = kind
		result.Fault = runErr.Error()
	}

	if err := h.save(ctx, scenario.Program, runErr); err != nil {
		return nil, err
	}
	events, err := st.ReadEvents(ctx, result.SessionID, entity.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	for _, ev := range events {
		result.AddEventTrace(ev)
	}

	for i, q := range scenario.Queries {
		qr, err := h.query(q.Goal)
		if err != nil {
			result.AddError(fmt.Sprintf("queries[%d]: %v", i, err))
			continue
		}
		result.Queries = append(result.Queries, qr)
		if q.Expect != nil {
			if msg := compareSolutions(q, qr.Solutions); msg != "" {
				result.AddError(fmt.Sprintf("queries[%d]: %s", i, msg))
			}
		}
	}

	actx := &AssertionContext{Interp: h.interp, Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) (*Harness, error) {
	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		out:    &bytes.Buffer{},
		logger: quietLogger,
	}
	entityOpts := []entity.Option{entity.WithClock(h.clock)}
	if scenario.Seed != nil {
		entityOpts = append(entityOpts, entity.WithRand(testutil.SeededRand(*scenario.Seed)))
	}
	in, err := interp.New(
		interp.WithStdout(h.out),
		interp.WithLogger(h.logger),
		interp.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.SessionID)),
		interp.WithEntityOptions(entityOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	h.interp = in
	return h, nil
}

func (h *Harness) applyWorld(dir string) error {
	w, errs := world.Load(dir, world.LoadModeFailFast)
	if len(errs) > 0 {
		return fmt.Errorf("failed to load world: %w", errors.Join(errs...))
	}
	bind := func(name, action string) { h.interp.DefineOperator(name, action) }
	if err := w.Apply(h.interp.Entities(), bind); err != nil {
		return fmt.Errorf("failed to apply world: %w", err)
	}
	h.logger.Info("world applied", "dir", dir, "entities", len(w.Entities))
	return nil
}

func (h *Harness) assertFacts(facts []string) error {
	for i, src := range facts {
		p, _, err := logic.ParseGoal(src)
		if err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}
		h.interp.KB().Assertz(p)
	}
	return nil
}

// runProgram returns the program's own failure separately from errors
// that prevent it from running at all.
func (h *Harness) runProgram(path string) (runErr, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	node, err := ast.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}
	_, runErr = h.interp.Interpret(node)
	if runErr != nil {
		if _, ok := interp.KindOf(runErr); !ok {
			return nil, fmt.Errorf("program failed: %w", runErr)
		}
	}
	return runErr, nil
}

func (h *Harness) save(ctx context.Context, program string, runErr error) error {
	sess := store.Session{ID: h.interp.SessionID(), SourceFile: program, Status: store.StatusOK}
	if runErr != nil {
		sess.Status = store.StatusError
		sess.Error = runErr.Error()
	}
	snap := store.Snapshot{
		Session: sess,
		Facts:   h.interp.KB().Facts(),
		Events:  h.interp.Entities().Events(entity.EventFilter{}),
	}
	if err := h.store.SaveSession(ctx, snap); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (h *Harness) query(goal string) (QueryResult, error) {
	solutions, err := querySolutions(h.interp.KB(), goal)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Goal: goal, Solutions: solutions}, nil
}

// querySolutions proves goal and prints each binding with
// logic.FormatValue.
func querySolutions(kb *logic.KB, goal string) ([]map[string]string, error) {
	goals, _, err := logic.ParseGoals(goal)
	if err != nil {
		return nil, err
	}
	sols, err := kb.Query(goals...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, len(sols))
	for i, sol := range sols {
		m := make(map[string]string, len(sol))
		for k, v := range sol {
			m[k] = logic.FormatValue(v)
		}
		out[i] = m
	}
	return out, nil
}

func compareSolutions(q QueryStep, got []map[string]string) string {
	if len(got) != len(q.Expect) {
		return fmt.Sprintf("%s: expected %d solutions, got %d: %v", q.Goal, len(q.Expect), len(got), got)
	}
	for i, want := range q.Expect {
		for k, v := range want {
			if got[i][k] != v {
				return fmt.Sprintf("%s: solution %d: %s = %q, expected %q", q.Goal, i, k, got[i][k], v)
			}
		}
	}
	return ""
}
