package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/interp"
	"github.com/roach88/bayan/internal/store"
)

// AssertionContext gives assertions access to the finished session.
type AssertionContext struct {
	Interp *interp.Interpreter
	Store  *store.Store
	Ctx    context.Context
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full event log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nEvent log:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s.%s(%s, %g)\n", ev.Seq, ev.Actor, ev.Action, ev.Target, ev.Value)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure
// messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOutputEquals:
		if result.Output != a.Text {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q", a.Text), Actual: fmt.Sprintf("%q", result.Output)}
		}
	case AssertOutputContains:
		if !strings.Contains(result.Output, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("output containing %q", a.Text), Actual: fmt.Sprintf("%q", result.Output)}
		}
	case AssertGlobalEquals:
		return assertGlobal(a, actx)
	case AssertFault:
		if result.FaultKind != a.Kind {
			actual := "no fault"
			if result.FaultKind != "" {
				actual = result.FaultKind
			}
			return &AssertionError{Type: a.Type, Expected: a.Kind, Actual: actual}
		}
	case AssertEventContains:
		return assertEventContains(result, a, actx)
	case AssertEventOrder:
		return assertEventOrder(result.Trace, a)
	case AssertEventCount:
		return assertEventCount(result, a, actx)
	case AssertFactHolds:
		sols, err := querySolutions(actx.Interp.KB(), a.Goal)
		if err != nil {
			return err
		}
		if len(sols) == 0 {
			return &AssertionError{Type: a.Type, Expected: a.Goal + " to hold", Actual: "no proof"}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertGlobal(a Assertion, actx *AssertionContext) error {
	v, ok := actx.Interp.Global(a.Name)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %s", a.Name, a.Value), Actual: a.Name + " is not defined"}
	}
	got, err := actx.Interp.Repr(v)
	if err != nil {
		return err
	}
	if got != a.Value {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %s", a.Name, a.Value), Actual: fmt.Sprintf("%s = %s", a.Name, got)}
	}
	return nil
}

func eventFilter(a Assertion) entity.EventFilter {
	return entity.EventFilter{Actor: a.Actor, Action: a.Action, Target: a.Target}
}

func assertEventContains(result *Result, a Assertion, actx *AssertionContext) error {
	events, err := actx.Store.ReadEvents(actx.Ctx, result.SessionID, eventFilter(a))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("event actor=%q action=%q target=%q", a.Actor, a.Action, a.Target),
			Actual:   "not found in event log",
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventCount checks the number of stored events matching the
// assertion's filter.
func assertEventCount(result *Result, a Assertion, actx *AssertionContext) error {
	events, err := actx.Store.ReadEvents(actx.Ctx, result.SessionID, eventFilter(a))
	if err != nil {
		return err
	}
	if len(events) != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d matching events", a.Count),
			Actual:   fmt.Sprintf("%d matching events", len(events)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventOrder checks that actions appear in the specified order.
// Actions don't need to be consecutive (intervening events are allowed).
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Actions) && ev.Action == a.Actions[next] {
			next++
		}
	}
	if next < len(a.Actions) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("actions in order: %v", a.Actions),
			Actual:   fmt.Sprintf("missing or out of order: %s", a.Actions[next]),
			Trace:    trace,
		}
	}
	return nil
}
