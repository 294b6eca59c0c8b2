// Package harness runs Bayan programs as reproducible scenarios.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: serve_meal
//	description: "Serving a meal lowers hunger"
//	program: programs/serve_meal.json   # AST JSON, relative to this file
//	world: world                        # optional CUE world directory
//	session_id: scenario-serve-meal     # optional
//	seed: 7                             # optional formula rand() seed
//	facts:
//	  - "parent(ali, zaid)"
//	queries:
//	  - goal: "state(أحمد, جوع, ?V)"
//	    expect:
//	      - {V: "0.2"}
//	assertions:
//	  - type: output_equals
//	    text: "0.2\n"
//	  - type: event_count
//	    action: تقديم_وجبة
//	    count: 1
//
// # Assertion Types
//
//   - output_equals, output_contains: check printed output
//   - global_equals: compares repr(global) with value
//   - fault: expects the program to stop with the given fault kind
//   - event_contains: an event matching actor/action/target was recorded
//   - event_order: actions appear in the event log in this order
//   - event_count: an action was applied exactly count times
//   - fact_holds: goal has at least one proof after the run
//
// Event assertions read the session back from an in-memory store, so
// they check what would be persisted, not the engine's live state.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed session id, a resettable logical
// clock (testutil.DeterministicClock) and, when seed is set, a seeded
// random source. The same scenario always produces a byte-identical
// trace, which RunWithGolden compares against testdata/golden.
package harness
