package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one reproducible program run with its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the AST JSON document to run.
	// Relative paths are resolved against the scenario file's directory.
	Program string `yaml:"program"`

	// World is an optional directory of CUE world definitions applied
	// before the program runs.
	World string `yaml:"world,omitempty"`

	// SessionID fixes the session id. Defaults to testutil.DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	// Seed fixes the formula random source.
	Seed *uint64 `yaml:"seed,omitempty"`

	// Facts are asserted, in order, before the program runs.
	Facts []string `yaml:"facts,omitempty"`

	// Queries run against the knowledge base after the program.
	Queries []QueryStep `yaml:"queries,omitempty"`

	// Assertions validate output, globals, events and facts.
	Assertions []Assertion `yaml:"assertions"`
}

// QueryStep proves Goal and optionally checks its solutions.
type QueryStep struct {
	// Goal is a conjunction in query syntax, e.g. "parent(?X, zaid)".
	Goal string `yaml:"goal"`

	// Expect lists the expected solutions in order, each a map from
	// variable name to the printed value. Nil skips the check; an empty
	// list expects no proof.
	Expect []map[string]string `yaml:"expect,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type selects the check; see the package documentation.
	Type string `yaml:"type"`

	// Text is the expected output (output_equals, output_contains).
	Text string `yaml:"text,omitempty"`

	// Name and Value are a global and its expected repr (global_equals).
	Name  string `yaml:"name,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Kind is the expected fault kind (fault).
	Kind string `yaml:"kind,omitempty"`

	// Actor, Action and Target filter events. Empty fields match anything.
	Actor  string `yaml:"actor,omitempty"`
	Action string `yaml:"action,omitempty"`
	Target string `yaml:"target,omitempty"`

	// Count is the expected number of matching events (event_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (event_order).
	Actions []string `yaml:"actions,omitempty"`

	// Goal must have a proof (fact_holds).
	Goal string `yaml:"goal,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputEquals   = "output_equals"
	AssertOutputContains = "output_contains"
	AssertGlobalEquals   = "global_equals"
	AssertFault          = "fault"
	AssertEventContains  = "event_contains"
	AssertEventOrder     = "event_order"
	AssertEventCount     = "event_count"
	AssertFactHolds      = "fact_holds"
)

// LoadScenario reads and parses a scenario YAML file. Program and world
// paths are resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Program = resolve(base, scenario.Program)
	scenario.World = resolve(base, scenario.World)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if s.World != "" {
		if _, err := os.Stat(s.World); os.IsNotExist(err) {
			return fmt.Errorf("world directory not found: %s", s.World)
		}
	}
	if len(s.Assertions) == 0 && len(s.Queries) == 0 {
		return fmt.Errorf("at least one assertion or query is required")
	}

	for i, q := range s.Queries {
		if q.Goal == "" {
			return fmt.Errorf("queries[%d]: goal is required", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOutputEquals:
	case AssertOutputContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for output_contains", index)
		}
	case AssertGlobalEquals:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for global_equals", index)
		}
	case AssertFault:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for fault", index)
		}
	case AssertEventContains:
		if a.Actor == "" && a.Action == "" && a.Target == "" {
			return fmt.Errorf("assertions[%d]: event_contains needs actor, action or target", index)
		}
	case AssertEventOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFactHolds:
		if a.Goal == "" {
			return fmt.Errorf("assertions[%d]: goal is required for fact_holds", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
