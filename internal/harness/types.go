package harness

import "github.com/roach88/bayan/internal/entity"

// TraceEvent is one applied action as recorded in the event log.
type TraceEvent struct {
	Seq         int64         `json:"seq"`
	Actor       string        `json:"actor"`
	Action      string        `json:"action"`
	Target      string        `json:"target"`
	Value       float64       `json:"value"`
	Sensitivity float64       `json:"sensitivity"`
	Changes     []TraceChange `json:"changes,omitempty"`
}

// TraceChange is one key an event wrote.
type TraceChange struct {
	Key string  `json:"key"`
	Old float64 `json:"old"`
	New float64 `json:"new"`
}

// QueryResult holds the printed solutions of one scenario query.
type QueryResult struct {
	Goal      string              `json:"goal"`
	Solutions []map[string]string `json:"solutions"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every query expectation and assertion held.
	Pass bool `json:"pass"`

	SessionID string `json:"session_id"`

	// Output is everything the program printed.
	Output string `json:"output"`

	// FaultKind and Fault describe how the program stopped, if it did.
	FaultKind string `json:"fault_kind,omitempty"`
	Fault     string `json:"fault,omitempty"`

	// Trace is the persisted event log in seq order.
	Trace []TraceEvent `json:"trace"`

	Queries []QueryResult `json:"queries,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Queries: []QueryResult{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEventTrace appends an event to the trace.
func (r *Result) AddEventTrace(ev entity.Event) {
	te := TraceEvent{
		Seq:         ev.Seq,
		Actor:       ev.Actor,
		Action:      ev.Action,
		Target:      ev.Target,
		Value:       ev.Value,
		Sensitivity: ev.Sensitivity,
	}
	for _, c := range ev.Changes {
		te.Changes = append(te.Changes, TraceChange(c))
	}
	r.Trace = append(r.Trace, te)
}
