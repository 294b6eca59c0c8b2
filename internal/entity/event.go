package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Change is one key written while applying an action.
type Change struct {
	Key string  `json:"key"`
	Old float64 `json:"old"`
	New float64 `json:"new"`
}

// Event records one applied action.
type Event struct {
	Seq         int64    `json:"seq"`
	Actor       string   `json:"actor"`
	Action      string   `json:"action"`
	Target      string   `json:"target"`
	Value       float64  `json:"value"`
	Sensitivity float64  `json:"sensitivity"`
	Changes     []Change `json:"changes"`
}

// EventFilter selects events; empty fields match anything.
type EventFilter struct {
	Actor  string
	Action string
	Target string
}

func (f EventFilter) match(ev Event) bool {
	return (f.Actor == "" || f.Actor == ev.Actor) &&
		(f.Action == "" || f.Action == ev.Action) &&
		(f.Target == "" || f.Target == ev.Target)
}

// Events returns logged events matching filter in seq order.
func (e *Engine) Events(filter EventFilter) []Event {
	out := []Event{}
	for _, ev := range e.events {
		if filter.match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// LastParticipants returns the participants of the most recent Perform.
func (e *Engine) LastParticipants() []string {
	return append([]string(nil), e.last...)
}

var pronouns = map[string]bool{
	"they": true,
	"them": true,
	"هم":   true,
	"هن":   true,
	"هما":  true,
}

// Participant is one "Name:value" entry passed to Perform.
type Participant struct {
	Name  string
	Value float64
}

// ParseParticipant reads "Name", "Name:0.7" or "Name.0.7". A missing
// value is 1.0.
func ParseParticipant(s string) (Participant, error) {
	s = strings.TrimSpace(s)
	name, val, found := strings.Cut(s, ":")
	if !found {
		name, val, found = strings.Cut(s, ".")
	}
	p := Participant{Name: strings.TrimSpace(name), Value: 1.0}
	if p.Name == "" {
		return p, &Error{Code: ErrCodeNoParticipants, Message: fmt.Sprintf("empty participant in %q", s)}
	}
	if found {
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return p, &Error{Code: ErrCodeNoParticipants, Message: fmt.Sprintf("bad participant value in %q", s), Entity: p.Name}
		}
		p.Value = v
	}
	return p, nil
}

// Perform applies action from the first participant to every
// participant, the actor included. Each participant's value is the
// sensitivity for its own application. Pronouns ("they:0.2") expand to
// the previous Perform's participants, all taking the pronoun's value.
func (e *Engine) Perform(action string, participants []string, actionValue float64) ([]Event, error) {
	var parts []Participant
	for _, spec := range participants {
		p, err := ParseParticipant(spec)
		if err != nil {
			return nil, err
		}
		if pronouns[p.Name] {
			for _, name := range e.last {
				parts = append(parts, Participant{Name: name, Value: p.Value})
			}
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, &Error{Code: ErrCodeNoParticipants, Message: fmt.Sprintf("perform %s: no participants", action)}
	}

	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Name
	}
	e.last = names

	actor := parts[0].Name
	events := make([]Event, 0, len(parts))
	for _, p := range parts {
		ev, err := e.apply(actor, action, p.Name, actionValue, p.Value)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, nil
}

// ParseResponse splits a reaction response into key, operator and
// expression. "+=" is tried first, then "-=", then "=" which is read as
// an increment.
func ParseResponse(resp string) (key, op, expr string, err error) {
	for _, candidate := range []string{"+=", "-=", "="} {
		k, x, ok := strings.Cut(resp, candidate)
		if !ok {
			continue
		}
		key = strings.TrimSpace(k)
		expr = strings.TrimSpace(x)
		if key == "" || expr == "" {
			break
		}
		if candidate == "-=" {
			return key, "-=", expr, nil
		}
		return key, "+=", expr, nil
	}
	return "", "", "", &Error{
		Code:    ErrCodeInvalidResponse,
		Message: fmt.Sprintf("reaction response %q is not KEY += EXPR or KEY -= EXPR", resp),
	}
}
