package entity

import (
	"errors"
	"fmt"
)

// DefaultMaxPropagation is the number of equation applications one
// top-level write may trigger.
const DefaultMaxPropagation = 1000

// propagationQuota counts equation applications within one write
// cascade. Mutually dependent equations that never settle exhaust it.
type propagationQuota struct {
	limit   int
	current int
}

func newPropagationQuota(limit int) *propagationQuota {
	return &propagationQuota{limit: limit}
}

// check records one equation application.
func (q *propagationQuota) check(entity, key string) error {
	q.current++
	if q.current > q.limit {
		return &PropagationLimitError{Entity: entity, Key: key, Steps: q.current, Limit: q.limit}
	}
	return nil
}

// PropagationLimitError is returned when a write keeps re-triggering
// equations past the limit.
type PropagationLimitError struct {
	Entity string
	Key    string
	Steps  int
	Limit  int
}

func (e *PropagationLimitError) Error() string {
	return fmt.Sprintf("equation propagation on %s.%s exceeded limit: %d applications > %d",
		e.Entity, e.Key, e.Steps, e.Limit)
}

// FaultKind names the error for the interpreter's fault reporting.
func (e *PropagationLimitError) FaultKind() string { return "PropagationLimitError" }

// IsPropagationLimitError returns true if err is a PropagationLimitError.
func IsPropagationLimitError(err error) bool {
	var pe *PropagationLimitError
	return errors.As(err, &pe)
}
