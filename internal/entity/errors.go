package entity

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes entity engine errors.
type ErrorCode string

const (
	// ErrCodeUnknownAction indicates the actor has no such action.
	ErrCodeUnknownAction ErrorCode = "UNKNOWN_ACTION"

	// ErrCodeInvalidResponse indicates a reaction response that is not
	// KEY += EXPR, KEY -= EXPR or KEY = EXPR.
	ErrCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"

	// ErrCodeInvalidSpec indicates a malformed entity definition.
	ErrCodeInvalidSpec ErrorCode = "INVALID_SPEC"

	// ErrCodeInvalidKind indicates a kind other than state or property.
	ErrCodeInvalidKind ErrorCode = "INVALID_KIND"

	// ErrCodeNoParticipants indicates perform was given nobody to act.
	ErrCodeNoParticipants ErrorCode = "NO_PARTICIPANTS"
)

// Error is an entity engine failure.
type Error struct {
	Code    ErrorCode
	Message string
	Entity  string
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FaultKind names the error for the interpreter's fault reporting.
func (e *Error) FaultKind() string { return "ValueError" }

func hasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsUnknownActionError returns true if err reports an undefined action.
func IsUnknownActionError(err error) bool { return hasCode(err, ErrCodeUnknownAction) }

// IsInvalidSpecError returns true if err reports a malformed definition.
func IsInvalidSpecError(err error) bool { return hasCode(err, ErrCodeInvalidSpec) }

func specError(entity, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidSpec, Message: fmt.Sprintf(format, args...), Entity: entity}
}
