package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/object"
)

// Fault kinds reported by the evaluator itself. Errors from the logic,
// entity and formula packages report their own kinds.
const (
	NameError         = "NameError"
	TypeError         = "TypeError"
	ValueError        = "ValueError"
	AttributeError    = "AttributeError"
	IndexError        = "IndexError"
	KeyError          = "KeyError"
	ZeroDivisionError = "ZeroDivisionError"
	OverflowError     = "OverflowError"
	RecursionError    = "RecursionError"
	ImportError       = "ImportError"
	SyntaxError       = "SyntaxError"
	RuntimeFault      = "RuntimeError"
)

// fault is an evaluation failure not yet tied to a position. exec wraps
// it into a RuntimeError at the innermost node.
type fault struct {
	kind string
	msg  string
}

func (f *fault) Error() string     { return f.msg }
func (f *fault) FaultKind() string { return f.kind }

func faultf(kind, format string, args ...any) error {
	return &fault{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// RuntimeError is an unrecoverable evaluation fault. Its string form is
// the message, the Bayan stack and, when a source buffer is set, a code
// frame.
type RuntimeError struct {
	Kind      string
	Message   string
	Trace     []string
	CodeFrame string
	Err       error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\nBayan stack: %s", e.Kind, e.Message, strings.Join(e.Trace, " -> "))
	b.WriteString(e.CodeFrame)
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// FaultKind returns Kind.
func (e *RuntimeError) FaultKind() string { return e.Kind }

// IsRuntimeError reports whether err is a runtime fault, optionally of
// one of the given kinds.
func IsRuntimeError(err error, kinds ...string) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if re.Kind == k {
			return true
		}
	}
	return false
}

// Exception is a value raised by a program and not caught.
type Exception struct {
	Value Value
	Text  string
	Trace []string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("Unhandled exception: %s\nBayan stack: %s", e.Text, strings.Join(e.Trace, " -> "))
}

// IsException reports whether err is an uncaught user exception.
func IsException(err error) bool {
	var ex *Exception
	return errors.As(err, &ex)
}

// KindOf names what went wrong: the fault kind of a runtime error, or
// the class name of an uncaught exception. ok is false for other
// errors.
func KindOf(err error) (kind string, ok bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	var ex *Exception
	if errors.As(err, &ex) {
		if inst, ok := ex.Value.(*object.Instance); ok {
			return inst.Class.Name, true
		}
		return ExceptionName, true
	}
	return "", false
}

// errGeneratorExit unwinds a generator body whose consumer stopped.
// It is never caught by try/except.
var errGeneratorExit = errors.New("generator exit")

type frame struct {
	kind string
	pos  ast.Position
}

func (f frame) String() string {
	switch {
	case f.pos.Line == 0:
		return f.kind
	case f.pos.File != "":
		return fmt.Sprintf("%s@%s:%d:%d", f.kind, f.pos.File, f.pos.Line, f.pos.Column)
	default:
		return fmt.Sprintf("%s@%d:%d", f.kind, f.pos.Line, f.pos.Column)
	}
}

func (in *Interpreter) trace() []string {
	out := make([]string, len(in.stack))
	for i, f := range in.stack {
		out[i] = f.String()
	}
	return out
}

// wrap turns a raw error into a RuntimeError carrying the current stack.
// Errors that already carry a trace pass through unchanged.
func (in *Interpreter) wrap(err error) error {
	switch err.(type) {
	case *RuntimeError, *Exception:
		return err
	}
	if errors.Is(err, errGeneratorExit) {
		return err
	}
	kind := RuntimeFault
	var fk interface{ FaultKind() string }
	if errors.As(err, &fk) {
		kind = fk.FaultKind()
	}
	msg := err.Error()
	var f *fault
	if errors.As(err, &f) {
		msg = f.msg
	}
	re := &RuntimeError{Kind: kind, Message: msg, Trace: in.trace(), Err: err}
	re.CodeFrame = in.codeFrame()
	in.logger.Debug("runtime fault", "kind", kind, "message", msg, "session", in.sessionID)
	return re
}
