// Package interp is the Bayan evaluator: a tree walker over ast nodes
// with closures, generators, synchronous async, classes with C3 method
// resolution, and bridges into the logic and entity engines.
//
// Non-local control flow (return, break, continue) travels as a
// Completion returned next to the error, never as an error. Errors are
// either an *Exception raised by the program or a *RuntimeError fault.
// Generator bodies run as coroutines obtained from iter.Pull; resuming
// one is a synchronous hand-off.
//
// An Interpreter is one session: globals, functions, classes and the
// knowledge base. It is not safe for concurrent use.
package interp

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
	"github.com/roach88/bayan/internal/object"
)

// Importer resolves a module name to its members.
type Importer interface {
	Import(module string) (map[string]Value, error)
}

// ImporterFunc adapts a function to Importer.
type ImporterFunc func(module string) (map[string]Value, error)

// Import calls f.
func (f ImporterFunc) Import(module string) (map[string]Value, error) { return f(module) }

// Interpreter evaluates programs for one session.
type Interpreter struct {
	sessionID string
	globals   map[string]Value
	local     map[string]Value
	functions map[string]*Function
	classes   *object.Registry
	builtins  map[string]*Builtin

	kb       *logic.KB
	entities *entity.Engine
	importer Importer
	stdout   io.Writer
	logger   *slog.Logger

	stack    []frame
	depth    int
	maxDepth int
	owners   []*object.Class
	handling []error
	yield    func(Value) bool

	source     []string
	sourceFile string
	format     ErrorFormat

	generators map[*Generator]struct{}
	yields     map[*ast.FunctionDef]bool

	// collected during option application
	ids        IDGenerator
	extra      map[string]*Builtin
	entityOpts []entity.Option
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithBuiltins adds host callables. They shadow the default builtins of
// the same name.
func WithBuiltins(b map[string]*Builtin) Option {
	return func(in *Interpreter) {
		for k, v := range b {
			in.extra[k] = v
		}
	}
}

// WithImporter sets the module resolver used by import statements.
func WithImporter(imp Importer) Option {
	return func(in *Interpreter) { in.importer = imp }
}

// WithStdout redirects print.
func WithStdout(w io.Writer) Option {
	return func(in *Interpreter) { in.stdout = w }
}

// WithLogger sets the session logger. The knowledge base and entity
// engine log through it too.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithKB uses an existing knowledge base instead of a fresh one.
func WithKB(kb *logic.KB) Option {
	return func(in *Interpreter) { in.kb = kb }
}

// WithEntityOptions configures the session's entity engine.
func WithEntityOptions(opts ...entity.Option) Option {
	return func(in *Interpreter) { in.entityOpts = append(in.entityOpts, opts...) }
}

// DefaultMaxCallDepth is the number of nested Bayan calls allowed
// before a RecursionError.
const DefaultMaxCallDepth = 1000

// WithMaxCallDepth limits nested function, method and generator calls.
// Non-positive values keep the default.
func WithMaxCallDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// WithIDGenerator sets how the session id is generated.
func WithIDGenerator(g IDGenerator) Option {
	return func(in *Interpreter) { in.ids = g }
}

// New creates a session.
func New(opts ...Option) (*Interpreter, error) {
	in := &Interpreter{
		globals:    make(map[string]Value),
		functions:  make(map[string]*Function),
		classes:    object.NewRegistry(),
		stdout:     os.Stdout,
		logger:     slog.Default(),
		format:     DefaultErrorFormat(),
		maxDepth:   DefaultMaxCallDepth,
		generators: make(map[*Generator]struct{}),
		ids:        UUIDv7Generator{},
		extra:      make(map[string]*Builtin),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.kb == nil {
		in.kb = logic.NewKB(logic.WithLogger(in.logger))
	}
	engine, err := entity.New(in.kb, append([]entity.Option{entity.WithLogger(in.logger)}, in.entityOpts...)...)
	if err != nil {
		return nil, err
	}
	in.entities = engine
	in.sessionID = in.ids.Generate()

	in.builtins = defaultBuiltins()
	for k, v := range in.extra {
		in.builtins[k] = v
	}
	for _, name := range []string{BaseExceptionName, ExceptionName} {
		if c, ok := in.classes.Lookup(name); ok {
			in.globals[name] = c
		}
	}
	for name, action := range defaultOperators {
		in.globals[name] = in.operator(name, action)
	}
	in.logger.Debug("session started", "session", in.sessionID)
	return in, nil
}

// Names of the pre-registered exception roots.
const (
	BaseExceptionName = object.BaseExceptionClass
	ExceptionName     = object.ExceptionClass
)

// SessionID identifies this interpreter session.
func (in *Interpreter) SessionID() string { return in.sessionID }

// KB returns the session's knowledge base.
func (in *Interpreter) KB() *logic.KB { return in.kb }

// Entities returns the session's entity engine.
func (in *Interpreter) Entities() *entity.Engine { return in.entities }

// Global returns a global binding.
func (in *Interpreter) Global(name string) (Value, bool) {
	v, ok := in.globals[name]
	return v, ok
}

// SetGlobal binds a global name.
func (in *Interpreter) SetGlobal(name string, v Value) { in.globals[name] = v }

// SetSource registers the program text used for code frames. filename
// may be empty.
func (in *Interpreter) SetSource(code, filename string) {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	in.source = strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	in.sourceFile = filename
}

// SetErrorFormatting configures code frame rendering. Non-positive
// TabStop and negative ContextLines keep the current values.
func (in *Interpreter) SetErrorFormatting(f ErrorFormat) {
	in.format.Color = f.Color
	if f.ContextLines >= 0 {
		in.format.ContextLines = f.ContextLines
	}
	if f.TabStop >= 1 {
		in.format.TabStop = f.TabStop
	}
}

// Interpret evaluates node and returns the value of its last statement.
func (in *Interpreter) Interpret(node ast.Node) (v Value, err error) {
	local, owners, handling, yield := in.local, in.owners, in.handling, in.yield
	depth, frames := in.depth, len(in.stack)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = in.wrap(faultf(RuntimeFault, "internal error: %v", r))
		in.logger.Error("evaluator panic", "panic", r, "session", in.sessionID)
		in.local, in.owners, in.handling, in.yield = local, owners, handling, yield
		in.depth, in.stack = depth, in.stack[:frames]
		v = nil
	}()

	c, err := in.exec(node)
	if err != nil {
		return nil, err
	}
	return c.Value, nil
}

// enterCall counts one nested call against the depth limit.
func (in *Interpreter) enterCall() error {
	if in.depth >= in.maxDepth {
		return faultf(RecursionError, "maximum recursion depth exceeded")
	}
	in.depth++
	return nil
}

func (in *Interpreter) leaveCall() { in.depth-- }

// Close stops generators that were never run to completion.
func (in *Interpreter) Close() error {
	for g := range in.generators {
		g.Close()
	}
	return nil
}

// scope returns the environment assignments write to.
func (in *Interpreter) scope() map[string]Value {
	if in.local != nil {
		return in.local
	}
	return in.globals
}

func (in *Interpreter) lookup(name string) (Value, bool) {
	if in.local != nil {
		if v, ok := in.local[name]; ok {
			return v, true
		}
	}
	if v, ok := in.globals[name]; ok {
		return v, true
	}
	if f, ok := in.functions[name]; ok {
		return f, true
	}
	if c, ok := in.classes.Lookup(name); ok {
		return c, true
	}
	if b, ok := in.builtins[name]; ok {
		return b, true
	}
	return nil, false
}
