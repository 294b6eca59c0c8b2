package interp

import (
	"errors"
	"iter"
	"slices"

	"github.com/roach88/bayan/internal/object"
)

// Generator is a suspended function body. Each generator keeps its own
// locals, owner stack, handler stack and frames; Next installs them on
// the interpreter for the duration of one resume.
type Generator struct {
	in   *Interpreter
	fn   *Function
	next func() (Value, bool)
	stop func()

	local    map[string]Value
	owners   []*object.Class
	handling []error
	frames   []frame
	yieldFn  func(Value) bool

	running bool
	done    bool
	err     error
}

func (in *Interpreter) newGenerator(fn *Function, scope map[string]Value) *Generator {
	g := &Generator{in: in, fn: fn, local: scope}
	if fn.Class != nil {
		g.owners = []*object.Class{fn.Class}
	}
	g.next, g.stop = iter.Pull(g.body)
	in.generators[g] = struct{}{}
	return g
}

func (g *Generator) String() string { return "<generator " + g.fn.Def.Name + ">" }

func (g *Generator) body(yield func(Value) bool) {
	g.yieldFn = yield
	g.in.yield = yield
	c, err := g.in.execBlock(g.fn.Def.Body)
	switch {
	case errors.Is(err, errGeneratorExit):
	case err != nil:
		g.err = err
	case c.Kind == BreakSignal || c.Kind == ContinueSignal:
		g.err = g.in.wrap(faultf(SyntaxError, "'%s' outside loop", c.Kind))
	}
}

// resume runs step with the generator's state installed and saves it
// back afterwards. Generator frames sit on top of the consumer's stack.
func (g *Generator) resume(step func()) {
	in := g.in
	local, owners, handling, yield, stack := in.local, in.owners, in.handling, in.yield, in.stack

	in.local, in.owners, in.handling, in.yield = g.local, g.owners, g.handling, g.yieldFn
	in.stack = append(slices.Clip(stack), g.frames...)
	g.running = true

	step()

	g.running = false
	g.local, g.owners, g.handling, g.yieldFn = in.local, in.owners, in.handling, in.yield
	if len(in.stack) > len(stack) {
		g.frames = append([]frame(nil), in.stack[len(stack):]...)
	} else {
		g.frames = nil
	}
	in.local, in.owners, in.handling, in.yield, in.stack = local, owners, handling, yield, stack
}

// Next resumes the generator. ok is false once the body has finished;
// err is the error the body finished with, reported once.
func (g *Generator) Next() (v Value, ok bool, err error) {
	if g.done {
		return nil, false, nil
	}
	if g.running {
		return nil, false, faultf(ValueError, "generator already executing")
	}
	if err := g.in.enterCall(); err != nil {
		return nil, false, err
	}
	g.resume(func() { v, ok = g.next() })
	g.in.leaveCall()
	if !ok {
		g.finish()
		err, g.err = g.err, nil
		return nil, false, err
	}
	return v, true, nil
}

// Close abandons the generator. A suspended body unwinds through its
// finally blocks and with statements.
func (g *Generator) Close() {
	if g.done {
		return
	}
	if g.running {
		return
	}
	g.resume(g.stop)
	g.finish()
}

func (g *Generator) finish() {
	g.done = true
	delete(g.in.generators, g)
	g.stop()
}

// Coroutine is the result of calling an async function: arguments are
// bound, the body runs when awaited.
type Coroutine struct {
	fn      *Function
	scope   map[string]Value
	awaited bool
}

func (c *Coroutine) String() string { return "<coroutine " + c.fn.Def.Name + ">" }

// await runs a coroutine to completion. Other values await to
// themselves.
func (in *Interpreter) await(v Value) (Value, error) {
	co, ok := v.(*Coroutine)
	if !ok {
		return v, nil
	}
	if co.awaited {
		return nil, faultf(RuntimeFault, "cannot reuse already awaited coroutine")
	}
	co.awaited = true
	if in.isGenerator(co.fn.Def) {
		return in.newGenerator(co.fn, co.scope), nil
	}
	return in.run(co.fn, co.scope)
}
