package interp

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bayan/internal/ast"
)

// Tree builders. Positions are left zero unless a test needs them.

func prog(stmts ...ast.Node) *ast.Program { return &ast.Program{Body: stmts} }

func block(stmts ...ast.Node) *ast.Block { return &ast.Block{Statements: stmts} }

func num(v float64) *ast.Number { return &ast.Number{Value: v, Integer: v == math.Trunc(v)} }

func flt(v float64) *ast.Number { return &ast.Number{Value: v} }

func str(s string) *ast.String { return &ast.String{Value: s} }

func name(n string) *ast.Variable { return &ast.Variable{Name: n} }

func none() *ast.None { return &ast.None{} }

func list(elems ...ast.Node) *ast.List { return &ast.List{Elements: elems} }

func dict(kv ...ast.Node) *ast.Dict {
	d := &ast.Dict{}
	for i := 0; i+1 < len(kv); i += 2 {
		d.Pairs = append(d.Pairs, ast.DictPair{Key: kv[i], Value: kv[i+1]})
	}
	return d
}

func assign(n string, v ast.Node) *ast.Assignment { return &ast.Assignment{Name: n, Value: v} }

func bin(op string, l, r ast.Node) *ast.BinaryOp {
	return &ast.BinaryOp{Operator: op, Left: l, Right: r}
}

func call(n string, args ...ast.Node) *ast.FunctionCall {
	return &ast.FunctionCall{Name: n, Args: args}
}

func callKw(n string, args []ast.Node, kw ...ast.NamedArg) *ast.FunctionCall {
	return &ast.FunctionCall{Name: n, Args: args, NamedArgs: kw}
}

func kwarg(n string, v ast.Node) ast.NamedArg { return ast.NamedArg{Name: n, Value: v} }

func method(obj ast.Node, m string, args ...ast.Node) *ast.MethodCall {
	return &ast.MethodCall{Object: obj, Method: m, Args: args}
}

func attr(obj ast.Node, a string) *ast.AttributeAccess {
	return &ast.AttributeAccess{Object: obj, Attribute: a}
}

func self() *ast.SelfReference { return &ast.SelfReference{} }

func ret(v ast.Node) *ast.ReturnStatement { return &ast.ReturnStatement{Value: v} }

func yield(v ast.Node) *ast.YieldExpr { return &ast.YieldExpr{Value: v} }

func printStmt(v ast.Node) *ast.PrintStatement { return &ast.PrintStatement{Value: v} }

func params(names ...string) []ast.Parameter {
	ps := make([]ast.Parameter, len(names))
	for i, n := range names {
		ps[i] = ast.Parameter{Name: n}
	}
	return ps
}

func def(n string, ps []ast.Parameter, body ...ast.Node) *ast.FunctionDef {
	return &ast.FunctionDef{Name: n, Params: ps, Body: block(body...)}
}

func class(n string, bases []string, body ...ast.Node) *ast.ClassDef {
	return &ast.ClassDef{Name: n, Bases: bases, Body: block(body...)}
}

func ifStmt(cond ast.Node, then ...ast.Node) *ast.IfStatement {
	return &ast.IfStatement{Condition: cond, Then: block(then...)}
}

func while(cond ast.Node, body ...ast.Node) *ast.WhileLoop {
	return &ast.WhileLoop{Condition: cond, Body: block(body...)}
}

func forLoop(v string, iter ast.Node, body ...ast.Node) *ast.ForLoop {
	return &ast.ForLoop{Variable: v, Iterable: iter, Body: block(body...)}
}

func raise(v ast.Node) *ast.RaiseStatement { return &ast.RaiseStatement{Value: v} }

func try(body *ast.Block, handlers ...ast.ExceptHandler) *ast.TryExcept {
	return &ast.TryExcept{Body: body, Handlers: handlers}
}

func except(typ, alias string, body ...ast.Node) ast.ExceptHandler {
	return ast.ExceptHandler{Type: typ, Alias: alias, Body: block(body...)}
}

func pred(n string, args ...ast.Node) *ast.PredicateExpr {
	return &ast.PredicateExpr{Name: n, Args: args}
}

// newTestInterp returns an interpreter printing into the returned buffer.
func newTestInterp(t *testing.T, opts ...Option) (*Interpreter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithStdout(&out), WithIDGenerator(NewSequenceGenerator("session-1"))}, opts...)
	in, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = in.Close() })
	return in, &out
}

// run interprets stmts as a program and returns the interpreter.
func run(t *testing.T, stmts ...ast.Node) (*Interpreter, *bytes.Buffer) {
	t.Helper()
	in, out := newTestInterp(t)
	_, err := in.Interpret(prog(stmts...))
	require.NoError(t, err)
	return in, out
}

func global(t *testing.T, in *Interpreter, n string) Value {
	t.Helper()
	v, ok := in.Global(n)
	require.True(t, ok, "global %s not bound", n)
	return v
}

func reprOf(t *testing.T, in *Interpreter, v Value) string {
	t.Helper()
	s, err := in.repr(v)
	require.NoError(t, err)
	return s
}
