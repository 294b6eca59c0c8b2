package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/object"
)

// CompletionKind tells how a statement finished.
type CompletionKind int

const (
	Normal CompletionKind = iota
	ReturnSignal
	BreakSignal
	ContinueSignal
)

func (k CompletionKind) String() string {
	switch k {
	case ReturnSignal:
		return "return"
	case BreakSignal:
		return "break"
	case ContinueSignal:
		return "continue"
	}
	return "normal"
}

// Completion is the outcome of executing a node. Value is the node's
// value for Normal and the returned value for ReturnSignal.
type Completion struct {
	Kind  CompletionKind
	Value Value
}

func normal(v Value) Completion { return Completion{Value: v} }

// exec evaluates one node with a frame pushed for it. Any error that is
// not already a RuntimeError or Exception is wrapped here, at the
// innermost node that saw it.
func (in *Interpreter) exec(n ast.Node) (Completion, error) {
	if n == nil {
		return normal(nil), nil
	}
	in.stack = append(in.stack, frame{kind: ast.Kind(n), pos: n.Pos()})
	c, err := in.dispatch(n)
	if err != nil {
		err = in.wrap(err)
	}
	in.stack = in.stack[:len(in.stack)-1]
	return c, err
}

// eval evaluates an expression.
func (in *Interpreter) eval(n ast.Node) (Value, error) {
	if y, ok := n.(*ast.YieldExpr); ok {
		in.stack = append(in.stack, frame{kind: ast.Kind(y), pos: y.Pos()})
		err := in.wrap(faultf(SyntaxError, "'yield' is only allowed as a statement"))
		in.stack = in.stack[:len(in.stack)-1]
		return nil, err
	}
	c, err := in.exec(n)
	return c.Value, err
}

// evalIn evaluates n with scope as the local environment.
func (in *Interpreter) evalIn(scope map[string]Value, n ast.Node) (Value, error) {
	saved := in.local
	in.local = scope
	defer func() { in.local = saved }()
	return in.eval(n)
}

func (in *Interpreter) execBlock(b *ast.Block) (Completion, error) {
	if b == nil {
		return normal(nil), nil
	}
	return in.exec(b)
}

func (in *Interpreter) execStatements(stmts []ast.Node) (Completion, error) {
	var last Value
	for _, s := range stmts {
		c, err := in.exec(s)
		if err != nil {
			return c, err
		}
		if c.Kind != Normal {
			return c, nil
		}
		last = c.Value
	}
	return normal(last), nil
}

func (in *Interpreter) dispatch(n ast.Node) (Completion, error) {
	switch n := n.(type) {
	case *ast.Program:
		c, err := in.execStatements(n.Body)
		if err != nil {
			return c, err
		}
		switch c.Kind {
		case BreakSignal, ContinueSignal:
			return c, faultf(SyntaxError, "'%s' outside loop", c.Kind)
		}
		return normal(c.Value), nil
	case *ast.Block:
		return in.execStatements(n.Statements)

	case *ast.Number:
		if n.Integer {
			return normal(int64(n.Value)), nil
		}
		return normal(n.Value), nil
	case *ast.String:
		return normal(n.Value), nil
	case *ast.Boolean:
		return normal(n.Value), nil
	case *ast.None:
		return normal(nil), nil
	case *ast.Variable:
		v, err := in.resolve(n.Name)
		return normal(v), err
	case *ast.SelfReference:
		if in.local != nil {
			if self, ok := in.local["self"]; ok {
				return normal(self), nil
			}
		}
		return normal(nil), faultf(NameError, "'self' is not defined")

	case *ast.List:
		elems, err := in.evalList(n.Elements)
		return normal(NewList(elems...)), err
	case *ast.Tuple:
		elems, err := in.evalList(n.Elements)
		return normal(&Tuple{Elems: elems}), err
	case *ast.Dict:
		return wrapValue(in.evalDict(n))
	case *ast.ListComprehension:
		return wrapValue(in.evalComprehension(n))
	case *ast.Slice:
		return wrapValue(in.evalSlice(n))

	case *ast.BinaryOp:
		return wrapValue(in.evalBinary(n))
	case *ast.UnaryOp:
		return wrapValue(in.evalUnary(n))

	case *ast.Assignment:
		return wrapValue(in.execAssignment(n))
	case *ast.AttributeAccess:
		obj, err := in.eval(n.Object)
		if err != nil {
			return normal(nil), err
		}
		return wrapValue(in.getAttr(obj, n.Attribute))
	case *ast.AttributeAssignment:
		obj, err := in.eval(n.Object)
		if err != nil {
			return normal(nil), err
		}
		v, err := in.eval(n.Value)
		if err != nil {
			return normal(nil), err
		}
		return normal(v), in.setAttr(obj, n.Attribute, v)
	case *ast.SubscriptAccess:
		return wrapValue(in.evalSubscript(n))
	case *ast.SubscriptAssignment:
		return wrapValue(in.execSubscriptAssignment(n))

	case *ast.FunctionCall:
		return wrapValue(in.evalCall(n))
	case *ast.MethodCall:
		return wrapValue(in.evalMethodCall(n))
	case *ast.SuperCall:
		return wrapValue(in.evalSuper(n))
	case *ast.AwaitExpr:
		v, err := in.eval(n.Value)
		if err != nil {
			return normal(nil), err
		}
		return wrapValue(in.await(v))
	case *ast.YieldExpr:
		return in.execYield(n)

	case *ast.FunctionDef:
		return normal(nil), in.execFunctionDef(n)
	case *ast.ClassDef:
		return normal(nil), in.execClassDef(n)

	case *ast.IfStatement:
		return in.execIf(n)
	case *ast.ForLoop:
		return in.execFor(n)
	case *ast.WhileLoop:
		return in.execWhile(n)
	case *ast.ReturnStatement:
		v, err := in.eval(n.Value)
		if err != nil {
			return normal(nil), err
		}
		return Completion{Kind: ReturnSignal, Value: v}, nil
	case *ast.BreakStatement:
		return Completion{Kind: BreakSignal}, nil
	case *ast.ContinueStatement:
		return Completion{Kind: ContinueSignal}, nil
	case *ast.PrintStatement:
		v, err := in.eval(n.Value)
		if err != nil {
			return normal(nil), err
		}
		return normal(nil), in.print(v)
	case *ast.ImportStatement:
		return normal(nil), in.execImport(n)
	case *ast.FromImportStatement:
		return normal(nil), in.execFromImport(n)
	case *ast.RaiseStatement:
		return normal(nil), in.execRaise(n)
	case *ast.TryExcept:
		return in.execTry(n)
	case *ast.WithStatement:
		return in.execWith(n)

	case *ast.PredicateExpr:
		return wrapValue(in.evalPredicate(n))
	case *ast.Query:
		return wrapValue(in.evalQuery(n))
	case *ast.FactDecl:
		return wrapValue(in.execFact(n))
	case *ast.RuleDecl:
		return wrapValue(in.execRule(n))
	case *ast.EntityDecl:
		return wrapValue(in.execEntityDecl(n))
	case *ast.ApplyAction:
		return wrapValue(in.execApplyAction(n))
	}
	return normal(nil), faultf(RuntimeFault, "Unknown node type: %s", ast.Kind(n))
}

func wrapValue(v Value, err error) (Completion, error) {
	return normal(v), err
}

func (in *Interpreter) evalList(nodes []ast.Node) ([]Value, error) {
	out := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := in.eval(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (in *Interpreter) evalDict(n *ast.Dict) (Value, error) {
	d := NewDict()
	for _, p := range n.Pairs {
		k, err := in.eval(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := in.eval(p.Value)
		if err != nil {
			return nil, err
		}
		if err := d.Set(k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// evalComprehension binds the loop variable in the enclosing scope.
func (in *Interpreter) evalComprehension(n *ast.ListComprehension) (Value, error) {
	src, err := in.eval(n.Iterable)
	if err != nil {
		return nil, err
	}
	out := NewList()
	err = in.iterate(src, func(item Value) (bool, error) {
		in.scope()[n.Variable] = item
		if n.Condition != nil {
			cond, err := in.eval(n.Condition)
			if err != nil {
				return false, err
			}
			ok, err := in.truthy(cond)
			if err != nil || !ok {
				return err == nil, err
			}
		}
		v, err := in.eval(n.Expr)
		if err != nil {
			return false, err
		}
		out.Elems = append(out.Elems, v)
		return true, nil
	})
	return out, err
}

func (in *Interpreter) evalSlice(n *ast.Slice) (Value, error) {
	s := &SliceValue{}
	var err error
	if n.Start != nil {
		if s.Start, err = in.eval(n.Start); err != nil {
			return nil, err
		}
	}
	if n.End != nil {
		if s.End, err = in.eval(n.End); err != nil {
			return nil, err
		}
	}
	if n.Step != nil {
		if s.Step, err = in.eval(n.Step); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// resolve looks a name up. "obj.attr" reads an attribute of obj.
func (in *Interpreter) resolve(name string) (Value, error) {
	if base, rest, dotted := strings.Cut(name, "."); dotted && base != "" {
		obj, ok := in.lookup(base)
		if !ok {
			return nil, faultf(NameError, "%s", in.undefinedName(base))
		}
		for _, attr := range strings.Split(rest, ".") {
			v, err := in.getAttr(obj, attr)
			if err != nil {
				return nil, err
			}
			obj = v
		}
		return obj, nil
	}
	v, ok := in.lookup(name)
	if !ok {
		return nil, faultf(NameError, "%s", in.undefinedName(name))
	}
	return v, nil
}

func (in *Interpreter) execAssignment(n *ast.Assignment) (Value, error) {
	v, err := in.eval(n.Value)
	if err != nil {
		return nil, err
	}
	if len(n.Targets) > 0 {
		return v, in.unpack(n.Targets, v)
	}
	if base, attr, dotted := strings.Cut(n.Name, "."); dotted {
		obj, ok := in.lookup(base)
		if !ok {
			return nil, faultf(NameError, "%s", in.undefinedName(base))
		}
		if strings.Contains(attr, ".") {
			parts := strings.Split(attr, ".")
			for _, p := range parts[:len(parts)-1] {
				if obj, err = in.getAttr(obj, p); err != nil {
					return nil, err
				}
			}
			attr = parts[len(parts)-1]
		}
		return v, in.setAttr(obj, attr, v)
	}
	in.scope()[n.Name] = v
	return v, nil
}

func (in *Interpreter) unpack(targets []string, v Value) error {
	items, err := in.collect(v)
	if err != nil {
		return err
	}
	switch {
	case len(items) < len(targets):
		return faultf(ValueError, "not enough values to unpack (expected %d, got %d)", len(targets), len(items))
	case len(items) > len(targets):
		return faultf(ValueError, "too many values to unpack (expected %d)", len(targets))
	}
	scope := in.scope()
	for i, t := range targets {
		scope[t] = items[i]
	}
	return nil
}

func (in *Interpreter) execIf(n *ast.IfStatement) (Completion, error) {
	cond, err := in.eval(n.Condition)
	if err != nil {
		return normal(nil), err
	}
	ok, err := in.truthy(cond)
	if err != nil {
		return normal(nil), err
	}
	if ok {
		return in.execBlock(n.Then)
	}
	if n.Else != nil {
		if b, isBlock := n.Else.(*ast.Block); isBlock {
			return in.execBlock(b)
		}
		return in.exec(n.Else)
	}
	return normal(nil), nil
}

func (in *Interpreter) execFor(n *ast.ForLoop) (Completion, error) {
	src, err := in.eval(n.Iterable)
	if err != nil {
		return normal(nil), err
	}
	var result Completion
	err = in.iterate(src, func(item Value) (bool, error) {
		if len(n.Variables) > 0 {
			if err := in.unpack(n.Variables, item); err != nil {
				return false, err
			}
		} else {
			in.scope()[n.Variable] = item
		}
		c, err := in.execBlock(n.Body)
		if err != nil {
			return false, err
		}
		switch c.Kind {
		case BreakSignal:
			return false, nil
		case ContinueSignal:
			return true, nil
		case ReturnSignal:
			result = c
			return false, nil
		}
		result = c
		return true, nil
	})
	return result, err
}

func (in *Interpreter) execWhile(n *ast.WhileLoop) (Completion, error) {
	var result Completion
	for {
		cond, err := in.eval(n.Condition)
		if err != nil {
			return normal(nil), err
		}
		ok, err := in.truthy(cond)
		if err != nil {
			return normal(nil), err
		}
		if !ok {
			return result, nil
		}
		c, err := in.execBlock(n.Body)
		if err != nil {
			return c, err
		}
		switch c.Kind {
		case BreakSignal:
			return result, nil
		case ContinueSignal:
			continue
		case ReturnSignal:
			return c, nil
		}
		result = c
	}
}

func (in *Interpreter) print(v Value) error {
	s, err := in.str(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(in.stdout, s)
	return err
}

func (in *Interpreter) execImport(n *ast.ImportStatement) error {
	members, err := in.importModule(n.Module)
	if err != nil {
		return err
	}
	name := n.Alias
	if name == "" {
		name = n.Module
	}
	in.scope()[name] = &Module{Name: n.Module, Members: members}
	return nil
}

func (in *Interpreter) execFromImport(n *ast.FromImportStatement) error {
	members, err := in.importModule(n.Module)
	if err != nil {
		return err
	}
	scope := in.scope()
	for i, name := range n.Names {
		v, ok := members[name]
		if !ok {
			return faultf(ImportError, "cannot import name '%s' from '%s'", name, n.Module)
		}
		bind := name
		if i < len(n.Aliases) && n.Aliases[i] != "" {
			bind = n.Aliases[i]
		}
		scope[bind] = v
	}
	return nil
}

func (in *Interpreter) importModule(module string) (map[string]Value, error) {
	if in.importer == nil {
		return nil, faultf(ImportError, "No module named '%s'", module)
	}
	members, err := in.importer.Import(module)
	if err != nil {
		return nil, faultf(ImportError, "%v", err)
	}
	return members, nil
}

// execRaise raises a value. A class is instantiated without arguments;
// a bare raise re-raises the exception being handled.
func (in *Interpreter) execRaise(n *ast.RaiseStatement) error {
	if n.Value == nil {
		if len(in.handling) == 0 {
			return faultf(RuntimeFault, "No active exception to re-raise")
		}
		return in.handling[len(in.handling)-1]
	}
	v, err := in.eval(n.Value)
	if err != nil {
		return err
	}
	if cls, ok := v.(*object.Class); ok {
		if v, err = in.instantiate(cls, nil, nil); err != nil {
			return err
		}
	}
	text, err := in.exceptionText(v)
	if err != nil {
		return err
	}
	return &Exception{Value: v, Text: text, Trace: in.trace()}
}

// execTry runs the first matching handler, then finally. A finally that
// itself returns, breaks or fails overrides the body's outcome.
func (in *Interpreter) execTry(n *ast.TryExcept) (Completion, error) {
	c, err := in.execBlock(n.Body)
	if err != nil && !errors.Is(err, errGeneratorExit) {
		if h, val, ok := in.matchHandler(n.Handlers, err); ok {
			if h.Alias != "" {
				in.scope()[h.Alias] = val
			}
			in.handling = append(in.handling, err)
			c, err = in.execBlock(h.Body)
			in.handling = in.handling[:len(in.handling)-1]
		}
	}
	if n.Finally != nil {
		fc, ferr := in.execBlock(n.Finally)
		if ferr != nil {
			return fc, ferr
		}
		if fc.Kind != Normal {
			return fc, nil
		}
	}
	return c, err
}

// matchHandler picks the first handler for err. Runtime faults match a
// bare handler, Exception, BaseException, or their own kind name; the
// alias receives the fault message.
func (in *Interpreter) matchHandler(handlers []ast.ExceptHandler, err error) (*ast.ExceptHandler, Value, bool) {
	var ex *Exception
	var re *RuntimeError
	switch {
	case errors.As(err, &ex):
		for i := range handlers {
			h := &handlers[i]
			if h.Type == "" {
				return h, ex.Value, true
			}
			if inst, ok := ex.Value.(*object.Instance); ok {
				if inst.Class.IsSubclassOf(h.Type) {
					return h, ex.Value, true
				}
			} else if h.Type == ExceptionName || h.Type == BaseExceptionName {
				return h, ex.Value, true
			}
		}
	case errors.As(err, &re):
		for i := range handlers {
			h := &handlers[i]
			switch h.Type {
			case "", ExceptionName, BaseExceptionName, re.Kind:
				return h, re.Message, true
			}
		}
	}
	return nil, nil, false
}

// execWith calls __enter__, runs the body, and always calls __exit__.
// An __exit__ failure is reported only when the body succeeded.
func (in *Interpreter) execWith(n *ast.WithStatement) (Completion, error) {
	ctx, err := in.eval(n.Context)
	if err != nil {
		return normal(nil), err
	}
	inst, ok := ctx.(*object.Instance)
	if !ok || !inst.HasMethod("__enter__") {
		return normal(nil), faultf(TypeError, "'%s' object does not support the context manager protocol", typeName(ctx))
	}
	entered, err := in.callMethod(inst, "__enter__", nil, nil)
	if err != nil {
		return normal(nil), err
	}
	if n.Target != "" {
		in.scope()[n.Target] = entered
	}
	c, err := in.execBlock(n.Body)
	if inst.HasMethod("__exit__") {
		_, xerr := in.callMethod(inst, "__exit__", []Value{nil, nil, nil}, nil)
		if err == nil && xerr != nil {
			return c, xerr
		}
	}
	return c, err
}

func (in *Interpreter) execYield(n *ast.YieldExpr) (Completion, error) {
	if in.yield == nil {
		return normal(nil), faultf(SyntaxError, "'yield' outside function")
	}
	v, err := in.eval(n.Value)
	if err != nil {
		return normal(nil), err
	}
	if !in.yield(v) {
		return normal(nil), errGeneratorExit
	}
	return normal(nil), nil
}
