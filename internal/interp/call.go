package interp

import (
	"maps"
	"strings"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/object"
)

// Call invokes a callable value from host code.
func (in *Interpreter) Call(fn Value, args ...Value) (Value, error) {
	return in.call(fn, args, nil)
}

func (in *Interpreter) call(callee Value, args []Value, kwargs Kwargs) (Value, error) {
	switch fn := callee.(type) {
	case *Function:
		return in.callFunction(fn, args, kwargs, nil)
	case *BoundMethod:
		return in.callFunction(fn.Fn, args, kwargs, fn.Self)
	case *Builtin:
		return fn.Fn(in, args, kwargs)
	case *object.Class:
		return in.instantiate(fn, args, kwargs)
	case *object.Instance:
		if fn.HasMethod("__call__") {
			return in.callMethod(fn, "__call__", args, kwargs)
		}
	}
	return nil, faultf(TypeError, "'%s' object is not callable", typeName(callee))
}

func callable(v Value) bool {
	switch x := v.(type) {
	case *Function, *BoundMethod, *Builtin, *object.Class:
		return true
	case *object.Instance:
		return x.HasMethod("__call__")
	}
	return false
}

func (in *Interpreter) evalArgs(argNodes []ast.Node, named []ast.NamedArg) ([]Value, Kwargs, error) {
	args, err := in.evalList(argNodes)
	if err != nil {
		return nil, nil, err
	}
	var kwargs Kwargs
	for _, na := range named {
		v, err := in.eval(na.Value)
		if err != nil {
			return nil, nil, err
		}
		kwargs = append(kwargs, Kwarg{Name: na.Name, Value: v})
	}
	return args, kwargs, nil
}

func (in *Interpreter) evalCall(n *ast.FunctionCall) (Value, error) {
	if n.HasLogicArgs() {
		return in.logicCall(n)
	}
	callee, ok := in.lookup(n.Name)
	if !ok {
		if !strings.Contains(n.Name, ".") {
			return nil, faultf(NameError, "%s", in.undefinedCallable(n.Name))
		}
		v, err := in.resolve(n.Name)
		if err != nil {
			return nil, err
		}
		callee = v
	}
	args, kwargs, err := in.evalArgs(n.Args, n.NamedArgs)
	if err != nil {
		return nil, err
	}
	return in.call(callee, args, kwargs)
}

func (in *Interpreter) evalMethodCall(n *ast.MethodCall) (Value, error) {
	obj, err := in.eval(n.Object)
	if err != nil {
		return nil, err
	}
	args, kwargs, err := in.evalArgs(n.Args, n.NamedArgs)
	if err != nil {
		return nil, err
	}
	if inst, ok := obj.(*object.Instance); ok {
		return in.callMethod(inst, n.Method, args, kwargs)
	}
	m, err := in.getAttr(obj, n.Method)
	if err != nil {
		return nil, err
	}
	return in.call(m, args, kwargs)
}

// callMethod resolves name on inst and calls it. Class members that are
// functions receive inst as self; instance attributes are called as is.
func (in *Interpreter) callMethod(inst *object.Instance, name string, args []Value, kwargs Kwargs) (Value, error) {
	v, owner, ok := inst.Get(name)
	if !ok {
		return nil, faultf(AttributeError, "'%s' object has no attribute '%s'", inst.Class.Name, name)
	}
	if fn, isFn := v.(*Function); isFn && owner != nil {
		return in.callFunction(fn, args, kwargs, inst)
	}
	return in.call(v, args, kwargs)
}

// evalSuper resolves the method in the MRO of self's class after the
// class whose method is executing.
func (in *Interpreter) evalSuper(n *ast.SuperCall) (Value, error) {
	var self *object.Instance
	if in.local != nil {
		self, _ = in.local["self"].(*object.Instance)
	}
	if self == nil || len(in.owners) == 0 {
		return nil, faultf(RuntimeFault, "super() used outside a method")
	}
	owner := in.owners[len(in.owners)-1]
	args, kwargs, err := in.evalArgs(n.Args, n.NamedArgs)
	if err != nil {
		return nil, err
	}
	_, member, ok := self.Class.LookupAfter(n.Method, owner)
	if !ok {
		if n.Method == "__init__" {
			initDefault(self, args, kwargs)
			return nil, nil
		}
		return nil, faultf(AttributeError, "'super' object has no attribute '%s'", n.Method)
	}
	if fn, isFn := member.(*Function); isFn {
		return in.callFunction(fn, args, kwargs, self)
	}
	return in.call(member, args, kwargs)
}

// callFunction binds arguments and runs fn. Calling a method through
// its class passes the instance as the first argument.
func (in *Interpreter) callFunction(fn *Function, args []Value, kwargs Kwargs, self *object.Instance) (Value, error) {
	if fn.Class != nil && self == nil && len(args) > 0 {
		if inst, ok := args[0].(*object.Instance); ok && inst.Class.IsSubclassOf(fn.Class.Name) {
			self, args = inst, args[1:]
		}
	}
	scope, err := in.bind(fn, args, kwargs, self)
	if err != nil {
		return nil, err
	}
	if fn.Def.Async {
		return &Coroutine{fn: fn, scope: scope}, nil
	}
	if in.isGenerator(fn.Def) {
		return in.newGenerator(fn, scope), nil
	}
	return in.run(fn, scope)
}

// run executes fn's body in scope. Without a return statement the value
// of the last statement is the result.
func (in *Interpreter) run(fn *Function, scope map[string]Value) (Value, error) {
	if err := in.enterCall(); err != nil {
		return nil, err
	}
	defer in.leaveCall()
	saved := in.local
	in.local = scope
	if fn.Class != nil {
		in.owners = append(in.owners, fn.Class)
	}
	c, err := in.execBlock(fn.Def.Body)
	if fn.Class != nil {
		in.owners = in.owners[:len(in.owners)-1]
	}
	in.local = saved
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case BreakSignal, ContinueSignal:
		return nil, faultf(SyntaxError, "'%s' outside loop", c.Kind)
	}
	return c.Value, nil
}

// bind builds the call scope: closure, then parameters. Defaults are
// evaluated at call time inside the new scope.
func (in *Interpreter) bind(fn *Function, args []Value, kwargs Kwargs, self *object.Instance) (map[string]Value, error) {
	name := fn.Def.Name
	params := fn.Def.Params
	scope := make(map[string]Value, len(fn.Closure)+len(params)+1)
	maps.Copy(scope, fn.Closure)
	if self != nil {
		scope["self"] = self
		if len(params) > 0 && params[0].Name == "self" {
			params = params[1:]
		}
	}

	var positional []ast.Parameter
	var varargs, varkw string
	for _, p := range params {
		switch {
		case p.Keywords:
			varkw = p.Name
		case p.Variadic:
			varargs = p.Name
		default:
			positional = append(positional, p)
		}
	}

	bound := make(map[string]bool, len(positional))
	var extra []Value
	for i, a := range args {
		switch {
		case i < len(positional):
			scope[positional[i].Name] = a
			bound[positional[i].Name] = true
		case varargs != "":
			extra = append(extra, a)
		default:
			return nil, faultf(TypeError, "Too many positional arguments for function %s", name)
		}
	}
	if varargs != "" {
		scope[varargs] = NewList(extra...)
	}

	var kw *Dict
	if varkw != "" {
		kw = NewDict()
		scope[varkw] = kw
	}
	for _, k := range kwargs {
		switch {
		case isParam(positional, k.Name):
			if bound[k.Name] {
				return nil, faultf(TypeError, "%s() got multiple values for argument '%s'", name, k.Name)
			}
			scope[k.Name] = k.Value
			bound[k.Name] = true
		case kw != nil:
			kw.SetString(k.Name, k.Value)
		default:
			return nil, faultf(TypeError, "Unexpected keyword argument: %s", k.Name)
		}
	}

	for _, p := range positional {
		if bound[p.Name] {
			continue
		}
		if p.Default == nil {
			return nil, faultf(TypeError, "Missing required parameter: %s", p.Name)
		}
		v, err := in.evalIn(scope, p.Default)
		if err != nil {
			return nil, err
		}
		scope[p.Name] = v
	}
	return scope, nil
}

func isParam(params []ast.Parameter, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// execFunctionDef binds a function. Top-level definitions are session
// functions. Nested definitions capture a copy of the enclosing scope plus
// their own name, and are visible only in that scope.
func (in *Interpreter) execFunctionDef(n *ast.FunctionDef) error {
	fn := &Function{Def: n}
	if in.local != nil {
		fn.Closure = maps.Clone(in.local)
	}
	v, err := in.decorate(fn, n.Decorators)
	if err != nil {
		return err
	}
	if in.local == nil {
		in.functions[n.Name] = fn
	} else {
		fn.Closure[n.Name] = v
	}
	in.scope()[n.Name] = v
	return nil
}

// decorate applies decorators bottom-up. A factory decorator is called
// with its arguments first and the result wraps the function.
func (in *Interpreter) decorate(fn Value, decorators []ast.Decorator) (Value, error) {
	v := fn
	for i := len(decorators) - 1; i >= 0; i-- {
		d := decorators[i]
		dec, err := in.resolve(d.Name)
		if err != nil {
			return nil, err
		}
		if d.IsFactory() {
			args, err := in.evalList(d.Args)
			if err != nil {
				return nil, err
			}
			if dec, err = in.call(dec, args, nil); err != nil {
				return nil, err
			}
		}
		if v, err = in.call(dec, []Value{v}, nil); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// execClassDef runs the class body in its own scope. Function
// definitions become methods; other bindings become class attributes.
func (in *Interpreter) execClassDef(n *ast.ClassDef) error {
	members := make(map[string]any)
	var methods []*Function

	saved := in.local
	in.local = make(map[string]Value)
	restore := func() { in.local = saved }

	if n.Body != nil {
		for _, stmt := range n.Body.Statements {
			if fd, ok := stmt.(*ast.FunctionDef); ok {
				fn := &Function{Def: fd}
				methods = append(methods, fn)
				v, err := in.decorate(fn, fd.Decorators)
				if err != nil {
					restore()
					return err
				}
				members[fd.Name] = v
				continue
			}
			if _, err := in.exec(stmt); err != nil {
				restore()
				return err
			}
		}
	}
	for k, v := range in.local {
		if _, isMethod := members[k]; !isMethod {
			members[k] = v
		}
	}
	restore()

	cls, err := in.classes.Define(n.Name, n.Bases, members)
	if err != nil {
		return err
	}
	for _, fn := range methods {
		fn.Class = cls
	}
	in.scope()[n.Name] = cls
	return nil
}

// instantiate creates an instance and runs __init__. Classes without an
// initializer record their arguments as args and message, the way
// exception classes are usually constructed.
func (in *Interpreter) instantiate(cls *object.Class, args []Value, kwargs Kwargs) (Value, error) {
	inst := object.NewInstance(cls)
	if _, ctor, ok := cls.Lookup("__init__"); ok {
		var err error
		if fn, isFn := ctor.(*Function); isFn {
			_, err = in.callFunction(fn, args, kwargs, inst)
		} else {
			_, err = in.call(ctor, append([]Value{inst}, args...), kwargs)
		}
		if err != nil {
			return nil, err
		}
		return inst, nil
	}
	initDefault(inst, args, kwargs)
	return inst, nil
}

func initDefault(inst *object.Instance, args []Value, kwargs Kwargs) {
	inst.Set("args", &Tuple{Elems: append([]Value{}, args...)})
	if len(args) > 0 {
		inst.Set("message", args[0])
	}
	for _, k := range kwargs {
		inst.Set(k.Name, k.Value)
	}
}

// isGenerator reports whether the function body yields. Nested function
// and class bodies do not count.
func (in *Interpreter) isGenerator(def *ast.FunctionDef) bool {
	if in.yields == nil {
		in.yields = make(map[*ast.FunctionDef]bool)
	}
	if g, ok := in.yields[def]; ok {
		return g
	}
	g := blockYields(def.Body)
	in.yields[def] = g
	return g
}

func blockYields(b *ast.Block) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Statements {
		if stmtYields(s) {
			return true
		}
	}
	return false
}

func stmtYields(n ast.Node) bool {
	switch s := n.(type) {
	case *ast.YieldExpr:
		return true
	case *ast.Block:
		return blockYields(s)
	case *ast.IfStatement:
		return blockYields(s.Then) || (s.Else != nil && stmtYields(s.Else))
	case *ast.ForLoop:
		return blockYields(s.Body)
	case *ast.WhileLoop:
		return blockYields(s.Body)
	case *ast.WithStatement:
		return blockYields(s.Body)
	case *ast.TryExcept:
		if blockYields(s.Body) || blockYields(s.Finally) {
			return true
		}
		for _, h := range s.Handlers {
			if blockYields(h.Body) {
				return true
			}
		}
	}
	return false
}
