package interp

import (
	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/logic"
)

// predicate builds a logic predicate from call syntax. ?X arguments
// become variables of scope. A bare name that is not bound is an atom;
// everything else is evaluated and passed as a typed constant.
func (in *Interpreter) predicate(name string, argNodes []ast.Node, scope *logic.Scope) (*logic.Predicate, error) {
	args := make([]any, len(argNodes))
	for i, a := range argNodes {
		if v, ok := a.(*ast.Variable); ok {
			if v.IsLogic() {
				args[i] = scope.Var(v.Name)
				continue
			}
			if _, bound := in.lookup(v.Name); !bound {
				args[i] = v.Name
				continue
			}
		}
		val, err := in.eval(a)
		if err != nil {
			return nil, err
		}
		c, err := in.toConst(val)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	return logic.NewPredicate(name, args...), nil
}

// toConst converts a scalar to a logic constant; other values use their
// str form.
func (in *Interpreter) toConst(v Value) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	}
	return in.str(v)
}

func (in *Interpreter) evalPredicate(n *ast.PredicateExpr) (Value, error) {
	return in.predicate(n.Name, n.Args, logic.NewScope())
}

func (in *Interpreter) goals(nodes []*ast.PredicateExpr, scope *logic.Scope) ([]*logic.Predicate, error) {
	goals := make([]*logic.Predicate, len(nodes))
	for i, g := range nodes {
		p, err := in.predicate(g.Name, g.Args, scope)
		if err != nil {
			return nil, err
		}
		goals[i] = p
	}
	return goals, nil
}

func (in *Interpreter) evalQuery(n *ast.Query) (Value, error) {
	scope := logic.NewScope()
	goals, err := in.goals(n.Goals, scope)
	if err != nil {
		return nil, err
	}
	return in.solve(goals, scope)
}

// solve returns one dict per solution, keys in first-use order.
func (in *Interpreter) solve(goals []*logic.Predicate, scope *logic.Scope) (Value, error) {
	sols, err := in.kb.Query(goals...)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(sols))
	for i, sol := range sols {
		d := NewDict()
		for _, name := range scope.Names() {
			if v, ok := sol[name]; ok {
				d.SetString(name, fromHost(v))
			}
		}
		out[i] = d
	}
	return NewList(out...), nil
}

func (in *Interpreter) execFact(n *ast.FactDecl) (Value, error) {
	p, err := in.predicate(n.Fact.Name, n.Fact.Args, logic.NewScope())
	if err != nil {
		return nil, err
	}
	in.kb.Assertz(p)
	return true, nil
}

func (in *Interpreter) execRule(n *ast.RuleDecl) (Value, error) {
	scope := logic.NewScope()
	head, err := in.predicate(n.Head.Name, n.Head.Args, scope)
	if err != nil {
		return nil, err
	}
	body, err := in.goals(n.Body, scope)
	if err != nil {
		return nil, err
	}
	in.kb.AssertzRule(&logic.Rule{Head: head, Body: body})
	return true, nil
}

// logicCall proves a call with logic-variable arguments.
func (in *Interpreter) logicCall(n *ast.FunctionCall) (Value, error) {
	p, err := in.predicate(n.Name, n.Args, logic.NewScope())
	if err != nil {
		return nil, err
	}
	return in.kb.Prove(p)
}

// asPredicate accepts a predicate value or goal text.
func asPredicate(fn string, v Value) (*logic.Predicate, error) {
	switch x := v.(type) {
	case *logic.Predicate:
		return x, nil
	case string:
		p, _, err := logic.ParseGoal(x)
		return p, err
	}
	return nil, faultf(TypeError, "%s() argument must be a predicate or goal string, not %s", fn, typeName(v))
}

func logicBuiltins() map[string]BuiltinFunc {
	withPredicate := func(name string, f func(kb *logic.KB, p *logic.Predicate) Value) BuiltinFunc {
		return func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			p, err := asPredicate(name, args[0])
			if err != nil {
				return nil, err
			}
			return f(in.kb, p), nil
		}
	}
	return map[string]BuiltinFunc{
		"assertz": withPredicate("assertz", func(kb *logic.KB, p *logic.Predicate) Value {
			kb.Assertz(p)
			return true
		}),
		"asserta": withPredicate("asserta", func(kb *logic.KB, p *logic.Predicate) Value {
			kb.Asserta(p)
			return true
		}),
		"retract": withPredicate("retract", func(kb *logic.KB, p *logic.Predicate) Value {
			return kb.Retract(p)
		}),
		"retractall": withPredicate("retractall", func(kb *logic.KB, p *logic.Predicate) Value {
			return kb.RetractAll(p) > 0
		}),
		"query": func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
			if err := arity("query", args, 1, 1); err != nil {
				return nil, err
			}
			if p, ok := args[0].(*logic.Predicate); ok {
				scope := logic.NewScope()
				for _, a := range p.Args {
					if v, isVar := a.(*logic.Var); isVar {
						scope.Var(v.Name)
					}
				}
				return in.solve([]*logic.Predicate{p}, scope)
			}
			text, err := argString("query", args, 0)
			if err != nil {
				return nil, err
			}
			goals, scope, err := logic.ParseGoals(text)
			if err != nil {
				return nil, err
			}
			return in.solve(goals, scope)
		},
	}
}
