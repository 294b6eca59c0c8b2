package entity

import (
	"fmt"
	"strconv"

	"github.com/roach88/bayan/internal/formula"
)

// Equation keeps Key of one entity equal to Formula evaluated over the
// entity's other values.
type Equation struct {
	Entity  string
	Kind    Kind
	Key     string
	Formula *formula.Formula
}

func (eq *Equation) String() string {
	return fmt.Sprintf("%s.%s = %s", eq.Entity, eq.Key, eq.Formula)
}

// DefineEquation registers an equation and applies it once so the
// target is consistent from the start.
func (e *Engine) DefineEquation(name string, kind Kind, key, src string) (*Equation, error) {
	f, err := formula.Parse(src)
	if err != nil {
		return nil, err
	}
	ent := e.ensure(name)
	eq := &Equation{Entity: name, Kind: kind, Key: key, Formula: f}
	e.equations[name] = append(e.equations[name], eq)
	e.logger.Debug("equation defined", "equation", eq.String())

	if err := e.withQuota(func() error { return e.evaluate(ent, eq) }); err != nil {
		return nil, err
	}
	return eq, nil
}

// DefineOpposites ties a and b so that a + b = total.
func (e *Engine) DefineOpposites(name string, kind Kind, a, b string, total float64) error {
	tot := strconv.FormatFloat(total, 'f', -1, 64)
	if _, err := e.DefineEquation(name, kind, b, tot+" - "+a); err != nil {
		return err
	}
	_, err := e.DefineEquation(name, kind, a, tot+" - "+b)
	return err
}

// Equations returns the equations registered on an entity.
func (e *Engine) Equations(name string) []*Equation {
	return append([]*Equation(nil), e.equations[name]...)
}

// propagate re-applies every equation of ent that reads key.
func (e *Engine) propagate(ent *Entity, key string) error {
	eqs := e.equations[ent.Name]
	if len(eqs) == 0 {
		return nil
	}
	return e.withQuota(func() error {
		for _, eq := range eqs {
			if eq.Key == key || !eq.Formula.References(key) {
				continue
			}
			if err := e.quota.check(ent.Name, eq.Key); err != nil {
				return err
			}
			if err := e.evaluate(ent, eq); err != nil {
				return err
			}
		}
		return nil
	})
}

// withQuota runs fn under the current cascade's quota, opening a new one
// when called from a top-level write.
func (e *Engine) withQuota(fn func() error) error {
	if e.quota != nil {
		return fn()
	}
	e.quota = newPropagationQuota(e.maxPropagation)
	defer func() { e.quota = nil }()
	return fn()
}

func (e *Engine) evaluate(ent *Entity, eq *Equation) error {
	vars := make(map[string]float64)
	other := KindProperty
	if eq.Kind == KindProperty {
		other = KindState
	}
	for _, id := range eq.Formula.Identifiers() {
		if v, ok := ent.values(eq.Kind)[id]; ok {
			vars[id] = v
		} else if v, ok := ent.values(other)[id]; ok {
			vars[id] = v
		} else {
			vars[id] = DefaultValue
		}
	}
	v, err := eq.Formula.Eval(formula.Env{Vars: vars, Rand: e.rand})
	if err != nil {
		return err
	}
	_, err = e.write(ent, eq.Kind, eq.Key, v)
	return err
}
