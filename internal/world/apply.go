package world

import (
	"fmt"

	"github.com/roach88/bayan/internal/entity"
)

// BindOperator makes an operator callable in a session.
type BindOperator func(name, action string)

// Apply creates the world's entities on eng, then defines its equations
// and opposites, then binds its operators. Equations run once when
// defined, so they see the declared entity values.
func (w *World) Apply(eng *entity.Engine, bind BindOperator) error {
	for _, e := range w.Entities {
		if err := eng.CreateEntity(e.Name, e.Spec); err != nil {
			return fmt.Errorf("world: entity %s: %w", e.Name, err)
		}
	}
	for _, eq := range w.Equations {
		if _, err := eng.DefineEquation(eq.Entity, eq.Kind, eq.Key, eq.Formula); err != nil {
			return fmt.Errorf("world: equation %s.%s: %w", eq.Entity, eq.Key, err)
		}
	}
	for _, op := range w.Opposites {
		if err := eng.DefineOpposites(op.Entity, op.Kind, op.A, op.B, op.Total); err != nil {
			return fmt.Errorf("world: opposites %s.%s/%s: %w", op.Entity, op.A, op.B, err)
		}
	}
	if bind != nil {
		for _, op := range w.Operators {
			bind(op.Name, op.Action)
		}
	}
	return nil
}
