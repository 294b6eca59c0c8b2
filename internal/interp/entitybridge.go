package interp

import (
	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/entity"
)

// Operators bound in every session: calling one performs its action
// over a participant list.
var defaultOperators = map[string]string{
	"Go":   "go",
	"اذهب": "اذهب",
}

// Arabic spellings of the builtins.
var arabicAliases = map[string]string{
	"أنشئ_كيان":   "create_entity",
	"عين_حالة":    "set_state",
	"اقرأ_حالة":   "get_state",
	"عين_خاصية":   "set_property",
	"اقرأ_خاصية":  "get_property",
	"عرّف_فعل":    "define_action",
	"عين_رد_فعل":  "set_reaction",
	"طبق_فعل":     "apply_action",
	"عرّف_معادلة": "define_equation",
	"عرّف_متضادين": "define_opposites",
	"نفّذ":        "perform",
	"عرّف_مشغل":   "define_operator",
	"الأحداث":     "events",
	"آخر_المشاركين": "last_participants",
}

// arg returns parameter i, given positionally or by name.
func arg(args []Value, kwargs Kwargs, i int, name string) (Value, bool) {
	if i < len(args) {
		return args[i], true
	}
	return kwargs.Get(name)
}

func stringArg(fn string, args []Value, kwargs Kwargs, i int, name string) (string, error) {
	v, ok := arg(args, kwargs, i, name)
	if !ok {
		return "", faultf(TypeError, "%s() missing required argument: '%s'", fn, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", faultf(TypeError, "%s() argument '%s' must be str, not %s", fn, name, typeName(v))
	}
	return s, nil
}

func numberArg(fn string, args []Value, kwargs Kwargs, i int, name string, def float64) (float64, error) {
	v, ok := arg(args, kwargs, i, name)
	if !ok || v == nil {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, faultf(TypeError, "%s() argument '%s' must be a number, not %s", fn, name, typeName(v))
	}
	return f, nil
}

func kindArg(fn string, args []Value, kwargs Kwargs, i int) (entity.Kind, error) {
	s, err := stringArg(fn, args, kwargs, i, "kind")
	if err != nil {
		return "", err
	}
	return entity.ParseKind(s)
}

func eventValue(ev entity.Event) Value {
	changes := make([]Value, len(ev.Changes))
	for i, c := range ev.Changes {
		changes[i] = NewDict().SetString("key", c.Key).SetString("old", c.Old).SetString("new", c.New)
	}
	return NewDict().
		SetString("seq", ev.Seq).
		SetString("actor", ev.Actor).
		SetString("action", ev.Action).
		SetString("target", ev.Target).
		SetString("value", ev.Value).
		SetString("sensitivity", ev.Sensitivity).
		SetString("changes", NewList(changes...))
}

func eventList(events []entity.Event) Value {
	out := make([]Value, len(events))
	for i, ev := range events {
		out[i] = eventValue(ev)
	}
	return NewList(out...)
}

// operator returns a callable that performs action over the participant
// list given as its first argument.
func (in *Interpreter) operator(name, action string) *Builtin {
	return NewBuiltin(name, func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
		return performCall(in, name, action, args, kwargs)
	})
}

// DefineOperator binds name as a global that performs action over its
// participant list.
func (in *Interpreter) DefineOperator(name, action string) *Builtin {
	op := in.operator(name, action)
	in.globals[name] = op
	return op
}

func performCall(in *Interpreter, fn, action string, args []Value, kwargs Kwargs) (Value, error) {
	raw, ok := arg(args, kwargs, 0, "participants")
	if !ok {
		return nil, faultf(TypeError, "%s() missing required argument: 'participants'", fn)
	}
	var participants []string
	if s, isStr := raw.(string); isStr {
		participants = []string{s}
	} else {
		items, err := in.collect(raw)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			s, err := in.str(it)
			if err != nil {
				return nil, err
			}
			participants = append(participants, s)
		}
	}
	value := 1.0
	for _, k := range []string{"value", "action_value", "قيمة"} {
		if v, found := kwargs.Get(k); found {
			f, ok := toFloat(v)
			if !ok {
				return nil, faultf(TypeError, "%s() argument '%s' must be a number, not %s", fn, k, typeName(v))
			}
			value = f
		}
	}
	if len(args) > 1 {
		f, ok := toFloat(args[1])
		if !ok {
			return nil, faultf(TypeError, "%s() argument 'value' must be a number, not %s", fn, typeName(args[1]))
		}
		value = f
	}
	events, err := in.entities.Perform(action, participants, value)
	if err != nil {
		return nil, err
	}
	return eventList(events), nil
}

func entityBuiltins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"create_entity": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, err := stringArg("create_entity", args, kwargs, 0, "name")
			if err != nil {
				return nil, err
			}
			spec := map[string]any{}
			if v, ok := arg(args, kwargs, 1, "spec"); ok && v != nil {
				m, isMap := toHost(v).(map[string]any)
				if !isMap {
					return nil, faultf(TypeError, "create_entity() spec must be a dict, not %s", typeName(v))
				}
				spec = m
			}
			for _, k := range kwargs {
				if k.Name != "name" && k.Name != "spec" {
					spec[k.Name] = toHost(k.Value)
				}
			}
			return name, in.createEntity(name, spec)
		},
		"get_state": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, key, err := nameKey("get_state", args, kwargs)
			if err != nil {
				return nil, err
			}
			return in.entities.GetState(name, key), nil
		},
		"get_property": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, key, err := nameKey("get_property", args, kwargs)
			if err != nil {
				return nil, err
			}
			return in.entities.GetProperty(name, key), nil
		},
		"set_state":    setter("set_state", entity.KindState),
		"set_property": setter("set_property", entity.KindProperty),
		"define_action": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			actor, err := stringArg("define_action", args, kwargs, 0, "actor")
			if err != nil {
				return nil, err
			}
			action, err := stringArg("define_action", args, kwargs, 1, "action")
			if err != nil {
				return nil, err
			}
			power, err := numberArg("define_action", args, kwargs, 2, "power", 1.0)
			if err != nil {
				return nil, err
			}
			raw := map[string]any{"power": power}
			if v, ok := arg(args, kwargs, 3, "effects"); ok {
				raw["effects"] = toHost(v)
			}
			spec, err := entity.DecodeSpec(actor, map[string]any{"actions": map[string]any{action: raw}})
			if err != nil {
				return nil, err
			}
			act := spec.Actions[action]
			return nil, in.entities.DefineAction(actor, action, act.Power, act.Effects)
		},
		"set_reaction": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, err := stringArg("set_reaction", args, kwargs, 0, "name")
			if err != nil {
				return nil, err
			}
			action, err := stringArg("set_reaction", args, kwargs, 1, "action")
			if err != nil {
				return nil, err
			}
			sens, err := numberArg("set_reaction", args, kwargs, 2, "sensitivity", 1.0)
			if err != nil {
				return nil, err
			}
			var resp string
			if _, ok := arg(args, kwargs, 3, "response"); ok {
				if resp, err = stringArg("set_reaction", args, kwargs, 3, "response"); err != nil {
					return nil, err
				}
				if _, _, _, err := entity.ParseResponse(resp); err != nil {
					return nil, err
				}
			}
			in.entities.SetReaction(name, action, sens, resp)
			return nil, nil
		},
		"apply_action": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			var names [3]string
			for i, p := range []string{"actor", "action", "target"} {
				s, err := stringArg("apply_action", args, kwargs, i, p)
				if err != nil {
					return nil, err
				}
				names[i] = s
			}
			value, err := numberArg("apply_action", args, kwargs, 3, "action_value", 1.0)
			if err != nil {
				return nil, err
			}
			return in.applyAction(names[0], names[1], names[2], value)
		},
		"define_equation": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, err := stringArg("define_equation", args, kwargs, 0, "name")
			if err != nil {
				return nil, err
			}
			kind, err := kindArg("define_equation", args, kwargs, 1)
			if err != nil {
				return nil, err
			}
			key, err := stringArg("define_equation", args, kwargs, 2, "key")
			if err != nil {
				return nil, err
			}
			src, err := stringArg("define_equation", args, kwargs, 3, "formula")
			if err != nil {
				return nil, err
			}
			eq, err := in.entities.DefineEquation(name, kind, key, src)
			if err != nil {
				return nil, err
			}
			return eq.String(), nil
		},
		"define_opposites": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, err := stringArg("define_opposites", args, kwargs, 0, "name")
			if err != nil {
				return nil, err
			}
			kind, err := kindArg("define_opposites", args, kwargs, 1)
			if err != nil {
				return nil, err
			}
			a, err := stringArg("define_opposites", args, kwargs, 2, "a")
			if err != nil {
				return nil, err
			}
			b, err := stringArg("define_opposites", args, kwargs, 3, "b")
			if err != nil {
				return nil, err
			}
			total, err := numberArg("define_opposites", args, kwargs, 4, "total", 1.0)
			if err != nil {
				return nil, err
			}
			return nil, in.entities.DefineOpposites(name, kind, a, b, total)
		},
		"perform": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			action, err := stringArg("perform", args, kwargs, 0, "action")
			if err != nil {
				return nil, err
			}
			rest := args
			if len(rest) > 0 {
				rest = rest[1:]
			}
			return performCall(in, "perform", action, rest, kwargs)
		},
		"define_operator": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			name, err := stringArg("define_operator", args, kwargs, 0, "name")
			if err != nil {
				return nil, err
			}
			action, err := stringArg("define_operator", args, kwargs, 1, "action")
			if err != nil {
				return nil, err
			}
			return in.DefineOperator(name, action), nil
		},
		"events": func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			var f entity.EventFilter
			for i, p := range []*string{&f.Actor, &f.Action, &f.Target} {
				v, ok := arg(args, kwargs, i, [...]string{"actor", "action", "target"}[i])
				if !ok || v == nil {
					continue
				}
				s, isStr := v.(string)
				if !isStr {
					return nil, faultf(TypeError, "events() filters must be str, not %s", typeName(v))
				}
				*p = s
			}
			return eventList(in.entities.Events(f)), nil
		},
		"last_participants": func(in *Interpreter, _ []Value, _ Kwargs) (Value, error) {
			return fromHost(in.entities.LastParticipants()), nil
		},
		"EntityEngine": func(in *Interpreter, _ []Value, _ Kwargs) (Value, error) {
			return &engineObject{in: in}, nil
		},
	}
}

func nameKey(fn string, args []Value, kwargs Kwargs) (string, string, error) {
	name, err := stringArg(fn, args, kwargs, 0, "name")
	if err != nil {
		return "", "", err
	}
	key, err := stringArg(fn, args, kwargs, 1, "key")
	return name, key, err
}

func setter(fn string, kind entity.Kind) BuiltinFunc {
	return func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
		name, key, err := nameKey(fn, args, kwargs)
		if err != nil {
			return nil, err
		}
		if _, ok := arg(args, kwargs, 2, "value"); !ok {
			return nil, faultf(TypeError, "%s() missing required argument: 'value'", fn)
		}
		v, err := numberArg(fn, args, kwargs, 2, "value", 0)
		if err != nil {
			return nil, err
		}
		return in.entities.Set(name, kind, key, v)
	}
}

// engineObject exposes the session's entity engine as an object, so
// programs can write engine.apply_action(...).
type engineObject struct {
	in *Interpreter
}

func (e *engineObject) Attr(name string) (Value, bool) {
	if _, ok := entityBuiltinNames[name]; !ok {
		return nil, false
	}
	b, ok := e.in.builtins[name]
	return b, ok
}

func (e *engineObject) String() string { return "<EntityEngine>" }

var entityBuiltinNames = map[string]struct{}{
	"create_entity": {}, "get_state": {}, "get_property": {}, "set_state": {},
	"set_property": {}, "define_action": {}, "set_reaction": {}, "apply_action": {},
	"define_equation": {}, "define_opposites": {}, "perform": {}, "define_operator": {},
	"events": {}, "last_participants": {},
}

func (in *Interpreter) createEntity(name string, raw map[string]any) error {
	spec, err := entity.DecodeSpec(name, raw)
	if err != nil {
		return err
	}
	return in.entities.CreateEntity(name, spec)
}

func (in *Interpreter) applyAction(actor, action, target string, value float64) (Value, error) {
	res, err := in.entities.ApplyAction(actor, action, target, value)
	if err != nil {
		return nil, err
	}
	return fromHost(res), nil
}

func (in *Interpreter) execEntityDecl(n *ast.EntityDecl) (Value, error) {
	raw := map[string]any{}
	if n.Spec != nil {
		v, err := in.eval(n.Spec)
		if err != nil {
			return nil, err
		}
		m, ok := toHost(v).(map[string]any)
		if !ok {
			return nil, faultf(TypeError, "entity %s: definition must be a dict, not %s", n.Name, typeName(v))
		}
		raw = m
	}
	return n.Name, in.createEntity(n.Name, raw)
}

func (in *Interpreter) execApplyAction(n *ast.ApplyAction) (Value, error) {
	value := 1.0
	if n.Value != nil {
		v, err := in.eval(n.Value)
		if err != nil {
			return nil, err
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, faultf(TypeError, "action_value must be a number, not %s", typeName(v))
		}
		value = f
	}
	return in.applyAction(n.Actor, n.Action, n.Target, value)
}
