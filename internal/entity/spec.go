package entity

import "fmt"

// Spec describes an entity to create.
type Spec struct {
	States     map[string]float64
	Properties map[string]float64
	Actions    map[string]ActionSpec
	Reactions  map[string]ReactionSpec
}

// ActionSpec describes one action before its formulas are parsed.
type ActionSpec struct {
	Power   float64
	Effects []EffectSpec
}

// EffectSpec is an unparsed Effect.
type EffectSpec struct {
	On        string
	Formula   string
	Condition string
}

// ReactionSpec is an unparsed Reaction.
type ReactionSpec struct {
	Sensitivity float64
	Response    string
}

// Keys accepted in entity definitions. Each concept has an English and
// an Arabic spelling.
var specKeys = map[string][]string{
	"states":      {"states", "حالات"},
	"properties":  {"properties", "خصائص"},
	"actions":     {"actions", "أفعال"},
	"reactions":   {"reactions", "ردود_أفعال"},
	"power":       {"power", "قوة"},
	"effects":     {"effects", "تأثيرات"},
	"on":          {"on", "على"},
	"formula":     {"formula", "صيغة"},
	"condition":   {"condition", "شرط"},
	"sensitivity": {"sensitivity", "حساسية"},
	"response":    {"response", "استجابة"},
	"type":        {"type", "نوع"},
	"value":       {"value", "قيمة"},
}

func lookup(m map[string]any, key string) (any, bool) {
	for _, k := range specKeys[key] {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// DecodeSpec reads a loosely typed entity definition, as produced by
// the interpreter's dict literals or a decoded world file. A value in
// states or properties is either a number or {type, value}; a type of
// state or property overrides the section it appeared in.
func DecodeSpec(name string, m map[string]any) (Spec, error) {
	spec := Spec{
		States:     map[string]float64{},
		Properties: map[string]float64{},
		Actions:    map[string]ActionSpec{},
		Reactions:  map[string]ReactionSpec{},
	}

	for _, section := range []Kind{KindState, KindProperty} {
		key := "states"
		if section == KindProperty {
			key = "properties"
		}
		raw, ok := lookup(m, key)
		if !ok {
			continue
		}
		vals, err := asMap(name, key, raw)
		if err != nil {
			return spec, err
		}
		for _, k := range sortedKeys(vals) {
			kind, v, err := decodeValue(name, section, k, vals[k])
			if err != nil {
				return spec, err
			}
			if kind == KindProperty {
				spec.Properties[k] = v
			} else {
				spec.States[k] = v
			}
		}
	}

	if raw, ok := lookup(m, "actions"); ok {
		acts, err := asMap(name, "actions", raw)
		if err != nil {
			return spec, err
		}
		for actName, a := range acts {
			act, err := decodeAction(name, actName, a)
			if err != nil {
				return spec, err
			}
			spec.Actions[actName] = act
		}
	}

	if raw, ok := lookup(m, "reactions"); ok {
		reacts, err := asMap(name, "reactions", raw)
		if err != nil {
			return spec, err
		}
		for actName, r := range reacts {
			rm, err := asMap(name, "reaction "+actName, r)
			if err != nil {
				return spec, err
			}
			rs := ReactionSpec{Sensitivity: 1.0}
			if v, ok := lookup(rm, "sensitivity"); ok {
				if rs.Sensitivity, err = asNumber(name, "sensitivity", v); err != nil {
					return spec, err
				}
			}
			if v, ok := lookup(rm, "response"); ok {
				s, ok := v.(string)
				if !ok {
					return spec, specError(name, "reaction %s: response must be a string", actName)
				}
				rs.Response = s
			}
			spec.Reactions[actName] = rs
		}
	}
	return spec, nil
}

func decodeValue(name string, section Kind, key string, raw any) (Kind, float64, error) {
	if vm, ok := raw.(map[string]any); ok {
		kind := section
		// Other type names ("numeric", "عددي") describe the value only.
		if t, ok := lookup(vm, "type"); ok {
			if s, ok := t.(string); ok {
				if k, err := ParseKind(s); err == nil {
					kind = k
				}
			}
		}
		v, ok := lookup(vm, "value")
		if !ok {
			return kind, DefaultValue, nil
		}
		n, err := asNumber(name, key, v)
		return kind, n, err
	}
	n, err := asNumber(name, key, raw)
	return section, n, err
}

func decodeAction(name, actName string, raw any) (ActionSpec, error) {
	am, err := asMap(name, "action "+actName, raw)
	if err != nil {
		return ActionSpec{}, err
	}
	act := ActionSpec{Power: 1.0}
	if v, ok := lookup(am, "power"); ok {
		if act.Power, err = asNumber(name, "power", v); err != nil {
			return act, err
		}
	}
	effs, ok := lookup(am, "effects")
	if !ok {
		return act, nil
	}
	list, ok := effs.([]any)
	if !ok {
		return act, specError(name, "action %s: effects must be a list", actName)
	}
	for i, item := range list {
		em, err := asMap(name, fmt.Sprintf("action %s effect %d", actName, i), item)
		if err != nil {
			return act, err
		}
		var es EffectSpec
		if v, ok := lookup(em, "on"); ok {
			es.On, _ = v.(string)
		}
		if v, ok := lookup(em, "formula"); ok {
			es.Formula, _ = v.(string)
		}
		if v, ok := lookup(em, "condition"); ok {
			es.Condition, _ = v.(string)
		}
		if es.On == "" || es.Formula == "" {
			return act, specError(name, "action %s effect %d: on and formula are required", actName, i)
		}
		act.Effects = append(act.Effects, es)
	}
	return act, nil
}

func asMap(name, what string, raw any) (map[string]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, specError(name, "%s must be a mapping, got %T", what, raw)
	}
	return m, nil
}

func asNumber(name, what string, raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, specError(name, "%s must be a number, got %T", what, raw)
}
