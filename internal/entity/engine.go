// Package entity implements fuzzy entities whose states and properties
// live in [0, 1], actions that change them through sandboxed formulas,
// equations that keep derived keys consistent, and an event log.
//
// Every write is mirrored into a logic.KB so programs can query it:
//
//	entity(Name).
//	state(Entity, Key, Value).
//	property(Entity, Key, Value).
//	changed(Target, Key, Old, New).
//	event(Actor, Action, Target, ActionValue).
//
// state/property facts are replaced on each write, never duplicated.
package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/roach88/bayan/internal/formula"
	"github.com/roach88/bayan/internal/logic"
)

// DefaultValue is read for keys an entity has never set.
const DefaultValue = 0.5

// Kind selects between an entity's two value maps.
type Kind string

const (
	KindState    Kind = "state"
	KindProperty Kind = "property"
)

// ParseKind accepts English and Arabic spellings, singular or plural.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "state", "states", "حالة", "حالات":
		return KindState, nil
	case "property", "properties", "خاصية", "خصائص":
		return KindProperty, nil
	}
	return "", &Error{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("unknown kind %q (want state or property)", s)}
}

// Effect changes one key of the target when an action is applied.
type Effect struct {
	On        string
	Formula   *formula.Formula
	Condition *formula.Formula
}

// Action is something an entity can do to a target.
type Action struct {
	Name    string
	Power   float64
	Effects []Effect
}

// Reaction is how an entity responds to receiving an action.
type Reaction struct {
	Sensitivity float64
	Response    string
}

// Entity is a named bag of fuzzy values with actions and reactions.
type Entity struct {
	Name       string
	States     map[string]float64
	Properties map[string]float64
	Actions    map[string]*Action
	Reactions  map[string]Reaction
}

func newEntity(name string) *Entity {
	return &Entity{
		Name:       name,
		States:     make(map[string]float64),
		Properties: make(map[string]float64),
		Actions:    make(map[string]*Action),
		Reactions:  make(map[string]Reaction),
	}
}

func (ent *Entity) values(kind Kind) map[string]float64 {
	if kind == KindProperty {
		return ent.Properties
	}
	return ent.States
}

// kindOf picks where an effect on key lands: the property map when the
// key exists only there, the state map otherwise.
func (ent *Entity) kindOf(key string) Kind {
	if _, ok := ent.States[key]; ok {
		return KindState
	}
	if _, ok := ent.Properties[key]; ok {
		return KindProperty
	}
	return KindState
}

func (ent *Entity) get(kind Kind, key string) float64 {
	if v, ok := ent.values(kind)[key]; ok {
		return v
	}
	return DefaultValue
}

// Engine owns the entities of one session.
type Engine struct {
	kb             *logic.KB
	entities       map[string]*Entity
	order          []string
	equations      map[string][]*Equation
	events         []Event
	last           []string
	clock          Clock
	rand           func() float64
	maxPropagation int
	quota          *propagationQuota
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock that stamps events.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand sets the source for rand() in formulas.
func WithRand(r func() float64) Option {
	return func(e *Engine) { e.rand = r }
}

// WithMaxPropagation sets how many equation applications one write may
// trigger.
func WithMaxPropagation(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPropagation = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// ErrNoKB is returned by New without a knowledge base.
var ErrNoKB = errors.New("entity engine requires a logical engine")

// New creates an engine mirroring into kb.
func New(kb *logic.KB, opts ...Option) (*Engine, error) {
	if kb == nil {
		return nil, ErrNoKB
	}
	e := &Engine{
		kb:             kb,
		entities:       make(map[string]*Entity),
		equations:      make(map[string][]*Equation),
		clock:          NewLogicalClock(),
		rand:           rand.Float64,
		maxPropagation: DefaultMaxPropagation,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// KB returns the knowledge base the engine writes to.
func (e *Engine) KB() *logic.KB { return e.kb }

// clamp limits v to [0, 1] and rounds to 12 decimals so arithmetic
// noise (0.6-0.4) does not leak into stored facts.
func clamp(v float64) float64 {
	v = formula.Clamp(v, 0, 1)
	return math.Round(v*1e12) / 1e12
}

func (e *Engine) ensure(name string) *Entity {
	if ent, ok := e.entities[name]; ok {
		return ent
	}
	ent := newEntity(name)
	e.entities[name] = ent
	e.order = append(e.order, name)
	e.kb.RetractAll(logic.NewPredicate("entity", name))
	e.kb.Assertz(logic.NewPredicate("entity", name))
	return ent
}

// Entity returns the named entity.
func (e *Engine) Entity(name string) (*Entity, bool) {
	ent, ok := e.entities[name]
	return ent, ok
}

// Names returns entity names in creation order.
func (e *Engine) Names() []string {
	return append([]string(nil), e.order...)
}

// CreateEntity creates (or resets) an entity from spec. Values are
// written in key order so the mirrored facts are deterministic.
func (e *Engine) CreateEntity(name string, spec Spec) error {
	if _, exists := e.entities[name]; exists {
		e.forget(name)
	}
	ent := e.ensure(name)
	for _, k := range sortedKeys(spec.States) {
		if _, err := e.write(ent, KindState, k, spec.States[k]); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(spec.Properties) {
		if _, err := e.write(ent, KindProperty, k, spec.Properties[k]); err != nil {
			return err
		}
	}
	for _, actName := range sortedKeys(spec.Actions) {
		a := spec.Actions[actName]
		if err := e.DefineAction(name, actName, a.Power, a.Effects); err != nil {
			return err
		}
	}
	for _, actName := range sortedKeys(spec.Reactions) {
		r := spec.Reactions[actName]
		ent.Reactions[actName] = Reaction{Sensitivity: formula.Clamp(r.Sensitivity, 0, 1), Response: r.Response}
	}
	e.logger.Debug("entity created", "entity", name,
		"states", len(spec.States), "properties", len(spec.Properties), "actions", len(spec.Actions))
	return nil
}

// forget drops an entity's mirrored facts before it is redefined.
func (e *Engine) forget(name string) {
	ent := e.entities[name]
	for k := range ent.States {
		e.kb.RetractAll(logic.NewPredicate("state", name, k, logic.NewScope().Var("_")))
	}
	for k := range ent.Properties {
		e.kb.RetractAll(logic.NewPredicate("property", name, k, logic.NewScope().Var("_")))
	}
	delete(e.entities, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
}

// GetState returns a state value, or DefaultValue when unset.
func (e *Engine) GetState(name, key string) float64 {
	return e.get(name, KindState, key)
}

// GetProperty returns a property value, or DefaultValue when unset.
func (e *Engine) GetProperty(name, key string) float64 {
	return e.get(name, KindProperty, key)
}

func (e *Engine) get(name string, kind Kind, key string) float64 {
	ent, ok := e.entities[name]
	if !ok {
		return DefaultValue
	}
	return ent.get(kind, key)
}

// SetState clamps and stores a state value and returns what was stored.
func (e *Engine) SetState(name, key string, v float64) (float64, error) {
	return e.Set(name, KindState, key, v)
}

// SetProperty clamps and stores a property value.
func (e *Engine) SetProperty(name, key string, v float64) (float64, error) {
	return e.Set(name, KindProperty, key, v)
}

// Set stores a value of either kind, creating the entity if needed.
func (e *Engine) Set(name string, kind Kind, key string, v float64) (float64, error) {
	return e.write(e.ensure(name), kind, key, v)
}

// write is the single path for value changes: clamp, store, mirror,
// then re-apply equations that read key. Unchanged values stop there.
func (e *Engine) write(ent *Entity, kind Kind, key string, v float64) (float64, error) {
	v = clamp(v)
	m := ent.values(kind)
	old, had := m[key]
	m[key] = v

	pred := string(kind)
	e.kb.RetractAll(logic.NewPredicate(pred, ent.Name, key, logic.NewScope().Var("_")))
	e.kb.Assertz(logic.NewPredicate(pred, ent.Name, key, v))

	if had && old == v {
		return v, nil
	}
	return v, e.propagate(ent, key)
}

// DefineAction gives actor an action. Formulas are parsed up front so
// malformed effects fail at definition.
func (e *Engine) DefineAction(actor, action string, power float64, effects []EffectSpec) error {
	act := &Action{Name: action, Power: formula.Clamp(power, 0, 1)}
	for i, es := range effects {
		if es.On == "" {
			return specError(actor, "action %s effect %d: missing target key", action, i)
		}
		f, err := formula.Parse(es.Formula)
		if err != nil {
			return fmt.Errorf("action %s effect %d: %w", action, i, err)
		}
		eff := Effect{On: es.On, Formula: f}
		if es.Condition != "" {
			c, err := formula.Parse(es.Condition)
			if err != nil {
				return fmt.Errorf("action %s effect %d condition: %w", action, i, err)
			}
			eff.Condition = c
		}
		act.Effects = append(act.Effects, eff)
	}
	e.ensure(actor).Actions[action] = act
	return nil
}

// SetReaction sets how name reacts to receiving action.
func (e *Engine) SetReaction(name, action string, sensitivity float64, response string) {
	e.ensure(name).Reactions[action] = Reaction{Sensitivity: formula.Clamp(sensitivity, 0, 1), Response: response}
}

// ApplyAction runs actor's action against target and returns the new
// value of every key it wrote. The target's reaction sensitivity to the
// action (default 1.0) is exposed to formulas as "sensitivity".
func (e *Engine) ApplyAction(actor, action, target string, actionValue float64) (map[string]float64, error) {
	sensitivity := 1.0
	if tgt, ok := e.entities[target]; ok {
		if r, ok := tgt.Reactions[action]; ok {
			sensitivity = r.Sensitivity
		}
	}
	ev, err := e.apply(actor, action, target, actionValue, sensitivity)
	if err != nil {
		return nil, err
	}
	results := make(map[string]float64, len(ev.Changes))
	for _, c := range ev.Changes {
		results[c.Key] = c.New
	}
	return results, nil
}

func (e *Engine) apply(actor, action, target string, actionValue, sensitivity float64) (*Event, error) {
	var act *Action
	if src, ok := e.entities[actor]; ok {
		act = src.Actions[action]
	}
	if act == nil {
		return nil, &Error{
			Code:    ErrCodeUnknownAction,
			Message: fmt.Sprintf("unknown action %q for actor %q", action, actor),
			Entity:  actor,
		}
	}

	tgt := e.ensure(target)
	ev := Event{Actor: actor, Action: action, Target: target, Value: actionValue, Sensitivity: sensitivity}
	vars := func(value float64) formula.Env {
		return formula.Env{
			Vars: map[string]float64{
				"value":        value,
				"action_value": actionValue,
				"power":        act.Power,
				"sensitivity":  sensitivity,
			},
			Rand: e.rand,
		}
	}

	for _, eff := range act.Effects {
		kind := tgt.kindOf(eff.On)
		old := tgt.get(kind, eff.On)
		if eff.Condition != nil {
			guard, err := eff.Condition.Eval(vars(old))
			if err != nil {
				return nil, err
			}
			if guard == 0 {
				continue
			}
		}
		nv, err := eff.Formula.Eval(vars(old))
		if err != nil {
			return nil, err
		}
		stored, err := e.write(tgt, kind, eff.On, nv)
		if err != nil {
			return nil, err
		}
		e.kb.Assertz(logic.NewPredicate("changed", target, eff.On, old, stored))
		ev.Changes = append(ev.Changes, Change{Key: eff.On, Old: old, New: stored})
	}

	if r, ok := tgt.Reactions[action]; ok && r.Response != "" {
		key, op, expr, err := ParseResponse(r.Response)
		if err != nil {
			return nil, err
		}
		kind := tgt.kindOf(key)
		base := tgt.get(kind, key)
		delta, err := formula.Eval(expr, vars(base))
		if err != nil {
			return nil, err
		}
		if op == "-=" {
			delta = -delta
		}
		stored, err := e.write(tgt, kind, key, base+delta)
		if err != nil {
			return nil, err
		}
		ev.Changes = append(ev.Changes, Change{Key: key, Old: base, New: stored})
	}

	e.kb.Assertz(logic.NewPredicate("event", actor, action, target, actionValue))
	ev.Seq = e.clock.Next()
	e.events = append(e.events, ev)
	e.logger.Debug("action applied", "seq", ev.Seq, "actor", actor, "action", action,
		"target", target, "changes", len(ev.Changes))
	return &e.events[len(e.events)-1], nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
