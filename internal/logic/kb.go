package logic

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// DefaultMaxDepth bounds nested rule expansions per proof branch.
const DefaultMaxDepth = 4096

// DepthExceededError is returned when a proof nests rule expansions
// beyond the configured limit, usually because of left recursion.
type DepthExceededError struct {
	Goal  string
	Limit int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("proof depth exceeded %d while solving %s", e.Limit, e.Goal)
}

// FaultKind names the error for the interpreter's fault reporting.
func (e *DepthExceededError) FaultKind() string { return "RecursionError" }

// IsDepthExceededError returns true if err is a DepthExceededError.
func IsDepthExceededError(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}

// Solution maps query variable names (without "?") to constant values.
// Variables left unbound by a proof are absent.
type Solution map[string]any

// Trail records variable bindings so they can be undone in exact reverse
// order on backtracking.
type Trail struct {
	bound []*Var
}

// Mark returns the current trail position.
func (t *Trail) Mark() int { return len(t.bound) }

// Undo unbinds every variable bound since mark, newest first.
func (t *Trail) Undo(mark int) {
	for i := len(t.bound) - 1; i >= mark; i-- {
		t.bound[i].ref = nil
	}
	t.bound = t.bound[:mark]
}

// Len returns the number of live bindings.
func (t *Trail) Len() int { return len(t.bound) }

func (t *Trail) bind(v *Var, to Term) {
	v.ref = to
	t.bound = append(t.bound, v)
}

// Unify makes a and b equal, recording new bindings on the trail.
// On failure the caller must Undo to its mark.
func Unify(a, b Term, trail *Trail) bool {
	a, b = Deref(a), Deref(b)
	va, aVar := a.(*Var)
	vb, bVar := b.(*Var)
	switch {
	case aVar && bVar && va == vb:
		return true
	case aVar:
		trail.bind(va, b)
		return true
	case bVar:
		trail.bind(vb, a)
		return true
	}
	return a.(Const).Equal(b.(Const))
}

func unifyArgs(a, b *Predicate, trail *Trail) bool {
	if a.Name != b.Name || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Unify(a.Args[i], b.Args[i], trail) {
			return false
		}
	}
	return true
}

type bucket struct {
	facts []*Predicate
	rules []*Rule
}

// KB is a fact and rule store with SLD resolution.
//
// Clauses are bucketed by name/arity. Within a bucket, facts are tried
// before rules, each in assertion order: assertz appends and asserta
// prepends. KB is not safe for concurrent use.
type KB struct {
	buckets  map[string]*bucket
	order    []string
	maxDepth int
	renames  int
	logger   *slog.Logger
}

// Option configures a KB.
type Option func(*KB)

// WithMaxDepth sets the rule-expansion depth limit.
func WithMaxDepth(n int) Option {
	return func(kb *KB) {
		if n > 0 {
			kb.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for debug tracing of KB mutations.
func WithLogger(l *slog.Logger) Option {
	return func(kb *KB) {
		if l != nil {
			kb.logger = l
		}
	}
}

// NewKB creates an empty knowledge base.
func NewKB(opts ...Option) *KB {
	kb := &KB{
		buckets:  make(map[string]*bucket),
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb
}

func (kb *KB) bucket(key string) *bucket {
	b, ok := kb.buckets[key]
	if !ok {
		b = &bucket{}
		kb.buckets[key] = b
		kb.order = append(kb.order, key)
	}
	return b
}

// Assertz appends a fact.
func (kb *KB) Assertz(p *Predicate) {
	b := kb.bucket(p.Key())
	b.facts = append(b.facts, snapshot(p))
	kb.logger.Debug("assertz", "fact", p.String())
}

// Asserta prepends a fact.
func (kb *KB) Asserta(p *Predicate) {
	b := kb.bucket(p.Key())
	b.facts = append([]*Predicate{snapshot(p)}, b.facts...)
	kb.logger.Debug("asserta", "fact", p.String())
}

// AssertzRule appends a rule.
func (kb *KB) AssertzRule(r *Rule) {
	b := kb.bucket(r.Head.Key())
	b.rules = append(b.rules, r)
	kb.logger.Debug("assertz", "rule", r.String())
}

// AssertaRule prepends a rule.
func (kb *KB) AssertaRule(r *Rule) {
	b := kb.bucket(r.Head.Key())
	b.rules = append([]*Rule{r}, b.rules...)
	kb.logger.Debug("asserta", "rule", r.String())
}

// Retract removes the first fact unifying with pattern. Unbound
// variables in the pattern act as wildcards and stay unbound.
func (kb *KB) Retract(pattern *Predicate) bool {
	b, ok := kb.buckets[pattern.Key()]
	if !ok {
		return false
	}
	var trail Trail
	for i, f := range b.facts {
		matched := unifyArgs(pattern, f, &trail)
		trail.Undo(0)
		if matched {
			b.facts = append(b.facts[:i:i], b.facts[i+1:]...)
			kb.logger.Debug("retract", "fact", f.String())
			return true
		}
	}
	return false
}

// RetractAll removes every fact unifying with pattern and returns how
// many were removed.
func (kb *KB) RetractAll(pattern *Predicate) int {
	b, ok := kb.buckets[pattern.Key()]
	if !ok {
		return 0
	}
	var trail Trail
	kept := make([]*Predicate, 0, len(b.facts))
	removed := 0
	for _, f := range b.facts {
		matched := unifyArgs(pattern, f, &trail)
		trail.Undo(0)
		if matched {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	b.facts = kept
	if removed > 0 {
		kb.logger.Debug("retractall", "pattern", pattern.String(), "removed", removed)
	}
	return removed
}

// Facts returns every stored fact, grouped by predicate in first-assert
// order and in resolution order within each predicate.
func (kb *KB) Facts() []*Predicate {
	var out []*Predicate
	for _, key := range kb.order {
		out = append(out, kb.buckets[key].facts...)
	}
	if out == nil {
		return []*Predicate{}
	}
	return out
}

// Rules returns every stored rule in the same order as Facts.
func (kb *KB) Rules() []*Rule {
	var out []*Rule
	for _, key := range kb.order {
		out = append(out, kb.buckets[key].rules...)
	}
	if out == nil {
		return []*Rule{}
	}
	return out
}

// Query proves the goals as a conjunction and returns every solution.
// Solutions bind the variables appearing in the goals. An empty result
// means no proof; the only error is DepthExceededError.
func (kb *KB) Query(goals ...*Predicate) ([]Solution, error) {
	vars := queryVars(goals)
	var trail Trail
	solutions := []Solution{}
	err := kb.solve(goals, 0, &trail, func() bool {
		sol := Solution{}
		for _, v := range vars {
			if c, ok := Deref(v).(Const); ok {
				sol[v.Name] = c.Value
			}
		}
		solutions = append(solutions, sol)
		return true
	})
	trail.Undo(0)
	if err != nil {
		return nil, err
	}
	return solutions, nil
}

// Prove reports whether the goals have at least one proof.
func (kb *KB) Prove(goals ...*Predicate) (bool, error) {
	var trail Trail
	found := false
	err := kb.solve(goals, 0, &trail, func() bool {
		found = true
		return false
	})
	trail.Undo(0)
	return found, err
}

// solve resolves goals left to right. yield is called once per proof
// with the bindings live; returning false stops the search.
func (kb *KB) solve(goals []*Predicate, depth int, trail *Trail, yield func() bool) error {
	_, err := kb.solveGoals(goals, depth, trail, yield)
	return err
}

func (kb *KB) solveGoals(goals []*Predicate, depth int, trail *Trail, yield func() bool) (bool, error) {
	if len(goals) == 0 {
		return yield(), nil
	}
	goal, rest := goals[0], goals[1:]
	b, ok := kb.buckets[goal.Key()]
	if !ok {
		return true, nil
	}

	// Snapshot so assert/retract during a proof does not disturb iteration.
	facts := append([]*Predicate(nil), b.facts...)
	rules := append([]*Rule(nil), b.rules...)

	for _, f := range facts {
		if hasVars(f) {
			f = kb.renamer().pred(f)
		}
		mark := trail.Mark()
		if unifyArgs(goal, f, trail) {
			cont, err := kb.solveGoals(rest, depth, trail, yield)
			if err != nil || !cont {
				trail.Undo(mark)
				return cont, err
			}
		}
		trail.Undo(mark)
	}

	for _, r := range rules {
		if depth >= kb.maxDepth {
			return false, &DepthExceededError{Goal: goal.String(), Limit: kb.maxDepth}
		}
		head, body := kb.rename(r)
		mark := trail.Mark()
		if unifyArgs(goal, head, trail) {
			next := make([]*Predicate, 0, len(body)+len(rest))
			next = append(next, body...)
			next = append(next, rest...)
			cont, err := kb.solveGoals(next, depth+1, trail, yield)
			if err != nil || !cont {
				trail.Undo(mark)
				return cont, err
			}
		}
		trail.Undo(mark)
	}
	return true, nil
}

// rename copies a rule with fresh variables so each use is independent.
func (kb *KB) rename(r *Rule) (*Predicate, []*Predicate) {
	rn := kb.renamer()
	head := rn.pred(r.Head)
	body := make([]*Predicate, len(r.Body))
	for i, b := range r.Body {
		body[i] = rn.pred(b)
	}
	return head, body
}

type renamer struct {
	suffix string
	fresh  map[*Var]*Var
}

func (kb *KB) renamer() *renamer {
	kb.renames++
	return &renamer{suffix: "#" + strconv.Itoa(kb.renames), fresh: make(map[*Var]*Var)}
}

func (rn *renamer) pred(p *Predicate) *Predicate {
	args := make([]Term, len(p.Args))
	for i, a := range p.Args {
		v, ok := a.(*Var)
		if !ok {
			args[i] = a
			continue
		}
		nv, seen := rn.fresh[v]
		if !seen {
			nv = &Var{Name: v.Name + rn.suffix}
			rn.fresh[v] = nv
		}
		args[i] = nv
	}
	return &Predicate{Name: p.Name, Args: args}
}

func hasVars(p *Predicate) bool {
	for _, a := range p.Args {
		if _, ok := a.(*Var); ok {
			return true
		}
	}
	return false
}

// snapshot stores a fact with its current bindings resolved, so later
// backtracking cannot change stored facts.
func snapshot(p *Predicate) *Predicate {
	args := make([]Term, len(p.Args))
	fresh := make(map[*Var]*Var)
	for i, a := range p.Args {
		d := Deref(a)
		v, ok := d.(*Var)
		if !ok {
			args[i] = d
			continue
		}
		if _, seen := fresh[v]; !seen {
			fresh[v] = &Var{Name: v.Name}
		}
		args[i] = fresh[v]
	}
	return &Predicate{Name: p.Name, Args: args}
}

func queryVars(goals []*Predicate) []*Var {
	seen := make(map[*Var]bool)
	var vars []*Var
	for _, g := range goals {
		for _, a := range g.Args {
			v, ok := a.(*Var)
			if !ok || seen[v] || IsAnonymous(v.Name) {
				continue
			}
			seen[v] = true
			vars = append(vars, v)
		}
	}
	return vars
}
