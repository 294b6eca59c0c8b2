package logic

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Term is a constant or a logic variable.
//
// This is a sealed interface - only Const and *Var implement it.
type Term interface {
	term() // Marker method - seals interface to this package
	String() string
}

// Const is a constant term. Value is one of string (NFC-normalized),
// int64, float64 or bool. Build constants with NewConst.
type Const struct {
	Value any
}

func (Const) term() {}

// NewConst builds a constant from a host value. Strings are normalized
// to NFC so composed and decomposed spellings of the same Arabic text
// unify. Other integer and float widths are widened.
func NewConst(v any) Const {
	switch x := v.(type) {
	case string:
		return Const{Value: norm.NFC.String(x)}
	case int:
		return Const{Value: int64(x)}
	case int32:
		return Const{Value: int64(x)}
	case float32:
		return Const{Value: float64(x)}
	case Const:
		return x
	default:
		return Const{Value: v}
	}
}

func (c Const) String() string {
	return FormatValue(c.Value)
}

// Equal compares constants. Numbers compare by value across int64 and
// float64.
func (c Const) Equal(o Const) bool {
	if a, ok := numeric(c.Value); ok {
		if b, ok := numeric(o.Value); ok {
			return a == b
		}
		return false
	}
	return c.Value == o.Value
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// Var is a logic variable. A bound variable forwards to its binding;
// bindings are only made through Unify so they can be undone.
type Var struct {
	Name string
	ref  Term
}

func (*Var) term() {}

func (v *Var) String() string {
	return "?" + v.Name
}

// Bound reports whether the variable currently has a binding.
func (v *Var) Bound() bool { return v.ref != nil }

// Deref follows variable bindings until reaching a constant or an
// unbound variable.
func Deref(t Term) Term {
	for {
		v, ok := t.(*Var)
		if !ok || v.ref == nil {
			return t
		}
		t = v.ref
	}
}

// IsAnonymous reports whether a variable name is the wildcard "_".
func IsAnonymous(name string) bool {
	return name == "_" || strings.HasPrefix(name, "_G")
}

// Predicate is name(args...).
type Predicate struct {
	Name string
	Args []Term
}

// NewPredicate builds a predicate. Arguments that are not already Terms
// are wrapped as constants.
func NewPredicate(name string, args ...any) *Predicate {
	terms := make([]Term, len(args))
	for i, a := range args {
		if t, ok := a.(Term); ok {
			terms[i] = t
		} else {
			terms[i] = NewConst(a)
		}
	}
	return &Predicate{Name: norm.NFC.String(name), Args: terms}
}

// Key is the predicate indicator name/arity.
func (p *Predicate) Key() string {
	return p.Name + "/" + strconv.Itoa(len(p.Args))
}

// Ground reports whether every argument dereferences to a constant.
func (p *Predicate) Ground() bool {
	for _, a := range p.Args {
		if _, ok := Deref(a).(*Var); ok {
			return false
		}
	}
	return true
}

func (p *Predicate) String() string {
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = Deref(a).String()
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(parts, ", "))
}

// Rule is a Horn clause Head :- Body[0], Body[1], ...
type Rule struct {
	Head *Predicate
	Body []*Predicate
}

func (r *Rule) String() string {
	parts := make([]string, len(r.Body))
	for i, b := range r.Body {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%s :- %s", r.Head, strings.Join(parts, ", "))
}

// Scope hands out one *Var per name so repeated names within a query or
// clause share a binding. Each "_" gets a fresh variable.
type Scope struct {
	vars  map[string]*Var
	order []string
	anon  int
}

// NewScope creates an empty variable scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*Var)}
}

// Var returns the variable for name, creating it on first use.
func (s *Scope) Var(name string) *Var {
	name = strings.TrimPrefix(name, "?")
	if name == "_" {
		s.anon++
		return &Var{Name: fmt.Sprintf("_G%d", s.anon)}
	}
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := &Var{Name: name}
	s.vars[name] = v
	s.order = append(s.order, name)
	return v
}

// Names returns the named variables in order of first use.
func (s *Scope) Names() []string {
	return append([]string(nil), s.order...)
}

// FormatValue renders a constant value the way facts are printed.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "none"
	default:
		return fmt.Sprint(x)
	}
}
