package object

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Built-in root classes registered in every Registry.
const (
	BaseExceptionClass = "BaseException"
	ExceptionClass     = "Exception"
)

// HierarchyError reports an unusable class definition: an unknown base
// or a hierarchy with no consistent linearization.
type HierarchyError struct {
	Class   string
	Message string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("class %s: %s", e.Class, e.Message)
}

// FaultKind names the error for the interpreter's fault reporting.
func (e *HierarchyError) FaultKind() string { return "TypeError" }

// IsHierarchyError returns true if err is a HierarchyError.
func IsHierarchyError(err error) bool {
	var he *HierarchyError
	return errors.As(err, &he)
}

// Registry holds the classes of one interpreter session.
type Registry struct {
	classes map[string]*Class
}

// NewRegistry creates a registry with the built-in exception roots.
func NewRegistry() *Registry {
	r := &Registry{classes: make(map[string]*Class)}
	// Roots have no bases, so these cannot fail.
	_, _ = r.Define(BaseExceptionClass, nil, nil)
	_, _ = r.Define(ExceptionClass, []string{BaseExceptionClass}, nil)
	return r
}

// Define registers (or replaces) a class and computes its MRO.
// Bases must already be registered.
func (r *Registry) Define(name string, baseNames []string, members map[string]any) (*Class, error) {
	bases := make([]*Class, 0, len(baseNames))
	for _, bn := range baseNames {
		b, ok := r.classes[bn]
		if !ok {
			return nil, &HierarchyError{Class: name, Message: fmt.Sprintf("unknown base class %q", bn)}
		}
		bases = append(bases, b)
	}
	if members == nil {
		members = make(map[string]any)
	}
	c := &Class{Name: name, Bases: bases, Members: members}
	mro, err := linearize(c)
	if err != nil {
		return nil, err
	}
	c.MRO = mro
	r.classes[name] = c
	return c, nil
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// IsSubclass reports whether class name derives from ancestor (or is it).
// Unknown classes are never subclasses.
func (r *Registry) IsSubclass(name, ancestor string) bool {
	c, ok := r.classes[name]
	if !ok {
		return false
	}
	return c.IsSubclassOf(ancestor)
}

// Names returns registered class names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// linearize computes the C3 linearization of c:
//
//	L[C] = C + merge(L[B1], ..., L[Bn], [B1, ..., Bn])
func linearize(c *Class) ([]*Class, error) {
	seqs := make([][]*Class, 0, len(c.Bases)+1)
	for _, b := range c.Bases {
		seqs = append(seqs, append([]*Class(nil), b.MRO...))
	}
	seqs = append(seqs, append([]*Class(nil), c.Bases...))

	out := []*Class{c}
	for {
		nonEmpty := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		seqs = nonEmpty
		if len(seqs) == 0 {
			return out, nil
		}

		var head *Class
		for _, s := range seqs {
			if !inTail(s[0], seqs) {
				head = s[0]
				break
			}
		}
		if head == nil {
			names := make([]string, len(c.Bases))
			for i, b := range c.Bases {
				names[i] = b.Name
			}
			return nil, &HierarchyError{
				Class:   c.Name,
				Message: fmt.Sprintf("cannot create a consistent method resolution order for bases %s", strings.Join(names, ", ")),
			}
		}
		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(c *Class, seqs [][]*Class) bool {
	for _, s := range seqs {
		for _, k := range s[1:] {
			if k == c {
				return true
			}
		}
	}
	return false
}
