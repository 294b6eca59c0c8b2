// Package object implements Bayan's class model: a registry of classes
// with C3-linearized method resolution order, and instances that carry a
// class reference plus a mutable attribute map.
//
// Members are stored as opaque values. The interpreter decides what a
// member is (a function value, a constant); this package only decides
// where lookup finds it.
package object

import (
	"fmt"
	"sort"
)

// Class is a registered class. MRO starts with the class itself.
type Class struct {
	Name    string
	Bases   []*Class
	MRO     []*Class
	Members map[string]any
}

// Lookup finds a member on the class or its ancestors.
// Returns the class that defines it.
func (c *Class) Lookup(name string) (owner *Class, member any, ok bool) {
	for _, k := range c.MRO {
		if m, found := k.Members[name]; found {
			return k, m, true
		}
	}
	return nil, nil, false
}

// LookupAfter finds a member in the MRO strictly after the given owner.
// This is the resolution rule for super().
func (c *Class) LookupAfter(name string, after *Class) (owner *Class, member any, ok bool) {
	start := -1
	for i, k := range c.MRO {
		if k == after {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, false
	}
	for _, k := range c.MRO[start+1:] {
		if m, found := k.Members[name]; found {
			return k, m, true
		}
	}
	return nil, nil, false
}

// IsSubclassOf reports whether name is the class itself or any ancestor.
func (c *Class) IsSubclassOf(name string) bool {
	for _, k := range c.MRO {
		if k.Name == name {
			return true
		}
	}
	return false
}

// MRONames returns the linearization as class names.
func (c *Class) MRONames() []string {
	names := make([]string, len(c.MRO))
	for i, k := range c.MRO {
		names[i] = k.Name
	}
	return names
}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

// Instance is an object: a class reference and its own attributes.
type Instance struct {
	Class *Class
	Attrs map[string]any
}

// NewInstance creates an instance with an empty attribute map.
func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Attrs: make(map[string]any)}
}

// Get looks up an attribute: instance attributes first, then the MRO.
// owner is nil when the value came from the instance itself.
func (o *Instance) Get(name string) (value any, owner *Class, ok bool) {
	if v, found := o.Attrs[name]; found {
		return v, nil, true
	}
	owner, v, found := o.Class.Lookup(name)
	return v, owner, found
}

// Set assigns an instance attribute.
func (o *Instance) Set(name string, value any) {
	o.Attrs[name] = value
}

// HasMethod reports whether name resolves through the class MRO.
// Instance attributes are not methods.
func (o *Instance) HasMethod(name string) bool {
	_, _, ok := o.Class.Lookup(name)
	return ok
}

// AttrNames returns the instance attribute names in sorted order.
func (o *Instance) AttrNames() []string {
	names := make([]string, 0, len(o.Attrs))
	for k := range o.Attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
