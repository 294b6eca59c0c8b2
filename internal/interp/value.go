package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/logic"
	"github.com/roach88/bayan/internal/object"
)

// Value is any runtime value:
//
//	nil (None), bool, int64, float64, string,
//	*List, *Tuple, *Dict, *SliceValue,
//	*object.Instance, *object.Class,
//	*Function, *BoundMethod, *Builtin, *Generator, *Coroutine,
//	*Module, *logic.Predicate, HostObject
type Value = any

// List is a mutable sequence.
type List struct {
	Elems []Value
}

// NewList wraps elems.
func NewList(elems ...Value) *List {
	if elems == nil {
		elems = []Value{}
	}
	return &List{Elems: elems}
}

// Tuple is an immutable sequence.
type Tuple struct {
	Elems []Value
}

// SliceValue is start:end:step as passed to __getitem__.
type SliceValue struct {
	Start, End, Step Value
}

// Dict is an insertion-ordered map. Keys must be hashable: None, bool,
// numbers, strings, tuples of hashables and instances (by identity).
type Dict struct {
	keys  []Value
	vals  []Value
	index map[any]int
}

// NewDict creates an empty dict.
func NewDict() *Dict {
	return &Dict{index: make(map[any]int)}
}

type tupleKey string

func hashKey(v Value) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64:
		return x, nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
		return x, nil
	case *Tuple:
		parts := make([]string, len(x.Elems))
		for i, e := range x.Elems {
			k, err := hashKey(e)
			if err != nil {
				return nil, err
			}
			parts[i] = fmt.Sprintf("%T:%v", k, k)
		}
		return tupleKey(strings.Join(parts, "\x00")), nil
	case *object.Instance, *object.Class, *Function, *Builtin:
		return x, nil
	}
	return nil, faultf(TypeError, "unhashable type: '%s'", typeName(v))
}

// Get returns the value stored under key.
func (d *Dict) Get(key Value) (Value, bool, error) {
	k, err := hashKey(key)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[k]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

// Set stores value under key, keeping the original insertion position.
func (d *Dict) Set(key, value Value) error {
	k, err := hashKey(key)
	if err != nil {
		return err
	}
	if i, ok := d.index[k]; ok {
		d.vals[i] = value
		return nil
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, value)
	return nil
}

// SetString is Set for string keys, which cannot fail.
func (d *Dict) SetString(key string, value Value) *Dict {
	_ = d.Set(key, value)
	return d
}

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key Value) (bool, error) {
	k, err := hashKey(key)
	if err != nil {
		return false, err
	}
	i, ok := d.index[k]
	if !ok {
		return false, nil
	}
	d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i:i], d.vals[i+1:]...)
	delete(d.index, k)
	for j := i; j < len(d.keys); j++ {
		kk, _ := hashKey(d.keys[j])
		d.index[kk] = j
	}
	return true, nil
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value { return append([]Value(nil), d.keys...) }

// Values returns the values in insertion order.
func (d *Dict) Values() []Value { return append([]Value(nil), d.vals...) }

// Function is a user-defined function or method.
type Function struct {
	Def     *ast.FunctionDef
	Closure map[string]Value
	Class   *object.Class
}

func (f *Function) String() string { return "<function " + f.Def.Name + ">" }

// BoundMethod is a method looked up through an instance.
type BoundMethod struct {
	Self *object.Instance
	Fn   *Function
}

// Kwarg is one keyword argument. Keyword arguments keep source order.
type Kwarg struct {
	Name  string
	Value Value
}

// Kwargs is an ordered keyword argument list.
type Kwargs []Kwarg

// Get returns the named argument.
func (kw Kwargs) Get(name string) (Value, bool) {
	for _, k := range kw {
		if k.Name == name {
			return k.Value, true
		}
	}
	return nil, false
}

// BuiltinFunc implements a built-in callable.
type BuiltinFunc func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error)

// Builtin is a host function callable from programs.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

// NewBuiltin wraps fn.
func NewBuiltin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

// Module is a name→value map returned by an Importer.
type Module struct {
	Name    string
	Members map[string]Value
}

// Attr implements HostObject.
func (m *Module) Attr(name string) (Value, bool) {
	v, ok := m.Members[name]
	return v, ok
}

// HostObject is a host value exposing attributes to programs.
type HostObject interface {
	Attr(name string) (Value, bool)
}

func typeName(v Value) string {
	switch x := v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case *List:
		return "list"
	case *Tuple:
		return "tuple"
	case *Dict:
		return "dict"
	case *SliceValue:
		return "slice"
	case *object.Instance:
		return x.Class.Name
	case *object.Class:
		return "type"
	case *Function, *BoundMethod:
		return "function"
	case *Builtin:
		return "builtin_function"
	case *Generator:
		return "generator"
	case *Coroutine:
		return "coroutine"
	case *Module:
		return "module"
	case *logic.Predicate:
		return "predicate"
	}
	return fmt.Sprintf("%T", v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	} else {
		s = strings.ReplaceAll(s, "'", `\'`)
	}
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return q + s + q
}

// toFloat widens numbers and bools.
func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
	}
	return 0, false
}

// toHost converts a value to plain Go data: map[string]any, []any,
// float64, string, bool, nil. Used when values cross into the entity
// engine and the store.
func toHost(v Value) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case *List:
		out := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = toHost(e)
		}
		return out
	case *Tuple:
		out := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = toHost(e)
		}
		return out
	case *Dict:
		out := make(map[string]any, x.Len())
		for i, k := range x.keys {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = toHost(x.vals[i])
		}
		return out
	}
	return v
}

// fromHost converts logic constants and plain Go data to values.
func fromHost(v any) Value {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = fromHost(e)
		}
		return NewList(out...)
	case []string:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = e
		}
		return NewList(out...)
	case map[string]any:
		d := NewDict()
		for _, k := range sortedNames(x) {
			d.SetString(k, fromHost(x[k]))
		}
		return d
	case map[string]float64:
		d := NewDict()
		for _, k := range sortedNames(x) {
			d.SetString(k, x[k])
		}
		return d
	}
	return v
}
