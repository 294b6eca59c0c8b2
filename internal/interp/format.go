package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/bayan/internal/logic"
	"github.com/roach88/bayan/internal/object"
)

// Str renders v the way print does.
func (in *Interpreter) Str(v Value) (string, error) { return in.str(v) }

// Repr renders v the way repr does.
func (in *Interpreter) Repr(v Value) (string, error) { return in.repr(v) }

// str renders v for print and str(). Instances use __str__, then
// __repr__.
func (in *Interpreter) str(v Value) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case *object.Instance:
		for _, m := range []string{"__str__", "__repr__"} {
			if x.HasMethod(m) {
				r, err := in.callMethod(x, m, nil, nil)
				if err != nil {
					return "", err
				}
				if s, ok := r.(string); ok {
					return s, nil
				}
				return in.str(r)
			}
		}
	}
	return in.repr(v)
}

// repr renders v the way it would be written as a literal.
func (in *Interpreter) repr(v Value) (string, error) {
	switch x := v.(type) {
	case nil:
		return "None", nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x), nil
	case string:
		return quote(x), nil
	case *List:
		s, err := in.joinRepr(x.Elems)
		return "[" + s + "]", err
	case *Tuple:
		s, err := in.joinRepr(x.Elems)
		if len(x.Elems) == 1 {
			s += ","
		}
		return "(" + s + ")", err
	case *Dict:
		parts := make([]string, x.Len())
		for i, k := range x.keys {
			ks, err := in.repr(k)
			if err != nil {
				return "", err
			}
			vs, err := in.repr(x.vals[i])
			if err != nil {
				return "", err
			}
			parts[i] = ks + ": " + vs
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *SliceValue:
		parts := make([]string, 3)
		for i, e := range []Value{x.Start, x.End, x.Step} {
			s, err := in.repr(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "slice(" + strings.Join(parts, ", ") + ")", nil
	case *object.Instance:
		if x.HasMethod("__repr__") {
			r, err := in.callMethod(x, "__repr__", nil, nil)
			if err != nil {
				return "", err
			}
			if s, ok := r.(string); ok {
				return s, nil
			}
			return in.repr(r)
		}
		return fmt.Sprintf("<%s object>", x.Class.Name), nil
	case *object.Class:
		return x.String(), nil
	case *BoundMethod:
		return fmt.Sprintf("<bound method %s.%s>", x.Self.Class.Name, x.Fn.Def.Name), nil
	case *Builtin:
		return "<built-in function " + x.Name + ">", nil
	case *Module:
		return "<module '" + x.Name + "'>", nil
	case *logic.Predicate:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return fmt.Sprintf("%v", v), nil
}

func (in *Interpreter) joinRepr(elems []Value) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, err := in.repr(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

// exceptionText is the text of an uncaught exception: __str__ when the
// class has one, otherwise "Class: message" or the class name alone.
func (in *Interpreter) exceptionText(v Value) (string, error) {
	inst, ok := v.(*object.Instance)
	if !ok || inst.HasMethod("__str__") {
		return in.str(v)
	}
	if msg, found := inst.Attrs["message"]; found {
		s, err := in.str(msg)
		if err != nil {
			return "", err
		}
		return inst.Class.Name + ": " + s, nil
	}
	return inst.Class.Name, nil
}
