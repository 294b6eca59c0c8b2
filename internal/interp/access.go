package interp

import (
	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/object"
)

// iterate calls fn for each item of v until fn returns false.
func (in *Interpreter) iterate(v Value, fn func(Value) (bool, error)) error {
	switch x := v.(type) {
	case *List:
		for i := 0; i < len(x.Elems); i++ {
			if more, err := fn(x.Elems[i]); err != nil || !more {
				return err
			}
		}
		return nil
	case *Tuple:
		for _, e := range x.Elems {
			if more, err := fn(e); err != nil || !more {
				return err
			}
		}
		return nil
	case string:
		for _, r := range x {
			if more, err := fn(string(r)); err != nil || !more {
				return err
			}
		}
		return nil
	case *Dict:
		for _, k := range x.Keys() {
			if more, err := fn(k); err != nil || !more {
				return err
			}
		}
		return nil
	case *Generator:
		for {
			item, ok, err := x.Next()
			if err != nil || !ok {
				return err
			}
			if more, err := fn(item); err != nil || !more {
				return err
			}
		}
	case *object.Instance:
		if x.HasMethod("__iter__") {
			it, err := in.callMethod(x, "__iter__", nil, nil)
			if err != nil {
				return err
			}
			if it == v {
				return faultf(TypeError, "iter() returned the object itself; __next__ is not supported")
			}
			return in.iterate(it, fn)
		}
	}
	return faultf(TypeError, "'%s' object is not iterable", typeName(v))
}

// collect drains an iterable into a slice.
func (in *Interpreter) collect(v Value) ([]Value, error) {
	switch x := v.(type) {
	case *List:
		return append([]Value{}, x.Elems...), nil
	case *Tuple:
		return append([]Value{}, x.Elems...), nil
	}
	out := []Value{}
	err := in.iterate(v, func(item Value) (bool, error) {
		out = append(out, item)
		return true, nil
	})
	return out, err
}

func (in *Interpreter) getAttr(obj Value, name string) (Value, error) {
	switch x := obj.(type) {
	case *object.Instance:
		v, owner, ok := x.Get(name)
		if !ok {
			if name == "__class__" {
				return x.Class, nil
			}
			return nil, faultf(AttributeError, "'%s' object has no attribute '%s'", x.Class.Name, name)
		}
		if fn, isFn := v.(*Function); isFn && owner != nil {
			return &BoundMethod{Self: x, Fn: fn}, nil
		}
		return v, nil
	case *object.Class:
		if name == "__name__" {
			return x.Name, nil
		}
		if _, v, ok := x.Lookup(name); ok {
			return v, nil
		}
		return nil, faultf(AttributeError, "type object '%s' has no attribute '%s'", x.Name, name)
	case *Module:
		if v, ok := x.Attr(name); ok {
			return v, nil
		}
		return nil, faultf(AttributeError, "module '%s' has no attribute '%s'", x.Name, name)
	case HostObject:
		if v, ok := x.Attr(name); ok {
			return v, nil
		}
	case *Dict:
		if m, ok := nativeMethod(obj, name); ok {
			return m, nil
		}
		v, _, err := x.Get(name)
		return v, err
	default:
		if m, ok := nativeMethod(obj, name); ok {
			return m, nil
		}
	}
	return nil, faultf(AttributeError, "'%s' object has no attribute '%s'", typeName(obj), name)
}

func (in *Interpreter) setAttr(obj Value, name string, v Value) error {
	switch x := obj.(type) {
	case *object.Instance:
		x.Set(name, v)
		return nil
	case *object.Class:
		x.Members[name] = v
		return nil
	}
	return faultf(AttributeError, "cannot set attribute '%s' on '%s' object", name, typeName(obj))
}

func (in *Interpreter) evalSubscript(n *ast.SubscriptAccess) (Value, error) {
	obj, err := in.eval(n.Object)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(n.Index)
	if err != nil {
		return nil, err
	}
	return in.index(obj, idx)
}

func (in *Interpreter) index(obj, idx Value) (Value, error) {
	switch x := obj.(type) {
	case *object.Instance:
		if x.HasMethod("__getitem__") {
			return in.callMethod(x, "__getitem__", []Value{idx}, nil)
		}
	case *Dict:
		v, ok, err := x.Get(idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			k, _ := in.repr(idx)
			return nil, faultf(KeyError, "%s", k)
		}
		return v, nil
	case *List:
		return indexSeq(x.Elems, idx, "list", func(e []Value) Value { return NewList(e...) })
	case *Tuple:
		return indexSeq(x.Elems, idx, "tuple", func(e []Value) Value { return &Tuple{Elems: e} })
	case string:
		runes := []rune(x)
		elems := make([]Value, len(runes))
		for i, r := range runes {
			elems[i] = string(r)
		}
		return indexSeq(elems, idx, "string", func(e []Value) Value {
			var b []rune
			for _, s := range e {
				b = append(b, []rune(s.(string))...)
			}
			return string(b)
		})
	}
	return nil, faultf(TypeError, "'%s' object is not subscriptable", typeName(obj))
}

func indexSeq(elems []Value, idx Value, kind string, build func([]Value) Value) (Value, error) {
	if s, ok := idx.(*SliceValue); ok {
		start, stop, step, err := sliceIndices(len(elems), s)
		if err != nil {
			return nil, err
		}
		out := []Value{}
		if step > 0 {
			for i := start; i < stop; i += step {
				out = append(out, elems[i])
			}
		} else {
			for i := start; i > stop; i += step {
				out = append(out, elems[i])
			}
		}
		return build(out), nil
	}
	i, err := seqIndex(len(elems), idx, kind)
	if err != nil {
		return nil, err
	}
	return elems[i], nil
}

func seqIndex(n int, idx Value, kind string) (int, error) {
	i, ok := idx.(int64)
	if !ok {
		if b, isBool := idx.(bool); isBool {
			i, _ = toInt(b)
		} else {
			return 0, faultf(TypeError, "%s indices must be integers, not %s", kind, typeName(idx))
		}
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, faultf(IndexError, "%s index out of range", kind)
	}
	return int(i), nil
}

// sliceIndices clips a slice against a sequence of length n.
func sliceIndices(n int, s *SliceValue) (start, stop, step int, err error) {
	step = 1
	if s.Step != nil {
		st, ok := toInt(s.Step)
		if !ok {
			return 0, 0, 0, faultf(TypeError, "slice indices must be integers or None")
		}
		if st == 0 {
			return 0, 0, 0, faultf(ValueError, "slice step cannot be zero")
		}
		step = int(st)
	}
	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	bound := func(v Value, def int) (int, error) {
		if v == nil {
			return def, nil
		}
		i, ok := toInt(v)
		if !ok {
			return 0, faultf(TypeError, "slice indices must be integers or None")
		}
		x := int(i)
		if x < 0 {
			x += n
			if x < lower {
				x = lower
			}
		} else if x > upper {
			x = upper
		}
		return x, nil
	}
	if step > 0 {
		start, err = bound(s.Start, lower)
		if err == nil {
			stop, err = bound(s.End, upper)
		}
	} else {
		start, err = bound(s.Start, upper)
		if err == nil {
			stop, err = bound(s.End, lower)
		}
	}
	return start, stop, step, err
}

func (in *Interpreter) execSubscriptAssignment(n *ast.SubscriptAssignment) (Value, error) {
	obj, err := in.eval(n.Object)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(n.Index)
	if err != nil {
		return nil, err
	}
	v, err := in.eval(n.Value)
	if err != nil {
		return nil, err
	}
	switch x := obj.(type) {
	case *object.Instance:
		if x.HasMethod("__setitem__") {
			_, err := in.callMethod(x, "__setitem__", []Value{idx, v}, nil)
			return v, err
		}
	case *Dict:
		return v, x.Set(idx, v)
	case *List:
		i, err := seqIndex(len(x.Elems), idx, "list assignment")
		if err != nil {
			return nil, err
		}
		x.Elems[i] = v
		return v, nil
	}
	return nil, faultf(TypeError, "'%s' object does not support item assignment", typeName(obj))
}
