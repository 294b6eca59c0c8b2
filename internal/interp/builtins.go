package interp

import (
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/bayan/internal/object"
)

// defaultBuiltins returns the builtin table for a new session.
func defaultBuiltins() map[string]*Builtin {
	b := map[string]*Builtin{}
	add := func(name string, fn BuiltinFunc) { b[name] = NewBuiltin(name, fn) }

	add("print", builtinPrint)
	add("len", builtinLen)
	add("range", builtinRange)
	add("str", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if len(args) == 0 {
			return "", nil
		}
		return in.str(args[0])
	})
	add("repr", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("repr", args, 1, 1); err != nil {
			return nil, err
		}
		return in.repr(args[0])
	})
	add("bool", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if len(args) == 0 {
			return false, nil
		}
		return in.truthy(args[0])
	})
	add("int", builtinInt)
	add("float", builtinFloat)
	add("list", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if len(args) == 0 {
			return NewList(), nil
		}
		items, err := in.collect(args[0])
		return NewList(items...), err
	})
	add("tuple", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if len(args) == 0 {
			return &Tuple{Elems: []Value{}}, nil
		}
		items, err := in.collect(args[0])
		return &Tuple{Elems: items}, err
	})
	add("dict", builtinDict)
	add("type", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("type", args, 1, 1); err != nil {
			return nil, err
		}
		if inst, ok := args[0].(*object.Instance); ok {
			return inst.Class, nil
		}
		if c, ok := in.builtins[typeName(args[0])]; ok {
			return c, nil
		}
		return typeName(args[0]), nil
	})
	add("isinstance", builtinIsInstance)
	add("callable", func(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("callable", args, 1, 1); err != nil {
			return nil, err
		}
		return callable(args[0]), nil
	})
	add("hasattr", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("hasattr", args, 2, 2); err != nil {
			return nil, err
		}
		name, err := argString("hasattr", args, 1)
		if err != nil {
			return nil, err
		}
		_, err = in.getAttr(args[0], name)
		return err == nil, nil
	})
	add("getattr", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("getattr", args, 2, 3); err != nil {
			return nil, err
		}
		name, err := argString("getattr", args, 1)
		if err != nil {
			return nil, err
		}
		v, err := in.getAttr(args[0], name)
		if err != nil && len(args) == 3 {
			return args[2], nil
		}
		return v, err
	})
	add("setattr", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("setattr", args, 3, 3); err != nil {
			return nil, err
		}
		name, err := argString("setattr", args, 1)
		if err != nil {
			return nil, err
		}
		return nil, in.setAttr(args[0], name, args[2])
	})
	add("abs", func(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("abs", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case int64:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case float64:
			return math.Abs(x), nil
		}
		return nil, faultf(TypeError, "bad operand type for abs(): '%s'", typeName(args[0]))
	})
	add("round", builtinRound)
	add("pow", func(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("pow", args, 2, 2); err != nil {
			return nil, err
		}
		return arith("**", args[0], args[1])
	})
	add("sum", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("sum", args, 1, 2); err != nil {
			return nil, err
		}
		var total Value = int64(0)
		if len(args) == 2 {
			total = args[1]
		}
		err := in.iterate(args[0], func(v Value) (bool, error) {
			var err error
			total, err = in.binary("+", total, v)
			return err == nil, err
		})
		return total, err
	})
	add("min", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) { return in.extreme("min", args, -1) })
	add("max", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) { return in.extreme("max", args, 1) })
	add("sorted", func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
		if err := arity("sorted", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := in.collect(args[0])
		if err != nil {
			return nil, err
		}
		items, err = in.sortValues(items, kwargs)
		return NewList(items...), err
	})
	add("reversed", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("reversed", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := in.collect(args[0])
		slices.Reverse(items)
		return NewList(items...), err
	})
	add("enumerate", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("enumerate", args, 1, 2); err != nil {
			return nil, err
		}
		start := int64(0)
		if len(args) == 2 {
			start, _ = toInt(args[1])
		}
		items, err := in.collect(args[0])
		out := make([]Value, len(items))
		for i, it := range items {
			out[i] = &Tuple{Elems: []Value{start + int64(i), it}}
		}
		return NewList(out...), err
	})
	add("zip", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		cols := make([][]Value, len(args))
		n := -1
		for i, a := range args {
			items, err := in.collect(a)
			if err != nil {
				return nil, err
			}
			cols[i] = items
			if n < 0 || len(items) < n {
				n = len(items)
			}
		}
		out := make([]Value, max(n, 0))
		for i := range out {
			row := make([]Value, len(cols))
			for j := range cols {
				row[j] = cols[j][i]
			}
			out[i] = &Tuple{Elems: row}
		}
		return NewList(out...), nil
	})
	add("map", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("map", args, 2, 2); err != nil {
			return nil, err
		}
		out := NewList()
		err := in.iterate(args[1], func(v Value) (bool, error) {
			r, err := in.call(args[0], []Value{v}, nil)
			out.Elems = append(out.Elems, r)
			return err == nil, err
		})
		return out, err
	})
	add("filter", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("filter", args, 2, 2); err != nil {
			return nil, err
		}
		out := NewList()
		err := in.iterate(args[1], func(v Value) (bool, error) {
			keep := v
			if args[0] != nil {
				r, err := in.call(args[0], []Value{v}, nil)
				if err != nil {
					return false, err
				}
				keep = r
			}
			ok, err := in.truthy(keep)
			if ok {
				out.Elems = append(out.Elems, v)
			}
			return err == nil, err
		})
		return out, err
	})
	add("all", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("all", args, 1, 1); err != nil {
			return nil, err
		}
		result := true
		err := in.iterate(args[0], func(v Value) (bool, error) {
			ok, err := in.truthy(v)
			result = ok
			return ok && err == nil, err
		})
		return result, err
	})
	add("any", func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("any", args, 1, 1); err != nil {
			return nil, err
		}
		result := false
		err := in.iterate(args[0], func(v Value) (bool, error) {
			ok, err := in.truthy(v)
			result = ok
			return !ok && err == nil, err
		})
		return result, err
	})
	add("next", func(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
		if err := arity("next", args, 1, 2); err != nil {
			return nil, err
		}
		g, ok := args[0].(*Generator)
		if !ok {
			return nil, faultf(TypeError, "'%s' object is not an iterator", typeName(args[0]))
		}
		v, more, err := g.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			if len(args) == 2 {
				return args[1], nil
			}
			return nil, faultf("StopIteration", "generator exhausted")
		}
		return v, nil
	})

	for name, fn := range logicBuiltins() {
		add(name, fn)
	}
	for name, fn := range entityBuiltins() {
		add(name, fn)
	}
	for alias, name := range arabicAliases {
		if orig, ok := b[name]; ok {
			b[alias] = NewBuiltin(alias, orig.Fn)
		}
	}
	return b
}

func builtinPrint(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
	sep, end := " ", "\n"
	if v, ok := kwargs.Get("sep"); ok {
		sep, _ = v.(string)
	}
	if v, ok := kwargs.Get("end"); ok {
		end, _ = v.(string)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := in.str(a)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	_, err := in.stdout.Write([]byte(strings.Join(parts, sep) + end))
	return nil, err
}

func builtinLen(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case string:
		return int64(len([]rune(x))), nil
	case *List:
		return int64(len(x.Elems)), nil
	case *Tuple:
		return int64(len(x.Elems)), nil
	case *Dict:
		return int64(x.Len()), nil
	case *object.Instance:
		if x.HasMethod("__len__") {
			return in.callMethod(x, "__len__", nil, nil)
		}
	}
	return nil, faultf(TypeError, "object of type '%s' has no len()", typeName(args[0]))
}

func builtinRange(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(int64)
		if !ok {
			return nil, faultf(TypeError, "'%s' object cannot be interpreted as an integer", typeName(a))
		}
		bounds[i] = n
	}
	start, stop, step := int64(0), bounds[0], int64(1)
	if len(bounds) > 1 {
		start, stop = bounds[0], bounds[1]
	}
	if len(bounds) > 2 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, faultf(ValueError, "range() arg 3 must not be zero")
	}
	var n uint64
	switch {
	case step > 0 && start < stop:
		n = (uint64(stop)-uint64(start)-1)/uint64(step) + 1
	case step < 0 && start > stop:
		n = (uint64(start)-uint64(stop)-1)/(-uint64(step)) + 1
	}
	if n > maxRepeatLen {
		return nil, faultf(OverflowError, "range() result is too long")
	}
	out := make([]Value, n)
	for i := range out {
		out[i] = start + int64(i)*step
	}
	return NewList(out...), nil
}

func builtinInt(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
	if len(args) == 0 {
		return int64(0), nil
	}
	switch x := args[0].(type) {
	case int64:
		return x, nil
	case bool:
		n, _ := toInt(x)
		return n, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, faultf(ValueError, "cannot convert float %s to integer", formatFloat(x))
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, faultf(ValueError, "invalid literal for int() with base 10: %s", quote(x))
		}
		return n, nil
	}
	return nil, faultf(TypeError, "int() argument must be a string or a number, not '%s'", typeName(args[0]))
}

func builtinFloat(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
	if len(args) == 0 {
		return 0.0, nil
	}
	if f, ok := toFloat(args[0]); ok {
		return f, nil
	}
	if s, ok := args[0].(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, faultf(ValueError, "could not convert string to float: %s", quote(s))
		}
		return f, nil
	}
	return nil, faultf(TypeError, "float() argument must be a string or a number, not '%s'", typeName(args[0]))
}

func builtinDict(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
	d := NewDict()
	if len(args) > 0 {
		switch src := args[0].(type) {
		case *Dict:
			for i, k := range src.keys {
				_ = d.Set(k, src.vals[i])
			}
		default:
			err := in.iterate(src, func(item Value) (bool, error) {
				pair, err := in.collect(item)
				if err != nil {
					return false, err
				}
				if len(pair) != 2 {
					return false, faultf(ValueError, "dictionary update sequence element has length %d; 2 is required", len(pair))
				}
				return true, d.Set(pair[0], pair[1])
			})
			if err != nil {
				return nil, err
			}
		}
	}
	for _, k := range kwargs {
		d.SetString(k.Name, k.Value)
	}
	return d, nil
}

func builtinIsInstance(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
	if err := arity("isinstance", args, 2, 2); err != nil {
		return nil, err
	}
	targets := []Value{args[1]}
	if t, ok := args[1].(*Tuple); ok {
		targets = t.Elems
	}
	for _, t := range targets {
		switch c := t.(type) {
		case *object.Class:
			if inst, ok := args[0].(*object.Instance); ok && inst.Class.IsSubclassOf(c.Name) {
				return true, nil
			}
		case *Builtin:
			name := typeName(args[0])
			if c.Name == name || (c.Name == "int" && name == "bool") {
				return true, nil
			}
		default:
			return nil, faultf(TypeError, "isinstance() arg 2 must be a type or tuple of types")
		}
	}
	return false, nil
}

func builtinRound(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	f, ok := toFloat(args[0])
	if !ok {
		return nil, faultf(TypeError, "type %s doesn't define __round__ method", typeName(args[0]))
	}
	if len(args) == 1 || args[1] == nil {
		return int64(math.RoundToEven(f)), nil
	}
	digits, _ := toInt(args[1])
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(f*p) / p, nil
}

// extreme implements min (dir -1) and max (dir 1) over one iterable or
// several arguments.
func (in *Interpreter) extreme(name string, args []Value, dir int) (Value, error) {
	if err := arity(name, args, 1, -1); err != nil {
		return nil, err
	}
	items := args
	if len(args) == 1 {
		var err error
		if items, err = in.collect(args[0]); err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, faultf(ValueError, "%s() arg is an empty sequence", name)
	}
	best := items[0]
	for _, v := range items[1:] {
		c, err := in.order(v, best, "<")
		if err != nil {
			return nil, err
		}
		if c == dir {
			best = v
		}
	}
	return best, nil
}

// sortValues sorts stably, honoring reverse= and key=.
func (in *Interpreter) sortValues(items []Value, kwargs Kwargs) ([]Value, error) {
	keys := items
	if key, ok := kwargs.Get("key"); ok && key != nil {
		keys = make([]Value, len(items))
		for i, it := range items {
			k, err := in.call(key, []Value{it}, nil)
			if err != nil {
				return nil, err
			}
			keys[i] = k
		}
	}
	reverse := false
	if r, ok := kwargs.Get("reverse"); ok {
		reverse, _ = in.truthy(r)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		c, err := in.order(keys[idx[a]], keys[idx[b]], "<")
		if err != nil {
			sortErr = err
			return false
		}
		if reverse {
			return c > 0
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]Value, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, nil
}
