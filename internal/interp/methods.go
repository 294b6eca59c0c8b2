package interp

import (
	"slices"
	"strings"
)

// Method tables are filled in init: their entries reach back into the
// evaluator, which reads the tables.
var stringMethods, listMethods, dictMethods map[string]func(Value) BuiltinFunc

// nativeMethod binds a method of a built-in str, list or dict value.
func nativeMethod(recv Value, name string) (*Builtin, bool) {
	var table map[string]func(recv Value) BuiltinFunc
	switch recv.(type) {
	case string:
		table = stringMethods
	case *List:
		table = listMethods
	case *Dict:
		table = dictMethods
	default:
		return nil, false
	}
	mk, ok := table[name]
	if !ok {
		return nil, false
	}
	return NewBuiltin(typeName(recv)+"."+name, mk(recv)), true
}

func argString(fn string, args []Value, i int) (string, error) {
	if i >= len(args) {
		return "", faultf(TypeError, "%s() missing argument %d", fn, i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", faultf(TypeError, "%s() argument %d must be str, not %s", fn, i+1, typeName(args[i]))
	}
	return s, nil
}

func arity(fn string, args []Value, lo, hi int) error {
	switch {
	case len(args) < lo:
		return faultf(TypeError, "%s() takes at least %d arguments (%d given)", fn, lo, len(args))
	case hi >= 0 && len(args) > hi:
		return faultf(TypeError, "%s() takes at most %d arguments (%d given)", fn, hi, len(args))
	}
	return nil
}

func strMethod(name string, f func(s string, args []Value) (Value, error)) func(Value) BuiltinFunc {
	return func(recv Value) BuiltinFunc {
		return func(_ *Interpreter, args []Value, _ Kwargs) (Value, error) {
			return f(recv.(string), args)
		}
	}
}

func strTransform(f func(string) string) func(Value) BuiltinFunc {
	return strMethod("", func(s string, _ []Value) (Value, error) { return f(s), nil })
}

func strPredicate(name string, f func(s, arg string) bool) func(Value) BuiltinFunc {
	return strMethod(name, func(s string, args []Value) (Value, error) {
		arg, err := argString(name, args, 0)
		if err != nil {
			return nil, err
		}
		return f(s, arg), nil
	})
}

func strTrim(name string, f func(s, cutset string) string, def func(string) string) func(Value) BuiltinFunc {
	return strMethod(name, func(s string, args []Value) (Value, error) {
		if len(args) == 0 || args[0] == nil {
			return def(s), nil
		}
		cut, err := argString(name, args, 0)
		if err != nil {
			return nil, err
		}
		return f(s, cut), nil
	})
}

func init() {
	stringMethods = map[string]func(Value) BuiltinFunc{
		"upper":      strTransform(strings.ToUpper),
		"lower":      strTransform(strings.ToLower),
		"strip":      strTrim("strip", strings.Trim, strings.TrimSpace),
		"lstrip":     strTrim("lstrip", strings.TrimLeft, func(s string) string { return strings.TrimLeft(s, " \t\n\r") }),
		"rstrip":     strTrim("rstrip", strings.TrimRight, func(s string) string { return strings.TrimRight(s, " \t\n\r") }),
		"startswith": strPredicate("startswith", strings.HasPrefix),
		"endswith":   strPredicate("endswith", strings.HasSuffix),
		"split": strMethod("split", func(s string, args []Value) (Value, error) {
			var parts []string
			if len(args) == 0 || args[0] == nil {
				parts = strings.Fields(s)
			} else {
				sep, err := argString("split", args, 0)
				if err != nil {
					return nil, err
				}
				if sep == "" {
					return nil, faultf(ValueError, "empty separator")
				}
				parts = strings.Split(s, sep)
			}
			return fromHost(parts), nil
		}),
		"replace": strMethod("replace", func(s string, args []Value) (Value, error) {
			old, err := argString("replace", args, 0)
			if err != nil {
				return nil, err
			}
			repl, err := argString("replace", args, 1)
			if err != nil {
				return nil, err
			}
			return strings.ReplaceAll(s, old, repl), nil
		}),
		"find": strMethod("find", func(s string, args []Value) (Value, error) {
			sub, err := argString("find", args, 0)
			if err != nil {
				return nil, err
			}
			i := strings.Index(s, sub)
			if i < 0 {
				return int64(-1), nil
			}
			return int64(len([]rune(s[:i]))), nil
		}),
		"count": strMethod("count", func(s string, args []Value) (Value, error) {
			sub, err := argString("count", args, 0)
			if err != nil {
				return nil, err
			}
			return int64(strings.Count(s, sub)), nil
		}),
		"join": func(recv Value) BuiltinFunc {
			return func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
				if err := arity("join", args, 1, 1); err != nil {
					return nil, err
				}
				items, err := in.collect(args[0])
				if err != nil {
					return nil, err
				}
				parts := make([]string, len(items))
				for i, it := range items {
					s, ok := it.(string)
					if !ok {
						return nil, faultf(TypeError, "sequence item %d: expected str instance, %s found", i, typeName(it))
					}
					parts[i] = s
				}
				return strings.Join(parts, recv.(string)), nil
			}
		},
	}
}

func listMethod(f func(in *Interpreter, l *List, args []Value, kwargs Kwargs) (Value, error)) func(Value) BuiltinFunc {
	return func(recv Value) BuiltinFunc {
		return func(in *Interpreter, args []Value, kwargs Kwargs) (Value, error) {
			return f(in, recv.(*List), args, kwargs)
		}
	}
}

func (in *Interpreter) indexOf(elems []Value, v Value) (int, error) {
	for i, e := range elems {
		eq, err := in.equal(e, v)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

func init() {
	listMethods = map[string]func(Value) BuiltinFunc{
		"append": listMethod(func(_ *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("append", args, 1, 1); err != nil {
				return nil, err
			}
			l.Elems = append(l.Elems, args[0])
			return nil, nil
		}),
		"extend": listMethod(func(in *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("extend", args, 1, 1); err != nil {
				return nil, err
			}
			items, err := in.collect(args[0])
			if err != nil {
				return nil, err
			}
			l.Elems = append(l.Elems, items...)
			return nil, nil
		}),
		"insert": listMethod(func(_ *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("insert", args, 2, 2); err != nil {
				return nil, err
			}
			i, ok := toInt(args[0])
			if !ok {
				return nil, faultf(TypeError, "list indices must be integers, not %s", typeName(args[0]))
			}
			n := int64(len(l.Elems))
			if i < 0 {
				i = max(i+n, 0)
			}
			i = min(i, n)
			l.Elems = slices.Insert(l.Elems, int(i), args[1])
			return nil, nil
		}),
		"pop": listMethod(func(_ *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("pop", args, 0, 1); err != nil {
				return nil, err
			}
			if len(l.Elems) == 0 {
				return nil, faultf(IndexError, "pop from empty list")
			}
			var idx Value = int64(-1)
			if len(args) == 1 {
				idx = args[0]
			}
			i, err := seqIndex(len(l.Elems), idx, "pop")
			if err != nil {
				return nil, err
			}
			v := l.Elems[i]
			l.Elems = slices.Delete(l.Elems, i, i+1)
			return v, nil
		}),
		"remove": listMethod(func(in *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("remove", args, 1, 1); err != nil {
				return nil, err
			}
			i, err := in.indexOf(l.Elems, args[0])
			if err != nil {
				return nil, err
			}
			if i < 0 {
				return nil, faultf(ValueError, "list.remove(x): x not in list")
			}
			l.Elems = slices.Delete(l.Elems, i, i+1)
			return nil, nil
		}),
		"index": listMethod(func(in *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("index", args, 1, 1); err != nil {
				return nil, err
			}
			i, err := in.indexOf(l.Elems, args[0])
			if err != nil {
				return nil, err
			}
			if i < 0 {
				s, _ := in.repr(args[0])
				return nil, faultf(ValueError, "%s is not in list", s)
			}
			return int64(i), nil
		}),
		"count": listMethod(func(in *Interpreter, l *List, args []Value, _ Kwargs) (Value, error) {
			if err := arity("count", args, 1, 1); err != nil {
				return nil, err
			}
			n := int64(0)
			for _, e := range l.Elems {
				eq, err := in.equal(e, args[0])
				if err != nil {
					return nil, err
				}
				if eq {
					n++
				}
			}
			return n, nil
		}),
		"reverse": listMethod(func(_ *Interpreter, l *List, _ []Value, _ Kwargs) (Value, error) {
			slices.Reverse(l.Elems)
			return nil, nil
		}),
		"sort": listMethod(func(in *Interpreter, l *List, _ []Value, kwargs Kwargs) (Value, error) {
			sorted, err := in.sortValues(l.Elems, kwargs)
			if err != nil {
				return nil, err
			}
			l.Elems = sorted
			return nil, nil
		}),
		"copy": listMethod(func(_ *Interpreter, l *List, _ []Value, _ Kwargs) (Value, error) {
			return NewList(append([]Value{}, l.Elems...)...), nil
		}),
		"clear": listMethod(func(_ *Interpreter, l *List, _ []Value, _ Kwargs) (Value, error) {
			l.Elems = []Value{}
			return nil, nil
		}),
	}
}

func dictMethod(f func(in *Interpreter, d *Dict, args []Value) (Value, error)) func(Value) BuiltinFunc {
	return func(recv Value) BuiltinFunc {
		return func(in *Interpreter, args []Value, _ Kwargs) (Value, error) {
			return f(in, recv.(*Dict), args)
		}
	}
}

func init() {
	dictMethods = map[string]func(Value) BuiltinFunc{
		"get": dictMethod(func(_ *Interpreter, d *Dict, args []Value) (Value, error) {
			if err := arity("get", args, 1, 2); err != nil {
				return nil, err
			}
			v, ok, err := d.Get(args[0])
			if err != nil {
				return nil, err
			}
			if !ok && len(args) == 2 {
				return args[1], nil
			}
			return v, nil
		}),
		"keys": dictMethod(func(_ *Interpreter, d *Dict, _ []Value) (Value, error) {
			return NewList(d.Keys()...), nil
		}),
		"values": dictMethod(func(_ *Interpreter, d *Dict, _ []Value) (Value, error) {
			return NewList(d.Values()...), nil
		}),
		"items": dictMethod(func(_ *Interpreter, d *Dict, _ []Value) (Value, error) {
			out := make([]Value, d.Len())
			for i, k := range d.keys {
				out[i] = &Tuple{Elems: []Value{k, d.vals[i]}}
			}
			return NewList(out...), nil
		}),
		"pop": dictMethod(func(in *Interpreter, d *Dict, args []Value) (Value, error) {
			if err := arity("pop", args, 1, 2); err != nil {
				return nil, err
			}
			v, ok, err := d.Get(args[0])
			if err != nil {
				return nil, err
			}
			if !ok {
				if len(args) == 2 {
					return args[1], nil
				}
				k, _ := in.repr(args[0])
				return nil, faultf(KeyError, "%s", k)
			}
			_, err = d.Delete(args[0])
			return v, err
		}),
		"setdefault": dictMethod(func(_ *Interpreter, d *Dict, args []Value) (Value, error) {
			if err := arity("setdefault", args, 1, 2); err != nil {
				return nil, err
			}
			v, ok, err := d.Get(args[0])
			if err != nil || ok {
				return v, err
			}
			var def Value
			if len(args) == 2 {
				def = args[1]
			}
			return def, d.Set(args[0], def)
		}),
		"update": dictMethod(func(_ *Interpreter, d *Dict, args []Value) (Value, error) {
			if err := arity("update", args, 1, 1); err != nil {
				return nil, err
			}
			src, ok := args[0].(*Dict)
			if !ok {
				return nil, faultf(TypeError, "update() argument must be dict, not %s", typeName(args[0]))
			}
			for i, k := range src.keys {
				if err := d.Set(k, src.vals[i]); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}),
		"copy": dictMethod(func(_ *Interpreter, d *Dict, _ []Value) (Value, error) {
			out := NewDict()
			for i, k := range d.keys {
				_ = out.Set(k, d.vals[i])
			}
			return out, nil
		}),
		"clear": dictMethod(func(_ *Interpreter, d *Dict, _ []Value) (Value, error) {
			*d = *NewDict()
			return nil, nil
		}),
	}
}
