package interp

import (
	"math"
	"strings"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/object"
)

// dunder names per binary operator: forward, reflected.
var operatorMethods = map[string][2]string{
	"+":  {"__add__", "__radd__"},
	"-":  {"__sub__", "__rsub__"},
	"*":  {"__mul__", "__rmul__"},
	"/":  {"__truediv__", "__rtruediv__"},
	"//": {"__floordiv__", "__rfloordiv__"},
	"%":  {"__mod__", "__rmod__"},
	"**": {"__pow__", "__rpow__"},
	"<":  {"__lt__", "__gt__"},
	">":  {"__gt__", "__lt__"},
	"<=": {"__le__", "__ge__"},
	">=": {"__ge__", "__le__"},
	"==": {"__eq__", "__eq__"},
}

func (in *Interpreter) evalBinary(n *ast.BinaryOp) (Value, error) {
	left, err := in.eval(n.Left)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "and":
		ok, err := in.truthy(left)
		if err != nil || !ok {
			return left, err
		}
		return in.eval(n.Right)
	case "or":
		ok, err := in.truthy(left)
		if err != nil || ok {
			return left, err
		}
		return in.eval(n.Right)
	}
	right, err := in.eval(n.Right)
	if err != nil {
		return nil, err
	}
	return in.binary(n.Operator, left, right)
}

func (in *Interpreter) binary(op string, l, r Value) (Value, error) {
	if names, ok := operatorMethods[op]; ok {
		if v, handled, err := in.tryDunder(l, r, names[0], names[1]); handled || err != nil {
			return v, err
		}
	}
	switch op {
	case "+", "-", "*", "/", "//", "%", "**":
		return arith(op, l, r)
	case "==":
		return in.equal(l, r)
	case "!=":
		if v, handled, err := in.tryDunder(l, r, "__ne__", "__ne__"); handled || err != nil {
			return v, err
		}
		if v, handled, err := in.tryDunder(l, r, "__eq__", "__eq__"); handled || err != nil {
			if err != nil {
				return nil, err
			}
			eq, err := in.truthy(v)
			return !eq, err
		}
		eq, err := in.equal(l, r)
		return !eq, err
	case "<", ">", "<=", ">=":
		return in.compare(op, l, r)
	case "in":
		return in.contains(r, l)
	case "not in":
		ok, err := in.contains(r, l)
		return !ok, err
	case "is":
		return same(l, r), nil
	case "is not":
		return !same(l, r), nil
	}
	return nil, faultf(RuntimeFault, "Unknown operator: %s", op)
}

// tryDunder calls the left operand's method, then the right operand's
// reflected method.
func (in *Interpreter) tryDunder(l, r Value, name, reflected string) (Value, bool, error) {
	if inst, ok := l.(*object.Instance); ok && inst.HasMethod(name) {
		v, err := in.callMethod(inst, name, []Value{r}, nil)
		return v, true, err
	}
	if inst, ok := r.(*object.Instance); ok && reflected != "" && inst.HasMethod(reflected) {
		v, err := in.callMethod(inst, reflected, []Value{l}, nil)
		return v, true, err
	}
	return nil, false, nil
}

func same(l, r Value) bool {
	switch l.(type) {
	case nil, bool, int64, float64, string:
		return l == r
	}
	switch r.(type) {
	case nil, bool, int64, float64, string:
		return false
	}
	return l == r
}

func isInt(v Value) bool {
	switch v.(type) {
	case int64, bool:
		return true
	}
	return false
}

func unsupported(op string, l, r Value) error {
	return faultf(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, typeName(l), typeName(r))
}

func arith(op string, l, r Value) (Value, error) {
	if isInt(l) && isInt(r) {
		a, _ := toInt(l)
		b, _ := toInt(r)
		return intArith(op, a, b)
	}
	if a, ok := toFloat(l); ok {
		if b, ok := toFloat(r); ok {
			return floatArith(op, a, b)
		}
	}
	switch x := l.(type) {
	case string:
		switch y := r.(type) {
		case string:
			if op == "+" {
				return x + y, nil
			}
		case int64:
			if op == "*" {
				return repeatString(x, y)
			}
		}
	case int64:
		if s, ok := r.(string); ok && op == "*" {
			return repeatString(s, x)
		}
		if lst, ok := r.(*List); ok && op == "*" {
			elems, err := repeat(lst.Elems, x)
			if err != nil {
				return nil, err
			}
			return NewList(elems...), nil
		}
	case *List:
		switch y := r.(type) {
		case *List:
			if op == "+" {
				return NewList(append(append([]Value{}, x.Elems...), y.Elems...)...), nil
			}
		case int64:
			if op == "*" {
				elems, err := repeat(x.Elems, y)
				if err != nil {
					return nil, err
				}
				return NewList(elems...), nil
			}
		}
	case *Tuple:
		if y, ok := r.(*Tuple); ok && op == "+" {
			return &Tuple{Elems: append(append([]Value{}, x.Elems...), y.Elems...)}, nil
		}
	}
	return nil, unsupported(op, l, r)
}

// maxRepeatLen bounds the length of a repeated string (in bytes) or
// list (in elements).
const maxRepeatLen = 1 << 26

// repeatCount returns n as a count, or an OverflowError when n copies of
// unit items would exceed maxRepeatLen. Negative counts repeat zero times.
func repeatCount(n int64, unit int) (int, error) {
	if n <= 0 || unit == 0 {
		return 0, nil
	}
	if n > int64(maxRepeatLen/unit) {
		return 0, faultf(OverflowError, "repeated sequence is too long")
	}
	return int(n), nil
}

func repeatString(s string, n int64) (Value, error) {
	count, err := repeatCount(n, len(s))
	if err != nil {
		return nil, err
	}
	return strings.Repeat(s, count), nil
}

func repeat(elems []Value, n int64) ([]Value, error) {
	count, err := repeatCount(n, len(elems))
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, count*len(elems))
	for range count {
		out = append(out, elems...)
	}
	return out, nil
}

func intArith(op string, a, b int64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, faultf(ZeroDivisionError, "division by zero")
		}
		return float64(a) / float64(b), nil
	case "//":
		if b == 0 {
			return nil, faultf(ZeroDivisionError, "integer division or modulo by zero")
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, nil
	case "%":
		if b == 0 {
			return nil, faultf(ZeroDivisionError, "integer division or modulo by zero")
		}
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, nil
	case "**":
		if b < 0 {
			return math.Pow(float64(a), float64(b)), nil
		}
		if p, ok := intPow(a, b); ok {
			return p, nil
		}
		return math.Pow(float64(a), float64(b)), nil
	}
	return nil, faultf(RuntimeFault, "Unknown operator: %s", op)
}

// intPow computes a**b for b >= 0 by squaring. ok is false when the
// result does not fit in an int64.
func intPow(a, b int64) (int64, bool) {
	switch a {
	case 0:
		if b == 0 {
			return 1, true
		}
		return 0, true
	case 1:
		return 1, true
	case -1:
		if b%2 == 0 {
			return 1, true
		}
		return -1, true
	}
	result, base := int64(1), a
	for b > 0 {
		if b&1 == 1 {
			r, ok := mulInt(result, base)
			if !ok {
				return 0, false
			}
			result = r
		}
		b >>= 1
		if b > 0 {
			sq, ok := mulInt(base, base)
			if !ok {
				return 0, false
			}
			base = sq
		}
	}
	return result, true
}

// mulInt multiplies with overflow detection.
func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (c < 0) != ((a < 0) != (b < 0)) || c/b != a {
		return 0, false
	}
	return c, true
}

func floatArith(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, faultf(ZeroDivisionError, "float division by zero")
		}
		return a / b, nil
	case "//":
		if b == 0 {
			return nil, faultf(ZeroDivisionError, "float floor division by zero")
		}
		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, faultf(ZeroDivisionError, "float modulo")
		}
		m := math.Mod(a, b)
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, nil
	case "**":
		return math.Pow(a, b), nil
	}
	return nil, faultf(RuntimeFault, "Unknown operator: %s", op)
}

// equal is structural for sequences and dicts, identity for objects.
func (in *Interpreter) equal(l, r Value) (bool, error) {
	if a, ok := toFloat(l); ok {
		b, ok := toFloat(r)
		return ok && a == b, nil
	}
	switch x := l.(type) {
	case *List:
		y, ok := r.(*List)
		if !ok {
			return false, nil
		}
		return in.equalElems(x.Elems, y.Elems)
	case *Tuple:
		y, ok := r.(*Tuple)
		if !ok {
			return false, nil
		}
		return in.equalElems(x.Elems, y.Elems)
	case *Dict:
		y, ok := r.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		for i, k := range x.keys {
			v, found, err := y.Get(k)
			if err != nil || !found {
				return false, err
			}
			eq, err := in.equal(x.vals[i], v)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *object.Instance:
		if x.HasMethod("__eq__") {
			v, err := in.callMethod(x, "__eq__", []Value{r}, nil)
			if err != nil {
				return false, err
			}
			return in.truthy(v)
		}
	}
	return same(l, r), nil
}

func (in *Interpreter) equalElems(a, b []Value) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := in.equal(a[i], b[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func (in *Interpreter) compare(op string, l, r Value) (bool, error) {
	c, err := in.order(l, r, op)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case ">":
		return c > 0, nil
	case "<=":
		return c <= 0, nil
	default:
		return c >= 0, nil
	}
}

// order returns -1, 0 or 1. Sequences compare lexicographically.
func (in *Interpreter) order(l, r Value, op string) (int, error) {
	if a, ok := toFloat(l); ok {
		if b, ok := toFloat(r); ok {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			}
			return 0, nil
		}
	}
	switch x := l.(type) {
	case string:
		if y, ok := r.(string); ok {
			return strings.Compare(x, y), nil
		}
	case *List:
		if y, ok := r.(*List); ok {
			return in.orderElems(x.Elems, y.Elems, op)
		}
	case *Tuple:
		if y, ok := r.(*Tuple); ok {
			return in.orderElems(x.Elems, y.Elems, op)
		}
	case *object.Instance:
		if x.HasMethod("__lt__") {
			lt, err := in.callMethod(x, "__lt__", []Value{r}, nil)
			if err != nil {
				return 0, err
			}
			if ok, err := in.truthy(lt); err != nil || ok {
				return -1, err
			}
			eq, err := in.equal(l, r)
			if err != nil || eq {
				return 0, err
			}
			return 1, nil
		}
	}
	return 0, faultf(TypeError, "'%s' not supported between instances of '%s' and '%s'", op, typeName(l), typeName(r))
}

func (in *Interpreter) orderElems(a, b []Value, op string) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, err := in.order(a[i], b[i], op)
		if err != nil || c != 0 {
			return c, err
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	}
	return 0, nil
}

// contains implements "item in container".
func (in *Interpreter) contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case *object.Instance:
		if c.HasMethod("__contains__") {
			v, err := in.callMethod(c, "__contains__", []Value{item}, nil)
			if err != nil {
				return false, err
			}
			return in.truthy(v)
		}
	case string:
		s, ok := item.(string)
		if !ok {
			return false, faultf(TypeError, "'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, s), nil
	case *Dict:
		_, ok, err := c.Get(item)
		return ok, err
	}
	found := false
	err := in.iterate(container, func(v Value) (bool, error) {
		eq, err := in.equal(v, item)
		if err != nil {
			return false, err
		}
		found = eq
		return !eq, nil
	})
	return found, err
}

func (in *Interpreter) evalUnary(n *ast.UnaryOp) (Value, error) {
	v, err := in.eval(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "not":
		ok, err := in.truthy(v)
		return !ok, err
	case "-":
		if inst, ok := v.(*object.Instance); ok && inst.HasMethod("__neg__") {
			return in.callMethod(inst, "__neg__", nil, nil)
		}
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		case bool:
			i, _ := toInt(x)
			return -i, nil
		}
	case "+":
		if inst, ok := v.(*object.Instance); ok && inst.HasMethod("__pos__") {
			return in.callMethod(inst, "__pos__", nil, nil)
		}
		switch x := v.(type) {
		case int64, float64:
			return x, nil
		case bool:
			i, _ := toInt(x)
			return i, nil
		}
	default:
		return nil, faultf(RuntimeFault, "Unknown operator: %s", n.Operator)
	}
	return nil, faultf(TypeError, "bad operand type for unary %s: '%s'", n.Operator, typeName(v))
}

// truthy consults __bool__ then __len__ on instances.
func (in *Interpreter) truthy(v Value) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		return x != "", nil
	case *List:
		return len(x.Elems) > 0, nil
	case *Tuple:
		return len(x.Elems) > 0, nil
	case *Dict:
		return x.Len() > 0, nil
	case *object.Instance:
		if x.HasMethod("__bool__") {
			r, err := in.callMethod(x, "__bool__", nil, nil)
			if err != nil {
				return false, err
			}
			return in.truthy(r)
		}
		if x.HasMethod("__len__") {
			r, err := in.callMethod(x, "__len__", nil, nil)
			if err != nil {
				return false, err
			}
			n, _ := toInt(r)
			return n != 0, nil
		}
	}
	return true, nil
}
