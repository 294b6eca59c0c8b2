// Package formula evaluates the small arithmetic language used by entity
// effects, guards, reaction responses and equations.
//
// Formulas are parsed with the expr-lang parser and then walked against a
// strict allow-list: numeric literals, variables, unary + and -, the binary
// operators + - * / **, and calls to min, max, clamp, sqrt and rand().
// Every other construct is rejected with an *Error, because formulas may
// come from data files.
//
// Identifiers may be written in any script. Non-ASCII names are mapped to
// placeholders before parsing and mapped back for lookups and errors.
package formula

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Error is a rejected or failed formula.
type Error struct {
	Formula string
	Msg     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Msg)
}

// FaultKind names the error for the interpreter's fault reporting.
func (e *Error) FaultKind() string { return "FormulaError" }

// IsFormulaError returns true if err is a formula Error.
func IsFormulaError(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

var functions = map[string]bool{
	"min":   true,
	"max":   true,
	"clamp": true,
	"sqrt":  true,
	"rand":  true,
}

// Env supplies variable values and the random source for rand().
// A nil Rand uses the package generator.
type Env struct {
	Vars map[string]float64
	Rand func() float64
}

// Formula is a parsed, validated formula.
type Formula struct {
	src    string
	root   ast.Node
	names  map[string]string // placeholder -> original identifier
	idents []string
}

// Parse parses and validates src. Unknown identifiers are not an error
// here; they fail at evaluation when the environment lacks them.
func Parse(src string) (*Formula, error) {
	rewritten, names := mapIdentifiers(src)
	tree, err := parser.Parse(rewritten)
	if err != nil {
		return nil, &Error{Formula: src, Msg: fmt.Sprintf("syntax: %v", firstLine(err.Error()))}
	}
	f := &Formula{src: src, root: tree.Node, names: names}
	if err := f.check(f.root); err != nil {
		return nil, err
	}
	return f, nil
}

// MustParse is Parse for formulas known at compile time.
func MustParse(src string) *Formula {
	f, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return f
}

// Eval parses and evaluates src in one step.
func Eval(src string, env Env) (float64, error) {
	f, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return f.Eval(env)
}

// String returns the source text.
func (f *Formula) String() string { return f.src }

// Identifiers returns the variable names the formula references, in
// order of first appearance. Function names are not included.
func (f *Formula) Identifiers() []string {
	return append([]string(nil), f.idents...)
}

// References reports whether the formula reads variable name.
func (f *Formula) References(name string) bool {
	for _, id := range f.idents {
		if id == name {
			return true
		}
	}
	return false
}

// Eval evaluates the formula.
func (f *Formula) Eval(env Env) (float64, error) {
	if env.Rand == nil {
		env.Rand = rand.Float64
	}
	return f.eval(f.root, env)
}

func (f *Formula) fail(format string, args ...any) error {
	return &Error{Formula: f.src, Msg: fmt.Sprintf(format, args...)}
}

func (f *Formula) original(name string) string {
	if orig, ok := f.names[name]; ok {
		return orig
	}
	return name
}

// check walks the tree once at parse time, rejecting anything outside
// the allow-list and recording identifiers.
func (f *Formula) check(n ast.Node) error {
	switch n := n.(type) {
	case *ast.IntegerNode, *ast.FloatNode:
		return nil
	case *ast.IdentifierNode:
		name := f.original(n.Value)
		for _, id := range f.idents {
			if id == name {
				return nil
			}
		}
		f.idents = append(f.idents, name)
		return nil
	case *ast.UnaryNode:
		if n.Operator != "-" && n.Operator != "+" {
			return f.fail("operator not allowed: %s", n.Operator)
		}
		return f.check(n.Node)
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/", "**":
		default:
			return f.fail("operator not allowed: %s", n.Operator)
		}
		if err := f.check(n.Left); err != nil {
			return err
		}
		return f.check(n.Right)
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return f.fail("only simple function calls allowed")
		}
		return f.checkCall(f.original(id.Value), n.Arguments)
	case *ast.BuiltinNode:
		return f.checkCall(n.Name, n.Arguments)
	default:
		return f.fail("unsupported expression")
	}
}

func (f *Formula) checkCall(name string, args []ast.Node) error {
	if !functions[name] {
		return f.fail("function not allowed: %s", name)
	}
	for _, a := range args {
		if err := f.check(a); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formula) eval(n ast.Node, env Env) (float64, error) {
	switch n := n.(type) {
	case *ast.IntegerNode:
		return float64(n.Value), nil
	case *ast.FloatNode:
		return n.Value, nil
	case *ast.IdentifierNode:
		name := f.original(n.Value)
		if v, ok := env.Vars[name]; ok {
			return v, nil
		}
		if functions[name] {
			return 0, f.fail("function name used without call: %s", name)
		}
		return 0, f.fail("unknown name: %s", name)
	case *ast.UnaryNode:
		v, err := f.eval(n.Node, env)
		if err != nil {
			return 0, err
		}
		if n.Operator == "-" {
			return -v, nil
		}
		return v, nil
	case *ast.BinaryNode:
		l, err := f.eval(n.Left, env)
		if err != nil {
			return 0, err
		}
		r, err := f.eval(n.Right, env)
		if err != nil {
			return 0, err
		}
		return f.binary(n.Operator, l, r)
	case *ast.CallNode:
		id := n.Callee.(*ast.IdentifierNode)
		return f.call(f.original(id.Value), n.Arguments, env)
	case *ast.BuiltinNode:
		return f.call(n.Name, n.Arguments, env)
	}
	return 0, f.fail("unsupported expression")
}

func (f *Formula) binary(op string, l, r float64) (float64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, f.fail("division by zero")
		}
		return l / r, nil
	case "**":
		v := math.Pow(l, r)
		if math.IsNaN(v) {
			return 0, f.fail("math domain error")
		}
		return v, nil
	}
	return 0, f.fail("operator not allowed: %s", op)
}

func (f *Formula) call(name string, argNodes []ast.Node, env Env) (float64, error) {
	args := make([]float64, len(argNodes))
	for i, a := range argNodes {
		v, err := f.eval(a, env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch name {
	case "min", "max":
		if len(args) == 0 {
			return 0, f.fail("%s expected at least 1 argument", name)
		}
		out := args[0]
		for _, v := range args[1:] {
			if (name == "min" && v < out) || (name == "max" && v > out) {
				out = v
			}
		}
		return out, nil
	case "clamp":
		switch len(args) {
		case 1:
			return Clamp(args[0], 0, 1), nil
		case 3:
			return Clamp(args[0], args[1], args[2]), nil
		}
		return 0, f.fail("clamp expected 1 or 3 arguments, got %d", len(args))
	case "sqrt":
		if len(args) != 1 {
			return 0, f.fail("sqrt expected 1 argument, got %d", len(args))
		}
		if args[0] < 0 {
			return 0, f.fail("math domain error")
		}
		return math.Sqrt(args[0]), nil
	case "rand":
		if len(args) != 0 {
			return 0, f.fail("rand takes no arguments")
		}
		return env.Rand(), nil
	}
	return 0, f.fail("function not allowed: %s", name)
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// mapIdentifiers replaces identifiers containing non-ASCII runes with
// ASCII placeholders the expr lexer accepts. Combining marks (Arabic
// harakat, shadda) are part of identifiers.
func mapIdentifiers(src string) (string, map[string]string) {
	var b strings.Builder
	names := make(map[string]string)
	byOriginal := make(map[string]string)
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		if unicode.IsDigit(r) {
			j := i
			for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.') {
				j++
			}
			b.WriteString(string(runes[i:j]))
			i = j
			continue
		}
		if !isIdentRune(r) {
			b.WriteRune(r)
			i++
			continue
		}
		j := i
		ascii := true
		for j < len(runes) && isIdentRune(runes[j]) {
			if runes[j] > unicode.MaxASCII {
				ascii = false
			}
			j++
		}
		word := string(runes[i:j])
		if !ascii {
			ph, ok := byOriginal[word]
			if !ok {
				ph = fmt.Sprintf("__id%d", len(byOriginal))
				byOriginal[word] = ph
				names[ph] = word
			}
			word = ph
		}
		b.WriteString(word)
		i = j
	}
	return b.String(), names
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
