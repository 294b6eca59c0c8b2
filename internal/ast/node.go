package ast

import (
	"reflect"
	"strings"
)

// Node is any syntax tree node.
type Node interface {
	Pos() Position
	node() // Marker method - seals interface to this package
}

// Position locates a node in its source buffer.
type Position struct {
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	File   string `json:"file,omitempty"`
}

// Pos returns the position itself so embedding types satisfy Node.
func (p Position) Pos() Position { return p }

// Kind returns the node's type name, e.g. "FunctionCall".
// Used for call-stack traces and error messages.
func Kind(n Node) string {
	if n == nil {
		return "nil"
	}
	t := reflect.TypeOf(n)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// LogicVarPrefix marks a Variable name as a logic variable ("?X").
const LogicVarPrefix = "?"

// --- Program structure ---

type Program struct {
	Position
	Body []Node `json:"body"`
}

type Block struct {
	Position
	Statements []Node `json:"statements"`
}

// Assignment binds Name to Value. A dotted Name ("obj.attr") assigns an
// attribute of the object bound to the first segment. When Targets is
// non-empty the value is unpacked across them instead.
type Assignment struct {
	Position
	Name    string   `json:"name"`
	Targets []string `json:"targets,omitempty"`
	Value   Node     `json:"value"`
}

// --- Expressions ---

type BinaryOp struct {
	Position
	Operator string `json:"operator"`
	Left     Node   `json:"left"`
	Right    Node   `json:"right"`
}

type UnaryOp struct {
	Position
	Operator string `json:"operator"`
	Operand  Node   `json:"operand"`
}

// Number is a numeric literal. Integer reports whether the literal was
// written without a fractional part; Decode infers it when absent.
type Number struct {
	Position
	Value   float64 `json:"value"`
	Integer bool    `json:"integer"`
}

type String struct {
	Position
	Value string `json:"value"`
}

type Boolean struct {
	Position
	Value bool `json:"value"`
}

type None struct {
	Position
}

// Variable references a name. Names starting with "?" are logic
// variables and only meaningful inside predicate arguments.
type Variable struct {
	Position
	Name string `json:"name"`
}

// IsLogic reports whether the variable is a logic variable.
func (v *Variable) IsLogic() bool { return strings.HasPrefix(v.Name, LogicVarPrefix) }

type List struct {
	Position
	Elements []Node `json:"elements"`
}

type Tuple struct {
	Position
	Elements []Node `json:"elements"`
}

type DictPair struct {
	Key   Node `json:"key"`
	Value Node `json:"value"`
}

type Dict struct {
	Position
	Pairs []DictPair `json:"pairs"`
}

type ListComprehension struct {
	Position
	Expr      Node   `json:"expr"`
	Variable  string `json:"variable"`
	Iterable  Node   `json:"iterable"`
	Condition Node   `json:"condition,omitempty"`
}

// NamedArg is a keyword argument. Order is preserved so evaluation order
// matches the source.
type NamedArg struct {
	Name  string `json:"name"`
	Value Node   `json:"value"`
}

type FunctionCall struct {
	Position
	Name      string     `json:"name"`
	Args      []Node     `json:"args"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
}

// HasLogicArgs reports whether any argument is a logic variable, which
// turns the call into a query against the knowledge base.
func (c *FunctionCall) HasLogicArgs() bool {
	for _, a := range c.Args {
		if v, ok := a.(*Variable); ok && v.IsLogic() {
			return true
		}
	}
	return false
}

type AttributeAccess struct {
	Position
	Object    Node   `json:"object"`
	Attribute string `json:"attribute"`
}

// Slice is only valid as the Index of a SubscriptAccess.
type Slice struct {
	Position
	Start Node `json:"start,omitempty"`
	End   Node `json:"end,omitempty"`
	Step  Node `json:"step,omitempty"`
}

type SubscriptAccess struct {
	Position
	Object Node `json:"object"`
	Index  Node `json:"index"`
}

type AttributeAssignment struct {
	Position
	Object    Node   `json:"object"`
	Attribute string `json:"attribute"`
	Value     Node   `json:"value"`
}

type SubscriptAssignment struct {
	Position
	Object Node `json:"object"`
	Index  Node `json:"index"`
	Value  Node `json:"value"`
}

type MethodCall struct {
	Position
	Object    Node       `json:"object"`
	Method    string     `json:"method"`
	Args      []Node     `json:"args"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
}

type SelfReference struct {
	Position
}

// SuperCall is super().Method(Args...).
type SuperCall struct {
	Position
	Method    string     `json:"method"`
	Args      []Node     `json:"args"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
}

type AwaitExpr struct {
	Position
	Value Node `json:"value"`
}

// YieldExpr suspends a generator. It is only legal in statement position.
type YieldExpr struct {
	Position
	Value Node `json:"value,omitempty"`
}

// --- Definitions ---

// Parameter is a formal parameter. Variadic collects extra positional
// arguments (*args); Keywords collects extra named arguments (**kwargs).
type Parameter struct {
	Name     string `json:"name"`
	Default  Node   `json:"default,omitempty"`
	Variadic bool   `json:"variadic,omitempty"`
	Keywords bool   `json:"keywords,omitempty"`
}

// Decorator is @Name or @Name(Args...). Call is set for the factory form
// even when the argument list is empty.
type Decorator struct {
	Name string `json:"name"`
	Args []Node `json:"args,omitempty"`
	Call bool   `json:"call,omitempty"`
}

// IsFactory reports whether the decorator must be called before it wraps.
func (d Decorator) IsFactory() bool { return d.Call || len(d.Args) > 0 }

type FunctionDef struct {
	Position
	Name       string      `json:"name"`
	Params     []Parameter `json:"params"`
	Body       *Block      `json:"body"`
	Decorators []Decorator `json:"decorators,omitempty"`
	Async      bool        `json:"async,omitempty"`
}

type ClassDef struct {
	Position
	Name  string   `json:"name"`
	Bases []string `json:"bases,omitempty"`
	Body  *Block   `json:"body"`
}

// --- Statements ---

// IfStatement's Else is a *Block or, for elif chains, another *IfStatement.
type IfStatement struct {
	Position
	Condition Node   `json:"condition"`
	Then      *Block `json:"then"`
	Else      Node   `json:"else,omitempty"`
}

// ForLoop binds Variable, or unpacks into Variables when set.
type ForLoop struct {
	Position
	Variable  string   `json:"variable"`
	Variables []string `json:"variables,omitempty"`
	Iterable  Node     `json:"iterable"`
	Body      *Block   `json:"body"`
}

type WhileLoop struct {
	Position
	Condition Node   `json:"condition"`
	Body      *Block `json:"body"`
}

type ReturnStatement struct {
	Position
	Value Node `json:"value,omitempty"`
}

type BreakStatement struct {
	Position
}

type ContinueStatement struct {
	Position
}

type PrintStatement struct {
	Position
	Value Node `json:"value"`
}

type ImportStatement struct {
	Position
	Module string `json:"module"`
	Alias  string `json:"alias,omitempty"`
}

// FromImportStatement imports Names from Module; Aliases parallels Names
// with empty strings for unaliased entries.
type FromImportStatement struct {
	Position
	Module  string   `json:"module"`
	Names   []string `json:"names"`
	Aliases []string `json:"aliases,omitempty"`
}

// RaiseStatement with a nil Value re-raises the active exception.
type RaiseStatement struct {
	Position
	Value Node `json:"value,omitempty"`
}

// ExceptHandler with an empty Type is a bare except.
type ExceptHandler struct {
	Type  string `json:"exception_type,omitempty"`
	Alias string `json:"alias,omitempty"`
	Body  *Block `json:"body"`
}

type TryExcept struct {
	Position
	Body     *Block          `json:"body"`
	Handlers []ExceptHandler `json:"handlers,omitempty"`
	Finally  *Block          `json:"finally,omitempty"`
}

type WithStatement struct {
	Position
	Context Node   `json:"context"`
	Target  string `json:"target,omitempty"`
	Body    *Block `json:"body"`
}

// --- Logic and entity constructs ---

// PredicateExpr is name(args...) in a logic position. Arguments that are
// logic Variables become logic variables; anything else is evaluated.
type PredicateExpr struct {
	Position
	Name string `json:"name"`
	Args []Node `json:"args"`
}

// Query proves Goals as a conjunction and evaluates to the list of
// solutions, each a dict from variable name (without "?") to value.
type Query struct {
	Position
	Goals []*PredicateExpr `json:"goals"`
}

type FactDecl struct {
	Position
	Fact *PredicateExpr `json:"fact"`
}

type RuleDecl struct {
	Position
	Head *PredicateExpr   `json:"head"`
	Body []*PredicateExpr `json:"body"`
}

// EntityDecl declares an entity from a spec expression (normally a Dict
// using the bilingual keys understood by the entity engine).
type EntityDecl struct {
	Position
	Name string `json:"name"`
	Spec Node   `json:"spec,omitempty"`
}

// ApplyAction is "apply Actor.Action(Target, action_value=Value)".
type ApplyAction struct {
	Position
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Target string `json:"target"`
	Value  Node   `json:"value,omitempty"`
}

func (*Program) node()             {}
func (*Block) node()               {}
func (*Assignment) node()          {}
func (*BinaryOp) node()            {}
func (*UnaryOp) node()             {}
func (*Number) node()              {}
func (*String) node()              {}
func (*Boolean) node()             {}
func (*None) node()                {}
func (*Variable) node()            {}
func (*List) node()                {}
func (*Tuple) node()               {}
func (*Dict) node()                {}
func (*ListComprehension) node()   {}
func (*FunctionCall) node()        {}
func (*AttributeAccess) node()     {}
func (*Slice) node()               {}
func (*SubscriptAccess) node()     {}
func (*AttributeAssignment) node() {}
func (*SubscriptAssignment) node() {}
func (*MethodCall) node()          {}
func (*SelfReference) node()       {}
func (*SuperCall) node()           {}
func (*AwaitExpr) node()           {}
func (*YieldExpr) node()           {}
func (*FunctionDef) node()         {}
func (*ClassDef) node()            {}
func (*IfStatement) node()         {}
func (*ForLoop) node()             {}
func (*WhileLoop) node()           {}
func (*ReturnStatement) node()     {}
func (*BreakStatement) node()      {}
func (*ContinueStatement) node()   {}
func (*PrintStatement) node()      {}
func (*ImportStatement) node()     {}
func (*FromImportStatement) node() {}
func (*RaiseStatement) node()      {}
func (*TryExcept) node()           {}
func (*WithStatement) node()       {}
func (*PredicateExpr) node()       {}
func (*Query) node()               {}
func (*FactDecl) node()            {}
func (*RuleDecl) node()            {}
func (*EntityDecl) node()          {}
func (*ApplyAction) node()         {}
