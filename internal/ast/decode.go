package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// DecodeError reports a malformed node with the JSON path where it occurred.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var constructors = map[string]func() Node{}

func register(ctors ...func() Node) {
	for _, ctor := range ctors {
		constructors[Kind(ctor())] = ctor
	}
}

func init() {
	register(
		func() Node { return &Program{} },
		func() Node { return &Block{} },
		func() Node { return &Assignment{} },
		func() Node { return &BinaryOp{} },
		func() Node { return &UnaryOp{} },
		func() Node { return &Number{} },
		func() Node { return &String{} },
		func() Node { return &Boolean{} },
		func() Node { return &None{} },
		func() Node { return &Variable{} },
		func() Node { return &List{} },
		func() Node { return &Tuple{} },
		func() Node { return &Dict{} },
		func() Node { return &ListComprehension{} },
		func() Node { return &FunctionCall{} },
		func() Node { return &AttributeAccess{} },
		func() Node { return &Slice{} },
		func() Node { return &SubscriptAccess{} },
		func() Node { return &AttributeAssignment{} },
		func() Node { return &SubscriptAssignment{} },
		func() Node { return &MethodCall{} },
		func() Node { return &SelfReference{} },
		func() Node { return &SuperCall{} },
		func() Node { return &AwaitExpr{} },
		func() Node { return &YieldExpr{} },
		func() Node { return &FunctionDef{} },
		func() Node { return &ClassDef{} },
		func() Node { return &IfStatement{} },
		func() Node { return &ForLoop{} },
		func() Node { return &WhileLoop{} },
		func() Node { return &ReturnStatement{} },
		func() Node { return &BreakStatement{} },
		func() Node { return &ContinueStatement{} },
		func() Node { return &PrintStatement{} },
		func() Node { return &ImportStatement{} },
		func() Node { return &FromImportStatement{} },
		func() Node { return &RaiseStatement{} },
		func() Node { return &TryExcept{} },
		func() Node { return &WithStatement{} },
		func() Node { return &PredicateExpr{} },
		func() Node { return &Query{} },
		func() Node { return &FactDecl{} },
		func() Node { return &RuleDecl{} },
		func() Node { return &EntityDecl{} },
		func() Node { return &ApplyAction{} },
	)
}

var nodeInterface = reflect.TypeOf((*Node)(nil)).Elem()

// Decode reads a JSON-encoded syntax tree.
func Decode(data []byte) (Node, error) {
	n, err := decodeNode(json.RawMessage(data), "$")
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &DecodeError{Path: "$", Err: fmt.Errorf("empty document")}
	}
	return n, nil
}

func decodeNode(raw json.RawMessage, path string) (Node, error) {
	if isNull(raw) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	var kind string
	if t, ok := fields["type"]; ok {
		if err := json.Unmarshal(t, &kind); err != nil {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("type tag: %w", err)}
		}
	}
	ctor, ok := constructors[kind]
	if !ok {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unknown node type %q", kind)}
	}
	n := ctor()
	if err := decodeStruct(raw, fields, reflect.ValueOf(n).Elem(), path+"<"+kind+">"); err != nil {
		return nil, err
	}
	if num, ok := n.(*Number); ok {
		if _, set := fields["integer"]; !set {
			num.Integer = isIntegerLiteral(fields["value"])
		}
	}
	return n, nil
}

func decodeStruct(raw json.RawMessage, fields map[string]json.RawMessage, v reflect.Value, path string) error {
	if fields == nil {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return &DecodeError{Path: path, Err: err}
		}
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			if err := json.Unmarshal(raw, v.Field(i).Addr().Interface()); err != nil {
				return &DecodeError{Path: path, Err: err}
			}
			continue
		}
		name := jsonName(f)
		fr, ok := fields[name]
		if !ok || name == "" {
			continue
		}
		if err := decodeValue(fr, v.Field(i), path+"."+name); err != nil {
			return err
		}
	}
	return nil
}

func decodeValue(raw json.RawMessage, v reflect.Value, path string) error {
	t := v.Type()
	switch {
	case t == nodeInterface:
		n, err := decodeNode(raw, path)
		if err != nil {
			return err
		}
		if n != nil {
			v.Set(reflect.ValueOf(n))
		}
	case t.Kind() == reflect.Pointer && t.Implements(nodeInterface):
		n, err := decodeNode(raw, path)
		if err != nil || n == nil {
			return err
		}
		nv := reflect.ValueOf(n)
		if nv.Type() != t {
			return &DecodeError{Path: path, Err: fmt.Errorf("expected %s, got %s", t.Elem().Name(), Kind(n))}
		}
		v.Set(nv)
	case t.Kind() == reflect.Slice:
		if isNull(raw) {
			return nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return &DecodeError{Path: path, Err: err}
		}
		s := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := decodeValue(item, s.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		v.Set(s)
	case t.Kind() == reflect.Struct:
		return decodeStruct(raw, nil, v, path)
	default:
		if err := json.Unmarshal(raw, v.Addr().Interface()); err != nil {
			return &DecodeError{Path: path, Err: err}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isIntegerLiteral(raw json.RawMessage) bool {
	text := bytes.TrimSpace(raw)
	if len(text) == 0 {
		return false
	}
	return !bytes.ContainsAny(text, ".eE")
}
