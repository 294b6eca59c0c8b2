package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Program(t *testing.T) {
	doc := `{
	  "type": "Program",
	  "body": [
	    {"type": "Assignment", "line": 1, "column": 1, "name": "x",
	     "value": {"type": "Number", "value": 3}},
	    {"type": "FunctionDef", "line": 2, "column": 1, "name": "f",
	     "params": [{"name": "a"}, {"name": "b", "default": {"type": "Number", "value": 2.5}}],
	     "decorators": [{"name": "trace"}],
	     "body": {"type": "Block", "statements": [
	       {"type": "ReturnStatement", "value": {"type": "BinaryOp", "operator": "+",
	         "left": {"type": "Variable", "name": "a"}, "right": {"type": "Variable", "name": "b"}}}
	     ]}}
	  ]
	}`

	n, err := Decode([]byte(doc))
	require.NoError(t, err)

	prog, ok := n.(*Program)
	require.True(t, ok)
	require.Len(t, prog.Body, 2)

	assign := prog.Body[0].(*Assignment)
	assert.Equal(t, "x", assign.Name)
	assert.Equal(t, Position{Line: 1, Column: 1}, assign.Pos())
	num := assign.Value.(*Number)
	assert.Equal(t, 3.0, num.Value)
	assert.True(t, num.Integer)

	fn := prog.Body[1].(*FunctionDef)
	assert.Equal(t, "f", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Nil(t, fn.Params[0].Default)
	def := fn.Params[1].Default.(*Number)
	assert.False(t, def.Integer)
	assert.Equal(t, 2.5, def.Value)
	require.Len(t, fn.Decorators, 1)
	assert.False(t, fn.Decorators[0].IsFactory())
	require.Len(t, fn.Body.Statements, 1)
	ret := fn.Body.Statements[0].(*ReturnStatement)
	assert.Equal(t, "BinaryOp", Kind(ret.Value))
}

func TestDecode_LogicConstructs(t *testing.T) {
	doc := `{"type": "Query", "goals": [
	  {"type": "PredicateExpr", "name": "state",
	   "args": [{"type": "String", "value": "أحمد"}, {"type": "String", "value": "جوع"}, {"type": "Variable", "name": "?V"}]}
	]}`

	n, err := Decode([]byte(doc))
	require.NoError(t, err)

	q := n.(*Query)
	require.Len(t, q.Goals, 1)
	assert.Equal(t, "state", q.Goals[0].Name)
	v := q.Goals[0].Args[2].(*Variable)
	assert.True(t, v.IsLogic())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown type", `{"type": "Nope"}`, `unknown node type "Nope"`},
		{"missing type", `{"name": "x"}`, `unknown node type ""`},
		{"wrong pointer type", `{"type": "WhileLoop", "condition": {"type": "Boolean", "value": true}, "body": {"type": "None"}}`, "expected Block, got None"},
		{"null document", `null`, "empty document"},
		{"bad json", `{`, "decode $"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestFunctionCall_HasLogicArgs(t *testing.T) {
	plain := &FunctionCall{Name: "f", Args: []Node{&Variable{Name: "x"}}}
	logic := &FunctionCall{Name: "parent", Args: []Node{&String{Value: "a"}, &Variable{Name: "?Y"}}}

	assert.False(t, plain.HasLogicArgs())
	assert.True(t, logic.HasLogicArgs())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "TryExcept", Kind(&TryExcept{}))
	assert.Equal(t, "nil", Kind(nil))
}
