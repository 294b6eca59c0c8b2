package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const worldDir = "../world/testdata/meal"

// serveMealProgram applies the meal action once and prints the new hunger.
const serveMealProgram = `{"type": "Program", "body": [
  {"type": "ApplyAction", "actor": "أحمد", "action": "تقديم_وجبة", "target": "أحمد"},
  {"type": "FactDecl", "fact": {"type": "PredicateExpr", "name": "parent", "args": [{"type": "Variable", "name": "ali"}, {"type": "Variable", "name": "zaid"}]}},
  {"type": "PrintStatement", "value": {"type": "FunctionCall", "name": "get_state",
    "args": [{"type": "String", "value": "أحمد"}, {"type": "String", "value": "جوع"}]}}
]}`

const divideProgram = `{"type": "Program", "body": [
  {"type": "Assignment", "line": 1, "column": 1, "name": "x", "value": {"type": "Number", "value": 1}},
  {"type": "Assignment", "line": 2, "column": 1, "name": "y", "value":
    {"type": "BinaryOp", "line": 2, "column": 5, "operator": "/", "left": {"type": "Variable", "name": "x"}, "right": {"type": "Number", "value": 0}}}
]}`

// recurseProgram defines a function that never stops calling itself.
const recurseProgram = `{"type": "Program", "body": [
  {"type": "FunctionDef", "line": 1, "column": 1, "name": "f", "params": [{"name": "n"}],
   "body": {"type": "Block", "statements": [
     {"type": "ReturnStatement", "value": {"type": "FunctionCall", "name": "f", "args": [
       {"type": "BinaryOp", "operator": "+", "left": {"type": "Variable", "name": "n"}, "right": {"type": "Number", "value": 1}}]}}
   ]}},
  {"type": "FunctionCall", "line": 3, "column": 1, "name": "f", "args": [{"type": "Number", "value": 0}]}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
