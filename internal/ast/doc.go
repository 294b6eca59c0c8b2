// Package ast defines the syntax tree consumed by the Bayan interpreter.
//
// The tree is produced by an external front end. This package only fixes
// the node shapes and provides Decode, which reads a tree serialized as
// JSON where every node object carries a "type" tag naming its Go type:
//
//	{"type": "Program", "body": [
//	  {"type": "Assignment", "line": 1, "column": 1, "name": "x",
//	   "value": {"type": "Number", "value": 1}}
//	]}
//
// Every node embeds a Position. Positions are 1-based; a zero Line means
// the producer did not record one.
//
// Node is a sealed interface: only types in this package implement it,
// so evaluators can switch over the full set exhaustively.
package ast
