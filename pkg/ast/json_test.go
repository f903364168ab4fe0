package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProgramSimpleAssignAndPrint(t *testing.T) {
	src := `{
		"statements": [
			{"node": "Assign", "name": "x", "mutable": true, "value": {"node": "Number", "value": 5}},
			{"node": "Print", "value": {"node": "Var", "name": "x"}}
		]
	}`
	prog, err := DecodeProgram([]byte(src))
	require.NoError(t, err)
	require.Len(t, prog.Statements, 2)

	assign, ok := prog.Statements[0].(*Assign)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Name)
	assert.True(t, assign.IsMutable)
	num, ok := assign.Value.(*Number)
	require.True(t, ok)
	assert.Equal(t, 5.0, num.Value)

	print, ok := prog.Statements[1].(*Print)
	require.True(t, ok)
	v, ok := print.Value.(*Var)
	require.True(t, ok)
	assert.Equal(t, "x", v.Name)
}

func TestDecodeProgramBinOpAndCall(t *testing.T) {
	src := `{
		"statements": [
			{"node": "ExpressionStatement", "expression": {
				"node": "BinOp", "op": "add",
				"left": {"node": "Number", "value": 1},
				"right": {"node": "Call", "name": "double", "args": [{"node": "Number", "value": 2}]}
			}}
		]
	}`
	prog, err := DecodeProgram([]byte(src))
	require.NoError(t, err)
	stmt, ok := prog.Statements[0].(*ExpressionStatement)
	require.True(t, ok)
	bin, ok := stmt.Expression.(*BinOp)
	require.True(t, ok)
	assert.Equal(t, OpAdd, bin.Op)
	call, ok := bin.Right.(*Call)
	require.True(t, ok)
	assert.Equal(t, "double", call.Name)
	assert.Len(t, call.Args, 1)
}

func TestDecodeProgramIfWithElse(t *testing.T) {
	src := `{
		"statements": [
			{"node": "If",
			 "condition": {"node": "Bool", "value": true},
			 "block": [{"node": "Print", "value": {"node": "String", "value": "yes"}}],
			 "elseBlock": [{"node": "Print", "value": {"node": "String", "value": "no"}}]
			}
		]
	}`
	prog, err := DecodeProgram([]byte(src))
	require.NoError(t, err)
	ifStmt, ok := prog.Statements[0].(*If)
	require.True(t, ok)
	assert.Len(t, ifStmt.Block, 1)
	assert.Len(t, ifStmt.ElseBlock, 1)
}

func TestDecodeStatementSingle(t *testing.T) {
	stmt, err := DecodeStatement([]byte(`{"node": "Raise", "message": {"node": "String", "value": "boom"}}`))
	require.NoError(t, err)
	raise, ok := stmt.(*Raise)
	require.True(t, ok)
	msg, ok := raise.Message.(*String)
	require.True(t, ok)
	assert.Equal(t, "boom", msg.Value)
}

func TestDecodeProgramUnknownNodeErrors(t *testing.T) {
	_, err := DecodeProgram([]byte(`{"statements": [{"node": "Bogus"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown statement node")
}
