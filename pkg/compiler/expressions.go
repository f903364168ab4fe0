package compiler

import (
	"fmt"

	"github.com/kristofer/kronos/pkg/ast"
	"github.com/kristofer/kronos/pkg/bytecode"
)

var binOpOpcode = map[ast.BinOpKind]bytecode.Opcode{
	ast.OpAdd: bytecode.Add,
	ast.OpSub: bytecode.Sub,
	ast.OpMul: bytecode.Mul,
	ast.OpDiv: bytecode.Div,
	ast.OpMod: bytecode.Mod,
	ast.OpEq:  bytecode.Eq,
	ast.OpNeq: bytecode.Neq,
	ast.OpGt:  bytecode.Gt,
	ast.OpLt:  bytecode.Lt,
	ast.OpGte: bytecode.Gte,
	ast.OpLte: bytecode.Lte,
	ast.OpAnd: bytecode.And,
	ast.OpOr:  bytecode.Or,
}

// compileExpression emits code that leaves exactly one value on the
// operand stack.
func (c *Compiler) compileExpression(e ast.Expression) {
	if c.err != nil {
		return
	}
	switch n := e.(type) {
	case *ast.Number:
		idx := c.addConstant(c.rt.NewNumber(n.Value))
		c.emitU16(bytecode.LoadConst, idx)

	case *ast.String:
		idx := c.addConstant(c.rt.NewString([]byte(n.Value)))
		c.emitU16(bytecode.LoadConst, idx)

	case *ast.Bool:
		idx := c.addConstant(c.rt.NewBool(n.Value))
		c.emitU16(bytecode.LoadConst, idx)

	case *ast.Null:
		idx := c.addConstant(c.rt.NewNil())
		c.emitU16(bytecode.LoadConst, idx)

	case *ast.Var:
		idx := c.constName(n.Name)
		c.emitU16(bytecode.LoadVar, idx)

	case *ast.FString:
		c.compileFString(n)

	case *ast.BinOp:
		c.compileBinOp(n)

	case *ast.List:
		c.emitU16(bytecode.ListNew, 0)
		for _, elt := range n.Elements {
			c.compileExpression(elt)
			c.emitOp(bytecode.ListAppend)
		}

	case *ast.Map:
		c.compileMapLiteral(n)

	case *ast.Index:
		c.compileExpression(n.ListExpr)
		c.compileExpression(n.IndexExp)
		c.emitOp(bytecode.ListGet)

	case *ast.Slice:
		c.compileExpression(n.ListExpr)
		c.compileExpression(n.Start)
		if n.End == nil {
			idx := c.addConstant(c.rt.NewNumber(-1))
			c.emitU16(bytecode.LoadConst, idx)
		} else {
			c.compileExpression(n.End)
		}
		c.emitOp(bytecode.ListSlice)

	case *ast.Call:
		c.compileCall(n)

	default:
		c.fail("unsupported expression node: %T", e)
	}
}

func (c *Compiler) compileBinOp(n *ast.BinOp) {
	if n.Op == ast.OpNot {
		c.compileExpression(n.Left)
		c.emitOp(bytecode.Not)
		return
	}
	if n.Op == ast.OpNeg {
		// No dedicated negate opcode; compile as 0 - x.
		idx := c.addConstant(c.rt.NewNumber(0))
		c.emitU16(bytecode.LoadConst, idx)
		c.compileExpression(n.Left)
		c.emitOp(bytecode.Sub)
		return
	}
	op, ok := binOpOpcode[n.Op]
	if !ok {
		c.fail("unsupported binary operator %d", n.Op)
		return
	}
	c.compileExpression(n.Left)
	c.compileExpression(n.Right)
	c.emitOp(op)
}

// compileFString concatenates literal and expression parts: the first part
// (if a string) loads directly; every expression part is stringified via
// the to_string built-in before being ADDed on.
func (c *Compiler) compileFString(f *ast.FString) {
	if len(f.Parts) == 0 {
		idx := c.addConstant(c.rt.NewString(nil))
		c.emitU16(bytecode.LoadConst, idx)
		return
	}

	rest := f.Parts
	if s, ok := f.Parts[0].(*ast.String); ok {
		idx := c.addConstant(c.rt.NewString([]byte(s.Value)))
		c.emitU16(bytecode.LoadConst, idx)
		rest = f.Parts[1:]
	} else {
		idx := c.addConstant(c.rt.NewString(nil))
		c.emitU16(bytecode.LoadConst, idx)
	}

	for _, part := range rest {
		if s, ok := part.(*ast.String); ok {
			idx := c.addConstant(c.rt.NewString([]byte(s.Value)))
			c.emitU16(bytecode.LoadConst, idx)
			c.emitOp(bytecode.Add)
			continue
		}
		expr, ok := part.(ast.Expression)
		if !ok {
			c.fail("f-string part is not an expression: %T", part)
			return
		}
		c.compileExpression(expr)
		nameIdx := c.constName("to_string")
		c.emitU16U8(bytecode.CallFunc, nameIdx, 1)
		c.emitOp(bytecode.Add)
	}
}

func (c *Compiler) emitU16U8(op bytecode.Opcode, u16operand uint16, u8operand byte) int {
	if c.err != nil {
		return 0
	}
	pos, err := c.bc.EmitU16U8(op, u16operand, u8operand)
	if err != nil {
		c.fail("%s", err)
	}
	return pos
}

// compileMapLiteral builds a map through a hidden temporary variable,
// mirroring the hidden-iterator-variable trick used for list-form for
// loops: LIST_SET's generic "receiver key val ->" mutation is reused here
// with a Map receiver for each key/value pair.
func (c *Compiler) compileMapLiteral(n *ast.Map) {
	if len(n.Keys) != len(n.Values) {
		c.fail("map literal has %d keys but %d values", len(n.Keys), len(n.Values))
		return
	}
	c.emitU16(bytecode.MapNew, 0)
	tempName := fmt.Sprintf("__maplit_%d", c.nextIterSuffix())
	nameIdx := c.constName(tempName)
	c.emitStoreVar(nameIdx, true, false, 0)

	for i := range n.Keys {
		c.emitU16(bytecode.LoadVar, nameIdx)
		c.compileExpression(n.Keys[i])
		c.compileExpression(n.Values[i])
		c.emitOp(bytecode.ListSet)
	}
	c.emitU16(bytecode.LoadVar, nameIdx)
}

func (c *Compiler) compileCall(n *ast.Call) {
	for _, arg := range n.Args {
		c.compileExpression(arg)
	}
	if len(n.Args) > 255 {
		c.fail("too many arguments to %s (limit 255)", n.Name)
		return
	}
	nameIdx := c.constName(n.Name)
	c.emitU16U8(bytecode.CallFunc, nameIdx, byte(len(n.Args)))
}
