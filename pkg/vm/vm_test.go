package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/kristofer/kronos/pkg/ast"
	"github.com/kristofer/kronos/pkg/builtins"
	"github.com/kristofer/kronos/pkg/compiler"
	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runProgram(t *testing.T, stmts ...ast.Statement) (string, error) {
	t.Helper()
	rt := kruntime.NewStandaloneRuntime()
	c := compiler.New(rt)
	bc, err := c.Compile(&ast.Program{Statements: stmts})
	require.NoError(t, err)

	vm := New(rt, builtins.NewRegistry())
	var buf bytes.Buffer
	vm.SetOutput(&buf)
	runErr := vm.Run(context.Background(), bc)
	return buf.String(), runErr
}

func TestArithmeticPrecedencePrint(t *testing.T) {
	out, err := runProgram(t, &ast.Print{Value: &ast.BinOp{
		Op:   ast.OpAdd,
		Left: &ast.Number{Value: 1},
		Right: &ast.BinOp{
			Op:    ast.OpMul,
			Left:  &ast.Number{Value: 2},
			Right: &ast.Number{Value: 3},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestMutableReassignment(t *testing.T) {
	out, err := runProgram(t,
		&ast.Assign{Name: "x", Value: &ast.Number{Value: 5}, IsMutable: true},
		&ast.Assign{Name: "x", Value: &ast.Number{Value: 6}, IsMutable: true},
		&ast.Print{Value: &ast.Var{Name: "x"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestImmutableReassignmentFatal(t *testing.T) {
	_, err := runProgram(t,
		&ast.Assign{Name: "x", Value: &ast.Number{Value: 5}, IsMutable: false},
		&ast.Assign{Name: "x", Value: &ast.Number{Value: 6}, IsMutable: false},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")
}

func TestTypeAnnotationEnforcedOnLaterStore(t *testing.T) {
	_, err := runProgram(t,
		&ast.Assign{Name: "x", Value: &ast.Number{Value: 5}, IsMutable: true, HasType: true, TypeName: "number"},
		&ast.Assign{Name: "x", Value: &ast.String{Value: "oops"}, IsMutable: true},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Type mismatch")
}

func TestFunctionCallReturnsSum(t *testing.T) {
	out, err := runProgram(t,
		&ast.Function{
			Name:   "add",
			Params: []string{"a", "b"},
			Block: []ast.Statement{
				&ast.Return{Value: &ast.BinOp{Op: ast.OpAdd, Left: &ast.Var{Name: "a"}, Right: &ast.Var{Name: "b"}}},
			},
		},
		&ast.Print{Value: &ast.Call{Name: "add", Args: []ast.Expression{&ast.Number{Value: 2}, &ast.Number{Value: 3}}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestRecursiveFunctionDoesNotSeeCallerLocals(t *testing.T) {
	// factorial(n) = n <= 1 ? 1 : n * factorial(n - 1)
	out, err := runProgram(t,
		&ast.Function{
			Name:   "fact",
			Params: []string{"n"},
			Block: []ast.Statement{
				&ast.If{
					Condition: &ast.BinOp{Op: ast.OpLte, Left: &ast.Var{Name: "n"}, Right: &ast.Number{Value: 1}},
					Block:     []ast.Statement{&ast.Return{Value: &ast.Number{Value: 1}}},
					ElseBlock: []ast.Statement{&ast.Return{Value: &ast.BinOp{
						Op:   ast.OpMul,
						Left: &ast.Var{Name: "n"},
						Right: &ast.Call{Name: "fact", Args: []ast.Expression{
							&ast.BinOp{Op: ast.OpSub, Left: &ast.Var{Name: "n"}, Right: &ast.Number{Value: 1}},
						}},
					}}},
				},
			},
		},
		&ast.Print{Value: &ast.Call{Name: "fact", Args: []ast.Expression{&ast.Number{Value: 5}}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out)

	// g cannot read the y its caller f bound in f's own scope.
	_, err = runProgram(t,
		&ast.Function{Name: "g", Block: []ast.Statement{&ast.Return{Value: &ast.Var{Name: "y"}}}},
		&ast.Function{Name: "f", Block: []ast.Statement{
			&ast.Assign{Name: "y", Value: &ast.Number{Value: 1}, IsMutable: true},
			&ast.Return{Value: &ast.Call{Name: "g"}},
		}},
		&ast.Print{Value: &ast.Call{Name: "f"}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable")
}

func TestListNegativeIndexPrintsLastElement(t *testing.T) {
	out, err := runProgram(t,
		&ast.Assign{Name: "xs", Value: &ast.List{Elements: []ast.Expression{
			&ast.Number{Value: 10}, &ast.Number{Value: 20}, &ast.Number{Value: 30},
		}}, IsMutable: true},
		&ast.Print{Value: &ast.Index{ListExpr: &ast.Var{Name: "xs"}, IndexExp: &ast.Number{Value: -1}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)
}

func TestMapLiteralGetAndSet(t *testing.T) {
	out, err := runProgram(t,
		&ast.Assign{Name: "m", Value: &ast.Map{
			Keys:   []ast.Expression{&ast.String{Value: "a"}},
			Values: []ast.Expression{&ast.Number{Value: 1}},
		}, IsMutable: true},
		&ast.Print{Value: &ast.Index{ListExpr: &ast.Var{Name: "m"}, IndexExp: &ast.String{Value: "a"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestForListLoopSums(t *testing.T) {
	out, err := runProgram(t,
		&ast.Assign{Name: "total", Value: &ast.Number{Value: 0}, IsMutable: true},
		&ast.For{
			Var:      "item",
			Iterable: &ast.List{Elements: []ast.Expression{&ast.Number{Value: 1}, &ast.Number{Value: 2}, &ast.Number{Value: 3}}},
			Block: []ast.Statement{
				&ast.Assign{Name: "total", Value: &ast.BinOp{Op: ast.OpAdd, Left: &ast.Var{Name: "total"}, Right: &ast.Var{Name: "item"}}, IsMutable: true},
			},
		},
		&ast.Print{Value: &ast.Var{Name: "total"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestForRangeLoopSums(t *testing.T) {
	out, err := runProgram(t,
		&ast.Assign{Name: "total", Value: &ast.Number{Value: 0}, IsMutable: true},
		&ast.For{
			Var:     "i",
			IsRange: true,
			Start:   &ast.Number{Value: 1},
			End:     &ast.Number{Value: 3},
			Block: []ast.Statement{
				&ast.Assign{Name: "total", Value: &ast.BinOp{Op: ast.OpAdd, Left: &ast.Var{Name: "total"}, Right: &ast.Var{Name: "i"}}, IsMutable: true},
			},
		},
		&ast.Print{Value: &ast.Var{Name: "total"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestTryCatchRecoversFromRaise(t *testing.T) {
	out, err := runProgram(t, &ast.Try{
		TryBlock: []ast.Statement{
			&ast.Raise{Message: &ast.String{Value: "boom"}},
		},
		CatchBlocks: []ast.CatchBlock{
			{CatchVar: "e", CatchBlock: []ast.Statement{&ast.Print{Value: &ast.Var{Name: "e"}}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "boom\n", out)
}

func TestUncaughtRaiseIsFatal(t *testing.T) {
	_, err := runProgram(t, &ast.Raise{Message: &ast.String{Value: "boom"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uncaught exception")
}

func TestModOperatorComputesRemainder(t *testing.T) {
	out, err := runProgram(t, &ast.Print{Value: &ast.BinOp{
		Op: ast.OpMod, Left: &ast.Number{Value: 7}, Right: &ast.Number{Value: 3},
	}})
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestModByZeroIsFatal(t *testing.T) {
	_, err := runProgram(t, &ast.ExpressionStatement{Expression: &ast.BinOp{
		Op: ast.OpMod, Left: &ast.Number{Value: 1}, Right: &ast.Number{Value: 0},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Division by zero")
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	_, err := runProgram(t, &ast.ExpressionStatement{Expression: &ast.BinOp{
		Op: ast.OpDiv, Left: &ast.Number{Value: 1}, Right: &ast.Number{Value: 0},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Division by zero")
}

func TestUndefinedVariableIsFatal(t *testing.T) {
	_, err := runProgram(t, &ast.Print{Value: &ast.Var{Name: "nope"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable")
}

func TestCallFuncContextCancellationStopsExecution(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	c := compiler.New(rt)
	bc, err := c.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.Function{Name: "f", Params: nil, Block: []ast.Statement{&ast.Return{Value: &ast.Number{Value: 1}}}},
		&ast.Print{Value: &ast.Call{Name: "f"}},
	}})
	require.NoError(t, err)

	vmachine := New(rt, builtins.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runErr := vmachine.Run(ctx, bc)
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "cancelled")
}

func TestBuiltinStringHelpers(t *testing.T) {
	out, err := runProgram(t, &ast.Print{Value: &ast.Call{
		Name: "uppercase",
		Args: []ast.Expression{&ast.String{Value: "hi"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "HI\n", out)
}
