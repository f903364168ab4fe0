package bytecode

import (
	"testing"

	"github.com/kristofer/kronos/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddConstantIndexing(t *testing.T) {
	bc := New()
	idx0, err := bc.AddConstant(value.NewNumber(1))
	require.NoError(t, err)
	idx1, err := bc.AddConstant(value.NewNumber(2))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), idx0)
	assert.Equal(t, uint16(1), idx1)
	assert.Equal(t, 2, len(bc.Constants))
}

func TestAddConstantOverflow(t *testing.T) {
	bc := &Bytecode{Constants: make([]*value.Value, maxConstants)}
	_, err := bc.AddConstant(value.NewNumber(0))
	require.Error(t, err)
	assert.Equal(t, errTooManyConstants, err)
}

func TestEmitU16RoundTrips(t *testing.T) {
	bc := New()
	pos, err := bc.EmitU16(LoadConst, 0x1234)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, []byte{byte(LoadConst), 0x12, 0x34}, bc.Code)
	assert.Equal(t, uint16(0x1234), ReadU16(bc.Code, 1))
}

func TestPatchJumpForward(t *testing.T) {
	bc := New()
	_, _ = bc.EmitOp(LoadConst) // filler so offsetPos isn't 0
	offsetPos, err := bc.EmitJump(JumpIfFalse)
	require.NoError(t, err)
	_, _ = bc.EmitOp(Pop)
	_, _ = bc.EmitOp(Pop)
	target := bc.Here()
	bc.PatchJump(offsetPos, target)

	got := ReadI16(bc.Code, offsetPos)
	assert.Equal(t, int16(target-(offsetPos+2)), got)
}

func TestPatchJumpBackward(t *testing.T) {
	bc := New()
	loopStart := bc.Here()
	_, _ = bc.EmitOp(Pop)
	offsetPos, err := bc.EmitJump(Jump)
	require.NoError(t, err)
	bc.PatchJump(offsetPos, loopStart)

	got := ReadI16(bc.Code, offsetPos)
	assert.Less(t, got, int16(0))
}

func TestOpcodeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "LOAD_CONST", LoadConst.String())
	assert.Equal(t, "HALT", Halt.String())
	assert.Equal(t, "UNKNOWN", Opcode(255).String())
}

func TestDisassembleRendersConstants(t *testing.T) {
	bc := New()
	idx, err := bc.AddConstant(value.NewNumber(42))
	require.NoError(t, err)
	_, err = bc.EmitU16(LoadConst, idx)
	require.NoError(t, err)
	_, err = bc.EmitOp(Print)
	require.NoError(t, err)
	_, err = bc.EmitOp(Halt)
	require.NoError(t, err)

	out := Disassemble(bc)
	assert.Contains(t, out, "LOAD_CONST")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "PRINT")
	assert.Contains(t, out, "HALT")
}
