// Package bytecode defines the instruction format the compiler emits and
// the VM executes.
//
// The bytecode is the low-level intermediate representation sitting
// between the compiler and the virtual machine. It is a flat byte stream
// plus a parallel constant pool, in the spirit of a stack machine:
//
//   1. Values are pushed onto and popped from an operand stack.
//   2. Instructions consume operands from the stack and push results back.
//   3. Variables live in named scopes, not a fixed local-slot array.
//   4. Function calls use a name-indexed registry rather than static
//      binding, so built-ins and user functions share one dispatch point.
//
// Example compilation:
//
//   Source:  let x = 10  x + 5
//
//   Bytecode:
//     LOAD_CONST 0      ; constants[0] == 10
//     STORE_VAR 1 mut   ; constants[1] == "x"
//     LOAD_VAR 1        ; push x
//     LOAD_CONST 2      ; constants[2] == 5
//     ADD               ; pop two, push sum
//     POP
//
// Instruction format:
//
// Every instruction is one opcode byte followed by zero or more operand
// bytes, all big-endian. The operand layout is fixed per opcode (see the
// doc comment on each Opcode constant below), so decoding never needs a
// length table: the VM's dispatch loop and this package's Disassemble both
// derive operand width from the opcode alone.
package bytecode

import (
	"fmt"

	"github.com/kristofer/kronos/pkg/value"
)

// Opcode identifies one bytecode instruction. Opcodes are single bytes.
type Opcode byte

// The instruction set. Doc comments give the operand layout and stack
// effect; `->` reads "stack before -> stack after", top of stack on the
// right.
const (
	// === Constants & variables ===

	// LoadConst pushes constants[idx] (retained).
	// Operands: u16 idx.
	LoadConst Opcode = iota

	// LoadVar looks up the variable named constants[nameIdx] in the
	// current scope chain and pushes it (retained). Fatal if undefined.
	// Operands: u16 nameIdx.
	LoadVar

	// StoreVar binds or rebinds a variable in the innermost scope,
	// releasing any previous value and retaining the new one. Fatal if
	// the variable is already bound and immutable. When hasType is
	// nonzero, typeIdx names the annotation the VM enforces on every
	// future store to this binding.
	// Operands: u16 nameIdx, u8 mutable, u8 hasType, [u16 typeIdx].
	// Stack: v ->
	StoreVar

	// === I/O ===

	// Print writes the top of stack to stdout and discards it.
	// Stack: v ->
	Print

	// Pop discards the top of stack.
	// Stack: v ->
	Pop

	// === Arithmetic ===

	// Add pops two numbers and pushes their sum; on two strings,
	// concatenates; on a mix of string and number, coerces the
	// non-string operand via the to_string built-in first.
	// Stack: a b -> r
	Add
	// Sub pops two numbers and pushes their difference.
	// Stack: a b -> r
	Sub
	// Mul pops two numbers and pushes their product.
	// Stack: a b -> r
	Mul
	// Div pops two numbers and pushes their quotient. Fatal on division
	// by zero.
	// Stack: a b -> r
	Div
	// Mod pops two numbers and pushes the remainder of a / b (Go's
	// math.Mod). Fatal on division by zero.
	// Stack: a b -> r
	Mod

	// === Comparison ===

	// Eq pushes whether a equals b (value equality per pkg/value).
	// Stack: a b -> r
	Eq
	// Neq is the negation of Eq.
	// Stack: a b -> r
	Neq
	// Gt pushes whether a > b (numeric ordering).
	// Stack: a b -> r
	Gt
	// Lt pushes whether a < b.
	// Stack: a b -> r
	Lt
	// Gte pushes whether a >= b.
	// Stack: a b -> r
	Gte
	// Lte pushes whether a <= b.
	// Stack: a b -> r
	Lte

	// === Logic ===

	// And pushes the truthiness AND of its two operands.
	// Stack: a b -> r
	And
	// Or pushes the truthiness OR of its two operands.
	// Stack: a b -> r
	Or
	// Not pushes the logical negation of its operand's truthiness.
	// Stack: a -> r
	Not

	// === Control flow ===

	// Jump adds a signed 16-bit offset to pc, relative to the byte after
	// the offset field.
	// Operands: i16 offset.
	Jump

	// JumpIfFalse pops the top of stack; if it is not truthy, adds the
	// offset to pc the same way Jump does.
	// Operands: i16 offset.
	// Stack: v ->
	JumpIfFalse

	// DefineFunc registers a function in the VM's function table: name,
	// parameter names, and the absolute pc of its first instruction. The
	// compiler always follows this instruction with a plain JUMP that
	// hops over the body during top-level execution, so the body only
	// runs when CALL_FUNC sets pc to bodyStart directly.
	// Operands: u16 nameIdx, u8 arity, u16 paramIdx * arity, u16
	// bodyStart.
	DefineFunc

	// CallFunc invokes a built-in or user function by name, popping argc
	// arguments in reverse and pushing its result.
	// Operands: u16 nameIdx, u8 argc.
	// Stack: args... -> ret
	CallFunc

	// ReturnVal pops the return value, pops the current scope (releasing
	// its bindings) and call frame, and resumes at the caller's pc.
	// Stack: v -> (frame pop)
	ReturnVal

	// === Lists & maps ===
	//
	// The opcode inventory covers List explicitly; Map (named in the AST
	// input contract alongside List) reuses LIST_GET/LIST_SET
	// polymorphically: the VM dispatches on the receiver's runtime tag,
	// doing positional indexing for a List and key lookup (via
	// value.Equals/value.Hash) for a Map. MAP_NEW is the one opcode Map
	// needs that List does not, since map literals are built through a
	// hidden temporary variable rather than a chained append.

	// ListNew pushes a new empty list. The operand is a reserved
	// capacity hint only; it does not affect semantics.
	// Operands: u16 initialCount.
	// Stack: -> list
	ListNew

	// MapNew pushes a new empty map. The operand is a reserved bucket
	// capacity hint only.
	// Operands: u16 initialCount.
	// Stack: -> map
	MapNew

	// ListAppend pops an element, appends it to the list beneath it
	// (retaining), and leaves the list on the stack.
	// Stack: list elt -> list
	ListAppend

	// ListGet indexes a list (or string, or range materialized as a
	// list) by a possibly-negative index (counts from the end) and
	// pushes the element. Out of range is fatal.
	// Stack: list idx -> v
	ListGet

	// ListSet mutates list[idx] = v, releasing the old element and
	// retaining the new one.
	// Stack: list idx v ->
	ListSet

	// ListLen pushes the length of a list, string, or range.
	// Stack: v -> n
	ListLen

	// ListSlice pushes a new list containing list[start:end]. end == -1
	// is a sentinel meaning "through the end".
	// Stack: list start end -> sub
	ListSlice

	// ListIter begins iteration: pushes the list back plus index 0.
	// Stack: list -> list 0
	ListIter

	// ListNext advances an iteration: if idx < len, pushes idx+1, the
	// item at idx, and true; otherwise pushes idx+1, nil, and false.
	// Stack: list idx -> list idx+1 item hasMore
	ListNext

	// === Exception handling ===
	//
	// The AST input contract names Try and Raise but the core opcode
	// inventory does not; these three opcodes are the supplement that
	// makes both compilable, modeled as a handler stack parallel to the
	// call stack rather than as operand-stack values.

	// TryPush installs an exception handler: if a RAISE occurs before
	// the matching TryPop, execution resumes at pc_after_operand +
	// offset with the operand stack and scope chain truncated back to
	// what they were at TryPush time, and the raised value pushed.
	// Operands: i16 offset.
	TryPush

	// TryPop removes the innermost handler, run after a try block
	// completes without raising.
	TryPop

	// Raise pops a value and transfers control to the innermost
	// handler, or terminates the VM with that value's printed form if
	// no handler is installed.
	// Stack: v ->
	Raise

	// === Termination ===

	// Halt stops the VM's dispatch loop.
	Halt
)

var opcodeNames = [...]string{
	LoadConst:   "LOAD_CONST",
	LoadVar:     "LOAD_VAR",
	StoreVar:    "STORE_VAR",
	Print:       "PRINT",
	Pop:         "POP",
	Add:         "ADD",
	Sub:         "SUB",
	Mul:         "MUL",
	Div:         "DIV",
	Mod:         "MOD",
	Eq:          "EQ",
	Neq:         "NEQ",
	Gt:          "GT",
	Lt:          "LT",
	Gte:         "GTE",
	Lte:         "LTE",
	And:         "AND",
	Or:          "OR",
	Not:         "NOT",
	Jump:        "JUMP",
	JumpIfFalse: "JUMP_IF_FALSE",
	DefineFunc:  "DEFINE_FUNC",
	CallFunc:    "CALL_FUNC",
	ReturnVal:   "RETURN_VAL",
	ListNew:     "LIST_NEW",
	MapNew:      "MAP_NEW",
	ListAppend:  "LIST_APPEND",
	ListGet:     "LIST_GET",
	ListSet:     "LIST_SET",
	ListLen:     "LIST_LEN",
	ListSlice:   "LIST_SLICE",
	ListIter:    "LIST_ITER",
	ListNext:    "LIST_NEXT",
	TryPush:     "TRY_PUSH",
	TryPop:      "TRY_POP",
	Raise:       "RAISE",
	Halt:        "HALT",
}

// String returns a human-readable mnemonic for op, or "UNKNOWN" for an
// out-of-range byte.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

const (
	initialCodeCap      = 256
	initialConstantsCap = 32
	maxConstants        = 65535
)

// errTooManyConstants and errCapacityOverflow are the two compile-time
// fatal conditions named in the constant pool/bytecode buffer contract.
var (
	errTooManyConstants = fmt.Errorf("Too many constants (limit 65535)")
	errCapacityOverflow = fmt.Errorf("Bytecode capacity overflow")
)

// Bytecode is a compiled program: a flat instruction stream plus the pool
// of heap values its LOAD_CONST instructions reference. Both grow by
// doubling (Go's append already does this; the stated initial capacities
// mirror the spec's growable-vector description).
type Bytecode struct {
	Code      []byte
	Constants []*value.Value
}

// New returns an empty Bytecode with the spec's initial buffer capacities
// pre-reserved.
func New() *Bytecode {
	return &Bytecode{
		Code:      make([]byte, 0, initialCodeCap),
		Constants: make([]*value.Value, 0, initialConstantsCap),
	}
}

// AddConstant appends v to the constant pool (which takes ownership of
// the reference the caller passes in) and returns its index. Returns
// errTooManyConstants once the pool would need a u16 index it cannot
// represent.
func (b *Bytecode) AddConstant(v *value.Value) (uint16, error) {
	if len(b.Constants) >= maxConstants {
		return 0, errTooManyConstants
	}
	idx := len(b.Constants)
	b.Constants = append(b.Constants, v)
	return uint16(idx), nil
}

// emit appends raw bytes to the code buffer, reporting errCapacityOverflow
// only in the pathological case where doing so would overflow Go's own
// slice length limits.
func (b *Bytecode) emit(bytes ...byte) (int, error) {
	pos := len(b.Code)
	if pos > len(b.Code)+len(bytes) { // overflow of the int length itself
		return 0, errCapacityOverflow
	}
	b.Code = append(b.Code, bytes...)
	return pos, nil
}

// EmitOp appends a bare opcode with no operands and returns its position.
func (b *Bytecode) EmitOp(op Opcode) (int, error) {
	return b.emit(byte(op))
}

// EmitU16 appends op followed by a big-endian u16 operand.
func (b *Bytecode) EmitU16(op Opcode, operand uint16) (int, error) {
	return b.emit(byte(op), byte(operand>>8), byte(operand))
}

// EmitU16U8 appends op, a u16, then a u8 operand (the CALL_FUNC shape).
func (b *Bytecode) EmitU16U8(op Opcode, u16operand uint16, u8operand byte) (int, error) {
	return b.emit(byte(op), byte(u16operand>>8), byte(u16operand), u8operand)
}

// AppendU16 appends a raw big-endian u16 with no opcode, for multi-field
// operand layouts (DEFINE_FUNC's parameter index list) built up one field
// at a time after an initial EmitOp/EmitU16 call.
func (b *Bytecode) AppendU16(v uint16) (int, error) {
	return b.emit(byte(v>>8), byte(v))
}

// AppendU8 appends a single raw byte.
func (b *Bytecode) AppendU8(v byte) (int, error) {
	return b.emit(v)
}

// EmitJump appends op followed by a placeholder i16 offset and returns the
// position of the offset's first byte, for later PatchJump.
func (b *Bytecode) EmitJump(op Opcode) (int, error) {
	pos, err := b.emit(byte(op), 0, 0)
	if err != nil {
		return 0, err
	}
	return pos + 1, nil
}

// PatchJump writes a signed 16-bit offset at offsetPos, computed relative
// to the byte immediately after the two offset bytes (pc_after_operand in
// the spec's wording).
func (b *Bytecode) PatchJump(offsetPos int, target int) {
	after := offsetPos + 2
	offset := int32(target - after)
	b.Code[offsetPos] = byte(uint16(offset) >> 8)
	b.Code[offsetPos+1] = byte(uint16(offset))
}

// PutU16 overwrites two bytes at pos with a big-endian u16, used to
// back-patch DEFINE_FUNC's bodyStart field once the body has been
// compiled.
func (b *Bytecode) PutU16(pos int, v uint16) {
	b.Code[pos] = byte(v >> 8)
	b.Code[pos+1] = byte(v)
}

// Here returns the current end of the code buffer (the absolute pc the
// next emitted instruction will occupy).
func (b *Bytecode) Here() int { return len(b.Code) }

// ReadU16 decodes a big-endian u16 at pos.
func ReadU16(code []byte, pos int) uint16 {
	return uint16(code[pos])<<8 | uint16(code[pos+1])
}

// ReadI16 decodes a signed big-endian 16-bit jump offset at pos.
func ReadI16(code []byte, pos int) int16 {
	return int16(ReadU16(code, pos))
}
