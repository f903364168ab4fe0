package vm

import (
	"math"

	"github.com/kristofer/kronos/pkg/bytecode"
	"github.com/kristofer/kronos/pkg/value"
)

// execArith handles ADD/SUB/MUL/DIV/MOD. ADD is overloaded for string
// concatenation and mixed string/number coercion; SUB/MUL/DIV/MOD require
// two numbers.
func (vm *VM) execArith(op bytecode.Opcode) error {
	b := vm.pop()
	a := vm.pop()
	defer func() {
		vm.rt.Release(a)
		vm.rt.Release(b)
	}()

	if op == bytecode.Add {
		return vm.execAdd(a, b)
	}

	if a.Tag() != value.TagNumber || b.Tag() != value.TagNumber {
		return vm.fatal("Type mismatch: arithmetic requires two numbers")
	}
	switch op {
	case bytecode.Sub:
		vm.push(vm.rt.NewNumber(a.Number() - b.Number()))
	case bytecode.Mul:
		vm.push(vm.rt.NewNumber(a.Number() * b.Number()))
	case bytecode.Div:
		if b.Number() == 0 {
			return vm.fatal("Division by zero")
		}
		vm.push(vm.rt.NewNumber(a.Number() / b.Number()))
	case bytecode.Mod:
		if b.Number() == 0 {
			return vm.fatal("Division by zero")
		}
		vm.push(vm.rt.NewNumber(math.Mod(a.Number(), b.Number())))
	}
	return nil
}

func (vm *VM) execAdd(a, b *value.Value) error {
	switch {
	case a.Tag() == value.TagNumber && b.Tag() == value.TagNumber:
		vm.push(vm.rt.NewNumber(a.Number() + b.Number()))
		return nil
	case a.Tag() == value.TagString && b.Tag() == value.TagString:
		buf := append(append([]byte{}, a.Bytes()...), b.Bytes()...)
		vm.push(vm.rt.NewString(buf))
		return nil
	case a.Tag() == value.TagString || b.Tag() == value.TagString:
		buf := append(append([]byte{}, vm.stringBytes(a)...), vm.stringBytes(b)...)
		vm.push(vm.rt.NewString(buf))
		return nil
	default:
		return vm.fatal("Type mismatch: ADD requires numbers or strings")
	}
}

// stringBytes returns v's string representation as bytes, for ADD's
// mixed-type coercion (the same printed form CALL_FUNC to_string
// produces).
func (vm *VM) stringBytes(v *value.Value) []byte {
	if v.Tag() == value.TagString {
		return v.Bytes()
	}
	return []byte(value.Sprint(v))
}

// execCompare handles GT/LT/GTE/LTE, which are numeric-only.
func (vm *VM) execCompare(op bytecode.Opcode) error {
	b := vm.pop()
	a := vm.pop()
	defer func() {
		vm.rt.Release(a)
		vm.rt.Release(b)
	}()
	if a.Tag() != value.TagNumber || b.Tag() != value.TagNumber {
		return vm.fatal("Type mismatch: comparison requires two numbers")
	}
	var r bool
	switch op {
	case bytecode.Gt:
		r = a.Number() > b.Number()
	case bytecode.Lt:
		r = a.Number() < b.Number()
	case bytecode.Gte:
		r = a.Number() >= b.Number()
	case bytecode.Lte:
		r = a.Number() <= b.Number()
	}
	vm.push(vm.rt.NewBool(r))
	return nil
}
