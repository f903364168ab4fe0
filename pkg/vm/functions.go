package vm

import "github.com/kristofer/kronos/pkg/value"

// execDefineFunc decodes DEFINE_FUNC's operand and registers the function.
// It does not execute the body or touch pc beyond the operand itself; the
// compiler always emits a plain JUMP right after this instruction to hop
// over the body at top level.
func (vm *VM) execDefineFunc() {
	nameIdx := vm.readU16()
	arity := int(vm.readU8())
	params := make([]string, arity)
	for i := 0; i < arity; i++ {
		params[i] = vm.constString(vm.readU16())
	}
	bodyStart := int(vm.readU16())
	name := vm.constString(nameIdx)
	vm.functions[name] = &funcDef{bodyStart: bodyStart, paramNames: params}
}

// execCallFunc dispatches a built-in first, falling back to a
// user-defined function, fatal if neither exists. Arguments are popped in
// reverse since the last argument compiled is on top of the stack.
//
// The context.Context cancellation check happens before either dispatch
// path, not just before entering a user function: the host-cancellation
// contract is "every CALL_FUNC", and a built-in is as capable of running
// long as a user function is.
func (vm *VM) execCallFunc() error {
	nameIdx := vm.readU16()
	argc := int(vm.readU8())
	name := vm.constString(nameIdx)

	args := make([]*value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	if err := vm.checkCancelled(); err != nil {
		for _, a := range args {
			vm.rt.Release(a)
		}
		return err
	}

	if fn, ok := vm.reg.Lookup(name); ok {
		result, err := fn(vm.rt, args)
		for _, a := range args {
			vm.rt.Release(a)
		}
		if err != nil {
			return vm.fatal("%s", err)
		}
		vm.push(result)
		return nil
	}

	fdef, ok := vm.functions[name]
	if !ok {
		for _, a := range args {
			vm.rt.Release(a)
		}
		return vm.fatal("Undefined function: %s", name)
	}
	if len(args) != len(fdef.paramNames) {
		for _, a := range args {
			vm.rt.Release(a)
		}
		return vm.fatal("Argument count mismatch calling %s: expected %d, got %d", name, len(fdef.paramNames), len(args))
	}

	vm.frames = append(vm.frames, callFrame{returnPC: vm.pc, name: name})
	s := newScope()
	for i, p := range fdef.paramNames {
		s.vars[p] = &binding{value: args[i], mutable: true}
	}
	vm.env = append(vm.env, s)
	vm.pc = fdef.bodyStart
	return nil
}

// execReturnVal pops the return value, releases the current scope's
// bindings, pops the call frame, and resumes execution in the caller.
func (vm *VM) execReturnVal() {
	v := vm.pop()
	scope := vm.env[len(vm.env)-1]
	for _, b := range scope.vars {
		vm.rt.Release(b.value)
	}
	vm.env = vm.env[:len(vm.env)-1]
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.pc = frame.returnPC
	vm.push(v)
}
