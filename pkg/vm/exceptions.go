package vm

import "github.com/kristofer/kronos/pkg/value"

// execRaise pops the raised value and transfers control to the innermost
// installed handler, unwinding the operand stack and scope stack back to
// their depth at TRY_PUSH time. With no installed handler, the program
// terminates with a fatal RuntimeError describing the raised value.
//
// This does not unwind vm.frames: a RAISE that crosses a function call
// boundary without an intervening handler inside that function is not
// supported (try/catch itself is a supplement to the opcode inventory,
// and the spec's function model has no notion of propagating an
// exception through a return). Programs that raise should catch within
// the same function or let it terminate the VM.
func (vm *VM) execRaise() {
	msg := vm.pop()
	if len(vm.handlers) == 0 {
		vm.fatalRaise(msg)
		return
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	for i := len(vm.stack) - 1; i >= h.stackDepth; i-- {
		vm.rt.Release(vm.stack[i])
	}
	vm.stack = vm.stack[:h.stackDepth]

	for i := len(vm.env) - 1; i >= h.scopeDepth; i-- {
		for _, b := range vm.env[i].vars {
			vm.rt.Release(b.value)
		}
	}
	vm.env = vm.env[:h.scopeDepth]

	vm.push(msg)
	vm.pc = h.catchPC
}

// fatalRaise is set by execRaise when no handler is installed; the error
// itself is surfaced through vm.raiseErr since execRaise has no return
// value (it's called from the dispatch loop's switch, which checks this
// field immediately after).
func (vm *VM) fatalRaise(msg *value.Value) {
	vm.raiseErr = vm.fatal("Uncaught exception: %s", value.Sprint(msg))
	vm.rt.Release(msg)
}
