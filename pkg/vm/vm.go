package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kristofer/kronos/pkg/builtins"
	"github.com/kristofer/kronos/pkg/bytecode"
	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
)

// callFrame records what CALL_FUNC needs RETURN_VAL to undo: the pc to
// resume at in the caller, and the function's name for stack traces.
type callFrame struct {
	returnPC int
	name     string
}

// funcDef is what DEFINE_FUNC records in the function table.
type funcDef struct {
	bodyStart  int
	paramNames []string
}

// tryHandler is one installed exception handler: where to resume, and how
// far to unwind the operand stack and scope stack on a RAISE.
type tryHandler struct {
	catchPC    int
	stackDepth int
	scopeDepth int
}

// VM executes a compiled Bytecode against a Runtime's value system.
type VM struct {
	rt  *kruntime.Runtime
	reg *builtins.Registry
	out io.Writer

	bc  *bytecode.Bytecode
	pc  int
	ctx context.Context

	stack    []*value.Value
	env      []*Scope
	frames   []callFrame
	handlers []tryHandler

	functions map[string]*funcDef

	// raiseErr is set by execRaise when a RAISE finds no installed
	// handler; the dispatch loop checks it immediately afterward since
	// execRaise itself returns nothing (it's invoked directly from the
	// switch below).
	raiseErr error

	Debugger *Debugger
}

// New builds a VM. reg supplies the built-in functions CALL_FUNC tries
// before the user function table. PRINT writes to os.Stdout until
// SetOutput redirects it.
func New(rt *kruntime.Runtime, reg *builtins.Registry) *VM {
	return &VM{
		rt:        rt,
		reg:       reg,
		out:       os.Stdout,
		env:       []*Scope{newScope()},
		functions: make(map[string]*funcDef),
	}
}

// NewWithStackCap is New, but pre-reserves the operand stack's backing
// array to cap slots instead of letting the first pushes grow it from
// nil. cmd/kronos's run command uses this with the stack capacity
// loaded from pkg/kronosconfig.
func NewWithStackCap(rt *kruntime.Runtime, reg *builtins.Registry, stackCap int) *VM {
	vm := New(rt, reg)
	if stackCap > 0 {
		vm.stack = make([]*value.Value, 0, stackCap)
	}
	return vm
}

// SetOutput redirects PRINT's destination, for tests and embedders that
// want to capture program output instead of writing to stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// Run executes bc from pc 0 to completion (HALT) or until a RuntimeError
// or context cancellation stops it. A panic in the dispatch loop (an
// operand-stack underflow or an operand read past the end of bc.Code) is
// returned as a RuntimeError as well. The VM's global scope and function
// table persist across calls; cmd/kronos's repl runs each line's
// separately compiled Bytecode on one VM this way. A function table entry
// holds its body's pc in the Bytecode that defined it, and CALL_FUNC
// jumps to that pc in whichever Bytecode is running.
func (vm *VM) Run(ctx context.Context, bc *bytecode.Bytecode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vm.fatal("Malformed bytecode: %v", r)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	vm.ctx = ctx
	vm.bc = bc
	vm.pc = 0
	vm.raiseErr = nil
	code := bc.Code

	for vm.pc < len(code) {
		if vm.Debugger != nil && vm.Debugger.ShouldPause() {
			if !vm.Debugger.InteractivePrompt(bc) {
				return nil
			}
		}

		op := bytecode.Opcode(code[vm.pc])
		vm.pc++

		switch op {
		case bytecode.LoadConst:
			idx := vm.readU16()
			v := bc.Constants[idx]
			vm.rt.Retain(v)
			vm.push(v)

		case bytecode.LoadVar:
			idx := vm.readU16()
			name := vm.constString(idx)
			b, ok := vm.lookup(name)
			if !ok {
				return vm.fatal("Undefined variable: %s", name)
			}
			vm.rt.Retain(b.value)
			vm.push(b.value)

		case bytecode.StoreVar:
			if err := vm.execStoreVar(); err != nil {
				return err
			}

		case bytecode.Print:
			v := vm.pop()
			fmt.Fprintln(vm.out, value.Sprint(v))
			vm.rt.Release(v)

		case bytecode.Pop:
			vm.rt.Release(vm.pop())

		case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Mod:
			if err := vm.execArith(op); err != nil {
				return err
			}

		case bytecode.Eq, bytecode.Neq:
			b, a := vm.pop(), vm.pop()
			eq := value.Equals(a, b)
			if op == bytecode.Neq {
				eq = !eq
			}
			vm.push(vm.rt.NewBool(eq))
			vm.rt.Release(a)
			vm.rt.Release(b)

		case bytecode.Gt, bytecode.Lt, bytecode.Gte, bytecode.Lte:
			if err := vm.execCompare(op); err != nil {
				return err
			}

		case bytecode.And, bytecode.Or:
			b, a := vm.pop(), vm.pop()
			var r bool
			if op == bytecode.And {
				r = value.Truthy(a) && value.Truthy(b)
			} else {
				r = value.Truthy(a) || value.Truthy(b)
			}
			vm.push(vm.rt.NewBool(r))
			vm.rt.Release(a)
			vm.rt.Release(b)

		case bytecode.Not:
			a := vm.pop()
			vm.push(vm.rt.NewBool(!value.Truthy(a)))
			vm.rt.Release(a)

		case bytecode.Jump:
			offset := vm.readI16()
			if offset < 0 {
				if err := vm.checkCancelled(); err != nil {
					return err
				}
			}
			vm.pc += int(offset)

		case bytecode.JumpIfFalse:
			v := vm.pop()
			truthy := value.Truthy(v)
			vm.rt.Release(v)
			offset := vm.readI16()
			if !truthy {
				vm.pc += int(offset)
			}

		case bytecode.DefineFunc:
			vm.execDefineFunc()

		case bytecode.CallFunc:
			if err := vm.execCallFunc(); err != nil {
				return err
			}

		case bytecode.ReturnVal:
			vm.execReturnVal()

		case bytecode.ListNew:
			capHint := vm.readU16()
			vm.push(vm.rt.NewList(int(capHint)))

		case bytecode.MapNew:
			capHint := vm.readU16()
			vm.push(vm.rt.NewMap(int(capHint)))

		case bytecode.ListAppend:
			elt := vm.pop()
			list := vm.pop()
			vm.rt.ListAppend(list, elt)
			vm.rt.Release(elt)
			vm.push(list)

		case bytecode.ListGet:
			if err := vm.execListGet(); err != nil {
				return err
			}

		case bytecode.ListSet:
			if err := vm.execListSet(); err != nil {
				return err
			}

		case bytecode.ListLen:
			v := vm.pop()
			n, err := vm.rt.ListLen(v)
			if err != nil {
				vm.rt.Release(v)
				return vm.fatal("%s", err)
			}
			vm.push(vm.rt.NewNumber(float64(n)))
			vm.rt.Release(v)

		case bytecode.ListSlice:
			end := vm.pop()
			start := vm.pop()
			list := vm.pop()
			sub := vm.rt.ListSlice(list, int(start.Number()), int(end.Number()))
			vm.push(sub)
			vm.rt.Release(end)
			vm.rt.Release(start)
			vm.rt.Release(list)

		case bytecode.ListIter:
			list := vm.pop()
			vm.push(list)
			vm.push(vm.rt.NewNumber(0))

		case bytecode.ListNext:
			if err := vm.execListNext(); err != nil {
				return err
			}

		case bytecode.TryPush:
			offset := vm.readI16()
			target := vm.pc + int(offset)
			vm.handlers = append(vm.handlers, tryHandler{
				catchPC:    target,
				stackDepth: len(vm.stack),
				scopeDepth: len(vm.env),
			})

		case bytecode.TryPop:
			if len(vm.handlers) == 0 {
				return vm.fatal("TRY_POP with no installed handler")
			}
			vm.handlers = vm.handlers[:len(vm.handlers)-1]

		case bytecode.Raise:
			vm.execRaise()
			if vm.raiseErr != nil {
				return vm.raiseErr
			}

		case bytecode.Halt:
			return nil

		default:
			return vm.fatal("unknown opcode %d at pc %d", op, vm.pc-1)
		}
	}
	return nil
}

func (vm *VM) push(v *value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() *value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) readU16() uint16 {
	v := bytecode.ReadU16(vm.bc.Code, vm.pc)
	vm.pc += 2
	return v
}

func (vm *VM) readI16() int16 {
	v := bytecode.ReadI16(vm.bc.Code, vm.pc)
	vm.pc += 2
	return v
}

func (vm *VM) readU8() byte {
	v := vm.bc.Code[vm.pc]
	vm.pc++
	return v
}

func (vm *VM) constString(idx uint16) string {
	return string(vm.bc.Constants[idx].Bytes())
}

// checkCancelled surfaces ctx.Err() as a fatal RuntimeError, the host
// cancellation hook SPEC_FULL.md adds at CALL_FUNC and backward jumps.
func (vm *VM) checkCancelled() error {
	if err := vm.ctx.Err(); err != nil {
		return vm.fatal("execution cancelled: %s", err)
	}
	return nil
}

// fatal builds a RuntimeError carrying the current call stack.
func (vm *VM) fatal(format string, args ...interface{}) error {
	trace := make([]StackFrame, len(vm.frames)+1)
	for i, f := range vm.frames {
		trace[i] = StackFrame{Name: f.name, PC: f.returnPC}
	}
	name := "<top-level>"
	if len(vm.frames) > 0 {
		name = vm.frames[len(vm.frames)-1].name
	}
	trace[len(vm.frames)] = StackFrame{Name: name, PC: vm.pc}
	return newRuntimeError(fmt.Sprintf(format, args...), trace)
}
