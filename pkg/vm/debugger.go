package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kristofer/kronos/pkg/bytecode"
	"github.com/kristofer/kronos/pkg/value"
)

// Debugger provides interactive breakpoint/step support over a VM,
// retargeted from the teacher's message-send debugger at Kronos's
// operand-stack/scope-stack/function-table model.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

// NewDebugger returns a Debugger attached to vm, disabled by default.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]bool)}
}

func (d *Debugger) Enable()  { d.enabled = true }
func (d *Debugger) Disable() { d.enabled = false }

func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

func (d *Debugger) AddBreakpoint(pc int)    { d.breakpoints[pc] = true }
func (d *Debugger) RemoveBreakpoint(pc int) { delete(d.breakpoints, pc) }
func (d *Debugger) ClearBreakpoints()       { d.breakpoints = make(map[int]bool) }

// ShouldPause reports whether the VM should stop before executing the
// instruction at its current pc.
func (d *Debugger) ShouldPause() bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[d.vm.pc]
}

func (d *Debugger) ShowCurrentInstruction() {
	bc := d.vm.bc
	if bc == nil || d.vm.pc >= len(bc.Code) {
		fmt.Println("No current instruction")
		return
	}
	op := bytecode.Opcode(bc.Code[d.vm.pc])
	fmt.Printf("  %4d: %s\n", d.vm.pc, op)
}

func (d *Debugger) ShowStack() {
	fmt.Println("Stack (top to bottom):")
	if len(d.vm.stack) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(d.vm.stack) - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, value.Sprint(d.vm.stack[i]))
	}
}

func (d *Debugger) ShowLocals() {
	fmt.Println("Current scope:")
	scope := d.vm.env[len(d.vm.env)-1]
	if len(scope.vars) == 0 {
		fmt.Println("  (none set)")
		return
	}
	for name, b := range scope.vars {
		fmt.Printf("  %s = %s\n", name, value.Sprint(b.value))
	}
}

func (d *Debugger) ShowGlobals() {
	fmt.Println("Global variables:")
	global := d.vm.env[0]
	if len(global.vars) == 0 {
		fmt.Println("  (none)")
		return
	}
	for name, b := range global.vars {
		fmt.Printf("  %s = %s\n", name, value.Sprint(b.value))
	}
}

func (d *Debugger) ShowCallStack() {
	fmt.Println("Call stack (top to bottom):")
	if len(d.vm.frames) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(d.vm.frames) - 1; i >= 0; i-- {
		frame := d.vm.frames[i]
		fmt.Printf("  %s [return pc %d]\n", frame.name, frame.returnPC)
	}
}

// InteractivePrompt is called when execution pauses at a breakpoint or in
// step mode. It returns whether execution should continue.
func (d *Debugger) InteractivePrompt(bc *bytecode.Bytecode) (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== Debugger Paused ===")
	d.ShowCurrentInstruction()

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()

		case "continue", "c":
			d.SetStepMode(false)
			return true

		case "step", "s", "next", "n":
			d.SetStepMode(true)
			return true

		case "stack", "st":
			d.ShowStack()

		case "locals", "l":
			d.ShowLocals()

		case "globals", "g":
			d.ShowGlobals()

		case "callstack", "cs":
			d.ShowCallStack()

		case "instruction", "i":
			d.ShowCurrentInstruction()

		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <pc>")
				continue
			}
			pc, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid pc")
				continue
			}
			d.AddBreakpoint(pc)
			fmt.Printf("Breakpoint added at pc %d\n", pc)

		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <pc>")
				continue
			}
			pc, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid pc")
				continue
			}
			d.RemoveBreakpoint(pc)
			fmt.Printf("Breakpoint removed at pc %d\n", pc)

		case "list", "ls":
			d.listInstructions(bc)

		case "quit", "q":
			return false

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("Debugger Commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s, next, n     Execute the next instruction")
	fmt.Println("  stack, st            Show the operand stack")
	fmt.Println("  locals, l            Show the current scope's variables")
	fmt.Println("  globals, g           Show global variables")
	fmt.Println("  callstack, cs        Show the call stack")
	fmt.Println("  instruction, i       Show the current instruction")
	fmt.Println("  breakpoint <n>, b    Add a breakpoint at pc n")
	fmt.Println("  delete <n>, d        Remove the breakpoint at pc n")
	fmt.Println("  list, ls             Disassemble the whole program")
	fmt.Println("  quit, q              Abort execution")
}

func (d *Debugger) listInstructions(bc *bytecode.Bytecode) {
	fmt.Println(bytecode.Disassemble(bc))
}
