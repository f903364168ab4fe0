// Package vm implements the stack machine that executes compiled
// Bytecode: a fetch-decode-execute loop over an operand stack, a stack of
// named-variable scopes, and a table of user-defined functions.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one entry in a RuntimeError's trace: the function that was
// executing and the pc within it at the time of the fault. Unlike the
// teacher's StackFrame, there is no selector or source line/column here —
// Kronos functions are called by name rather than by message send, and the
// AST this compiler consumes carries no source positions.
type StackFrame struct {
	Name string
	PC   int
}

// RuntimeError is every fatal condition the VM can produce: stack
// underflow, division by zero, an out-of-range index, a type mismatch, an
// unknown variable or function, or bytecode truncation. All of them
// terminate execution; RuntimeError carries the call stack at the moment
// of the fault for diagnostics.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			frame := e.StackTrace[i]
			b.WriteString(fmt.Sprintf("\n  at %s [pc %d]", frame.Name, frame.PC))
		}
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
