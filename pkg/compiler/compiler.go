// Package compiler walks an AST and emits the bytecode the VM executes.
//
// The compiler is a single-pass syntax-directed emitter, the same shape as
// the teacher's own compiler: a mutable Bytecode under construction and a
// sticky error field. Once an error is set, every emit helper becomes a
// no-op, so the walk can run to completion (draining the whole tree) and
// the caller still gets back exactly one error.
package compiler

import (
	"fmt"

	"github.com/kristofer/kronos/pkg/ast"
	"github.com/kristofer/kronos/pkg/bytecode"
	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
)

// Compiler turns a Program into a Bytecode. Not safe for concurrent use;
// construct one per compilation.
type Compiler struct {
	rt   *kruntime.Runtime
	bc   *bytecode.Bytecode
	err  error
	iter int // next hidden iterator-variable suffix

	// names caches the constant-pool index of each interned variable or
	// function name, so a name used many times in one program occupies
	// one constant-pool slot rather than one per use.
	names map[string]uint16
}

// New returns a Compiler that allocates constants through rt.
func New(rt *kruntime.Runtime) *Compiler {
	return &Compiler{rt: rt, bc: bytecode.New(), names: make(map[string]uint16)}
}

// Compile emits prog's bytecode. On error, the partially built Bytecode is
// discarded (freed) and only the error is returned, matching the "no
// partial bytecode escapes" contract.
func (c *Compiler) Compile(prog *ast.Program) (*bytecode.Bytecode, error) {
	for _, stmt := range prog.Statements {
		c.compileStatement(stmt)
	}
	c.emitOp(bytecode.Halt)
	if c.err != nil {
		c.bc = nil
		return nil, c.err
	}
	return c.bc, nil
}

// fail sets the sticky error if one is not already set.
func (c *Compiler) fail(format string, args ...interface{}) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

// --- emit helpers: every one is a no-op once c.err is set ---

func (c *Compiler) emitOp(op bytecode.Opcode) int {
	if c.err != nil {
		return 0
	}
	pos, err := c.bc.EmitOp(op)
	if err != nil {
		c.fail("%s", err)
	}
	return pos
}

func (c *Compiler) emitU16(op bytecode.Opcode, operand uint16) int {
	if c.err != nil {
		return 0
	}
	pos, err := c.bc.EmitU16(op, operand)
	if err != nil {
		c.fail("%s", err)
	}
	return pos
}

func (c *Compiler) emitJump(op bytecode.Opcode) int {
	if c.err != nil {
		return 0
	}
	pos, err := c.bc.EmitJump(op)
	if err != nil {
		c.fail("%s", err)
	}
	return pos
}

func (c *Compiler) patchJump(offsetPos int) {
	if c.err != nil {
		return
	}
	c.bc.PatchJump(offsetPos, c.bc.Here())
}

func (c *Compiler) patchJumpTo(offsetPos, target int) {
	if c.err != nil {
		return
	}
	c.bc.PatchJump(offsetPos, target)
}

func (c *Compiler) addConstant(v *value.Value) uint16 {
	if c.err != nil {
		return 0
	}
	idx, err := c.bc.AddConstant(v)
	if err != nil {
		c.fail("%s", err)
		return 0
	}
	return idx
}

// constName interns name as a string constant, reusing the same
// constant-pool slot across repeated uses.
func (c *Compiler) constName(name string) uint16 {
	if c.err != nil {
		return 0
	}
	if idx, ok := c.names[name]; ok {
		return idx
	}
	idx := c.addConstant(c.rt.Intern([]byte(name)))
	c.names[name] = idx
	return idx
}

func (c *Compiler) nextIterSuffix() int {
	n := c.iter
	c.iter++
	return n
}
