package bytecode

import (
	"strconv"
	"strings"

	"github.com/kristofer/kronos/pkg/value"
	"github.com/olekukonko/tablewriter"
)

// operandWidth reports how many operand bytes follow op (not counting the
// opcode byte itself), for opcodes with a single fixed-width operand field.
// Opcodes with variable-length operands (DEFINE_FUNC, STORE_VAR's optional
// type index) are disassembled by explicit case in Disassemble instead.
func operandWidth(op Opcode) int {
	switch op {
	case LoadConst, LoadVar, ListNew, MapNew:
		return 2
	case Jump, JumpIfFalse, TryPush:
		return 2
	case CallFunc:
		return 3 // u16 nameIdx + u8 argc
	default:
		return 0
	}
}

// Disassemble renders bc as a table of offset, opcode, operand, and the
// constant the operand resolves to (when it is a constant-pool index),
// one row per instruction. Intended for a "kronos disasm" CLI subcommand
// and for debugging failed compiles, not for execution.
func Disassemble(bc *Bytecode) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"offset", "opcode", "operand", "constant"})
	table.SetAutoWrapText(false)

	pc := 0
	for pc < len(bc.Code) {
		op := Opcode(bc.Code[pc])
		start := pc
		pc++

		switch op {
		case StoreVar:
			nameIdx := ReadU16(bc.Code, pc)
			mutable := bc.Code[pc+2]
			hasType := bc.Code[pc+3]
			pc += 4
			operand := "name=" + strconv.Itoa(int(nameIdx)) + " mut=" + strconv.Itoa(int(mutable))
			if hasType != 0 {
				typeIdx := ReadU16(bc.Code, pc)
				pc += 2
				operand += " type=" + strconv.Itoa(int(typeIdx))
			}
			table.Append([]string{strconv.Itoa(start), op.String(), operand, constantRepr(bc, int(nameIdx))})

		case DefineFunc:
			nameIdx := ReadU16(bc.Code, pc)
			pc += 2
			arity := int(bc.Code[pc])
			pc++
			params := make([]string, 0, arity)
			for i := 0; i < arity; i++ {
				params = append(params, strconv.Itoa(int(ReadU16(bc.Code, pc))))
				pc += 2
			}
			bodyStart := ReadU16(bc.Code, pc)
			pc += 2
			operand := "name=" + strconv.Itoa(int(nameIdx)) + " arity=" + strconv.Itoa(arity) +
				" params=[" + strings.Join(params, ",") + "] body=" + strconv.Itoa(int(bodyStart))
			table.Append([]string{strconv.Itoa(start), op.String(), operand, constantRepr(bc, int(nameIdx))})

		default:
			width := operandWidth(op)
			operand := ""
			constant := ""
			switch width {
			case 2:
				raw := ReadU16(bc.Code, pc)
				if op == Jump || op == JumpIfFalse || op == TryPush {
					operand = strconv.Itoa(int(ReadI16(bc.Code, pc)))
				} else {
					operand = strconv.Itoa(int(raw))
				}
				if op == LoadConst || op == LoadVar {
					constant = constantRepr(bc, int(raw))
				}
				pc += 2
			case 3:
				nameIdx := ReadU16(bc.Code, pc)
				argc := bc.Code[pc+2]
				operand = "name=" + strconv.Itoa(int(nameIdx)) + " argc=" + strconv.Itoa(int(argc))
				constant = constantRepr(bc, int(nameIdx))
				pc += 3
			}
			table.Append([]string{strconv.Itoa(start), op.String(), operand, constant})
		}
	}

	table.Render()
	return b.String()
}

func constantRepr(bc *Bytecode, idx int) string {
	if idx < 0 || idx >= len(bc.Constants) {
		return ""
	}
	return value.Sprint(bc.Constants[idx])
}
