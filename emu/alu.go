package emu

import (
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// ALU implements APEX arithmetic and logic operations.
// It is stateless; callers own the zero flag.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute evaluates an arithmetic-class opcode. For register forms op2 is the
// second source value, for literal forms it is the immediate. The returned
// zero flag is true when the result is 0.
func (a *ALU) Compute(op insts.Op, op1, op2 int64) (int64, bool, error) {
	var result int64

	switch op {
	case insts.OpADD, insts.OpADDL:
		result = op1 + op2
	case insts.OpSUB, insts.OpSUBL:
		result = op1 - op2
	case insts.OpMUL:
		result = op1 * op2
	case insts.OpAND:
		result = op1 & op2
	case insts.OpOR:
		result = op1 | op2
	case insts.OpEXOR:
		result = op1 ^ op2
	case insts.OpMOVC:
		result = op2
	default:
		return 0, false, fmt.Errorf("ALU: unhandled opcode %v", op)
	}

	return result, result == 0, nil
}

// Operands selects the ALU inputs for inst from its source values.
func (a *ALU) Operands(inst *insts.Instruction, rs1, rs2 int64) (int64, int64) {
	switch inst.Format {
	case insts.FormatRegImm:
		return rs1, inst.Imm
	case insts.FormatMove:
		return 0, inst.Imm
	default:
		return rs1, rs2
	}
}
