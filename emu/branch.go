package emu

import "github.com/sarchlab/apexsim/insts"

// BranchUnit implements APEX control-transfer decisions.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Taken reports whether a conditional branch is taken given the zero flag.
// Non-branch opcodes are never taken.
func (b *BranchUnit) Taken(op insts.Op, zero bool) bool {
	switch op {
	case insts.OpBZ:
		return zero
	case insts.OpBNZ:
		return !zero
	default:
		return false
	}
}

// Target returns the PC-relative target of a conditional branch.
func (b *BranchUnit) Target(pc, imm int64) int64 {
	return pc + imm
}

// JumpTarget returns the absolute target of JUMP.
func (b *BranchUnit) JumpTarget(rs1, imm int64) int64 {
	return rs1 + imm
}
