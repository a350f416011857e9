package emu

import (
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// LoadStoreUnit implements APEX address generation and data access.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// Address computes the effective address of a memory instruction from its
// source values.
//
//	STORE: rs2 + imm    STR: rs2 + rs3
//	LOAD:  rs1 + imm    LDR: rs1 + rs2
func (lsu *LoadStoreUnit) Address(inst *insts.Instruction, rs1, rs2, rs3 int64) (int64, error) {
	switch inst.Op {
	case insts.OpSTORE:
		return rs2 + inst.Imm, nil
	case insts.OpSTR:
		return rs2 + rs3, nil
	case insts.OpLOAD:
		return rs1 + inst.Imm, nil
	case insts.OpLDR:
		return rs1 + rs2, nil
	default:
		return 0, fmt.Errorf("LSU: %v is not a memory instruction", inst.Op)
	}
}

// Load reads the cell at addr.
func (lsu *LoadStoreUnit) Load(addr int64) (int64, error) {
	return lsu.memory.Read(addr)
}

// Store writes value to the cell at addr.
func (lsu *LoadStoreUnit) Store(addr, value int64) error {
	return lsu.memory.Write(addr, value)
}
