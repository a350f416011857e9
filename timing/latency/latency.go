// Package latency provides instruction timing models for cycle-accurate simulation.
//
// The latency values default to the APEX reference pipeline and can be
// configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/apexsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// ExecuteLatency returns the number of cycles the instruction occupies
// Execute1. Memory instructions only compute an address there and take one
// cycle.
func (t *Table) ExecuteLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpADD, insts.OpADDL, insts.OpSUB, insts.OpSUBL,
		insts.OpAND, insts.OpOR, insts.OpEXOR, insts.OpMOVC:
		return t.config.ALULatency

	case insts.OpMUL:
		return t.config.MultiplyLatency

	case insts.OpBZ, insts.OpBNZ, insts.OpJUMP, insts.OpHALT:
		return t.config.BranchLatency

	default:
		return 1
	}
}

// MemoryLatency returns the number of cycles the instruction occupies
// Memory2 when no data cache is attached.
func (t *Table) MemoryLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpLOAD, insts.OpLDR:
		return t.config.LoadLatency

	case insts.OpSTORE, insts.OpSTR:
		return t.config.StoreLatency

	default:
		return 1
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return inst != nil && inst.IsMemory()
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op == insts.OpLOAD || inst.Op == insts.OpLDR
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op == insts.OpSTORE || inst.Op == insts.OpSTR
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
