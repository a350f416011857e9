package pipeline

import (
	"fmt"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/cache"
	"github.com/sarchlab/apexsim/timing/latency"
)

// FetchStage reads instructions from the instruction store.
type FetchStage struct {
	program *loader.Program
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage() *FetchStage {
	return &FetchStage{}
}

// SetProgram installs the instruction store.
func (s *FetchStage) SetProgram(program *loader.Program) {
	s.program = program
}

// Fetch places the instruction at pc into l and reports whether the latch
// is occupied. Outside the store l is left a bubble. A misaligned pc yields
// a latch carrying the fault instead of an instruction.
func (s *FetchStage) Fetch(pc int64, l *StageLatch) bool {
	if s.program == nil {
		return false
	}

	inst, ok, err := s.program.InstructionAt(pc)
	if err != nil {
		*l = StageLatch{
			Valid: true,
			PC:    pc,
			Fault: err,
			Done:  true,
		}
		return true
	}
	if !ok {
		return false
	}

	*l = StageLatch{
		Valid: true,
		PC:    pc,
		Inst:  inst,
		Done:  true,
	}
	return true
}

// DecodeStage checks hazards, reads source registers and claims the
// destination register.
type DecodeStage struct {
	regFile    *emu.RegFile
	hazardUnit *HazardUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, hazardUnit *HazardUnit) *DecodeStage {
	return &DecodeStage{
		regFile:    regFile,
		hazardUnit: hazardUnit,
	}
}

// DecodeResult holds the outcome of one decode attempt.
type DecodeResult struct {
	// Stalled is true if the instruction must retry next cycle.
	Stalled bool
	// DataHazard is true if a source register has an outstanding write.
	DataHazard bool
	// BranchHazard is true if a branch waits on a downstream arithmetic
	// instruction.
	BranchHazard bool
	// Halt is true if the instruction is HALT.
	Halt bool
}

// Decode attempts to issue the instruction in l. On success l is marked done
// with its source values filled in.
func (s *DecodeStage) Decode(l, memory2, writeback *StageLatch) DecodeResult {
	inst := l.Inst

	if !s.hazardUnit.SourcesReady(inst) {
		return DecodeResult{Stalled: true, DataHazard: true}
	}

	if s.hazardUnit.DetectBranchHazard(inst, memory2, writeback) {
		return DecodeResult{Stalled: true, BranchHazard: true}
	}

	l.Rs1Val = s.regFile.ReadReg(inst.Rs1)
	l.Rs2Val = s.regFile.ReadReg(inst.Rs2)
	l.Rs3Val = s.regFile.ReadReg(inst.Rs3)

	if inst.WritesReg() {
		s.regFile.Claim(inst.Rd)
		l.Claimed = true
	}

	l.Done = true

	return DecodeResult{Halt: inst.Op == insts.OpHALT}
}

// ExecuteStage computes ALU results, effective addresses and control
// decisions. It models multi-cycle occupancy from the latency table.
type ExecuteStage struct {
	alu          *emu.ALU
	lsu          *emu.LoadStoreUnit
	branchUnit   *emu.BranchUnit
	latencyTable *latency.Table
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(memory *emu.Memory, latencyTable *latency.Table) *ExecuteStage {
	return &ExecuteStage{
		alu:          emu.NewALU(),
		lsu:          emu.NewLoadStoreUnit(memory),
		branchUnit:   emu.NewBranchUnit(),
		latencyTable: latencyTable,
	}
}

// ExecuteResult holds the outcome of one Execute1 cycle.
type ExecuteResult struct {
	// Busy is true if the instruction needs more cycles in Execute1.
	Busy bool
	// Jump is true when a JUMP redirected the PC to JumpTarget.
	Jump       bool
	JumpTarget int64
	// Halt is true if the instruction is HALT.
	Halt bool
	// Err is set for an instruction Execute1 cannot handle.
	Err error
}

// Enter starts the instruction's occupancy of Execute1.
func (s *ExecuteStage) Enter(l *StageLatch) {
	l.Remaining = s.latencyTable.ExecuteLatency(l.Inst)
}

// Execute runs one cycle of Execute1. The instruction's work is done on its
// last cycle. zero is the processor's zero flag.
func (s *ExecuteStage) Execute(l *StageLatch, zero *bool) ExecuteResult {
	if l.Remaining > 1 {
		l.Remaining--
		return ExecuteResult{Busy: true}
	}
	l.Remaining = 0
	l.Done = true

	inst := l.Inst

	switch inst.Op {
	case insts.OpADD, insts.OpADDL, insts.OpSUB, insts.OpSUBL, insts.OpMUL,
		insts.OpAND, insts.OpOR, insts.OpEXOR, insts.OpMOVC:
		op1, op2 := s.alu.Operands(inst, l.Rs1Val, l.Rs2Val)
		value, z, err := s.alu.Compute(inst.Op, op1, op2)
		if err != nil {
			return ExecuteResult{Err: err}
		}
		l.Result = value
		*zero = z

	case insts.OpSTORE, insts.OpSTR, insts.OpLOAD, insts.OpLDR:
		addr, err := s.lsu.Address(inst, l.Rs1Val, l.Rs2Val, l.Rs3Val)
		if err != nil {
			return ExecuteResult{Err: err}
		}
		l.MemAddr = addr

	case insts.OpBZ, insts.OpBNZ:
		if s.branchUnit.Taken(inst.Op, *zero) {
			l.Taken = true
			l.Target = s.branchUnit.Target(l.PC, inst.Imm)
			// A taken BZ consumes the zero flag.
			if inst.Op == insts.OpBZ {
				*zero = false
			}
		}
		l.ZeroSnapshot = *zero

	case insts.OpJUMP:
		l.Target = s.branchUnit.JumpTarget(l.Rs1Val, inst.Imm)
		return ExecuteResult{Jump: true, JumpTarget: l.Target}

	case insts.OpHALT:
		return ExecuteResult{Halt: true}

	default:
		return ExecuteResult{Err: fmt.Errorf("execute: unhandled opcode %v", inst.Op)}
	}

	return ExecuteResult{}
}

// MemoryStage performs data accesses and resolves conditional branches.
type MemoryStage struct {
	memory       *emu.Memory
	lsu          *emu.LoadStoreUnit
	dcache       *cache.Cache
	latencyTable *latency.Table
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory, latencyTable *latency.Table) *MemoryStage {
	return &MemoryStage{
		memory:       memory,
		lsu:          emu.NewLoadStoreUnit(memory),
		latencyTable: latencyTable,
	}
}

// SetDCache routes data accesses through dcache.
func (s *MemoryStage) SetDCache(dcache *cache.Cache) {
	s.dcache = dcache
}

// MemoryResult holds the outcome of an instruction entering Memory2.
type MemoryResult struct {
	// Redirect is true when a taken branch resolved and the PC must move to
	// Target.
	Redirect bool
	Target   int64
	// Halt is true if the instruction is HALT.
	Halt bool
	// Err is set for a faulting access.
	Err error
}

// Enter performs the instruction's Memory2 work and sets its occupancy.
func (s *MemoryStage) Enter(l *StageLatch) MemoryResult {
	inst := l.Inst
	l.Remaining = 1

	switch inst.Op {
	case insts.OpLOAD, insts.OpLDR:
		value, lat, err := s.load(inst, l.MemAddr)
		if err != nil {
			return MemoryResult{Err: err}
		}
		l.Result = value
		l.Remaining = lat

	case insts.OpSTORE, insts.OpSTR:
		lat, err := s.store(inst, l.MemAddr, l.Rs1Val)
		if err != nil {
			return MemoryResult{Err: err}
		}
		l.Remaining = lat

	case insts.OpBZ, insts.OpBNZ:
		if l.Taken {
			return MemoryResult{Redirect: true, Target: l.Target}
		}

	case insts.OpHALT:
		return MemoryResult{Halt: true}
	}

	return MemoryResult{}
}

// Tick runs one cycle of Memory2 and reports whether the instruction needs
// more cycles.
func (s *MemoryStage) Tick(l *StageLatch) bool {
	if l.Remaining > 1 {
		l.Remaining--
		return true
	}
	l.Remaining = 0
	l.Done = true
	return false
}

func (s *MemoryStage) load(inst *insts.Instruction, addr int64) (int64, uint64, error) {
	if s.dcache == nil {
		value, err := s.lsu.Load(addr)
		return value, s.latencyTable.MemoryLatency(inst), err
	}

	if !s.memory.InRange(addr) {
		return 0, 0, fmt.Errorf("%w: %d", emu.ErrAddressOutOfRange, addr)
	}
	result := s.dcache.Read(addr)
	return result.Value, result.Latency, nil
}

func (s *MemoryStage) store(inst *insts.Instruction, addr, value int64) (uint64, error) {
	if s.dcache == nil {
		return s.latencyTable.MemoryLatency(inst), s.lsu.Store(addr, value)
	}

	if !s.memory.InRange(addr) {
		return 0, fmt.Errorf("%w: %d", emu.ErrAddressOutOfRange, addr)
	}
	return s.dcache.Write(addr, value).Latency, nil
}

// WritebackStage commits results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback commits the instruction in l. It returns true for HALT.
func (s *WritebackStage) Writeback(l *StageLatch) (bool, error) {
	l.Done = true
	l.Committed = true

	if l.Claimed {
		s.regFile.WriteReg(l.Inst.Rd, l.Result)
		if err := s.regFile.Release(l.Inst.Rd); err != nil {
			return false, err
		}
	}

	return l.Inst.Op == insts.OpHALT, nil
}
