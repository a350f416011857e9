package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/loader"
)

// ErrMaxInstructions is returned when the instruction limit is reached
// before the program finishes.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated, either by HALT or by running
	// past the last instruction.
	Exited bool

	// Halted is true if the program terminated on HALT.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes APEX programs sequentially, one instruction at a time,
// with no pipeline. It is the reference model for the timing pipeline.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	program *loader.Program

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// Architectural state
	pc   int64
	zero bool

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory sets the data store the emulator uses.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new APEX emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory(DefaultMemorySize)
	}

	e.alu = NewALU()
	e.lsu = NewLoadStoreUnit(e.memory)
	e.branchUnit = NewBranchUnit()

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's data store.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the current program counter.
func (e *Emulator) PC() int64 {
	return e.pc
}

// ZeroFlag returns the zero flag.
func (e *Emulator) ZeroFlag() bool {
	return e.zero
}

// InstructionCount returns the number of instructions completed. HALT is not
// counted.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram installs the program and points the PC at its first
// instruction.
func (e *Emulator) LoadProgram(prog *loader.Program) {
	e.program = prog
	e.pc = prog.Base
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	inst, ok, err := e.program.InstructionAt(e.pc)
	if err != nil {
		return StepResult{Err: err}
	}
	if !ok {
		return StepResult{Exited: true}
	}

	result := e.execute(inst)
	if result.Err == nil && !result.Halted {
		e.instructionCount++
	}

	return result
}

// Run executes the program until it halts, runs off the end, or faults.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Exited {
			return nil
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)
	rs3 := e.regFile.ReadReg(inst.Rs3)
	next := e.pc + loader.InstructionWidth

	switch inst.Op {
	case insts.OpADD, insts.OpADDL, insts.OpSUB, insts.OpSUBL, insts.OpMUL,
		insts.OpAND, insts.OpOR, insts.OpEXOR, insts.OpMOVC:
		op1, op2 := e.alu.Operands(inst, rs1, rs2)
		value, zero, err := e.alu.Compute(inst.Op, op1, op2)
		if err != nil {
			return StepResult{Err: err}
		}
		e.regFile.WriteReg(inst.Rd, value)
		e.zero = zero

	case insts.OpLOAD, insts.OpLDR:
		addr, err := e.lsu.Address(inst, rs1, rs2, rs3)
		if err != nil {
			return StepResult{Err: err}
		}
		value, err := e.lsu.Load(addr)
		if err != nil {
			return StepResult{Err: err}
		}
		e.regFile.WriteReg(inst.Rd, value)

	case insts.OpSTORE, insts.OpSTR:
		addr, err := e.lsu.Address(inst, rs1, rs2, rs3)
		if err != nil {
			return StepResult{Err: err}
		}
		if err := e.lsu.Store(addr, rs1); err != nil {
			return StepResult{Err: err}
		}

	case insts.OpBZ, insts.OpBNZ:
		if e.branchUnit.Taken(inst.Op, e.zero) {
			next = e.branchUnit.Target(e.pc, inst.Imm)
			// A taken BZ consumes the zero flag.
			if inst.Op == insts.OpBZ {
				e.zero = false
			}
		}

	case insts.OpJUMP:
		next = e.branchUnit.JumpTarget(rs1, inst.Imm)

	case insts.OpHALT:
		return StepResult{Exited: true, Halted: true}

	default:
		return StepResult{Err: fmt.Errorf("emulator: unhandled opcode %v", inst.Op)}
	}

	e.pc = next
	return StepResult{}
}
