// Package loader provides program loading for APEX assembly files.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/apexsim/insts"
)

// DefaultBase is the address of the first instruction.
const DefaultBase = 4000

// InstructionWidth is the number of address units per instruction.
const InstructionWidth = 4

// ErrMisalignedPC is returned for a program counter that does not point at an
// instruction boundary.
var ErrMisalignedPC = errors.New("misaligned program counter")

// Program is the immutable instruction store. Instruction i lives at address
// Base + i*InstructionWidth.
type Program struct {
	// Base is the address of the first instruction.
	Base int64
	// Instructions holds the decoded program in order.
	Instructions []*insts.Instruction
}

// NewProgram builds a program at the default base address. Every instruction
// is validated; the first invalid one fails the whole program.
func NewProgram(code []*insts.Instruction) (*Program, error) {
	for i, inst := range code {
		if inst == nil {
			return nil, fmt.Errorf("instruction %d: %w", i, insts.ErrUnknownOpcode)
		}
		if err := inst.Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	return &Program{
		Base:         DefaultBase,
		Instructions: code,
	}, nil
}

// Len returns the number of instructions in the store.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Index converts a program counter into a store index. The index may lie
// outside the store; use InstructionAt to test membership.
func (p *Program) Index(pc int64) (int, error) {
	off := pc - p.Base
	if off%InstructionWidth != 0 {
		return 0, fmt.Errorf("%w: pc=%d", ErrMisalignedPC, pc)
	}
	return int(off / InstructionWidth), nil
}

// PC returns the address of the instruction at index.
func (p *Program) PC(index int) int64 {
	return p.Base + int64(index)*InstructionWidth
}

// End returns the first address past the last instruction.
func (p *Program) End() int64 {
	return p.PC(len(p.Instructions))
}

// InstructionAt returns the instruction stored at pc. It returns false when
// pc is outside the store.
func (p *Program) InstructionAt(pc int64) (*insts.Instruction, bool, error) {
	idx, err := p.Index(pc)
	if err != nil {
		return nil, false, err
	}

	if pc < p.Base || idx >= len(p.Instructions) {
		return nil, false, nil
	}

	return p.Instructions[idx], true, nil
}

// Parse reads program text, one instruction per line.
func Parse(r io.Reader) (*Program, error) {
	decoder := insts.NewDecoder()
	scanner := bufio.NewScanner(r)

	var code []*insts.Instruction
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		inst, err := decoder.Decode(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if inst == nil {
			continue
		}

		code = append(code, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return NewProgram(code)
}

// Load parses an APEX assembly file.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}
