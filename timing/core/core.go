// Package core provides the cycle-accurate APEX CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"fmt"
	"io"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions committed, not counting
	// HALT.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// Squashed is the number of instructions discarded by flushes.
	Squashed uint64
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core represents a cycle-accurate APEX CPU core model.
// It wraps a 7-stage pipeline and provides a simple interface for simulation.
type Core struct {
	// Pipeline is the underlying 7-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
}

// NewCore creates a new Core with the given register file and memory.
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...pipeline.PipelineOption) *Core {
	return &Core{
		Pipeline: pipeline.NewPipeline(regFile, memory, opts...),
		regFile:  regFile,
		memory:   memory,
	}
}

// LoadProgram installs the program to run.
func (c *Core) LoadProgram(prog *loader.Program) {
	c.Pipeline.LoadProgram(prog)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() error {
	return c.Pipeline.Tick()
}

// Halted returns true if HALT has committed.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Done returns true once the run is over.
func (c *Core) Done() bool {
	return c.Pipeline.Done()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls:       pipeStats.Stalls,
		Flushes:      pipeStats.Flushes,
		Squashed:     pipeStats.Squashed,
	}
}

// Run executes the core until the program finishes.
func (c *Core) Run() error {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	return c.Pipeline.RunCycles(cycles)
}

// Reset clears all core state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}

// DumpRegisters writes the first n registers with their value and whether
// a write to them is still outstanding.
func (c *Core) DumpRegisters(w io.Writer, n int) error {
	if n > len(c.regFile.R) {
		n = len(c.regFile.R)
	}

	if _, err := fmt.Fprintf(w, "========ARCHITECTURAL REGISTER VALUES========\n"); err != nil {
		return err
	}

	for r := 0; r < n; r++ {
		status := "Valid"
		if !c.regFile.Ready(uint8(r)) {
			status = "Invalid"
		}

		_, err := fmt.Fprintf(w, " | Reg[%d] | Value = %d | Status = %s | \n",
			r, c.regFile.ReadReg(uint8(r)), status)
		if err != nil {
			return err
		}
	}

	return nil
}

// DumpMemory writes the first n cells of the data store.
func (c *Core) DumpMemory(w io.Writer, n int) error {
	if n > c.memory.Size() {
		n = c.memory.Size()
	}

	if _, err := fmt.Fprintf(w, "======DATA MEMORY======\n"); err != nil {
		return err
	}

	for addr := 0; addr < n; addr++ {
		_, err := fmt.Fprintf(w, " | MEM[%d] | Value=%d | \n", addr, c.memory.Peek(int64(addr)))
		if err != nil {
			return err
		}
	}

	return nil
}
