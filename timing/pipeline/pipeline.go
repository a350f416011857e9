// Package pipeline provides the 7-stage APEX pipeline model for
// cycle-accurate simulation.
//
// Stages: Fetch -> Decode/RF -> Execute 1 -> Execute 2 -> Memory 1 ->
// Memory 2 -> Writeback. There is no forwarding: Decode holds an instruction
// until every source register has been written back. Conditional branches
// resolve in Memory 2 and squash every younger instruction; JUMP resolves in
// Execute 1 and squashes the instruction fetched behind it.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/cache"
	"github.com/sarchlab/apexsim/timing/latency"
)

// DefaultMaxCycles is the cycle cap applied when none is configured.
const DefaultMaxCycles = 1_000_000

// ErrCycleLimit is returned when the program has not finished within the
// cycle cap.
var ErrCycleLimit = errors.New("cycle limit reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions committed, not counting
	// HALT.
	Instructions uint64
	// Stalls is the number of cycles Decode could not pass an instruction on.
	Stalls uint64
	// Flushes is the number of control transfers that squashed younger
	// instructions (taken branches and jumps).
	Flushes uint64
	// Squashed is the number of instructions discarded by flushes.
	Squashed uint64
	// ExecStalls is the number of extra cycles spent by multi-cycle
	// operations in Execute 1.
	ExecStalls uint64
	// MemStalls is the number of extra cycles spent in Memory 2.
	MemStalls uint64
	// DataHazards is the number of cycles Decode waited on a pending source
	// register.
	DataHazards uint64
	// BranchHazards is the number of cycles a branch waited in Decode for a
	// downstream arithmetic instruction.
	BranchHazards uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithDCache routes Memory 2 accesses through a data cache with the given
// configuration. Access latency then comes from the cache.
func WithDCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = cache.New(config, cache.NewMemoryBacking(p.memory))
	}
}

// WithTracer writes the content of every stage to w after each cycle.
func WithTracer(w io.Writer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = NewTracer(w)
	}
}

// WithMaxCycles caps the number of cycles Run may simulate. A value of 0
// removes the cap.
func WithMaxCycles(n uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = n
	}
}

// Pipeline implements the 7-stage in-order APEX pipeline.
type Pipeline struct {
	// Stage latches, indexed by Stage.
	latches [NumStages]StageLatch

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit   *HazardUnit
	latencyTable *latency.Table
	dcache       *cache.Cache
	tracer       *Tracer

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
	program *loader.Program

	// Processor state
	pc          int64
	zero        bool
	haltPending bool

	stats     Statistics
	maxCycles uint64

	// Execution state
	halted   bool
	finished bool
	err      error
}

// NewPipeline creates a new 7-stage pipeline over the given register file
// and data store.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:   regFile,
		memory:    memory,
		maxCycles: DefaultMaxCycles,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.latencyTable == nil {
		p.latencyTable = latency.NewTable()
	}

	p.hazardUnit = NewHazardUnit(regFile)
	p.fetchStage = NewFetchStage()
	p.decodeStage = NewDecodeStage(regFile, p.hazardUnit)
	p.executeStage = NewExecuteStage(memory, p.latencyTable)
	p.memoryStage = NewMemoryStage(memory, p.latencyTable)
	p.writebackStage = NewWritebackStage(regFile)

	if p.dcache != nil {
		p.memoryStage.SetDCache(p.dcache)
	}

	return p
}

// LoadProgram installs the program and points the PC at its first
// instruction.
func (p *Pipeline) LoadProgram(program *loader.Program) {
	p.program = program
	p.fetchStage.SetProgram(program)
	p.pc = program.Base
}

// Reset empties every stage, clears the register file, flags and
// statistics, and points the PC back at the program's first instruction.
// The data store is left untouched; the data cache is invalidated without
// writeback.
func (p *Pipeline) Reset() {
	for s := range p.latches {
		p.latches[s].Clear()
	}

	p.regFile.Reset()
	if p.dcache != nil {
		p.dcache.Reset()
	}

	p.zero = false
	p.haltPending = false
	p.halted = false
	p.finished = false
	p.err = nil
	p.stats = Statistics{}

	p.pc = 0
	if p.program != nil {
		p.pc = p.program.Base
	}
}

// PC returns the current fetch program counter.
func (p *Pipeline) PC() int64 {
	return p.pc
}

// ZeroFlag returns the zero flag.
func (p *Pipeline) ZeroFlag() bool {
	return p.zero
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the data store.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// Latch returns a copy of the latch of stage s.
func (p *Pipeline) Latch(s Stage) StageLatch {
	return p.latches[s]
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// DCacheStats returns data cache statistics, and false if no data cache is
// attached.
func (p *Pipeline) DCacheStats() (cache.Statistics, bool) {
	if p.dcache == nil {
		return cache.Statistics{}, false
	}
	return p.dcache.Stats(), true
}

// Halted returns true if HALT has committed.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the terminal error of the run, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Done reports whether the run is over: HALT committed, a terminal error
// occurred, or every instruction has drained and the PC has left the store.
func (p *Pipeline) Done() bool {
	return p.halted || p.err != nil || p.drained()
}

func (p *Pipeline) drained() bool {
	for s := StageFetch; s < StageWriteback; s++ {
		if p.latches[s].Valid {
			return false
		}
	}

	if p.program == nil {
		return true
	}

	_, ok, err := p.program.InstructionAt(p.pc)
	return err == nil && !ok
}

// Run executes the pipeline until it is done.
func (p *Pipeline) Run() error {
	for !p.Done() {
		if err := p.Tick(); err != nil {
			return err
		}
	}
	p.finish()
	return p.err
}

// RunCycles executes the pipeline for at most the given number of cycles.
// Returns true if still running.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !p.Done(); i++ {
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	if p.Done() {
		p.finish()
	}
	return !p.Done(), p.err
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (Writeback first, Fetch last), so
// each stage reads the latch its predecessor wrote in the previous cycle
// before that latch is overwritten. An instruction moves into a stage only
// once the stage's previous occupant has moved on; a stage that cannot
// accept leaves its predecessor holding, which is how stalls propagate.
func (p *Pipeline) Tick() error {
	if p.Done() {
		return p.err
	}

	if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
		return p.fail(fmt.Errorf("%w: %d cycles", ErrCycleLimit, p.maxCycles))
	}

	p.stats.Cycles++

	if err := p.doWriteback(); err != nil {
		return p.fail(err)
	}
	if err := p.doMemory2(); err != nil {
		return p.fail(err)
	}
	p.doPassThrough(StageMemory1)
	p.doPassThrough(StageExecute2)
	if err := p.doExecute1(); err != nil {
		return p.fail(err)
	}
	if err := p.doDecode(); err != nil {
		return p.fail(err)
	}
	p.doFetch()

	if p.tracer != nil {
		p.tracer.Trace(p.stats.Cycles, &p.latches)
	}

	if p.Done() {
		p.finish()
	}

	return nil
}

// accept moves the finished instruction of stage s-1 into the empty stage
// s. It returns false if stage s is occupied or has nothing to take.
func (p *Pipeline) accept(s Stage) bool {
	cur := &p.latches[s]
	prev := &p.latches[s-1]

	if cur.Valid || !prev.Valid || !prev.Done {
		return false
	}

	*cur = *prev
	cur.Done = false
	cur.Remaining = 0
	prev.Clear()

	return true
}

func (p *Pipeline) doWriteback() error {
	l := &p.latches[StageWriteback]
	l.Clear()

	if !p.accept(StageWriteback) {
		return nil
	}

	halt, err := p.writebackStage.Writeback(l)
	if err != nil {
		return fmt.Errorf("%v: pc(%d) %v: %w", StageWriteback, l.PC, l.Inst, err)
	}

	if halt {
		p.halted = true
		return nil
	}

	p.stats.Instructions++
	return nil
}

func (p *Pipeline) doMemory2() error {
	l := &p.latches[StageMemory2]

	if !l.Valid {
		if !p.accept(StageMemory2) {
			return nil
		}

		result := p.memoryStage.Enter(l)
		if result.Err != nil {
			return fmt.Errorf("%v: pc(%d) %v: %w", StageMemory2, l.PC, l.Inst, result.Err)
		}

		switch {
		case result.Redirect:
			if err := p.squash(StageMemory1); err != nil {
				return err
			}
			p.pc = result.Target
			p.zero = l.ZeroSnapshot
			p.haltPending = false
			p.stats.Flushes++
		case result.Halt:
			if err := p.squash(StageMemory1); err != nil {
				return err
			}
			p.haltPending = true
		}
	} else if l.Done {
		return nil
	}

	if p.memoryStage.Tick(l) {
		p.stats.MemStalls++
	}

	return nil
}

func (p *Pipeline) doPassThrough(s Stage) {
	if p.accept(s) {
		p.latches[s].Done = true
	}
}

func (p *Pipeline) doExecute1() error {
	l := &p.latches[StageExecute1]

	if !l.Valid {
		if !p.accept(StageExecute1) {
			return nil
		}
		p.executeStage.Enter(l)
	} else if l.Done {
		return nil
	}

	result := p.executeStage.Execute(l, &p.zero)
	switch {
	case result.Err != nil:
		return fmt.Errorf("%v: pc(%d) %v: %w", StageExecute1, l.PC, l.Inst, result.Err)
	case result.Busy:
		p.stats.ExecStalls++
	case result.Jump:
		if err := p.squash(StageDecode); err != nil {
			return err
		}
		p.pc = result.JumpTarget
		p.stats.Flushes++
	case result.Halt:
		p.haltPending = true
	}

	return nil
}

func (p *Pipeline) doDecode() error {
	l := &p.latches[StageDecode]

	// A multi-cycle operation in Execute 1 freezes Decode.
	if p.latches[StageExecute1].Busy() {
		if l.Valid || p.latches[StageFetch].Valid {
			p.stats.Stalls++
		}
		return nil
	}

	if !l.Valid {
		if !p.accept(StageDecode) {
			return nil
		}
	} else if l.Done {
		p.stats.Stalls++
		return nil
	}

	// A failed fetch may still be on a path an older branch or jump will
	// squash. It faults only once nothing older is in flight.
	if l.Fault != nil {
		if p.olderInFlight() {
			p.stats.Stalls++
			return nil
		}
		return fmt.Errorf("%v: pc(%d): %w", StageFetch, l.PC, l.Fault)
	}

	result := p.decodeStage.Decode(l, &p.latches[StageMemory2], &p.latches[StageWriteback])
	if result.Stalled {
		p.stats.Stalls++
		if result.DataHazard {
			p.stats.DataHazards++
		}
		if result.BranchHazard {
			p.stats.BranchHazards++
		}
		return nil
	}

	if result.Halt {
		p.haltPending = true
	}

	return nil
}

// olderInFlight reports whether any instruction is between Execute 1 and
// Memory 2.
func (p *Pipeline) olderInFlight() bool {
	for s := StageExecute1; s <= StageMemory2; s++ {
		if p.latches[s].Valid {
			return true
		}
	}
	return false
}

func (p *Pipeline) doFetch() {
	l := &p.latches[StageFetch]

	if l.Valid || p.haltPending {
		return
	}

	if p.fetchStage.Fetch(p.pc, l) && l.Fault == nil {
		p.pc += loader.InstructionWidth
	}
}

// squash discards every instruction from stage from back to Fetch,
// returning the scoreboard claims of squashed writers.
func (p *Pipeline) squash(from Stage) error {
	for s := from; s >= StageFetch; s-- {
		l := &p.latches[s]
		if !l.Valid {
			continue
		}

		if l.Claimed && !l.Committed {
			if err := p.regFile.Release(l.Inst.Rd); err != nil {
				return fmt.Errorf("squash %v: pc(%d) %v: %w", s, l.PC, l.Inst, err)
			}
		}

		l.Clear()
		p.stats.Squashed++
	}

	return nil
}

func (p *Pipeline) fail(err error) error {
	p.err = err
	p.finish()
	return err
}

// finish writes back the data cache once the run is over so the data store
// holds every committed store.
func (p *Pipeline) finish() {
	if p.finished {
		return
	}
	p.finished = true

	if p.dcache != nil {
		p.dcache.Flush()
	}
}
