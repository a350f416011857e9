// Package benchmarks provides timing benchmark infrastructure for APEXSim.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/cache"
	"github.com/sarchlab/apexsim/timing/core"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of committed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles Decode held an instruction
	StallCycles uint64 `json:"stall_cycles"`

	// ExecStalls is stalls due to multi-cycle execution
	ExecStalls uint64 `json:"exec_stalls"`

	// MemStalls is stalls due to memory latency
	MemStalls uint64 `json:"mem_stalls"`

	// DataHazards is the number of cycles spent waiting on a source register
	DataHazards uint64 `json:"data_hazards"`

	// BranchHazards is the number of cycles a branch waited on the zero flag
	BranchHazards uint64 `json:"branch_hazards"`

	// PipelineFlushes is the number of taken branches and jumps
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// Squashed is the number of wrong-path instructions discarded
	Squashed uint64 `json:"squashed"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Result is the final value of the benchmark's result register
	Result int64 `json:"result"`

	// Verified is true if the final registers, zero flag and memory match the
	// sequential emulator
	Verified bool `json:"verified"`

	// Error holds the simulation error, if any
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed reports whether the run completed, matched the emulator and produced
// the expected result.
func (r BenchmarkResult) Passed(b Benchmark) bool {
	return r.Error == "" && r.Verified && r.Result == b.ExpectedResult
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the data store before the run
	Setup func(memory *emu.Memory)

	// Source is the APEX assembly text of the program
	Source string

	// ResultReg is the register holding the benchmark's result
	ResultReg uint8

	// ExpectedResult is the expected value of ResultReg (for validation)
	ExpectedResult int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache enables data cache simulation
	EnableDCache bool

	// DCache is the data cache geometry used when EnableDCache is set
	DCache cache.Config

	// Timing holds the stage latencies (default: latency.DefaultTimingConfig)
	Timing *latency.TimingConfig

	// MaxCycles caps each run (0 = unlimited)
	MaxCycles uint64

	// MemorySize is the number of data memory cells
	MemorySize int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: true,
		DCache:       cache.DefaultL1DConfig(),
		Timing:       latency.DefaultTimingConfig(),
		MaxCycles:    pipeline.DefaultMaxCycles,
		MemorySize:   emu.DefaultMemorySize,
		Output:       os.Stdout,
		Verbose:      false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.MemorySize <= 0 {
		config.MemorySize = emu.DefaultMemorySize
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// Benchmarks returns the registered benchmarks in run order.
func (h *Harness) Benchmarks() []Benchmark {
	return h.benchmarks
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d cycles, verified=%v\n",
				result.Name, result.SimulatedCycles, result.Verified)
		}
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on the pipeline and on the
// sequential emulator, and compares the final state.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	prog, err := loader.Parse(strings.NewReader(bench.Source))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Create fresh state
	regFile := &emu.RegFile{}
	memory := emu.NewMemory(h.config.MemorySize)
	if bench.Setup != nil {
		bench.Setup(memory)
	}

	// Create pipeline with options
	opts := []pipeline.PipelineOption{
		pipeline.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)),
		pipeline.WithMaxCycles(h.config.MaxCycles),
	}
	if h.config.EnableDCache {
		opts = append(opts, pipeline.WithDCache(h.config.DCache))
	}

	c := core.NewCore(regFile, memory, opts...)
	c.LoadProgram(prog)

	// Run simulation and measure time
	start := time.Now()
	runErr := c.Run()
	result.WallTime = time.Since(start)

	// Collect statistics
	stats := c.Pipeline.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.ExecStalls = stats.ExecStalls
	result.MemStalls = stats.MemStalls
	result.DataHazards = stats.DataHazards
	result.BranchHazards = stats.BranchHazards
	result.PipelineFlushes = stats.Flushes
	result.Squashed = stats.Squashed
	result.Result = regFile.ReadReg(bench.ResultReg)

	// Collect cache stats if enabled
	if dcStats, ok := c.Pipeline.DCacheStats(); ok {
		result.DCacheHits = dcStats.Hits
		result.DCacheMisses = dcStats.Misses
	}

	if runErr != nil {
		result.Error = runErr.Error()
		return result
	}

	verifyErr := h.verify(bench, prog, c)
	if verifyErr != nil {
		result.Error = verifyErr.Error()
		return result
	}
	result.Verified = true

	return result
}

// verify replays the program on the sequential emulator and compares the
// architectural state with the pipeline's.
func (h *Harness) verify(bench Benchmark, prog *loader.Program, c *core.Core) error {
	refMemory := emu.NewMemory(h.config.MemorySize)
	if bench.Setup != nil {
		bench.Setup(refMemory)
	}

	ref := emu.NewEmulator(emu.WithMemory(refMemory))
	ref.LoadProgram(prog)
	if err := ref.Run(); err != nil {
		return fmt.Errorf("reference run: %w", err)
	}

	pipe := c.Pipeline
	for r := uint8(0); r < uint8(len(ref.RegFile().R)); r++ {
		want := ref.RegFile().ReadReg(r)
		got := pipe.RegFile().ReadReg(r)
		if want != got {
			return fmt.Errorf("R%d: pipeline %d, emulator %d", r, got, want)
		}
	}

	if pipe.ZeroFlag() != ref.ZeroFlag() {
		return fmt.Errorf("zero flag: pipeline %v, emulator %v", pipe.ZeroFlag(), ref.ZeroFlag())
	}

	for addr := 0; addr < refMemory.Size(); addr++ {
		want := refMemory.Peek(int64(addr))
		got := pipe.Memory().Peek(int64(addr))
		if want != got {
			return fmt.Errorf("MEM[%d]: pipeline %d, emulator %d", addr, got, want)
		}
	}

	if pipe.Stats().Instructions != ref.InstructionCount() {
		return fmt.Errorf("instructions: pipeline %d, emulator %d",
			pipe.Stats().Instructions, ref.InstructionCount())
	}

	return nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== APEXSim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Result: %d\n", r.Result)
		_, _ = fmt.Fprintf(h.config.Output, "  Verified: %v\n", r.Verified)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Exec Stalls:          %d\n", r.ExecStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Mem Stalls:           %d\n", r.MemStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Data Hazards:         %d\n", r.DataHazards)
		_, _ = fmt.Fprintf(h.config.Output, "  Branch Hazards:       %d\n", r.BranchHazards)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(h.config.Output, "  Squashed:             %d\n", r.Squashed)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,exec_stalls,mem_stalls,data_hazards,branch_hazards,flushes,squashed,dcache_hits,dcache_misses,result,verified")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%v\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.ExecStalls,
			r.MemStalls,
			r.DataHazards,
			r.BranchHazards,
			r.PipelineFlushes,
			r.Squashed,
			r.DCacheHits,
			r.DCacheMisses,
			r.Result,
			r.Verified,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	DCacheEnabled bool                  `json:"dcache_enabled"`
	Timing        *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Verified is the number of benchmarks that matched the emulator
	Verified int `json:"verified"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Version is the simulator version recorded in JSON reports.
const Version = "0.1.0"

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	// Calculate summary statistics
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	verified := 0
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
		if r.Verified {
			verified++
		}
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				DCacheEnabled: h.config.EnableDCache,
				Timing:        h.config.Timing,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			Verified:          verified,
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
