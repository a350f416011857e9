// Package main provides the entry point for APEXSim.
// APEXSim is a cycle-accurate simulator of the APEX 7-stage in-order pipeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/cache"
	"github.com/sarchlab/apexsim/timing/core"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

// options holds the parsed command-line flags.
type options struct {
	emulate    bool
	configPath string
	dcache     bool
	trace      bool
	maxCycles  uint64
	memSize    int
	regs       int
	mem        int
	verbose    bool

	programPath string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, simulates the program and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 1
	}

	prog, err := loader.Load(opts.programPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	if opts.verbose {
		fmt.Fprintf(stdout, "Loaded: %s\n", opts.programPath)
		fmt.Fprintf(stdout, "Base address: %d\n", prog.Base)
		fmt.Fprintf(stdout, "Instructions: %d\n", prog.Len())
		printCodeMemory(stdout, prog)
	}

	if opts.emulate {
		return runEmulation(prog, opts, stdout, stderr)
	}

	return runTiming(prog, opts, stdout, stderr)
}

// printCodeMemory lists the decoded instruction store.
func printCodeMemory(w io.Writer, prog *loader.Program) {
	fmt.Fprintf(w, "\nCode Memory:\n")
	for i, inst := range prog.Instructions {
		fmt.Fprintf(w, "  pc(%d) %v\n", prog.PC(i), inst)
	}
	fmt.Fprintf(w, "\n")
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("apexsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.emulate, "emu", false, "Run the sequential functional emulator instead of the pipeline")
	fs.StringVar(&opts.configPath, "config", "", "Path to timing configuration JSON file")
	fs.BoolVar(&opts.dcache, "dcache", false, "Enable the L1 data cache model")
	fs.BoolVar(&opts.trace, "trace", false, "Print the pipeline contents every cycle")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", pipeline.DefaultMaxCycles, "Maximum cycles to simulate (0 = unlimited)")
	fs.IntVar(&opts.memSize, "mem-size", emu.DefaultMemorySize, "Number of data memory cells")
	fs.IntVar(&opts.regs, "regs", 16, "Number of registers to dump")
	fs.IntVar(&opts.mem, "mem", 100, "Number of memory cells to dump")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: apexsim [options] <program.asm>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return nil, fmt.Errorf("missing program path")
	}

	if opts.memSize <= 0 {
		fmt.Fprintf(stderr, "Error: -mem-size must be positive\n")
		return nil, fmt.Errorf("invalid memory size %d", opts.memSize)
	}

	opts.programPath = fs.Arg(0)

	return opts, nil
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(prog *loader.Program, opts *options, stdout, stderr io.Writer) int {
	emulator := emu.NewEmulator(
		emu.WithMemory(emu.NewMemory(opts.memSize)),
		emu.WithMaxInstructions(opts.maxCycles),
	)
	emulator.LoadProgram(prog)

	if err := emulator.Run(); err != nil {
		fmt.Fprintf(stderr, "Error: pc(%d): %v\n", emulator.PC(), err)
		return 1
	}

	fmt.Fprintf(stdout, "\n")
	fmt.Fprintf(stdout, "Program: %s\n", opts.programPath)
	fmt.Fprintf(stdout, "Instructions executed: %d\n", emulator.InstructionCount())
	fmt.Fprintf(stdout, "\n")

	// The emulator has no scoreboard, so every register dumps as Valid.
	c := core.NewCore(emulator.RegFile(), emulator.Memory())
	if err := dump(c, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// runTiming runs the program in timing simulation mode.
func runTiming(prog *loader.Program, opts *options, stdout, stderr io.Writer) int {
	// Set up timing configuration
	var timingConfig *latency.TimingConfig
	if opts.configPath != "" {
		var err error
		timingConfig, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading timing config: %v\n", err)
			return 1
		}
	} else {
		timingConfig = latency.DefaultTimingConfig()
	}

	if err := timingConfig.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithLatencyTable(latency.NewTableWithConfig(timingConfig)),
		pipeline.WithMaxCycles(opts.maxCycles),
	}
	if opts.dcache {
		pipeOpts = append(pipeOpts, pipeline.WithDCache(cache.DefaultL1DConfig()))
	}
	if opts.trace {
		pipeOpts = append(pipeOpts, pipeline.WithTracer(stdout))
	}

	c := core.NewCore(&emu.RegFile{}, emu.NewMemory(opts.memSize), pipeOpts...)
	c.LoadProgram(prog)

	runErr := c.Run()

	printReport(stdout, opts.programPath, c.Pipeline.Stats())
	if dcStats, ok := c.Pipeline.DCacheStats(); ok {
		printCacheReport(stdout, dcStats)
	}

	if err := dump(c, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return 1
	}

	return 0
}

func printReport(w io.Writer, programPath string, stats pipeline.Statistics) {
	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}

	pct := func(n uint64) float64 {
		return 100.0 * float64(n) / float64(totalCycles)
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", programPath)
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Breakdown:\n")
	fmt.Fprintf(w, "  Decode stalls:  %4d cycles (%5.1f%%)\n", stats.Stalls, pct(stats.Stalls))
	fmt.Fprintf(w, "  Execute stalls: %4d cycles (%5.1f%%)\n", stats.ExecStalls, pct(stats.ExecStalls))
	fmt.Fprintf(w, "  Memory stalls:  %4d cycles (%5.1f%%)\n", stats.MemStalls, pct(stats.MemStalls))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Pipeline Events:\n")
	fmt.Fprintf(w, "  Data hazards:   %d\n", stats.DataHazards)
	fmt.Fprintf(w, "  Branch hazards: %d\n", stats.BranchHazards)
	fmt.Fprintf(w, "  Flushes:        %d\n", stats.Flushes)
	fmt.Fprintf(w, "  Squashed:       %d\n", stats.Squashed)
	fmt.Fprintf(w, "\n")
}

func printCacheReport(w io.Writer, stats cache.Statistics) {
	fmt.Fprintf(w, "D-Cache:\n")
	fmt.Fprintf(w, "  Hits:       %d\n", stats.Hits)
	fmt.Fprintf(w, "  Misses:     %d\n", stats.Misses)
	fmt.Fprintf(w, "  Writebacks: %d\n", stats.Writebacks)
	fmt.Fprintf(w, "  Hit rate:   %.1f%%\n", 100.0*stats.HitRate())
	fmt.Fprintf(w, "\n")
}

func dump(c *core.Core, opts *options, w io.Writer) error {
	if err := c.DumpRegisters(w, opts.regs); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n")
	return c.DumpMemory(w, opts.mem)
}
