// Package main provides a profiling wrapper for APEXSim to identify performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/cache"
	"github.com/sarchlab/apexsim/timing/core"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var (
	emulate    = flag.Bool("emu", false, "Profile the sequential emulator instead of the pipeline")
	dcache     = flag.Bool("dcache", false, "Enable the L1 data cache model")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxCycles  = flag.Uint64("max-cycles", 100_000_000, "max cycles (instructions with -emu) to simulate (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.asm>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Instructions: %d\n", prog.Len())

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var (
		instrCount uint64
		cycles     uint64
		runErr     error
	)

	if *emulate {
		instrCount, runErr = runEmulationProfile(prog)
	} else {
		instrCount, cycles, runErr = runTimingProfile(prog)
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	if runErr != nil {
		fmt.Printf("Run error: %v\n", runErr)
	}
	fmt.Printf("Instructions executed: %d\n", instrCount)
	if !*emulate {
		fmt.Printf("Cycles simulated: %d\n", cycles)
	}
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	if cycles > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(cycles)/elapsed.Seconds())
	}
}

// runEmulationProfile runs the program in functional emulation mode with profiling.
func runEmulationProfile(prog *loader.Program) (uint64, error) {
	emulator := emu.NewEmulator(emu.WithMaxInstructions(*maxCycles))
	emulator.LoadProgram(prog)

	err := emulator.Run()

	return emulator.InstructionCount(), err
}

// runTimingProfile runs the program in timing simulation mode with profiling.
func runTimingProfile(prog *loader.Program) (uint64, uint64, error) {
	opts := []pipeline.PipelineOption{
		pipeline.WithLatencyTable(latency.NewTableWithConfig(latency.DefaultTimingConfig())),
		pipeline.WithMaxCycles(*maxCycles),
	}
	if *dcache {
		opts = append(opts, pipeline.WithDCache(cache.DefaultL1DConfig()))
	}

	c := core.NewCore(&emu.RegFile{}, emu.NewMemory(emu.DefaultMemorySize), opts...)
	c.LoadProgram(prog)

	err := c.Run()
	stats := c.Stats()

	return stats.Instructions, stats.Cycles, err
}
