// Command benchmark runs the APEXSim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results in JSON format
//	-no-dcache  Disable data cache simulation
//	-config     Path to timing configuration JSON file
//	-core       Run only the 3 core benchmarks
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// Every benchmark is replayed on the sequential emulator; a run whose final
// state differs is reported as unverified and makes the command exit 1.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/apexsim/benchmarks"
	"github.com/sarchlab/apexsim/timing/latency"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache simulation")
	configPath := flag.String("config", "", "Path to timing configuration JSON file")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	flag.Parse()

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.EnableDCache = !*noDCache
	config.Output = os.Stdout

	if *configPath != "" {
		timingConfig, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		if err := timingConfig.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timingConfig
	}

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	// Print configuration
	if !*csvOutput && !*jsonOutput {
		fmt.Println("APEXSim Timing Benchmark Harness")
		fmt.Println("================================")
		fmt.Printf("D-Cache: %v\n", config.EnableDCache)
		fmt.Printf("Multiply latency: %d\n", config.Timing.MultiplyLatency)
		fmt.Println("")
	}

	// Run benchmarks
	results := harness.RunAll()

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	failed := 0
	for i, r := range results {
		if !r.Passed(harness.Benchmarks()[i]) {
			fmt.Fprintf(os.Stderr, "FAIL %s: %s\n", r.Name, r.Error)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
