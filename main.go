// Package main provides the entry point for APEXSim.
// APEXSim is a cycle-accurate simulator of the APEX 7-stage in-order pipeline.
//
// For the full CLI, use: go run ./cmd/apexsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("APEXSim - APEX 7-Stage Pipeline Simulator")
	fmt.Println("")
	fmt.Println("Usage: apexsim [options] <program.asm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -emu         Run the sequential functional emulator")
	fmt.Println("  -config      Path to timing configuration JSON file")
	fmt.Println("  -dcache      Enable the L1 data cache model")
	fmt.Println("  -trace       Print the pipeline contents every cycle")
	fmt.Println("  -max-cycles  Maximum cycles to simulate (0 = unlimited)")
	fmt.Println("  -mem-size    Number of data memory cells")
	fmt.Println("  -regs        Number of registers to dump")
	fmt.Println("  -mem         Number of memory cells to dump")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/apexsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/apexsim' instead.")
	}
}
