package benchmarks

import (
	"fmt"
	"strings"

	"github.com/sarchlab/apexsim/emu"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		multiplyIndependent(),
		memorySequential(),
		branchLoop(),
		jumpSkip(),
		arraySum(),
		storeLoadLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a counted loop, a memory-bound loop and straight-line hazards.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchLoop(),
		arraySum(),
		dependencyChain(),
	}
}

// 1. Arithmetic Sequential - independent MOVCs, no hazards
func arithmeticSequential() Benchmark {
	var b strings.Builder
	for r := 1; r <= 10; r++ {
		fmt.Fprintf(&b, "MOVC,R%d,#%d\n", r, r)
	}
	b.WriteString("HALT\n")

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "10 independent MOVCs - measures ideal pipeline throughput",
		Source:         b.String(),
		ResultReg:      10,
		ExpectedResult: 10,
	}
}

// 2. Dependency Chain - every instruction waits for its predecessor
func dependencyChain() Benchmark {
	return Benchmark{
		Name:           "dependency_chain",
		Description:    "20 dependent ADDLs (R1 = R1 + 1) - measures the RAW stall penalty",
		Source:         buildDependencyChain(20),
		ResultReg:      1,
		ExpectedResult: 20,
	}
}

func buildDependencyChain(n int) string {
	var b strings.Builder
	b.WriteString("MOVC,R1,#0\n")
	for i := 0; i < n; i++ {
		b.WriteString("ADDL,R1,R1,#1\n")
	}
	b.WriteString("HALT\n")
	return b.String()
}

// 3. Multiply Independent - back-to-back MULs occupy Execute 1
func multiplyIndependent() Benchmark {
	return Benchmark{
		Name:        "multiply_independent",
		Description: "4 independent MULs - measures the multiplier occupancy",
		Source: `MOVC,R1,#3
MOVC,R2,#4
MUL,R3,R1,R1
MUL,R4,R2,R2
MUL,R5,R1,R2
MUL,R6,R2,R1
ADD,R7,R3,R4
HALT
`,
		ResultReg:      7,
		ExpectedResult: 25,
	}
}

// 4. Memory Sequential - stores to consecutive cells, then loads two back
func memorySequential() Benchmark {
	var b strings.Builder
	b.WriteString("MOVC,R1,#7\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "STORE,R1,R0,#%d\n", i)
	}
	b.WriteString("LOAD,R2,R0,#3\n")
	b.WriteString("LOAD,R3,R0,#5\n")
	b.WriteString("ADD,R4,R2,R3\n")
	b.WriteString("HALT\n")

	return Benchmark{
		Name:           "memory_sequential",
		Description:    "8 STOREs to consecutive cells, 2 LOADs - exercises the data cache",
		Source:         b.String(),
		ResultReg:      4,
		ExpectedResult: 14,
	}
}

// 5. Branch Loop - counted loop closed by BNZ
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "10-iteration counted loop - measures taken-branch flush cost",
		Source: `MOVC,R1,#10
MOVC,R2,#0
ADDL,R2,R2,#3
SUBL,R1,R1,#1
BNZ,#-8
HALT
`,
		ResultReg:      2,
		ExpectedResult: 30,
	}
}

// 6. Jump Skip - JUMP over a wrong-path instruction
func jumpSkip() Benchmark {
	return Benchmark{
		Name:        "jump_skip",
		Description: "register-indirect JUMP over one instruction - measures jump squash",
		Source: `MOVC,R5,#4012
JUMP,R5,#0
MOVC,R1,#99
MOVC,R1,#1
HALT
`,
		ResultReg:      1,
		ExpectedResult: 1,
	}
}

// 7. Array Sum - loads a preloaded array in a loop
func arraySum() Benchmark {
	return Benchmark{
		Name:        "array_sum",
		Description: "sum of an 8-element array - loads in a loop with a carried dependency",
		Setup: func(memory *emu.Memory) {
			for i := int64(0); i < 8; i++ {
				memory.Poke(100+i, i+1)
			}
		},
		Source: `MOVC,R1,#8
MOVC,R3,#0
LOAD,R2,R1,#99
ADD,R3,R3,R2
SUBL,R1,R1,#1
BNZ,#-12
HALT
`,
		ResultReg:      3,
		ExpectedResult: 36,
	}
}

// 8. Store/Load Loop - each iteration writes a cell and reads it back
func storeLoadLoop() Benchmark {
	return Benchmark{
		Name:        "store_load_loop",
		Description: "5-iteration loop storing then loading the same cell - store-to-load through memory",
		Source: `MOVC,R1,#5
MOVC,R3,#0
STORE,R1,R1,#20
LOAD,R2,R1,#20
ADD,R3,R3,R2
SUBL,R1,R1,#1
BNZ,#-16
HALT
`,
		ResultReg:      3,
		ExpectedResult: 15,
	}
}
