package pipeline

import "github.com/sarchlab/apexsim/insts"

// Stage identifies one of the seven pipeline stages.
type Stage int

// Pipeline stages in program order.
const (
	StageFetch Stage = iota
	StageDecode
	StageExecute1
	StageExecute2
	StageMemory1
	StageMemory2
	StageWriteback

	// NumStages is the pipeline depth.
	NumStages
)

var stageNames = [NumStages]string{
	StageFetch:     "Fetch",
	StageDecode:    "Decode/RF",
	StageExecute1:  "Execute 1",
	StageExecute2:  "Execute 2",
	StageMemory1:   "Memory 1",
	StageMemory2:   "Memory 2",
	StageWriteback: "Writeback",
}

// String returns the stage name used in traces.
func (s Stage) String() string {
	if s >= 0 && s < NumStages {
		return stageNames[s]
	}
	return "Unknown"
}

// StageLatch holds the instruction occupying one stage. The latch of a stage
// is written by that stage's transition and read by the next stage's
// transition one cycle later.
type StageLatch struct {
	// Valid indicates if this latch holds an instruction. An invalid latch
	// is a bubble.
	Valid bool

	// PC is the program counter of the instruction.
	PC int64

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Source values read in Decode.
	Rs1Val int64
	Rs2Val int64
	Rs3Val int64

	// MemAddr is the effective address computed in Execute1.
	MemAddr int64

	// Result is the ALU result or loaded value.
	Result int64

	// Target is the control-transfer destination of a taken branch.
	Target int64

	// Taken is set in Execute1 for a conditional branch whose condition holds.
	Taken bool

	// ZeroSnapshot is the zero flag seen by a conditional branch in
	// Execute1. A taken branch restores it when it squashes younger work.
	ZeroSnapshot bool

	// Remaining is the number of cycles the instruction still needs in the
	// current stage.
	Remaining uint64

	// Done means the stage has finished with the instruction and it may move
	// to the next stage.
	Done bool

	// Claimed means Decode has counted the destination register on the
	// scoreboard.
	Claimed bool

	// Committed means Writeback has written the result.
	Committed bool

	// Fault is set when the fetch itself failed. Inst is nil. The fault is
	// raised only if the latch survives to the head of Decode.
	Fault error
}

// Clear resets the latch to a bubble.
func (l *StageLatch) Clear() {
	*l = StageLatch{}
}

// IsArith reports whether the latch holds an instruction that sets the zero
// flag.
func (l *StageLatch) IsArith() bool {
	return l.Valid && l.Inst != nil && l.Inst.IsArith()
}

// Busy reports whether the latch holds an instruction still working in its
// stage.
func (l *StageLatch) Busy() bool {
	return l.Valid && !l.Done
}
