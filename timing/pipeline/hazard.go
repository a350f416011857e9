package pipeline

import (
	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/insts"
)

// HazardUnit detects the conditions that hold an instruction in Decode.
// There is no forwarding: a source is usable only once every older writer of
// it has committed.
type HazardUnit struct {
	regFile *emu.RegFile
}

// NewHazardUnit creates a new hazard detection unit reading the given
// scoreboard.
func NewHazardUnit(regFile *emu.RegFile) *HazardUnit {
	return &HazardUnit{regFile: regFile}
}

// PendingSource returns the first source register of inst that has an
// outstanding write, and whether there is one.
func (h *HazardUnit) PendingSource(inst *insts.Instruction) (uint8, bool) {
	for _, r := range inst.Sources() {
		if !h.regFile.Ready(r) {
			return r, true
		}
	}
	return 0, false
}

// SourcesReady reports whether all sources of inst can be read.
func (h *HazardUnit) SourcesReady(inst *insts.Instruction) bool {
	_, pending := h.PendingSource(inst)
	return !pending
}

// DetectBranchHazard reports whether a conditional branch must wait because
// a downstream arithmetic instruction has not committed yet.
func (h *HazardUnit) DetectBranchHazard(
	inst *insts.Instruction,
	memory2 *StageLatch,
	writeback *StageLatch,
) bool {
	if inst == nil || !inst.IsBranch() {
		return false
	}

	for _, l := range []*StageLatch{memory2, writeback} {
		if l.IsArith() && !l.Committed {
			return true
		}
	}

	return false
}
