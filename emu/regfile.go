// Package emu provides functional APEX emulation.
package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// ErrScoreboardUnderflow is returned when a register write is released more
// times than it was claimed.
var ErrScoreboardUnderflow = errors.New("scoreboard underflow")

// RegFile represents the APEX register file.
// It contains 32 general-purpose registers and, for each register, the
// number of in-flight instructions that will write it (the scoreboard).
type RegFile struct {
	// R holds general-purpose registers R0-R31.
	R [insts.NumRegs]int64

	pending [insts.NumRegs]int
}

// ReadReg reads a register value. Out-of-range indices read as 0.
func (r *RegFile) ReadReg(reg uint8) int64 {
	if reg >= insts.NumRegs {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to out-of-range indices are
// ignored.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if reg >= insts.NumRegs {
		return
	}
	r.R[reg] = value
}

// Ready reports whether no in-flight instruction will write reg.
func (r *RegFile) Ready(reg uint8) bool {
	return r.Pending(reg) == 0
}

// Pending returns the number of outstanding writes to reg.
func (r *RegFile) Pending(reg uint8) int {
	if reg >= insts.NumRegs {
		return 0
	}
	return r.pending[reg]
}

// Claim records one more outstanding write to reg.
func (r *RegFile) Claim(reg uint8) {
	if reg >= insts.NumRegs {
		return
	}
	r.pending[reg]++
}

// Release retires one outstanding write to reg.
func (r *RegFile) Release(reg uint8) error {
	if reg >= insts.NumRegs {
		return nil
	}

	if r.pending[reg] == 0 {
		return fmt.Errorf("%w: R%d", ErrScoreboardUnderflow, reg)
	}

	r.pending[reg]--
	return nil
}

// Reset clears all register values and outstanding writes.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
