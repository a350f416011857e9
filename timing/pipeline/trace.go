package pipeline

import (
	"fmt"
	"io"
)

// Tracer prints the content of every stage after each cycle.
type Tracer struct {
	w io.Writer
}

// NewTracer creates a tracer writing to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Trace writes one cycle's stage contents, Fetch first.
func (t *Tracer) Trace(cycle uint64, latches *[NumStages]StageLatch) {
	fmt.Fprintf(t.w, "--------------------------------\n")
	fmt.Fprintf(t.w, "Clock Cycle #: %d\n", cycle)
	fmt.Fprintf(t.w, "--------------------------------\n")

	for s := StageFetch; s < NumStages; s++ {
		l := &latches[s]
		if !l.Valid {
			fmt.Fprintf(t.w, "%-15s: EMPTY\n", s)
			continue
		}
		if l.Fault != nil {
			fmt.Fprintf(t.w, "%-15s: pc(%d) FAULT %v\n", s, l.PC, l.Fault)
			continue
		}
		fmt.Fprintf(t.w, "%-15s: pc(%d) %v\n", s, l.PC, l.Inst)
	}
}
