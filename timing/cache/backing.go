// Package cache provides data cache modeling using Akita cache components.
package cache

import (
	"github.com/sarchlab/apexsim/emu"
)

// MemoryBacking wraps emu.Memory as a BackingStore. Cells outside the data
// store read as zero and writes to them are dropped, so a block that straddles
// the end of the store can still be filled.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches n cells starting at cell addr.
func (m *MemoryBacking) Read(addr int64, n int) []int64 {
	data := make([]int64, n)
	for i := range data {
		data[i] = m.memory.Peek(addr + int64(i))
	}
	return data
}

// Write stores data starting at cell addr.
func (m *MemoryBacking) Write(addr int64, data []int64) {
	for i, v := range data {
		m.memory.Poke(addr+int64(i), v)
	}
}
