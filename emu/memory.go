package emu

import (
	"errors"
	"fmt"
)

// DefaultMemorySize is the number of data cells in the default data store.
const DefaultMemorySize = 4000

// ErrAddressOutOfRange is returned for a data access outside the store.
var ErrAddressOutOfRange = errors.New("data address out of range")

// Memory is the APEX data store: a fixed array of signed integer cells
// addressed from 0.
type Memory struct {
	cells []int64
}

// NewMemory creates a data store with size cells, all zero.
func NewMemory(size int) *Memory {
	if size < 0 {
		size = 0
	}
	return &Memory{cells: make([]int64, size)}
}

// Size returns the number of cells.
func (m *Memory) Size() int {
	return len(m.cells)
}

// InRange reports whether addr names a cell.
func (m *Memory) InRange(addr int64) bool {
	return addr >= 0 && addr < int64(len(m.cells))
}

// Read returns the value at addr.
func (m *Memory) Read(addr int64) (int64, error) {
	if !m.InRange(addr) {
		return 0, fmt.Errorf("%w: %d", ErrAddressOutOfRange, addr)
	}
	return m.cells[addr], nil
}

// Write stores value at addr.
func (m *Memory) Write(addr int64, value int64) error {
	if !m.InRange(addr) {
		return fmt.Errorf("%w: %d", ErrAddressOutOfRange, addr)
	}
	m.cells[addr] = value
	return nil
}

// Peek reads a cell without bounds errors; out-of-range cells read as 0.
func (m *Memory) Peek(addr int64) int64 {
	if !m.InRange(addr) {
		return 0
	}
	return m.cells[addr]
}

// Poke writes a cell, silently dropping out-of-range writes.
func (m *Memory) Poke(addr int64, value int64) {
	if m.InRange(addr) {
		m.cells[addr] = value
	}
}
