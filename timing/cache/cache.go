package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CellSize is the number of bytes one data cell occupies in the cache's
// address space. Block sizes are given in bytes and must hold whole cells.
const CellSize = 8

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultL1DConfig returns the default data cache configuration: 1KB,
// 2-way, 32B lines (four cells), single-cycle hits.
func DefaultL1DConfig() Config {
	return Config{
		Size:          1024,
		Associativity: 2,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   4,
	}
}

// Validate checks that the geometry describes at least one set of whole-cell
// blocks and that latencies are non-zero.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockSize%CellSize != 0 {
		return fmt.Errorf("block size %d must be a positive multiple of %d",
			c.BlockSize, CellSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.Size < c.Associativity*c.BlockSize || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d must be a multiple of associativity*block size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	if c.HitLatency == 0 || c.MissLatency == 0 {
		return fmt.Errorf("hit and miss latency must be > 0")
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Value is the cell read (for loads).
	Value int64
	// Evicted is true if a valid block was evicted.
	Evicted bool
	// EvictedAddr is the first cell of the evicted block (if Evicted is true).
	EvictedAddr int64
}

// Cache is a write-back, write-allocate data cache in front of the APEX
// data store. Tags and replacement are handled by an Akita directory.
type Cache struct {
	config     Config
	blockCells int

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]int64

	stats Statistics

	// Backing store interface (for fetching on miss and writeback)
	backing BackingStore
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns the fraction of accesses that hit.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// BackingStore interface for the next level in the memory hierarchy.
// Addresses are cell indices.
type BackingStore interface {
	// Read fetches n cells from the backing store.
	Read(addr int64, n int) []int64
	// Write stores cells to the backing store.
	Write(addr int64, data []int64)
}

// New creates a new cache with the given configuration. The configuration
// must pass Validate.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity
	blockCells := config.BlockSize / CellSize

	dataStore := make([][]int64, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]int64, blockCells)
	}

	return &Cache{
		config:     config,
		blockCells: blockCells,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// blockAddr returns the block-aligned byte address holding cell addr.
func (c *Cache) blockAddr(addr int64) uint64 {
	byteAddr := uint64(addr) * CellSize
	return (byteAddr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

func (c *Cache) offset(addr int64) int {
	return int(addr) % c.blockCells
}

// Read performs a cache read of cell addr. Callers bound-check addr against
// the data store first.
func (c *Cache) Read(addr int64) AccessResult {
	c.stats.Reads++

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Value:   c.dataStore[c.blockIndex(block)][c.offset(addr)],
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, false, 0)
}

// Write performs a cache write of value to cell addr.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr int64, value int64) AccessResult {
	c.stats.Writes++

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		c.dataStore[c.blockIndex(block)][c.offset(addr)] = value
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, true, value)
}

func (c *Cache) handleMiss(addr int64, isWrite bool, value int64) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = int64(victim.Tag / CellSize)

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(int64(victim.Tag/CellSize), victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(int64(blockAddr/CellSize), c.blockCells))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	// Tag stores the block-aligned byte address.
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	if isWrite {
		victimData[c.offset(addr)] = value
		victim.IsDirty = true
	} else {
		result.Value = victimData[c.offset(addr)]
	}

	c.directory.Visit(victim)

	return result
}

// Invalidate marks the line holding cell addr as invalid without writeback.
func (c *Cache) Invalidate(addr int64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Write(int64(block.Tag/CellSize), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
