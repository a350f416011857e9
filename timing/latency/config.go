package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds stage occupancy values for different instruction types.
// Values are cycles spent in the stage that does the instruction's work:
// Execute1 for ALU, multiply and control instructions, Memory2 for loads and
// stores.
type TimingConfig struct {
	// ALULatency is the Execute1 occupancy of single-cycle arithmetic
	// (ADD, ADDL, SUB, SUBL, AND, OR, EXOR, MOVC). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// MultiplyLatency is the Execute1 occupancy of MUL. Default: 2 cycles,
	// so Fetch and Decode stay frozen for one extra cycle.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// BranchLatency is the Execute1 occupancy of BZ, BNZ, JUMP and HALT.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is the Memory2 occupancy of LOAD and LDR when no data
	// cache is attached. Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the Memory2 occupancy of STORE and STR when no data
	// cache is attached. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the APEX reference values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      1,
		MultiplyLatency: 2,
		BranchLatency:   1,
		LoadLatency:     1,
		StoreLatency:    1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
