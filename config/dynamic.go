package config

import (
	"sync/atomic"

	"github.com/fieldbay/sweeper/types"
)

// DynamicConfig supplies live overrides that may change while the daemon
// runs. The lifecycle controller consults it every cycle.
type DynamicConfig interface {
	// MaxItemsPerCycle returns the effective per-cycle item cap for a
	// namespace, falling back to the configured value when no override
	// is active.
	MaxItemsPerCycle(ns types.Namespace, configured int) int
}

// StaticDynamicConfig applies no overrides.
type StaticDynamicConfig struct{}

func (StaticDynamicConfig) MaxItemsPerCycle(_ types.Namespace, configured int) int {
	return configured
}

// OverridableConfig holds a process-wide max-items override settable at
// runtime (e.g. from an admin endpoint). Zero means no override.
type OverridableConfig struct {
	maxItems atomic.Int64
}

// SetMaxItemsPerCycle installs an override; zero clears it.
func (c *OverridableConfig) SetMaxItemsPerCycle(n int) {
	c.maxItems.Store(int64(n))
}

func (c *OverridableConfig) MaxItemsPerCycle(_ types.Namespace, configured int) int {
	if override := c.maxItems.Load(); override > 0 {
		return int(override)
	}
	return configured
}
