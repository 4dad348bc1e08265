// Package hierarchy chains cache levels from the CPU down toward main
// memory and exposes 1-based level lookup.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cachesim/cachelevel"
)

// ErrOutOfRange is returned when a level index beyond CacheCount is
// requested.
var ErrOutOfRange = errors.New("cache level out of range")

// Hierarchy owns the chain of cache levels 1..N, beyond which lies main
// memory (represented only by MemoryLatency, not a Level).
type Hierarchy struct {
	levels        []*cachelevel.Level
	memoryLatency uint64
}

// New builds a Hierarchy from levels already constructed in order
// (levels[0] is level 1, the level closest to the CPU).
func New(levels []*cachelevel.Level, memoryLatency uint64) *Hierarchy {
	return &Hierarchy{levels: levels, memoryLatency: memoryLatency}
}

// Count returns the number of cache levels (not counting memory).
func (h *Hierarchy) Count() int {
	return len(h.levels)
}

// MemoryLatency returns the cycles a memory access costs.
func (h *Hierarchy) MemoryLatency() uint64 {
	return h.memoryLatency
}

// Level returns the k-th level (1-based). Any k outside 1..Count(),
// including Count()+1, fails with ErrOutOfRange; main memory is never
// returned here (the engine reaches it through Parent returning nil).
func (h *Hierarchy) Level(k uint32) (*cachelevel.Level, error) {
	if k < 1 || int(k) > len(h.levels) {
		return nil, fmt.Errorf("level %d: %w", k, ErrOutOfRange)
	}
	return h.levels[k-1], nil
}

// Parent returns the level following l in the chain, or nil if l is the
// last level before memory.
func (h *Hierarchy) Parent(l *cachelevel.Level) *cachelevel.Level {
	for i, candidate := range h.levels {
		if candidate == l {
			if i+1 < len(h.levels) {
				return h.levels[i+1]
			}
			return nil
		}
	}
	return nil
}

// Top returns level 1, or nil if the hierarchy has no levels.
func (h *Hierarchy) Top() *cachelevel.Level {
	if len(h.levels) == 0 {
		return nil
	}
	return h.levels[0]
}
