// Package engine implements the recursive read/write propagation across a
// cache hierarchy: the write policy state machine, LRU-eviction-driven
// write-back, clock accounting, and the indented access trace.
package engine

import (
	"fmt"

	"github.com/sarchlab/cachesim/cachelevel"
	"github.com/sarchlab/cachesim/hierarchy"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simerr"
)

// Policy selects the write policy the whole system implements. There is
// exactly one policy per run; it is not selectable per level.
type Policy int

const (
	// WBWA is write-back + write-allocate.
	WBWA Policy = iota + 1
	// WTNWA is write-through + no-write-allocate.
	WTNWA
)

// Engine walks a Hierarchy performing reads and writes, accumulating the
// simulated clock and emitting the access trace.
type Engine struct {
	h      *hierarchy.Hierarchy
	policy Policy
	trace  report.Trace
}

// New builds an Engine over h implementing policy, emitting its trace to
// trace.
func New(h *hierarchy.Hierarchy, policy Policy, trace report.Trace) *Engine {
	return &Engine{h: h, policy: policy, trace: trace}
}

func locationName(l *cachelevel.Level) string {
	if l == nil {
		return "MEM"
	}
	return fmt.Sprintf("L%d", l.ID())
}

// Read performs a read at level l (nil meaning main memory) for address,
// entering at clock t0, and returns the clock after the access completes.
func (e *Engine) Read(l *cachelevel.Level, address uint32, t0 uint64) uint64 {
	if l == nil {
		e.trace.Call(t0, "MEM", "READ", cachelevel.Address{}, address)
		t1 := t0 + e.h.MemoryLatency()
		e.trace.Return(t1, "M_R_SUCCESS")
		return t1
	}

	decoded := l.Decode(address)
	e.trace.Call(t0, locationName(l), "READ", decoded, address)

	status := ""
	t1 := t0

	if hit, _ := l.Probe(address, t0, false); hit {
		status = "C_R_HIT"
		t1 = t0 + l.Latency()
		e.trace.Return(t1, status)
		return t1
	}

	e.trace.Note(t0, "C_R_MISS$GENERAL")
	parent := e.h.Parent(l)
	t1 = e.Read(parent, address, t0)

	if ok, _ := l.Allocate(address, false, t1); ok {
		status = "C_R_MISS$ALLOC_SUCCESS"
	} else {
		wasDirty, victimAddr := l.EvictLRU(address)
		if wasDirty {
			status = "C_R_MISS$ALLOC_FAILED$POP_DIRTY"
			e.trace.Note(t1, status)
			t1 = e.Write(parent, victimAddr, t1)
		} else {
			status = "C_R_MISS$ALLOC_FAILED$POP_CLEAN"
			e.trace.Note(t1, status)
		}
		if ok, _ := l.Allocate(address, false, t1); !ok {
			simerr.Raise("level %d: allocate after evict failed for address 0x%X", l.ID(), address)
		}
	}

	t1 += l.Latency()
	e.trace.Return(t1, status)
	return t1
}

// Write performs a write at level l (nil meaning main memory) for
// address, entering at clock t0, dispatching on the engine's configured
// policy, and returns the clock after the access completes.
func (e *Engine) Write(l *cachelevel.Level, address uint32, t0 uint64) uint64 {
	switch e.policy {
	case WTNWA:
		return e.writeThroughNoAllocate(l, address, t0)
	default:
		return e.writeBackAllocate(l, address, t0)
	}
}

func (e *Engine) writeBackAllocate(l *cachelevel.Level, address uint32, t0 uint64) uint64 {
	if l == nil {
		e.trace.Call(t0, "MEM", "WRITE", cachelevel.Address{}, address)
		t1 := t0 + e.h.MemoryLatency()
		e.trace.Return(t1, "M_W_SUCCESS")
		return t1
	}

	decoded := l.Decode(address)
	e.trace.Call(t0, locationName(l), "WRITE", decoded, address)

	t1 := t0 + l.Latency()
	status := ""

	if hit, _ := l.Probe(address, t1, true); hit {
		status = "C_W_HIT$MARKED_DIRTY$WB"
	} else if ok, _ := l.Allocate(address, true, t1); ok {
		status = "C_W_MISS$ALLOC_SUCCESS$WB"
	} else {
		parent := e.h.Parent(l)
		wasDirty, victimAddr := l.EvictLRU(address)
		if wasDirty {
			status = "C_W_MISS$ALLOC_FAILED$POP_DIRTY$WB"
			e.trace.Note(t1, status)
			t1 = e.Write(parent, victimAddr, t1)
		} else {
			status = "C_W_MISS$ALLOC_FAILED$POP_CLEAN$WB"
			e.trace.Note(t1, status)
		}
		if ok, _ := l.Allocate(address, true, t1); !ok {
			simerr.Raise("level %d: allocate after evict failed for address 0x%X", l.ID(), address)
		}
	}

	e.trace.Return(t1, status)
	return t1
}

func (e *Engine) writeThroughNoAllocate(l *cachelevel.Level, address uint32, t0 uint64) uint64 {
	if l == nil {
		e.trace.Call(t0, "MEM", "WRITE", cachelevel.Address{}, address)
		t1 := t0 + e.h.MemoryLatency()
		e.trace.Return(t1, "M_W_SUCCESS")
		return t1
	}

	decoded := l.Decode(address)
	e.trace.Call(t0, locationName(l), "WRITE", decoded, address)

	if hit, _ := l.Probe(address, t0, false); hit {
		t1 := t0 + l.Latency()
		e.trace.Return(t1, "C_W_HIT$WT")
		return t1
	}

	e.trace.Note(t0, "C_W_MISS$PROPAGATE$WT")
	parent := e.h.Parent(l)
	t1 := e.Write(parent, address, t0)
	e.trace.Return(t1, "C_W_MISS$PROPAGATE$WT")
	return t1
}
