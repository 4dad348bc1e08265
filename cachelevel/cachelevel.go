// Package cachelevel implements a single set-associative cache level: address
// decoding, tag lookup, way allocation, LRU eviction, and the per-level hit
// and miss counters the rest of the simulator reports on.
package cachelevel

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/cachesim/block"
)

// Address is a decoded 32-bit address split into its tag, set index, and
// block offset fields.
type Address struct {
	Tag    uint32
	Index  uint32
	Offset uint32
}

// Config describes the dimensions of one cache level, as carried by the
// `scd`/`scl` instruction pair before the level's array is initialized.
type Config struct {
	// ID is the 1-based level number; 1 is closest to the CPU.
	ID uint32
	// BlockSize is the number of bytes per line; must be a power of two.
	BlockSize uint32
	// SetAssoc is the number of ways per set.
	SetAssoc uint32
	// TotalSize is the total capacity in bytes.
	TotalSize uint32
	// Latency is the number of cycles a hit or completed miss costs at
	// this level.
	Latency uint64
}

// Level is one set-associative cache level. It holds no link to the next
// level; hierarchy.Hierarchy chains levels toward main memory.
type Level struct {
	id        uint32
	blockSize uint32
	setAssoc  uint32
	numSets   uint32

	offsetBits uint32
	indexBits  uint32
	tagBits    uint32

	latency uint64

	array [][]block.DataBlock

	hits   uint64
	misses uint64
}

// New builds a Level from cfg. TotalSize, BlockSize and SetAssoc must
// already satisfy the power-of-two invariants this system requires
// (TotalSize/BlockSize/SetAssoc and BlockSize both powers of two); New
// panics if they do not, since that reflects a bug in the Config/Build
// facade's validation, not a runtime condition the caller should recover
// from.
func New(cfg Config) *Level {
	numSets := cfg.TotalSize / cfg.BlockSize / cfg.SetAssoc
	if !isPowerOfTwo(cfg.BlockSize) || !isPowerOfTwo(numSets) {
		panic(fmt.Sprintf("cachelevel: level %d dimensions are not powers of two (block_size=%d num_sets=%d)", cfg.ID, cfg.BlockSize, numSets))
	}

	offsetBits := uint32(bits.Len32(cfg.BlockSize - 1))
	indexBits := uint32(bits.Len32(numSets - 1))
	tagBits := 32 - offsetBits - indexBits

	l := &Level{
		id:         cfg.ID,
		blockSize:  cfg.BlockSize,
		setAssoc:   cfg.SetAssoc,
		numSets:    numSets,
		offsetBits: offsetBits,
		indexBits:  indexBits,
		tagBits:    tagBits,
		latency:    cfg.Latency,
	}

	l.array = make([][]block.DataBlock, numSets)
	for i := range l.array {
		l.array[i] = make([]block.DataBlock, cfg.SetAssoc)
	}

	return l
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// ID returns the 1-based level number.
func (l *Level) ID() uint32 { return l.id }

// Latency returns the per-access cycle cost of this level.
func (l *Level) Latency() uint64 { return l.latency }

// NumSets returns the number of sets in this level.
func (l *Level) NumSets() uint32 { return l.numSets }

// SetAssoc returns the number of ways per set.
func (l *Level) SetAssoc() uint32 { return l.setAssoc }

// Decode splits a into (tag, index, offset) using this level's bit
// partition.
func (l *Level) Decode(a uint32) Address {
	return Address{
		Tag:    a >> (l.indexBits + l.offsetBits),
		Index:  (a >> l.offsetBits) & maskBits(l.indexBits),
		Offset: a & maskBits(l.offsetBits),
	}
}

// Encode reverses Decode: it bit-packs (tag, index, offset) back into a
// 32-bit address.
func (l *Level) Encode(a Address) uint32 {
	return (a.Tag << (l.indexBits + l.offsetBits)) | (a.Index << l.offsetBits) | a.Offset
}

func maskBits(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return (uint32(1) << n) - 1
}

// Probe looks up address in the target set, updating LRU recency and the
// dirty flag on a hit. newDirty replaces (does not OR with) the existing
// dirty flag, matching the write-policy-dependent semantics of a WBWA or
// WTNWA write hit.
func (l *Level) Probe(address uint32, now uint64, newDirty bool) (hit bool, decoded Address) {
	decoded = l.Decode(address)
	set := l.array[decoded.Index]
	for i := range set {
		if set[i].Matches(decoded.Tag) {
			set[i].Touch(now, newDirty)
			l.hits++
			return true, decoded
		}
	}
	l.misses++
	return false, decoded
}

// Allocate installs address into the first invalid way of its target set.
// It reports failure if every way is occupied.
func (l *Level) Allocate(address uint32, dirty bool, now uint64) (ok bool, decoded Address) {
	decoded = l.Decode(address)
	set := l.array[decoded.Index]
	for i := range set {
		if !set[i].Valid {
			set[i].Install(decoded.Tag, dirty, now)
			return true, decoded
		}
	}
	return false, decoded
}

// EvictLRU evicts the way with the smallest LastUse in address's target
// set, breaking ties by the smallest way index. It returns whether the
// victim was dirty and the victim's reconstructed full address — the
// address that must be written back to the parent level if wasDirty is
// true.
func (l *Level) EvictLRU(address uint32) (wasDirty bool, victimAddr uint32) {
	decoded := l.Decode(address)
	set := l.array[decoded.Index]

	victim := 0
	for i := 1; i < len(set); i++ {
		if set[i].LastUse < set[victim].LastUse {
			victim = i
		}
	}

	wasDirty = set[victim].Dirty
	victimAddr = l.Encode(Address{Tag: set[victim].Tag, Index: decoded.Index, Offset: decoded.Offset})
	set[victim].Flush()

	return wasDirty, victimAddr
}

// HitMissCounts returns the running hit and miss totals for this level.
func (l *Level) HitMissCounts() (hits, misses uint64) {
	return l.hits, l.misses
}

// WayState describes one way's reportable state, used by report_image.
type WayState struct {
	Valid   bool
	Dirty   bool
	Tag     uint32
	LastUse uint64
}

// ImageRow is one set's worth of way states, in way order.
type ImageRow struct {
	Ways []WayState
}

// Image returns a per-set snapshot of every way's reportable state.
func (l *Level) Image() []ImageRow {
	rows := make([]ImageRow, len(l.array))
	for i, set := range l.array {
		row := ImageRow{Ways: make([]WayState, len(set))}
		for w, b := range set {
			row.Ways[w] = WayState{Valid: b.Valid, Dirty: b.Dirty, Tag: b.Tag, LastUse: b.LastUse}
		}
		rows[i] = row
	}
	return rows
}
