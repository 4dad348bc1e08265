// Package block implements the single tag-slot unit held by every way of
// every cache level: validity, dirtiness, the stored tag, and the
// timestamp used to pick an LRU victim.
package block

// DataBlock is one way's worth of cache metadata. No data payload is
// tracked, only what the simulator needs to decide hits, misses, and
// evictions.
type DataBlock struct {
	Valid   bool
	Dirty   bool
	Tag     uint32
	LastUse uint64
}

// Flush invalidates the block. Tag is zeroed; Dirty and LastUse are left
// as-is since a flushed block's tag and dirty bit have no meaning.
func (b *DataBlock) Flush() {
	b.Valid = false
	b.Tag = 0
}

// Install places a new tag into an empty way. Callers must guarantee the
// block is currently invalid; installing over a valid block is an
// invariant violation the caller is responsible for avoiding.
func (b *DataBlock) Install(tag uint32, dirty bool, now uint64) {
	b.Valid = true
	b.Tag = tag
	b.Dirty = dirty
	b.LastUse = now
}

// Touch updates recency and dirtiness on a hit. The dirty flag is
// replaced, not OR'd: callers decide the new value per their write
// policy.
func (b *DataBlock) Touch(now uint64, dirty bool) {
	b.LastUse = now
	b.Dirty = dirty
}

// Matches reports whether this block currently holds tag.
func (b *DataBlock) Matches(tag uint32) bool {
	return b.Valid && b.Tag == tag
}
