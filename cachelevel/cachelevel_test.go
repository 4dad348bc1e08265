package cachelevel_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cachelevel"
)

func TestCacheLevel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CacheLevel Suite")
}

var _ = Describe("Level", func() {
	Describe("address decode/encode", func() {
		It("round-trips any address whose fields sum to 32 bits", func() {
			// 16 B total, 4 B blocks, direct mapped -> 4 sets: 2 offset, 2
			// index, 28 tag bits.
			l := cachelevel.New(cachelevel.Config{ID: 1, BlockSize: 4, SetAssoc: 1, TotalSize: 16, Latency: 1})
			for _, addr := range []uint32{0, 1, 0xDEADBEEF, 0xFFFFFFFF, 0x12345678} {
				decoded := l.Decode(addr)
				Expect(l.Encode(decoded)).To(Equal(addr))
			}
		})
	})

	Describe("single-level direct-mapped hit", func() {
		var l *cachelevel.Level

		BeforeEach(func() {
			l = cachelevel.New(cachelevel.Config{ID: 1, BlockSize: 4, SetAssoc: 1, TotalSize: 16, Latency: 1})
		})

		It("misses on the first probe and hits after allocation", func() {
			hit, decoded := l.Probe(0, 0, false)
			Expect(hit).To(BeFalse())

			ok, _ := l.Allocate(0, false, 100)
			Expect(ok).To(BeTrue())

			hit, decoded = l.Probe(1, 101, false)
			Expect(hit).To(BeTrue())
			Expect(decoded.Tag).To(Equal(uint32(0)))

			hits, misses := l.HitMissCounts()
			Expect(hits).To(Equal(uint64(1)))
			Expect(misses).To(Equal(uint64(1)))
		})
	})

	Describe("LRU eviction in a 2-way set", func() {
		var l *cachelevel.Level

		BeforeEach(func() {
			// 16 B total, 4 B blocks, 2-way -> 2 sets.
			l = cachelevel.New(cachelevel.Config{ID: 1, BlockSize: 4, SetAssoc: 2, TotalSize: 16, Latency: 1})
		})

		addrForSet0 := func(tag uint32) uint32 {
			return tag << 3 // 1 index bit (set 0), 2 offset bits
		}

		It("evicts the least-recently-used way", func() {
			ok, _ := l.Allocate(addrForSet0(1), false, 1)
			Expect(ok).To(BeTrue())
			ok, _ = l.Allocate(addrForSet0(2), false, 2)
			Expect(ok).To(BeTrue())

			// Touch tag 1 so tag 2 becomes the LRU victim.
			hit, _ := l.Probe(addrForSet0(1), 3, false)
			Expect(hit).To(BeTrue())

			wasDirty, victimAddr := l.EvictLRU(addrForSet0(3))
			Expect(wasDirty).To(BeFalse())
			Expect(victimAddr).To(Equal(addrForSet0(2)))
		})

		It("breaks equal-recency ties by the smallest way index", func() {
			ok, _ := l.Allocate(addrForSet0(1), false, 5)
			Expect(ok).To(BeTrue())
			ok, _ = l.Allocate(addrForSet0(2), false, 5)
			Expect(ok).To(BeTrue())

			_, victimAddr := l.EvictLRU(addrForSet0(3))
			Expect(victimAddr).To(Equal(addrForSet0(1)))
		})
	})

	Describe("write policy dirty merge", func() {
		It("replaces, rather than ORs, the dirty flag on probe hit", func() {
			l := cachelevel.New(cachelevel.Config{ID: 1, BlockSize: 4, SetAssoc: 1, TotalSize: 4, Latency: 1})
			l.Allocate(0, true, 1)

			hit, _ := l.Probe(0, 2, false)
			Expect(hit).To(BeTrue())

			wasDirty, victimAddr := l.EvictLRU(4)
			Expect(wasDirty).To(BeFalse())
			Expect(victimAddr).To(Equal(uint32(0)))
		})
	})

	Describe("allocation failure", func() {
		It("fails to allocate once every way in the set is full", func() {
			l := cachelevel.New(cachelevel.Config{ID: 1, BlockSize: 4, SetAssoc: 1, TotalSize: 4, Latency: 1})
			ok, _ := l.Allocate(0, false, 1)
			Expect(ok).To(BeTrue())

			ok, _ = l.Allocate(4, false, 2)
			Expect(ok).To(BeFalse())
		})
	})
})
