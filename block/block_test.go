package block_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/block"
)

func TestBlock(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Block Suite")
}

var _ = Describe("DataBlock", func() {
	var b block.DataBlock

	BeforeEach(func() {
		b = block.DataBlock{}
	})

	It("starts invalid with zero tag and zero last use", func() {
		Expect(b.Valid).To(BeFalse())
		Expect(b.Tag).To(Equal(uint32(0)))
		Expect(b.LastUse).To(Equal(uint64(0)))
	})

	It("installs a tag into an empty way", func() {
		b.Install(0x42, true, 7)
		Expect(b.Valid).To(BeTrue())
		Expect(b.Tag).To(Equal(uint32(0x42)))
		Expect(b.Dirty).To(BeTrue())
		Expect(b.LastUse).To(Equal(uint64(7)))
	})

	It("matches only a valid block holding the same tag", func() {
		Expect(b.Matches(0x42)).To(BeFalse())
		b.Install(0x42, false, 1)
		Expect(b.Matches(0x42)).To(BeTrue())
		Expect(b.Matches(0x43)).To(BeFalse())
	})

	It("replaces, not ORs, the dirty flag on touch", func() {
		b.Install(0x1, true, 1)
		b.Touch(2, false)
		Expect(b.Dirty).To(BeFalse())
		Expect(b.LastUse).To(Equal(uint64(2)))
	})

	It("flush clears validity and tag but preserves last use", func() {
		b.Install(0x1, true, 5)
		b.Flush()
		Expect(b.Valid).To(BeFalse())
		Expect(b.Tag).To(Equal(uint32(0)))
		Expect(b.LastUse).To(Equal(uint64(5)))
	})
})
