package instfile_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/instfile"
)

func TestInstfile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Instfile Suite")
}

type recordingBuilder struct {
	calls []string
}

func (r *recordingBuilder) SetConfig(cacheCount, blockSize, policyNum uint32) {
	r.calls = append(r.calls, "con")
}
func (r *recordingBuilder) SetCacheDimension(level, totalSize, setAssoc uint32) error {
	r.calls = append(r.calls, "scd")
	return nil
}
func (r *recordingBuilder) SetCacheLatency(level uint32, latency uint64) error {
	r.calls = append(r.calls, "scl")
	return nil
}
func (r *recordingBuilder) SetMemoryLatency(latency uint64) {
	r.calls = append(r.calls, "sml")
}
func (r *recordingBuilder) InitCache(level uint32) error {
	r.calls = append(r.calls, "inc")
	return nil
}
func (r *recordingBuilder) TaskRead(address uint32, arriveTime uint64) {
	r.calls = append(r.calls, "tre")
}
func (r *recordingBuilder) TaskWrite(address uint32, arriveTime uint64) {
	r.calls = append(r.calls, "twr")
}
func (r *recordingBuilder) TaskReportRate(level uint32, arriveTime uint64) {
	r.calls = append(r.calls, "pcr")
}
func (r *recordingBuilder) TaskReportImage(level uint32, arriveTime uint64) {
	r.calls = append(r.calls, "pci")
}
func (r *recordingBuilder) InitSystem() {
	r.calls = append(r.calls, "ins")
}

var _ = Describe("Parse", func() {
	It("dispatches a full S1-shaped program in order", func() {
		src := "con $1 $4 $1 scd $1 $16 $1 scl $1 $1 sml $100 inc $1 tre $0 $0 tre $0 $1 pcr $1 $10 ins"
		b := &recordingBuilder{}
		Expect(instfile.Parse(strings.NewReader(src), b, nil)).To(Succeed())
		Expect(b.calls).To(Equal([]string{"con", "scd", "scl", "sml", "inc", "tre", "tre", "pcr", "ins"}))
	})

	It("skips unrecognized tokens as noise", func() {
		src := "garbage con $1 $4 $1 more-noise ins"
		b := &recordingBuilder{}
		Expect(instfile.Parse(strings.NewReader(src), b, nil)).To(Succeed())
		Expect(b.calls).To(Equal([]string{"con", "ins"}))
	})

	It("stops parsing at hat and discards anything after it", func() {
		src := "con $1 $4 $1 hat ins tre $0 $0"
		b := &recordingBuilder{}
		Expect(instfile.Parse(strings.NewReader(src), b, nil)).To(Succeed())
		Expect(b.calls).To(Equal([]string{"con"}))
	})

	It("reports and skips a record missing its $ prefix without aborting the rest", func() {
		src := "con 1 $4 $1 ins"
		b := &recordingBuilder{}
		var warned []error
		Expect(instfile.Parse(strings.NewReader(src), b, func(err error) { warned = append(warned, err) })).To(Succeed())

		Expect(warned).To(HaveLen(1))
		Expect(b.calls).To(Equal([]string{"ins"}))
	})

	It("reports and skips a non-numeric argument", func() {
		src := "sml $notanumber con $1 $4 $1"
		b := &recordingBuilder{}
		var warned []error
		Expect(instfile.Parse(strings.NewReader(src), b, func(err error) { warned = append(warned, err) })).To(Succeed())

		Expect(warned).To(HaveLen(1))
		Expect(b.calls).To(Equal([]string{"con"}))
	})

	It("reports a truncated record that runs out of input mid-argument-list", func() {
		src := "con $1 $4"
		b := &recordingBuilder{}
		var warned []error
		Expect(instfile.Parse(strings.NewReader(src), b, func(err error) { warned = append(warned, err) })).To(Succeed())

		Expect(warned).To(HaveLen(1))
		Expect(b.calls).To(BeEmpty())
	})
})
