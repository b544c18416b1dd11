package iopmp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/iopmpsim/iopmp"
)

var _ = Describe("Entry", func() {
	Context("NAPOT encoding", func() {
		It("should use NA4 for 4-byte regions", func() {
			e := iopmp.NAPOTEntry(0x100, 4, iopmp.AccessRead)

			Expect(e.Mode).To(Equal(iopmp.ModeNA4))
			Expect(e.Addr).To(Equal(uint64(0x100)))

			base, length := e.NAPOTRegion()
			Expect(base).To(Equal(uint64(0x100)))
			Expect(length).To(Equal(uint64(4)))
		})

		It("should round trip a 4KB region", func() {
			e := iopmp.NAPOTEntry(0x1000, 0x1000, iopmp.AccessRead)

			Expect(e.Mode).To(Equal(iopmp.ModeNAPOT))
			Expect(e.Addr).To(Equal(uint64(0x17ff)))

			base, length := e.NAPOTRegion()
			Expect(base).To(Equal(uint64(0x1000)))
			Expect(length).To(Equal(uint64(0x1000)))
		})

		It("should round trip the smallest NAPOT region", func() {
			e := iopmp.NAPOTEntry(0x100, 8, iopmp.AccessWrite)

			base, length := e.NAPOTRegion()
			Expect(e.Mode).To(Equal(iopmp.ModeNAPOT))
			Expect(base).To(Equal(uint64(0x100)))
			Expect(length).To(Equal(uint64(8)))
		})

		It("should round trip every power of two through the registers",
			func() {
				for shift := 3; shift < 40; shift++ {
					length := uint64(1) << shift
					base := length * 3

					e := iopmp.NAPOTEntry(base, length, iopmp.AccessAll)
					lo, hi := iopmp.EncodeAddr(e.Addr)
					decoded := iopmp.Entry{Mode: e.Mode, Addr: iopmp.DecodeAddr(lo, hi)}

					b, l := decoded.NAPOTRegion()
					Expect(b).To(Equal(base))
					Expect(l).To(Equal(length))
				}
			})

		It("should decode all ones as the whole address space", func() {
			e := iopmp.Entry{Mode: iopmp.ModeNAPOT, Addr: ^uint64(0)}

			base, length := e.NAPOTRegion()
			Expect(base).To(BeZero())
			Expect(length).To(BeZero())

			first, last, _ := iopmp.Coverage(e, 0)
			Expect(first).To(BeZero())
			Expect(last).To(Equal(^uint64(0)))
		})

		It("should panic on illegal regions", func() {
			for _, c := range [][2]uint64{{0x100, 2}, {0x100, 12}, {0x104, 8}} {
				Expect(func() {
					iopmp.NAPOTEntry(c[0], c[1], iopmp.AccessRead)
				}).To(Panic())
			}
		})

		It("should panic when decoding a TOR entry as NAPOT", func() {
			e := iopmp.TOREntry(0x100, iopmp.AccessRead)

			Expect(func() { e.NAPOTRegion() }).To(Panic())
		})
	})

	Context("address transport", func() {
		It("should shift and split low bits first", func() {
			lo, hi := iopmp.EncodeAddr(0xFFFF105A45)

			Expect(lo).To(Equal(uint32(0xFFC41691)))
			Expect(hi).To(Equal(uint32(0x3F)))
			Expect(iopmp.DecodeAddr(lo, hi)).To(Equal(uint64(0xFFFF105A44)))
		})
	})

	Context("coverage", func() {
		It("should cover [previous top, top) for TOR", func() {
			first, last, empty := iopmp.Coverage(
				iopmp.TOREntry(0x200, iopmp.AccessRead), 0x100)

			Expect(empty).To(BeFalse())
			Expect(first).To(Equal(uint64(0x100)))
			Expect(last).To(Equal(uint64(0x1ff)))
		})

		It("should cover nothing when the TOR top is not above the bottom",
			func() {
				e := iopmp.TOREntry(0x100, iopmp.AccessRead)

				_, _, empty := iopmp.Coverage(e, 0x100)
				Expect(empty).To(BeTrue())
				_, _, empty = iopmp.Coverage(e, 0x200)
				Expect(empty).To(BeTrue())
			})

		It("should cover nothing when OFF", func() {
			_, _, empty := iopmp.Coverage(iopmp.OffEntry(0x100), 0)
			Expect(empty).To(BeTrue())
		})
	})

	It("should render access sets", func() {
		Expect(iopmp.AccessNone.String()).To(Equal("---"))
		Expect((iopmp.AccessRead | iopmp.AccessExec).String()).To(Equal("r-x"))
		Expect(iopmp.AccessAll.Contains(iopmp.AccessWrite)).To(BeTrue())
		Expect(iopmp.AccessRead.Contains(iopmp.AccessWrite)).To(BeFalse())
		Expect((iopmp.AccessRead | iopmp.AccessWrite).IsKind()).To(BeFalse())
	})
})
