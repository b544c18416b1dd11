package iopmp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/iopmpsim/iopmp"
)

var _ = Describe("Binding", func() {
	var (
		m *iopmp.Model
	)

	BeforeEach(func() {
		m = iopmp.NewModel(iopmp.DefaultConfig())
	})

	Context("DomainSet", func() {
		It("should list domains in order", func() {
			s := iopmp.NewDomainSet(3, 0, 2)

			Expect(s.Len()).To(Equal(3))
			Expect(s.Domains()).To(Equal([]int{0, 2, 3}))
			Expect(s.Contains(1)).To(BeFalse())
			Expect(s.Contains(64)).To(BeFalse())
			Expect(s.String()).To(Equal("{0,2,3}"))
		})

		It("should panic on domains out of range", func() {
			Expect(func() { iopmp.NewDomainSet(iopmp.MaxDomains) }).To(Panic())
		})
	})

	Context("MDCFG", func() {
		It("should derive contiguous entry ranges", func() {
			Expect(m.SetMDCFG(0, 2)).To(Succeed())
			Expect(m.SetMDCFG(1, 5)).To(Succeed())
			Expect(m.SetMDCFG(2, 9)).To(Succeed())
			Expect(m.SetMDCFG(3, 16)).To(Succeed())

			lo, hi := m.DomainEntries(0)
			Expect([]int{lo, hi}).To(Equal([]int{0, 2}))
			lo, hi = m.DomainEntries(2)
			Expect([]int{lo, hi}).To(Equal([]int{5, 9}))
			lo, hi = m.DomainEntries(3)
			Expect([]int{lo, hi}).To(Equal([]int{9, 16}))
		})

		It("should keep out-of-order boundaries as written", func() {
			Expect(m.SetMDCFG(0, 8)).To(Succeed())
			Expect(m.SetMDCFG(1, 4)).To(Succeed())
			Expect(m.SetMDCFG(2, 12)).To(Succeed())

			Expect(m.MDCFG(1)).To(Equal(4))

			lo, hi := m.DomainEntries(1)
			Expect(lo).To(Equal(hi))

			lo, hi = m.DomainEntries(2)
			Expect([]int{lo, hi}).To(Equal([]int{8, 12}))
		})

		It("should ignore writes to locked domains", func() {
			Expect(m.WriteMDCFGLock(2, false)).To(Succeed())

			Expect(m.SetMDCFG(1, 3)).To(MatchError(iopmp.ErrLockedWriteIgnored))
			Expect(m.MDCFG(1)).To(Equal(0))
			Expect(m.SetMDCFG(2, 3)).To(Succeed())
		})

		It("should panic on boundaries beyond the entries", func() {
			Expect(func() { _ = m.SetMDCFG(0, 17) }).To(Panic())
			Expect(func() { _ = m.SetMDCFG(4, 1) }).To(Panic())
		})
	})

	Context("SRCMD", func() {
		It("should bind sources to domains", func() {
			m.SetSRCMD(2, iopmp.NewDomainSet(1, 3))

			Expect(m.SRCMD(2)).To(Equal(iopmp.NewDomainSet(1, 3)))
			Expect(m.SRCMD(0)).To(BeZero())
		})

		It("should not be affected by locks", func() {
			Expect(m.WriteMDCFGLock(4, true)).To(Succeed())

			m.SetSRCMD(0, iopmp.NewDomainSet(0))
			Expect(m.SRCMD(0)).To(Equal(iopmp.NewDomainSet(0)))
		})

		It("should panic on unknown sources or domains", func() {
			Expect(func() { m.SetSRCMD(4, iopmp.NewDomainSet(0)) }).To(Panic())
			Expect(func() { m.SetSRCMD(0, iopmp.NewDomainSet(4)) }).To(Panic())
		})
	})
})
