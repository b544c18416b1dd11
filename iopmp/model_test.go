package iopmp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/iopmpsim/iopmp"
)

var _ = Describe("Model", func() {
	var (
		m *iopmp.Model
	)

	BeforeEach(func() {
		m = iopmp.NewModel(iopmp.DefaultConfig())
	})

	It("should reject invalid configurations", func() {
		Expect(func() { iopmp.NewModel(iopmp.Config{}) }).To(Panic())
		Expect(func() {
			iopmp.NewModel(iopmp.Config{NumEntries: 16, NumDomains: 64, NumSources: 4})
		}).To(Panic())
	})

	It("should ignore writes to locked entries", func() {
		Expect(m.WriteEntryLock(2, false)).To(Succeed())

		err := m.ConfigureEntry(1, iopmp.TOREntry(0xFFFF105A45, iopmp.AccessRead))
		Expect(err).To(MatchError(iopmp.ErrLockedWriteIgnored))

		lo, hi := m.ReadEntry(1)
		Expect(lo).To(BeZero())
		Expect(hi).To(BeZero())

		Expect(m.ConfigureEntry(2, iopmp.TOREntry(0xFFFF105A45, iopmp.AccessRead))).
			To(Succeed())
		lo, hi = m.ReadEntry(2)
		Expect(lo).To(Equal(uint32(0xFFC41691)))
		Expect(hi).To(Equal(uint32(0x3F)))
	})

	It("should reset everything", func() {
		Expect(m.ConfigureEntry(0, iopmp.NAPOTEntry(0x1000, 0x1000, iopmp.AccessAll))).
			To(Succeed())
		Expect(m.SetMDCFG(0, 4)).To(Succeed())
		m.SetSRCMD(0, iopmp.NewDomainSet(0))
		Expect(m.WriteMDCFGLock(1, true)).To(Succeed())
		Expect(m.WriteEntryLock(1, true)).To(Succeed())
		Expect(m.WriteErrReact(iopmp.ErrReactFields{InterruptEnable: true}, true)).
			To(Succeed())
		m.Enable()
		m.Check(iopmp.Transaction{SourceID: 1, Address: 0, Length: 4,
			Access: iopmp.AccessRead})
		Expect(m.Violation().Valid).To(BeTrue())

		m.Reset()

		Expect(m.Enabled()).To(BeFalse())
		Expect(m.Entry(0)).To(Equal(iopmp.Entry{}))
		Expect(m.MDCFG(0)).To(BeZero())
		Expect(m.SRCMD(0)).To(BeZero())
		Expect(m.MDCFGLock()).To(Equal(iopmp.LockRegister{}))
		Expect(m.EntryLock()).To(Equal(iopmp.LockRegister{}))
		Expect(m.ErrReact()).To(Equal(iopmp.ErrReact{}))
		Expect(m.Violation().Valid).To(BeFalse())
	})

	It("should panic on entries out of range", func() {
		Expect(func() { m.Entry(16) }).To(Panic())
		Expect(func() { _ = m.ConfigureEntry(-1, iopmp.Entry{}) }).To(Panic())
		Expect(func() { _ = m.ConfigureEntry(0, iopmp.Entry{Mode: 4}) }).To(Panic())
	})
})
