package iopmpunit

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/iopmpsim/iopmp"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
)

var _ = Describe("Config Middleware", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		cfgPort  *MockPort
		unit     *Comp
		mw       *cfgMiddleware
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		cfgPort = NewMockPort(mockCtrl)
		cfgPort.EXPECT().
			AsRemote().
			Return(sim.RemotePort("IOPMP.CfgPort")).
			AnyTimes()

		unit = MakeBuilder().
			WithEngine(engine).
			WithRemoteMem("Mem.TopPort").
			Build("IOPMP")
		unit.cfgPort = cfgPort
		mw = unit.Middlewares()[0].(*cfgMiddleware)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	write := func(offset uint32, data []byte) *mem.WriteDoneRsp {
		req := mem.WriteReqBuilder{}.
			WithSrc("Driver.CfgPort").
			WithDst("IOPMP.CfgPort").
			WithAddress(uint64(offset)).
			WithData(data).
			Build()

		var rsp *mem.WriteDoneRsp

		cfgPort.EXPECT().PeekIncoming().Return(req)
		cfgPort.EXPECT().CanSend().Return(true)
		cfgPort.EXPECT().RetrieveIncoming().Return(req)
		cfgPort.EXPECT().Send(gomock.Any()).Do(func(msg sim.Msg) {
			rsp = msg.(*mem.WriteDoneRsp)
			Expect(rsp.RespondTo).To(Equal(req.ID))
			Expect(rsp.Dst).To(Equal(sim.RemotePort("Driver.CfgPort")))
		})

		Expect(mw.serveOne()).To(BeTrue())

		return rsp
	}

	writeWord := func(offset uint32, v uint32) *mem.WriteDoneRsp {
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, v)

		return write(offset, data)
	}

	read := func(offset uint32, size uint64) *mem.DataReadyRsp {
		req := mem.ReadReqBuilder{}.
			WithSrc("Driver.CfgPort").
			WithDst("IOPMP.CfgPort").
			WithAddress(uint64(offset)).
			WithByteSize(size).
			Build()

		var rsp *mem.DataReadyRsp

		cfgPort.EXPECT().PeekIncoming().Return(req)
		cfgPort.EXPECT().CanSend().Return(true)
		cfgPort.EXPECT().RetrieveIncoming().Return(req)
		cfgPort.EXPECT().Send(gomock.Any()).Do(func(msg sim.Msg) {
			rsp = msg.(*mem.DataReadyRsp)
			Expect(rsp.RespondTo).To(Equal(req.ID))
		})

		Expect(mw.serveOne()).To(BeTrue())

		return rsp
	}

	readWord := func(offset uint32) uint32 {
		rsp := read(offset, 4)
		Expect(rsp.Resp).To(Equal(mem.RespOkay))

		return binary.LittleEndian.Uint32(rsp.Data)
	}

	offsetOf := func(name string) uint32 {
		return unit.RegisterMap().MustOffset(name)
	}

	It("should do nothing if there is no request", func() {
		cfgPort.EXPECT().PeekIncoming().Return(nil)

		Expect(mw.Tick()).To(BeFalse())
	})

	It("should wait if the response cannot be sent", func() {
		req := mem.ReadReqBuilder{}.
			WithSrc("Driver.CfgPort").
			WithDst("IOPMP.CfgPort").
			WithByteSize(4).
			Build()
		cfgPort.EXPECT().PeekIncoming().Return(req)
		cfgPort.EXPECT().CanSend().Return(false)

		Expect(mw.Tick()).To(BeFalse())
	})

	It("should report the hardware configuration", func() {
		Expect(readWord(regmap.OffsetHWCFG0)).To(Equal(uint32(0x04000410)))
		Expect(readWord(regmap.OffsetHWCFG1)).To(Equal(uint32(0x00100004)))
		Expect(readWord(regmap.OffsetHWCFG2)).To(Equal(uint32(0x10)))
		Expect(readWord(regmap.OffsetEntryOffset)).
			To(Equal(regmap.DefaultEntryOffset))
	})

	It("should enable checking through HWCFG0", func() {
		writeWord(regmap.OffsetHWCFG0, 1<<31)

		Expect(unit.Enabled()).To(BeTrue())
		Expect(readWord(regmap.OffsetHWCFG0)).To(Equal(uint32(0x84000410)))
	})

	It("should ignore writes to read-only registers", func() {
		rsp := writeWord(regmap.OffsetHWCFG1, 0xffffffff)

		Expect(rsp.Resp).To(Equal(mem.RespOkay))
		Expect(readWord(regmap.OffsetHWCFG1)).To(Equal(uint32(0x00100004)))
	})

	It("should reject unmapped offsets", func() {
		Expect(writeWord(0x7fc, 1).Resp).To(Equal(mem.RespSlvErr))
		Expect(read(0x7fc, 4).Resp).To(Equal(mem.RespSlvErr))
	})

	It("should reject accesses crossing a register", func() {
		Expect(read(regmap.OffsetHWCFG0+2, 4).Resp).
			To(Equal(mem.RespSlvErr))
	})

	It("should configure an entry", func() {
		entry := iopmp.NAPOTEntry(0x8000, 0x1000, iopmp.AccessRead)
		lo, hi := iopmp.EncodeAddr(entry.Addr)

		writeWord(offsetOf(regmap.EntryAddrName(3)), lo)
		writeWord(offsetOf(regmap.EntryAddrHName(3)), hi)
		writeWord(offsetOf(regmap.EntryCfgName(3)),
			regmap.EncodeEntryCfg(entry.Mode, entry.Access))

		Expect(readWord(offsetOf(regmap.EntryAddrName(3)))).To(Equal(lo))
		Expect(readWord(offsetOf(regmap.EntryAddrHName(3)))).To(Equal(hi))
		Expect(readWord(offsetOf(regmap.EntryCfgName(3)))).
			To(Equal(uint32(0x19)))
	})

	It("should merge partial writes", func() {
		writeWord(offsetOf(regmap.EntryAddrName(0)), 0x11223344)
		write(offsetOf(regmap.EntryAddrName(0))+1, []byte{0xaa, 0xbb})

		Expect(readWord(offsetOf(regmap.EntryAddrName(0)))).
			To(Equal(uint32(0x11bbaa44)))

		rsp := read(offsetOf(regmap.EntryAddrName(0))+3, 1)
		Expect(rsp.Data).To(Equal([]byte{0x11}))
	})

	It("should clamp MDCFG to the number of entries", func() {
		writeWord(offsetOf(regmap.MDCFGName(1)), 0xfff)

		Expect(readWord(offsetOf(regmap.MDCFGName(1)))).To(Equal(uint32(16)))
	})

	It("should keep only the mode and permission bits of ENTRY_CFG", func() {
		writeWord(offsetOf(regmap.EntryCfgName(0)), 0xffffffff)

		Expect(readWord(offsetOf(regmap.EntryCfgName(0)))).
			To(Equal(uint32(0x1f)))
	})

	It("should never decrease a lock count", func() {
		writeWord(regmap.OffsetEntryLock, regmap.EncodeEntryLock(3, false))
		writeWord(regmap.OffsetEntryLock, regmap.EncodeEntryLock(1, true))

		Expect(readWord(regmap.OffsetEntryLock)).
			To(Equal(regmap.EncodeEntryLock(3, true)))

		writeWord(regmap.OffsetEntryLock, regmap.EncodeEntryLock(5, false))
		Expect(readWord(regmap.OffsetEntryLock)).
			To(Equal(regmap.EncodeEntryLock(3, true)))
	})

	It("should freeze ERRREACT once locked", func() {
		writeWord(regmap.OffsetErrReact, 0x13)
		writeWord(regmap.OffsetErrReact, 0x100)

		Expect(readWord(regmap.OffsetErrReact)).To(Equal(uint32(0x13)))
	})

	It("should honor MDCFGLCK", func() {
		writeWord(regmap.OffsetMDCFGLock, regmap.EncodeMDCFGLock(1, true))
		writeWord(offsetOf(regmap.MDCFGName(0)), 4)
		writeWord(offsetOf(regmap.MDCFGName(1)), 8)

		Expect(readWord(offsetOf(regmap.MDCFGName(0)))).To(BeZero())
		Expect(readWord(offsetOf(regmap.MDCFGName(1)))).To(Equal(uint32(8)))
		Expect(readWord(regmap.OffsetMDCFGLock)).To(Equal(uint32(0x3)))
	})

	It("should honor ENTRYLCK", func() {
		writeWord(regmap.OffsetEntryLock, regmap.EncodeEntryLock(2, false))
		writeWord(offsetOf(regmap.EntryAddrName(1)), 0x1234)
		writeWord(offsetOf(regmap.EntryAddrName(2)), 0x1234)

		Expect(readWord(offsetOf(regmap.EntryAddrName(1)))).To(BeZero())
		Expect(readWord(offsetOf(regmap.EntryAddrName(2)))).
			To(Equal(uint32(0x1234)))
	})

	It("should bind sources and mask missing domains", func() {
		en, enh := regmap.EncodeSRCMD(iopmp.NewDomainSet(0, 2, 40), false)
		writeWord(offsetOf(regmap.SRCMDEnName(1)), en)
		writeWord(offsetOf(regmap.SRCMDEnHName(1)), enh)

		Expect(readWord(offsetOf(regmap.SRCMDEnName(1)))).
			To(Equal(uint32(0xa)))
		Expect(readWord(offsetOf(regmap.SRCMDEnHName(1)))).To(BeZero())
	})

	It("should freeze a locked SRCMD until reset", func() {
		en, _ := regmap.EncodeSRCMD(iopmp.NewDomainSet(1), true)
		writeWord(offsetOf(regmap.SRCMDEnName(2)), en)

		other, _ := regmap.EncodeSRCMD(iopmp.NewDomainSet(3), false)
		writeWord(offsetOf(regmap.SRCMDEnName(2)), other)

		Expect(readWord(offsetOf(regmap.SRCMDEnName(2)))).To(Equal(en))

		unit.Reset()
		writeWord(offsetOf(regmap.SRCMDEnName(2)), other)

		Expect(readWord(offsetOf(regmap.SRCMDEnName(2)))).To(Equal(other))
	})

	It("should report and clear a violation", func() {
		writeWord(regmap.OffsetErrReact, 0x112)
		writeWord(regmap.OffsetHWCFG0, 1<<31)

		a := accessOf(mem.WriteReqBuilder{}.
			WithSrcID(1).
			WithAddress(0x40000403).
			WithData([]byte{1, 2, 3, 4}).
			Build())
		unit.state.capture(a, unit.state.check(a))

		record := regmap.DecodeErrorRecord(
			readWord(regmap.OffsetErrReqInfo),
			readWord(regmap.OffsetErrReqID),
			readWord(regmap.OffsetErrReqAddr),
			readWord(regmap.OffsetErrReqAddrH))
		Expect(record).To(Equal(regmap.ErrorRecord{
			Pending: true,
			TType:   regmap.TTypeWrite,
			EType:   regmap.ETypeUnknownSource,
			SID:     1,
			EID:     regmap.NoEntryEID,
			Address: 0x40000400,
		}))
		Expect(unit.Interrupt()).To(BeTrue())

		write(regmap.OffsetErrReqInfo+1, []byte{0})
		Expect(unit.Interrupt()).To(BeTrue())

		writeWord(regmap.OffsetErrReqInfo, 1)
		Expect(unit.Interrupt()).To(BeFalse())
		Expect(readWord(regmap.OffsetErrReqInfo)).To(BeZero())
	})
})
