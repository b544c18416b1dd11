package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
)

var _ = Describe("PortAnalyzer", func() {
	var (
		mockCtrl   *gomock.Controller
		logger     *MockPerfLogger
		timeTeller *MockTimeTeller
		port       *MockPort
		analyzer   *PortAnalyzer
		entries    []PerfEntry
	)

	read := func() *mem.ReadReq {
		return mem.ReadReqBuilder{}.
			WithSrc("Agent.DataPort").
			WithDst("IOPMP.TopPort").
			WithAddress(0x1000).
			WithByteSize(64).
			Build()
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		logger = NewMockPerfLogger(mockCtrl)
		timeTeller = NewMockTimeTeller(mockCtrl)
		port = NewMockPort(mockCtrl)
		port.EXPECT().Name().Return("IOPMP.TopPort").AnyTimes()
		port.EXPECT().AsRemote().Return(sim.RemotePort("IOPMP.TopPort")).AnyTimes()

		entries = nil
		logger.EXPECT().
			AddDataEntry(gomock.Any()).
			Do(func(e PerfEntry) { entries = append(entries, e) }).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("over the whole run", func() {
		BeforeEach(func() {
			analyzer = MakePortAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(timeTeller).
				WithPort(port).
				Build()
		})

		It("should count incoming and outgoing messages", func() {
			timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1)).AnyTimes()

			req := read()
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgRecvd, Item: req})
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgRecvd, Item: read()})

			rsp := mem.DataReadyRspBuilder{}.
				WithSrc("IOPMP.TopPort").
				WithDst("Agent.DataPort").
				WithRspTo(req.ID).
				WithData(make([]byte, 64)).
				Build()
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgSend, Item: rsp})

			analyzer.Summarize()

			Expect(entries).To(HaveLen(4))
			Expect(entries[0].What).To(Equal("Incoming"))
			Expect(entries[0].RemotePort).To(Equal("Agent.DataPort"))
			Expect(entries[0].Value).To(Equal(float64(2 * req.TrafficBytes)))
			Expect(entries[1].Unit).To(Equal("Msg"))
			Expect(entries[1].Value).To(Equal(2.0))
			Expect(entries[3].What).To(Equal("Outgoing"))
			Expect(entries[3].Value).To(Equal(1.0))
		})

		It("should ignore retrievals and other items", func() {
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgRetrieve, Item: read()})

			timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1)).AnyTimes()
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgSend, Item: 42})

			analyzer.Summarize()

			Expect(entries).To(BeEmpty())
		})
	})

	Context("with a period", func() {
		BeforeEach(func() {
			analyzer = MakePortAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(timeTeller).
				WithPort(port).
				WithPeriod(1e-6).
				Build()
		})

		It("should summarize when a period ends", func() {
			timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1.5e-6))
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgRecvd, Item: read()})
			Expect(entries).To(BeEmpty())

			timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(2.5e-6)).Times(2)
			analyzer.Func(sim.HookCtx{Pos: sim.HookPosPortMsgRecvd, Item: read()})

			Expect(entries).To(HaveLen(2))
			Expect(entries[0].StartTime).To(BeNumerically("~", 1e-6, 1e-12))
			Expect(entries[0].EndTime).To(BeNumerically("~", 2e-6, 1e-12))
		})
	})

	It("should need a port", func() {
		Expect(func() {
			MakePortAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(timeTeller).
				Build()
		}).To(Panic())
	})
})
