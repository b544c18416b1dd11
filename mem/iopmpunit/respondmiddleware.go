package iopmpunit

import (
	"log"
	"reflect"

	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
)

// respondMiddleware relays memory responses back to the requesters.
type respondMiddleware struct {
	*Comp
}

func (m *respondMiddleware) Tick() bool {
	madeProgress := false

	for i := 0; i < m.numReqPerTick; i++ {
		madeProgress = m.relayOne() || madeProgress
	}

	return madeProgress
}

func (m *respondMiddleware) relayOne() bool {
	msg := m.bottomPort.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(mem.AccessRsp)
	if !ok {
		log.Panicf("cannot relay message of type %s", reflect.TypeOf(msg))
	}

	trans, found := m.inflight[rsp.GetRspTo()]
	if !found {
		log.Panicf("response to unknown request %s", rsp.GetRspTo())
	}

	if !m.topPort.CanSend() {
		return false
	}

	m.bottomPort.RetrieveIncoming()
	tracing.TraceReqFinalize(trans.reqToBottom, m.Comp)

	var rspToTop sim.Msg

	switch rsp := rsp.(type) {
	case *mem.DataReadyRsp:
		rspToTop = mem.DataReadyRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(trans.req.Meta().Src).
			WithRspTo(trans.req.Meta().ID).
			WithData(rsp.Data).
			WithResp(rsp.Resp).
			Build()
	case *mem.WriteDoneRsp:
		rspToTop = mem.WriteDoneRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(trans.req.Meta().Src).
			WithRspTo(trans.req.Meta().ID).
			WithResp(rsp.Resp).
			Build()
	default:
		log.Panicf("cannot relay response of type %s", reflect.TypeOf(rsp))
	}

	if err := m.topPort.Send(rspToTop); err != nil {
		panic("send failed after CanSend")
	}

	delete(m.inflight, rsp.GetRspTo())
	tracing.TraceReqComplete(trans.req, m.Comp)

	return true
}
