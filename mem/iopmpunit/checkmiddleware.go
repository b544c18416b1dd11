package iopmpunit

import (
	"log"
	"reflect"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
)

// checkMiddleware takes requests from the top port and decides, one at a
// time and in arrival order, whether they reach memory.
type checkMiddleware struct {
	*Comp
}

func (m *checkMiddleware) Tick() bool {
	madeProgress := false

	for i := 0; i < m.numReqPerTick; i++ {
		madeProgress = m.checkOne() || madeProgress
	}

	return madeProgress
}

func (m *checkMiddleware) checkOne() bool {
	msg := m.topPort.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(mem.AccessReq)
	if !ok {
		log.Panicf("cannot check message of type %s", reflect.TypeOf(msg))
	}

	a := accessOf(req)
	v := m.state.check(a)

	if v.allowed {
		if !m.bottomPort.CanSend() {
			return false
		}
	} else if !m.topPort.CanSend() {
		return false
	}

	m.topPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, m.Comp)

	if v.allowed {
		tracing.TraceReqStep(req, m.Comp, "allowed")
		m.forward(req)

		return true
	}

	m.state.capture(a, v)
	tracing.TraceReqStep(req, m.Comp,
		"denied:"+regmap.KindOf(v.etype).String())
	m.reject(req)

	return true
}

func (m *checkMiddleware) forward(req mem.AccessReq) {
	reqToBottom := req.Clone().(mem.AccessReq)
	reqToBottom.Meta().Src = m.bottomPort.AsRemote()
	reqToBottom.Meta().Dst = m.RemoteMem

	if err := m.bottomPort.Send(reqToBottom); err != nil {
		panic("send failed after CanSend")
	}

	m.inflight[reqToBottom.Meta().ID] = &transaction{
		req:         req,
		reqToBottom: reqToBottom,
	}

	tracing.TraceReqInitiate(reqToBottom, m.Comp,
		tracing.MsgIDAtReceiver(req, m.Comp))
}

// reject answers a denied request with SLVERR. Denied reads return zeros.
func (m *checkMiddleware) reject(req mem.AccessReq) {
	var rsp sim.Msg

	switch req := req.(type) {
	case *mem.ReadReq:
		rsp = mem.DataReadyRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithData(make([]byte, req.AccessByteSize)).
			WithResp(mem.RespSlvErr).
			Build()
	case *mem.WriteReq:
		rsp = mem.WriteDoneRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithResp(mem.RespSlvErr).
			Build()
	}

	if err := m.topPort.Send(rsp); err != nil {
		panic("send failed after CanSend")
	}

	tracing.TraceReqComplete(req, m.Comp)
}
