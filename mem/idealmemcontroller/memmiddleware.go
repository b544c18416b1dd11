package idealmemcontroller

import (
	"log"
	"reflect"

	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
)

// memMiddleware takes up to width requests a cycle and answers each one
// Latency cycles later.
type memMiddleware struct {
	*Comp
}

func (m *memMiddleware) Handle(e sim.Event) error {
	evt, ok := e.(*respondEvent)
	if !ok {
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	m.respond(evt)

	return nil
}

func (m *memMiddleware) Tick() bool {
	progress := false

	for i := 0; i < m.width; i++ {
		progress = m.accept() || progress
	}

	return progress
}

func (m *memMiddleware) accept() bool {
	msg := m.topPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(mem.AccessReq)
	if !ok {
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
	}

	tracing.TraceReqReceive(req, m.Comp)

	ready := m.Freq.NCyclesLater(m.Latency, m.CurrentTime())
	m.Engine.Schedule(newRespondEvent(ready, m, req))

	return true
}

// respond sends the response of e.req, or tries again next cycle if the
// port is full. A write reaches the storage only once its response is
// sent.
func (m *memMiddleware) respond(e *respondEvent) {
	meta := e.req.Meta()

	var rsp sim.Msg

	switch req := e.req.(type) {
	case *mem.ReadReq:
		rsp = mem.DataReadyRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(meta.Src).
			WithRspTo(meta.ID).
			WithData(m.read(req.Address, req.AccessByteSize)).
			Build()
	case *mem.WriteReq:
		rsp = mem.WriteDoneRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(meta.Src).
			WithRspTo(meta.ID).
			Build()
	}

	if err := m.topPort.Send(rsp); err != nil {
		m.Engine.Schedule(newRespondEvent(m.Freq.NextTick(e.Time()), m, e.req))
		return
	}

	if w, ok := e.req.(*mem.WriteReq); ok {
		m.write(w.Address, w.Data)
	}

	tracing.TraceReqComplete(e.req, m.Comp)
	m.TickLater()
}
