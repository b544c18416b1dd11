package verification

import (
	"log"
	"reflect"

	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
)

type outgoing struct {
	port sim.Port
	msg  sim.Msg
}

// busAgent is the bus master. It owns a configuration port and a data port,
// sends queued requests in order and keeps the responses it receives.
type busAgent struct {
	*sim.TickingComponent

	cfgPort  sim.Port
	dataPort sim.Port

	toSend    []outgoing
	sent      map[string]sim.Msg
	responses map[string]mem.AccessRsp
}

func newBusAgent(name string, engine sim.Engine, freq sim.Freq) *busAgent {
	a := &busAgent{
		sent:      make(map[string]sim.Msg),
		responses: make(map[string]mem.AccessRsp),
	}
	a.TickingComponent = sim.NewTickingComponent(name, engine, freq, a)

	a.cfgPort = sim.NewPort(a, 4, 4, name+".CfgPort")
	a.AddPort("Cfg", a.cfgPort)

	a.dataPort = sim.NewPort(a, 4, 4, name+".DataPort")
	a.AddPort("Data", a.dataPort)

	return a
}

func (a *busAgent) enqueue(port sim.Port, msg sim.Msg) {
	a.toSend = append(a.toSend, outgoing{port: port, msg: msg})
	a.TickLater()
}

// takeResponse removes and returns the response to a request.
func (a *busAgent) takeResponse(reqID string) (mem.AccessRsp, bool) {
	rsp, found := a.responses[reqID]
	delete(a.responses, reqID)

	return rsp, found
}

func (a *busAgent) Tick() bool {
	madeProgress := a.send()
	madeProgress = a.receive(a.cfgPort) || madeProgress
	madeProgress = a.receive(a.dataPort) || madeProgress

	return madeProgress
}

func (a *busAgent) send() bool {
	if len(a.toSend) == 0 {
		return false
	}

	next := a.toSend[0]
	if err := next.port.Send(next.msg); err != nil {
		return false
	}

	tracing.TraceReqInitiate(next.msg, a, "")
	a.sent[next.msg.Meta().ID] = next.msg
	a.toSend = a.toSend[1:]

	return true
}

func (a *busAgent) receive(port sim.Port) bool {
	msg := port.RetrieveIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(mem.AccessRsp)
	if !ok {
		log.Panicf("bus agent cannot handle %s", reflect.TypeOf(msg))
	}

	if req, found := a.sent[rsp.GetRspTo()]; found {
		tracing.TraceReqFinalize(req, a)
		delete(a.sent, rsp.GetRspTo())
	}

	a.responses[rsp.GetRspTo()] = rsp

	return true
}
