package verification

import (
	"fmt"

	"github.com/sarchlab/iopmpsim/iopmp"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/mem/idealmemcontroller"
	"github.com/sarchlab/iopmpsim/mem/iopmpunit"
	"github.com/sarchlab/iopmpsim/sim"
)

// SimBusBuilder can build SimBuses.
type SimBusBuilder struct {
	engine      sim.Engine
	freq        sim.Freq
	params      regmap.Params
	memCapacity uint64
	memLatency  int
}

// MakeSimBusBuilder returns a SimBusBuilder with the reference hardware
// parameters.
func MakeSimBusBuilder() SimBusBuilder {
	return SimBusBuilder{
		freq:        1 * sim.GHz,
		params:      regmap.DefaultParams(),
		memCapacity: 64 * mem.KB,
		memLatency:  10,
	}
}

// WithEngine sets the engine to run on. A new serial engine is created if
// none is given.
func (b SimBusBuilder) WithEngine(engine sim.Engine) SimBusBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of every component on the bus.
func (b SimBusBuilder) WithFreq(freq sim.Freq) SimBusBuilder {
	b.freq = freq
	return b
}

// WithParams sets the synthesis parameters of the IOPMP.
func (b SimBusBuilder) WithParams(p regmap.Params) SimBusBuilder {
	b.params = p
	return b
}

// WithMemCapacity sets the size of the RAM behind the IOPMP. Addresses wrap
// around it.
func (b SimBusBuilder) WithMemCapacity(capacity uint64) SimBusBuilder {
	b.memCapacity = capacity
	return b
}

// WithMemLatency sets the number of cycles the RAM takes to respond.
func (b SimBusBuilder) WithMemLatency(latency int) SimBusBuilder {
	b.memLatency = latency
	return b
}

// Build creates the agent, the IOPMP and the RAM and connects them.
func (b SimBusBuilder) Build(name string) *SimBus {
	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	bus := &SimBus{engine: engine}

	bus.memory = idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.freq).
		WithLatency(b.memLatency).
		WithNewStorage(b.memCapacity).
		Build(name + ".RAM")

	bus.unit = iopmpunit.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.freq).
		WithParams(b.params).
		WithRemoteMem(bus.memory.GetPortByName("Top").AsRemote()).
		Build(name + ".IOPMP")

	bus.agent = newBusAgent(name+".Master", engine, b.freq)

	bus.conn = sim.NewDirectConnection(name+".Conn", engine, b.freq)
	bus.conn.PlugIn(bus.agent.cfgPort)
	bus.conn.PlugIn(bus.agent.dataPort)
	bus.conn.PlugIn(bus.unit.GetPortByName("Cfg"))
	bus.conn.PlugIn(bus.unit.GetPortByName("Top"))
	bus.conn.PlugIn(bus.unit.GetPortByName("Bottom"))
	bus.conn.PlugIn(bus.memory.GetPortByName("Top"))

	return bus
}

// SimBus is a Bus made of a simulated bus master, an IOPMP device and an
// ideal memory. Every operation runs the engine until the system is idle.
type SimBus struct {
	engine sim.Engine
	agent  *busAgent
	unit   *iopmpunit.Comp
	memory *idealmemcontroller.Comp
	conn   *sim.DirectConnection
}

// Engine returns the engine that the bus runs on.
func (b *SimBus) Engine() sim.Engine {
	return b.engine
}

// Unit returns the IOPMP device.
func (b *SimBus) Unit() *iopmpunit.Comp {
	return b.unit
}

// Memory returns the RAM behind the IOPMP.
func (b *SimBus) Memory() *idealmemcontroller.Comp {
	return b.memory
}

// Components returns all the components on the bus.
func (b *SimBus) Components() []sim.Component {
	return []sim.Component{b.agent, b.unit, b.memory, b.conn}
}

// WriteReg writes up to 4 bytes at a register offset.
func (b *SimBus) WriteReg(offset uint32, data []byte) error {
	req := mem.WriteReqBuilder{}.
		WithSrc(b.agent.cfgPort.AsRemote()).
		WithDst(b.unit.GetPortByName("Cfg").AsRemote()).
		WithAddress(uint64(offset)).
		WithData(data).
		Build()

	rsp, err := b.roundTrip(b.agent.cfgPort, req)
	if err != nil {
		return err
	}

	if rsp.GetResp() != mem.RespOkay {
		return fmt.Errorf("writing offset 0x%x: %w", offset, ErrSlaveError)
	}

	return nil
}

// ReadReg reads size bytes at a register offset.
func (b *SimBus) ReadReg(offset uint32, size int) ([]byte, error) {
	req := mem.ReadReqBuilder{}.
		WithSrc(b.agent.cfgPort.AsRemote()).
		WithDst(b.unit.GetPortByName("Cfg").AsRemote()).
		WithAddress(uint64(offset)).
		WithByteSize(uint64(size)).
		Build()

	rsp, err := b.roundTrip(b.agent.cfgPort, req)
	if err != nil {
		return nil, err
	}

	if rsp.GetResp() != mem.RespOkay {
		return nil, fmt.Errorf("reading offset 0x%x: %w", offset, ErrSlaveError)
	}

	return rsp.(*mem.DataReadyRsp).Data, nil
}

// IssueTransaction sends a memory request carrying the source ID of the
// transaction. Writes carry a counting byte pattern.
func (b *SimBus) IssueTransaction(tx iopmp.Transaction) (Outcome, error) {
	var req mem.AccessReq

	dst := b.unit.GetPortByName("Top").AsRemote()

	switch tx.Access {
	case iopmp.AccessRead, iopmp.AccessExec:
		builder := mem.ReadReqBuilder{}.
			WithSrc(b.agent.dataPort.AsRemote()).
			WithDst(dst).
			WithSrcID(uint16(tx.SourceID)).
			WithAddress(tx.Address).
			WithByteSize(tx.Length)
		if tx.Access == iopmp.AccessExec {
			builder = builder.AsInstructionFetch()
		}

		req = builder.Build()
	case iopmp.AccessWrite:
		req = mem.WriteReqBuilder{}.
			WithSrc(b.agent.dataPort.AsRemote()).
			WithDst(dst).
			WithSrcID(uint16(tx.SourceID)).
			WithAddress(tx.Address).
			WithData(countingPattern(tx.Length)).
			Build()
	default:
		return Outcome{}, fmt.Errorf("cannot issue %s", tx)
	}

	rsp, err := b.roundTrip(b.agent.dataPort, req)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Resp: rsp.GetResp()}
	if dataRsp, ok := rsp.(*mem.DataReadyRsp); ok {
		outcome.Data = dataRsp.Data
	}

	return outcome, nil
}

// Interrupt tells if the interrupt wire of the IOPMP is asserted.
func (b *SimBus) Interrupt() bool {
	return b.unit.Interrupt()
}

// Reset resets the IOPMP. The RAM keeps its content.
func (b *SimBus) Reset() {
	b.unit.Reset()
}

func (b *SimBus) roundTrip(port sim.Port, req sim.Msg) (mem.AccessRsp, error) {
	b.agent.enqueue(port, req)

	if err := b.engine.Run(); err != nil {
		return nil, err
	}

	rsp, found := b.agent.takeResponse(req.Meta().ID)
	if !found {
		return nil, fmt.Errorf("request %s: %w", req.Meta().ID, ErrNoResponse)
	}

	return rsp, nil
}

func countingPattern(n uint64) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}

	return data
}
