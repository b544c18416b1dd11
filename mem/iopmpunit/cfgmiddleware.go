package iopmpunit

import (
	"encoding/binary"
	"log"
	"reflect"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
)

// cfgMiddleware serves the register file. The address of a configuration
// request is the register offset. An access may cover up to 4 bytes inside
// one register.
type cfgMiddleware struct {
	*Comp
}

func (m *cfgMiddleware) Tick() bool {
	madeProgress := false

	for i := 0; i < m.numReqPerTick; i++ {
		madeProgress = m.serveOne() || madeProgress
	}

	return madeProgress
}

func (m *cfgMiddleware) serveOne() bool {
	msg := m.cfgPort.PeekIncoming()
	if msg == nil {
		return false
	}

	if !m.cfgPort.CanSend() {
		return false
	}

	m.cfgPort.RetrieveIncoming()
	tracing.TraceReqReceive(msg, m.Comp)

	var rsp sim.Msg

	switch req := msg.(type) {
	case *mem.ReadReq:
		rsp = m.serveRead(req)
	case *mem.WriteReq:
		rsp = m.serveWrite(req)
	default:
		log.Panicf("cannot handle config request of type %s",
			reflect.TypeOf(msg))
	}

	if err := m.cfgPort.Send(rsp); err != nil {
		panic("send failed after CanSend")
	}

	tracing.TraceReqComplete(msg, m.Comp)

	return true
}

// locate finds the register an access falls in and the byte position of the
// access inside it.
func (m *cfgMiddleware) locate(addr, size uint64) (regmap.Register, int, bool) {
	shift := int(addr & 3)
	if size == 0 || uint64(shift)+size > 4 || addr > 0xffffffff {
		return regmap.Register{}, 0, false
	}

	reg, found := m.regs.Lookup(uint32(addr &^ 3))

	return reg, shift, found
}

func (m *cfgMiddleware) serveRead(req *mem.ReadReq) *mem.DataReadyRsp {
	data := make([]byte, req.AccessByteSize)
	resp := mem.RespOkay

	reg, shift, found := m.locate(req.Address, req.AccessByteSize)
	if found {
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], m.state.read(reg))
		copy(data, word[shift:])
	} else {
		resp = mem.RespSlvErr
	}

	return mem.DataReadyRspBuilder{}.
		WithSrc(m.cfgPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		WithResp(resp).
		Build()
}

func (m *cfgMiddleware) serveWrite(req *mem.WriteReq) *mem.WriteDoneRsp {
	resp := mem.RespOkay

	reg, shift, found := m.locate(req.Address, uint64(len(req.Data)))
	if found {
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], m.mergeBase(reg))
		copy(word[shift:], req.Data)
		m.state.write(reg, binary.LittleEndian.Uint32(word[:]))
	} else {
		resp = mem.RespSlvErr
	}

	return mem.WriteDoneRspBuilder{}.
		WithSrc(m.cfgPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithResp(resp).
		Build()
}

// mergeBase is the value that the bytes of a partial write are merged into.
// Write-one-to-clear bits merge into zero.
func (m *cfgMiddleware) mergeBase(reg regmap.Register) uint32 {
	if reg.Kind == regmap.KindErrReqInfo {
		return 0
	}

	return m.state.read(reg)
}
