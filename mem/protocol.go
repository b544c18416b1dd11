// Package mem defines the memory-access messages exchanged between bus
// masters, the IOPMP and memory, and a sparse byte storage.
package mem

import "github.com/sarchlab/iopmpsim/sim"

var (
	accessReqByteOverhead = 12
	accessRspByteOverhead = 4
)

// Resp is the status carried by a response, mirroring the AXI RRESP/BRESP
// encoding.
type Resp uint8

// Response statuses.
const (
	RespOkay   Resp = 0
	RespSlvErr Resp = 2
)

func (r Resp) String() string {
	switch r {
	case RespOkay:
		return "OKAY"
	case RespSlvErr:
		return "SLVERR"
	default:
		return "UNKNOWN"
	}
}

// AccessReq abstracts read and write requests.
type AccessReq interface {
	sim.Msg
	GetAddress() uint64
	GetByteSize() uint64

	// GetSrcID returns the requester identity carried on the user sideband.
	GetSrcID() uint16
}

// AccessRsp is a response to an AccessReq.
type AccessRsp interface {
	sim.Rsp
	GetResp() Resp
}

// A ReadReq is a request sent to a memory controller to fetch data.
type ReadReq struct {
	sim.MsgMeta

	Address        uint64
	AccessByteSize uint64
	SrcID          uint16

	// Exec marks an instruction fetch.
	Exec bool
}

// Meta returns the message meta.
func (r *ReadReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *ReadReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetAddress returns the address that the request is accessing.
func (r *ReadReq) GetAddress() uint64 {
	return r.Address
}

// GetByteSize returns the number of bytes that the request is accessing.
func (r *ReadReq) GetByteSize() uint64 {
	return r.AccessByteSize
}

// GetSrcID returns the source ID of the requester.
func (r *ReadReq) GetSrcID() uint16 {
	return r.SrcID
}

// ReadReqBuilder can build read requests.
type ReadReqBuilder struct {
	src, dst sim.RemotePort
	address  uint64
	byteSize uint64
	srcID    uint16
	exec     bool
}

// WithSrc sets the source of the request to build.
func (b ReadReqBuilder) WithSrc(src sim.RemotePort) ReadReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ReadReqBuilder) WithDst(dst sim.RemotePort) ReadReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the request to build.
func (b ReadReqBuilder) WithAddress(address uint64) ReadReqBuilder {
	b.address = address
	return b
}

// WithByteSize sets the byte size of the request to build.
func (b ReadReqBuilder) WithByteSize(byteSize uint64) ReadReqBuilder {
	b.byteSize = byteSize
	return b
}

// WithSrcID sets the source ID carried by the request.
func (b ReadReqBuilder) WithSrcID(srcID uint16) ReadReqBuilder {
	b.srcID = srcID
	return b
}

// AsInstructionFetch marks the request as an instruction fetch.
func (b ReadReqBuilder) AsInstructionFetch() ReadReqBuilder {
	b.exec = true
	return b
}

// Build creates a new ReadReq
func (b ReadReqBuilder) Build() *ReadReq {
	r := &ReadReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficBytes = accessReqByteOverhead
	r.Address = b.address
	r.AccessByteSize = b.byteSize
	r.SrcID = b.srcID
	r.Exec = b.exec

	return r
}

// A WriteReq is a request sent to a memory controller to write data.
type WriteReq struct {
	sim.MsgMeta

	Address uint64
	Data    []byte
	SrcID   uint16
}

// Meta returns the meta data attached to a request.
func (r *WriteReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *WriteReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()
	c.Data = append([]byte(nil), r.Data...)

	return &c
}

// GetAddress returns the address that the request is accessing.
func (r *WriteReq) GetAddress() uint64 {
	return r.Address
}

// GetByteSize returns the number of bytes that the request is writing.
func (r *WriteReq) GetByteSize() uint64 {
	return uint64(len(r.Data))
}

// GetSrcID returns the source ID of the requester.
func (r *WriteReq) GetSrcID() uint16 {
	return r.SrcID
}

// WriteReqBuilder can build write requests.
type WriteReqBuilder struct {
	src, dst sim.RemotePort
	address  uint64
	data     []byte
	srcID    uint16
}

// WithSrc sets the source of the request to build.
func (b WriteReqBuilder) WithSrc(src sim.RemotePort) WriteReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b WriteReqBuilder) WithDst(dst sim.RemotePort) WriteReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the request to build.
func (b WriteReqBuilder) WithAddress(address uint64) WriteReqBuilder {
	b.address = address
	return b
}

// WithData sets the data of the request to build.
func (b WriteReqBuilder) WithData(data []byte) WriteReqBuilder {
	b.data = data
	return b
}

// WithSrcID sets the source ID carried by the request.
func (b WriteReqBuilder) WithSrcID(srcID uint16) WriteReqBuilder {
	b.srcID = srcID
	return b
}

// Build creates a new WriteReq
func (b WriteReqBuilder) Build() *WriteReq {
	r := &WriteReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Address = b.address
	r.Data = b.data
	r.SrcID = b.srcID
	r.TrafficBytes = len(r.Data) + accessReqByteOverhead

	return r
}

// A DataReadyRsp is the respond sent from the lower module to the higher
// module that carries the data loaded.
type DataReadyRsp struct {
	sim.MsgMeta

	RespondTo string
	Data      []byte
	Resp      Resp
}

// Meta returns the meta data attached to each message.
func (r *DataReadyRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *DataReadyRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()
	c.Data = append([]byte(nil), r.Data...)

	return &c
}

// GetRspTo returns the ID of the request that the respond is responding to.
func (r *DataReadyRsp) GetRspTo() string {
	return r.RespondTo
}

// GetResp returns the response status.
func (r *DataReadyRsp) GetResp() Resp {
	return r.Resp
}

// DataReadyRspBuilder can build data ready responds.
type DataReadyRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
	data     []byte
	resp     Resp
}

// WithSrc sets the source of the respond to build.
func (b DataReadyRspBuilder) WithSrc(src sim.RemotePort) DataReadyRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the respond to build.
func (b DataReadyRspBuilder) WithDst(dst sim.RemotePort) DataReadyRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets ID of the request that the respond to build is replying to.
func (b DataReadyRspBuilder) WithRspTo(id string) DataReadyRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the data of the respond to build.
func (b DataReadyRspBuilder) WithData(data []byte) DataReadyRspBuilder {
	b.data = data
	return b
}

// WithResp sets the status of the respond to build.
func (b DataReadyRspBuilder) WithResp(resp Resp) DataReadyRspBuilder {
	b.resp = resp
	return b
}

// Build creates a new DataReadyRsp
func (b DataReadyRspBuilder) Build() *DataReadyRsp {
	r := &DataReadyRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.RespondTo = b.rspTo
	r.Data = b.data
	r.Resp = b.resp
	r.TrafficBytes = len(r.Data) + accessRspByteOverhead

	return r
}

// A WriteDoneRsp is a respond sent from the lower module to the higher module
// to mark a previous write request is completed.
type WriteDoneRsp struct {
	sim.MsgMeta

	RespondTo string
	Resp      Resp
}

// Meta returns the meta data attached to each message.
func (r *WriteDoneRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *WriteDoneRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the respond is responding to.
func (r *WriteDoneRsp) GetRspTo() string {
	return r.RespondTo
}

// GetResp returns the response status.
func (r *WriteDoneRsp) GetResp() Resp {
	return r.Resp
}

// WriteDoneRspBuilder can build write done responds.
type WriteDoneRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
	resp     Resp
}

// WithSrc sets the source of the respond to build.
func (b WriteDoneRspBuilder) WithSrc(src sim.RemotePort) WriteDoneRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the respond to build.
func (b WriteDoneRspBuilder) WithDst(dst sim.RemotePort) WriteDoneRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets ID of the request that the respond to build is replying to.
func (b WriteDoneRspBuilder) WithRspTo(id string) WriteDoneRspBuilder {
	b.rspTo = id
	return b
}

// WithResp sets the status of the respond to build.
func (b WriteDoneRspBuilder) WithResp(resp Resp) WriteDoneRspBuilder {
	b.resp = resp
	return b
}

// Build creates a new WriteDoneRsp
func (b WriteDoneRspBuilder) Build() *WriteDoneRsp {
	r := &WriteDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.RespondTo = b.rspTo
	r.Resp = b.resp
	r.TrafficBytes = accessRspByteOverhead

	return r
}
