package sim

import (
	"fmt"
	"sync"
)

// Hook positions of a port. Send fires when a component queues a message,
// Recvd when the connection delivers one, and Retrieve when the component
// takes a delivered message.
var (
	HookPosPortMsgSend     = &HookPos{Name: "Port Msg Send"}
	HookPosPortMsgRecvd    = &HookPos{Name: "Port Msg Recv"}
	HookPosPortMsgRetrieve = &HookPos{Name: "Port Msg Retrieve"}
)

// SendError reports that the buffer a message was headed to is full. The
// sender keeps the message and tries again after it is notified.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	return &SendError{}
}

// Port connects a component to a connection. Each direction has its own
// bounded buffer.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort

	SetConnection(conn Connection)
	Component() Component

	// Used by the connection.
	Deliver(msg Msg) *SendError
	NotifyAvailable()
	RetrieveOutgoing() Msg
	PeekOutgoing() Msg

	// Used by the owning component.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}

// NewPort creates a port of comp. comp may be nil for a port that nothing
// needs to wake.
func NewPort(
	comp Component,
	incomingBufCap, outgoingBufCap int,
	name string,
) Port {
	return &port{
		name: name,
		comp: comp,
		in:   NewBuffer(name+".IncomingBuf", incomingBufCap),
		out:  NewBuffer(name+".OutgoingBuf", outgoingBufCap),
	}
}

type port struct {
	HookableBase

	name string
	comp Component
	conn Connection

	// lock makes a check of a buffer and the push or pop after it one step.
	lock sync.Mutex
	in   Buffer
	out  Buffer
}

func (p *port) Name() string {
	return p.name
}

func (p *port) AsRemote() RemotePort {
	return RemotePort(p.name)
}

func (p *port) Component() Component {
	return p.comp
}

func (p *port) SetConnection(conn Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf("port %s is connected to %s, cannot connect to %s",
			p.name, p.conn.Name(), conn.Name()))
	}

	p.conn = conn
}

// push adds msg to buf and reports whether buf was empty before.
func (p *port) push(buf Buffer, msg Msg) (ok, wasEmpty bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !buf.CanPush() {
		return false, false
	}

	wasEmpty = buf.Size() == 0
	buf.Push(msg)

	return true, wasEmpty
}

// pop takes the oldest message of buf and reports whether buf was full
// before.
func (p *port) pop(buf Buffer) (msg Msg, wasFull bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	wasFull = !buf.CanPush()

	item := buf.Pop()
	if item == nil {
		return nil, false
	}

	return item.(Msg), wasFull
}

func (p *port) peek(buf Buffer) Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	if item := buf.Peek(); item != nil {
		return item.(Msg)
	}

	return nil
}

func (p *port) hook(pos *HookPos, msg Msg) {
	p.InvokeHook(HookCtx{Domain: p, Pos: pos, Item: msg})
}

func (p *port) CanSend() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.out.CanPush()
}

// Send queues msg for the connection, which is woken when the outgoing
// buffer stops being empty.
func (p *port) Send(msg Msg) *SendError {
	p.mustSendFromHere(msg)

	ok, wasEmpty := p.push(p.out, msg)
	if !ok {
		return NewSendError()
	}

	p.hook(HookPosPortMsgSend, msg)

	if wasEmpty {
		p.conn.NotifySend()
	}

	return nil
}

// Deliver queues msg for the component, which is woken when the incoming
// buffer stops being empty.
func (p *port) Deliver(msg Msg) *SendError {
	ok, wasEmpty := p.push(p.in, msg)
	if !ok {
		return NewSendError()
	}

	p.hook(HookPosPortMsgRecvd, msg)

	if wasEmpty && p.comp != nil {
		p.comp.NotifyRecv(p)
	}

	return nil
}

// RetrieveIncoming takes the oldest delivered message. Freeing a slot in a
// full buffer lets the connection deliver again.
func (p *port) RetrieveIncoming() Msg {
	msg, wasFull := p.pop(p.in)
	if msg == nil {
		return nil
	}

	if wasFull {
		p.conn.NotifyAvailable(p)
	}

	p.hook(HookPosPortMsgRetrieve, msg)

	return msg
}

// RetrieveOutgoing takes the oldest queued message. Freeing a slot in a
// full buffer lets the component send again.
func (p *port) RetrieveOutgoing() Msg {
	msg, wasFull := p.pop(p.out)
	if msg == nil {
		return nil
	}

	if wasFull {
		p.NotifyAvailable()
	}

	return msg
}

func (p *port) PeekIncoming() Msg {
	return p.peek(p.in)
}

func (p *port) PeekOutgoing() Msg {
	return p.peek(p.out)
}

// NotifyAvailable wakes the component after the connection frees up.
func (p *port) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *port) mustSendFromHere(msg Msg) {
	meta := msg.Meta()

	switch {
	case meta.Src != p.AsRemote():
		panic(fmt.Sprintf("port %s cannot send a message from %s",
			p.name, meta.Src))
	case meta.Dst == "":
		panic(fmt.Sprintf("message %s has no destination", meta.ID))
	case meta.Dst == meta.Src:
		panic(fmt.Sprintf("message %s is sent back to its source", meta.ID))
	}
}
