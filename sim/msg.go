package sim

// RemotePort names the port at the other end of a connection.
type RemotePort string

// Msg is what ports carry. Clone returns a copy with a fresh ID, which is
// how a component forwards a message it received.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta travels with every message. TrafficBytes is the size on the wire
// that the port analyzer adds up.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	TrafficBytes int
}

// Rsp completes the request whose ID GetRspTo returns.
type Rsp interface {
	Msg
	GetRspTo() string
}
