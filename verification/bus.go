// Package verification drives an IOPMP through a bus and checks every
// response against the reference model. It generates legal and adversarial
// configurations, issues transactions, and reports each observation that
// disagrees with the prediction.
package verification

import (
	"errors"

	"github.com/sarchlab/iopmpsim/iopmp"
	"github.com/sarchlab/iopmpsim/mem"
)

// ErrSlaveError is returned when a configuration access is answered with
// SLVERR.
var ErrSlaveError = errors.New("configuration access answered with SLVERR")

// ErrNoResponse is returned when the bus goes idle before a request is
// answered.
var ErrNoResponse = errors.New("request left unanswered")

// Outcome is what the bus returns for a memory transaction.
type Outcome struct {
	Resp mem.Resp

	// Data holds the bytes returned by a read.
	Data []byte
}

// Allowed tells if the transaction went through.
func (o Outcome) Allowed() bool {
	return o.Resp == mem.RespOkay
}

// Bus is the device under test as seen by the driver.
type Bus interface {
	// WriteReg writes up to 4 bytes at a register offset.
	WriteReg(offset uint32, data []byte) error

	// ReadReg reads size bytes at a register offset.
	ReadReg(offset uint32, size int) ([]byte, error)

	// IssueTransaction performs a memory access on behalf of a source.
	IssueTransaction(tx iopmp.Transaction) (Outcome, error)

	// Interrupt tells if the interrupt wire is asserted.
	Interrupt() bool

	// Reset asserts the reset signal.
	Reset()
}
