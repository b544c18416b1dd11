// Package idealmemcontroller provides a memory that answers every request
// after a fixed number of cycles.
package idealmemcontroller

import (
	"log"

	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
)

// respondEvent fires when the memory is ready to answer req.
type respondEvent struct {
	*sim.EventBase
	req mem.AccessReq
}

func newRespondEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req mem.AccessReq,
) *respondEvent {
	return &respondEvent{sim.NewEventBase(time, handler), req}
}

// A Comp is an ideal memory controller. It responds to every request in a
// fixed number of cycles, with no limit on the number of requests in flight.
// Addresses wrap around the capacity of the storage.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	topPort sim.Port
	Storage *mem.Storage
	Latency int

	width int
}

// Tick updates the state of the controller.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

func (c *Comp) read(address, length uint64) []byte {
	res := make([]byte, 0, length)

	for length > 0 {
		addr := address % c.Storage.Capacity()
		n := min(length, c.Storage.Capacity()-addr)

		data, err := c.Storage.Read(addr, n)
		if err != nil {
			log.Panic(err)
		}

		res = append(res, data...)
		address += n
		length -= n
	}

	return res
}

func (c *Comp) write(address uint64, data []byte) {
	for len(data) > 0 {
		addr := address % c.Storage.Capacity()
		n := min(uint64(len(data)), c.Storage.Capacity()-addr)

		if err := c.Storage.Write(addr, data[:n]); err != nil {
			log.Panic(err)
		}

		address += n
		data = data[n:]
	}
}
