// Package iopmpunit simulates an IOPMP device. Requests from bus masters
// arrive at the top port and are checked against the protection
// configuration. Allowed requests go out of the bottom port to memory.
// Denied requests are answered with SLVERR and never reach memory. The
// configuration is written through memory-mapped registers on the cfg port.
package iopmpunit

import (
	"sync"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/mem"
	"github.com/sarchlab/iopmpsim/sim"
)

type transaction struct {
	req         mem.AccessReq
	reqToBottom mem.AccessReq
}

// Comp is an IOPMP unit.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	topPort    sim.Port
	bottomPort sim.Port
	cfgPort    sim.Port

	// RemoteMem is the port that allowed requests are sent to.
	RemoteMem sim.RemotePort

	params regmap.Params
	regs   *regmap.Map

	// lock guards state against readers outside the engine goroutine.
	lock  sync.Mutex
	state *regFile

	numReqPerTick int
	inflight      map[string]*transaction
}

// Tick updates the state of the unit.
func (c *Comp) Tick() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.MiddlewareHolder.Tick()
}

// RegisterMap returns the layout of the configuration registers.
func (c *Comp) RegisterMap() *regmap.Map {
	return c.regs
}

// Params returns the synthesis parameters of the unit.
func (c *Comp) Params() regmap.Params {
	return c.params
}

// Interrupt tells if the interrupt wire is asserted.
func (c *Comp) Interrupt() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.state.interrupt()
}

// Enabled tells if the unit checks requests.
func (c *Comp) Enabled() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.state.enabled
}

// ErrorRecord returns the content of the ERR_REQ* registers.
func (c *Comp) ErrorRecord() regmap.ErrorRecord {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.state.errorRecord()
}

// Reset puts the registers back to their reset values. Requests that were
// already forwarded still get their responses.
func (c *Comp) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.state.reset()
}

// NumInflight returns the number of requests waiting for memory.
func (c *Comp) NumInflight() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.inflight)
}
