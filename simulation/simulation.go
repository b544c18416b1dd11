// Package simulation assembles a simulated IOPMP system together with the
// services around it: the trace database, the tracers and the monitoring
// server.
package simulation

import (
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/iopmpsim/analysis"
	"github.com/sarchlab/iopmpsim/datarecording"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/monitoring"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
	"github.com/sarchlab/iopmpsim/verification"
)

// A Simulation holds a simulated bus master, IOPMP and RAM, and the
// services that observe them.
type Simulation struct {
	id     string
	params regmap.Params
	engine sim.Engine
	bus    *verification.SimBus

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	dbTracer     *tracing.DBTracer
	stepCounter  *tracing.StepCountTracer
	memLatency   *tracing.AverageTimeTracer
	perfAnalyzer *analysis.PerfAnalyzer
	monitor      *monitoring.Monitor

	components    []sim.Component
	compNameIndex map[string]int
	ports         []sim.Port
	portNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Params returns the synthesis parameters of the simulated IOPMP.
func (s *Simulation) Params() regmap.Params {
	return s.params
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// Bus returns the simulated system as a verification bus.
func (s *Simulation) Bus() *verification.SimBus {
	return s.bus
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetExecRecorder returns the exec info recorder, or nil if recording is
// off.
func (s *Simulation) GetExecRecorder() *datarecording.ExecRecorder {
	return s.execRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// NewDriver creates a verification driver on the simulated bus. The driver
// records its checks when recording is on.
func (s *Simulation) NewDriver(logger *log.Logger) *verification.Driver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	b := verification.MakeDriverBuilder().
		WithBus(s.bus).
		WithParams(s.params).
		WithLogger(logger)

	if s.dataRecorder != nil {
		b = b.WithRecorder(s.dataRecorder)
	}

	return b.Build()
}

// StepCounts returns how many requests the IOPMP marked with each step,
// such as "allowed" or "denied:NoMatch".
func (s *Simulation) StepCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	for _, name := range s.stepCounter.GetStepNames() {
		counts[name] = s.stepCounter.GetStepCount(name)
	}

	return counts
}

// MemoryLatency returns the average time the RAM took to serve a request
// and the number of requests it served.
func (s *Simulation) MemoryLatency() (sim.VTimeInSec, uint64) {
	return s.memLatency.AverageTime(), s.memLatency.TotalCount()
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}
}

func (s *Simulation) registerPort(p sim.Port) {
	portName := p.Name()
	if _, found := s.portNameIndex[portName]; found {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Component {
	return append([]sim.Component(nil), s.components...)
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	i, found := s.compNameIndex[name]
	if !found {
		panic(fmt.Sprintf("component %s not found", name))
	}

	return s.components[i]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) sim.Port {
	i, found := s.portNameIndex[name]
	if !found {
		panic(fmt.Sprintf("port %s not found", name))
	}

	return s.ports[i]
}

// Terminate writes the remaining records and closes the database.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.perfAnalyzer.Summarize()
	s.dbTracer.Terminate()
	s.execRecorder.End()

	return s.dataRecorder.Close()
}
