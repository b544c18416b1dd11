// Package analysis measures the traffic that flows through the ports of a
// simulated system and stores the summaries with a data recorder.
package analysis

import (
	"github.com/sarchlab/iopmpsim/datarecording"
	"github.com/sarchlab/iopmpsim/sim"
)

// TrafficTableName is the table that port traffic summaries go into.
const TrafficTableName = "iopmp_port_traffic"

// PerfEntry is one summarized measurement.
type PerfEntry struct {
	StartTime  float64
	EndTime    float64
	Port       string
	RemotePort string
	What       string
	Value      float64
	Unit       string
}

// PerfLogger receives the summarized measurements.
type PerfLogger interface {
	AddDataEntry(entry PerfEntry)
}

// PerfAnalyzer attaches port analyzers to components and writes what they
// measure into a data recorder.
type PerfAnalyzer struct {
	engine    sim.Engine
	recorder  datarecording.DataRecorder
	usePeriod bool
	period    sim.VTimeInSec
	analyzers []*PortAnalyzer
}

// PerfAnalyzerBuilder can build PerfAnalyzers.
type PerfAnalyzerBuilder struct {
	engine    sim.Engine
	recorder  datarecording.DataRecorder
	usePeriod bool
	period    sim.VTimeInSec
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{}
}

// WithEngine sets the engine that tells the time.
func (b PerfAnalyzerBuilder) WithEngine(e sim.Engine) PerfAnalyzerBuilder {
	b.engine = e
	return b
}

// WithRecorder sets where the summaries are written.
func (b PerfAnalyzerBuilder) WithRecorder(
	r datarecording.DataRecorder,
) PerfAnalyzerBuilder {
	b.recorder = r
	return b
}

// WithPeriod summarizes the traffic once every period instead of once for
// the whole run.
func (b PerfAnalyzerBuilder) WithPeriod(
	period sim.VTimeInSec,
) PerfAnalyzerBuilder {
	b.usePeriod = true
	b.period = period

	return b
}

// Build creates a PerfAnalyzer and the traffic table.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	if b.engine == nil {
		panic("PerfAnalyzer requires an engine")
	}

	if b.recorder == nil {
		panic("PerfAnalyzer requires a recorder")
	}

	b.recorder.CreateTable(TrafficTableName, PerfEntry{})

	return &PerfAnalyzer{
		engine:    b.engine,
		recorder:  b.recorder,
		usePeriod: b.usePeriod,
		period:    b.period,
	}
}

// RegisterComponent measures every port of a component.
func (p *PerfAnalyzer) RegisterComponent(c sim.Component) {
	for _, port := range c.Ports() {
		p.RegisterPort(port)
	}
}

// RegisterPort measures the traffic through a port.
func (p *PerfAnalyzer) RegisterPort(port sim.Port) {
	builder := MakePortAnalyzerBuilder().
		WithTimeTeller(p.engine).
		WithPerfLogger(p).
		WithPort(port)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	a := builder.Build()
	port.AcceptHook(a)

	p.analyzers = append(p.analyzers, a)
}

// AddDataEntry writes an entry into the traffic table.
func (p *PerfAnalyzer) AddDataEntry(entry PerfEntry) {
	p.recorder.InsertData(TrafficTableName, entry)
}

// Summarize writes the traffic not yet summarized.
func (p *PerfAnalyzer) Summarize() {
	for _, a := range p.analyzers {
		a.Summarize()
	}
}
