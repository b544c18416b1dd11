package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/iopmpsim/analysis"
	"github.com/sarchlab/iopmpsim/datarecording"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/monitoring"
	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/tracing"
	"github.com/sarchlab/iopmpsim/verification"
)

// Builder can be used to build a simulation.
type Builder struct {
	params         regmap.Params
	memLatency     int
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	recordOn       bool
	outputFileName string
}

// MakeBuilder creates a new builder for the reference hardware, without
// monitoring and without recording.
func MakeBuilder() Builder {
	return Builder{
		params:     regmap.DefaultParams(),
		memLatency: 10,
	}
}

// WithParams sets the synthesis parameters of the simulated IOPMP.
func (b Builder) WithParams(p regmap.Params) Builder {
	b.params = p
	return b
}

// WithMemLatency sets the latency of the RAM behind the IOPMP, in cycles.
func (b Builder) WithMemLatency(latency int) Builder {
	b.memLatency = latency
	return b
}

// WithMonitoring turns on the monitoring server.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring dashboard in a browser.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithRecording records the exec info, the traced requests, the port traffic
// and the driver checks into a SQLite database.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder,
// without the .sqlite3 suffix.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}

	if !b.recordOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}

	if err := b.params.Validate(); err != nil {
		panic(err)
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		params:        b.params,
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}

	s.engine = sim.NewSerialEngine()
	s.bus = verification.MakeSimBusBuilder().
		WithEngine(s.engine).
		WithParams(b.params).
		WithMemLatency(b.memLatency).
		Build("Sim")

	for _, c := range s.bus.Components() {
		s.RegisterComponent(c)
	}

	s.stepCounter = tracing.NewStepCountTracer(tracing.KindIs("req_in"))
	tracing.CollectTrace(s.bus.Unit(), s.stepCounter)

	s.memLatency = tracing.NewAverageTimeTracer(
		s.engine, tracing.KindIs("req_in"))
	tracing.CollectTrace(s.bus.Memory(), s.memLatency)

	if b.recordOn {
		b.buildRecording(s)
	}

	if b.monitorOn {
		b.buildMonitor(s)
	}

	return s
}

func (b Builder) buildRecording(s *Simulation) {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "iopmpsim_" + s.id
	}

	s.dataRecorder = datarecording.New(outputPath)

	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()

	s.dbTracer = tracing.NewDBTracer(s.engine, s.dataRecorder)
	tracing.CollectTrace(s.bus.Unit(), s.dbTracer)
	tracing.CollectTrace(s.bus.Memory(), s.dbTracer)

	s.perfAnalyzer = analysis.MakePerfAnalyzerBuilder().
		WithEngine(s.engine).
		WithRecorder(s.dataRecorder).
		Build()

	for _, c := range s.components {
		s.perfAnalyzer.RegisterComponent(c)
	}
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor().
		WithPortNumber(b.monitorPort).
		WithBrowser(b.openBrowser)
	s.monitor.RegisterEngine(s.engine)

	for _, c := range s.components {
		s.monitor.RegisterComponent(c)
	}

	unit := s.bus.Unit()
	s.monitor.RegisterStatus("violation", func() any {
		return unit.ErrorRecord()
	})
	s.monitor.RegisterStatus("interrupt", func() any {
		return unit.Interrupt()
	})
	s.monitor.RegisterStatus("steps", func() any {
		return s.StepCounts()
	})

	s.monitor.StartServer()
}
