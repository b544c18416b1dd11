package iopmpunit

import (
	"github.com/sarchlab/iopmpsim/iopmp"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/sim"
)

// Builder can build IOPMP units.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	params        regmap.Params
	numReqPerTick int
	topBufSize    int
	bottomBufSize int
	cfgBufSize    int
	remoteMem     sim.RemotePort
}

// MakeBuilder returns a Builder with the reference hardware parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:          1 * sim.GHz,
		params:        regmap.DefaultParams(),
		numReqPerTick: 1,
		topBufSize:    16,
		bottomBufSize: 16,
		cfgBufSize:    4,
	}
}

// WithEngine sets the engine of the unit.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the unit.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithParams sets the synthesis parameters of the unit.
func (b Builder) WithParams(p regmap.Params) Builder {
	b.params = p
	return b
}

// WithConfig sizes the unit for a model configuration, keeping the other
// parameters.
func (b Builder) WithConfig(cfg iopmp.Config) Builder {
	b.params.NumEntries = cfg.NumEntries
	b.params.NumDomains = cfg.NumDomains
	b.params.NumSources = cfg.NumSources

	return b
}

// WithNumReqPerTick sets how many requests each port serves per cycle.
func (b Builder) WithNumReqPerTick(n int) Builder {
	b.numReqPerTick = n
	return b
}

// WithBufSize sets the buffer sizes of the top and the bottom ports.
func (b Builder) WithBufSize(top, bottom int) Builder {
	b.topBufSize = top
	b.bottomBufSize = bottom

	return b
}

// WithRemoteMem sets the port that allowed requests are forwarded to.
func (b Builder) WithRemoteMem(port sim.RemotePort) Builder {
	b.remoteMem = port
	return b
}

// Build creates a new Comp.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		panic("engine is not set")
	}

	if err := b.params.Validate(); err != nil {
		panic(err)
	}

	c := &Comp{
		params:        b.params,
		regs:          regmap.Generate(b.params),
		state:         newRegFile(b.params),
		numReqPerTick: b.numReqPerTick,
		RemoteMem:     b.remoteMem,
		inflight:      make(map[string]*transaction),
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.topPort = sim.NewPort(c, b.topBufSize, b.topBufSize, name+".TopPort")
	c.AddPort("Top", c.topPort)

	c.bottomPort = sim.NewPort(c, b.bottomBufSize, b.bottomBufSize,
		name+".BottomPort")
	c.AddPort("Bottom", c.bottomPort)

	c.cfgPort = sim.NewPort(c, b.cfgBufSize, b.cfgBufSize, name+".CfgPort")
	c.AddPort("Cfg", c.cfgPort)

	c.AddMiddleware(&cfgMiddleware{Comp: c})
	c.AddMiddleware(&respondMiddleware{Comp: c})
	c.AddMiddleware(&checkMiddleware{Comp: c})

	return c
}
