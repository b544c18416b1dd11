package sim

// TickEvent wakes a ticking component for one cycle.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a primary tick for handler.
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase: *NewEventBase(time, handler)}
}

// Ticker advances a component by one cycle. Tick reports whether the
// component made progress. A component that made none sleeps until one of
// its ports wakes it.
type Ticker interface {
	Tick() bool
}

// TickScheduler keeps at most one tick pending per cycle.
type TickScheduler struct {
	Engine Engine
	Freq   Freq

	handler   Handler
	secondary bool

	// last is the time of the latest tick scheduled, -1 before the first.
	last VTimeInSec
}

// NewTickScheduler creates a scheduler of primary ticks.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	freq Freq,
) *TickScheduler {
	return &TickScheduler{
		Engine:  engine,
		Freq:    freq,
		handler: handler,
		last:    -1,
	}
}

// TickNow schedules a tick in the current cycle.
func (t *TickScheduler) TickNow() {
	t.tickAt(t.Freq.ThisTick(t.CurrentTime()))
}

// TickLater schedules a tick in the next cycle.
func (t *TickScheduler) TickLater() {
	t.tickAt(t.Freq.NextTick(t.CurrentTime()))
}

func (t *TickScheduler) tickAt(time VTimeInSec) {
	if time <= t.last {
		return
	}

	t.last = time

	tick := MakeTickEvent(t.handler, time)
	tick.secondary = t.secondary
	t.Engine.Schedule(tick)
}

// CurrentTime returns the time of the engine.
func (t *TickScheduler) CurrentTime() VTimeInSec {
	return t.Engine.CurrentTime()
}

// TickingComponent calls its Ticker every cycle for as long as the Ticker
// makes progress, and again whenever a port receives a message or frees up.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a component that ticks with the primary
// events of a cycle.
func NewTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	c := &TickingComponent{
		ComponentBase: NewComponentBase(name),
		ticker:        ticker,
	}
	c.TickScheduler = NewTickScheduler(c, engine, freq)

	return c
}

// NewSecondaryTickingComponent creates a component that ticks after the
// primary events of a cycle. Connections use it so that they move the
// messages sent in the same cycle.
func NewSecondaryTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	c := NewTickingComponent(name, engine, freq, ticker)
	c.secondary = true

	return c
}

// NotifyPortFree wakes the component.
func (c *TickingComponent) NotifyPortFree(_ Port) {
	c.TickLater()
}

// NotifyRecv wakes the component.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickLater()
}

// Handle runs one cycle.
func (c *TickingComponent) Handle(_ Event) error {
	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}
