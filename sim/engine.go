package sim

// TimeTeller reports the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// Engine runs scheduled events in time order. Pause and Continue may be
// called from other goroutines; a paused engine blocks before its next
// event.
type Engine interface {
	Hookable
	TimeTeller

	Schedule(e Event)

	// Run returns once no event is left.
	Run() error

	Pause()
	Continue()
}
