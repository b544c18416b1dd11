package sim

// VTimeInSec is a point on the simulated clock, in seconds.
type VTimeInSec float64

// Event is work scheduled for a Handler at a point in simulated time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler

	// IsSecondary events run after every primary event of the same time.
	IsSecondary() bool
}

// Handler runs the events scheduled for it. A component only schedules
// events for itself.
type Handler interface {
	Handle(e Event) error
}

// EventBase implements Event. Event types embed it and add their payload.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a primary event with a fresh ID.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

func (e EventBase) Time() VTimeInSec { return e.time }

func (e EventBase) Handler() Handler { return e.handler }

func (e EventBase) IsSecondary() bool { return e.secondary }
