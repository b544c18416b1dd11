package sim

import (
	"log"
	"reflect"
)

// EventLogger is a hook that prints every event before it is handled.
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger returns an EventLogger that writes into logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func writes the time, the type and the handler of the event.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	handler := reflect.TypeOf(evt.Handler()).String()
	if named, ok := evt.Handler().(Named); ok {
		handler = named.Name()
	}

	h.logger.Printf("%.10f, %s -> %s", evt.Time(), reflect.TypeOf(evt), handler)
}
