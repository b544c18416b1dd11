package sim

import (
	"fmt"
	"log"
	"reflect"
	"sync"
)

// Hook positions that the SerialEngine invokes around every event.
var (
	HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}
	HookPosAfterEvent  = &HookPos{Name: "AfterEvent"}
)

// SerialEngine handles one event at a time on the goroutine that calls Run.
// At equal times, primary events go before secondary ones, and events of
// the same kind go in the order they were scheduled.
type SerialEngine struct {
	HookableBase

	primary   EventQueue
	secondary EventQueue

	mu     sync.Mutex
	now    VTimeInSec
	paused bool
	resume *sync.Cond
}

// NewSerialEngine creates an engine with no events.
func NewSerialEngine() *SerialEngine {
	e := &SerialEngine{
		primary:   NewEventQueue(),
		secondary: NewEventQueue(),
	}
	e.resume = sync.NewCond(&e.mu)

	return e
}

// Schedule queues an event. Events are scheduled from handlers or before
// Run, never concurrently with Run.
func (e *SerialEngine) Schedule(evt Event) {
	if now := e.CurrentTime(); evt.Time() < now {
		log.Panicf("scheduling %s at %.10f, earlier than now %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	if evt.IsSecondary() {
		e.secondary.Push(evt)
		return
	}

	e.primary.Push(evt)
}

// CurrentTime returns the time of the event being handled.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now
}

// Run handles events until none is left. It stops at the first error a
// handler returns.
func (e *SerialEngine) Run() error {
	for {
		evt := e.next()
		if evt == nil {
			return nil
		}

		if err := e.handle(evt); err != nil {
			return err
		}
	}
}

// next waits out a pause, then pops the earliest event and advances the
// clock to it.
func (e *SerialEngine) next() Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.paused {
		e.resume.Wait()
	}

	evt := e.pop()
	if evt != nil {
		e.now = evt.Time()
	}

	return evt
}

func (e *SerialEngine) pop() Event {
	p, s := e.primary.Len(), e.secondary.Len()

	switch {
	case p == 0 && s == 0:
		return nil
	case s == 0:
		return e.primary.Pop()
	case p == 0:
		return e.secondary.Pop()
	case e.primary.Peek().Time() <= e.secondary.Peek().Time():
		return e.primary.Pop()
	default:
		return e.secondary.Pop()
	}
}

func (e *SerialEngine) handle(evt Event) error {
	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	if err := evt.Handler().Handle(evt); err != nil {
		return fmt.Errorf("handling %s at %.10f: %w",
			reflect.TypeOf(evt), evt.Time(), err)
	}

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return nil
}

// Pause holds Run before its next event.
func (e *SerialEngine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Continue releases a paused Run.
func (e *SerialEngine) Continue() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()

	e.resume.Broadcast()
}
