package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/iopmpsim/sim"
)

// Tracer receives the tasks of the domains it collects from.
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// CollectTrace hooks a tracer to a domain. Hooking the same tracer twice
// panics, since every task would be counted twice.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, h := range domain.Hooks() {
		if th, ok := h.(tracerHook); ok && th.tracer == tracer {
			panic(fmt.Sprintf("%s is already traced by %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(tracerHook{tracer: tracer})
}

// tracerHook forwards task hooks to a Tracer and ignores the rest.
type tracerHook struct {
	tracer Tracer
}

func (h tracerHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosTaskStart:
		h.tracer.StartTask(task)
	case HookPosTaskStep:
		h.tracer.StepTask(task)
	case HookPosTaskEnd:
		h.tracer.EndTask(task)
	}
}
