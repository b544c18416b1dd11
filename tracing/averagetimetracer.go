package tracing

import (
	"sync"

	"github.com/sarchlab/iopmpsim/sim"
)

// AverageTimeTracer measures how long the tasks that pass its filter take
// from start to end. The simulation uses it for the latency of the RAM.
type AverageTimeTracer struct {
	clock  sim.TimeTeller
	filter TaskFilter

	lock    sync.Mutex
	started map[string]sim.VTimeInSec
	total   sim.VTimeInSec
	count   uint64
}

// NewAverageTimeTracer creates a tracer that reads the time from clock.
func NewAverageTimeTracer(
	clock sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	return &AverageTimeTracer{
		clock:   clock,
		filter:  filter,
		started: make(map[string]sim.VTimeInSec),
	}
}

// AverageTime returns the mean duration of the completed tasks, or 0 if
// none has completed.
func (t *AverageTimeTracer) AverageTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.total / sim.VTimeInSec(t.count)
}

// TotalCount returns the number of completed tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

func (t *AverageTimeTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	now := t.clock.CurrentTime()

	t.lock.Lock()
	t.started[task.ID] = now
	t.lock.Unlock()
}

func (t *AverageTimeTracer) StepTask(Task) {}

func (t *AverageTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.started[task.ID]
	if !ok {
		return
	}

	delete(t.started, task.ID)
	t.total += t.clock.CurrentTime() - start
	t.count++
}
