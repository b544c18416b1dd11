package tracing

import "sync"

// StepCountTracer counts the steps of the tasks that pass its filter. The
// IOPMP marks every request it filters with an "allowed" or a
// "denied:<kind>" step, so the counts tell how many requests each decision
// got.
type StepCountTracer struct {
	filter TaskFilter

	lock sync.Mutex

	// open maps a task in flight to the steps it has reached.
	open  map[string]map[string]bool
	names []string
	steps map[string]uint64
	tasks map[string]uint64
}

// NewStepCountTracer creates a tracer that counts the tasks filter keeps.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	return &StepCountTracer{
		filter: filter,
		open:   make(map[string]map[string]bool),
		steps:  make(map[string]uint64),
		tasks:  make(map[string]uint64),
	}
}

// GetStepNames returns the step names seen, in order of first appearance.
func (t *StepCountTracer) GetStepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.names...)
}

// GetStepCount returns how many times a step was reached.
func (t *StepCountTracer) GetStepCount(step string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.steps[step]
}

// GetTaskCount returns how many tasks reached a step at least once.
func (t *StepCountTracer) GetTaskCount(step string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tasks[step]
}

func (t *StepCountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.open[task.ID] = make(map[string]bool)
	t.lock.Unlock()
}

func (t *StepCountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	reached, ok := t.open[task.ID]
	if !ok {
		return
	}

	for _, s := range task.Steps {
		if _, seen := t.steps[s.What]; !seen {
			t.names = append(t.names, s.What)
		}

		t.steps[s.What]++

		if !reached[s.What] {
			reached[s.What] = true
			t.tasks[s.What]++
		}
	}
}

func (t *StepCountTracer) EndTask(task Task) {
	t.lock.Lock()
	delete(t.open, task.ID)
	t.lock.Unlock()
}
