package sim

import (
	"log"
	"sync"
)

// Buffer is a bounded FIFO. Ports keep their queues in Buffers, and the
// monitor reports every Buffer field it finds on a component.
type Buffer interface {
	Named

	CanPush() bool
	Push(e any)

	// Pop and Peek return nil when the buffer is empty.
	Pop() any
	Peek() any

	Capacity() int
	Size() int
}

// NewBuffer creates a Buffer that holds up to capacity elements.
func NewBuffer(name string, capacity int) Buffer {
	return &ring{
		name:  name,
		slots: make([]any, capacity),
	}
}

// ring stores the elements in a fixed slice. head is the slot of the oldest
// element. The monitor reads the size from its own goroutine.
type ring struct {
	name string

	mu    sync.Mutex
	slots []any
	head  int
	count int
}

func (r *ring) Name() string {
	return r.name
}

func (r *ring) Capacity() int {
	return len(r.slots)
}

func (r *ring) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

func (r *ring) CanPush() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count < len(r.slots)
}

func (r *ring) Push(e any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == len(r.slots) {
		log.Panicf("buffer %s is full", r.name)
	}

	r.slots[(r.head+r.count)%len(r.slots)] = e
	r.count++
}

func (r *ring) Peek() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	return r.slots[r.head]
}

func (r *ring) Pop() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	e := r.slots[r.head]
	r.slots[r.head] = nil
	r.head = (r.head + 1) % len(r.slots)
	r.count--

	return e
}
