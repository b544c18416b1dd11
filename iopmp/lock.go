package iopmp

import (
	"errors"
	"fmt"
)

// ErrLockedWriteIgnored reports that a configuration write had no effect
// because the field is locked. Callers re-read the field to observe its
// value.
var ErrLockedWriteIgnored = errors.New("write to locked field ignored")

// ErrCountDecrease reports that a lock count write was ignored because it
// was lower than the current count.
var ErrCountDecrease = fmt.Errorf("%w: lock count may not decrease",
	ErrLockedWriteIgnored)

// LockRegister is a (count, locked) pair that guards a prefix of domains or
// entries. The count only grows and the lock bit is a one-way latch.
type LockRegister struct {
	count  int
	locked bool
}

// Count returns the number of guarded indices.
func (l LockRegister) Count() int {
	return l.count
}

// Locked tells if the register itself is locked.
func (l LockRegister) Locked() bool {
	return l.locked
}

// Guards tells if index is below the count.
func (l LockRegister) Guards(index int) bool {
	return index < l.count
}

// Write updates the register with a single combined write. Once locked, only
// a write that repeats the current value with lock set succeeds, without
// effect. While unlocked, a lower count is ignored and a lock request in the
// same write still applies.
func (l *LockRegister) Write(count int, lock bool) error {
	if l.locked {
		if lock && count == l.count {
			return nil
		}

		return ErrLockedWriteIgnored
	}

	var err error
	if count >= l.count {
		l.count = count
	} else {
		err = ErrCountDecrease
	}

	if lock {
		l.locked = true
	}

	return err
}

func (l *LockRegister) reset() {
	*l = LockRegister{}
}

// ErrReactFields are the behavior bits of ERRREACT.
type ErrReactFields struct {
	// InterruptEnable gates the interrupt output.
	InterruptEnable bool

	// ReadInterrupt enables interrupts on denied reads and fetches.
	ReadInterrupt bool

	// WriteInterrupt enables interrupts on denied writes.
	WriteInterrupt bool
}

// ErrReact is the error reaction register. Its lock bit freezes the
// behavior bits as a group.
type ErrReact struct {
	fields ErrReactFields
	locked bool
}

// Fields returns the behavior bits.
func (r ErrReact) Fields() ErrReactFields {
	return r.fields
}

// Locked tells if the behavior bits are frozen.
func (r ErrReact) Locked() bool {
	return r.locked
}

// Write updates the behavior bits and optionally locks them.
func (r *ErrReact) Write(f ErrReactFields, lock bool) error {
	if r.locked {
		if lock && f == r.fields {
			return nil
		}

		return ErrLockedWriteIgnored
	}

	r.fields = f
	if lock {
		r.locked = true
	}

	return nil
}

func (r *ErrReact) reset() {
	*r = ErrReact{}
}
