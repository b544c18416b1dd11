// Package iopmp is a reference model of an I/O Physical Memory Protection
// unit. It holds the configuration of entries, memory domains, source
// bindings and lock registers, decides whether a transaction is allowed, and
// keeps the record of the first denied transaction.
//
// The model is pure computation. It never logs and never blocks.
package iopmp

import (
	"fmt"
)

// Config holds the hardware parameters of an IOPMP instance.
type Config struct {
	NumEntries int
	NumDomains int
	NumSources int
}

// DefaultConfig returns the parameters of the reference hardware
// configuration.
func DefaultConfig() Config {
	return Config{
		NumEntries: 16,
		NumDomains: 4,
		NumSources: 4,
	}
}

func (c Config) mustBeValid() {
	if c.NumEntries < 1 || c.NumEntries > 0xffff {
		panic(fmt.Sprintf("%d entries not supported", c.NumEntries))
	}

	if c.NumDomains < 1 || c.NumDomains > MaxDomains {
		panic(fmt.Sprintf("%d domains not supported", c.NumDomains))
	}

	if c.NumSources < 1 || c.NumSources > 0xffff {
		panic(fmt.Sprintf("%d sources not supported", c.NumSources))
	}
}

// Model is one IOPMP instance.
type Model struct {
	cfg Config

	enabled   bool
	entries   []Entry
	mdcfg     []int
	srcmd     []DomainSet
	mdcfgLock LockRegister
	entryLock LockRegister
	errReact  ErrReact
	recorder  recorder
}

// NewModel creates a model in its reset state.
func NewModel(cfg Config) *Model {
	cfg.mustBeValid()

	m := &Model{
		cfg:     cfg,
		entries: make([]Entry, cfg.NumEntries),
		mdcfg:   make([]int, cfg.NumDomains),
		srcmd:   make([]DomainSet, cfg.NumSources),
	}
	m.Reset()

	return m
}

// Config returns the hardware parameters.
func (m *Model) Config() Config {
	return m.cfg
}

// Reset turns every entry off, clears all the boundaries, bindings, lock
// registers and the violation record, and disables the unit.
func (m *Model) Reset() {
	m.enabled = false

	for i := range m.entries {
		m.entries[i] = Entry{}
	}

	for i := range m.mdcfg {
		m.mdcfg[i] = 0
	}

	for i := range m.srcmd {
		m.srcmd[i] = 0
	}

	m.mdcfgLock.reset()
	m.entryLock.reset()
	m.errReact.reset()
	m.recorder.acknowledge()
}

// Enable turns on checking. Enabling is sticky until reset.
func (m *Model) Enable() {
	m.enabled = true
}

// Enabled tells if checking is on.
func (m *Model) Enabled() bool {
	return m.enabled
}

// ConfigureEntry replaces entry i. The write is ignored when the entry is
// guarded by ENTRYLCK.
func (m *Model) ConfigureEntry(i int, e Entry) error {
	m.entryMustExist(i)

	if e.Mode > ModeNAPOT {
		panic(fmt.Sprintf("invalid mode %d", e.Mode))
	}

	if m.entryLock.Guards(i) {
		return ErrLockedWriteIgnored
	}

	m.entries[i] = Entry{Mode: e.Mode, Access: e.Access & AccessAll,
		Addr: e.Addr}

	return nil
}

// Entry returns entry i.
func (m *Model) Entry(i int) Entry {
	m.entryMustExist(i)
	return m.entries[i]
}

// ReadEntry returns the encoded address of entry i as the low and high
// register halves.
func (m *Model) ReadEntry(i int) (addrLow, addrHigh uint32) {
	return EncodeAddr(m.Entry(i).Addr)
}

// WriteMDCFGLock writes MDCFGLCK.
func (m *Model) WriteMDCFGLock(count int, lock bool) error {
	return m.mdcfgLock.Write(count, lock)
}

// MDCFGLock returns MDCFGLCK.
func (m *Model) MDCFGLock() LockRegister {
	return m.mdcfgLock
}

// WriteEntryLock writes ENTRYLCK.
func (m *Model) WriteEntryLock(count int, lock bool) error {
	return m.entryLock.Write(count, lock)
}

// EntryLock returns ENTRYLCK.
func (m *Model) EntryLock() LockRegister {
	return m.entryLock
}

// WriteErrReact writes ERRREACT.
func (m *Model) WriteErrReact(f ErrReactFields, lock bool) error {
	return m.errReact.Write(f, lock)
}

// ErrReact returns ERRREACT.
func (m *Model) ErrReact() ErrReact {
	return m.errReact
}

// Violation returns the violation record.
func (m *Model) Violation() Violation {
	return m.recorder.record
}

// Acknowledge clears the violation record and the interrupt.
func (m *Model) Acknowledge() {
	m.recorder.acknowledge()
}

// Interrupt tells if the interrupt output is asserted.
func (m *Model) Interrupt() bool {
	v := m.recorder.record
	f := m.errReact.fields

	if !v.Valid || !f.InterruptEnable {
		return false
	}

	if v.Access == AccessWrite {
		return f.WriteInterrupt
	}

	return f.ReadInterrupt
}

func (m *Model) entryMustExist(i int) {
	if i < 0 || i >= m.cfg.NumEntries {
		panic(fmt.Sprintf("entry %d out of range [0, %d)",
			i, m.cfg.NumEntries))
	}
}
