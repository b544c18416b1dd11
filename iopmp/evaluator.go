package iopmp

import (
	"fmt"
	"math"
)

// Transaction describes one bus access to check.
type Transaction struct {
	SourceID int
	Address  uint64
	Length   uint64
	Access   Access
}

func (tx Transaction) String() string {
	return fmt.Sprintf("sid %d %s [0x%x, +0x%x)",
		tx.SourceID, tx.Access, tx.Address, tx.Length)
}

func (tx Transaction) span() addrRange {
	last := uint64(math.MaxUint64)
	if tx.Length-1 <= math.MaxUint64-tx.Address {
		last = tx.Address + tx.Length - 1
	}

	return addrRange{first: tx.Address, last: last}
}

func (tx Transaction) mustBeValid() {
	if tx.Length == 0 {
		panic(fmt.Sprintf("transaction %s has no bytes", tx))
	}

	if !tx.Access.IsKind() {
		panic(fmt.Sprintf("transaction requests %s, not a single kind",
			tx.Access))
	}
}

// Decision is the result of checking a transaction.
type Decision struct {
	Allowed bool

	// Bypass is set when the IOPMP is not enabled.
	Bypass bool

	Kind ErrorKind

	// EntryID is the deciding entry, or NoEntry.
	EntryID int

	// DomainID is the domain that owns the deciding entry, or -1.
	DomainID int
}

func allow(entry, domain int) Decision {
	return Decision{Allowed: true, EntryID: entry, DomainID: domain}
}

func deny(kind ErrorKind, entry, domain int) Decision {
	return Decision{Kind: kind, EntryID: entry, DomainID: domain}
}

// Evaluate decides a transaction against the current configuration. It does
// not change any state.
func (m *Model) Evaluate(tx Transaction) Decision {
	tx.mustBeValid()

	if !m.enabled {
		return Decision{Allowed: true, Bypass: true, EntryID: NoEntry,
			DomainID: -1}
	}

	if tx.SourceID < 0 || tx.SourceID >= m.cfg.NumSources ||
		m.srcmd[tx.SourceID] == 0 {
		return deny(NoDomain, NoEntry, -1)
	}

	owner := m.entryOwners(m.srcmd[tx.SourceID])
	span := tx.span()

	for i, e := range m.entries {
		if owner[i] < 0 || e.Mode == ModeOff {
			continue
		}

		r := e.coverage(m.prevAddr(i))
		if !r.overlaps(span) {
			continue
		}

		if !r.contains(span) {
			return deny(PartialMatch, i, owner[i])
		}

		if !e.Access.Contains(tx.Access) {
			return deny(PermissionDenied, i, owner[i])
		}

		return allow(i, owner[i])
	}

	return deny(NoMatch, NoEntry, -1)
}

// Check evaluates a transaction and records it if it is denied.
func (m *Model) Check(tx Transaction) Decision {
	d := m.Evaluate(tx)
	m.recorder.capture(tx, d)

	return d
}

// entryOwners maps every entry to the bound domain that owns it, or -1 if no
// bound domain owns it.
func (m *Model) entryOwners(domains DomainSet) []int {
	owner := make([]int, m.cfg.NumEntries)
	for i := range owner {
		owner[i] = -1
	}

	for _, d := range domains.Domains() {
		lo, hi := m.DomainEntries(d)
		for i := lo; i < hi; i++ {
			owner[i] = d
		}
	}

	return owner
}

func (m *Model) prevAddr(i int) uint64 {
	if i == 0 {
		return 0
	}

	return m.entries[i-1].Addr
}
