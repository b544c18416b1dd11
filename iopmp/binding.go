package iopmp

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxDomains is the number of domains a SRCMD bitmap can name.
const MaxDomains = 63

// DomainSet is a bitmap of memory domains. Bit d stands for domain d.
type DomainSet uint64

// NewDomainSet creates a set holding the given domains.
func NewDomainSet(domains ...int) DomainSet {
	var s DomainSet
	for _, d := range domains {
		s = s.With(d)
	}

	return s
}

// With returns a copy of the set that also holds domain d.
func (s DomainSet) With(d int) DomainSet {
	if d < 0 || d >= MaxDomains {
		panic(fmt.Sprintf("domain %d out of range", d))
	}

	return s | DomainSet(1)<<d
}

// Contains tells if domain d is in the set.
func (s DomainSet) Contains(d int) bool {
	if d < 0 || d >= MaxDomains {
		return false
	}

	return s&(DomainSet(1)<<d) != 0
}

// Len returns the number of domains in the set.
func (s DomainSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Domains lists the domains in ascending order.
func (s DomainSet) Domains() []int {
	var ds []int
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		ds = append(ds, bits.TrailingZeros64(rest))
	}

	return ds
}

func (s DomainSet) String() string {
	parts := make([]string, 0, s.Len())
	for _, d := range s.Domains() {
		parts = append(parts, fmt.Sprint(d))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// SetMDCFG sets the boundary of domain d: the index one past its last entry.
// The value is stored as written. The write is ignored when the domain is
// guarded by MDCFGLCK.
func (m *Model) SetMDCFG(d int, boundary int) error {
	m.domainMustExist(d)

	if boundary < 0 || boundary > m.cfg.NumEntries {
		panic(fmt.Sprintf("boundary %d of domain %d outside [0, %d]",
			boundary, d, m.cfg.NumEntries))
	}

	if m.mdcfgLock.Guards(d) {
		return ErrLockedWriteIgnored
	}

	m.mdcfg[d] = boundary

	return nil
}

// MDCFG returns the stored boundary of domain d.
func (m *Model) MDCFG(d int) int {
	m.domainMustExist(d)
	return m.mdcfg[d]
}

// DomainEntries returns the entry index range [lo, hi) owned by domain d.
// Boundaries are read as a non-decreasing sequence, so a boundary below the
// one of the previous domain leaves the domain empty.
func (m *Model) DomainEntries(d int) (lo, hi int) {
	m.domainMustExist(d)

	for i := 0; i <= d; i++ {
		lo = hi
		hi = max(hi, m.mdcfg[i])
	}

	return lo, hi
}

// SetSRCMD binds a source to a set of domains.
func (m *Model) SetSRCMD(sid int, domains DomainSet) {
	m.sourceMustExist(sid)

	if uint64(domains)>>m.cfg.NumDomains != 0 {
		panic(fmt.Sprintf("domain set %s names domains beyond %d",
			domains, m.cfg.NumDomains))
	}

	m.srcmd[sid] = domains
}

// SRCMD returns the domains bound to a source.
func (m *Model) SRCMD(sid int) DomainSet {
	m.sourceMustExist(sid)
	return m.srcmd[sid]
}

func (m *Model) domainMustExist(d int) {
	if d < 0 || d >= m.cfg.NumDomains {
		panic(fmt.Sprintf("domain %d out of range [0, %d)",
			d, m.cfg.NumDomains))
	}
}

func (m *Model) sourceMustExist(sid int) {
	if sid < 0 || sid >= m.cfg.NumSources {
		panic(fmt.Sprintf("source %d out of range [0, %d)",
			sid, m.cfg.NumSources))
	}
}
