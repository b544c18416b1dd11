package verification

import (
	"math"

	"github.com/sarchlab/iopmpsim/iopmp"
)

// DomainList is a sorted list of domains bound to a source.
type DomainList []int

// Set returns the list as a DomainSet.
func (l DomainList) Set() iopmp.DomainSet {
	return iopmp.NewDomainSet(l...)
}

// Contains tells if md is in the list.
func (l DomainList) Contains(md int) bool {
	for _, d := range l {
		if d == md {
			return true
		}
	}

	return false
}

var allInterrupts = iopmp.ErrReactFields{
	InterruptEnable: true,
	ReadInterrupt:   true,
	WriteInterrupt:  true,
}

// issueAndAssess issues a transaction and clears the error record when it
// is denied.
func (r *Runner) issueAndAssess(tx iopmp.Transaction) error {
	decision, err := r.driver.Issue(tx)
	if err != nil {
		return err
	}

	if decision.Allowed {
		return nil
	}

	return r.driver.AssessError()
}

// expectIntent records a mismatch when the model decides a transaction
// differently from how the scenario set it up.
func (r *Runner) expectIntent(
	tx iopmp.Transaction,
	allow bool,
	decision iopmp.Decision,
) {
	r.driver.expectEqual("intended decision of "+tx.String(), allow,
		decision.Allowed)
}

// issueExpecting issues a transaction the scenario means to be allowed or
// denied, and clears the error record when it is denied.
func (r *Runner) issueExpecting(tx iopmp.Transaction, allow bool) error {
	decision, err := r.driver.Issue(tx)
	if err != nil {
		return err
	}

	r.expectIntent(tx, allow, decision)

	if decision.Allowed {
		return nil
	}

	return r.driver.AssessError()
}

func (r *Runner) endToEnd() error {
	d := r.driver

	steps := []func() error{
		func() error { return d.SetSRCMD(0, iopmp.NewDomainSet(0)) },
		func() error { return d.SetMDCFG(0, 4) },
		func() error {
			return d.ConfigureEntry(0,
				iopmp.NAPOTEntry(0x1000, 0x1000, iopmp.AccessRead))
		},
		d.Enable,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	for _, c := range []struct {
		tx    iopmp.Transaction
		allow bool
	}{
		{iopmp.Transaction{SourceID: 0, Address: 0x1000, Length: 0x100,
			Access: iopmp.AccessRead}, true},
		{iopmp.Transaction{SourceID: 0, Address: 0x1000, Length: 0x100,
			Access: iopmp.AccessWrite}, false},
		{iopmp.Transaction{SourceID: 1, Address: 0x1000, Length: 0x100,
			Access: iopmp.AccessRead}, false},
	} {
		if err := r.issueExpecting(c.tx, c.allow); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) randomAccess() iopmp.Access {
	return []iopmp.Access{
		iopmp.AccessRead, iopmp.AccessWrite, iopmp.AccessExec,
	}[r.rng.Intn(3)]
}

func (r *Runner) bypass() error {
	d := r.driver

	if err := d.SetSRCMD(0, iopmp.NewDomainSet(0)); err != nil {
		return err
	}

	if err := d.SetMDCFG(0, 1); err != nil {
		return err
	}

	if err := d.ConfigureEntry(0, iopmp.NAPOTEntry(0, 0x1000, iopmp.AccessNone)); err != nil {
		return err
	}

	for i := 0; i < 32; i++ {
		tx := iopmp.Transaction{
			SourceID: r.rng.Intn(d.params.NumSources + 1),
			Address:  uint64(r.rng.Intn(0x4000)) &^ 3,
			Length:   uint64(4 << r.rng.Intn(6)),
			Access:   r.randomAccess(),
		}

		if _, err := d.Issue(tx); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) stickiness() error {
	d := r.driver

	if err := d.SetErrReact(allInterrupts, false); err != nil {
		return err
	}

	if err := d.Enable(); err != nil {
		return err
	}

	faults := []iopmp.Transaction{
		{SourceID: 0, Address: 0x100, Length: 4, Access: iopmp.AccessRead},
		{SourceID: 1, Address: 0x200, Length: 8, Access: iopmp.AccessWrite},
	}

	for _, tx := range faults {
		decision, err := d.Issue(tx)
		if err != nil {
			return err
		}

		r.expectIntent(tx, false, decision)
	}

	if err := d.Acknowledge(); err != nil {
		return err
	}

	return r.issueExpecting(iopmp.Transaction{
		SourceID: 2, Address: 0x300, Length: 4, Access: iopmp.AccessExec,
	}, false)
}

// lockedEntryTop is written into entries that a lock should protect.
const lockedEntryTop = 0xFFFF105A45

//nolint:gocyclo
func (r *Runner) locking() error {
	d := r.driver
	numDomains := d.params.NumDomains
	numEntries := d.params.NumEntries

	for i := 0; i < numDomains; i++ {
		if err := d.SetMDCFGLock(i+1, false); err != nil {
			return err
		}

		if err := d.SetMDCFG(i, min(i+1, numEntries)); err != nil {
			return err
		}
	}

	d.Reset()

	mdcfgLockWrites := []lockState{
		{2, false}, {1, false}, {2, true}, {numDomains, false},
		{2, false}, {2, true},
	}
	for _, w := range mdcfgLockWrites {
		if err := d.SetMDCFGLock(w.Count, w.Locked); err != nil {
			return err
		}
	}

	for i := 0; i < numEntries; i++ {
		if err := d.SetEntryLock(i+1, false); err != nil {
			return err
		}

		e := iopmp.TOREntry(lockedEntryTop, iopmp.AccessRead)
		if err := d.ConfigureEntry(i, e); err != nil {
			return err
		}
	}

	d.Reset()

	entryLockWrites := []lockState{
		{2, false}, {1, false}, {2, true}, {numDomains, false},
		{2, false}, {2, true},
	}
	for _, w := range entryLockWrites {
		if err := d.SetEntryLock(w.Count, w.Locked); err != nil {
			return err
		}
	}

	if err := d.SetErrReact(allInterrupts, true); err != nil {
		return err
	}

	return d.SetErrReact(iopmp.ErrReactFields{}, false)
}

// napotSweep configures entries [start, stop) one at a time as NAPOT
// regions of growing size and accesses each region, expecting the access to
// be allowed exactly when allow is set. Denied sweeps leave the entry off.
// Special sweeps configure the entry but are expected to be denied for other
// reasons, such as the entry not being in a domain of the source.
func (r *Runner) napotSweep(
	sid int,
	access iopmp.Access,
	allow, special bool,
	start, stop int,
) error {
	d := r.driver
	base, length := uint64(0x100), uint64(4)

	for i := start; i < stop; i++ {
		e := iopmp.NAPOTEntry(base, length, access)
		if !allow && !special {
			e = iopmp.OffEntry(base)
			e.Access = access
		}

		if err := d.ConfigureEntry(i, e); err != nil {
			return err
		}

		err := r.issueExpecting(iopmp.Transaction{
			SourceID: sid, Address: base, Length: length, Access: access,
		}, allow)
		if err != nil {
			return err
		}

		if length >= 2048 {
			length = 8
		} else {
			length *= 2
		}

		base *= 2

		clean := iopmp.NAPOTEntry(0, 4, iopmp.AccessNone)
		if err := d.ConfigureEntry(i, clean); err != nil {
			return err
		}
	}

	return nil
}

// torResetDue tells if the TOR sweep restarts from its first base.
func (r *Runner) torResetDue(base, length uint64) bool {
	if r.FixedTORReset {
		return base&0xfff+length > 0xfff
	}

	return base&(0xfff+length) > 0xfff
}

// torSweep configures entry pairs (i-1, i) with i in [max(start, 1), stop)
// so that entry i covers [base-length, base) and accesses that range.
// Denied sweeps leave both entries off.
func (r *Runner) torSweep(
	sid int,
	access iopmp.Access,
	allow, special bool,
	start, stop int,
) error {
	d := r.driver
	base, length := uint64(0x100), uint64(8)

	for i := max(start, 1); i < stop; i++ {
		prev := base - length

		lower := iopmp.OffEntry(base)
		upper := iopmp.OffEntry(base)

		if allow || special {
			lower = iopmp.OffEntry(prev)
			upper = iopmp.TOREntry(base, access)
		}

		lower.Access = access
		if upper.Mode == iopmp.ModeOff {
			upper.Access = access
		}

		if err := d.ConfigureEntry(i-1, lower); err != nil {
			return err
		}

		if err := d.ConfigureEntry(i, upper); err != nil {
			return err
		}

		err := r.issueExpecting(iopmp.Transaction{
			SourceID: sid, Address: prev, Length: length, Access: access,
		}, allow)
		if err != nil {
			return err
		}

		length += 8
		base *= 2

		if r.torResetDue(base, length) {
			base = 0x100
		}

		clean := iopmp.NAPOTEntry(0, 4, iopmp.AccessNone)
		for _, j := range []int{i, i - 1} {
			if err := d.ConfigureEntry(j, clean); err != nil {
				return err
			}
		}
	}

	return nil
}

type sweep func(sid int, access iopmp.Access, allow, special bool,
	start, stop int) error

func (r *Runner) prepare() error {
	return r.driver.SetErrReact(allInterrupts, false)
}

func (r *Runner) sameMDs(sw sweep) error {
	d := r.driver

	if err := r.prepare(); err != nil {
		return err
	}

	if _, err := r.RandomMDs(); err != nil {
		return err
	}

	all := make(DomainList, d.params.NumDomains)
	for i := range all {
		all[i] = i
	}

	for sid := 0; sid < d.params.NumSources; sid++ {
		if err := d.SetSRCMD(sid, all.Set()); err != nil {
			return err
		}
	}

	if err := d.Enable(); err != nil {
		return err
	}

	for sid := 0; sid < d.params.NumSources; sid++ {
		for _, access := range []iopmp.Access{
			iopmp.AccessRead, iopmp.AccessWrite,
		} {
			for _, allow := range []bool{true, false} {
				err := sw(sid, access, allow, false, 0, d.params.NumEntries)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (r *Runner) multiSID(sw sweep) error {
	d := r.driver

	if err := r.prepare(); err != nil {
		return err
	}

	bounds, err := r.RandomMDs()
	if err != nil {
		return err
	}

	lists, err := r.RandomSIDs()
	if err != nil {
		return err
	}

	if err := d.Enable(); err != nil {
		return err
	}

	domainRange := func(md int) (int, int) {
		if md == 0 {
			return 0, bounds[0]
		}

		return bounds[md-1], bounds[md]
	}

	for sid, list := range lists {
		for _, access := range []iopmp.Access{
			iopmp.AccessRead, iopmp.AccessWrite,
		} {
			for _, md := range list {
				lo, hi := domainRange(md)

				for _, allow := range []bool{true, false} {
					if err := sw(sid, access, allow, false, lo, hi); err != nil {
						return err
					}
				}
			}
		}

		for md := 1; md < d.params.NumDomains; md++ {
			if list.Contains(md) {
				continue
			}

			lo, hi := domainRange(md)

			for _, access := range []iopmp.Access{
				iopmp.AccessRead, iopmp.AccessWrite,
			} {
				if err := sw(sid, access, false, true, lo, hi); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (r *Runner) napotSameMDs() error {
	return r.sameMDs(r.napotSweep)
}

func (r *Runner) napotMultiSID() error {
	return r.multiSID(r.napotSweep)
}

func (r *Runner) torSameMDs() error {
	return r.sameMDs(r.torSweep)
}

func (r *Runner) torMultiSID() error {
	return r.multiSID(r.torSweep)
}

// crossSID gives every source its own domain with one region and checks
// that no source reaches the region of another.
func (r *Runner) crossSID() error {
	d := r.driver

	if err := r.prepare(); err != nil {
		return err
	}

	n := min(d.params.NumSources, d.params.NumDomains, d.params.NumEntries)
	region := func(i int) uint64 { return 0x1000 * uint64(i+1) }

	for i := 0; i < n; i++ {
		if err := d.SetMDCFG(i, i+1); err != nil {
			return err
		}

		e := iopmp.NAPOTEntry(region(i), 0x1000, iopmp.AccessRead|iopmp.AccessWrite)
		if err := d.ConfigureEntry(i, e); err != nil {
			return err
		}

		if err := d.SetSRCMD(i, iopmp.NewDomainSet(i)); err != nil {
			return err
		}
	}

	if err := d.Enable(); err != nil {
		return err
	}

	for sid := 0; sid < n; sid++ {
		for target := 0; target < n; target++ {
			err := r.issueExpecting(iopmp.Transaction{
				SourceID: sid,
				Address:  region(target) + 0x40,
				Length:   0x40,
				Access:   iopmp.AccessWrite,
			}, sid == target)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// adversarial programs out-of-order boundaries, overlapping TOR chains and
// random NAPOT regions, then issues accesses that straddle region edges.
func (r *Runner) adversarial() error {
	d := r.driver

	for round := 0; round < r.AdversarialRounds; round++ {
		d.Reset()

		if err := r.prepare(); err != nil {
			return err
		}

		edges, err := r.randomConfiguration()
		if err != nil {
			return err
		}

		if err := d.Enable(); err != nil {
			return err
		}

		for i := 0; i < 4*d.params.NumEntries; i++ {
			if err := r.issueAndAssess(r.straddlingTransaction(edges)); err != nil {
				return err
			}
		}
	}

	return nil
}

// randomConfiguration writes random boundaries, bindings and entries, and
// returns the region edges worth probing.
func (r *Runner) randomConfiguration() ([]uint64, error) {
	d := r.driver
	p := d.params

	for md := 0; md < p.NumDomains; md++ {
		if err := d.SetMDCFG(md, r.rng.Intn(p.NumEntries+1)); err != nil {
			return nil, err
		}
	}

	for sid := 0; sid < p.NumSources; sid++ {
		set := iopmp.DomainSet(r.rng.Uint64()) & iopmp.DomainSet(uint64(1)<<p.NumDomains-1)
		if err := d.SetSRCMD(sid, set); err != nil {
			return nil, err
		}
	}

	edges := []uint64{0, math.MaxUint64 - 7}

	for i := 0; i < p.NumEntries; i++ {
		addr := uint64(r.rng.Intn(0x40)) << 8
		access := iopmp.Access(r.rng.Intn(8))

		var e iopmp.Entry

		switch r.rng.Intn(4) {
		case 0:
			e = iopmp.OffEntry(addr)
		case 1, 2:
			e = iopmp.TOREntry(addr, access)
		default:
			length := uint64(4) << r.rng.Intn(10)
			e = iopmp.NAPOTEntry(addr&^(length-1), length, access)
			addr = addr&^(length-1) + length
			edges = append(edges, addr-length)
		}

		edges = append(edges, addr)

		if err := d.ConfigureEntry(i, e); err != nil {
			return nil, err
		}
	}

	return edges, nil
}

func (r *Runner) straddlingTransaction(edges []uint64) iopmp.Transaction {
	edge := edges[r.rng.Intn(len(edges))]
	length := uint64(4) << r.rng.Intn(5)

	addr := edge - uint64(r.rng.Intn(int(length)))
	if r.rng.Intn(2) == 0 {
		addr = edge
	}

	return iopmp.Transaction{
		SourceID: r.rng.Intn(r.driver.params.NumSources),
		Address:  addr,
		Length:   length,
		Access:   r.randomAccess(),
	}
}
