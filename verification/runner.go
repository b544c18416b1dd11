package verification

import (
	"fmt"
	"math/rand"
	"sort"
)

// A Scenario is a named sequence of configurations and checks.
type Scenario struct {
	Name        string
	Description string

	run func(r *Runner) error
}

var scenarios = []Scenario{
	{"end-to-end", "one source, one domain, one NAPOT entry", (*Runner).endToEnd},
	{"bypass", "everything passes while checking is off", (*Runner).bypass},
	{"stickiness", "the first fault is kept until acknowledged", (*Runner).stickiness},
	{"locking", "MDCFGLCK, ENTRYLCK and ERRREACT locks", (*Runner).locking},
	{"napot-same-mds", "NAPOT sweep, every source in every domain", (*Runner).napotSameMDs},
	{"napot-multi-sid", "NAPOT sweep, random source bindings", (*Runner).napotMultiSID},
	{"tor-same-mds", "TOR sweep, every source in every domain", (*Runner).torSameMDs},
	{"tor-multi-sid", "TOR sweep, random source bindings", (*Runner).torMultiSID},
	{"cross-sid", "sources reach only their own domains", (*Runner).crossSID},
	{"adversarial", "random boundaries, TOR chains and straddling accesses", (*Runner).adversarial},
}

// Scenarios lists all the scenarios in the order they run.
func Scenarios() []Scenario {
	return append([]Scenario(nil), scenarios...)
}

// ScenarioNames lists the names of all the scenarios.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}

	return names
}

// Runner runs scenarios through a Driver. Randomness comes from a seed so
// that a run can be repeated.
type Runner struct {
	driver *Driver
	rng    *rand.Rand

	// FixedTORReset makes the TOR sweep restart its base when the region
	// would cross a 4 KiB page. By default the sweep uses
	// base & (0xfff + length) > 0xfff as its restart condition.
	FixedTORReset bool

	// AdversarialRounds is the number of random configurations tried by the
	// adversarial scenario.
	AdversarialRounds int
}

// NewRunner creates a Runner.
func NewRunner(driver *Driver, seed int64) *Runner {
	return &Runner{
		driver:            driver,
		rng:               rand.New(rand.NewSource(seed)),
		AdversarialRounds: 4,
	}
}

// Driver returns the driver that the runner checks through.
func (r *Runner) Driver() *Driver {
	return r.driver
}

// Run runs the named scenarios from a reset device. An empty list runs all
// of them.
func (r *Runner) Run(names ...string) error {
	if len(names) == 0 {
		names = ScenarioNames()
	}

	for _, name := range names {
		s, found := lookupScenario(name)
		if !found {
			return fmt.Errorf("unknown scenario %q, choose from %v",
				name, ScenarioNames())
		}

		r.driver.SetScenario(s.Name)
		r.driver.Reset()

		if err := s.run(r); err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}

	return nil
}

func lookupScenario(name string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, true
		}
	}

	return Scenario{}, false
}

// randInt returns a number in [lo, hi].
func (r *Runner) randInt(lo, hi int) int {
	return lo + r.rng.Intn(hi-lo+1)
}

// RandomMDs programs increasing domain boundaries, each 1 to 4 entries after
// the previous one. The last domain ends at the last entry.
func (r *Runner) RandomMDs() ([]int, error) {
	d := r.driver
	numDomains := d.params.NumDomains
	numEntries := d.params.NumEntries

	bounds := make([]int, numDomains)

	t := r.randInt(1, 4)
	for i := 0; i < numDomains-1; i++ {
		bounds[i] = min(t, numEntries)
		t += r.randInt(1, 4)
	}

	bounds[numDomains-1] = numEntries

	for i, b := range bounds {
		if err := d.SetMDCFG(i, b); err != nil {
			return nil, err
		}
	}

	return bounds, nil
}

// RandomSIDs binds every source to a random set of domains.
func (r *Runner) RandomSIDs() ([]DomainList, error) {
	d := r.driver
	numDomains := d.params.NumDomains

	lists := make([]DomainList, d.params.NumSources)

	for sid := range lists {
		picked := map[int]bool{}

		for n := r.randInt(1, max(1, numDomains-2)); n > 0; n-- {
			picked[r.rng.Intn(numDomains)] = true
		}

		for md := range picked {
			lists[sid] = append(lists[sid], md)
		}

		sort.Ints(lists[sid])

		if err := d.SetSRCMD(sid, lists[sid].Set()); err != nil {
			return nil, err
		}
	}

	return lists, nil
}
