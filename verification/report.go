package verification

import (
	"fmt"
	"strings"
)

// Mismatch is an observation that differs from the prediction.
type Mismatch struct {
	Scenario string
	What     string
	Expected string
	Observed string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("[%s] %s: expected %s, observed %s",
		m.Scenario, m.What, m.Expected, m.Observed)
}

// Report summarizes the checks performed by a Driver.
type Report struct {
	Checks       int
	Transactions int
	Denied       int
	Mismatches   []Mismatch
}

// Passed tells if every observation matched the prediction.
func (r Report) Passed() bool {
	return len(r.Mismatches) == 0
}

func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d checks, %d transactions (%d denied), %d mismatches",
		r.Checks, r.Transactions, r.Denied, len(r.Mismatches))

	for _, m := range r.Mismatches {
		b.WriteString("\n  ")
		b.WriteString(m.String())
	}

	return b.String()
}
