package verification

import "github.com/sarchlab/iopmpsim/iopmp"

var (
	IgnoreLocked  = ignoreLocked
	AllInterrupts = allInterrupts
)

// SweepNAPOT runs the NAPOT sweep over entries [start, stop).
func (r *Runner) SweepNAPOT(
	sid int,
	access iopmp.Access,
	allow bool,
	start, stop int,
) error {
	return r.napotSweep(sid, access, allow, false, start, stop)
}
