package sim

import (
	"log"
	"math"
)

// Freq is a clock frequency in Hz.
type Freq float64

// Frequency units.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// cycles converts a time to a cycle count. The count is rounded to a tenth
// of a cycle so that a tick time read back from a float lands on its tick.
func (f Freq) cycles(now VTimeInSec) float64 {
	if f <= 0 || math.IsNaN(float64(now)) {
		log.Panicf("cannot count cycles of %v Hz at %v", float64(f), now)
	}

	return math.Round(float64(now)*float64(f)*10) / 10
}

func (f Freq) at(cycle float64) VTimeInSec {
	return VTimeInSec(cycle / float64(f))
}

// ThisTick returns the first tick at or after now.
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	return f.at(math.Ceil(f.cycles(now)))
}

// NextTick returns the first tick strictly after now.
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	return f.at(math.Floor(f.cycles(now)) + 1)
}

// NCyclesLater returns the first tick at or after n cycles from now.
func (f Freq) NCyclesLater(n int, now VTimeInSec) VTimeInSec {
	return f.ThisTick(now + f.at(float64(n)))
}
