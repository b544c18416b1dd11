package verification

import (
	"fmt"
	"math/bits"
)

// BurstLenSize splits a transfer of numBytes over a bus of dataWidth bits
// into a number of beats and a beat size, given as log2 of the bytes per
// beat. The beat size is the widest one that divides the transfer and fits
// the bus.
func BurstLenSize(numBytes uint64, dataWidth int) (beats uint64, size int) {
	if dataWidth < 8 || dataWidth&(dataWidth-1) != 0 {
		panic(fmt.Sprintf("bus width %d is not a power of two bytes",
			dataWidth))
	}

	if numBytes == 0 {
		return 0, 0
	}

	lanes := uint(dataWidth / 8)
	maxSize := bits.Len(lanes - 1)
	size = min(maxSize, bits.TrailingZeros64(numBytes))

	return numBytes >> size, size
}
