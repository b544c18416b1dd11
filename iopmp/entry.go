package iopmp

import (
	"fmt"
	"math"
	"math/bits"
)

// Entry is one protection entry. Addr is the byte-granular address value
// of the entry. Its meaning depends on Mode: the top of the range for TOR,
// the NAPOT-encoded base and size for NA4 and NAPOT. An OFF entry still
// bounds the TOR entry that follows it. Bits 0 and 1 of Addr are not
// significant.
type Entry struct {
	Mode   Mode
	Access Access
	Addr   uint64
}

// NAPOTEntry builds an entry covering [base, base+length). Lengths below 8
// use NA4. The length must be a power of two no smaller than 4 and the base
// must be aligned to it.
func NAPOTEntry(base, length uint64, access Access) Entry {
	if length < 4 || length&(length-1) != 0 {
		panic(fmt.Sprintf("NAPOT length 0x%x is not a power of two >= 4",
			length))
	}

	if base%length != 0 {
		panic(fmt.Sprintf("NAPOT base 0x%x is not aligned to length 0x%x",
			base, length))
	}

	if length < 8 {
		return Entry{Mode: ModeNA4, Access: access, Addr: base}
	}

	return Entry{Mode: ModeNAPOT, Access: access, Addr: base + length/2 - 1}
}

// TOREntry builds a top-of-range entry. The bottom of the range is the
// address of the entry right before it.
func TOREntry(top uint64, access Access) Entry {
	return Entry{Mode: ModeTOR, Access: access, Addr: top}
}

// OffEntry builds a disabled entry that only carries an address.
func OffEntry(addr uint64) Entry {
	return Entry{Mode: ModeOff, Addr: addr}
}

// NAPOTRegion decodes the base and length of a NA4 or NAPOT entry. A length
// of 0 stands for the whole 64-bit address space.
func (e Entry) NAPOTRegion() (base, length uint64) {
	switch e.Mode {
	case ModeNA4:
		return e.Addr &^ 3, 4
	case ModeNAPOT:
		a := e.Addr >> 2
		ones := bits.TrailingZeros64(^a)

		if ones+3 >= 64 {
			return 0, 0
		}

		mask := uint64(1)<<(ones+1) - 1

		return (a &^ mask) << 2, uint64(1) << (ones + 3)
	default:
		panic(fmt.Sprintf("entry mode %s is not naturally aligned", e.Mode))
	}
}

// EncodeAddr converts a byte address to the register transport form: shifted
// right by 2 and split into the low and the high 32-bit halves.
func EncodeAddr(addr uint64) (low, high uint32) {
	a := addr >> 2
	return uint32(a), uint32(a >> 32)
}

// DecodeAddr reverses EncodeAddr. Bits 0 and 1 of the result are zero.
func DecodeAddr(low, high uint32) uint64 {
	return (uint64(high)<<32 | uint64(low)) << 2
}

// addrRange is an inclusive byte range.
type addrRange struct {
	first, last uint64
	empty       bool
}

func (r addrRange) overlaps(o addrRange) bool {
	if r.empty || o.empty {
		return false
	}

	return r.first <= o.last && o.first <= r.last
}

func (r addrRange) contains(o addrRange) bool {
	if r.empty || o.empty {
		return false
	}

	return r.first <= o.first && o.last <= r.last
}

// coverage returns the byte range that entry e covers, given the address of
// the previous entry.
func (e Entry) coverage(prevAddr uint64) addrRange {
	switch e.Mode {
	case ModeTOR:
		lo, hi := prevAddr&^3, e.Addr&^3
		if hi <= lo {
			return addrRange{empty: true}
		}

		return addrRange{first: lo, last: hi - 1}
	case ModeNA4, ModeNAPOT:
		base, length := e.NAPOTRegion()
		if length == 0 {
			return addrRange{first: 0, last: math.MaxUint64}
		}

		return addrRange{first: base, last: base + length - 1}
	default:
		return addrRange{empty: true}
	}
}
