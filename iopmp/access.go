package iopmp

import "strings"

// Mode is the address-matching mode of an entry, as held in the A field of
// ENTRY_CFG.
type Mode uint8

// Address-matching modes.
const (
	ModeOff   Mode = 0
	ModeTOR   Mode = 1
	ModeNA4   Mode = 2
	ModeNAPOT Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "OFF"
	case ModeTOR:
		return "TOR"
	case ModeNA4:
		return "NA4"
	case ModeNAPOT:
		return "NAPOT"
	default:
		return "INVALID"
	}
}

// Access is a set of access permissions. A transaction requests exactly one
// of them.
type Access uint8

// Access bits.
const (
	AccessNone  Access = 0
	AccessRead  Access = 1
	AccessWrite Access = 2
	AccessExec  Access = 4

	AccessAll = AccessRead | AccessWrite | AccessExec
)

// Contains tells if every bit in req is granted.
func (a Access) Contains(req Access) bool {
	return a&req == req
}

// IsKind tells if a names exactly one access kind.
func (a Access) IsKind() bool {
	return a == AccessRead || a == AccessWrite || a == AccessExec
}

// String renders the set as "rwx" with '-' for the missing bits.
func (a Access) String() string {
	var b strings.Builder

	for _, bit := range []struct {
		a Access
		c byte
	}{{AccessRead, 'r'}, {AccessWrite, 'w'}, {AccessExec, 'x'}} {
		if a&bit.a != 0 {
			b.WriteByte(bit.c)
		} else {
			b.WriteByte('-')
		}
	}

	return b.String()
}
