package iopmp

// ErrorKind classifies a denied transaction.
type ErrorKind uint8

// Decision outcomes. NoError marks an allowed transaction.
const (
	NoError ErrorKind = iota
	NoDomain
	NoMatch
	PermissionDenied
	PartialMatch
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "NoError"
	case NoDomain:
		return "NoDomain"
	case NoMatch:
		return "NoMatch"
	case PermissionDenied:
		return "PermissionDenied"
	case PartialMatch:
		return "PartialMatch"
	default:
		return "Unknown"
	}
}

// NoEntry is the entry ID of a violation that no entry was involved in.
const NoEntry = -1

// Violation is the captured record of the first denied transaction since
// the last acknowledgment.
type Violation struct {
	Valid    bool
	Access   Access
	Kind     ErrorKind
	SourceID int
	EntryID  int

	// DomainID is the domain owning the deciding entry, or -1.
	DomainID int
	Address  uint64
}

// recorder holds a single violation slot. The first fault sticks until it
// is acknowledged.
type recorder struct {
	record Violation
}

func (r *recorder) capture(tx Transaction, d Decision) bool {
	if d.Allowed || r.record.Valid {
		return false
	}

	r.record = Violation{
		Valid:    true,
		Access:   tx.Access,
		Kind:     d.Kind,
		SourceID: tx.SourceID,
		EntryID:  d.EntryID,
		DomainID: d.DomainID,
		Address:  tx.Address,
	}

	return true
}

func (r *recorder) acknowledge() {
	r.record = Violation{EntryID: NoEntry, DomainID: -1}
}
