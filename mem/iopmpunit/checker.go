package iopmpunit

import (
	"log"
	"math"
	"math/bits"
	"reflect"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
	"github.com/sarchlab/iopmpsim/mem"
)

// Fields of ENTRY_CFG as the matcher reads them.
const (
	cfgModeShift = 3
	cfgModeMask  = 0x3

	modeOff   = 0
	modeTOR   = 1
	modeNA4   = 2
	modeNAPOT = 3
)

// access is a bus request reduced to what the matcher looks at. last is
// the final byte touched, saturated at the top of the address space.
type access struct {
	sid   uint32
	addr  uint64
	last  uint64
	ttype uint32
}

// accessOf decodes a request from the top port. A zero-byte request is
// checked as a single byte.
func accessOf(req mem.AccessReq) access {
	a := access{
		sid:  uint32(req.GetSrcID()),
		addr: req.GetAddress(),
	}

	size := max(req.GetByteSize(), 1)
	a.last = math.MaxUint64
	if size-1 <= math.MaxUint64-a.addr {
		a.last = a.addr + size - 1
	}

	switch req := req.(type) {
	case *mem.ReadReq:
		a.ttype = regmap.TTypeRead
		if req.Exec {
			a.ttype = regmap.TTypeExec
		}
	case *mem.WriteReq:
		a.ttype = regmap.TTypeWrite
	default:
		log.Panicf("cannot check request of type %s", reflect.TypeOf(req))
	}

	return a
}

// verdict is the result of matching one access. etype and eid are the
// values ERR_REQINFO and ERR_REQID would report.
type verdict struct {
	allowed bool
	etype   uint32
	eid     uint32
}

func denied(etype uint32, eid uint32) verdict {
	return verdict{etype: etype, eid: eid}
}

// check matches an access against the entries of the domains bound to its
// source. Entries are visited in index order and the first one the access
// touches decides.
func (r *regFile) check(a access) verdict {
	if !r.enabled {
		return verdict{allowed: true}
	}

	if a.sid >= uint32(r.params.NumSources) {
		return denied(regmap.ETypeUnknownSource, regmap.NoEntryEID)
	}

	bound := (uint64(r.srcmdEnH[a.sid])<<32 | uint64(r.srcmdEn[a.sid])) >> 1
	if bound == 0 {
		return denied(regmap.ETypeUnknownSource, regmap.NoEntryEID)
	}

	lo := 0
	for d, word := range r.mdcfg {
		hi := max(lo, regmap.DecodeMDCFG(word))

		if bound&(1<<d) != 0 {
			for i := lo; i < hi; i++ {
				if v, hit := r.matchEntry(i, a); hit {
					return v
				}
			}
		}

		lo = hi
	}

	return denied(regmap.ETypeNoMatch, regmap.NoEntryEID)
}

func (r *regFile) matchEntry(i int, a access) (verdict, bool) {
	cfg := r.entryCfg[i]

	var touched, inside bool

	switch cfg >> cfgModeShift & cfgModeMask {
	case modeTOR:
		touched, inside = r.matchTOR(i, a)
	case modeNA4:
		base := r.entryWord(i) << 2
		touched = a.addr <= base+3 && a.last >= base
		inside = a.addr >= base && a.last <= base+3
	case modeNAPOT:
		touched, inside = matchNAPOT(r.entryWord(i), a)
	default:
		return verdict{}, false
	}

	switch {
	case !touched:
		return verdict{}, false
	case !inside:
		return denied(regmap.ETypePartialMatch, uint32(i)), true
	case cfg&(1<<(a.ttype-1)) == 0:
		return denied(a.ttype, uint32(i)), true
	default:
		return verdict{allowed: true, eid: uint32(i)}, true
	}
}

// entryWord joins ENTRY_ADDRH and ENTRY_ADDR. The value is the byte address
// shifted right by 2.
func (r *regFile) entryWord(i int) uint64 {
	return uint64(r.entryAddrH[i])<<32 | uint64(r.entryAddr[i])
}

// matchTOR compares against [ENTRY_ADDR(i-1), ENTRY_ADDR(i)). The region is
// empty when the top is not above the bottom.
func (r *regFile) matchTOR(i int, a access) (touched, inside bool) {
	var bottom uint64
	if i > 0 {
		bottom = r.entryWord(i-1) << 2
	}

	top := r.entryWord(i) << 2
	if top <= bottom {
		return false, false
	}

	touched = a.addr < top && a.last >= bottom
	inside = a.addr >= bottom && a.last < top

	return touched, inside
}

// matchNAPOT masks the access with the size that the trailing ones of the
// address word encode. n trailing ones select a region of 2^(n+3) bytes.
func matchNAPOT(word uint64, a access) (touched, inside bool) {
	sizeLog := bits.TrailingZeros64(^word) + 3
	if sizeLog >= 64 {
		return true, true
	}

	mask := ^uint64(0) << sizeLog
	base := word << 2 & mask

	touched = a.addr <= base|^mask && a.last >= base
	inside = a.addr&mask == base && a.last&mask == base

	return touched, inside
}

// capture fills the ERR_REQ* registers with a denied access unless an
// earlier one is still pending.
func (r *regFile) capture(a access, v verdict) {
	if v.allowed || r.errorRecord().Pending {
		return
	}

	rec := regmap.ErrorRecord{
		Pending: true,
		TType:   a.ttype,
		EType:   v.etype,
		SID:     a.sid,
		EID:     v.eid,
		Address: a.addr &^ 3,
	}
	r.errInfo, r.errReqID, r.errAddr, r.errAddrH = rec.Encode()
}
