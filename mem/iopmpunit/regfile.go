package iopmpunit

import (
	"log"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
)

// regFile holds the raw words of the writable registers. Every decision the
// unit makes is read from these words.
type regFile struct {
	params regmap.Params

	enabled  bool
	errReact uint32
	mdcfgLck uint32
	entryLck uint32

	errInfo  uint32
	errReqID uint32
	errAddr  uint32
	errAddrH uint32

	mdcfg      []uint32
	srcmdEn    []uint32
	srcmdEnH   []uint32
	entryAddr  []uint32
	entryAddrH []uint32
	entryCfg   []uint32
}

func newRegFile(p regmap.Params) *regFile {
	return &regFile{
		params:     p,
		mdcfg:      make([]uint32, p.NumDomains),
		srcmdEn:    make([]uint32, p.NumSources),
		srcmdEnH:   make([]uint32, p.NumSources),
		entryAddr:  make([]uint32, p.NumEntries),
		entryAddrH: make([]uint32, p.NumEntries),
		entryCfg:   make([]uint32, p.NumEntries),
	}
}

func (r *regFile) reset() {
	*r = *newRegFile(r.params)
}

//nolint:gocyclo
func (r *regFile) read(reg regmap.Register) uint32 {
	switch reg.Kind {
	case regmap.KindVersion:
		return regmap.EncodeVersion(r.params.Vendor, r.params.SpecVersion)
	case regmap.KindImp:
		return r.params.ImpID
	case regmap.KindHWCFG0, regmap.KindHWCFG1, regmap.KindHWCFG2:
		return r.hwcfg(reg.Kind)
	case regmap.KindEntryOffset:
		return r.params.EntryOffset
	case regmap.KindErrReact:
		return r.errReact
	case regmap.KindMDCFGLock:
		return r.mdcfgLck
	case regmap.KindEntryLock:
		return r.entryLck
	case regmap.KindErrReqInfo:
		return r.errInfo
	case regmap.KindErrReqID:
		return r.errReqID
	case regmap.KindErrReqAddr:
		return r.errAddr
	case regmap.KindErrReqAddrH:
		return r.errAddrH
	case regmap.KindMDCFG:
		return r.mdcfg[reg.Index]
	case regmap.KindSRCMDEn:
		return r.srcmdEn[reg.Index]
	case regmap.KindSRCMDEnH:
		return r.srcmdEnH[reg.Index]
	case regmap.KindEntryAddr:
		return r.entryAddr[reg.Index]
	case regmap.KindEntryAddrH:
		return r.entryAddrH[reg.Index]
	case regmap.KindEntryCfg:
		return r.entryCfg[reg.Index]
	default:
		log.Panicf("register %s cannot be read", reg.Name)
	}

	return 0
}

func (r *regFile) hwcfg(k regmap.Kind) uint32 {
	hwcfg0, hwcfg1, hwcfg2 := regmap.HWCFGFor(r.params, r.enabled).Encode()

	switch k {
	case regmap.KindHWCFG0:
		return hwcfg0
	case regmap.KindHWCFG1:
		return hwcfg1
	default:
		return hwcfg2
	}
}

// write applies a full-word write. Writes that a lock blocks and writes to
// read-only registers are dropped.
//
//nolint:gocyclo
func (r *regFile) write(reg regmap.Register, v uint32) {
	switch reg.Kind {
	case regmap.KindHWCFG0:
		r.enabled = r.enabled || regmap.HWCFG0EnableRequested(v)
	case regmap.KindErrReact:
		if _, locked := regmap.DecodeErrReact(r.errReact); !locked {
			r.errReact = regmap.EncodeErrReact(regmap.DecodeErrReact(v))
		}
	case regmap.KindMDCFGLock:
		r.mdcfgLck = growLock(r.mdcfgLck, v,
			regmap.DecodeMDCFGLock, regmap.EncodeMDCFGLock)
	case regmap.KindEntryLock:
		r.entryLck = growLock(r.entryLck, v,
			regmap.DecodeEntryLock, regmap.EncodeEntryLock)
	case regmap.KindErrReqInfo:
		if regmap.ClearsPending(v) {
			r.clearError()
		}
	case regmap.KindMDCFG:
		if n, _ := regmap.DecodeMDCFGLock(r.mdcfgLck); reg.Index >= n {
			top := min(regmap.DecodeMDCFG(v), r.params.NumEntries)
			r.mdcfg[reg.Index] = regmap.EncodeMDCFG(top)
		}
	case regmap.KindSRCMDEn, regmap.KindSRCMDEnH:
		r.writeSRCMD(reg, v)
	case regmap.KindEntryAddr, regmap.KindEntryAddrH, regmap.KindEntryCfg:
		r.writeEntry(reg, v)
	}
}

// growLock applies a write to MDCFGLCK or ENTRYLCK. A set lock bit freezes
// the register. A smaller count is ignored, but its lock bit still applies.
func growLock(
	cur, v uint32,
	decode func(uint32) (int, bool),
	encode func(int, bool) uint32,
) uint32 {
	count, locked := decode(cur)
	if locked {
		return cur
	}

	n, lock := decode(v)

	return encode(max(count, n), lock)
}

func (r *regFile) writeSRCMD(reg regmap.Register, v uint32) {
	sid := reg.Index
	if r.srcmdEn[sid]&1 != 0 {
		return
	}

	en, enh := r.srcmdEn[sid], r.srcmdEnH[sid]
	if reg.Kind == regmap.KindSRCMDEn {
		en = v
	} else {
		enh = v
	}

	field := (uint64(enh)<<32 | uint64(en)) & r.srcmdFieldMask()
	r.srcmdEn[sid] = uint32(field)
	r.srcmdEnH[sid] = uint32(field >> 32)
}

// srcmdFieldMask keeps the lock bit and the bits of existing domains.
func (r *regFile) srcmdFieldMask() uint64 {
	return (uint64(1)<<r.params.NumDomains-1)<<1 | 1
}

func (r *regFile) writeEntry(reg regmap.Register, v uint32) {
	if n, _ := regmap.DecodeEntryLock(r.entryLck); reg.Index < n {
		return
	}

	switch reg.Kind {
	case regmap.KindEntryAddr:
		r.entryAddr[reg.Index] = v
	case regmap.KindEntryAddrH:
		r.entryAddrH[reg.Index] = v
	default:
		r.entryCfg[reg.Index] = regmap.EncodeEntryCfg(regmap.DecodeEntryCfg(v))
	}
}

func (r *regFile) clearError() {
	r.errInfo, r.errReqID, r.errAddr, r.errAddrH = 0, 0, 0, 0
}

func (r *regFile) errorRecord() regmap.ErrorRecord {
	return regmap.DecodeErrorRecord(r.errInfo, r.errReqID, r.errAddr,
		r.errAddrH)
}

// interrupt derives the interrupt wire from ERR_REQINFO and ERRREACT.
func (r *regFile) interrupt() bool {
	rec := r.errorRecord()
	if !rec.Pending {
		return false
	}

	f, _ := regmap.DecodeErrReact(r.errReact)
	if !f.InterruptEnable {
		return false
	}

	if rec.TType == regmap.TTypeWrite {
		return f.WriteInterrupt
	}

	return f.ReadInterrupt
}
