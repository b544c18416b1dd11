package regmap

import (
	"github.com/sarchlab/iopmpsim/iopmp"
)

// Bit positions of the register fields.
const (
	versionSpecVerShift = 24
	versionVendorMask   = 0xffffff

	hwcfg0ModelMask      = 0xf
	hwcfg0TOREnBit       = 4
	hwcfg0SPSEnBit       = 5
	hwcfg0UserCfgEnBit   = 6
	hwcfg0PriEntProgBit  = 7
	hwcfg0SIDTranslEnBit = 8
	hwcfg0SIDTranslPgBit = 9
	hwcfg0ChkXBit        = 10
	hwcfg0NoXBit         = 11
	hwcfg0NoWBit         = 12
	hwcfg0StallEnBit     = 13
	hwcfg0MDNumShift     = 24
	hwcfg0MDNumMask      = 0x7f
	hwcfg0EnableBit      = 31

	errReactLockBit = 0
	errReactIEBit   = 1
	errReactIREBit  = 4
	errReactIWEBit  = 8

	lockBit            = 0
	lockCountShift     = 1
	mdcfgLockCountMask = 0x7f
	entryLockCountMask = 0xffff

	reqInfoIPBit      = 0
	reqInfoTTypeShift = 1
	reqInfoTTypeMask  = 0x3
	reqInfoETypeShift = 4
	reqInfoETypeMask  = 0x7

	reqIDEIDShift = 16

	entryCfgModeShift = 3
	entryCfgModeMask  = 0x3

	mdcfgTopMask = 0xffff
)

func bit(b bool, pos uint) uint32 {
	if b {
		return 1 << pos
	}

	return 0
}

func isSet(v uint32, pos uint) bool {
	return v&(1<<pos) != 0
}

// EncodeVersion packs the VERSION register.
func EncodeVersion(vendor uint32, specVersion uint8) uint32 {
	return vendor&versionVendorMask | uint32(specVersion)<<versionSpecVerShift
}

// DecodeVersion unpacks the VERSION register.
func DecodeVersion(v uint32) (vendor uint32, specVersion uint8) {
	return v & versionVendorMask, uint8(v >> versionSpecVerShift)
}

// HWCFG is the content of the three hardware configuration registers.
type HWCFG struct {
	Model         int
	TOREnable     bool
	SPSEnable     bool
	UserCfgEnable bool
	PriEntProg    bool
	SIDTranslEn   bool
	SIDTranslProg bool
	CheckExec     bool
	NoExec        bool
	NoWrite       bool
	StallEnable   bool
	NumDomains    int
	Enable        bool

	NumSources int
	NumEntries int

	PrioEntries int
	SIDTransl   int
}

// HWCFGFor describes a device with the given parameters.
func HWCFGFor(p Params, enabled bool) HWCFG {
	return HWCFG{
		Model:         p.Model,
		TOREnable:     p.TOREnable,
		SPSEnable:     p.SPSEnable,
		UserCfgEnable: p.UserCfgEnable,
		CheckExec:     true,
		NumDomains:    p.NumDomains,
		Enable:        enabled,
		NumSources:    p.NumSources,
		NumEntries:    p.NumEntries,
		PrioEntries:   p.NumEntries,
	}
}

// Encode packs HWCFG0, HWCFG1 and HWCFG2.
func (h HWCFG) Encode() (hwcfg0, hwcfg1, hwcfg2 uint32) {
	hwcfg0 = uint32(h.Model)&hwcfg0ModelMask |
		bit(h.TOREnable, hwcfg0TOREnBit) |
		bit(h.SPSEnable, hwcfg0SPSEnBit) |
		bit(h.UserCfgEnable, hwcfg0UserCfgEnBit) |
		bit(h.PriEntProg, hwcfg0PriEntProgBit) |
		bit(h.SIDTranslEn, hwcfg0SIDTranslEnBit) |
		bit(h.SIDTranslProg, hwcfg0SIDTranslPgBit) |
		bit(h.CheckExec, hwcfg0ChkXBit) |
		bit(h.NoExec, hwcfg0NoXBit) |
		bit(h.NoWrite, hwcfg0NoWBit) |
		bit(h.StallEnable, hwcfg0StallEnBit) |
		uint32(h.NumDomains)&hwcfg0MDNumMask<<hwcfg0MDNumShift |
		bit(h.Enable, hwcfg0EnableBit)

	hwcfg1 = uint32(h.NumSources)&0xffff | uint32(h.NumEntries)&0xffff<<16
	hwcfg2 = uint32(h.PrioEntries)&0xffff | uint32(h.SIDTransl)&0xffff<<16

	return hwcfg0, hwcfg1, hwcfg2
}

// DecodeHWCFG unpacks HWCFG0, HWCFG1 and HWCFG2.
func DecodeHWCFG(hwcfg0, hwcfg1, hwcfg2 uint32) HWCFG {
	return HWCFG{
		Model:         int(hwcfg0 & hwcfg0ModelMask),
		TOREnable:     isSet(hwcfg0, hwcfg0TOREnBit),
		SPSEnable:     isSet(hwcfg0, hwcfg0SPSEnBit),
		UserCfgEnable: isSet(hwcfg0, hwcfg0UserCfgEnBit),
		PriEntProg:    isSet(hwcfg0, hwcfg0PriEntProgBit),
		SIDTranslEn:   isSet(hwcfg0, hwcfg0SIDTranslEnBit),
		SIDTranslProg: isSet(hwcfg0, hwcfg0SIDTranslPgBit),
		CheckExec:     isSet(hwcfg0, hwcfg0ChkXBit),
		NoExec:        isSet(hwcfg0, hwcfg0NoXBit),
		NoWrite:       isSet(hwcfg0, hwcfg0NoWBit),
		StallEnable:   isSet(hwcfg0, hwcfg0StallEnBit),
		NumDomains:    int(hwcfg0 >> hwcfg0MDNumShift & hwcfg0MDNumMask),
		Enable:        isSet(hwcfg0, hwcfg0EnableBit),
		NumSources:    int(hwcfg1 & 0xffff),
		NumEntries:    int(hwcfg1 >> 16),
		PrioEntries:   int(hwcfg2 & 0xffff),
		SIDTransl:     int(hwcfg2 >> 16),
	}
}

// HWCFG0EnableRequested tells if a write to HWCFG0 sets the enable bit.
func HWCFG0EnableRequested(v uint32) bool {
	return isSet(v, hwcfg0EnableBit)
}

// EncodeEntryCfg packs ENTRY_CFG.
func EncodeEntryCfg(mode iopmp.Mode, access iopmp.Access) uint32 {
	return uint32(access&iopmp.AccessAll) |
		uint32(mode)&entryCfgModeMask<<entryCfgModeShift
}

// DecodeEntryCfg unpacks ENTRY_CFG.
func DecodeEntryCfg(v uint32) (iopmp.Mode, iopmp.Access) {
	mode := iopmp.Mode(v >> entryCfgModeShift & entryCfgModeMask)
	return mode, iopmp.Access(v) & iopmp.AccessAll
}

// EncodeMDCFG packs MDCFG.
func EncodeMDCFG(boundary int) uint32 {
	return uint32(boundary) & mdcfgTopMask
}

// DecodeMDCFG unpacks MDCFG.
func DecodeMDCFG(v uint32) int {
	return int(v & mdcfgTopMask)
}

// EncodeSRCMD packs the domain bitmap of a source into SRCMD_EN and
// SRCMD_ENH. Domain m sits at bit m+1 of the 63-bit field after the lock bit.
func EncodeSRCMD(set iopmp.DomainSet, lock bool) (en, enh uint32) {
	field := uint64(set)<<1 | uint64(bit(lock, lockBit))
	return uint32(field), uint32(field >> 32)
}

// DecodeSRCMD unpacks SRCMD_EN and SRCMD_ENH.
func DecodeSRCMD(en, enh uint32) (set iopmp.DomainSet, lock bool) {
	field := uint64(enh)<<32 | uint64(en)
	return iopmp.DomainSet(field >> 1), isSet(en, lockBit)
}

// EncodeMDCFGLock packs MDCFGLCK.
func EncodeMDCFGLock(count int, lock bool) uint32 {
	return uint32(count)&mdcfgLockCountMask<<lockCountShift |
		bit(lock, lockBit)
}

// DecodeMDCFGLock unpacks MDCFGLCK.
func DecodeMDCFGLock(v uint32) (count int, lock bool) {
	return int(v >> lockCountShift & mdcfgLockCountMask), isSet(v, lockBit)
}

// EncodeEntryLock packs ENTRYLCK.
func EncodeEntryLock(count int, lock bool) uint32 {
	return uint32(count)&entryLockCountMask<<lockCountShift |
		bit(lock, lockBit)
}

// DecodeEntryLock unpacks ENTRYLCK.
func DecodeEntryLock(v uint32) (count int, lock bool) {
	return int(v >> lockCountShift & entryLockCountMask), isSet(v, lockBit)
}

// EncodeErrReact packs ERRREACT.
func EncodeErrReact(f iopmp.ErrReactFields, lock bool) uint32 {
	return bit(lock, errReactLockBit) |
		bit(f.InterruptEnable, errReactIEBit) |
		bit(f.ReadInterrupt, errReactIREBit) |
		bit(f.WriteInterrupt, errReactIWEBit)
}

// DecodeErrReact unpacks ERRREACT.
func DecodeErrReact(v uint32) (f iopmp.ErrReactFields, lock bool) {
	f = iopmp.ErrReactFields{
		InterruptEnable: isSet(v, errReactIEBit),
		ReadInterrupt:   isSet(v, errReactIREBit),
		WriteInterrupt:  isSet(v, errReactIWEBit),
	}

	return f, isSet(v, errReactLockBit)
}

// Transaction type codes of ERR_REQINFO.TTYPE.
const (
	TTypeNone  = 0
	TTypeRead  = 1
	TTypeWrite = 2
	TTypeExec  = 3
)

// Error type codes of ERR_REQINFO.ETYPE.
const (
	ETypeNone          = 0
	ETypeIllegalRead   = 1
	ETypeIllegalWrite  = 2
	ETypeIllegalExec   = 3
	ETypePartialMatch  = 4
	ETypeNoMatch       = 5
	ETypeUnknownSource = 6
)

// NoEntryEID is the EID reported when no entry was involved.
const NoEntryEID = 0xffff

// TTypeOf returns the TTYPE code of an access kind.
func TTypeOf(a iopmp.Access) uint32 {
	switch a {
	case iopmp.AccessRead:
		return TTypeRead
	case iopmp.AccessWrite:
		return TTypeWrite
	case iopmp.AccessExec:
		return TTypeExec
	default:
		return TTypeNone
	}
}

// ETypeOf returns the ETYPE code of a denial.
func ETypeOf(kind iopmp.ErrorKind, a iopmp.Access) uint32 {
	switch kind {
	case iopmp.PermissionDenied:
		return TTypeOf(a)
	case iopmp.PartialMatch:
		return ETypePartialMatch
	case iopmp.NoMatch:
		return ETypeNoMatch
	case iopmp.NoDomain:
		return ETypeUnknownSource
	default:
		return ETypeNone
	}
}

// ErrorRecord is the content of the ERR_REQ* registers.
type ErrorRecord struct {
	Pending bool
	TType   uint32
	EType   uint32
	SID     uint32
	EID     uint32
	Address uint64
}

// ErrorRecordOf describes a violation as the hardware reports it. The
// address loses its two lowest bits.
func ErrorRecordOf(v iopmp.Violation) ErrorRecord {
	if !v.Valid {
		return ErrorRecord{}
	}

	eid := uint32(NoEntryEID)
	if v.EntryID != iopmp.NoEntry {
		eid = uint32(v.EntryID)
	}

	return ErrorRecord{
		Pending: true,
		TType:   TTypeOf(v.Access),
		EType:   ETypeOf(v.Kind, v.Access),
		SID:     uint32(v.SourceID),
		EID:     eid,
		Address: v.Address &^ 3,
	}
}

// Encode packs ERR_REQINFO, ERR_REQID, ERR_REQADDR and ERR_REQADDRH.
func (r ErrorRecord) Encode() (info, reqID, addr, addrH uint32) {
	info = bit(r.Pending, reqInfoIPBit) |
		r.TType&reqInfoTTypeMask<<reqInfoTTypeShift |
		r.EType&reqInfoETypeMask<<reqInfoETypeShift
	reqID = r.SID&0xffff | r.EID&0xffff<<reqIDEIDShift
	addr, addrH = iopmp.EncodeAddr(r.Address)

	return info, reqID, addr, addrH
}

// DecodeErrorRecord unpacks the ERR_REQ* registers.
func DecodeErrorRecord(info, reqID, addr, addrH uint32) ErrorRecord {
	return ErrorRecord{
		Pending: isSet(info, reqInfoIPBit),
		TType:   info >> reqInfoTTypeShift & reqInfoTTypeMask,
		EType:   info >> reqInfoETypeShift & reqInfoETypeMask,
		SID:     reqID & 0xffff,
		EID:     reqID >> reqIDEIDShift,
		Address: iopmp.DecodeAddr(addr, addrH),
	}
}

// ClearsPending tells if a write to ERR_REQINFO acknowledges the record.
func ClearsPending(v uint32) bool {
	return isSet(v, reqInfoIPBit)
}

// KindOf returns the error kind that an ETYPE code reports.
func KindOf(etype uint32) iopmp.ErrorKind {
	switch etype {
	case ETypeIllegalRead, ETypeIllegalWrite, ETypeIllegalExec:
		return iopmp.PermissionDenied
	case ETypePartialMatch:
		return iopmp.PartialMatch
	case ETypeNoMatch:
		return iopmp.NoMatch
	case ETypeUnknownSource:
		return iopmp.NoDomain
	default:
		return iopmp.NoError
	}
}
