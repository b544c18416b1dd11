// Package regmap describes the memory-mapped register file of an IOPMP
// device. It names every register, locates it by offset, and packs and
// unpacks the bit fields that travel over the configuration bus.
package regmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

// Kind identifies what a register holds.
type Kind int

// Register kinds.
const (
	KindVersion Kind = iota
	KindImp
	KindHWCFG0
	KindHWCFG1
	KindHWCFG2
	KindEntryOffset
	KindErrReact
	KindMDCFGLock
	KindEntryLock
	KindErrReqInfo
	KindErrReqID
	KindErrReqAddr
	KindErrReqAddrH
	KindMDCFG
	KindSRCMDEn
	KindSRCMDEnH
	KindEntryAddr
	KindEntryAddrH
	KindEntryCfg
)

var fixedNames = map[string]Kind{
	"VERSION":      KindVersion,
	"IMP":          KindImp,
	"HWCFG0":       KindHWCFG0,
	"HWCFG1":       KindHWCFG1,
	"HWCFG2":       KindHWCFG2,
	"ENTRY_OFFSET": KindEntryOffset,
	"ERRREACT":     KindErrReact,
	"MDCFGLCK":     KindMDCFGLock,
	"ENTRYLCK":     KindEntryLock,
	"ERR_REQINFO":  KindErrReqInfo,
	"ERR_REQID":    KindErrReqID,
	"ERR_REQADDR":  KindErrReqAddr,
	"ERR_REQADDRH": KindErrReqAddrH,
}

// Fixed offsets of the global registers.
const (
	OffsetVersion     uint32 = 0x0
	OffsetImp         uint32 = 0x4
	OffsetHWCFG0      uint32 = 0x8
	OffsetHWCFG1      uint32 = 0xc
	OffsetHWCFG2      uint32 = 0x10
	OffsetEntryOffset uint32 = 0x14
	OffsetErrReact    uint32 = 0x18
	OffsetMDCFGLock   uint32 = 0x48
	OffsetEntryLock   uint32 = 0x4c
	OffsetErrReqInfo  uint32 = 0x60
	OffsetErrReqID    uint32 = 0x64
	OffsetErrReqAddr  uint32 = 0x68
	OffsetErrReqAddrH uint32 = 0x6c

	mdcfgBase   uint32 = 0x800
	mdcfgStride uint32 = 0x4
	srcmdBase   uint32 = 0x1000
	srcmdStride uint32 = 0x20
	entryStride uint32 = 0x10
)

// ErrUnknownRegister is returned when a name or an offset does not map to a
// register.
var ErrUnknownRegister = errors.New("unknown register")

// Register is a single 32-bit register.
type Register struct {
	Name   string
	Kind   Kind
	Index  int
	Offset uint32
}

// Indexed tells if the register belongs to an array of registers.
func (r Register) Indexed() bool {
	return r.Kind >= KindMDCFG
}

// A Map is a register file layout.
type Map struct {
	byName   map[string]Register
	byOffset map[uint32]Register
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{
		byName:   make(map[string]Register),
		byOffset: make(map[uint32]Register),
	}
}

var indexedName = regexp.MustCompile(
	`^(MDCFG_|SRCMD_ENH|SRCMD_EN|ENTRY_ADDRH|ENTRY_ADDR|ENTRY_CFG)(\d+)$`)

var indexedKinds = map[string]Kind{
	"MDCFG_":      KindMDCFG,
	"SRCMD_ENH":   KindSRCMDEnH,
	"SRCMD_EN":    KindSRCMDEn,
	"ENTRY_ADDRH": KindEntryAddrH,
	"ENTRY_ADDR":  KindEntryAddr,
	"ENTRY_CFG":   KindEntryCfg,
}

// Add places a register by name. The name decides the kind and, for array
// registers, the index.
func (m *Map) Add(name string, offset uint32) error {
	r := Register{Name: name, Offset: offset}

	if k, ok := fixedNames[name]; ok {
		r.Kind = k
	} else if match := indexedName.FindStringSubmatch(name); match != nil {
		idx, err := strconv.Atoi(match[2])
		if err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}

		r.Kind = indexedKinds[match[1]]
		r.Index = idx
	} else {
		return fmt.Errorf("%w: %s", ErrUnknownRegister, name)
	}

	if prev, found := m.byName[name]; found {
		return fmt.Errorf("register %s already placed at 0x%x",
			name, prev.Offset)
	}

	if prev, found := m.byOffset[offset]; found {
		return fmt.Errorf("offset 0x%x of %s already taken by %s",
			offset, name, prev.Name)
	}

	m.byName[name] = r
	m.byOffset[offset] = r

	return nil
}

func (m *Map) mustAdd(name string, offset uint32) {
	if err := m.Add(name, offset); err != nil {
		panic(err)
	}
}

// Offset returns the offset of the named register.
func (m *Map) Offset(name string) (uint32, error) {
	r, found := m.byName[name]
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRegister, name)
	}

	return r.Offset, nil
}

// MustOffset is Offset that panics on unknown names.
func (m *Map) MustOffset(name string) uint32 {
	offset, err := m.Offset(name)
	if err != nil {
		panic(err)
	}

	return offset
}

// Lookup finds the register at an offset.
func (m *Map) Lookup(offset uint32) (Register, bool) {
	r, found := m.byOffset[offset]
	return r, found
}

// Len returns the number of registers.
func (m *Map) Len() int {
	return len(m.byName)
}

// Registers returns all the registers ordered by offset.
func (m *Map) Registers() []Register {
	regs := make([]Register, 0, len(m.byOffset))
	for _, r := range m.byOffset {
		regs = append(regs, r)
	}

	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Offset < regs[j].Offset
	})

	return regs
}

// Count returns the number of registers of a kind.
func (m *Map) Count(k Kind) int {
	n := 0

	for _, r := range m.byName {
		if r.Kind == k {
			n++
		}
	}

	return n
}

// Validate checks that the map has every register the parameters call for.
func (m *Map) Validate(p Params) error {
	var names []string

	for name := range fixedNames {
		names = append(names, name)
	}

	for d := 0; d < p.NumDomains; d++ {
		names = append(names, MDCFGName(d))
	}

	for s := 0; s < p.NumSources; s++ {
		names = append(names, SRCMDEnName(s), SRCMDEnHName(s))
	}

	for e := 0; e < p.NumEntries; e++ {
		names = append(names,
			EntryAddrName(e), EntryAddrHName(e), EntryCfgName(e))
	}

	sort.Strings(names)

	var missing []string
	for _, n := range names {
		if _, found := m.byName[n]; !found {
			missing = append(missing, n)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrUnknownRegister, missing)
	}

	return nil
}

// Generate lays out the registers for the given parameters.
func Generate(p Params) *Map {
	p.mustBeValid()

	m := NewMap()

	m.mustAdd("VERSION", OffsetVersion)
	m.mustAdd("IMP", OffsetImp)
	m.mustAdd("HWCFG0", OffsetHWCFG0)
	m.mustAdd("HWCFG1", OffsetHWCFG1)
	m.mustAdd("HWCFG2", OffsetHWCFG2)
	m.mustAdd("ENTRY_OFFSET", OffsetEntryOffset)
	m.mustAdd("ERRREACT", OffsetErrReact)
	m.mustAdd("MDCFGLCK", OffsetMDCFGLock)
	m.mustAdd("ENTRYLCK", OffsetEntryLock)
	m.mustAdd("ERR_REQINFO", OffsetErrReqInfo)
	m.mustAdd("ERR_REQID", OffsetErrReqID)
	m.mustAdd("ERR_REQADDR", OffsetErrReqAddr)
	m.mustAdd("ERR_REQADDRH", OffsetErrReqAddrH)

	for d := 0; d < p.NumDomains; d++ {
		m.mustAdd(MDCFGName(d), mdcfgBase+uint32(d)*mdcfgStride)
	}

	for s := 0; s < p.NumSources; s++ {
		base := srcmdBase + uint32(s)*srcmdStride
		m.mustAdd(SRCMDEnName(s), base)
		m.mustAdd(SRCMDEnHName(s), base+4)
	}

	for e := 0; e < p.NumEntries; e++ {
		base := p.EntryOffset + uint32(e)*entryStride
		m.mustAdd(EntryAddrName(e), base)
		m.mustAdd(EntryAddrHName(e), base+4)
		m.mustAdd(EntryCfgName(e), base+8)
	}

	return m
}

var defineLine = regexp.MustCompile(
	`^#define\s+RV_IOPMP_(\w+)_REG_OFFSET\s+(0x[0-9a-fA-F]+)`)

// ParseHeader reads register offsets from a generated C header. Only the
// `RV_IOPMP_<NAME>_REG_OFFSET` defines are used. Field defines and anything
// else are skipped.
func ParseHeader(r io.Reader) (*Map, error) {
	m := NewMap()
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		match := defineLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		offset, err := strconv.ParseUint(match[2], 0, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if err := m.Add(match[1], uint32(offset)); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if m.Len() == 0 {
		return nil, errors.New("no register offset defines found")
	}

	return m, nil
}

// MDCFGName names the boundary register of domain d.
func MDCFGName(d int) string {
	return fmt.Sprintf("MDCFG_%d", d)
}

// SRCMDEnName names the low domain-bitmap register of source s.
func SRCMDEnName(s int) string {
	return fmt.Sprintf("SRCMD_EN%d", s)
}

// SRCMDEnHName names the high domain-bitmap register of source s.
func SRCMDEnHName(s int) string {
	return fmt.Sprintf("SRCMD_ENH%d", s)
}

// EntryAddrName names the low address register of entry e.
func EntryAddrName(e int) string {
	return fmt.Sprintf("ENTRY_ADDR%d", e)
}

// EntryAddrHName names the high address register of entry e.
func EntryAddrHName(e int) string {
	return fmt.Sprintf("ENTRY_ADDRH%d", e)
}

// EntryCfgName names the configuration register of entry e.
func EntryCfgName(e int) string {
	return fmt.Sprintf("ENTRY_CFG%d", e)
}
