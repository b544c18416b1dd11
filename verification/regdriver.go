package verification

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/iopmpsim/iopmp"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
)

// RegisterDriver programs an IOPMP through its named registers.
type RegisterDriver struct {
	bus  Bus
	regs *regmap.Map
}

// NewRegisterDriver creates a RegisterDriver that resolves register names
// with regs.
func NewRegisterDriver(bus Bus, regs *regmap.Map) *RegisterDriver {
	return &RegisterDriver{bus: bus, regs: regs}
}

func (d *RegisterDriver) offset(name string) (uint32, error) {
	return d.regs.Offset(name)
}

// WriteWord writes a full register.
func (d *RegisterDriver) WriteWord(name string, v uint32) error {
	offset, err := d.offset(name)
	if err != nil {
		return err
	}

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)

	return d.bus.WriteReg(offset, data)
}

// ReadWord reads a full register.
func (d *RegisterDriver) ReadWord(name string) (uint32, error) {
	offset, err := d.offset(name)
	if err != nil {
		return 0, err
	}

	data, err := d.bus.ReadReg(offset, 4)
	if err != nil {
		return 0, err
	}

	if len(data) != 4 {
		return 0, fmt.Errorf("reading %s: got %d bytes", name, len(data))
	}

	return binary.LittleEndian.Uint32(data), nil
}

// SetEntry writes the address halves and then the configuration of an
// entry.
func (d *RegisterDriver) SetEntry(i int, e iopmp.Entry) error {
	lo, hi := iopmp.EncodeAddr(e.Addr)

	if err := d.WriteWord(regmap.EntryAddrName(i), lo); err != nil {
		return err
	}

	if err := d.WriteWord(regmap.EntryAddrHName(i), hi); err != nil {
		return err
	}

	return d.WriteWord(regmap.EntryCfgName(i),
		regmap.EncodeEntryCfg(e.Mode, e.Access))
}

// SetEntryNAPOT makes entry i cover [base, base+length).
func (d *RegisterDriver) SetEntryNAPOT(
	i int,
	base, length uint64,
	access iopmp.Access,
) error {
	return d.SetEntry(i, iopmp.NAPOTEntry(base, length, access))
}

// SetEntryTOR makes entry i cover the range up to top.
func (d *RegisterDriver) SetEntryTOR(
	i int,
	top uint64,
	access iopmp.Access,
) error {
	return d.SetEntry(i, iopmp.TOREntry(top, access))
}

// SetEntryOff disables entry i but keeps an address in it.
func (d *RegisterDriver) SetEntryOff(
	i int,
	addr uint64,
	access iopmp.Access,
) error {
	e := iopmp.OffEntry(addr)
	e.Access = access

	return d.SetEntry(i, e)
}

// ReadEntry reads back entry i.
func (d *RegisterDriver) ReadEntry(i int) (iopmp.Entry, error) {
	lo, hi, err := d.ReadEntryAddr(i)
	if err != nil {
		return iopmp.Entry{}, err
	}

	cfg, err := d.ReadWord(regmap.EntryCfgName(i))
	if err != nil {
		return iopmp.Entry{}, err
	}

	mode, access := regmap.DecodeEntryCfg(cfg)

	return iopmp.Entry{
		Mode:   mode,
		Access: access,
		Addr:   iopmp.DecodeAddr(lo, hi),
	}, nil
}

// ReadEntryAddr reads the raw address halves of entry i.
func (d *RegisterDriver) ReadEntryAddr(i int) (lo, hi uint32, err error) {
	lo, err = d.ReadWord(regmap.EntryAddrName(i))
	if err != nil {
		return 0, 0, err
	}

	hi, err = d.ReadWord(regmap.EntryAddrHName(i))

	return lo, hi, err
}

// SetMDCFG sets the boundary of a domain.
func (d *RegisterDriver) SetMDCFG(domain, boundary int) error {
	return d.WriteWord(regmap.MDCFGName(domain), regmap.EncodeMDCFG(boundary))
}

// ReadMDCFG reads the boundary of a domain.
func (d *RegisterDriver) ReadMDCFG(domain int) (int, error) {
	v, err := d.ReadWord(regmap.MDCFGName(domain))
	return regmap.DecodeMDCFG(v), err
}

// SetSRCMD binds a source to domains. The high half goes first so that a
// lock set in the low half does not freeze it.
func (d *RegisterDriver) SetSRCMD(
	sid int,
	domains iopmp.DomainSet,
	lock bool,
) error {
	en, enh := regmap.EncodeSRCMD(domains, lock)

	if err := d.WriteWord(regmap.SRCMDEnHName(sid), enh); err != nil {
		return err
	}

	return d.WriteWord(regmap.SRCMDEnName(sid), en)
}

// ReadSRCMD reads the domains of a source and its lock bit.
func (d *RegisterDriver) ReadSRCMD(sid int) (iopmp.DomainSet, bool, error) {
	en, err := d.ReadWord(regmap.SRCMDEnName(sid))
	if err != nil {
		return 0, false, err
	}

	enh, err := d.ReadWord(regmap.SRCMDEnHName(sid))
	if err != nil {
		return 0, false, err
	}

	set, lock := regmap.DecodeSRCMD(en, enh)

	return set, lock, nil
}

// SetMDCFGLock writes MDCFGLCK with a single byte, as the count and the
// lock bit fit in the lowest one.
func (d *RegisterDriver) SetMDCFGLock(count int, lock bool) error {
	offset, err := d.offset("MDCFGLCK")
	if err != nil {
		return err
	}

	v := regmap.EncodeMDCFGLock(count, lock)

	return d.bus.WriteReg(offset, []byte{byte(v)})
}

// ReadMDCFGLock reads MDCFGLCK.
func (d *RegisterDriver) ReadMDCFGLock() (count int, lock bool, err error) {
	v, err := d.ReadWord("MDCFGLCK")
	count, lock = regmap.DecodeMDCFGLock(v)

	return count, lock, err
}

// SetEntryLock writes ENTRYLCK.
func (d *RegisterDriver) SetEntryLock(count int, lock bool) error {
	return d.WriteWord("ENTRYLCK", regmap.EncodeEntryLock(count, lock))
}

// ReadEntryLock reads ENTRYLCK.
func (d *RegisterDriver) ReadEntryLock() (count int, lock bool, err error) {
	v, err := d.ReadWord("ENTRYLCK")
	count, lock = regmap.DecodeEntryLock(v)

	return count, lock, err
}

// SetErrReact writes ERRREACT.
func (d *RegisterDriver) SetErrReact(f iopmp.ErrReactFields, lock bool) error {
	return d.WriteWord("ERRREACT", regmap.EncodeErrReact(f, lock))
}

// ReadErrReact reads ERRREACT.
func (d *RegisterDriver) ReadErrReact() (iopmp.ErrReactFields, bool, error) {
	v, err := d.ReadWord("ERRREACT")
	f, lock := regmap.DecodeErrReact(v)

	return f, lock, err
}

// Enable sets the enable bit of HWCFG0.
func (d *RegisterDriver) Enable() error {
	return d.WriteWord("HWCFG0", 1<<31)
}

// ReadHWCFG reads the hardware configuration registers.
func (d *RegisterDriver) ReadHWCFG() (regmap.HWCFG, error) {
	var words [3]uint32

	for i, name := range []string{"HWCFG0", "HWCFG1", "HWCFG2"} {
		v, err := d.ReadWord(name)
		if err != nil {
			return regmap.HWCFG{}, err
		}

		words[i] = v
	}

	return regmap.DecodeHWCFG(words[0], words[1], words[2]), nil
}

// ReadErrorRecord reads the ERR_REQ* registers.
func (d *RegisterDriver) ReadErrorRecord() (regmap.ErrorRecord, error) {
	var words [4]uint32

	names := []string{"ERR_REQINFO", "ERR_REQID", "ERR_REQADDR", "ERR_REQADDRH"}
	for i, name := range names {
		v, err := d.ReadWord(name)
		if err != nil {
			return regmap.ErrorRecord{}, err
		}

		words[i] = v
	}

	return regmap.DecodeErrorRecord(words[0], words[1], words[2], words[3]),
		nil
}

// ClearError acknowledges the error record.
func (d *RegisterDriver) ClearError() error {
	return d.WriteWord("ERR_REQINFO", 1)
}
