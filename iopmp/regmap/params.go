package regmap

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sarchlab/iopmpsim/iopmp"
)

// DefaultEntryOffset is where the entry array starts.
const DefaultEntryOffset uint32 = 0x2000

// Params are the synthesis-time parameters of a device.
type Params struct {
	NumEntries  int
	NumDomains  int
	NumSources  int
	EntryOffset uint32

	Model         int
	TOREnable     bool
	SPSEnable     bool
	UserCfgEnable bool

	Vendor      uint32
	SpecVersion uint8
	ImpID       uint32
}

// DefaultParams returns the parameters of the reference device.
func DefaultParams() Params {
	return ParamsFor(iopmp.DefaultConfig())
}

// ParamsFor returns default parameters sized for a model configuration.
func ParamsFor(cfg iopmp.Config) Params {
	return Params{
		NumEntries:  cfg.NumEntries,
		NumDomains:  cfg.NumDomains,
		NumSources:  cfg.NumSources,
		EntryOffset: DefaultEntryOffset,
		TOREnable:   true,
	}
}

// Config returns the model configuration of the device.
func (p Params) Config() iopmp.Config {
	return iopmp.Config{
		NumEntries: p.NumEntries,
		NumDomains: p.NumDomains,
		NumSources: p.NumSources,
	}
}

func (p Params) mustBeValid() {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}

// flag accepts both JSON booleans and 0/1 numbers.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flag(b)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expect a boolean or 0/1, got %s", data)
	}

	*f = n != 0

	return nil
}

type paramsFile struct {
	Version      *uint8  `json:"version"`
	Model        *int    `json:"model"`
	EnableTOR    *flag   `json:"enable_tor"`
	EnableSPS    *flag   `json:"enable_sps"`
	EnableUsrCfg *flag   `json:"enable_usr_cfg"`
	EntryOffset  *uint32 `json:"entry_offset"`
	Domains      *int    `json:"domains"`
	Entries      *int    `json:"entries"`
	Sources      *int    `json:"sources"`
	Vendor       *uint32 `json:"vendor"`
	Imp          *uint32 `json:"imp"`
}

// LoadParams reads a hardware configuration file. Keys that are absent keep
// their defaults.
func LoadParams(r io.Reader) (Params, error) {
	p := DefaultParams()

	var f paramsFile

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&f); err != nil {
		return p, fmt.Errorf("decoding hardware config: %w", err)
	}

	if f.Version != nil {
		p.SpecVersion = *f.Version
	}

	if f.Model != nil {
		p.Model = *f.Model
	}

	if f.EnableTOR != nil {
		p.TOREnable = bool(*f.EnableTOR)
	}

	if f.EnableSPS != nil {
		p.SPSEnable = bool(*f.EnableSPS)
	}

	if f.EnableUsrCfg != nil {
		p.UserCfgEnable = bool(*f.EnableUsrCfg)
	}

	if f.EntryOffset != nil {
		p.EntryOffset = *f.EntryOffset
	}

	if f.Domains != nil {
		p.NumDomains = *f.Domains
	}

	if f.Entries != nil {
		p.NumEntries = *f.Entries
	}

	if f.Sources != nil {
		p.NumSources = *f.Sources
	}

	if f.Vendor != nil {
		p.Vendor = *f.Vendor
	}

	if f.Imp != nil {
		p.ImpID = *f.Imp
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

// Validate reports parameters that no device can be built with.
func (p Params) Validate() error {
	if p.NumDomains < 1 || p.NumDomains > iopmp.MaxDomains {
		return fmt.Errorf("invalid hardware config: %d domains", p.NumDomains)
	}

	if p.NumEntries < 1 || p.NumEntries > 0xffff {
		return fmt.Errorf("invalid hardware config: %d entries", p.NumEntries)
	}

	if p.NumSources < 1 || p.NumSources > 0xffff {
		return fmt.Errorf("invalid hardware config: %d sources", p.NumSources)
	}

	lastSRCMD := srcmdBase + uint32(p.NumSources)*srcmdStride
	if p.EntryOffset < lastSRCMD || p.EntryOffset%entryStride != 0 {
		return fmt.Errorf(
			"invalid hardware config: entry offset 0x%x overlaps or is misaligned",
			p.EntryOffset)
	}

	return nil
}
