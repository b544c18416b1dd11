package verification

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/sarchlab/iopmpsim/datarecording"
	"github.com/sarchlab/iopmpsim/iopmp"
	"github.com/sarchlab/iopmpsim/iopmp/regmap"
)

// CheckTableName is the table that transaction checks are recorded in.
const CheckTableName = "iopmp_check"

// CheckEntry is one recorded transaction check.
type CheckEntry struct {
	Scenario string
	SID      int
	Address  string
	Length   int
	Access   string
	Beats    int
	BeatSize int
	Expected string
	Observed string
	Pass     bool
}

// DriverBuilder can build Drivers.
type DriverBuilder struct {
	bus       Bus
	regs      *regmap.Map
	params    regmap.Params
	logger    *log.Logger
	recorder  datarecording.DataRecorder
	dataWidth int
}

// MakeDriverBuilder returns a DriverBuilder for the reference hardware.
func MakeDriverBuilder() DriverBuilder {
	return DriverBuilder{
		params:    regmap.DefaultParams(),
		logger:    log.New(io.Discard, "", 0),
		dataWidth: 64,
	}
}

// WithBus sets the bus that the device under test sits on.
func (b DriverBuilder) WithBus(bus Bus) DriverBuilder {
	b.bus = bus
	return b
}

// WithParams sets the parameters of the device under test.
func (b DriverBuilder) WithParams(p regmap.Params) DriverBuilder {
	b.params = p
	return b
}

// WithRegisterMap sets the register layout to use. By default the layout is
// generated from the parameters.
func (b DriverBuilder) WithRegisterMap(regs *regmap.Map) DriverBuilder {
	b.regs = regs
	return b
}

// WithLogger sets where mismatches and transactions are logged.
func (b DriverBuilder) WithLogger(logger *log.Logger) DriverBuilder {
	b.logger = logger
	return b
}

// WithRecorder sets the recorder that every transaction check is written
// to.
func (b DriverBuilder) WithRecorder(
	recorder datarecording.DataRecorder,
) DriverBuilder {
	b.recorder = recorder
	return b
}

// WithDataWidth sets the data bus width in bits, used to label bursts.
func (b DriverBuilder) WithDataWidth(bits int) DriverBuilder {
	b.dataWidth = bits
	return b
}

// Build creates a Driver.
func (b DriverBuilder) Build() *Driver {
	if b.bus == nil {
		panic("bus is not set")
	}

	regs := b.regs
	if regs == nil {
		regs = regmap.Generate(b.params)
	}

	if err := regs.Validate(b.params); err != nil {
		panic(err)
	}

	if b.recorder != nil {
		b.recorder.CreateTable(CheckTableName, CheckEntry{})
	}

	return &Driver{
		bus:       b.bus,
		regs:      NewRegisterDriver(b.bus, regs),
		params:    b.params,
		model:     iopmp.NewModel(b.params.Config()),
		logger:    b.logger,
		recorder:  b.recorder,
		dataWidth: b.dataWidth,
	}
}

// Driver applies every configuration both to a reference model and to the
// device under test, and checks that the device behaves as the model
// predicts.
type Driver struct {
	bus       Bus
	regs      *RegisterDriver
	params    regmap.Params
	model     *iopmp.Model
	logger    *log.Logger
	recorder  datarecording.DataRecorder
	dataWidth int

	scenario string

	// reportLock guards report against readers outside the run goroutine.
	reportLock sync.Mutex
	report     Report
}

// Model returns the reference model.
func (d *Driver) Model() *iopmp.Model {
	return d.model
}

// Registers returns the register driver of the device under test.
func (d *Driver) Registers() *RegisterDriver {
	return d.regs
}

// Params returns the parameters of the device under test.
func (d *Driver) Params() regmap.Params {
	return d.params
}

// Report returns what has been checked so far.
func (d *Driver) Report() Report {
	d.reportLock.Lock()
	defer d.reportLock.Unlock()

	r := d.report
	r.Mismatches = append([]Mismatch(nil), d.report.Mismatches...)

	return r
}

// SetScenario names the scenario that the following checks belong to.
func (d *Driver) SetScenario(name string) {
	d.scenario = name
}

// Reset resets both the device and the model.
func (d *Driver) Reset() {
	d.bus.Reset()
	d.model.Reset()
}

func (d *Driver) expectEqual(what string, expected, observed any) bool {
	d.reportLock.Lock()
	defer d.reportLock.Unlock()

	d.report.Checks++

	if expected == observed {
		return true
	}

	m := Mismatch{
		Scenario: d.scenario,
		What:     what,
		Expected: fmt.Sprintf("%+v", expected),
		Observed: fmt.Sprintf("%+v", observed),
	}
	d.report.Mismatches = append(d.report.Mismatches, m)
	d.logger.Printf("mismatch %s", m)

	return false
}

// ignoreLocked drops the error of a write that a lock blocked.
func ignoreLocked(err error) error {
	if errors.Is(err, iopmp.ErrLockedWriteIgnored) {
		return nil
	}

	return err
}

// ConfigureEntry writes entry i and checks the value read back.
func (d *Driver) ConfigureEntry(i int, e iopmp.Entry) error {
	if err := ignoreLocked(d.model.ConfigureEntry(i, e)); err != nil {
		return err
	}

	if err := d.regs.SetEntry(i, e); err != nil {
		return err
	}

	return d.VerifyEntry(i)
}

// VerifyEntry checks that entry i reads back as the model holds it.
func (d *Driver) VerifyEntry(i int) error {
	observed, err := d.regs.ReadEntry(i)
	if err != nil {
		return err
	}

	expected := d.model.Entry(i)
	expected.Addr &^= 3

	d.expectEqual(fmt.Sprintf("ENTRY%d", i), expected, observed)

	return nil
}

// SetMDCFG sets the boundary of a domain and checks the value read back.
func (d *Driver) SetMDCFG(domain, boundary int) error {
	if err := ignoreLocked(d.model.SetMDCFG(domain, boundary)); err != nil {
		return err
	}

	if err := d.regs.SetMDCFG(domain, boundary); err != nil {
		return err
	}

	observed, err := d.regs.ReadMDCFG(domain)
	if err != nil {
		return err
	}

	d.expectEqual(regmap.MDCFGName(domain), d.model.MDCFG(domain), observed)

	return nil
}

// SetSRCMD binds a source to domains and checks the value read back.
func (d *Driver) SetSRCMD(sid int, domains iopmp.DomainSet) error {
	d.model.SetSRCMD(sid, domains)

	if err := d.regs.SetSRCMD(sid, domains, false); err != nil {
		return err
	}

	observed, _, err := d.regs.ReadSRCMD(sid)
	if err != nil {
		return err
	}

	d.expectEqual(regmap.SRCMDEnName(sid), d.model.SRCMD(sid), observed)

	return nil
}

type lockState struct {
	Count  int
	Locked bool
}

// SetMDCFGLock writes MDCFGLCK and checks the value read back.
func (d *Driver) SetMDCFGLock(count int, lock bool) error {
	_ = d.model.WriteMDCFGLock(count, lock)

	if err := d.regs.SetMDCFGLock(count, lock); err != nil {
		return err
	}

	c, l, err := d.regs.ReadMDCFGLock()
	if err != nil {
		return err
	}

	expected := d.model.MDCFGLock()
	d.expectEqual("MDCFGLCK",
		lockState{expected.Count(), expected.Locked()}, lockState{c, l})

	return nil
}

// SetEntryLock writes ENTRYLCK and checks the value read back.
func (d *Driver) SetEntryLock(count int, lock bool) error {
	_ = d.model.WriteEntryLock(count, lock)

	if err := d.regs.SetEntryLock(count, lock); err != nil {
		return err
	}

	c, l, err := d.regs.ReadEntryLock()
	if err != nil {
		return err
	}

	expected := d.model.EntryLock()
	d.expectEqual("ENTRYLCK",
		lockState{expected.Count(), expected.Locked()}, lockState{c, l})

	return nil
}

type errReactState struct {
	Fields iopmp.ErrReactFields
	Locked bool
}

// SetErrReact writes ERRREACT and checks the value read back.
func (d *Driver) SetErrReact(f iopmp.ErrReactFields, lock bool) error {
	_ = d.model.WriteErrReact(f, lock)

	if err := d.regs.SetErrReact(f, lock); err != nil {
		return err
	}

	observed, locked, err := d.regs.ReadErrReact()
	if err != nil {
		return err
	}

	expected := d.model.ErrReact()
	d.expectEqual("ERRREACT",
		errReactState{expected.Fields(), expected.Locked()},
		errReactState{observed, locked})

	return nil
}

// Enable turns checking on and checks the hardware configuration.
func (d *Driver) Enable() error {
	d.model.Enable()

	if err := d.regs.Enable(); err != nil {
		return err
	}

	return d.VerifyHWCFG()
}

// VerifyHWCFG checks the hardware configuration registers.
func (d *Driver) VerifyHWCFG() error {
	observed, err := d.regs.ReadHWCFG()
	if err != nil {
		return err
	}

	d.expectEqual("HWCFG",
		regmap.HWCFGFor(d.params, d.model.Enabled()), observed)

	return nil
}

// Issue predicts the decision on a transaction, performs it on the device
// and checks the response, the error record and the interrupt. The model
// records the violation only once the device has answered.
func (d *Driver) Issue(tx iopmp.Transaction) (iopmp.Decision, error) {
	expected := d.model.Evaluate(tx)

	outcome, err := d.bus.IssueTransaction(tx)
	if err != nil {
		return expected, err
	}

	d.model.Check(tx)
	d.countTransaction(expected)

	pass := d.expectEqual(tx.String(), expected.Allowed, outcome.Allowed())
	d.record(tx, expected, outcome, pass)

	d.logger.Printf("%s: %s -> %s", d.scenario, tx, outcome.Resp)

	return expected, d.VerifyErrorState()
}

func (d *Driver) countTransaction(expected iopmp.Decision) {
	d.reportLock.Lock()
	defer d.reportLock.Unlock()

	d.report.Transactions++
	if !expected.Allowed {
		d.report.Denied++
	}
}

func (d *Driver) record(
	tx iopmp.Transaction,
	expected iopmp.Decision,
	outcome Outcome,
	pass bool,
) {
	if d.recorder == nil {
		return
	}

	beats, size := BurstLenSize(tx.Length, d.dataWidth)

	expectedText := "allowed"
	if !expected.Allowed {
		expectedText = "denied:" + expected.Kind.String()
	}

	d.recorder.InsertData(CheckTableName, CheckEntry{
		Scenario: d.scenario,
		SID:      tx.SourceID,
		Address:  fmt.Sprintf("0x%x", tx.Address),
		Length:   int(tx.Length),
		Access:   tx.Access.String(),
		Beats:    int(beats),
		BeatSize: 1 << size,
		Expected: expectedText,
		Observed: outcome.Resp.String(),
		Pass:     pass,
	})
}

// VerifyErrorState checks the error record registers and the interrupt
// wire.
func (d *Driver) VerifyErrorState() error {
	observed, err := d.regs.ReadErrorRecord()
	if err != nil {
		return err
	}

	d.expectEqual("ERR_REQ", regmap.ErrorRecordOf(d.model.Violation()),
		observed)
	d.expectEqual("interrupt", d.model.Interrupt(), d.bus.Interrupt())

	return nil
}

// Acknowledge clears the error record on both sides.
func (d *Driver) Acknowledge() error {
	d.model.Acknowledge()

	if err := d.regs.ClearError(); err != nil {
		return err
	}

	return d.VerifyErrorState()
}

// AssessError checks the error record left by a denied transaction and
// then clears it.
func (d *Driver) AssessError() error {
	if err := d.VerifyErrorState(); err != nil {
		return err
	}

	return d.Acknowledge()
}
