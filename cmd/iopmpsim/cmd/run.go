package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/iopmpsim/sim"
	"github.com/sarchlab/iopmpsim/simulation"
	"github.com/sarchlab/iopmpsim/verification"
)

// ErrMismatch is returned when the device disagrees with the model.
var ErrMismatch = errors.New("device disagrees with the reference model")

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run verification scenarios.",
		Long: "Run verification scenarios against the simulated IOPMP. " +
			"Without arguments, all scenarios run. Scenarios: " +
			strings.Join(verification.ScenarioNames(), ", ") + ".",
		ValidArgs: verification.ScenarioNames(),
		RunE:      runScenarios,
	}

	runCmd.Flags().Int64("seed", 0,
		"random seed, 0 picks one from the clock (env IOPMP_SEED)")
	runCmd.Flags().String("trace-db", "",
		"record traces and checks into this SQLite file, "+
			"without the .sqlite3 suffix (env IOPMP_TRACE_DB)")
	runCmd.Flags().Bool("monitor", false,
		"serve the monitoring dashboard (env IOPMP_MONITOR)")
	runCmd.Flags().Int("monitor-port", 0,
		"port of the monitoring server (env IOPMP_MONITOR_PORT)")
	runCmd.Flags().Bool("open-browser", false,
		"open the monitoring dashboard in a browser")
	runCmd.Flags().BoolP("verbose", "v", false,
		"log every transaction to stderr (env IOPMP_VERBOSE)")
	runCmd.Flags().Bool("log-events", false,
		"log every simulation event to stderr (env IOPMP_LOG_EVENTS)")
	runCmd.Flags().Bool("fix-tor-reset", false,
		"restart the TOR sweep base when the region would cross a page")
	runCmd.Flags().Int("adversarial-rounds", 4,
		"random configurations tried by the adversarial scenario")
	runCmd.Flags().Int("mem-latency", 10,
		"cycles the RAM behind the IOPMP takes to respond")

	return runCmd
}

type runOptions struct {
	seed        int64
	traceDB     string
	monitor     bool
	monitorPort int
	openBrowser bool
	verbose     bool
	logEvents   bool
}

func parseRunOptions(cmd *cobra.Command) (runOptions, error) {
	var (
		o   runOptions
		err error
	)

	if o.seed, err = intOption(cmd, "seed", "IOPMP_SEED"); err != nil {
		return o, err
	}

	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}

	o.traceDB = stringOption(cmd, "trace-db", "IOPMP_TRACE_DB")

	if o.monitor, err = boolOption(cmd, "monitor", "IOPMP_MONITOR"); err != nil {
		return o, err
	}

	port, err := intOption(cmd, "monitor-port", "IOPMP_MONITOR_PORT")
	if err != nil {
		return o, err
	}

	o.monitorPort = int(port)
	o.openBrowser, _ = cmd.Flags().GetBool("open-browser")

	if o.verbose, err = boolOption(cmd, "verbose", "IOPMP_VERBOSE"); err != nil {
		return o, err
	}

	o.logEvents, err = boolOption(cmd, "log-events", "IOPMP_LOG_EVENTS")
	if err != nil {
		return o, err
	}

	return o, nil
}

func buildSimulation(
	cmd *cobra.Command,
	o runOptions,
) (*simulation.Simulation, error) {
	params, err := loadParams(cmd)
	if err != nil {
		return nil, err
	}

	latency, _ := cmd.Flags().GetInt("mem-latency")

	b := simulation.MakeBuilder().
		WithParams(params).
		WithMemLatency(latency)

	if o.traceDB != "" {
		b = b.WithRecording().WithOutputFileName(o.traceDB)
	}

	if o.monitor {
		b = b.WithMonitoring().WithMonitorPort(o.monitorPort)
		if o.openBrowser {
			b = b.WithBrowser()
		}
	}

	return b.Build(), nil
}

func scenarioArgs(args []string) []string {
	if len(args) > 0 {
		return args
	}

	if ev := os.Getenv("IOPMP_SCENARIOS"); ev != "" {
		return strings.Split(ev, ",")
	}

	return verification.ScenarioNames()
}

func runScenarios(cmd *cobra.Command, args []string) error {
	o, err := parseRunOptions(cmd)
	if err != nil {
		return err
	}

	s, err := buildSimulation(cmd, o)
	if err != nil {
		return err
	}

	names := scenarioArgs(args)

	if r := s.GetExecRecorder(); r != nil {
		r.Note("Seed", strconv.FormatInt(o.seed, 10))
		r.Note("Scenarios", strings.Join(names, ","))
	}

	var logger *log.Logger
	if o.verbose {
		logger = log.New(cmd.ErrOrStderr(), "", 0)
	}

	if o.logEvents {
		s.GetEngine().AcceptHook(
			sim.NewEventLogger(log.New(cmd.ErrOrStderr(), "", 0)))
	}

	driver := s.NewDriver(logger)
	runner := verification.NewRunner(driver, o.seed)
	runner.FixedTORReset, _ = cmd.Flags().GetBool("fix-tor-reset")
	runner.AdversarialRounds, _ = cmd.Flags().GetInt("adversarial-rounds")

	fmt.Fprintf(cmd.OutOrStdout(), "seed %d\n", o.seed)

	runErr := runWithProgress(s, runner, names)

	if err := s.Terminate(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		return runErr
	}

	report := driver.Report()
	fmt.Fprintln(cmd.OutOrStdout(), report)

	for name, n := range s.StepCounts() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", name, n)
	}

	if !report.Passed() {
		return fmt.Errorf("%d mismatches: %w", len(report.Mismatches),
			ErrMismatch)
	}

	return nil
}

func runWithProgress(
	s *simulation.Simulation,
	runner *verification.Runner,
	names []string,
) error {
	monitor := s.GetMonitor()
	if monitor == nil {
		return runner.Run(names...)
	}

	monitor.RegisterStatus("report", func() any {
		return runner.Driver().Report()
	})

	bar := monitor.CreateProgressBar("scenarios", uint64(len(names)))
	defer monitor.CompleteProgressBar(bar)

	for _, name := range names {
		bar.Start(1)

		if err := runner.Run(name); err != nil {
			return err
		}

		bar.Finish(1)
	}

	return nil
}
