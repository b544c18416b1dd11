// Package cmd provides the command-line interface of iopmpsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
)

const defaultEnvFile = ".env"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "iopmpsim",
		Short: "iopmpsim checks an IOPMP against its reference model.",
		Long: `iopmpsim runs verification scenarios that configure a ` +
			`simulated IOPMP through its registers, issue transactions ` +
			`and compare every response with the reference model.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
	}

	rootCmd.PersistentFlags().String("env-file", defaultEnvFile,
		"file of IOPMP_* variables that provide flag defaults")
	rootCmd.PersistentFlags().String("config", "",
		"hardware configuration JSON file (env IOPMP_CONFIG)")

	rootCmd.AddCommand(newRunCmd(), newRegmapCmd(), newReportCmd())

	return rootCmd
}

// Execute runs the command line and exits with a non-zero status on
// failure.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnvFile loads variables that are not already set. An empty path or a
// missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

// stringOption returns the flag value if it is set on the command line, or
// else the environment variable, or else the flag default.
func stringOption(cmd *cobra.Command, flag, env string) string {
	v, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return v
	}

	if ev, found := os.LookupEnv(env); found {
		return ev
	}

	return v
}

func intOption(cmd *cobra.Command, flag, env string) (int64, error) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		return 0, fmt.Errorf("unknown flag %s", flag)
	}

	s := f.Value.String()
	if ev, found := os.LookupEnv(env); found && !f.Changed {
		s = ev
	}

	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", flag, err)
	}

	return v, nil
}

func boolOption(cmd *cobra.Command, flag, env string) (bool, error) {
	v, _ := cmd.Flags().GetBool(flag)
	if cmd.Flags().Changed(flag) {
		return v, nil
	}

	ev, found := os.LookupEnv(env)
	if !found {
		return v, nil
	}

	b, err := strconv.ParseBool(strings.TrimSpace(ev))
	if err != nil {
		return false, fmt.Errorf("%s: %w", env, err)
	}

	return b, nil
}

// loadParams reads the hardware configuration, or returns the reference
// parameters when no file is given.
func loadParams(cmd *cobra.Command) (regmap.Params, error) {
	path := stringOption(cmd, "config", "IOPMP_CONFIG")
	if path == "" {
		return regmap.DefaultParams(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return regmap.Params{}, err
	}
	defer f.Close()

	p, err := regmap.LoadParams(f)
	if err != nil {
		return regmap.Params{}, fmt.Errorf("%s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return regmap.Params{}, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}
