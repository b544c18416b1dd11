package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/iopmpsim/iopmp/regmap"
)

func newRegmapCmd() *cobra.Command {
	regmapCmd := &cobra.Command{
		Use:   "regmap",
		Short: "Print the register map of the configured IOPMP.",
		Long: "Print the register map generated from the hardware " +
			"configuration. With --header, read the map from a generated C " +
			"header instead and check it against the configuration.",
		Args: cobra.NoArgs,
		RunE: printRegmap,
	}

	regmapCmd.Flags().String("header", "",
		"C header with RV_IOPMP_<NAME>_REG_OFFSET defines")

	return regmapCmd
}

func printRegmap(cmd *cobra.Command, _ []string) error {
	params, err := loadParams(cmd)
	if err != nil {
		return err
	}

	regs := regmap.Generate(params)

	header, _ := cmd.Flags().GetString("header")
	if header != "" {
		regs, err = readHeader(header)
		if err != nil {
			return err
		}

		if err := regs.Validate(params); err != nil {
			return fmt.Errorf("%s: %w", header, err)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tNAME")

	for _, r := range regs.Registers() {
		fmt.Fprintf(w, "0x%04x\t%s\n", r.Offset, r.Name)
	}

	return w.Flush()
}

func readHeader(path string) (*regmap.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	regs, err := regmap.ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return regs, nil
}
