package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/iopmpsim/datarecording"
	"github.com/sarchlab/iopmpsim/tracing"
	"github.com/sarchlab/iopmpsim/verification"
)

const dbSuffix = ".sqlite3"

func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report <trace-db>",
		Short: "Summarize a recording made with run --trace-db.",
		Long: "Summarize a recording: the seed it ran with, the checks " +
			"that failed and how many requests the IOPMP allowed or denied " +
			"for each reason.",
		Args: cobra.ExactArgs(1),
		RunE: printReport,
	}

	reportCmd.Flags().Int("limit", 20,
		"failed checks to list, 0 lists all of them")

	return reportCmd
}

func printReport(cmd *cobra.Command, args []string) error {
	filename := args[0]
	if !strings.HasSuffix(filename, dbSuffix) {
		filename += dbSuffix
	}

	reader, err := datarecording.Open(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tables, err := reader.Tables(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	out := cmd.OutOrStdout()
	limit, _ := cmd.Flags().GetInt("limit")

	if slices.Contains(tables, datarecording.ExecTableName) {
		if err := printSeed(ctx, out, reader); err != nil {
			return err
		}
	}

	if slices.Contains(tables, verification.CheckTableName) {
		if err := printFailedChecks(ctx, out, reader, limit); err != nil {
			return err
		}
	}

	if slices.Contains(tables, tracing.TaskTableName) {
		if err := printOutcomes(ctx, out, reader); err != nil {
			return err
		}
	}

	return nil
}

func printSeed(
	ctx context.Context,
	out io.Writer,
	reader *datarecording.Reader,
) error {
	rows, err := datarecording.Select[datarecording.ExecInfo](ctx, reader,
		datarecording.ExecTableName,
		datarecording.Match{"Property": "Seed"}, 1)
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		fmt.Fprintf(out, "seed %s\n", rows[0].Value)
	}

	return nil
}

func printFailedChecks(
	ctx context.Context,
	out io.Writer,
	reader *datarecording.Reader,
	limit int,
) error {
	total, err := reader.Count(ctx, verification.CheckTableName, nil)
	if err != nil {
		return err
	}

	failed, err := datarecording.Select[verification.CheckEntry](ctx, reader,
		verification.CheckTableName, datarecording.Match{"Pass": false}, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d checks, %d failed\n", total, len(failed))

	if len(failed) == 0 {
		return nil
	}

	shown := failed
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSID\tADDRESS\tLENGTH\tACCESS\tEXPECTED\tOBSERVED")

	for _, c := range shown {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			c.Scenario, c.SID, c.Address, c.Length, c.Access,
			c.Expected, c.Observed)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if len(shown) < len(failed) {
		fmt.Fprintf(out, "... %d more\n", len(failed)-len(shown))
	}

	return nil
}

// printOutcomes tallies the decisions of the IOPMP. Tasks that the IOPMP
// did not filter have no outcome and are left out.
func printOutcomes(
	ctx context.Context,
	out io.Writer,
	reader *datarecording.Reader,
) error {
	tally, err := reader.Tally(ctx, tracing.TaskTableName, "Outcome")
	if err != nil {
		return err
	}

	delete(tally, "")

	outcomes := make([]string, 0, len(tally))
	for o := range tally {
		outcomes = append(outcomes, o)
	}

	slices.Sort(outcomes)

	fmt.Fprintln(out, "outcomes:")

	for _, o := range outcomes {
		fmt.Fprintf(out, "  %s: %d\n", o, tally[o])
	}

	return nil
}
