package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/recall-network-sim/pkg/report"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "summarize [results.csv]",
		Short: "Aggregate a results file per method and group size",
		Long: `Summarize reads a results CSV (the configured output.results when no
file is given) and prints, per (method, ssnum), the mean and standard
deviation of every SDT count and of the cost, the median cost, and the
pooled hit and false-alarm rates.

Examples:
  recallsim summarize usf_reconstruction_results.csv
  recallsim summarize results.csv --out summary.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.ResultsPath()
			if len(args) > 0 {
				path = args[0]
			}
			return a.summarize(cmd.OutOrStdout(), path, out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the summary to this file instead of stdout")
	return cmd
}

func (a *app) summarize(stdout io.Writer, path, out string) error {
	records, err := report.ReadResults(path)
	if err != nil {
		return err
	}
	rows, err := report.Summarize(records)
	if err != nil {
		return err
	}

	a.logger.Debug().Str("path", path).Int("records", len(records)).Int("cells", len(rows)).Msg("Summarized results")

	if out == "" {
		return report.WriteSummary(stdout, rows)
	}
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := report.WriteSummary(file, rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
