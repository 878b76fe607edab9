package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhnan/Long-text-evaluation/internal/config"
	"github.com/bhnan/Long-text-evaluation/internal/report"
	"github.com/bhnan/Long-text-evaluation/internal/results"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

// summarize loads a result file and aggregates it against the configured
// rubric. No model access is needed.
func summarize(cfg config.Config, path string) (report.Summary, error) {
	f, err := results.Load(path)
	if err != nil {
		return report.Summary{}, err
	}
	rb, err := rubric.Default()
	if cfg.RubricFile != "" {
		rb, err = rubric.Load(cfg.RubricFile)
	}
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(f, rb), nil
}

func newReportCmd(*rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "report <result.json>",
		Short: "Regenerate the summary report for a result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			s, err := summarize(cfg, args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.ReportDir
			}
			dir, err := report.Write(outDir, s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Report saved to %s\n\n", dir)
			return report.WriteUnitsTable(w, s)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "report directory (defaults to REPORT_DIR)")
	return cmd
}

func newCompareCmd(*rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a.json> <b.json>",
		Short: "Compare per-criterion averages of two result files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			a, err := summarize(cfg, args[0])
			if err != nil {
				return err
			}
			b, err := summarize(cfg, args[1])
			if err != nil {
				return err
			}
			return report.WriteComparison(cmd.OutOrStdout(), a, b)
		},
	}
}
