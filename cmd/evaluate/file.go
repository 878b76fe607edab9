package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhnan/Long-text-evaluation/internal/pipeline"
	"github.com/bhnan/Long-text-evaluation/internal/report"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

func newFileCmd(root *rootOptions) *cobra.Command {
	var brief rubric.Brief
	cmd := &cobra.Command{
		Use:   "file <document.txt>",
		Short: "Evaluate a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.setup(cmd)
			if err != nil {
				return err
			}
			stack, err := pipeline.Build(cfg, log)
			if err != nil {
				return err
			}
			if brief.ExpectedStyle == "" {
				brief.ExpectedStyle = cfg.ExpectedStyle
			}
			out, err := evaluate(cmd.Context(), stack.Runner, documentFor(args[0], brief, log), log)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Results saved to %s\n", out.ResultPath)
			if out.ReportDir != "" {
				fmt.Fprintf(w, "Report saved to %s\n", out.ReportDir)
			}
			fmt.Fprintln(w)
			return report.WriteCriteriaTable(w, out.Summary)
		},
	}
	cmd.Flags().StringVar(&brief.Topic, "topic", "", "document topic")
	cmd.Flags().StringVar(&brief.Description, "description", "", "topic description")
	cmd.Flags().StringVar(&brief.ExpectedStyle, "expected-style", "", "expected writing style")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
