package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bhnan/Long-text-evaluation/internal/dataset"
	"github.com/bhnan/Long-text-evaluation/internal/parser"
	"github.com/bhnan/Long-text-evaluation/internal/pipeline"
	"github.com/bhnan/Long-text-evaluation/internal/report"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		datasetPath string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every document in a dataset file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.setup(cmd)
			if err != nil {
				return err
			}
			items, err := dataset.Load(datasetPath)
			if err != nil {
				return err
			}
			stack, err := pipeline.Build(cfg, log)
			if err != nil {
				return err
			}
			return runDataset(cmd.Context(), cmd.OutOrStdout(), stack.Runner, items, cfg.ExpectedStyle, concurrency, log)
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "dataset.json", "JSON or YAML dataset file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "documents evaluated at once")
	return cmd
}

// runDataset evaluates items concurrently through one shared runner. A
// failed item does not stop the others. Items that repeat an earlier item's
// document and brief are rejected so no two runs share a checkpoint.
func runDataset(ctx context.Context, out io.Writer, runner *pipeline.Runner, items []dataset.Item, style string, concurrency int, log *slog.Logger) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	var (
		mu       sync.Mutex
		outcomes = make([]*pipeline.Outcome, len(items))
		errs     []error
	)
	fail := func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, fmt.Errorf("%s: %w", key, err))
		fmt.Fprintf(out, "Evaluation failed for %s: %v\n", key, err)
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	seen := make(map[string]string, len(items))
	for i, item := range items {
		ilog := log.With("item", item.Key)
		doc := documentFor(item.FilePath, briefFor(item, style), ilog)
		if prev, dup := seen[doc.CheckpointKey]; dup {
			fail(item.Key, fmt.Errorf("same document and brief as %s", prev))
			continue
		}
		seen[doc.CheckpointKey] = item.Key

		g.Go(func() error {
			o, err := evaluate(ctx, runner, doc, ilog)
			if err != nil {
				fail(item.Key, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			outcomes[i] = o
			fmt.Fprintf(out, "Evaluation completed for %s. Results saved to %s\n", item.Key, o.ResultPath)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, o := range outcomes {
		if o == nil {
			continue
		}
		fmt.Fprintf(out, "\n%s\n\n", o.Summary.DocumentTitle)
		if err := report.WriteCriteriaTable(out, o.Summary); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func briefFor(item dataset.Item, style string) rubric.Brief {
	b := rubric.Brief{Topic: item.Topic, Description: item.Description, ExpectedStyle: item.ExpectedStyle}
	if b.ExpectedStyle == "" {
		b.ExpectedStyle = style
	}
	return b
}

// documentFor segments the file at path and keys its checkpoint by title,
// content and brief, so same-named files in different directories never
// share one.
func documentFor(path string, brief rubric.Brief, log *slog.Logger) pipeline.Document {
	tree := parser.ParseFile(path, log)
	if len(tree.Sections) == 0 {
		log.Warn("document has no evaluable content", "path", path)
	}
	// An unreadable file was already logged by ParseFile and has no units.
	data, _ := os.ReadFile(path)
	title := parser.DocumentTitle(path)
	return pipeline.Document{
		Title:         title,
		Brief:         brief,
		Tree:          tree,
		CheckpointKey: pipeline.CheckpointKey(title, data, brief),
	}
}

func evaluate(ctx context.Context, runner *pipeline.Runner, doc pipeline.Document, log *slog.Logger) (*pipeline.Outcome, error) {
	return runner.Run(ctx, doc, func(p pipeline.EvalProgress) {
		log.Info("progress", "state", p.State, "units", fmt.Sprintf("%d/%d", p.UnitsDone, p.UnitsTotal), "pairs", fmt.Sprintf("%d/%d", p.PairsDone, p.PairsTotal))
	})
}
