package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bhnan/Long-text-evaluation/internal/config"
	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

type rootOptions struct {
	logFile     string
	granularity string

	// closers run after the command finishes.
	closers []io.Closer
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "evaluate",
		Short:         "Evaluate long documents section by section with an LLM rubric",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRun: func(*cobra.Command, []string) {
			for _, c := range opts.closers {
				c.Close()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also append logs to this file")
	cmd.PersistentFlags().StringVar(&opts.granularity, "granularity", "", "evaluation unit: section or subsection (overrides GRANULARITY)")

	cmd.AddCommand(
		newRunCmd(opts),
		newFileCmd(opts),
		newReportCmd(opts),
		newCompareCmd(opts),
	)
	return cmd
}

// setup loads configuration and builds the logger for commands that call
// the model.
func (o *rootOptions) setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return cfg, nil, err
	}
	if o.granularity != "" {
		cfg.Granularity = doctree.Granularity(o.granularity)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	log, err := o.logger(cmd, cfg)
	return cfg, log, err
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	w := cmd.ErrOrStderr()
	if o.logFile != "" {
		if err := os.MkdirAll(filepath.Dir(o.logFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		o.closers = append(o.closers, f)
		w = io.MultiWriter(w, f)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
