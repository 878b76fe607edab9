package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bhnan/Long-text-evaluation/internal/checkpoint"
	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/extract"
	"github.com/bhnan/Long-text-evaluation/internal/report"
	"github.com/bhnan/Long-text-evaluation/internal/results"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

// Runner evaluates whole documents and persists their results and reports.
// One Runner is shared by every concurrent document; the gateway it holds
// carries the global quota.
type Runner struct {
	Gateway     extract.Sender
	Rubric      *rubric.Rubric
	Granularity doctree.Granularity
	MaxAttempts int

	CheckpointDir string
	ResultsDir    string
	// ReportDir may be empty to skip report files.
	ReportDir string

	Log *slog.Logger

	// Backoff overrides the retry schedule of scoring calls.
	Backoff func() backoff.BackOff
	// Now overrides the clock used to stamp result files.
	Now func() time.Time
}

// Document is one evaluation request.
type Document struct {
	Title string
	Brief rubric.Brief
	Tree  *doctree.DocTree

	// CheckpointKey names the checkpoint file; defaults to Title.
	CheckpointKey string
}

// Outcome is what a completed run produced.
type Outcome struct {
	Sections   []*doctree.EvaluatedUnit
	ResultPath string
	ReportDir  string
	Summary    report.Summary
}

// CheckpointKey names a document's checkpoint by title plus a digest of its
// content and brief. Same-named documents with different text or briefs get
// different checkpoints; an identical request resumes the same one.
func CheckpointKey(title string, content []byte, b rubric.Brief) string {
	h := sha256.New()
	h.Write(content)
	for _, f := range []string{b.Topic, b.Description, b.ExpectedStyle} {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return fmt.Sprintf("%s-%x", title, h.Sum(nil)[:6])
}

// CheckpointPath returns where doc's checkpoint lives.
func (r *Runner) CheckpointPath(doc Document) string {
	key := doc.CheckpointKey
	if key == "" {
		key = doc.Title
	}
	return checkpoint.PathFor(r.CheckpointDir, key)
}

// Run evaluates doc, writes its result file, clears its checkpoint and writes
// the report. A canceled ctx leaves the checkpoint for the next run.
func (r *Runner) Run(ctx context.Context, doc Document, progress func(EvalProgress)) (*Outcome, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("doc", doc.Title)

	scorer := NewScorer(r.Gateway, r.MaxAttempts, log)
	if r.Backoff != nil {
		scorer.backoff = r.Backoff
	}
	reg, err := rubric.NewRegistry(r.Rubric, doc.Brief, scorer)
	if err != nil {
		return nil, err
	}

	units := doc.Tree.Units(r.Granularity)
	log.Info("starting evaluation", "units", len(units), "granularity", r.Granularity)

	ev := NewEvaluation(EvaluationConfig{
		Units:    units,
		Rubric:   r.Rubric,
		Registry: reg,
		Brief:    doc.Brief,
		Scorer:   scorer,
		Store:    checkpoint.NewStore(r.CheckpointPath(doc)),
		Log:      log,
		Progress: progress,
	})
	sections, err := ev.Run(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	file := results.New(doc.Title, doc.Brief.Topic, sections, now())
	path, err := results.Save(r.ResultsDir, file)
	if err != nil {
		return nil, err
	}
	log.Info("results saved", "path", path)

	if err := ev.Finish(); err != nil {
		log.Warn("checkpoint not cleared", "error", err)
	}

	out := &Outcome{Sections: sections, ResultPath: path, Summary: report.Summarize(file, r.Rubric)}
	if r.ReportDir != "" {
		dir, err := report.Write(r.ReportDir, out.Summary)
		if err != nil {
			return out, fmt.Errorf("write report: %w", err)
		}
		out.ReportDir = dir
	}
	return out, nil
}
