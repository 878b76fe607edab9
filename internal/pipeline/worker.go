package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/bhnan/Long-text-evaluation/internal/parser"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

// Worker processes a single evaluation job.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs parse, evaluation and persistence for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	data := job.FileData()
	tree, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.ContentHash = ContentHashHex(data)

	units := tree.Units(w.runner.Granularity)
	if len(units) == 0 {
		log.Warn("no evaluable units")
		job.AddError("no evaluable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetTotalUnits(len(units))

	// Phase 2: Evaluate. A re-upload of the same file and brief resumes.
	job.SetStatus(StatusEvaluating, "evaluating units")
	brief := rubric.Brief{
		Topic:         job.Topic,
		Description:   job.Description,
		ExpectedStyle: job.ExpectedStyle,
	}
	doc := Document{
		Title:         job.Title,
		Brief:         brief,
		Tree:          tree,
		CheckpointKey: CheckpointKey(job.Title, data, brief),
	}
	out, err := w.runner.Run(ctx, doc, func(p EvalProgress) {
		job.Observe(p)
		if p.State == StateCoherenceLoop && p.PairsDone == p.PairsTotal {
			job.SetStatus(StatusSaving, "saving results")
		}
	})
	if err != nil {
		if out != nil {
			// Results are saved; only the report failed.
			log.Warn("report failed", "error", err)
			job.AddError(err.Error())
			job.Complete(out.ResultPath, "")
			return
		}
		log.Error("evaluation failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "evaluating")
		return
	}

	log.Info("evaluation complete", "result", out.ResultPath, "report", out.ReportDir, "units", len(out.Sections))
	job.Complete(out.ResultPath, out.ReportDir)
}
