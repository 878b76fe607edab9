package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bhnan/Long-text-evaluation/internal/checkpoint"
	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/metrics"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

// ErrCheckpointMismatch means the checkpoint on disk belongs to a different
// document or rubric than the run being resumed.
var ErrCheckpointMismatch = errors.New("checkpoint does not match document")

// State is a phase of an Evaluation.
type State string

const (
	StateLoading       State = "loading"
	StateUnitLoop      State = "unit_loop"
	StateCoherenceLoop State = "coherence_loop"
	StateDone          State = "done"
)

// EvalProgress is reported after every checkpoint write.
type EvalProgress struct {
	State      State
	UnitsTotal int
	UnitsDone  int
	PairsTotal int
	PairsDone  int
}

// EvaluationConfig wires an Evaluation.
type EvaluationConfig struct {
	Units    []*doctree.Unit
	Rubric   *rubric.Rubric
	Registry *rubric.Registry
	Brief    rubric.Brief
	Scorer   rubric.Scorer
	Store    *checkpoint.Store
	Log      *slog.Logger
	Progress func(EvalProgress)
}

// Evaluation scores the units of one document, checkpointing after every
// unit and every adjacent-unit coherence score so a killed run resumes where
// it stopped.
type Evaluation struct {
	cfg EvaluationConfig

	mu    sync.Mutex
	state State
}

func NewEvaluation(cfg EvaluationConfig) *Evaluation {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Brief.ExpectedStyle == "" {
		cfg.Brief.ExpectedStyle = rubric.DefaultExpectedStyle
	}
	return &Evaluation{cfg: cfg, state: StateLoading}
}

// State returns the current phase.
func (e *Evaluation) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Evaluation) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.cfg.Log.Debug("evaluation state", "state", s)
}

// Run evaluates every unit not yet in the checkpoint, then scores coherence
// between adjacent units. The checkpoint is left in place; call Finish once
// the results are persisted elsewhere.
func (e *Evaluation) Run(ctx context.Context) ([]*doctree.EvaluatedUnit, error) {
	e.setState(StateLoading)
	done, err := e.cfg.Store.Load()
	if err != nil {
		return nil, err
	}
	if err := e.verify(done); err != nil {
		return nil, err
	}
	if len(done) > 0 {
		e.cfg.Log.Info("resuming from checkpoint", "path", e.cfg.Store.Path(), "units_done", len(done), "units_total", len(e.cfg.Units))
	}

	e.setState(StateUnitLoop)
	entries := e.cfg.Registry.Entries()
	for i := len(done); i < len(e.cfg.Units); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u := e.cfg.Units[i]
		log := e.cfg.Log.With("unit", i, "title", u.Title)
		log.Info("evaluating unit")

		eu := &doctree.EvaluatedUnit{Unit: *u, Scores: make(map[string]doctree.CriterionScore, len(entries))}
		for _, entry := range entries {
			cs, err := entry.Evaluator.Evaluate(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("unit %d criterion %s: %w", i, entry.ID, err)
			}
			eu.Scores[entry.ID] = cs
		}

		done = append(done, eu)
		if err := e.cfg.Store.Save(done); err != nil {
			return nil, err
		}
		metrics.UnitsEvaluated.Inc()
		e.report(done)
	}

	e.setState(StateCoherenceLoop)
	for i := 0; i+1 < len(done); i++ {
		if done[i].SectionCoherence != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := e.sectionCoherence(ctx, done[i], done[i+1])
		if err != nil {
			return nil, fmt.Errorf("coherence %d-%d: %w", i, i+1, err)
		}
		done[i].SectionCoherence = &item
		if err := e.cfg.Store.Save(done); err != nil {
			return nil, err
		}
		e.report(done)
	}

	e.setState(StateDone)
	return done, nil
}

// Finish removes the checkpoint after a completed run.
func (e *Evaluation) Finish() error {
	return e.cfg.Store.Clear()
}

// verify checks that checkpointed units are a prefix of this run's units and
// were scored with the same criteria.
func (e *Evaluation) verify(done []*doctree.EvaluatedUnit) error {
	if len(done) > len(e.cfg.Units) {
		return fmt.Errorf("%w: %d checkpointed units, document has %d", ErrCheckpointMismatch, len(done), len(e.cfg.Units))
	}
	entries := e.cfg.Registry.Entries()
	for i, eu := range done {
		if eu.Title != e.cfg.Units[i].Title {
			return fmt.Errorf("%w: unit %d is %q, checkpoint has %q", ErrCheckpointMismatch, i, e.cfg.Units[i].Title, eu.Title)
		}
		if len(eu.Scores) != len(entries) {
			return fmt.Errorf("%w: unit %d has %d criteria, want %d", ErrCheckpointMismatch, i, len(eu.Scores), len(entries))
		}
		for _, entry := range entries {
			if _, ok := eu.Scores[entry.ID]; !ok {
				return fmt.Errorf("%w: unit %d missing criterion %s", ErrCheckpointMismatch, i, entry.ID)
			}
		}
	}
	return nil
}

func (e *Evaluation) sectionCoherence(ctx context.Context, a, b *doctree.EvaluatedUnit) (doctree.ItemScore, error) {
	sc := e.cfg.Rubric.SectionCoherence
	if !doctree.SameParent(&a.Unit, &b.Unit) {
		return doctree.ItemScore{Explanation: doctree.String(sc.SkipExplanation), Status: doctree.StatusSkipped}, nil
	}
	first, second := a.Flatten(), b.Flatten()
	if len(first) == 0 || len(second) == 0 {
		return doctree.ItemScore{Explanation: doctree.String(sc.SkipExplanation), Status: doctree.StatusSkipped}, nil
	}
	prompt, err := e.cfg.Rubric.RenderSectionCoherence(rubric.PromptData{
		Brief:       e.cfg.Brief,
		FirstTitle:  a.Title,
		First:       first[len(first)-1].Text,
		SecondTitle: b.Title,
		Second:      second[0].Text,
	})
	if err != nil {
		return doctree.ItemScore{}, err
	}
	return e.cfg.Scorer.Score(ctx, prompt)
}

func (e *Evaluation) report(done []*doctree.EvaluatedUnit) {
	if e.cfg.Progress == nil {
		return
	}
	p := EvalProgress{
		State:      e.State(),
		UnitsTotal: len(e.cfg.Units),
		UnitsDone:  len(done),
	}
	if p.UnitsTotal > 1 {
		p.PairsTotal = p.UnitsTotal - 1
	}
	for i := 0; i+1 < len(done); i++ {
		if done[i].SectionCoherence != nil {
			p.PairsDone++
		}
	}
	e.cfg.Progress(p)
}
