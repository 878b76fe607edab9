package doctree

import (
	"errors"
	"fmt"
)

const (
	MinScore = 1.0
	MaxScore = 5.0
)

// ItemStatus distinguishes a scored item from a degraded or skipped one.
type ItemStatus string

const (
	StatusValid   ItemStatus = "valid"
	StatusFailed  ItemStatus = "failed"  // score recorded as 0, explanation absent
	StatusSkipped ItemStatus = "skipped" // not evaluable, score absent
)

// ItemScore is one scoring call's outcome.
type ItemScore struct {
	Score       *float64   `json:"score"`
	Explanation *string    `json:"explanation"`
	Status      ItemStatus `json:"status"`
}

// CriterionScore aggregates the item scores of one criterion for one unit.
// A nil OverallScore means the criterion was not evaluable for the unit.
type CriterionScore struct {
	OverallScore       *float64    `json:"overall_score"`
	OverallExplanation string      `json:"overall_explanation"`
	Breakdown          []ItemScore `json:"breakdown"`
}

// EvaluatedUnit is a Unit with its per-criterion scores.
type EvaluatedUnit struct {
	Unit
	Scores           map[string]CriterionScore `json:"scores"`
	SectionCoherence *ItemScore                `json:"section_coherence,omitempty"`
}

// InRange reports whether v is a valid rubric score.
func InRange(v float64) bool {
	return v >= MinScore && v <= MaxScore
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }

var errInvalidScore = errors.New("invalid score")

// Validate checks an item against the tri-state score rules.
func (s ItemScore) Validate() error {
	switch s.Status {
	case StatusValid:
		if s.Score == nil || !InRange(*s.Score) {
			return fmt.Errorf("%w: valid item needs a score in [1,5]", errInvalidScore)
		}
		if s.Explanation == nil {
			return fmt.Errorf("%w: valid item without explanation", errInvalidScore)
		}
	case StatusFailed:
		if s.Score == nil || *s.Score != 0 {
			return fmt.Errorf("%w: failed item must record 0", errInvalidScore)
		}
	case StatusSkipped:
		if s.Score != nil {
			return fmt.Errorf("%w: skipped item carries a score", errInvalidScore)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", errInvalidScore, s.Status)
	}
	return nil
}

// Validate checks that every recorded score is structurally sound.
func (e *EvaluatedUnit) Validate() error {
	for id, cs := range e.Scores {
		if cs.OverallScore != nil && !InRange(*cs.OverallScore) {
			return fmt.Errorf("criterion %s: overall score %v out of range", id, *cs.OverallScore)
		}
		for i, item := range cs.Breakdown {
			if err := item.Validate(); err != nil {
				return fmt.Errorf("criterion %s item %d: %w", id, i, err)
			}
		}
	}
	if e.SectionCoherence != nil {
		if err := e.SectionCoherence.Validate(); err != nil {
			return fmt.Errorf("section coherence: %w", err)
		}
	}
	return nil
}
