// Package report aggregates result files into per-criterion summaries and
// renders them as text, markdown and HTML.
package report

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/results"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

// CriterionSummary aggregates one criterion across all units.
type CriterionSummary struct {
	ID      string
	Name    string
	English string

	// Average of numeric overall scores; nil when no unit had one.
	Average *float64
	// Evaluated counts units with a numeric overall score.
	Evaluated int
	// Distribution[i] counts overall scores rounding to i+1.
	Distribution [5]int
}

// Label is the English display name, falling back to the id.
func (c CriterionSummary) Label() string {
	if c.English != "" {
		return c.English
	}
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// UnitRow is one unit's overall scores keyed by criterion id.
type UnitRow struct {
	Title     string
	Scores    map[string]*float64
	Coherence *doctree.ItemScore
}

// Summary is the aggregated view of a result file.
type Summary struct {
	DocumentTitle  string
	EvaluationTime string
	Topic          string
	Criteria       []CriterionSummary
	Units          []UnitRow

	// CoherenceAverage covers valid adjacent-unit coherence scores.
	CoherenceAverage *float64
}

// Summarize aggregates f. Criteria follow rubric order; ids present in the
// file but unknown to the rubric are appended in sorted order.
func Summarize(f *results.File, rb *rubric.Rubric) Summary {
	s := Summary{
		DocumentTitle:  f.DocumentTitle,
		EvaluationTime: f.EvaluationTime,
		Topic:          f.Topic,
	}

	var ids []string
	if rb != nil {
		ids = rb.IDs()
	}
	var extra []string
	for _, u := range f.Sections {
		for id := range u.Scores {
			if !slices.Contains(ids, id) && !slices.Contains(extra, id) {
				extra = append(extra, id)
			}
		}
	}
	sort.Strings(extra)
	ids = append(ids, extra...)

	for _, id := range ids {
		cs := CriterionSummary{ID: id}
		if rb != nil {
			if c := rb.Criterion(id); c != nil {
				cs.Name, cs.English = c.Name, c.English
			}
		}
		var total float64
		for _, u := range f.Sections {
			score, ok := u.Scores[id]
			if !ok || score.OverallScore == nil {
				continue
			}
			v := *score.OverallScore
			total += v
			cs.Evaluated++
			if b := int(math.Round(v)); b >= 1 && b <= 5 {
				cs.Distribution[b-1]++
			}
		}
		if cs.Evaluated > 0 {
			cs.Average = doctree.Float(total / float64(cs.Evaluated))
		}
		s.Criteria = append(s.Criteria, cs)
	}

	var cohTotal float64
	var cohN int
	for _, u := range f.Sections {
		row := UnitRow{Title: u.Title, Scores: make(map[string]*float64, len(u.Scores)), Coherence: u.SectionCoherence}
		for id, score := range u.Scores {
			row.Scores[id] = score.OverallScore
		}
		s.Units = append(s.Units, row)
		if c := u.SectionCoherence; c != nil && c.Status == doctree.StatusValid && c.Score != nil {
			cohTotal += *c.Score
			cohN++
		}
	}
	if cohN > 0 {
		s.CoherenceAverage = doctree.Float(cohTotal / float64(cohN))
	}
	return s
}

// Average returns the summary for id, or false.
func (s Summary) Average(id string) (*float64, bool) {
	for _, c := range s.Criteria {
		if c.ID == id {
			return c.Average, true
		}
	}
	return nil, false
}

// Text renders the plain summary_report.txt form.
func (s Summary) Text() string {
	var sb strings.Builder
	sb.WriteString("Evaluation Results Summary:\n\n")
	sb.WriteString("Average Scores:\n")
	for _, c := range s.Criteria {
		if c.Average == nil {
			continue
		}
		fmt.Fprintf(&sb, "  %s: %.2f\n", c.Label(), *c.Average)
	}
	if s.CoherenceAverage != nil {
		fmt.Fprintf(&sb, "  Section Coherence: %.2f\n", *s.CoherenceAverage)
	}

	sb.WriteString("\nScore Distribution for Each Criterion:\n")
	for _, c := range s.Criteria {
		fmt.Fprintf(&sb, "\n%s:\n", c.Label())
		for _, u := range s.Units {
			if v := u.Scores[c.ID]; v != nil {
				fmt.Fprintf(&sb, "  %s: %s\n", u.Title, rubric.FormatScore(*v))
			}
		}
	}
	return sb.String()
}

func formatAverage(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
