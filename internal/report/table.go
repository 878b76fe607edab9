package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

func createStandardTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// WriteCriteriaTable writes averages and score distribution per criterion.
// The output is a valid markdown table.
func WriteCriteriaTable(w io.Writer, s Summary) error {
	table := createStandardTable([]string{"Criterion", "Average", "Evaluated", "1", "2", "3", "4", "5"}, w)
	for _, c := range s.Criteria {
		row := []string{c.Label(), formatAverage(c.Average), strconv.Itoa(c.Evaluated)}
		for _, n := range c.Distribution {
			row = append(row, strconv.Itoa(n))
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return table.Render()
}

// WriteUnitsTable writes one row per unit with its overall scores.
func WriteUnitsTable(w io.Writer, s Summary) error {
	headers := []string{"Section"}
	for _, c := range s.Criteria {
		headers = append(headers, c.ID)
	}
	headers = append(headers, "section_coherence")

	table := createStandardTable(headers, w)
	for _, u := range s.Units {
		row := []string{u.Title}
		for _, c := range s.Criteria {
			row = append(row, formatAverage(u.Scores[c.ID]))
		}
		row = append(row, coherenceCell(u))
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return table.Render()
}

func coherenceCell(u UnitRow) string {
	if u.Coherence == nil {
		return "-"
	}
	if u.Coherence.Score == nil {
		return string(u.Coherence.Status)
	}
	return formatAverage(u.Coherence.Score)
}

// Comparison is one criterion's averages in two result files.
type Comparison struct {
	Label string
	A, B  *float64
}

// Delta is B minus A, or nil if either side is absent.
func (c Comparison) Delta() *float64 {
	if c.A == nil || c.B == nil {
		return nil
	}
	d := *c.B - *c.A
	return &d
}

// Compare pairs the criteria of a and b by id, in a's order followed by ids
// only b has.
func Compare(a, b Summary) []Comparison {
	var out []Comparison
	seen := make(map[string]bool)
	for _, c := range a.Criteria {
		seen[c.ID] = true
		other, _ := b.Average(c.ID)
		out = append(out, Comparison{Label: c.Label(), A: c.Average, B: other})
	}
	for _, c := range b.Criteria {
		if !seen[c.ID] {
			out = append(out, Comparison{Label: c.Label(), B: c.Average})
		}
	}
	return out
}

// WriteComparison writes a side-by-side table of two summaries.
func WriteComparison(w io.Writer, a, b Summary) error {
	table := createStandardTable([]string{"Criterion", runLabel(a), runLabel(b), "Delta"}, w)
	for _, c := range Compare(a, b) {
		delta := "-"
		if d := c.Delta(); d != nil {
			delta = fmt.Sprintf("%+.2f", *d)
		}
		if err := table.Append([]string{c.Label, formatAverage(c.A), formatAverage(c.B), delta}); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return table.Render()
}

func runLabel(s Summary) string {
	if s.EvaluationTime == "" {
		return s.DocumentTitle
	}
	return s.DocumentTitle + " (" + s.EvaluationTime + ")"
}
