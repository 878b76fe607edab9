package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bhnan/Long-text-evaluation/internal/metrics"
)

const (
	TextFile     = "summary_report.txt"
	MarkdownFile = "summary.md"
	HTMLFile     = "summary.html"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders the summary with criteria and per-unit tables.
func (s Summary) Markdown() (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", s.DocumentTitle)
	if s.Topic != "" {
		fmt.Fprintf(&sb, "- Topic: %s\n", s.Topic)
	}
	if s.EvaluationTime != "" {
		fmt.Fprintf(&sb, "- Evaluated: %s\n", s.EvaluationTime)
	}
	fmt.Fprintf(&sb, "- Sections: %d\n", len(s.Units))
	if s.CoherenceAverage != nil {
		fmt.Fprintf(&sb, "- Section coherence: %.2f\n", *s.CoherenceAverage)
	}

	sb.WriteString("\n## Criteria\n\n")
	if err := WriteCriteriaTable(&sb, s); err != nil {
		return "", err
	}
	sb.WriteString("\n## Sections\n\n")
	if err := WriteUnitsTable(&sb, s); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// HTML renders the markdown form to HTML.
func (s Summary) HTML() (string, error) {
	text, err := s.Markdown()
	if err != nil {
		return "", err
	}
	return toHTML(text)
}

func toHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Write stores all report forms under dir/<document title> and returns that
// directory. Criterion gauges are updated with the summary averages.
func Write(dir string, s Summary) (string, error) {
	out := filepath.Join(dir, s.DocumentTitle)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	markdown, err := s.Markdown()
	if err != nil {
		return "", err
	}
	html, err := toHTML(markdown)
	if err != nil {
		return "", err
	}
	files := map[string]string{
		TextFile:     s.Text(),
		MarkdownFile: markdown,
		HTMLFile:     html,
	}
	for name, content := range files {
		if err := atomic.WriteFile(filepath.Join(out, name), strings.NewReader(content)); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	for _, c := range s.Criteria {
		if c.Average != nil {
			metrics.CriterionScore.WithLabelValues(c.ID).Set(*c.Average)
		}
	}
	return out, nil
}
