package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/results"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

func unit(title string, scores map[string]*float64) *doctree.EvaluatedUnit {
	eu := &doctree.EvaluatedUnit{
		Unit:   doctree.Unit{Title: title, Level: doctree.LevelSection},
		Scores: make(map[string]doctree.CriterionScore),
	}
	for id, v := range scores {
		eu.Scores[id] = doctree.CriterionScore{OverallScore: v, Breakdown: []doctree.ItemScore{}}
	}
	return eu
}

func sample() *results.File {
	a := unit("一、引言", map[string]*float64{"fluency": doctree.Float(4), "coherence": nil})
	a.SectionCoherence = &doctree.ItemScore{Score: doctree.Float(3), Explanation: doctree.String("ok"), Status: doctree.StatusValid}
	b := unit("二、方法", map[string]*float64{"fluency": doctree.Float(2.5), "coherence": doctree.Float(3), "originality": doctree.Float(5)})
	return &results.File{DocumentTitle: "报告", EvaluationTime: "20250101_120000", Topic: "AI", Sections: []*doctree.EvaluatedUnit{a, b}}
}

func mustRubric(t *testing.T) *rubric.Rubric {
	t.Helper()
	rb, err := rubric.Default()
	require.NoError(t, err)
	return rb
}

func TestSummarize_AveragesExcludeAbsent(t *testing.T) {
	s := Summarize(sample(), mustRubric(t))

	fluency, ok := s.Average("fluency")
	require.True(t, ok)
	require.NotNil(t, fluency)
	assert.InDelta(t, 3.25, *fluency, 1e-9)

	coherence, _ := s.Average("coherence")
	require.NotNil(t, coherence)
	assert.InDelta(t, 3.0, *coherence, 1e-9)

	accuracy, ok := s.Average("accuracy_relevance")
	require.True(t, ok)
	assert.Nil(t, accuracy)

	require.NotNil(t, s.CoherenceAverage)
	assert.InDelta(t, 3.0, *s.CoherenceAverage, 1e-9)
}

func TestSummarize_OrderAndDistribution(t *testing.T) {
	s := Summarize(sample(), mustRubric(t))
	var ids []string
	for _, c := range s.Criteria {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"accuracy_relevance", "coherence", "fluency", "style_consistency", "completeness_depth", "originality"}, ids)

	fluency := s.Criteria[2]
	assert.Equal(t, "Language Fluency and Expression", fluency.Label())
	assert.Equal(t, 2, fluency.Evaluated)
	assert.Equal(t, [5]int{0, 0, 1, 1, 0}, fluency.Distribution)
	assert.Equal(t, "originality", s.Criteria[5].Label())
}

func TestSummary_Text(t *testing.T) {
	text := Summarize(sample(), mustRubric(t)).Text()
	for _, want := range []string{
		"Average Scores:\n",
		"  Language Fluency and Expression: 3.25\n",
		"  Section Coherence: 3.00\n",
		"\nLanguage Fluency and Expression:\n  一、引言: 4.0\n  二、方法: 2.5\n",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "Content Accuracy and Relevance: ")
}

func TestWrite_AllForms(t *testing.T) {
	dir := t.TempDir()
	out, err := Write(dir, Summarize(sample(), mustRubric(t)))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "报告"), out)

	for _, name := range []string{TextFile, MarkdownFile, HTMLFile} {
		_, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
	}
	html, err := os.ReadFile(filepath.Join(out, HTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>报告</h1>")
	assert.Contains(t, string(html), "<table>")
}

func TestWriteComparison(t *testing.T) {
	rb := mustRubric(t)
	a := Summarize(sample(), rb)
	second := sample()
	second.EvaluationTime = "20250102_120000"
	second.Sections[0].Scores["fluency"] = doctree.CriterionScore{OverallScore: doctree.Float(5), Breakdown: []doctree.ItemScore{}}
	b := Summarize(second, rb)

	cmp := Compare(a, b)
	require.Len(t, cmp, 6)
	d := cmp[2].Delta()
	require.NotNil(t, d)
	assert.InDelta(t, 0.5, *d, 1e-9)
	assert.Nil(t, cmp[0].Delta())

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, a, b))
	out := buf.String()
	assert.Contains(t, out, "+0.50")
	assert.True(t, strings.Contains(out, "20250101_120000") && strings.Contains(out, "20250102_120000"))
}
