package rubric

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

type fakeScorer struct {
	prompts []string
	next    func(n int) doctree.ItemScore
	err     error
}

func (f *fakeScorer) Score(_ context.Context, prompt string) (doctree.ItemScore, error) {
	if f.err != nil {
		return doctree.ItemScore{}, f.err
	}
	f.prompts = append(f.prompts, prompt)
	if f.next != nil {
		return f.next(len(f.prompts)), nil
	}
	return valid(4), nil
}

func valid(v float64) doctree.ItemScore {
	return doctree.ItemScore{Score: doctree.Float(v), Explanation: doctree.String("ok"), Status: doctree.StatusValid}
}

func failedItem() doctree.ItemScore {
	return doctree.ItemScore{Score: doctree.Float(0), Status: doctree.StatusFailed}
}

func mustDefault(t *testing.T) *Rubric {
	t.Helper()
	r, err := Default()
	if err != nil {
		t.Fatalf("default rubric: %v", err)
	}
	return r
}

func TestDefault_HasFiveCriteria(t *testing.T) {
	r := mustDefault(t)
	want := []string{"accuracy_relevance", "coherence", "fluency", "style_consistency", "completeness_depth"}
	if diff := cmp.Diff(want, r.IDs()); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}
	if r.Criterion("coherence").Kind != KindPair {
		t.Error("expected coherence to be a pair criterion")
	}
}

func TestRender_BindsBriefAndGrades(t *testing.T) {
	r := mustDefault(t)
	prompt, err := r.Render(r.Criterion("accuracy_relevance"), PromptData{
		Brief:     Brief{Topic: "医疗人工智能", Description: "应用与挑战"},
		Paragraph: "这是一个段落。",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"主题：医疗人工智能", "主题描述：应用与挑战", "这是一个段落。", "1分（很差）", "5分（优秀）", `"reasoning"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestParse_RejectsBadRubric(t *testing.T) {
	tests := map[string]string{
		"no criteria":  "criteria: []\n",
		"bad kind":     "criteria:\n  - id: x\n    kind: weird\n    grades: [a, b, c, d, e]\n",
		"short grades": "criteria:\n  - id: x\n    kind: paragraph\n    grades: [a]\n",
		"duplicate":    "criteria:\n  - {id: x, kind: paragraph, grades: [a, b, c, d, e]}\n  - {id: x, kind: paragraph, grades: [a, b, c, d, e]}\n",
		"bad template": "criteria:\n  - {id: x, kind: paragraph, grades: [a, b, c, d, e], prompt: '{{.Nope'}\n",
		"unknown sc":   "criteria:\n  - {id: x, kind: paragraph, grades: [a, b, c, d, e]}\nsection_coherence:\n  criterion: y\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	data := `output_format: "只输出JSON"
criteria:
  - id: clarity
    name: 清晰度
    kind: paragraph
    summary: 清晰度评分
    grades: [a, b, c, d, e]
    prompt: "评估：{{.Paragraph}}"
section_coherence:
  criterion: clarity
  prompt: "{{.First}} / {{.Second}}"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"clarity"}, r.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParagraphEvaluator_MeanAndExplanation(t *testing.T) {
	r := mustDefault(t)
	scores := []float64{4, 3, 5}
	s := &fakeScorer{next: func(n int) doctree.ItemScore { return valid(scores[n-1]) }}
	ev := &paragraphEvaluator{rubric: r, criterion: r.Criterion("fluency"), scorer: s}

	u := &doctree.Unit{Title: "一、章节", Paragraphs: []string{"a", "b", "c"}}
	cs, err := ev.Evaluate(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.prompts) != 3 {
		t.Fatalf("expected one call per paragraph, got %d", len(s.prompts))
	}
	if cs.OverallScore == nil || *cs.OverallScore != 4 {
		t.Errorf("expected overall 4, got %v", cs.OverallScore)
	}
	want := "段落流畅度评分: 4.0, 3.0, 5.0。整体评分为各段落评分的平均值。"
	if cs.OverallExplanation != want {
		t.Errorf("expected explanation %q, got %q", want, cs.OverallExplanation)
	}
}

func TestAggregate_RoundsToOneDecimal(t *testing.T) {
	c := &Criterion{Summary: "段落评分", SummarySuffix: "。"}
	cs := Aggregate(c, []doctree.ItemScore{valid(4), valid(4), valid(3)})
	if *cs.OverallScore != 3.7 {
		t.Errorf("expected 3.7, got %v", *cs.OverallScore)
	}
}

func TestAggregate_ExcludesFailedItems(t *testing.T) {
	r := mustDefault(t)
	c := r.Criterion("accuracy_relevance")

	cs := Aggregate(c, []doctree.ItemScore{valid(4), failedItem(), valid(2)})
	if cs.OverallScore == nil || *cs.OverallScore != 3 {
		t.Fatalf("expected mean of valid items 3, got %v", cs.OverallScore)
	}
	if !strings.Contains(cs.OverallExplanation, "4.0, 解析失败, 2.0") {
		t.Errorf("expected failed item in explanation, got %q", cs.OverallExplanation)
	}
	if len(cs.Breakdown) != 3 {
		t.Errorf("expected breakdown to keep all items, got %d", len(cs.Breakdown))
	}

	all := Aggregate(c, []doctree.ItemScore{failedItem(), failedItem()})
	if all.OverallScore != nil {
		t.Errorf("expected absent overall when every item failed, got %v", *all.OverallScore)
	}
}

func TestPairEvaluator_SkipsPairsAcrossHeadings(t *testing.T) {
	r := mustDefault(t)
	s := &fakeScorer{}
	ev := &pairEvaluator{rubric: r, criterion: r.Criterion("coherence"), scorer: s}

	a := "1 标题A"
	u := &doctree.Unit{
		Title: "一、章节",
		Children: []*doctree.Unit{
			{Title: "1 标题A", Paragraphs: []string{"p1", "p2"}},
			{Title: "2 标题B", Paragraphs: []string{"p3"}, ParentTitle: &a},
		},
	}
	cs, err := ev.Evaluate(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.prompts) != 1 {
		t.Fatalf("expected exactly one scoring call, got %d", len(s.prompts))
	}
	if !strings.Contains(s.prompts[0], "段落1：\np1") || !strings.Contains(s.prompts[0], "段落2：\np2") {
		t.Errorf("expected (p1, p2) pair, got prompt:\n%s", s.prompts[0])
	}
	if cs.OverallScore == nil || *cs.OverallScore != 4 {
		t.Errorf("expected overall 4, got %v", cs.OverallScore)
	}
}

func TestPairEvaluator_NoPairsIsAbsent(t *testing.T) {
	r := mustDefault(t)
	s := &fakeScorer{}
	ev := &pairEvaluator{rubric: r, criterion: r.Criterion("coherence"), scorer: s}

	cs, err := ev.Evaluate(context.Background(), &doctree.Unit{Title: "一、单段", Paragraphs: []string{"only"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.OverallScore != nil {
		t.Errorf("expected absent overall score, got %v", *cs.OverallScore)
	}
	if cs.OverallExplanation != "该章节只包含一个段落或所有段落属于不同标题，无法评估连贯性。" {
		t.Errorf("unexpected explanation %q", cs.OverallExplanation)
	}
	if len(s.prompts) != 0 {
		t.Errorf("expected no calls, got %d", len(s.prompts))
	}
}

func TestEvaluator_PropagatesCancellation(t *testing.T) {
	r := mustDefault(t)
	s := &fakeScorer{err: context.Canceled}
	reg, err := NewRegistry(r, Brief{}, s)
	if err != nil {
		t.Fatal(err)
	}
	u := &doctree.Unit{Paragraphs: []string{"a", "b"}}
	for _, e := range reg.Entries() {
		if _, err := e.Evaluator.Evaluate(context.Background(), u); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", e.ID, err)
		}
	}
}

type constEvaluator struct{ score float64 }

func (c constEvaluator) Evaluate(context.Context, *doctree.Unit) (doctree.CriterionScore, error) {
	return doctree.CriterionScore{OverallScore: doctree.Float(c.score)}, nil
}

func TestRegistry_RegisterAddsAndReplaces(t *testing.T) {
	reg, err := NewRegistry(mustDefault(t), Brief{}, &fakeScorer{})
	if err != nil {
		t.Fatal(err)
	}
	reg.Register("originality", constEvaluator{3})
	reg.Register("fluency", constEvaluator{5})

	entries := reg.Entries()
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	if entries[5].ID != "originality" || !reg.Has("originality") {
		t.Error("expected new criterion appended")
	}
	if _, ok := entries[2].Evaluator.(constEvaluator); !ok || entries[2].ID != "fluency" {
		t.Error("expected fluency replaced in place")
	}
}

func TestFormatScore(t *testing.T) {
	for v, want := range map[float64]string{4: "4.0", 3.5: "3.5", 2.75: "2.75", 0: "0.0"} {
		if got := FormatScore(v); got != want {
			t.Errorf("FormatScore(%v) = %q, want %q", v, got, want)
		}
	}
}
