package rubric

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

const (
	noParagraphsExplanation = "该章节没有可评估的段落。"
	allFailedExplanation    = "所有评分调用均未得到有效结果，无法计算整体评分。"
	failedLabel             = "解析失败"
)

// Scorer issues one scoring prompt and returns the recorded item. It only
// errors when the run is cancelled.
type Scorer interface {
	Score(ctx context.Context, prompt string) (doctree.ItemScore, error)
}

// Evaluator scores one unit on one criterion.
type Evaluator interface {
	Evaluate(ctx context.Context, u *doctree.Unit) (doctree.CriterionScore, error)
}

type paragraphEvaluator struct {
	rubric    *Rubric
	criterion *Criterion
	brief     Brief
	scorer    Scorer
}

// Evaluate issues one call per paragraph, in order.
func (e *paragraphEvaluator) Evaluate(ctx context.Context, u *doctree.Unit) (doctree.CriterionScore, error) {
	paras := u.Flatten()
	if len(paras) == 0 {
		return doctree.CriterionScore{OverallExplanation: noParagraphsExplanation, Breakdown: []doctree.ItemScore{}}, nil
	}
	items := make([]doctree.ItemScore, 0, len(paras))
	for _, p := range paras {
		prompt, err := e.rubric.Render(e.criterion, PromptData{Brief: e.brief, Paragraph: p.Text})
		if err != nil {
			return doctree.CriterionScore{}, err
		}
		item, err := e.scorer.Score(ctx, prompt)
		if err != nil {
			return doctree.CriterionScore{}, err
		}
		items = append(items, item)
	}
	return Aggregate(e.criterion, items), nil
}

type pairEvaluator struct {
	rubric    *Rubric
	criterion *Criterion
	brief     Brief
	scorer    Scorer
}

// Evaluate issues one call per adjacent paragraph pair that shares a
// sub-title grouping. Pairs crossing a heading are skipped.
func (e *pairEvaluator) Evaluate(ctx context.Context, u *doctree.Unit) (doctree.CriterionScore, error) {
	paras := u.Flatten()
	var items []doctree.ItemScore
	for i := 0; i+1 < len(paras); i++ {
		if paras[i].Group != paras[i+1].Group {
			continue
		}
		prompt, err := e.rubric.Render(e.criterion, PromptData{
			Brief:  e.brief,
			First:  paras[i].Text,
			Second: paras[i+1].Text,
		})
		if err != nil {
			return doctree.CriterionScore{}, err
		}
		item, err := e.scorer.Score(ctx, prompt)
		if err != nil {
			return doctree.CriterionScore{}, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return doctree.CriterionScore{
			OverallExplanation: e.criterion.EmptyExplanation,
			Breakdown:          []doctree.ItemScore{},
		}, nil
	}
	return Aggregate(e.criterion, items), nil
}

// Aggregate averages the valid item scores, rounded to one decimal. Failed
// items are listed in the explanation but excluded from the mean.
func Aggregate(c *Criterion, items []doctree.ItemScore) doctree.CriterionScore {
	var sum float64
	var n int
	labels := make([]string, len(items))
	for i, it := range items {
		if it.Status != doctree.StatusValid || it.Score == nil {
			labels[i] = failedLabel
			continue
		}
		sum += *it.Score
		n++
		labels[i] = FormatScore(*it.Score)
	}

	cs := doctree.CriterionScore{Breakdown: items}
	if n == 0 {
		cs.OverallExplanation = allFailedExplanation
		return cs
	}
	cs.OverallScore = doctree.Float(math.Round(sum/float64(n)*10) / 10)
	cs.OverallExplanation = fmt.Sprintf("%s: %s。%s", c.Summary, strings.Join(labels, ", "), c.SummarySuffix)
	return cs
}

// FormatScore prints whole scores with one decimal ("4.0") and keeps any
// other precision as-is.
func FormatScore(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
