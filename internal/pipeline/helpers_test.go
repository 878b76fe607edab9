package pipeline

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bhnan/Long-text-evaluation/internal/checkpoint"
	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/llm"
	"github.com/bhnan/Long-text-evaluation/internal/parser"
	"github.com/bhnan/Long-text-evaluation/internal/ratelimit"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

const sampleDoc = `一、引言
人工智能正在改变医疗行业。

本文讨论其应用与挑战。

1 背景
近年来深度学习取得突破。

二、方法
我们采用文献综述的方法。

1 数据
数据来自公开数据库。

2 模型
模型基于大规模预训练。

三、结论
人工智能在医疗领域前景广阔。
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func zeroBackoff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func sampleTree(t *testing.T) *doctree.DocTree {
	t.Helper()
	tree, err := (&parser.TextParser{}).Parse(strings.NewReader(sampleDoc), "sample.txt")
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}
	return tree
}

func defaultRubric(t *testing.T) *rubric.Rubric {
	t.Helper()
	rb, err := rubric.Default()
	if err != nil {
		t.Fatalf("default rubric: %v", err)
	}
	return rb
}

func newGateway(client llm.Client) *llm.Gateway {
	return llm.NewGateway(client, ratelimit.New(1_000_000, 1_000_000_000), time.Second, discardLogger())
}

func newTestScorer(client llm.Client) *Scorer {
	s := NewScorer(newGateway(client), 3, discardLogger())
	s.backoff = zeroBackoff
	return s
}

// newTestEvaluation wires an evaluation over units with the default rubric
// and a checkpoint at path.
func newTestEvaluation(t *testing.T, client llm.Client, units []*doctree.Unit, path string) *Evaluation {
	t.Helper()
	rb := defaultRubric(t)
	scorer := newTestScorer(client)
	brief := rubric.Brief{Topic: "医疗人工智能", Description: "应用与挑战"}
	reg, err := rubric.NewRegistry(rb, brief, scorer)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewEvaluation(EvaluationConfig{
		Units:    units,
		Rubric:   rb,
		Registry: reg,
		Brief:    brief,
		Scorer:   scorer,
		Store:    checkpoint.NewStore(path),
		Log:      discardLogger(),
	})
}

func checkpointPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "sample.checkpoint.json")
}
