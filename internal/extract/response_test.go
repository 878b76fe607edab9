package extract

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type scriptedSender struct {
	replies []string
	ok      bool
	prompts []string
}

func (s *scriptedSender) Send(_ context.Context, prompt string) (string, bool) {
	s.prompts = append(s.prompts, prompt)
	if !s.ok || len(s.replies) == 0 {
		return "", false
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, true
}

func newTestParser(s Sender) *Parser {
	return NewParser(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParse_DirectFormats(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore float64
		wantExpl  string
	}{
		{
			name:      "reasoning wrapper",
			raw:       `{"reasoning": "一步一步评估", "result": {"score": 4, "explanation": "内容准确"}}`,
			wantScore: 4, wantExpl: "内容准确",
		},
		{
			name:      "bare result",
			raw:       `{"score": 3.5, "explanation": "一般"}`,
			wantScore: 3.5, wantExpl: "一般",
		},
		{
			name:      "fenced block with prose",
			raw:       "以下是评估结果：\n```json\n{\"score\": 2, \"explanation\": \"较差\"}\n```\n谢谢。",
			wantScore: 2, wantExpl: "较差",
		},
		{
			name:      "numeric string score",
			raw:       `{"score": " 5 ", "explanation": "优秀"}`,
			wantScore: 5, wantExpl: "优秀",
		},
		{
			name:      "reasoning object",
			raw:       `{"reasoning": {"step": 1}, "result": {"score": 1, "explanation": "很差"}}`,
			wantScore: 1, wantExpl: "很差",
		},
		{
			name:      "result without reasoning is used whole",
			raw:       `{"result": "ignored", "score": 4, "explanation": "顶层字段"}`,
			wantScore: 4, wantExpl: "顶层字段",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &scriptedSender{}
			got := newTestParser(sender).Parse(context.Background(), tt.raw)
			if got.Source != SourceDirect {
				t.Fatalf("expected direct parse, got %s", got.Source)
			}
			if got.Score != tt.wantScore {
				t.Errorf("expected score %v, got %v", tt.wantScore, got.Score)
			}
			if got.Explanation == nil || *got.Explanation != tt.wantExpl {
				t.Errorf("expected explanation %q, got %v", tt.wantExpl, got.Explanation)
			}
			if len(sender.prompts) != 0 {
				t.Errorf("expected no recovery call, got %d", len(sender.prompts))
			}
		})
	}
}

func TestParse_OutOfRangeScoresAreNotClamped(t *testing.T) {
	for _, raw := range []string{
		`{"score": 6, "explanation": "超出"}`,
		`{"score": 0, "explanation": "过低"}`,
		`{"score": -1, "explanation": "负数"}`,
	} {
		t.Run(raw, func(t *testing.T) {
			// Recovery repeats the out-of-range score, so the call degrades.
			sender := &scriptedSender{ok: true, replies: []string{raw}}
			got := newTestParser(sender).Parse(context.Background(), raw)
			if got.Source != SourceFailed {
				t.Fatalf("expected failed result, got %s with score %v", got.Source, got.Score)
			}
			if got.Score != 0 || got.Explanation != nil {
				t.Errorf("expected (0, absent), got (%v, %v)", got.Score, got.Explanation)
			}
			if len(sender.prompts) != 1 {
				t.Errorf("expected one recovery attempt, got %d", len(sender.prompts))
			}
		})
	}
}

func TestParse_RecoveryYieldsScore(t *testing.T) {
	sender := &scriptedSender{ok: true, replies: []string{"```json\n{\"score\": 4, \"explanation\": \"提取成功\"}\n```"}}
	raw := "我给这段文字打4分，因为它很流畅。"
	got := newTestParser(sender).Parse(context.Background(), raw)

	if got.Source != SourceRecovered {
		t.Fatalf("expected recovered result, got %s", got.Source)
	}
	if got.Score != 4 || *got.Explanation != "提取成功" {
		t.Errorf("unexpected result %+v", got)
	}
	if !strings.Contains(sender.prompts[0], raw) {
		t.Error("expected recovery prompt to embed the raw response")
	}
	if !strings.Contains(sender.prompts[0], `"score"`) {
		t.Error("expected recovery prompt to carry the reply schema")
	}
}

func TestParse_FallbackToDegraded(t *testing.T) {
	tests := []struct {
		name   string
		sender *scriptedSender
	}{
		{"recovery unparseable", &scriptedSender{ok: true, replies: []string{"抱歉，我无法提取。"}}},
		{"recovery missing explanation", &scriptedSender{ok: true, replies: []string{`{"score": 3}`}}},
		{"recovery absent", &scriptedSender{ok: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestParser(tt.sender).Parse(context.Background(), "totally not json")
			if got.Source != SourceFailed || got.Score != 0 || got.Explanation != nil {
				t.Errorf("expected degraded (0, absent), got %+v", got)
			}
			item := got.Item()
			if item.Status != "failed" || item.Score == nil || *item.Score != 0 {
				t.Errorf("expected failed item with recorded 0, got %+v", item)
			}
		})
	}
}

func TestParse_MissingFieldsTriggerRecovery(t *testing.T) {
	for _, raw := range []string{
		`{"score": 4}`,
		`{"explanation": "只有解释"}`,
		`{"score": null, "explanation": "空分数"}`,
		`{"score": "高", "explanation": "非数字"}`,
		`{"score": true, "explanation": "布尔"}`,
		`[1, 2, 3]`,
		`{"reasoning": "r", "result": "not an object"}`,
		"```json\n{broken\n```",
	} {
		t.Run(raw, func(t *testing.T) {
			sender := &scriptedSender{ok: false}
			got := newTestParser(sender).Parse(context.Background(), raw)
			if got.Source != SourceFailed {
				t.Errorf("expected failed result, got %s", got.Source)
			}
			if len(sender.prompts) != 1 {
				t.Errorf("expected recovery attempt, got %d prompts", len(sender.prompts))
			}
		})
	}
}

func TestParse_NoRecoveryAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &scriptedSender{ok: true, replies: []string{`{"score": 4, "explanation": "不应发送"}`}}
	got := newTestParser(sender).Parse(ctx, "不是JSON")
	if got.Source != SourceFailed {
		t.Errorf("expected failed result, got %s", got.Source)
	}
	if len(sender.prompts) != 0 {
		t.Errorf("expected no recovery call on a done context, got %d", len(sender.prompts))
	}
}

func TestReplySchema_IsValidJSON(t *testing.T) {
	var schema map[string]any
	if err := json.Unmarshal([]byte(ReplySchema()), &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties in schema, got %v", schema)
	}
	for _, field := range []string{"score", "explanation"} {
		if _, ok := props[field]; !ok {
			t.Errorf("expected property %q", field)
		}
	}
	req, _ := schema["required"].([]any)
	if len(req) != 2 {
		t.Errorf("expected both fields required, got %v", req)
	}
}
