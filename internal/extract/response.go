package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/metrics"
)

// Source records how a Result was obtained.
type Source string

const (
	SourceDirect    Source = "direct"
	SourceRecovered Source = "recovered"
	SourceFailed    Source = "failed"
)

// Result is a parsed score. A failed result has Score 0 and no explanation.
type Result struct {
	Score       float64
	Explanation *string
	Source      Source
}

// Item converts the result into a recorded item score.
func (r Result) Item() doctree.ItemScore {
	if r.Source == SourceFailed {
		return doctree.ItemScore{Score: doctree.Float(0), Status: doctree.StatusFailed}
	}
	return doctree.ItemScore{
		Score:       doctree.Float(r.Score),
		Explanation: r.Explanation,
		Status:      doctree.StatusValid,
	}
}

// Failed is the terminal degraded result.
func Failed() Result {
	return Result{Source: SourceFailed}
}

// Sender sends a prompt to the model and reports whether text came back.
type Sender interface {
	Send(ctx context.Context, prompt string) (string, bool)
}

// Parser turns loosely structured model output into a bounded score. When
// direct extraction fails it asks the model to restate its own answer.
type Parser struct {
	sender Sender
	log    *slog.Logger
}

func NewParser(sender Sender, log *slog.Logger) *Parser {
	return &Parser{sender: sender, log: log}
}

var (
	errNoJSON       = errors.New("no json object found")
	errMissingField = errors.New("missing score or explanation")
)

// Parse extracts {score, explanation} from raw. It never fails: the worst
// case is the degraded Failed result.
func (p *Parser) Parse(ctx context.Context, raw string) Result {
	score, expl, err := p.extract(raw)
	if err == nil {
		p.log.Info("parsed response", "score", score, "explanation", expl)
		metrics.ParseOutcomes.WithLabelValues(string(SourceDirect)).Inc()
		return Result{Score: score, Explanation: &expl, Source: SourceDirect}
	}
	p.log.Error("failed to parse response", "error", err, "response", raw)
	if ctx.Err() != nil {
		metrics.ParseOutcomes.WithLabelValues(string(SourceFailed)).Inc()
		return Failed()
	}
	p.log.Info("attempting ai-assisted parsing")

	reply, ok := p.sender.Send(ctx, RecoveryPrompt(raw))
	if !ok {
		p.log.Error("ai-assisted parsing got no response", "response", raw)
		metrics.ParseOutcomes.WithLabelValues(string(SourceFailed)).Inc()
		return Failed()
	}
	score, expl, err = p.extract(reply)
	if err != nil {
		p.log.Error("failed to parse ai-assisted response", "error", err, "response", reply, "original", raw)
		metrics.ParseOutcomes.WithLabelValues(string(SourceFailed)).Inc()
		return Failed()
	}
	p.log.Info("ai-assisted parsing result", "score", score, "explanation", expl)
	metrics.ParseOutcomes.WithLabelValues(string(SourceRecovered)).Inc()
	return Result{Score: score, Explanation: &expl, Source: SourceRecovered}
}

func (p *Parser) extract(raw string) (float64, string, error) {
	doc, err := FindJSON(raw)
	if err != nil {
		return 0, "", err
	}

	res := doc
	if doc.Get("reasoning").Exists() && doc.Get("result").Exists() {
		res = doc.Get("result")
	}
	if !res.IsObject() {
		return 0, "", fmt.Errorf("%w: result is not an object", errMissingField)
	}

	score, hasScore, err := coerceScore(res.Get("score"))
	if err != nil {
		return 0, "", err
	}
	if hasScore && !doctree.InRange(score) {
		p.log.Warn("extracted score is not in valid range", "score", score)
		hasScore = false
	}

	expl := res.Get("explanation")
	hasExpl := expl.Exists() && expl.Type != gjson.Null
	if !hasScore || !hasExpl {
		return 0, "", errMissingField
	}
	text := expl.String()
	if expl.Type == gjson.JSON {
		text = expl.Raw
	}
	return score, text, nil
}

var fenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// FindJSON locates the JSON object in a model reply: the first fenced json
// block when it holds valid JSON, otherwise the whole reply.
func FindJSON(raw string) (gjson.Result, error) {
	if m := fenceRe.FindStringSubmatch(raw); m != nil && gjson.Valid(m[1]) {
		if r := gjson.Parse(m[1]); r.IsObject() {
			return r, nil
		}
	}
	text := strings.TrimSpace(raw)
	if !gjson.Valid(text) {
		return gjson.Result{}, errNoJSON
	}
	r := gjson.Parse(text)
	if !r.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: top level is %s", errNoJSON, r.Type)
	}
	return r, nil
}

// coerceScore accepts numbers and numeric strings. A missing or null score
// reports hasScore=false; anything else unparseable is an error.
func coerceScore(v gjson.Result) (score float64, hasScore bool, err error) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), true, nil
	case gjson.String:
		f, perr := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if perr != nil {
			return 0, false, fmt.Errorf("score %q is not numeric: %w", v.Str, perr)
		}
		return f, true, nil
	case gjson.Null: // also a missing key
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("score has unsupported type %s", v.Type)
}
