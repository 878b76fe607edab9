package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/bhnan/Long-text-evaluation/internal/metrics"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 30 * time.Second

// Admitter gates calls on a request and token budget.
type Admitter interface {
	Acquire(ctx context.Context, tokens int) error
}

// Gateway is the only path to the model service. A call either yields text
// or is absent; failures never surface as errors and are never retried here.
type Gateway struct {
	client  Client
	limiter Admitter
	timeout time.Duration
	log     *slog.Logger

	Stats *LLMStats
}

func NewGateway(client Client, limiter Admitter, timeout time.Duration, log *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		client:  client,
		limiter: limiter,
		timeout: timeout,
		log:     log,
		Stats:   NewLLMStats(time.Hour),
	}
}

// Model returns the upstream model name.
func (g *Gateway) Model() string { return g.client.Model() }

// Send issues one prompt. ok is false when the call produced no usable text.
func (g *Gateway) Send(ctx context.Context, prompt string) (string, bool) {
	tokens := EstimateTokens(prompt)
	model := g.client.Model()

	if err := ctx.Err(); err != nil {
		g.log.Debug("call skipped, context done", "error", err)
		return "", false
	}

	waitStart := time.Now()
	if err := g.limiter.Acquire(ctx, tokens); err != nil {
		g.log.Warn("rate limiter refused call", "tokens", tokens, "error", err)
		metrics.ModelCalls.WithLabelValues(model, "absent").Inc()
		return "", false
	}
	metrics.RateLimitWait.Observe(time.Since(waitStart).Seconds())

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.client.Complete(callCtx, prompt)
	elapsed := time.Since(start)
	absent := err != nil || text == ""

	g.Stats.Record(elapsed.Milliseconds(), absent)
	metrics.ModelLatency.WithLabelValues(model).Observe(elapsed.Seconds())

	if absent {
		metrics.ModelCalls.WithLabelValues(model, "absent").Inc()
		g.log.Warn("model call failed",
			"prompt", prompt,
			"tokens", tokens,
			"duration_ms", elapsed.Milliseconds(),
			"retryable", IsRetryable(err),
			"error", err,
		)
		return "", false
	}

	metrics.ModelCalls.WithLabelValues(model, "ok").Inc()
	g.log.Info("model call",
		"prompt", prompt,
		"response", text,
		"tokens", tokens,
		"duration_ms", elapsed.Milliseconds(),
	)
	return text, true
}
