package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/extract"
)

// DefaultMaxAttempts bounds gateway calls per scoring prompt.
const DefaultMaxAttempts = 3

var errAbsent = errors.New("model response absent")

// DefaultBackoff returns the retry schedule for absent responses: 1s doubling
// up to 30s, with jitter.
func DefaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	return b
}

// Scorer sends a scoring prompt through the gateway, retrying absent
// responses, and parses the reply into an item score.
type Scorer struct {
	gateway     extract.Sender
	parser      *extract.Parser
	maxAttempts int
	backoff     func() backoff.BackOff
	log         *slog.Logger
}

func NewScorer(gw extract.Sender, maxAttempts int, log *slog.Logger) *Scorer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Scorer{
		gateway:     gw,
		parser:      extract.NewParser(gw, log),
		maxAttempts: maxAttempts,
		backoff:     DefaultBackoff,
		log:         log,
	}
}

// Score returns a failed item, not an error, when every attempt is absent.
// The only error is cancellation of ctx, which wins over any result obtained
// after it so the caller never records a score from a canceled call.
func (s *Scorer) Score(ctx context.Context, prompt string) (doctree.ItemScore, error) {
	var text string
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		t, ok := s.gateway.Send(ctx, prompt)
		if !ok {
			return errAbsent
		}
		text = t
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), uint64(s.maxAttempts-1)), ctx)
	attempt := 0
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		attempt++
		s.log.Warn("retrying scoring call", "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return doctree.ItemScore{}, ctxErr
		}
		s.log.Error("scoring call absent after retries", "attempts", s.maxAttempts)
		return extract.Failed().Item(), nil
	}
	res := s.parser.Parse(ctx, text)
	if err := ctx.Err(); err != nil {
		return doctree.ItemScore{}, err
	}
	return res.Item(), nil
}
