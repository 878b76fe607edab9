package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrExceedsBudget is returned when a single request asks for more tokens
// than the per-minute budget can ever hold.
var ErrExceedsBudget = errors.New("request exceeds tokens-per-minute budget")

// Limiter admits model calls under a requests-per-minute and a
// tokens-per-minute budget. Both buckets refill continuously at
// capacity/60 per second. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	requests *rate.Limiter
	tokens   *rate.Limiter
	rpm      int
	tpm      int

	now func() time.Time

	granted       atomic.Int64
	grantedTokens atomic.Int64
	waitedNanos   atomic.Int64
}

// New creates a limiter with the given per-minute capacities.
func New(rpm, tpm int) *Limiter {
	if rpm <= 0 {
		rpm = 1
	}
	if tpm <= 0 {
		tpm = 1
	}
	return &Limiter{
		requests: rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm),
		tokens:   rate.NewLimiter(rate.Limit(float64(tpm)/60), tpm),
		rpm:      rpm,
		tpm:      tpm,
		now:      time.Now,
	}
}

// Acquire blocks until one request slot and n tokens are available, then
// debits both. If ctx ends first the reservation is returned to the buckets.
func (l *Limiter) Acquire(ctx context.Context, n int) error {
	delay, cancel, err := l.reserve(l.now(), n)
	if err != nil {
		return err
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			cancel()
			return ctx.Err()
		}
		l.waitedNanos.Add(int64(delay))
	}
	l.granted.Add(1)
	l.grantedTokens.Add(int64(max(n, 0)))
	return nil
}

// reserve takes both reservations at once so a waiter never holds a request
// slot while another caller drains the token bucket. It returns how long the
// caller must wait before both are satisfied.
func (l *Limiter) reserve(now time.Time, n int) (time.Duration, func(), error) {
	if n < 0 {
		n = 0
	}
	if n > l.tpm {
		return 0, nil, fmt.Errorf("%w: %d > %d", ErrExceedsBudget, n, l.tpm)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	req := l.requests.ReserveN(now, 1)
	tok := l.tokens.ReserveN(now, n)
	if !req.OK() || !tok.OK() {
		req.CancelAt(now)
		tok.CancelAt(now)
		return 0, nil, ErrExceedsBudget
	}

	delay := max(req.DelayFrom(now), tok.DelayFrom(now))
	cancel := func() {
		at := l.now()
		req.CancelAt(at)
		tok.CancelAt(at)
	}
	return delay, cancel, nil
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	RPM           int           `json:"rpm"`
	TPM           int           `json:"tpm"`
	Granted       int64         `json:"granted"`
	GrantedTokens int64         `json:"granted_tokens"`
	Waited        time.Duration `json:"waited_ns"`
}

func (l *Limiter) Stats() Stats {
	return Stats{
		RPM:           l.rpm,
		TPM:           l.tpm,
		Granted:       l.granted.Load(),
		GrantedTokens: l.grantedTokens.Load(),
		Waited:        time.Duration(l.waitedNanos.Load()),
	}
}
