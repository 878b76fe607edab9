package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_BurstWithinCapacity(t *testing.T) {
	l := New(5, 1000)
	ctx := context.Background()

	start := time.Now()
	for range 5 {
		require.NoError(t, l.Acquire(ctx, 100))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "burst up to capacity must not wait")

	stats := l.Stats()
	assert.Equal(t, int64(5), stats.Granted)
	assert.Equal(t, int64(500), stats.GrantedTokens)
}

func TestAcquire_BlocksWhenRequestsExhausted(t *testing.T) {
	l := New(2, 1000)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, 1))
	require.NoError(t, l.Acquire(ctx, 1))

	// Next slot refills after 30s; a short deadline must give up.
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := l.Acquire(waitCtx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(2), l.Stats().Granted)
}

func TestAcquire_BlocksWhenTokensExhausted(t *testing.T) {
	l := New(100, 60)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, 60))

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.Acquire(waitCtx, 30), context.DeadlineExceeded)
}

func TestAcquire_WaitsForRefill(t *testing.T) {
	// 600 tokens/minute refills 10 per second: 2 tokens take ~200ms.
	l := New(1000, 600)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, 600))

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, 2))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Greater(t, int64(l.Stats().Waited), int64(0))
}

func TestAcquire_CancelReturnsReservation(t *testing.T) {
	l := New(1000, 600)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, 600))

	// A cancelled large request must not push later callers further out.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Acquire(waitCtx, 500))

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, 2))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquire_RequestLargerThanBudget(t *testing.T) {
	l := New(10, 100)
	err := l.Acquire(context.Background(), 101)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExceedsBudget))
	assert.Equal(t, int64(0), l.Stats().Granted)
}

func TestReserve_Conservation(t *testing.T) {
	const rpm, tpm = 30, 3000
	const minutes = 3
	l := New(rpm, tpm)

	base := time.Unix(1_700_000_000, 0)
	current := base
	l.now = func() time.Time { return current }

	var requests, tokens int
	for step := 0; step < minutes*60*10; step++ {
		current = base.Add(time.Duration(step) * 100 * time.Millisecond)
		for {
			delay, cancel, err := l.reserve(current, 40)
			require.NoError(t, err)
			if delay > 0 {
				cancel()
				break
			}
			requests++
			tokens += 40
		}
	}

	assert.LessOrEqual(t, requests, rpm*minutes+rpm)
	assert.LessOrEqual(t, tokens, tpm*minutes+tpm)
	assert.Positive(t, requests)
}

func TestAcquire_ConcurrentCallers(t *testing.T) {
	l := New(50, 5000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(ctx, 10))
		}()
	}
	wg.Wait()

	stats := l.Stats()
	assert.Equal(t, int64(50), stats.Granted)
	assert.Equal(t, int64(500), stats.GrantedTokens)
}
