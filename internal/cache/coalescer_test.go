package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

type countingAggregator struct {
	calls   atomic.Int64
	delay   time.Duration
	err     error
	release chan struct{}
}

func (a *countingAggregator) Aggregate(ctx context.Context, symbol string, _ int, _ time.Duration) (*domain.ConsolidatedBook, error) {
	a.calls.Add(1)
	if a.release != nil {
		<-a.release
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return nil, a.err
	}
	return &domain.ConsolidatedBook{Symbol: symbol, GeneratedAt: time.Now()}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCoalescerSharesConcurrentMisses(t *testing.T) {
	agg := &countingAggregator{release: make(chan struct{})}
	c := NewCoalescer(agg, time.Second, 0)

	const callers = 20
	var wg sync.WaitGroup
	books := make([]*domain.ConsolidatedBook, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := c.Get(context.Background(), "BTC-USDT")
			assert.NoError(t, err)
			books[i] = b
		}(i)
	}

	// let every caller join the flight before it completes
	require.Eventually(t, func() bool { return c.Stats().Misses == callers }, time.Second, time.Millisecond)
	close(agg.release)
	wg.Wait()

	assert.Equal(t, int64(1), agg.calls.Load())
	for _, b := range books {
		assert.Same(t, books[0], b)
	}
}

func TestCoalescerTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	agg := &countingAggregator{}
	c := NewCoalescer(agg, 500*time.Millisecond, 0)
	c.now = clock.Now

	first, err := c.Get(context.Background(), "ETH-USDT")
	require.NoError(t, err)

	clock.Advance(499 * time.Millisecond)
	again, err := c.Get(context.Background(), "ETH-USDT")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, int64(1), agg.calls.Load())

	clock.Advance(time.Millisecond)
	_, err = c.Get(context.Background(), "ETH-USDT")
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.calls.Load())
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestCoalescerDoesNotCacheErrors(t *testing.T) {
	agg := &countingAggregator{err: &domain.AggregationError{Symbol: "X-Y"}}
	c := NewCoalescer(agg, time.Second, 0)

	_, err := c.Get(context.Background(), "X-Y")
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	_, err = c.Get(context.Background(), "X-Y")
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assert.Equal(t, int64(2), agg.calls.Load())
}

func TestCoalescerCallerCancellationDoesNotAbortFlight(t *testing.T) {
	agg := &countingAggregator{delay: 50 * time.Millisecond}
	c := NewCoalescer(agg, time.Second, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "SOL-USDT")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// the detached flight still lands in the cache
	require.Eventually(t, func() bool {
		_, ok := c.lookup("SOL-USDT")
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), agg.calls.Load())
}

func TestCoalescerInvalidate(t *testing.T) {
	agg := &countingAggregator{}
	c := NewCoalescer(agg, time.Second, 0)

	_, err := c.Get(context.Background(), "X-Y")
	require.NoError(t, err)
	c.Invalidate("X-Y")
	_, err = c.Get(context.Background(), "X-Y")
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.calls.Load())
}

func TestNewCoalescerClampsTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewCoalescer(&countingAggregator{}, 0, 0).TTL())
	assert.Equal(t, MaxTTL, NewCoalescer(&countingAggregator{}, time.Minute, 0).TTL())
}
