// Package cache holds the in-process consolidated book cache. Redis-backed
// infrastructure lives in the redis subpackage.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

const (
	DefaultTTL = time.Second
	MaxTTL     = 5 * time.Second
)

// Aggregator produces consolidated books.
type Aggregator interface {
	Aggregate(ctx context.Context, symbol string, depth int, deadline time.Duration) (*domain.ConsolidatedBook, error)
}

type entry struct {
	book    *domain.ConsolidatedBook
	expires time.Time
}

// Stats counts cache lookups.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Shared int64 `json:"shared"`
}

// Coalescer caches one consolidated book per symbol for a short TTL and
// collapses concurrent misses for the same symbol into a single aggregation.
type Coalescer struct {
	agg      Aggregator
	ttl      time.Duration
	deadline time.Duration

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64

	now func() time.Time
}

// NewCoalescer creates a Coalescer. A non-positive ttl uses DefaultTTL; ttl
// is capped at MaxTTL. deadline is passed to every aggregation (zero lets the
// aggregator use its own default).
func NewCoalescer(agg Aggregator, ttl, deadline time.Duration) *Coalescer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return &Coalescer{
		agg:      agg,
		ttl:      ttl,
		deadline: deadline,
		entries:  make(map[string]entry),
		now:      time.Now,
	}
}

// TTL returns the effective cache lifetime.
func (c *Coalescer) TTL() time.Duration { return c.ttl }

// Get returns a fresh cached book or waits for an aggregation. Errors are
// never cached. If ctx ends first Get returns its error, but the shared
// aggregation keeps running for the other waiters.
func (c *Coalescer) Get(ctx context.Context, symbol string) (*domain.ConsolidatedBook, error) {
	if book, ok := c.lookup(symbol); ok {
		c.hits.Add(1)
		return book, nil
	}
	c.misses.Add(1)

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(symbol, func() (any, error) {
		// a flight that finished between lookup and DoChan already stored
		if book, ok := c.lookup(symbol); ok {
			return book, nil
		}
		book, err := c.agg.Aggregate(flightCtx, symbol, 0, c.deadline)
		if err != nil {
			return nil, err
		}
		c.store(symbol, book)
		return book, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ConsolidatedBook), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("cache: waiting for %s: %w", symbol, ctx.Err())
	}
}

// Invalidate drops the cached book for symbol.
func (c *Coalescer) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

// Stats returns lookup counters.
func (c *Coalescer) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Shared: c.shared.Load()}
}

func (c *Coalescer) lookup(symbol string) (*domain.ConsolidatedBook, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.book, true
}

func (c *Coalescer) store(symbol string, book *domain.ConsolidatedBook) {
	c.mu.Lock()
	c.entries[symbol] = entry{book: book, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
