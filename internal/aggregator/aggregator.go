// Package aggregator fans a book request out to every active source and
// merges whatever arrives before the deadline into one consolidated book.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

const (
	DefaultDepth    = 100
	DefaultDeadline = 500 * time.Millisecond
)

// Sources supplies the adapters to fan out to.
type Sources interface {
	Active() []domain.SourceAdapter
}

// Observer records per-source fetch outcomes. *source.Registry implements
// it; when Sources also implements Observer it is used automatically.
type Observer interface {
	Observe(id string, latency time.Duration, fetchErr *domain.FetchError, at time.Time)
}

// Config holds aggregation defaults.
type Config struct {
	Depth    int
	Deadline time.Duration
}

// Aggregator runs aggregation cycles. It is safe for concurrent use.
type Aggregator struct {
	sources  Sources
	observer Observer
	sink     domain.EventSink
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

// New creates an Aggregator. A nil sink discards events.
func New(sources Sources, sink domain.EventSink, logger *slog.Logger, cfg Config) *Aggregator {
	if sink == nil {
		sink = domain.NopSink{}
	}
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	a := &Aggregator{
		sources: sources,
		sink:    sink,
		logger:  logger.With(slog.String("component", "aggregator")),
		cfg:     cfg,
		now:     time.Now,
	}
	if obs, ok := sources.(Observer); ok {
		a.observer = obs
	}
	return a
}

// Depth returns the default book depth. Cached books are built at this depth.
func (a *Aggregator) Depth() int { return a.cfg.Depth }

// Deadline returns the default per-cycle deadline.
func (a *Aggregator) Deadline() time.Duration { return a.cfg.Deadline }

// Aggregate queries every active source for symbol. depth and deadline fall
// back to the configured defaults when non-positive.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string, depth int, deadline time.Duration) (*domain.ConsolidatedBook, error) {
	return a.aggregate(ctx, symbol, depth, deadline, a.sources.Active(), false)
}

type fetchResult struct {
	id      string
	snap    domain.OrderBookSnapshot
	err     *domain.FetchError
	latency time.Duration
}

// AggregateSources is Aggregate restricted to adapters. Callers are expected
// to pass adapters taken from the active set. The emitted event is marked
// Filtered.
func (a *Aggregator) AggregateSources(ctx context.Context, symbol string, depth int, deadline time.Duration, adapters []domain.SourceAdapter) (*domain.ConsolidatedBook, error) {
	return a.aggregate(ctx, symbol, depth, deadline, adapters, true)
}

func (a *Aggregator) aggregate(ctx context.Context, symbol string, depth int, deadline time.Duration, adapters []domain.SourceAdapter, filtered bool) (*domain.ConsolidatedBook, error) {
	if depth <= 0 {
		depth = a.cfg.Depth
	}
	if deadline <= 0 {
		deadline = a.cfg.Deadline
	}

	start := a.now()
	fetchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Buffered so stragglers never block once we stop reading.
	results := make(chan fetchResult, len(adapters))
	for _, ad := range adapters {
		go func(ad domain.SourceAdapter) {
			t0 := time.Now()
			snap, err := ad.FetchBook(fetchCtx, symbol, depth)
			r := fetchResult{id: ad.ID(), snap: snap, latency: time.Since(t0)}
			if err != nil {
				r.err = source.Classify(ad.ID(), err)
			}
			results <- r
		}(ad)
	}

	pending := make(map[string]bool, len(adapters))
	for _, ad := range adapters {
		pending[ad.ID()] = true
	}

	var (
		snaps    []domain.OrderBookSnapshot
		failures []domain.FetchError
	)
collect:
	for len(pending) > 0 {
		select {
		case r := <-results:
			delete(pending, r.id)
			a.observe(r.id, r.latency, r.err)
			if r.err != nil {
				failures = append(failures, *r.err)
				continue
			}
			r.snap.SourceID = r.id
			snaps = append(snaps, r.snap)
		case <-fetchCtx.Done():
			break collect
		}
	}
	a.drain(results, pending, &snaps, &failures)

	for id := range pending {
		fe := &domain.FetchError{SourceID: id, Kind: domain.FetchTimeout, Detail: "no response before deadline"}
		a.observe(id, deadline, fe)
		failures = append(failures, *fe)
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].SourceID < failures[j].SourceID })

	missing := make([]string, len(failures))
	for i, f := range failures {
		missing[i] = f.SourceID
	}

	elapsed := a.now().Sub(start)
	at := a.now().UTC()
	ev := domain.AggregationEvent{
		Symbol:    symbol,
		Missing:   missing,
		Failures:  failures,
		LatencyMs: elapsed.Milliseconds(),
		At:        at,
		Filtered:  filtered,
	}

	if len(snaps) == 0 {
		ev.Contributing = []string{}
		a.sink.AggregationCompleted(ctx, ev)
		return nil, &domain.AggregationError{Symbol: symbol, Failures: failures}
	}

	book := Merge(symbol, snaps, missing, depth, at)
	ev.Contributing = book.Contributing
	a.sink.AggregationCompleted(ctx, ev)

	if len(failures) > 0 {
		a.logger.Debug("partial aggregation",
			slog.String("symbol", symbol),
			slog.Any("missing", missing),
			slog.Int64("latency_ms", ev.LatencyMs),
		)
	}
	return book, nil
}

func (a *Aggregator) observe(id string, latency time.Duration, fe *domain.FetchError) {
	if a.observer != nil {
		a.observer.Observe(id, latency, fe, a.now().UTC())
	}
}

// drain picks up results that were already buffered when the deadline
// fired.
func (a *Aggregator) drain(results <-chan fetchResult, pending map[string]bool, snaps *[]domain.OrderBookSnapshot, failures *[]domain.FetchError) {
	for len(pending) > 0 {
		select {
		case r := <-results:
			delete(pending, r.id)
			a.observe(r.id, r.latency, r.err)
			if r.err != nil {
				*failures = append(*failures, *r.err)
				continue
			}
			r.snap.SourceID = r.id
			*snaps = append(*snaps, r.snap)
		default:
			return
		}
	}
}
