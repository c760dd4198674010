package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

func lvl(p, q string) domain.PriceLevel {
	return domain.PriceLevel{Price: decimal.RequireFromString(p), Quantity: decimal.RequireFromString(q)}
}

type fakeSource struct {
	id    string
	bids  []domain.PriceLevel
	asks  []domain.PriceLevel
	err   error
	delay time.Duration
	hang  bool
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) FetchBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	if f.hang {
		// ignores ctx on purpose
		time.Sleep(time.Hour)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.OrderBookSnapshot{}, source.Classify(f.id, ctx.Err())
		}
	}
	if f.err != nil {
		return domain.OrderBookSnapshot{}, f.err
	}
	return domain.OrderBookSnapshot{SourceID: f.id, Symbol: symbol, Bids: f.bids, Asks: f.asks, CapturedAt: time.Now()}, nil
}

type sources []domain.SourceAdapter

func (s sources) Active() []domain.SourceAdapter { return s }

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AggregationEvent
}

func (r *recordingSink) AggregationCompleted(_ context.Context, evt domain.AggregationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) RouteCompleted(context.Context, domain.RouteEvent) {}

func newTestAggregator(srcs sources, sink domain.EventSink) *Aggregator {
	return New(srcs, sink, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
}

func TestAggregateMergesAllSources(t *testing.T) {
	srcs := sources{
		&fakeSource{id: "a", bids: []domain.PriceLevel{lvl("100", "1"), lvl("99", "2")}, asks: []domain.PriceLevel{lvl("101", "1")}},
		&fakeSource{id: "b", bids: []domain.PriceLevel{lvl("100", "3")}, asks: []domain.PriceLevel{lvl("101", "2"), lvl("102", "5")}},
	}
	sink := &recordingSink{}
	book, err := newTestAggregator(srcs, sink).Aggregate(context.Background(), "BTC-USDT", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, book.Contributing)
	assert.Empty(t, book.Missing)
	require.Len(t, book.Bids, 2)
	assert.True(t, book.Bids[0].Quantity.Equal(decimal.NewFromInt(4)))
	require.Len(t, book.Asks, 2)
	assert.True(t, book.Asks[0].Quantity.Equal(decimal.NewFromInt(3)))

	require.Len(t, book.SourceDepth, 2)
	assert.Equal(t, "a", book.SourceDepth[0].SourceID)
	assert.True(t, book.SourceDepth[1].AskNotional.Equal(decimal.RequireFromString("712")))

	require.Len(t, sink.events, 1)
	assert.False(t, sink.events[0].Outage())
}

func TestAggregatePartialFailure(t *testing.T) {
	srcs := sources{
		&fakeSource{id: "ok", bids: []domain.PriceLevel{lvl("100", "1")}},
		&fakeSource{id: "broken", err: &domain.FetchError{SourceID: "broken", Kind: domain.FetchProtocol, Detail: "bad json"}},
		&fakeSource{id: "slow", delay: time.Second},
	}
	sink := &recordingSink{}
	agg := newTestAggregator(srcs, sink)

	book, err := agg.Aggregate(context.Background(), "BTC-USDT", 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, book.Contributing)
	assert.Equal(t, []string{"broken", "slow"}, book.Missing)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	require.Len(t, ev.Failures, 2)
	assert.Equal(t, domain.FetchProtocol, ev.Failures[0].Kind)
	assert.Equal(t, domain.FetchTimeout, ev.Failures[1].Kind)
}

func TestAggregateTotalOutage(t *testing.T) {
	srcs := sources{
		&fakeSource{id: "a", err: &domain.FetchError{SourceID: "a", Kind: domain.FetchNetwork}},
		&fakeSource{id: "b", err: &domain.FetchError{SourceID: "b", Kind: domain.FetchTimeout}},
	}
	sink := &recordingSink{}
	book, err := newTestAggregator(srcs, sink).Aggregate(context.Background(), "ETH-USDT", 10, time.Second)
	assert.Nil(t, book)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assert.Contains(t, err.Error(), "no liquidity available")

	var aggErr *domain.AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Len(t, aggErr.Failures, 2)

	require.Len(t, sink.events, 1)
	assert.True(t, sink.events[0].Outage())
}

func TestAggregateSourcesMarksEventFiltered(t *testing.T) {
	failing := &fakeSource{id: "b", err: &domain.FetchError{SourceID: "b", Kind: domain.FetchNetwork}}
	srcs := sources{&fakeSource{id: "a", bids: []domain.PriceLevel{lvl("100", "1")}}, failing}
	sink := &recordingSink{}
	agg := newTestAggregator(srcs, sink)

	_, err := agg.AggregateSources(context.Background(), "BTC-USDT", 10, time.Second, []domain.SourceAdapter{failing})
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)

	_, err = agg.Aggregate(context.Background(), "BTC-USDT", 10, time.Second)
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	assert.True(t, sink.events[0].Filtered)
	assert.False(t, sink.events[0].Outage())
	assert.False(t, sink.events[1].Filtered)
}

func TestAggregateBoundedByDeadline(t *testing.T) {
	srcs := sources{
		&fakeSource{id: "fast", asks: []domain.PriceLevel{lvl("10", "1")}},
		&fakeSource{id: "stuck", hang: true},
	}
	deadline := 80 * time.Millisecond

	start := time.Now()
	book, err := newTestAggregator(srcs, nil).Aggregate(context.Background(), "SOL-USDT", 10, deadline)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, deadline+100*time.Millisecond)
	assert.Equal(t, []string{"fast"}, book.Contributing)
	assert.Equal(t, []string{"stuck"}, book.Missing)
}

func TestAggregateTruncatesDepth(t *testing.T) {
	srcs := sources{
		&fakeSource{id: "a", bids: []domain.PriceLevel{lvl("5", "1"), lvl("4", "1"), lvl("3", "1")}},
	}
	book, err := newTestAggregator(srcs, nil).Aggregate(context.Background(), "X-Y", 2, time.Second)
	require.NoError(t, err)
	require.Len(t, book.Bids, 2)
	assert.Equal(t, "4", book.Bids[1].Price.String())
}

func TestAggregateObservesRegistry(t *testing.T) {
	reg, err := source.NewRegistry([]source.Entry{
		{Adapter: &fakeSource{id: "a", bids: []domain.PriceLevel{lvl("1", "1")}}, Enabled: true},
		{Adapter: &fakeSource{id: "b", err: errors.New("connection reset")}, Enabled: true},
	})
	require.NoError(t, err)

	_, err = New(reg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{}).
		Aggregate(context.Background(), "X-Y", 10, time.Second)
	require.NoError(t, err)

	st := reg.Statuses()
	assert.True(t, st[0].Healthy)
	assert.False(t, st[1].Healthy)
	assert.Equal(t, domain.FetchNetwork, st[1].LastErrorKind)
}
