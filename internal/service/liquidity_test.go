package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/aggregator"
	"github.com/alanyoungcy/liquidrouter/internal/cache"
	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

func lvl(price, qty string) domain.PriceLevel {
	return domain.PriceLevel{Price: decimal.RequireFromString(price), Quantity: decimal.RequireFromString(qty)}
}

func newLiquidity(t *testing.T) *LiquidityService {
	t.Helper()
	reg, err := source.NewRegistry([]source.Entry{
		{Adapter: source.NewStatic("alpha", []domain.PriceLevel{lvl("99", "1"), lvl("98", "2")}, []domain.PriceLevel{lvl("101", "1"), lvl("102", "3")}, 0), Kind: "static", Enabled: true},
		{Adapter: source.NewStatic("beta", []domain.PriceLevel{lvl("99", "2")}, []domain.PriceLevel{lvl("100", "1")}, 0), Kind: "static", Enabled: true},
		{Adapter: source.NewStatic("gamma", nil, nil, 0), Kind: "static", Enabled: false},
	})
	require.NoError(t, err)

	agg := aggregator.New(reg, nil, discardLogger(), aggregator.Config{Deadline: 200 * time.Millisecond})
	books := cache.NewCoalescer(agg, time.Second, 0)
	return NewLiquidityService(books, agg, reg, LiquidityConfig{Symbols: []string{"BTC-USDT", "eth/usdt"}}, discardLogger())
}

func TestLiquidityBook(t *testing.T) {
	svc := newLiquidity(t)

	book, err := svc.Book(context.Background(), "btc_usdt", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", book.Symbol)
	require.Len(t, book.Bids, 1)
	assert.True(t, book.Bids[0].Quantity.Equal(decimal.NewFromInt(3)))
	require.Len(t, book.Asks, 1)
	assert.True(t, book.Asks[0].Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"alpha", "beta"}, book.Contributing)
}

func TestLiquidityBookFilteredBySource(t *testing.T) {
	svc := newLiquidity(t)
	ctx := context.Background()

	book, err := svc.Book(ctx, "BTC-USDT", 10, []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, book.Contributing)
	assert.True(t, book.Asks[0].Price.Equal(decimal.NewFromInt(101)))

	_, err = svc.Book(ctx, "BTC-USDT", 10, []string{"gamma"})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = svc.Book(ctx, "BTC-USDT", 10, []string{"nope"})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestLiquidityFilteredFailureDoesNotAlert(t *testing.T) {
	reg, err := source.NewRegistry([]source.Entry{
		{Adapter: source.NewStatic("binance", []domain.PriceLevel{lvl("99", "1")}, []domain.PriceLevel{lvl("101", "1")}, 0), Kind: "static", Enabled: true},
		{Adapter: source.NewStatic("kraken", []domain.PriceLevel{lvl("99", "1")}, []domain.PriceLevel{lvl("101", "1")}, time.Second), Kind: "static", Enabled: true},
	})
	require.NoError(t, err)

	n := newFakeNotifier()
	alerter := NewOutageAlerter(n, 0, discardLogger())
	agg := aggregator.New(reg, alerter, discardLogger(), aggregator.Config{Deadline: 50 * time.Millisecond})
	books := cache.NewCoalescer(agg, time.Second, 0)
	svc := NewLiquidityService(books, agg, reg, LiquidityConfig{Symbols: []string{"BTC-USDT"}}, discardLogger())
	ctx := context.Background()

	book, err := svc.Book(ctx, "BTC-USDT", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"binance"}, book.Contributing)

	_, err = svc.Book(ctx, "BTC-USDT", 0, []string{"kraken"})
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assertSilent(t, n)
}

func TestLiquidityRejectsDepthAboveConfigured(t *testing.T) {
	svc := newLiquidity(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, "BTC-USDT", aggregator.DefaultDepth, nil)
	require.NoError(t, err)

	_, err = svc.Book(ctx, "BTC-USDT", aggregator.DefaultDepth+1, nil)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "depth", ve.Field)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Ladder(ctx, "BTC-USDT", "bids", 500)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Book(ctx, "BTC-USDT", 500, []string{"alpha"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestLiquiditySymbolChecks(t *testing.T) {
	svc := newLiquidity(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, "DOGE-USDT", 0, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	_, err = svc.Book(ctx, "BTCUSDT", 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT"}, svc.Symbols())
}

func TestLiquidityBestLadderMetrics(t *testing.T) {
	svc := newLiquidity(t)
	ctx := context.Background()

	best, err := svc.Best(ctx, "BTC-USDT")
	require.NoError(t, err)
	require.NotNil(t, best.Spread)
	assert.True(t, best.Spread.Equal(decimal.NewFromInt(1)))

	ladder, err := svc.Ladder(ctx, "BTC-USDT", "asks", 0)
	require.NoError(t, err)
	require.Len(t, ladder, 3)
	assert.True(t, ladder[2].CumulativeQuantity.Equal(decimal.NewFromInt(5)))

	_, err = svc.Ladder(ctx, "BTC-USDT", "sideways", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	m, err := svc.Metrics(ctx, "BTC-USDT", []decimal.Decimal{decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, m.SourcesCount)
	require.Len(t, m.Depth, 1)
}

func TestLiquiditySourceBook(t *testing.T) {
	svc := newLiquidity(t)
	ctx := context.Background()

	snap, err := svc.SourceBook(ctx, "beta", "BTC-USDT", 5)
	require.NoError(t, err)
	assert.Equal(t, "beta", snap.SourceID)

	_, err = svc.SourceBook(ctx, "gamma", "BTC-USDT", 5)
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.FetchDisabled, fe.Kind)

	statuses := svc.Sources()
	assert.Len(t, statuses, 3)
}
