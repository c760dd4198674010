package service

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

type stubBooks map[string]*domain.ConsolidatedBook

func (s stubBooks) Get(_ context.Context, symbol string) (*domain.ConsolidatedBook, error) {
	if b, ok := s[symbol]; ok {
		return b, nil
	}
	return nil, &domain.AggregationError{Symbol: symbol}
}

func TestBookStreamerTick(t *testing.T) {
	books := stubBooks{
		"BTC-USDT": {Symbol: "BTC-USDT", Bids: []domain.PriceLevel{lvl("100", "1")}, Asks: []domain.PriceLevel{lvl("101", "2")}, Contributing: []string{"okx"}},
		"ETH-USDT": {Symbol: "ETH-USDT", Asks: []domain.PriceLevel{lvl("3000", "1")}},
	}
	bus := &fakeBus{}
	s := NewBookStreamer(books, bus, []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"}, 0, discardLogger())

	s.Tick(context.Background())

	channels := bus.channels()
	sort.Strings(channels)
	assert.Equal(t, []string{"ch:book:BTC-USDT", "ch:book:ETH-USDT"}, channels)

	for _, m := range bus.messages {
		if m.channel != "ch:book:BTC-USDT" {
			continue
		}
		var best domain.BestPrices
		require.NoError(t, json.Unmarshal(m.payload, &best))
		require.NotNil(t, best.Spread)
		assert.Equal(t, "1", best.Spread.String())
	}
}

func TestBookStreamerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewBookStreamer(stubBooks{}, &fakeBus{}, nil, 0, discardLogger())
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}
