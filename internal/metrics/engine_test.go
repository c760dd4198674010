package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lvl(p, q string) domain.PriceLevel { return domain.PriceLevel{Price: d(p), Quantity: d(q)} }

func book() *domain.ConsolidatedBook {
	return &domain.ConsolidatedBook{
		Symbol: "BTC-USDT",
		Bids:   []domain.PriceLevel{lvl("99", "1"), lvl("98", "2"), lvl("90", "5")},
		Asks:   []domain.PriceLevel{lvl("101", "1"), lvl("102", "3"), lvl("110", "4")},
		SourceDepth: []domain.SourceDepth{
			{SourceID: "a", BidNotional: d("300"), AskNotional: d("100")},
			{SourceID: "b", BidNotional: d("400"), AskNotional: d("200")},
		},
		Contributing: []string{"a", "b"},
		GeneratedAt:  time.Unix(1_700_000_000, 0),
	}
}

func TestComputeTopOfBook(t *testing.T) {
	m := Compute(book(), nil, []decimal.Decimal{})

	require.NotNil(t, m.MidPrice)
	assert.True(t, m.MidPrice.Equal(d("100")))
	assert.True(t, m.Spread.Equal(d("2")))
	assert.True(t, m.SpreadPct.Equal(d("2")))
	assert.True(t, m.SpreadBps.Equal(d("200")))
	assert.True(t, m.TotalBidVolume.Equal(d("8")))
	assert.True(t, m.AskNotional.Equal(d("847")))
	assert.Equal(t, 2, m.SourcesCount)
	assert.Len(t, m.Depth, 5)
	assert.Empty(t, m.PriceImpact)
}

func TestDepthAt(t *testing.T) {
	b := book()
	band := DepthAt(b, d("2"))
	assert.True(t, band.BidDepth.Equal(d("3")), band.BidDepth.String())
	assert.True(t, band.AskDepth.Equal(d("4")), band.AskDepth.String())

	m := Compute(b, []decimal.Decimal{d("10")}, []decimal.Decimal{})
	got, ok := m.DepthAt(d("10"))
	require.True(t, ok)
	assert.True(t, got.BidDepth.Equal(d("8")))
	assert.True(t, got.AskDepth.Equal(d("8")))
}

func TestOneSidedBook(t *testing.T) {
	b := &domain.ConsolidatedBook{Symbol: "X-Y", Asks: []domain.PriceLevel{lvl("10", "1")}}
	m := Compute(b, nil, nil)

	assert.Nil(t, m.BestBid)
	require.NotNil(t, m.BestAsk)
	assert.Nil(t, m.MidPrice)
	assert.Nil(t, m.Spread)
	for _, band := range m.Depth {
		assert.True(t, band.BidDepth.IsZero())
		assert.True(t, band.AskDepth.IsZero())
	}
}

func TestCrossedBookReportsNegativeSpread(t *testing.T) {
	b := &domain.ConsolidatedBook{
		Bids: []domain.PriceLevel{lvl("101", "1")},
		Asks: []domain.PriceLevel{lvl("100", "1")},
	}
	m := Compute(b, nil, nil)
	require.NotNil(t, m.Spread)
	assert.True(t, m.Spread.IsNegative())
}

func TestPriceImpact(t *testing.T) {
	b := book()

	small := PriceImpact(b, d("101"))
	assert.True(t, small.Fillable)
	assert.True(t, small.ImpactPct.Equal(d("1")), small.ImpactPct.String())

	huge := PriceImpact(b, d("1000000"))
	assert.False(t, huge.Fillable)
	assert.True(t, huge.ImpactPct.Equal(d("100")))
}

func TestDistribution(t *testing.T) {
	shares := Distribution(book())
	require.Len(t, shares, 2)
	assert.Equal(t, "a", shares[0].SourceID)
	assert.True(t, shares[0].SharePct.Equal(d("40")))
	assert.True(t, shares[1].SharePct.Equal(d("60")))
}

func TestLadder(t *testing.T) {
	steps, err := Ladder(book(), "asks")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.True(t, steps[1].CumulativeQuantity.Equal(d("4")))
	assert.True(t, steps[1].CumulativeNotional.Equal(d("407")))

	_, err = Ladder(book(), "sideways")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestBestPrices(t *testing.T) {
	bp := BestPrices(book())
	require.NotNil(t, bp.BestBid)
	assert.True(t, bp.BestBid.Price.Equal(d("99")))
	assert.True(t, bp.Spread.Equal(d("2")))

	empty := BestPrices(&domain.ConsolidatedBook{})
	assert.Nil(t, empty.BestBid)
	assert.Nil(t, empty.Spread)
}
