// Package metrics derives liquidity statistics from a consolidated book.
// Every function here is a pure function of its inputs.
package metrics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

var (
	hundred     = decimal.NewFromInt(100)
	two         = decimal.NewFromInt(2)
	tenThousand = decimal.NewFromInt(10_000)
)

// DefaultDepthPcts are the bands reported when none are requested.
func DefaultDepthPcts() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.RequireFromString("0.1"),
		decimal.RequireFromString("0.5"),
		decimal.NewFromInt(1),
		decimal.NewFromInt(2),
		decimal.NewFromInt(5),
	}
}

// DefaultImpactNotionals are the quote amounts used for price impact.
func DefaultImpactNotionals() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.NewFromInt(1_000),
		decimal.NewFromInt(10_000),
		decimal.NewFromInt(100_000),
	}
}

// Compute summarises book. Nil depthPcts or impactNotionals fall back to the
// defaults; pass an empty non-nil slice to skip a section.
func Compute(book *domain.ConsolidatedBook, depthPcts, impactNotionals []decimal.Decimal) domain.LiquidityMetrics {
	if depthPcts == nil {
		depthPcts = DefaultDepthPcts()
	}
	if impactNotionals == nil {
		impactNotionals = DefaultImpactNotionals()
	}

	m := domain.LiquidityMetrics{
		Symbol:       book.Symbol,
		SourcesCount: len(book.Contributing),
		GeneratedAt:  book.GeneratedAt,
	}

	bid, hasBid := book.BestBid()
	ask, hasAsk := book.BestAsk()
	if hasBid {
		p := bid.Price
		m.BestBid = &p
	}
	if hasAsk {
		p := ask.Price
		m.BestAsk = &p
	}
	if mid, ok := Mid(book); ok {
		spread := ask.Price.Sub(bid.Price)
		pct := spread.Div(mid).Mul(hundred)
		bps := spread.Div(mid).Mul(tenThousand)
		m.MidPrice = &mid
		m.Spread = &spread
		m.SpreadPct = &pct
		m.SpreadBps = &bps
	}

	m.TotalBidVolume, m.BidNotional = totals(book.Bids)
	m.TotalAskVolume, m.AskNotional = totals(book.Asks)

	m.Depth = make([]domain.DepthBand, 0, len(depthPcts))
	for _, p := range depthPcts {
		m.Depth = append(m.Depth, DepthAt(book, p))
	}
	for _, n := range impactNotionals {
		m.PriceImpact = append(m.PriceImpact, PriceImpact(book, n))
	}
	m.Distribution = Distribution(book)
	return m
}

// Mid is the midpoint of the best bid and ask. It is absent when either
// side is empty.
func Mid(book *domain.ConsolidatedBook) (decimal.Decimal, bool) {
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(two), true
}

// DepthAt sums resting quantity within pct percent of the mid price. Both
// depths are zero when there is no mid.
func DepthAt(book *domain.ConsolidatedBook, pct decimal.Decimal) domain.DepthBand {
	band := domain.DepthBand{Pct: pct, BidDepth: decimal.Zero, AskDepth: decimal.Zero}
	mid, ok := Mid(book)
	if !ok {
		return band
	}
	frac := pct.Div(hundred)
	floor := mid.Mul(decimal.NewFromInt(1).Sub(frac))
	ceil := mid.Mul(decimal.NewFromInt(1).Add(frac))

	for _, l := range book.Bids {
		if l.Price.LessThan(floor) {
			break
		}
		band.BidDepth = band.BidDepth.Add(l.Quantity)
	}
	for _, l := range book.Asks {
		if l.Price.GreaterThan(ceil) {
			break
		}
		band.AskDepth = band.AskDepth.Add(l.Quantity)
	}
	return band
}

// PriceImpact is the percentage by which buying notional worth of base
// through the asks moves the average price above the reference price (the
// mid, or the best ask on a one-sided book). An order the asks cannot fill
// reports 100.
func PriceImpact(book *domain.ConsolidatedBook, notional decimal.Decimal) domain.ImpactPoint {
	pt := domain.ImpactPoint{Notional: notional, ImpactPct: hundred}

	ref, ok := Mid(book)
	if !ok {
		best, hasAsk := book.BestAsk()
		if !hasAsk {
			return pt
		}
		ref = best.Price
	}
	if !notional.IsPositive() {
		pt.ImpactPct = decimal.Zero
		pt.Fillable = true
		return pt
	}

	remaining := notional
	qty := decimal.Zero
	for _, l := range book.Asks {
		levelNotional := l.Notional()
		if remaining.LessThanOrEqual(levelNotional) {
			qty = qty.Add(remaining.Div(l.Price))
			remaining = decimal.Zero
			break
		}
		qty = qty.Add(l.Quantity)
		remaining = remaining.Sub(levelNotional)
	}
	if remaining.IsPositive() || !qty.IsPositive() {
		return pt
	}

	avg := notional.Div(qty)
	pt.ImpactPct = avg.Sub(ref).Div(ref).Mul(hundred).Round(8)
	pt.Fillable = true
	return pt
}

// Distribution is each contributing source's share of the total notional
// it added to the book.
func Distribution(book *domain.ConsolidatedBook) []domain.SourceShare {
	if len(book.SourceDepth) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, sd := range book.SourceDepth {
		total = total.Add(sd.TotalNotional())
	}
	out := make([]domain.SourceShare, 0, len(book.SourceDepth))
	for _, sd := range book.SourceDepth {
		share := decimal.Zero
		if total.IsPositive() {
			share = sd.TotalNotional().Div(total).Mul(hundred).Round(4)
		}
		out = append(out, domain.SourceShare{SourceID: sd.SourceID, Notional: sd.TotalNotional(), SharePct: share})
	}
	return out
}

// Ladder returns the cumulative depth of one side, best level first. side
// is "bids" or "asks".
func Ladder(book *domain.ConsolidatedBook, side string) ([]domain.LadderStep, error) {
	var levels []domain.PriceLevel
	switch strings.ToLower(side) {
	case "bids", "bid":
		levels = book.Bids
	case "asks", "ask":
		levels = book.Asks
	default:
		return nil, &domain.ValidationError{Field: "side", Message: fmt.Sprintf("want bids or asks, got %q", side)}
	}

	out := make([]domain.LadderStep, 0, len(levels))
	cumQty, cumNotional := decimal.Zero, decimal.Zero
	for _, l := range levels {
		cumQty = cumQty.Add(l.Quantity)
		cumNotional = cumNotional.Add(l.Notional())
		out = append(out, domain.LadderStep{
			Price:              l.Price,
			Quantity:           l.Quantity,
			CumulativeQuantity: cumQty,
			CumulativeNotional: cumNotional,
		})
	}
	return out, nil
}

// BestPrices returns the top of book.
func BestPrices(book *domain.ConsolidatedBook) domain.BestPrices {
	bp := domain.BestPrices{
		Symbol:       book.Symbol,
		Contributing: book.Contributing,
		Missing:      book.Missing,
		GeneratedAt:  book.GeneratedAt,
	}
	bid, hasBid := book.BestBid()
	ask, hasAsk := book.BestAsk()
	if hasBid {
		bp.BestBid = &bid
	}
	if hasAsk {
		bp.BestAsk = &ask
	}
	if hasBid && hasAsk {
		spread := ask.Price.Sub(bid.Price)
		bp.Spread = &spread
	}
	return bp
}

func totals(levels []domain.PriceLevel) (qty, notional decimal.Decimal) {
	qty, notional = decimal.Zero, decimal.Zero
	for _, l := range levels {
		qty = qty.Add(l.Quantity)
		notional = notional.Add(l.Notional())
	}
	return qty, notional
}
