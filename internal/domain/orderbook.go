package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+quantity entry in an orderbook.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Notional returns price times quantity.
func (l PriceLevel) Notional() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// OrderBookSnapshot is one source's view of a symbol at CapturedAt. Bids are
// sorted by price descending, asks ascending. Snapshots are never mutated
// after the adapter returns them.
type OrderBookSnapshot struct {
	SourceID   string       `json:"source_id"`
	Symbol     string       `json:"symbol"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	CapturedAt time.Time    `json:"captured_at"`
}

// SourceDepth is the liquidity a single source contributed to a
// consolidated book.
type SourceDepth struct {
	SourceID    string          `json:"source_id"`
	BidQuantity decimal.Decimal `json:"bid_quantity"`
	AskQuantity decimal.Decimal `json:"ask_quantity"`
	BidNotional decimal.Decimal `json:"bid_notional"`
	AskNotional decimal.Decimal `json:"ask_notional"`
}

// TotalNotional is the bid plus ask notional.
func (d SourceDepth) TotalNotional() decimal.Decimal {
	return d.BidNotional.Add(d.AskNotional)
}

// ConsolidatedBook is the merged book built from one aggregation cycle. It is
// immutable once constructed and shared read-only between the router, the
// metrics engine and API handlers.
type ConsolidatedBook struct {
	Symbol       string        `json:"symbol"`
	Bids         []PriceLevel  `json:"bids"`
	Asks         []PriceLevel  `json:"asks"`
	Contributing []string      `json:"contributing_sources"`
	Missing      []string      `json:"missing_sources"`
	SourceDepth  []SourceDepth `json:"source_depth,omitempty"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// BestBid returns the highest bid, if any.
func (b *ConsolidatedBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b *ConsolidatedBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Truncate returns a copy of the book limited to depth levels per side. A
// non-positive depth or one at least as large as both sides returns b itself.
func (b *ConsolidatedBook) Truncate(depth int) *ConsolidatedBook {
	if depth <= 0 || (len(b.Bids) <= depth && len(b.Asks) <= depth) {
		return b
	}
	out := *b
	if len(out.Bids) > depth {
		out.Bids = out.Bids[:depth:depth]
	}
	if len(out.Asks) > depth {
		out.Asks = out.Asks[:depth:depth]
	}
	return &out
}

// Side returns the levels a taker on the given side consumes: asks for a buy,
// bids for a sell.
func (b *ConsolidatedBook) Side(side Side) []PriceLevel {
	if side == SideBuy {
		return b.Asks
	}
	return b.Bids
}

// BestPrices is the top of a consolidated book.
type BestPrices struct {
	Symbol       string           `json:"symbol"`
	BestBid      *PriceLevel      `json:"best_bid,omitempty"`
	BestAsk      *PriceLevel      `json:"best_ask,omitempty"`
	Spread       *decimal.Decimal `json:"spread,omitempty"`
	Contributing []string         `json:"contributing_sources"`
	Missing      []string         `json:"missing_sources"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// LadderStep is one row in a cumulative depth ladder.
type LadderStep struct {
	Price              decimal.Decimal `json:"price"`
	Quantity           decimal.Decimal `json:"quantity"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"`
	CumulativeNotional decimal.Decimal `json:"cumulative_notional"`
}
