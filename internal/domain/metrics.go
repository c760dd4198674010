package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepthBand is the resting quantity within Pct percent of the mid price.
type DepthBand struct {
	Pct      decimal.Decimal `json:"pct"`
	BidDepth decimal.Decimal `json:"bid_depth"`
	AskDepth decimal.Decimal `json:"ask_depth"`
}

// ImpactPoint is the price impact of buying Notional worth through the asks.
type ImpactPoint struct {
	Notional  decimal.Decimal `json:"notional"`
	ImpactPct decimal.Decimal `json:"impact_pct"`
	Fillable  bool            `json:"fillable"`
}

// SourceShare is one source's share of the consolidated notional.
type SourceShare struct {
	SourceID string          `json:"source_id"`
	Notional decimal.Decimal `json:"notional"`
	SharePct decimal.Decimal `json:"share_pct"`
}

// LiquidityMetrics summarises a consolidated book. Optional fields are nil
// when the book side they depend on is empty.
type LiquidityMetrics struct {
	Symbol         string           `json:"symbol"`
	BestBid        *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk        *decimal.Decimal `json:"best_ask,omitempty"`
	MidPrice       *decimal.Decimal `json:"mid_price,omitempty"`
	Spread         *decimal.Decimal `json:"spread,omitempty"`
	SpreadPct      *decimal.Decimal `json:"spread_pct,omitempty"`
	SpreadBps      *decimal.Decimal `json:"spread_bps,omitempty"`
	TotalBidVolume decimal.Decimal  `json:"total_bid_volume"`
	TotalAskVolume decimal.Decimal  `json:"total_ask_volume"`
	BidNotional    decimal.Decimal  `json:"bid_notional"`
	AskNotional    decimal.Decimal  `json:"ask_notional"`
	Depth          []DepthBand      `json:"depth"`
	PriceImpact    []ImpactPoint    `json:"price_impact,omitempty"`
	Distribution   []SourceShare    `json:"distribution,omitempty"`
	SourcesCount   int              `json:"sources_count"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// DepthAt returns the band for pct, if it was computed.
func (m LiquidityMetrics) DepthAt(pct decimal.Decimal) (DepthBand, bool) {
	for _, d := range m.Depth {
		if d.Pct.Equal(pct) {
			return d, true
		}
	}
	return DepthBand{}, false
}
