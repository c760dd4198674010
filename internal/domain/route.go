package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the taker side of a route request.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// OrderType selects how the router treats price levels.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// ParseOrderType accepts "market"/"limit" in any case. Empty means market.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderTypeMarket:
		return OrderTypeMarket, nil
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}

// RouteStatus is the outcome of a routing decision.
type RouteStatus string

const (
	RouteFilled   RouteStatus = "filled"
	RoutePartial  RouteStatus = "partial"
	RouteRejected RouteStatus = "rejected"
)

// StopReason explains why the book walk ended.
type StopReason string

const (
	StopFilled        StopReason = "filled"
	StopBookExhausted StopReason = "book_exhausted"
	StopSlippageBound StopReason = "slippage_bound"
	StopLimitPrice    StopReason = "limit_price"
)

// RouteRequest asks the router to fill Amount of Symbol on Side.
type RouteRequest struct {
	Symbol         string           `json:"symbol"`
	Side           Side             `json:"side"`
	Amount         decimal.Decimal  `json:"amount"`
	OrderType      OrderType        `json:"order_type"`
	LimitPrice     *decimal.Decimal `json:"limit_price,omitempty"`
	MaxSlippagePct *decimal.Decimal `json:"max_slippage_pct,omitempty"`
}

// Execution is one fill segment at a single consolidated price level.
type Execution struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// RouteResult is a one-shot routing decision. It is never mutated after the
// router returns it.
type RouteResult struct {
	ID               string           `json:"id"`
	Symbol           string           `json:"symbol"`
	Side             Side             `json:"side"`
	OrderType        OrderType        `json:"order_type"`
	RequestedAmount  decimal.Decimal  `json:"requested_amount"`
	FilledAmount     decimal.Decimal  `json:"filled_amount"`
	WeightedAvgPrice *decimal.Decimal `json:"weighted_avg_price,omitempty"`
	Executions       []Execution      `json:"executions"`
	Status           RouteStatus      `json:"status"`
	SlippagePct      decimal.Decimal  `json:"slippage_pct"`
	Notional         decimal.Decimal  `json:"notional"`
	EstimatedFee     decimal.Decimal  `json:"estimated_fee"`
	StopReason       StopReason       `json:"stop_reason"`
	Sources          []string         `json:"sources"`
	BookGeneratedAt  time.Time        `json:"book_generated_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

// StatusFor derives the route status from the requested and filled amounts.
func StatusFor(requested, filled decimal.Decimal) RouteStatus {
	switch {
	case !filled.IsPositive():
		return RouteRejected
	case filled.LessThan(requested):
		return RoutePartial
	default:
		return RouteFilled
	}
}
