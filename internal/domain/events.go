package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AggregationEvent is emitted once per aggregation cycle, whether or not any
// source contributed.
type AggregationEvent struct {
	Symbol       string       `json:"symbol"`
	Contributing []string     `json:"contributing_sources"`
	Missing      []string     `json:"missing_sources"`
	Failures     []FetchError `json:"failures,omitempty"`
	LatencyMs    int64        `json:"latency_ms"`
	At           time.Time    `json:"at"`
	// Filtered marks a cycle run over a caller-chosen subset of the active
	// sources. Contributing and Missing then cover only that subset.
	Filtered     bool         `json:"filtered,omitempty"`
}

// Outage reports whether no source contributed to a full-set cycle.
// Filtered cycles never count as outages.
func (e AggregationEvent) Outage() bool {
	return !e.Filtered && len(e.Contributing) == 0
}

// RouteEvent is emitted once per routing decision.
type RouteEvent struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	Side            Side            `json:"side"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	FilledAmount    decimal.Decimal `json:"filled_amount"`
	Status          RouteStatus     `json:"status"`
	SlippagePct     decimal.Decimal `json:"slippage_pct"`
	At              time.Time       `json:"at"`
}

// RouteEventFor builds the observability record for a routing result.
func RouteEventFor(r *RouteResult) RouteEvent {
	return RouteEvent{
		ID:              r.ID,
		Symbol:          r.Symbol,
		Side:            r.Side,
		RequestedAmount: r.RequestedAmount,
		FilledAmount:    r.FilledAmount,
		Status:          r.Status,
		SlippagePct:     r.SlippagePct,
		At:              r.CreatedAt,
	}
}

// EventSink receives observability events. Implementations must not block
// the caller for long and must never fail the request that produced the
// event.
type EventSink interface {
	AggregationCompleted(ctx context.Context, evt AggregationEvent)
	RouteCompleted(ctx context.Context, evt RouteEvent)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) AggregationCompleted(context.Context, AggregationEvent) {}
func (NopSink) RouteCompleted(context.Context, RouteEvent)             {}
