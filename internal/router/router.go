// Package router walks a consolidated book to produce a best-execution
// routing decision. It never places orders.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

// DefaultFeeBps is the estimated taker fee applied to a route's notional.
var DefaultFeeBps = decimal.NewFromInt(10)

var tenThousand = decimal.NewFromInt(10_000)

// BookSource returns the current consolidated book for a symbol.
type BookSource interface {
	Get(ctx context.Context, symbol string) (*domain.ConsolidatedBook, error)
}

// Config holds router settings.
type Config struct {
	// Symbols is the routable universe in BASE-QUOTE form. Empty allows any
	// well-formed symbol.
	Symbols []string
	FeeBps  decimal.Decimal
}

// Router is safe for concurrent use.
type Router struct {
	books   BookSource
	sink    domain.EventSink
	logger  *slog.Logger
	symbols map[string]bool
	feeBps  decimal.Decimal

	now   func() time.Time
	newID func() string
}

// New creates a Router. A nil sink discards route events.
func New(books BookSource, sink domain.EventSink, logger *slog.Logger, cfg Config) *Router {
	if sink == nil {
		sink = domain.NopSink{}
	}
	fee := cfg.FeeBps
	if fee.IsNegative() {
		fee = DefaultFeeBps
	}
	symbols := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if canon, err := source.NormalizeSymbol(s); err == nil {
			symbols[canon] = true
		}
	}
	return &Router{
		books:   books,
		sink:    sink,
		logger:  logger.With(slog.String("component", "router")),
		symbols: symbols,
		feeBps:  fee,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Route computes a routing decision for req. A request that fills nothing
// returns the rejected result together with an insufficient-liquidity
// RouteError so callers can still show what was attempted.
func (r *Router) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error) {
	req, err := r.validate(req)
	if err != nil {
		return nil, err
	}

	book, err := r.books.Get(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	var limit *decimal.Decimal
	if req.OrderType == domain.OrderTypeLimit {
		limit = req.LimitPrice
	}
	f := walk(book.Side(req.Side), req.Side, req.Amount, limit, req.MaxSlippagePct)

	res := &domain.RouteResult{
		ID:              r.newID(),
		Symbol:          req.Symbol,
		Side:            req.Side,
		OrderType:       req.OrderType,
		RequestedAmount: req.Amount,
		FilledAmount:    f.filled,
		Executions:      f.executions,
		Status:          domain.StatusFor(req.Amount, f.filled),
		SlippagePct:     decimal.Zero,
		Notional:        f.notional,
		EstimatedFee:    f.notional.Mul(r.feeBps).Div(tenThousand),
		StopReason:      f.stop,
		Sources:         book.Contributing,
		BookGeneratedAt: book.GeneratedAt,
		CreatedAt:       r.now().UTC(),
	}
	if res.Executions == nil {
		res.Executions = []domain.Execution{}
	}
	if avg, ok := f.avg(); ok {
		res.WeightedAvgPrice = &avg
		res.SlippagePct = adverseMovePct(req.Side, f.best, avg)
	}

	r.sink.RouteCompleted(ctx, domain.RouteEventFor(res))

	if res.Status == domain.RouteRejected {
		return res, &domain.RouteError{
			Kind:   domain.RouteInsufficientLiquidity,
			Symbol: req.Symbol,
			Detail: string(f.stop),
		}
	}
	return res, nil
}

func (r *Router) validate(req domain.RouteRequest) (domain.RouteRequest, error) {
	canon, err := source.NormalizeSymbol(req.Symbol)
	if err != nil {
		return req, &domain.RouteError{Kind: domain.RouteSymbolUnknown, Symbol: req.Symbol, Detail: err.Error()}
	}
	if len(r.symbols) > 0 && !r.symbols[canon] {
		return req, &domain.RouteError{Kind: domain.RouteSymbolUnknown, Symbol: canon}
	}
	req.Symbol = canon

	side, err := domain.ParseSide(string(req.Side))
	if err != nil {
		return req, &domain.ValidationError{Field: "side", Message: err.Error()}
	}
	req.Side = side

	ot, err := domain.ParseOrderType(string(req.OrderType))
	if err != nil {
		return req, &domain.ValidationError{Field: "order_type", Message: err.Error()}
	}
	req.OrderType = ot

	if !req.Amount.IsPositive() {
		return req, &domain.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if ot == domain.OrderTypeLimit && (req.LimitPrice == nil || !req.LimitPrice.IsPositive()) {
		return req, &domain.ValidationError{Field: "limit_price", Message: "limit orders need a positive limit price"}
	}
	if req.MaxSlippagePct != nil && req.MaxSlippagePct.IsNegative() {
		return req, &domain.ValidationError{Field: "max_slippage_pct", Message: "must not be negative"}
	}
	return req, nil
}
