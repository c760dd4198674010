package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/metrics"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

// BookCache serves consolidated books for the full active source set.
type BookCache interface {
	Get(ctx context.Context, symbol string) (*domain.ConsolidatedBook, error)
}

// SourceAggregator runs one uncached aggregation over a chosen set of
// adapters. *aggregator.Aggregator satisfies it.
type SourceAggregator interface {
	AggregateSources(ctx context.Context, symbol string, depth int, deadline time.Duration, adapters []domain.SourceAdapter) (*domain.ConsolidatedBook, error)
	Depth() int
	Deadline() time.Duration
}

// SourceRegistry is the read side of source.Registry.
type SourceRegistry interface {
	Lookup(id string) (domain.SourceAdapter, error)
	Select(ids []string) ([]domain.SourceAdapter, error)
	Statuses() []domain.SourceStatus
}

// LiquidityConfig holds the symbol universe and metric defaults.
type LiquidityConfig struct {
	Symbols         []string
	DepthPcts       []decimal.Decimal
	ImpactNotionals []decimal.Decimal
}

// LiquidityService answers read-only questions about consolidated liquidity.
type LiquidityService struct {
	books    BookCache
	agg      SourceAggregator
	registry SourceRegistry
	symbols  map[string]bool
	cfg      LiquidityConfig
	logger   *slog.Logger
}

// NewLiquidityService creates a LiquidityService.
func NewLiquidityService(books BookCache, agg SourceAggregator, registry SourceRegistry, cfg LiquidityConfig, logger *slog.Logger) *LiquidityService {
	return &LiquidityService{
		books:    books,
		agg:      agg,
		registry: registry,
		symbols:  symbolSet(cfg.Symbols),
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "liquidity_service")),
	}
}

// Symbols returns the configured universe in canonical form.
func (s *LiquidityService) Symbols() []string {
	out := make([]string, 0, len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		if canon, err := source.NormalizeSymbol(sym); err == nil {
			out = append(out, canon)
		}
	}
	return out
}

// Book returns the consolidated book truncated to depth levels per side.
// With no source ids it is served from the cache; otherwise an uncached
// aggregation runs over exactly those active sources. depth may not exceed
// the aggregator's configured depth.
func (s *LiquidityService) Book(ctx context.Context, symbol string, depth int, sourceIDs []string) (*domain.ConsolidatedBook, error) {
	canon, err := s.resolve(symbol)
	if err != nil {
		return nil, err
	}
	if limit := s.agg.Depth(); depth > limit {
		return nil, &domain.ValidationError{Field: "depth", Message: fmt.Sprintf("must be at most %d, got %d", limit, depth)}
	}
	if len(sourceIDs) == 0 {
		book, err := s.books.Get(ctx, canon)
		if err != nil {
			return nil, err
		}
		return book.Truncate(depth), nil
	}

	adapters, err := s.registry.Select(sourceIDs)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return nil, fmt.Errorf("source %q is not active: %w", fe.SourceID, domain.ErrSourceNotFound)
		}
		return nil, err
	}
	return s.agg.AggregateSources(ctx, canon, depth, s.agg.Deadline(), adapters)
}

// Best returns the top of the consolidated book.
func (s *LiquidityService) Best(ctx context.Context, symbol string) (domain.BestPrices, error) {
	book, err := s.Book(ctx, symbol, 0, nil)
	if err != nil {
		return domain.BestPrices{}, err
	}
	return metrics.BestPrices(book), nil
}

// Ladder returns the cumulative depth ladder for "bids" or "asks".
func (s *LiquidityService) Ladder(ctx context.Context, symbol, side string, depth int) ([]domain.LadderStep, error) {
	book, err := s.Book(ctx, symbol, depth, nil)
	if err != nil {
		return nil, err
	}
	return metrics.Ladder(book, side)
}

// Metrics computes liquidity metrics. Nil depthPcts selects the configured
// bands.
func (s *LiquidityService) Metrics(ctx context.Context, symbol string, depthPcts []decimal.Decimal) (domain.LiquidityMetrics, error) {
	book, err := s.Book(ctx, symbol, 0, nil)
	if err != nil {
		return domain.LiquidityMetrics{}, err
	}
	if depthPcts == nil {
		depthPcts = s.cfg.DepthPcts
	}
	return metrics.Compute(book, depthPcts, s.cfg.ImpactNotionals), nil
}

// Sources lists every configured source with its last observed health.
func (s *LiquidityService) Sources() []domain.SourceStatus {
	return s.registry.Statuses()
}

// SourceBook fetches one source's snapshot directly, bypassing the cache.
func (s *LiquidityService) SourceBook(ctx context.Context, id, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	canon, err := s.resolve(symbol)
	if err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	adapter, err := s.registry.Lookup(id)
	if err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.agg.Deadline())
	defer cancel()
	snap, err := adapter.FetchBook(fetchCtx, canon, depth)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(id, err)
	}
	return snap, nil
}

func (s *LiquidityService) resolve(symbol string) (string, error) {
	canon, err := source.NormalizeSymbol(symbol)
	if err != nil {
		return "", &domain.ValidationError{Field: "symbol", Message: err.Error()}
	}
	if len(s.symbols) > 0 && !s.symbols[canon] {
		return "", fmt.Errorf("%s: %w", canon, domain.ErrUnknownSymbol)
	}
	return canon, nil
}

func symbolSet(symbols []string) map[string]bool {
	out := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if canon, err := source.NormalizeSymbol(s); err == nil {
			out[canon] = true
		}
	}
	return out
}
