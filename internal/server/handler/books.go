package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// LiquidityService is what the book, metrics and source handlers need.
type LiquidityService interface {
	Book(ctx context.Context, symbol string, depth int, sourceIDs []string) (*domain.ConsolidatedBook, error)
	Best(ctx context.Context, symbol string) (domain.BestPrices, error)
	Ladder(ctx context.Context, symbol, side string, depth int) ([]domain.LadderStep, error)
	Metrics(ctx context.Context, symbol string, depthPcts []decimal.Decimal) (domain.LiquidityMetrics, error)
	Sources() []domain.SourceStatus
	SourceBook(ctx context.Context, id, symbol string, depth int) (domain.OrderBookSnapshot, error)
}

// BookHandler serves consolidated books and liquidity metrics.
type BookHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

func NewBookHandler(liquidity LiquidityService, logger *slog.Logger) *BookHandler {
	return &BookHandler{liquidity: liquidity, logger: logHandler(logger, "books")}
}

// GetBook returns the consolidated book.
// GET /api/books/{symbol}?depth=N&sources=a,b
// depth above the configured aggregator depth is a 400.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	depth, err := parseDepth(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	book, err := h.liquidity.Book(r.Context(), r.PathValue("symbol"), depth, splitCSV(r.URL.Query().Get("sources")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// GetBest returns the top of book.
// GET /api/books/{symbol}/best
func (h *BookHandler) GetBest(w http.ResponseWriter, r *http.Request) {
	best, err := h.liquidity.Best(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

type ladderResponse struct {
	Symbol string              `json:"symbol"`
	Side   string              `json:"side"`
	Steps  []domain.LadderStep `json:"steps"`
}

// GetLadder returns the cumulative depth ladder for one side.
// GET /api/books/{symbol}/ladder?side=bids|asks&depth=N
func (h *BookHandler) GetLadder(w http.ResponseWriter, r *http.Request) {
	depth, err := parseDepth(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	side := r.URL.Query().Get("side")
	if side == "" {
		side = "asks"
	}
	steps, err := h.liquidity.Ladder(r.Context(), r.PathValue("symbol"), side, depth)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ladderResponse{Symbol: r.PathValue("symbol"), Side: side, Steps: steps})
}

// GetMetrics returns liquidity metrics.
// GET /api/metrics/{symbol}?depth_pcts=0.5,1,2
func (h *BookHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	pcts, err := parseDecimals("depth_pcts", r.URL.Query().Get("depth_pcts"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	m, err := h.liquidity.Metrics(r.Context(), r.PathValue("symbol"), pcts)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
