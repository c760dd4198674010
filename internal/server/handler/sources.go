package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// SourceHandler serves source status and direct per-source books.
type SourceHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

func NewSourceHandler(liquidity LiquidityService, logger *slog.Logger) *SourceHandler {
	return &SourceHandler{liquidity: liquidity, logger: logHandler(logger, "sources")}
}

// ListSources returns every configured source with its last health.
// GET /api/sources
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.SourceStatus{"sources": h.liquidity.Sources()})
}

// GetSourceBook fetches one source's snapshot, bypassing the cache.
// GET /api/sources/{id}/books/{symbol}?depth=N
func (h *SourceHandler) GetSourceBook(w http.ResponseWriter, r *http.Request) {
	depth, err := parseDepth(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	snap, err := h.liquidity.SourceBook(r.Context(), r.PathValue("id"), r.PathValue("symbol"), depth)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
