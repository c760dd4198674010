package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

const maxRouteBody = 1 << 16

// RouteService routes orders and lists past decisions.
type RouteService interface {
	Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.RouteResult, error)
	Get(ctx context.Context, id string) (domain.RouteResult, error)
}

// RouteHandler serves the routing endpoints.
type RouteHandler struct {
	routes RouteService
	logger *slog.Logger
}

func NewRouteHandler(routes RouteService, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{routes: routes, logger: logHandler(logger, "routes")}
}

// rejectedResponse carries the attempted route next to the error.
type rejectedResponse struct {
	Error  string              `json:"error"`
	Kind   string              `json:"kind"`
	Result *domain.RouteResult `json:"result"`
}

// CreateRoute computes a routing decision.
// POST /api/routes
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.RouteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRouteBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.routes.Route(r.Context(), req)
	if err != nil {
		var re *domain.RouteError
		if result != nil && errors.As(err, &re) {
			writeJSON(w, statusFor(err), rejectedResponse{Error: err.Error(), Kind: string(re.Kind), Result: result})
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type listRoutesResponse struct {
	Routes []domain.RouteResult `json:"routes"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListRoutes returns recent decisions, newest first.
// GET /api/routes?limit=50&offset=0
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	routes, err := h.routes.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if routes == nil {
		routes = []domain.RouteResult{}
	}
	writeJSON(w, http.StatusOK, listRoutesResponse{Routes: routes, Limit: opts.Limit, Offset: opts.Offset})
}

// GetRoute returns one stored decision.
// GET /api/routes/{id}
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	result, err := h.routes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
