package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// ErrHistoryDisabled is returned by the history calls when no route store
// is configured.
var ErrHistoryDisabled = fmt.Errorf("route history requires postgres: %w", domain.ErrNotConfigured)

// Router computes routing decisions. *router.Router satisfies it.
type Router interface {
	Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error)
}

// RouteService routes orders and keeps the decision history.
type RouteService struct {
	router Router
	store  domain.RouteStore
	logger *slog.Logger
}

// NewRouteService creates a RouteService. store may be nil.
func NewRouteService(router Router, store domain.RouteStore, logger *slog.Logger) *RouteService {
	return &RouteService{
		router: router,
		store:  store,
		logger: logger.With(slog.String("component", "route_service")),
	}
}

// Route runs the router and records the decision, including rejected ones.
// A failure to persist is logged and does not fail the request.
func (s *RouteService) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error) {
	result, err := s.router.Route(ctx, req)
	if result == nil {
		return nil, err
	}
	if s.store != nil {
		if saveErr := s.store.Save(ctx, *result); saveErr != nil {
			s.logger.WarnContext(ctx, "save route result failed",
				slog.String("route_id", result.ID),
				slog.String("error", saveErr.Error()),
			)
		}
	}
	return result, err
}

// List returns recent routing decisions, newest first.
func (s *RouteService) List(ctx context.Context, opts domain.ListOpts) ([]domain.RouteResult, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	results, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("route_service: list: %w", err)
	}
	return results, nil
}

// Get returns one stored routing decision.
func (s *RouteService) Get(ctx context.Context, id string) (domain.RouteResult, error) {
	if s.store == nil {
		return domain.RouteResult{}, ErrHistoryDisabled
	}
	result, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("route_service: get %q: %w", id, err)
	}
	return result, nil
}
