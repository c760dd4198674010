package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

type stubRouter struct {
	result *domain.RouteResult
	err    error
}

func (r stubRouter) Route(context.Context, domain.RouteRequest) (*domain.RouteResult, error) {
	return r.result, r.err
}

type memRouteStore struct {
	domain.RouteStore
	saved   []domain.RouteResult
	saveErr error
}

func (s *memRouteStore) Save(_ context.Context, r domain.RouteResult) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *memRouteStore) List(context.Context, domain.ListOpts) ([]domain.RouteResult, error) {
	return s.saved, nil
}

func (s *memRouteStore) GetByID(_ context.Context, id string) (domain.RouteResult, error) {
	for _, r := range s.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.RouteResult{}, domain.ErrNotFound
}

func TestRouteServicePersistsDecisions(t *testing.T) {
	store := &memRouteStore{}
	filled := &domain.RouteResult{ID: "r1", Status: domain.RouteFilled, FilledAmount: decimal.NewFromInt(1)}
	svc := NewRouteService(stubRouter{result: filled}, store, discardLogger())
	ctx := context.Background()

	got, err := svc.Route(ctx, domain.RouteRequest{})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	list, err := svc.List(ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	one, err := svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RouteFilled, one.Status)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRouteServiceStoresRejections(t *testing.T) {
	store := &memRouteStore{}
	rejected := &domain.RouteResult{ID: "r2", Status: domain.RouteRejected}
	routeErr := &domain.RouteError{Kind: domain.RouteInsufficientLiquidity, Symbol: "BTC-USDT"}
	svc := NewRouteService(stubRouter{result: rejected, err: routeErr}, store, discardLogger())

	got, err := svc.Route(context.Background(), domain.RouteRequest{})
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	require.NotNil(t, got)
	assert.Len(t, store.saved, 1)
}

func TestRouteServiceValidationSkipsStore(t *testing.T) {
	store := &memRouteStore{}
	svc := NewRouteService(stubRouter{err: &domain.ValidationError{Field: "amount", Message: "must be positive"}}, store, discardLogger())

	_, err := svc.Route(context.Background(), domain.RouteRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, store.saved)
}

func TestRouteServiceSaveFailureDoesNotFailRoute(t *testing.T) {
	store := &memRouteStore{saveErr: errors.New("db down")}
	svc := NewRouteService(stubRouter{result: &domain.RouteResult{ID: "r3"}}, store, discardLogger())

	got, err := svc.Route(context.Background(), domain.RouteRequest{})
	require.NoError(t, err)
	assert.Equal(t, "r3", got.ID)
}

func TestRouteServiceWithoutStore(t *testing.T) {
	svc := NewRouteService(stubRouter{result: &domain.RouteResult{ID: "r4"}}, nil, discardLogger())

	_, err := svc.Route(context.Background(), domain.RouteRequest{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), domain.ListOpts{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}
