package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// RouteStore implements domain.RouteStore on the route_results table.
type RouteStore struct {
	pool *pgxpool.Pool
}

// NewRouteStore creates a RouteStore backed by pool.
func NewRouteStore(pool *pgxpool.Pool) *RouteStore {
	return &RouteStore{pool: pool}
}

// NUMERIC columns are read back as text so no precision is lost on the way
// into decimal.Decimal.
const routeSelectCols = `id, symbol, side, order_type,
	requested_amount::text, filled_amount::text, weighted_avg_price::text,
	status, slippage_pct::text, notional::text, estimated_fee::text,
	stop_reason, sources, executions, book_generated_at, created_at`

// Save inserts a routing decision. Saving the same id twice is a no-op.
func (s *RouteStore) Save(ctx context.Context, r domain.RouteResult) error {
	execJSON, err := json.Marshal(r.Executions)
	if err != nil {
		return fmt.Errorf("postgres: marshal executions: %w", err)
	}

	var avg *string
	if r.WeightedAvgPrice != nil {
		v := r.WeightedAvgPrice.String()
		avg = &v
	}
	sources := r.Sources
	if sources == nil {
		sources = []string{}
	}

	const q = `
		INSERT INTO route_results (
			id, symbol, side, order_type,
			requested_amount, filled_amount, weighted_avg_price,
			status, slippage_pct, notional, estimated_fee,
			stop_reason, sources, executions, book_generated_at, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6::numeric, $7::numeric,
			$8, $9::numeric, $10::numeric, $11::numeric,
			$12, $13, $14, $15, $16
		) ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, q,
		r.ID, r.Symbol, string(r.Side), string(r.OrderType),
		r.RequestedAmount.String(), r.FilledAmount.String(), avg,
		string(r.Status), r.SlippagePct.String(), r.Notional.String(), r.EstimatedFee.String(),
		string(r.StopReason), sources, execJSON, r.BookGeneratedAt, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save route %s: %w", r.ID, err)
	}
	return nil
}

// GetByID returns one decision or domain.ErrNotFound.
func (s *RouteStore) GetByID(ctx context.Context, id string) (domain.RouteResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+routeSelectCols+` FROM route_results WHERE id = $1`, id)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("postgres: get route %s: %w", id, err)
	}
	results, err := scanRouteRows(rows)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("postgres: get route %s: %w", id, err)
	}
	if len(results) == 0 {
		return domain.RouteResult{}, fmt.Errorf("postgres: route %s: %w", id, domain.ErrNotFound)
	}
	return results[0], nil
}

// List returns decisions newest first.
func (s *RouteStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.RouteResult, error) {
	where, args := timeFilter(opts)
	q := `SELECT ` + routeSelectCols + ` FROM route_results` + where +
		` ORDER BY created_at DESC` + paginate(opts, &args)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list routes: %w", err)
	}
	results, err := scanRouteRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list routes: %w", err)
	}
	return results, nil
}

// ListBefore returns decisions created before the cutoff, oldest first.
func (s *RouteStore) ListBefore(ctx context.Context, before time.Time) ([]domain.RouteResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+routeSelectCols+` FROM route_results WHERE created_at < $1 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list routes before: %w", err)
	}
	results, err := scanRouteRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list routes before: %w", err)
	}
	return results, nil
}

// DeleteBefore removes decisions created before the cutoff.
func (s *RouteStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM route_results WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete routes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRouteRows(rows pgx.Rows) ([]domain.RouteResult, error) {
	defer rows.Close()

	var out []domain.RouteResult
	for rows.Next() {
		var (
			r                                             domain.RouteResult
			side, orderType, status, stop                 string
			requested, filled, slippage, notional, feeStr string
			avg                                           *string
			execJSON                                      []byte
		)
		if err := rows.Scan(
			&r.ID, &r.Symbol, &side, &orderType,
			&requested, &filled, &avg,
			&status, &slippage, &notional, &feeStr,
			&stop, &r.Sources, &execJSON, &r.BookGeneratedAt, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r.Side = domain.Side(side)
		r.OrderType = domain.OrderType(orderType)
		r.Status = domain.RouteStatus(status)
		r.StopReason = domain.StopReason(stop)

		for _, col := range []struct {
			dst  *decimal.Decimal
			src  string
			name string
		}{
			{&r.RequestedAmount, requested, "requested_amount"},
			{&r.FilledAmount, filled, "filled_amount"},
			{&r.SlippagePct, slippage, "slippage_pct"},
			{&r.Notional, notional, "notional"},
			{&r.EstimatedFee, feeStr, "estimated_fee"},
		} {
			v, err := decimal.NewFromString(col.src)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", col.name, err)
			}
			*col.dst = v
		}
		if avg != nil {
			v, err := decimal.NewFromString(*avg)
			if err != nil {
				return nil, fmt.Errorf("parse weighted_avg_price: %w", err)
			}
			r.WeightedAvgPrice = &v
		}
		if err := json.Unmarshal(execJSON, &r.Executions); err != nil {
			return nil, fmt.Errorf("unmarshal executions: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ domain.RouteStore = (*RouteStore)(nil)
