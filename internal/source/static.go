package source

import (
	"context"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// Static serves a fixed book. It backs sandbox drills and local
// development where no venue is reachable.
type Static struct {
	id      string
	bids    []domain.PriceLevel
	asks    []domain.PriceLevel
	latency time.Duration
}

// NewStatic creates a Static adapter. latency simulates a network round
// trip and honours ctx cancellation.
func NewStatic(id string, bids, asks []domain.PriceLevel, latency time.Duration) *Static {
	return &Static{id: id, bids: bids, asks: asks, latency: latency}
}

func (s *Static) ID() string { return s.id }

func (s *Static) FetchBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.OrderBookSnapshot{}, Classify(s.id, ctx.Err())
		case <-timer.C:
		}
	}
	snap := Normalize(domain.OrderBookSnapshot{
		SourceID:   s.id,
		Symbol:     symbol,
		Bids:       append([]domain.PriceLevel(nil), s.bids...),
		Asks:       append([]domain.PriceLevel(nil), s.asks...),
		CapturedAt: time.Now().UTC(),
	}, depth)
	return snap, nil
}

var _ domain.SourceAdapter = (*Static)(nil)
