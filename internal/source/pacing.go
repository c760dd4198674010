package source

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// Paced wraps an adapter with a token-bucket limiter so bursts of
// aggregations cannot exceed a venue's public rate limit.
type Paced struct {
	inner   domain.SourceAdapter
	limiter *rate.Limiter
}

// NewPaced limits inner to perSec requests per second with the given burst.
// A non-positive perSec disables pacing and returns inner unchanged.
func NewPaced(inner domain.SourceAdapter, perSec float64, burst int) domain.SourceAdapter {
	if perSec <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return &Paced{inner: inner, limiter: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// ID returns the wrapped adapter's id.
func (p *Paced) ID() string { return p.inner.ID() }

// FetchBook waits for a token, then delegates. If the token cannot be
// obtained before ctx's deadline the call fails as a timeout without
// touching the venue.
func (p *Paced) FetchBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.OrderBookSnapshot{}, &domain.FetchError{
			SourceID: p.inner.ID(),
			Kind:     domain.FetchTimeout,
			Detail:   "rate limit: " + err.Error(),
		}
	}
	return p.inner.FetchBook(ctx, symbol, depth)
}

var _ domain.SourceAdapter = (*Paced)(nil)
