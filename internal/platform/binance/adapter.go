// Package binance adapts the Binance spot REST depth endpoint to
// domain.SourceAdapter using the go-binance SDK.
package binance

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

const (
	LiveURL    = "https://api.binance.com"
	SandboxURL = "https://testnet.binance.vision"
)

var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

// Adapter fetches spot depth snapshots from Binance.
type Adapter struct {
	id        string
	client    *gobinance.Client
	maxLevels int
}

// New creates a Binance adapter. Public depth does not need credentials but
// they are passed through so sandbox keys can be exercised.
func New(opts source.Options) *Adapter {
	client := gobinance.NewClient(opts.Credentials.APIKey, opts.Credentials.APISecret)
	client.BaseURL = opts.Endpoint(LiveURL, SandboxURL)
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	id := opts.ID
	if id == "" {
		id = "binance"
	}
	return &Adapter{id: id, client: client, maxLevels: opts.Levels()}
}

func (a *Adapter) ID() string { return a.id }

// FetchBook implements domain.SourceAdapter.
func (a *Adapter) FetchBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	levels := min(depth, a.maxLevels)
	if levels <= 0 {
		levels = a.maxLevels
	}

	res, err := a.client.NewDepthService().
		Symbol(source.VenueSymbol("binance", symbol)).
		Limit(source.Limit(levels, depthLimits)).
		Do(ctx)
	if err != nil {
		return domain.OrderBookSnapshot{}, a.classify(err)
	}

	bids, err := toLevels(res.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, a.classify(fmt.Errorf("bids: %w", err))
	}
	asks, err := toLevels(res.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, a.classify(fmt.Errorf("asks: %w", err))
	}

	return source.Normalize(domain.OrderBookSnapshot{
		SourceID:   a.id,
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		CapturedAt: time.Now().UTC(),
	}, levels), nil
}

func (a *Adapter) classify(err error) *domain.FetchError {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &domain.FetchError{
			SourceID: a.id,
			Kind:     domain.FetchProtocol,
			Detail:   fmt.Sprintf("binance api error %d: %s", apiErr.Code, apiErr.Message),
		}
	}
	return source.Classify(a.id, err)
}

func toLevels(rows []common.PriceLevel) ([]domain.PriceLevel, error) {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Price, r.Quantity}
	}
	return source.ParseStringLevels(out)
}

var _ domain.SourceAdapter = (*Adapter)(nil)
