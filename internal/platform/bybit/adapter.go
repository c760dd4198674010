// Package bybit adapts the Bybit v5 spot orderbook endpoint to
// domain.SourceAdapter using the official bybit.go.api client.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bybitapi "github.com/bybit-exchange/bybit.go.api"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

const (
	LiveURL    = "https://api.bybit.com"
	SandboxURL = "https://api-testnet.bybit.com"

	// spot orderbook accepts 1..200 levels
	maxSpotLimit = 200
)

type orderbookResult struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
	TS     int64      `json:"ts"`
}

// Adapter fetches spot orderbook snapshots from Bybit.
type Adapter struct {
	id        string
	client    *bybitapi.Client
	maxLevels int
}

// New creates a Bybit adapter.
func New(opts source.Options) *Adapter {
	client := bybitapi.NewBybitHttpClient(opts.Credentials.APIKey, opts.Credentials.APISecret,
		bybitapi.WithBaseURL(opts.Endpoint(LiveURL, SandboxURL)))
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	id := opts.ID
	if id == "" {
		id = "bybit"
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

	params := map[string]interface{}{
		"category": "spot",
		"symbol":   source.VenueSymbol("bybit", symbol),
		"limit":    min(levels, maxSpotLimit),
	}
	resp, err := a.client.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	if resp.RetCode != 0 {
		return domain.OrderBookSnapshot{}, &domain.FetchError{
			SourceID: a.id,
			Kind:     domain.FetchProtocol,
			Detail:   fmt.Sprintf("bybit retCode %d: %s", resp.RetCode, resp.RetMsg),
		}
	}

	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, fmt.Errorf("%w: %v", source.ErrMalformed, err))
	}
	var result orderbookResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}

	bids, err := source.ParseStringLevels(result.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	asks, err := source.ParseStringLevels(result.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}

	captured := time.Now().UTC()
	if result.TS > 0 {
		captured = time.UnixMilli(result.TS).UTC()
	}
	return source.Normalize(domain.OrderBookSnapshot{
		SourceID:   a.id,
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		CapturedAt: captured,
	}, levels), nil
}

var _ domain.SourceAdapter = (*Adapter)(nil)
