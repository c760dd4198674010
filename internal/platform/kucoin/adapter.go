// Package kucoin adapts the KuCoin level2 partial orderbook endpoints to
// domain.SourceAdapter.
package kucoin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

const (
	LiveURL    = "https://api.kucoin.com"
	SandboxURL = "https://openapi-sandbox.kucoin.com"
)

type orderbookResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Time     int64      `json:"time"`
		Sequence string     `json:"sequence"`
		Bids     [][]string `json:"bids"`
		Asks     [][]string `json:"asks"`
	} `json:"data"`
}

// Adapter fetches partial order books from KuCoin.
type Adapter struct {
	id        string
	rest      *source.RESTClient
	maxLevels int
}

// New creates a KuCoin adapter.
func New(opts source.Options) *Adapter {
	id := opts.ID
	if id == "" {
		id = "kucoin"
	}
	return &Adapter{
		id:        id,
		rest:      source.NewRESTClient(opts.Endpoint(LiveURL, SandboxURL), opts.HTTPClient),
		maxLevels: opts.Levels(),
	}
}

func (a *Adapter) ID() string { return a.id }

// FetchBook implements domain.SourceAdapter.
func (a *Adapter) FetchBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	levels := min(depth, a.maxLevels)
	if levels <= 0 {
		levels = a.maxLevels
	}

	path := "/api/v1/market/orderbook/level2_" + strconv.Itoa(source.Limit(levels, []int{20, 100}))
	q := url.Values{}
	q.Set("symbol", source.VenueSymbol("kucoin", symbol))

	var resp orderbookResponse
	if err := a.rest.GetJSON(ctx, path, q, &resp); err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	if resp.Code != "200000" {
		return domain.OrderBookSnapshot{}, &domain.FetchError{
			SourceID: a.id,
			Kind:     domain.FetchProtocol,
			Detail:   fmt.Sprintf("kucoin code %s: %s", resp.Code, resp.Msg),
		}
	}

	bids, err := source.ParseStringLevels(resp.Data.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	asks, err := source.ParseStringLevels(resp.Data.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}

	captured := time.Now().UTC()
	if resp.Data.Time > 0 {
		captured = time.UnixMilli(resp.Data.Time).UTC()
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
