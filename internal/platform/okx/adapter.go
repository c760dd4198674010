// Package okx adapts the OKX v5 books endpoint to domain.SourceAdapter.
package okx

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
	LiveURL = "https://www.okx.com"

	maxBooksSize = 400
)

type booksResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Asks [][]string `json:"asks"`
		Bids [][]string `json:"bids"`
		TS   string     `json:"ts"`
	} `json:"data"`
}

// Adapter fetches order books from OKX. OKX has no separate sandbox host;
// demo trading is selected with a request header.
type Adapter struct {
	id        string
	rest      *source.RESTClient
	maxLevels int
}

// New creates an OKX adapter.
func New(opts source.Options) *Adapter {
	rest := source.NewRESTClient(opts.Endpoint(LiveURL, LiveURL), opts.HTTPClient)
	if opts.Environment == domain.EnvSandbox {
		rest.SetHeader("x-simulated-trading", "1")
	}
	id := opts.ID
	if id == "" {
		id = "okx"
	}
	return &Adapter{id: id, rest: rest, maxLevels: opts.Levels()}
}

func (a *Adapter) ID() string { return a.id }

// FetchBook implements domain.SourceAdapter.
func (a *Adapter) FetchBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	levels := min(depth, a.maxLevels)
	if levels <= 0 {
		levels = a.maxLevels
	}

	q := url.Values{}
	q.Set("instId", source.VenueSymbol("okx", symbol))
	q.Set("sz", strconv.Itoa(min(levels, maxBooksSize)))

	var resp booksResponse
	if err := a.rest.GetJSON(ctx, "/api/v5/market/books", q, &resp); err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	if resp.Code != "0" {
		return domain.OrderBookSnapshot{}, &domain.FetchError{
			SourceID: a.id,
			Kind:     domain.FetchProtocol,
			Detail:   fmt.Sprintf("okx code %s: %s", resp.Code, resp.Msg),
		}
	}
	if len(resp.Data) == 0 {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, fmt.Errorf("%w: empty data", source.ErrMalformed))
	}

	book := resp.Data[0]
	bids, err := source.ParseStringLevels(book.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	asks, err := source.ParseStringLevels(book.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}

	captured := time.Now().UTC()
	if ms, err := strconv.ParseInt(book.TS, 10, 64); err == nil && ms > 0 {
		captured = time.UnixMilli(ms).UTC()
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
