// Package kraken adapts the Kraken public Depth endpoint to
// domain.SourceAdapter.
package kraken

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

const (
	LiveURL = "https://api.kraken.com"

	maxCount = 500
)

type depthResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Asks [][]any `json:"asks"`
		Bids [][]any `json:"bids"`
	} `json:"result"`
}

// Adapter fetches depth from Kraken. Kraken spot has no public sandbox, so
// the sandbox environment uses the live host unless base_url overrides it.
type Adapter struct {
	id        string
	rest      *source.RESTClient
	maxLevels int
}

// New creates a Kraken adapter.
func New(opts source.Options) *Adapter {
	id := opts.ID
	if id == "" {
		id = "kraken"
	}
	return &Adapter{
		id:        id,
		rest:      source.NewRESTClient(opts.Endpoint(LiveURL, LiveURL), opts.HTTPClient),
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

	q := url.Values{}
	q.Set("pair", source.VenueSymbol("kraken", symbol))
	q.Set("count", strconv.Itoa(min(levels, maxCount)))

	var resp depthResponse
	if err := a.rest.GetJSON(ctx, "/0/public/Depth", q, &resp); err != nil {
		return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
	}
	if len(resp.Error) > 0 {
		return domain.OrderBookSnapshot{}, &domain.FetchError{
			SourceID: a.id,
			Kind:     domain.FetchProtocol,
			Detail:   "kraken: " + strings.Join(resp.Error, "; "),
		}
	}

	// Kraken keys the result by its own pair name (XXBTZUSD and so on), so
	// take the single entry.
	for _, book := range resp.Result {
		bids, err := source.ParseLevels(book.Bids)
		if err != nil {
			return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
		}
		asks, err := source.ParseLevels(book.Asks)
		if err != nil {
			return domain.OrderBookSnapshot{}, source.Classify(a.id, err)
		}
		return source.Normalize(domain.OrderBookSnapshot{
			SourceID:   a.id,
			Symbol:     symbol,
			Bids:       bids,
			Asks:       asks,
			CapturedAt: time.Now().UTC(),
		}, levels), nil
	}
	return domain.OrderBookSnapshot{}, source.Classify(a.id, fmt.Errorf("%w: empty result", source.ErrMalformed))
}

var _ domain.SourceAdapter = (*Adapter)(nil)
