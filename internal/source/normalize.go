package source

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// DefaultMaxLevels caps how many levels per side a single source
// contributes.
const DefaultMaxLevels = 50

// ParseLevels converts venue rows of the form [price, quantity, ...] into
// price levels. Prices and quantities may be JSON strings or numbers; any
// trailing columns (timestamps, order counts) are ignored.
func ParseLevels(rows [][]any) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("level %d: %w: want at least 2 columns, got %d", i, ErrMalformed, len(row))
		}
		price, err := toDecimal(row[0])
		if err != nil {
			return nil, fmt.Errorf("level %d price: %w", i, err)
		}
		qty, err := toDecimal(row[1])
		if err != nil {
			return nil, fmt.Errorf("level %d quantity: %w", i, err)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

// ParseStringLevels is ParseLevels for venues that quote every column as a
// string.
func ParseStringLevels(rows [][]string) ([]domain.PriceLevel, error) {
	generic := make([][]any, len(rows))
	for i, row := range rows {
		cols := make([]any, len(row))
		for j, c := range row {
			cols[j] = c
		}
		generic[i] = cols
	}
	return ParseLevels(generic)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrMalformed, x)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrMalformed, x)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unexpected %T", ErrMalformed, v)
	}
}

// Normalize returns a snapshot whose sides satisfy the book ordering
// invariant: non-positive levels dropped, equal prices folded, bids
// descending, asks ascending, each side capped at maxLevels (if > 0).
func Normalize(snap domain.OrderBookSnapshot, maxLevels int) domain.OrderBookSnapshot {
	snap.Bids = normalizeSide(snap.Bids, true, maxLevels)
	snap.Asks = normalizeSide(snap.Asks, false, maxLevels)
	return snap
}

func normalizeSide(levels []domain.PriceLevel, desc bool, maxLevels int) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, l := range levels {
		if l.Price.IsPositive() && l.Quantity.IsPositive() {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})

	folded := out[:0]
	for _, l := range out {
		if n := len(folded); n > 0 && folded[n-1].Price.Equal(l.Price) {
			folded[n-1].Quantity = folded[n-1].Quantity.Add(l.Quantity)
			continue
		}
		folded = append(folded, l)
	}

	if maxLevels > 0 && len(folded) > maxLevels {
		folded = folded[:maxLevels]
	}
	return folded
}
