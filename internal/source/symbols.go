package source

import (
	"fmt"
	"strings"
)

// NormalizeSymbol converts user input such as "btc/usdt", "BTC_USDT" or
// "btc-usdt" into the canonical BASE-QUOTE form.
func NormalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("/", "-", "_", "-").Replace(s)
	base, quote, ok := strings.Cut(s, "-")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "-") {
		return "", fmt.Errorf("symbol %q: want BASE-QUOTE", s)
	}
	return base + "-" + quote, nil
}

// VenueSymbol maps a canonical BASE-QUOTE symbol to the format a venue
// expects.
func VenueSymbol(kind, canonical string) string {
	base, quote, _ := strings.Cut(canonical, "-")
	switch strings.ToLower(kind) {
	case "binance", "bybit":
		return base + quote
	case "kraken":
		if base == "BTC" {
			base = "XBT"
		}
		return base + quote
	case "okx", "kucoin":
		return base + "-" + quote
	default:
		return canonical
	}
}
