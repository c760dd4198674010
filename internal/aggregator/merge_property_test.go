package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

func genLevel() *rapid.Generator[domain.PriceLevel] {
	return rapid.Custom(func(t *rapid.T) domain.PriceLevel {
		// a narrow tick range forces price collisions across sources
		price := rapid.Int64Range(1, 40).Draw(t, "price")
		qty := rapid.Int64Range(1, 1000).Draw(t, "qty")
		return domain.PriceLevel{
			Price:    decimal.New(price, -1),
			Quantity: decimal.New(qty, -2),
		}
	})
}

func genSnapshot(id string) *rapid.Generator[domain.OrderBookSnapshot] {
	return rapid.Custom(func(t *rapid.T) domain.OrderBookSnapshot {
		return domain.OrderBookSnapshot{
			SourceID: id,
			Bids:     rapid.SliceOfN(genLevel(), 0, 20).Draw(t, "bids"),
			Asks:     rapid.SliceOfN(genLevel(), 0, 20).Draw(t, "asks"),
		}
	})
}

func sumAt(snaps []domain.OrderBookSnapshot, side func(domain.OrderBookSnapshot) []domain.PriceLevel, price decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range snaps {
		for _, l := range side(s) {
			if l.Price.Equal(price) {
				total = total.Add(l.Quantity)
			}
		}
	}
	return total
}

func TestProperty_MergeIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "sources")
		snaps := make([]domain.OrderBookSnapshot, n)
		for i := range snaps {
			snaps[i] = genSnapshot(fmt.Sprintf("s%d", i)).Draw(t, fmt.Sprintf("snap-%d", i))
		}
		perm := rapid.Permutation(snaps).Draw(t, "perm")

		at := time.Unix(0, 0)
		a := Merge("X-Y", snaps, nil, 0, at)
		b := Merge("X-Y", perm, nil, 0, at)

		if len(a.Bids) != len(b.Bids) || len(a.Asks) != len(b.Asks) {
			t.Fatalf("level counts differ: %d/%d vs %d/%d", len(a.Bids), len(a.Asks), len(b.Bids), len(b.Asks))
		}
		for i := range a.Bids {
			if !a.Bids[i].Price.Equal(b.Bids[i].Price) || !a.Bids[i].Quantity.Equal(b.Bids[i].Quantity) {
				t.Fatalf("bid %d differs: %v vs %v", i, a.Bids[i], b.Bids[i])
			}
		}
		for i := range a.Asks {
			if !a.Asks[i].Price.Equal(b.Asks[i].Price) || !a.Asks[i].Quantity.Equal(b.Asks[i].Quantity) {
				t.Fatalf("ask %d differs: %v vs %v", i, a.Asks[i], b.Asks[i])
			}
		}
	})
}

func TestProperty_MergeOrderingAndSums(t *testing.T) {
	bidsOf := func(s domain.OrderBookSnapshot) []domain.PriceLevel { return s.Bids }
	asksOf := func(s domain.OrderBookSnapshot) []domain.PriceLevel { return s.Asks }

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "sources")
		snaps := make([]domain.OrderBookSnapshot, n)
		for i := range snaps {
			snaps[i] = genSnapshot(fmt.Sprintf("s%d", i)).Draw(t, fmt.Sprintf("snap-%d", i))
		}
		book := Merge("X-Y", snaps, nil, 0, time.Unix(0, 0))

		for i := 1; i < len(book.Bids); i++ {
			if !book.Bids[i].Price.LessThan(book.Bids[i-1].Price) {
				t.Fatalf("bids not strictly descending at %d: %s after %s", i, book.Bids[i].Price, book.Bids[i-1].Price)
			}
		}
		for i := 1; i < len(book.Asks); i++ {
			if !book.Asks[i].Price.GreaterThan(book.Asks[i-1].Price) {
				t.Fatalf("asks not strictly ascending at %d: %s after %s", i, book.Asks[i].Price, book.Asks[i-1].Price)
			}
		}
		for _, l := range book.Bids {
			if want := sumAt(snaps, bidsOf, l.Price); !l.Quantity.Equal(want) {
				t.Fatalf("bid %s: quantity %s, want %s", l.Price, l.Quantity, want)
			}
		}
		for _, l := range book.Asks {
			if want := sumAt(snaps, asksOf, l.Price); !l.Quantity.Equal(want) {
				t.Fatalf("ask %s: quantity %s, want %s", l.Price, l.Quantity, want)
			}
		}
		if len(book.Contributing) != n {
			t.Fatalf("contributing %v, want %d sources", book.Contributing, n)
		}
	})
}
