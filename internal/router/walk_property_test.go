package router

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// genAsks builds a strictly ascending ask side.
func genAsks(t *rapid.T) []domain.PriceLevel {
	n := rapid.IntRange(0, 15).Draw(t, "levels")
	price := rapid.Int64Range(100, 1000).Draw(t, "start")
	levels := make([]domain.PriceLevel, n)
	for i := range levels {
		price += rapid.Int64Range(1, 50).Draw(t, "step")
		levels[i] = domain.PriceLevel{
			Price:    decimal.NewFromInt(price),
			Quantity: decimal.New(rapid.Int64Range(1, 500).Draw(t, "qty"), -1),
		}
	}
	return levels
}

func TestProperty_WalkFillInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		asks := genAsks(t)
		amount := decimal.New(rapid.Int64Range(1, 5000).Draw(t, "amount"), -1)

		var maxSlip *decimal.Decimal
		if rapid.Bool().Draw(t, "bounded") {
			v := decimal.New(rapid.Int64Range(0, 500).Draw(t, "slip"), -2)
			maxSlip = &v
		}

		f := walk(asks, domain.SideBuy, amount, nil, maxSlip)

		if f.filled.GreaterThan(amount) {
			t.Fatalf("filled %s exceeds requested %s", f.filled, amount)
		}
		status := domain.StatusFor(amount, f.filled)
		switch {
		case f.filled.IsZero() && status != domain.RouteRejected:
			t.Fatalf("zero fill has status %s", status)
		case f.filled.Equal(amount) && status != domain.RouteFilled:
			t.Fatalf("full fill has status %s", status)
		}

		sumQ, sumN := decimal.Zero, decimal.Zero
		for i, e := range f.executions {
			if i > 0 && !e.Price.GreaterThan(f.executions[i-1].Price) {
				t.Fatalf("executions not in ascending price order at %d", i)
			}
			sumQ = sumQ.Add(e.Quantity)
			sumN = sumN.Add(e.Price.Mul(e.Quantity))
		}
		if !sumQ.Equal(f.filled) || !sumN.Equal(f.notional) {
			t.Fatalf("execution totals %s/%s differ from fill %s/%s", sumQ, sumN, f.filled, f.notional)
		}

		if maxSlip != nil {
			if avg, ok := f.avg(); ok {
				if slip := adverseMovePct(domain.SideBuy, f.best, avg); slip.GreaterThan(*maxSlip) {
					t.Fatalf("slippage %s exceeds bound %s", slip, *maxSlip)
				}
			}
		} else if f.filled.LessThan(amount) && f.stop != domain.StopBookExhausted {
			t.Fatalf("unbounded walk stopped early with %s", f.stop)
		}
	})
}
