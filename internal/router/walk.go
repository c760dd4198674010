package router

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// fill is the outcome of walking one side of a book.
type fill struct {
	executions []domain.Execution
	filled     decimal.Decimal
	notional   decimal.Decimal
	best       decimal.Decimal // zero when no level was eligible
	stop       domain.StopReason
}

func (f fill) avg() (decimal.Decimal, bool) {
	if !f.filled.IsPositive() {
		return decimal.Zero, false
	}
	return f.notional.Div(f.filled), true
}

// adverseMovePct is the percentage by which avg is worse than best for the
// taker: higher for a buy, lower for a sell.
func adverseMovePct(side domain.Side, best, avg decimal.Decimal) decimal.Decimal {
	if best.IsZero() {
		return decimal.Zero
	}
	diff := avg.Sub(best)
	if side == domain.SideSell {
		diff = best.Sub(avg)
	}
	return diff.Div(best).Mul(hundred)
}

// eligible reports whether price passes the limit for side.
func eligible(side domain.Side, price decimal.Decimal, limit *decimal.Decimal) bool {
	if limit == nil {
		return true
	}
	if side == domain.SideBuy {
		return price.LessThanOrEqual(*limit)
	}
	return price.GreaterThanOrEqual(*limit)
}

// walk greedily consumes levels (best first) until amount is filled, the
// side runs out, a level breaches the limit price, or taking the next level
// would push slippage past maxSlippagePct.
func walk(levels []domain.PriceLevel, side domain.Side, amount decimal.Decimal, limit, maxSlippagePct *decimal.Decimal) fill {
	f := fill{filled: decimal.Zero, notional: decimal.Zero, stop: domain.StopBookExhausted}
	remaining := amount

	for i, l := range levels {
		if !remaining.IsPositive() {
			break
		}
		if !eligible(side, l.Price, limit) {
			// sides are sorted best first, so every later level is worse too
			f.stop = domain.StopLimitPrice
			return f
		}
		if i == 0 {
			f.best = l.Price
		}

		take := decimal.Min(remaining, l.Quantity)
		notional := f.notional.Add(l.Price.Mul(take))
		filled := f.filled.Add(take)

		if maxSlippagePct != nil {
			slip := adverseMovePct(side, f.best, notional.Div(filled))
			if slip.GreaterThan(*maxSlippagePct) {
				f.stop = domain.StopSlippageBound
				return f
			}
		}

		f.executions = append(f.executions, domain.Execution{Price: l.Price, Quantity: take})
		f.notional = notional
		f.filled = filled
		remaining = remaining.Sub(take)
	}

	if !remaining.IsPositive() {
		f.stop = domain.StopFilled
	}
	return f
}
