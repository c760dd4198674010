package aggregator

import (
	"sort"
	"time"

	"github.com/google/btree"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

const btreeDegree = 32

func bidLess(a, b domain.PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
func askLess(a, b domain.PriceLevel) bool { return a.Price.LessThan(b.Price) }

// sideTree accumulates levels from many sources, summing the quantity of
// levels whose prices compare equal.
type sideTree struct {
	tree *btree.BTreeG[domain.PriceLevel]
}

func newSideTree(less btree.LessFunc[domain.PriceLevel]) *sideTree {
	return &sideTree{tree: btree.NewG(btreeDegree, less)}
}

func (s *sideTree) add(l domain.PriceLevel) {
	if !l.Price.IsPositive() || !l.Quantity.IsPositive() {
		return
	}
	if cur, ok := s.tree.Get(l); ok {
		cur.Quantity = cur.Quantity.Add(l.Quantity)
		s.tree.ReplaceOrInsert(cur)
		return
	}
	s.tree.ReplaceOrInsert(l)
}

func (s *sideTree) levels(depth int) []domain.PriceLevel {
	n := s.tree.Len()
	if depth > 0 && depth < n {
		n = depth
	}
	out := make([]domain.PriceLevel, 0, n)
	s.tree.Ascend(func(l domain.PriceLevel) bool {
		out = append(out, l)
		return len(out) < n
	})
	return out
}

// Merge folds snapshots into one consolidated book truncated to depth
// levels per side (no truncation when depth <= 0). The result does not
// depend on the order of snaps.
func Merge(symbol string, snaps []domain.OrderBookSnapshot, missing []string, depth int, at time.Time) *domain.ConsolidatedBook {
	bids := newSideTree(bidLess)
	asks := newSideTree(askLess)

	contributing := make([]string, 0, len(snaps))
	sourceDepth := make([]domain.SourceDepth, 0, len(snaps))
	for _, snap := range snaps {
		contributing = append(contributing, snap.SourceID)
		sd := domain.SourceDepth{SourceID: snap.SourceID}
		for _, l := range snap.Bids {
			bids.add(l)
			if l.Price.IsPositive() && l.Quantity.IsPositive() {
				sd.BidQuantity = sd.BidQuantity.Add(l.Quantity)
				sd.BidNotional = sd.BidNotional.Add(l.Notional())
			}
		}
		for _, l := range snap.Asks {
			asks.add(l)
			if l.Price.IsPositive() && l.Quantity.IsPositive() {
				sd.AskQuantity = sd.AskQuantity.Add(l.Quantity)
				sd.AskNotional = sd.AskNotional.Add(l.Notional())
			}
		}
		sourceDepth = append(sourceDepth, sd)
	}

	sort.Strings(contributing)
	sort.Slice(sourceDepth, func(i, j int) bool { return sourceDepth[i].SourceID < sourceDepth[j].SourceID })

	miss := append([]string{}, missing...)
	sort.Strings(miss)

	return &domain.ConsolidatedBook{
		Symbol:       symbol,
		Bids:         bids.levels(depth),
		Asks:         asks.levels(depth),
		Contributing: contributing,
		Missing:      miss,
		SourceDepth:  sourceDepth,
		GeneratedAt:  at,
	}
}
