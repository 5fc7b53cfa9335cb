package book

import (
	"github.com/tidwall/btree"

	"github.com/emberex/matchengine/internal/domain"
)

// PriceLevel is one aggregated rung of a depth snapshot: every resting order
// at priceLevel, summed.
type PriceLevel struct {
	Price             float64
	RemainingQuantity uint64
	OrderCount        int
}

// BookDepth is a read-only, price-ordered view of both sides of a book, for
// diagnostics and ops tooling. It is a point-in-time snapshot, not a feed:
// nothing subscribes to it and nothing pushes it out unsolicited.
type BookDepth struct {
	Ticker string
	Bids   []PriceLevel
	Offers []PriceLevel
}

// Depth aggregates the live bids/offers slices into per-price levels using a
// tidwall/btree ordered map, the same structure the teacher's own order book
// draft used for its PriceLevel index.
func (b *OrderBook) Depth() BookDepth {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BookDepth{
		Ticker: b.ticker,
		Bids:   aggregate(b.bids, func(x, y float64) bool { return x > y }),
		Offers: aggregate(b.offers, func(x, y float64) bool { return x < y }),
	}
}

func aggregate(orders []*domain.Order, less func(x, y float64) bool) []PriceLevel {
	levels := btree.NewBTreeG(func(a, b *PriceLevel) bool { return less(a.Price, b.Price) })
	for _, o := range orders {
		key := &PriceLevel{Price: o.Price}
		if existing, ok := levels.Get(key); ok {
			existing.RemainingQuantity += o.Remaining()
			existing.OrderCount++
			continue
		}
		key.RemainingQuantity = o.Remaining()
		key.OrderCount = 1
		levels.Set(key)
	}

	out := make([]PriceLevel, 0, levels.Len())
	levels.Scan(func(pl *PriceLevel) bool {
		out = append(out, *pl)
		return true
	})
	return out
}
