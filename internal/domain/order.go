package domain

import (
	"fmt"
	"math"
	"time"
)

// MarketBidSentinel and MarketOfferSentinel are the effective prices a
// resting MARKET order occupies before a counter-price is discovered
// (spec.md §3/§4.2.3): a resting MARKET bid sorts as if priced at +Inf, a
// resting MARKET offer as if priced at 0.
var (
	MarketBidSentinel   = math.Inf(1)
	MarketOfferSentinel = 0.0
)

// Trade is one fill attributed to an order: the counterparty's order id, the
// signed cash movement for the order this Trade is attached to (buys are
// negative, sells are positive — spec.md §4.3), and the raw quantity/price
// of the fill step that produced it (kept alongside SignedCash for execution
// reporting; spec.md §4.3 only requires the signed-cash pair itself).
type Trade struct {
	CounterpartyOrderID string
	SignedCash          float64
	Quantity            uint64
	Price               float64
}

// Order is the atomic unit of the book. Identity (OrderID, TraderID, Ticker,
// Side, OrderType) is set once at submission; Price, Quantity, Filled,
// IsExecuted and Trades mutate as the order rests and matches.
type Order struct {
	OrderID   string
	TraderID  string
	Ticker    string
	Side      Side
	OrderType OrderType
	Price     float64
	Quantity  uint64
	Filled    uint64

	// IsExecuted is meaningful only for IOC orders: set the first time the
	// order participates in any match, even a partial one.
	IsExecuted bool

	Trades    []Trade
	Timestamp time.Time
}

// Remaining is the unfilled quantity still outstanding.
func (o *Order) Remaining() uint64 {
	return o.Quantity - o.Filled
}

// IsFulfilled reports whether the order's full quantity has been filled.
func (o *Order) IsFulfilled() bool {
	return o.Filled >= o.Quantity
}

// Fill advances Filled by qty, saturating at Quantity. It never emits an
// event; the caller (the book) is responsible for recording the
// corresponding Trade entries.
func (o *Order) Fill(qty uint64) {
	if qty >= o.Remaining() {
		o.Filled = o.Quantity
		return
	}
	o.Filled += qty
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"Order{id=%s trader=%s ticker=%s side=%s type=%s price=%v qty=%d filled=%d executed=%t}",
		o.OrderID, o.TraderID, o.Ticker, o.Side, o.OrderType, o.Price, o.Quantity, o.Filled, o.IsExecuted,
	)
}

// Clone returns a deep copy safe to hand across the session boundary. The
// engine and book return their live Order pointers; the session layer clones
// before projecting an order onto the wire
// (spec.md §9: "never expose raw references to internal containers").
func (o *Order) Clone() *Order {
	cp := *o
	cp.Trades = append([]Trade(nil), o.Trades...)
	return &cp
}
