// Package book implements the per-ticker order book: two price-priority
// sequences, the matching algorithm for MARKET, LIMIT and IOC orders, and
// the trader-order uniqueness rule scoped to this book.
//
// Orders are modeled as arena entries: the book's maps store the same
// *domain.Order pointer the owning MatchingEngine keeps in its own
// order_history, so a fill recorded here is immediately visible engine-wide
// without copying (spec.md §9, "Cross-references between orders and books").
package book

import (
	"sync"

	"github.com/emberex/matchengine/internal/domain"
)

// OrderBook holds the two opposite-side priority sequences and all
// order/trade bookkeeping for a single ticker.
type OrderBook struct {
	mu sync.Mutex

	ticker string

	// bids is sorted price descending (highest first); offers ascending
	// (lowest first). A resting MARKET order occupies the sentinel price
	// (+Inf for bids, 0 for offers) until a counter-price is discovered.
	bids   []*domain.Order
	offers []*domain.Order

	// orders indexes every order this book has accepted, resting or filled;
	// Cancel removes an order from it.
	orders map[string]*domain.Order

	// trades indexes the fill history per order id, mirrored onto
	// Order.Trades after every match.
	trades map[string][]domain.Trade

	// traderOrders tracks, for this book only, the one order id currently
	// considered active for a trader (spec.md §4.5).
	traderOrders map[string]string
}

// New creates an empty book for ticker.
func New(ticker string) *OrderBook {
	return &OrderBook{
		ticker:       ticker,
		orders:       make(map[string]*domain.Order),
		trades:       make(map[string][]domain.Trade),
		traderOrders: make(map[string]string),
	}
}

// Ticker returns the symbol this book matches.
func (b *OrderBook) Ticker() string {
	return b.ticker
}

func (b *OrderBook) highestBid() *domain.Order {
	if len(b.bids) == 0 {
		return nil
	}
	return b.bids[0]
}

func (b *OrderBook) lowestOffer() *domain.Order {
	if len(b.offers) == 0 {
		return nil
	}
	return b.offers[0]
}

// insertBid inserts o before the first resting bid whose price is <= o's
// price (or appends), per the documented tie-break policy (spec.md §4.2.1):
// a new order is placed ahead of equally-priced older orders.
func insertBid(bids []*domain.Order, o *domain.Order) []*domain.Order {
	for i, existing := range bids {
		if existing.Price <= o.Price {
			return insertAt(bids, i, o)
		}
	}
	return append(bids, o)
}

// insertOffer is the dual of insertBid for the ascending offers side.
func insertOffer(offers []*domain.Order, o *domain.Order) []*domain.Order {
	for i, existing := range offers {
		if existing.Price >= o.Price {
			return insertAt(offers, i, o)
		}
	}
	return append(offers, o)
}

func insertAt(s []*domain.Order, i int, o *domain.Order) []*domain.Order {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = o
	return s
}

// registerOrder records a previously-unseen order in the book's bookkeeping
// maps and applies the MARKET sentinel price. It does not place the order on
// either side sequence — callers do that once matching decides it rests.
func (b *OrderBook) registerOrder(o *domain.Order, side domain.Side) {
	if _, ok := b.orders[o.OrderID]; !ok {
		b.orders[o.OrderID] = o
	}
	if _, ok := b.trades[o.OrderID]; !ok {
		b.trades[o.OrderID] = nil
	}
	if o.OrderType == domain.Market {
		if side == domain.Buy {
			o.Price = domain.MarketBidSentinel
		} else {
			o.Price = domain.MarketOfferSentinel
		}
	}
}

func (b *OrderBook) restOnBids(o *domain.Order) {
	b.registerOrder(o, domain.Buy)
	b.bids = insertBid(b.bids, o)
}

func (b *OrderBook) restOnOffers(o *domain.Order) {
	b.registerOrder(o, domain.Sell)
	b.offers = insertOffer(b.offers, o)
}

// recordTrade appends the fill pair to both sides' trade histories and
// copies the updated list onto each Order (spec.md §4.2.2 step 4, §4.3). It
// returns the taker's signed cash delta for this fill, which is also the
// PnL contribution of this step.
func (b *OrderBook) recordTrade(taker, maker *domain.Order, qty uint64, price float64) float64 {
	takerCash := -float64(qty) * price
	makerCash := float64(qty) * price
	if taker.Side == domain.Sell {
		takerCash, makerCash = makerCash, takerCash
	}

	b.trades[taker.OrderID] = append(b.trades[taker.OrderID], domain.Trade{
		CounterpartyOrderID: maker.OrderID,
		SignedCash:          takerCash,
		Quantity:            qty,
		Price:               price,
	})
	b.trades[maker.OrderID] = append(b.trades[maker.OrderID], domain.Trade{
		CounterpartyOrderID: taker.OrderID,
		SignedCash:          makerCash,
		Quantity:            qty,
		Price:               price,
	})
	taker.Trades = b.trades[taker.OrderID]
	maker.Trades = b.trades[maker.OrderID]
	return takerCash
}

// Submit accepts a new order. It returns ErrDuplicateTraderOrder if the
// trader already has an active order resting on this book; otherwise it
// dispatches to the order-type-specific matching routine and returns the
// cash flow (PnL) of the incoming order.
func (b *OrderBook) Submit(order *domain.Order) (pnl float64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, active := b.traderOrders[order.TraderID]; active {
		return 0, domain.ErrDuplicateTraderOrder
	}
	b.traderOrders[order.TraderID] = order.OrderID
	b.registerOrder(order, order.Side)

	switch order.OrderType {
	case domain.Market:
		pnl = b.handleMarket(order)
	case domain.Limit:
		pnl = b.handleLimit(order)
	case domain.IOC:
		pnl = b.handleIOC(order)
	}

	b.cleanupTraderOrders(order)
	return pnl, nil
}

// cleanupTraderOrders removes the trader_orders entry for order and for
// every counterparty it just traded with, for any of them that became
// fulfilled, or (IOC-only) executed (spec.md §4.5).
func (b *OrderBook) cleanupTraderOrders(order *domain.Order) {
	b.maybeClearTrader(order)
	for _, t := range order.Trades {
		if cp, ok := b.orders[t.CounterpartyOrderID]; ok {
			b.maybeClearTrader(cp)
		}
	}
}

func (b *OrderBook) maybeClearTrader(o *domain.Order) {
	if o.IsFulfilled() || (o.OrderType == domain.IOC && o.IsExecuted) {
		if current, ok := b.traderOrders[o.TraderID]; ok && current == o.OrderID {
			delete(b.traderOrders, o.TraderID)
		}
	}
}

// Amend shrinks a resting order's quantity. It succeeds only if the order is
// resting on this book and the new quantity is strictly less than what
// remains outstanding (spec.md §4.4).
func (b *OrderBook) Amend(orderID string, newQuantity uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return domain.ErrAmendImpossible
	}
	if !restingIn(b.bids, orderID) && !restingIn(b.offers, orderID) {
		return domain.ErrAmendImpossible
	}
	if o.Remaining() <= newQuantity {
		return domain.ErrAmendImpossible
	}
	o.Quantity = newQuantity
	return nil
}

// Cancel removes a resting order from its side sequence, the order index,
// and this book's trader_orders entry (spec.md §4.4).
func (b *OrderBook) Cancel(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return domain.ErrCancelImpossible
	}

	if i := indexOf(b.bids, orderID); i >= 0 {
		b.bids = append(b.bids[:i], b.bids[i+1:]...)
		delete(b.orders, orderID)
		delete(b.traderOrders, o.TraderID)
		return nil
	}
	if i := indexOf(b.offers, orderID); i >= 0 {
		b.offers = append(b.offers[:i], b.offers[i+1:]...)
		delete(b.orders, orderID)
		delete(b.traderOrders, o.TraderID)
		return nil
	}
	return domain.ErrCancelImpossible
}

func indexOf(orders []*domain.Order, orderID string) int {
	for i, o := range orders {
		if o.OrderID == orderID {
			return i
		}
	}
	return -1
}

func restingIn(orders []*domain.Order, orderID string) bool {
	return indexOf(orders, orderID) >= 0
}

// Order returns the live record for orderID as tracked by this book, or
// false if this book has never accepted it or it was cancelled. Callers
// across a session boundary
// must Clone() the result before handing it out.
func (b *OrderBook) Order(orderID string) (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	return o, ok
}
