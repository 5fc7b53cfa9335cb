package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberex/matchengine/internal/book"
	"github.com/emberex/matchengine/internal/domain"
)

// MatchingEngine routes orders to the per-ticker book they belong to and
// enforces trader-order uniqueness at global scope, on top of each book's
// own ticker-scoped enforcement (spec.md §4.5).
type MatchingEngine struct {
	mu sync.RWMutex

	books        map[string]*book.OrderBook
	orderTickers map[string]string
	traderOrders map[string]string
	orderHistory map[string]*domain.Order

	reporter Reporter
}

// New creates an empty engine. A nil reporter is replaced with NopReporter.
func New(reporter Reporter) *MatchingEngine {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &MatchingEngine{
		books:        make(map[string]*book.OrderBook),
		orderTickers: make(map[string]string),
		traderOrders: make(map[string]string),
		orderHistory: make(map[string]*domain.Order),
		reporter:     reporter,
	}
}

// NewOrder is the caller-supplied intent for a SUBMIT request; the engine
// allocates the order id and timestamp.
type NewOrder struct {
	TraderID  string
	Ticker    string
	Side      domain.Side
	OrderType domain.OrderType
	Price     float64
	Quantity  uint64
}

func (e *MatchingEngine) bookFor(ticker string) *book.OrderBook {
	b, ok := e.books[ticker]
	if !ok {
		b = book.New(ticker)
		e.books[ticker] = b
	}
	return b
}

// Submit implements the engine dispatch in spec.md §4.6. The returned order
// is always the freshly assigned record — on rejection it is still
// populated and present in history, matching the documented "no state
// mutation beyond order_history recording the rejected id" behavior
// (spec.md §4.6 scenario 6, §9 OQ3).
func (e *MatchingEngine) Submit(req NewOrder) (*domain.Order, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order := &domain.Order{
		OrderID:   uuid.NewString(),
		TraderID:  req.TraderID,
		Ticker:    req.Ticker,
		Side:      req.Side,
		OrderType: req.OrderType,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Timestamp: time.Now(),
	}
	e.orderHistory[order.OrderID] = order

	if _, active := e.traderOrders[order.TraderID]; active {
		e.reporter.ReportReject(order.TraderID, "trader already has an active order")
		return order, false, domain.ErrDuplicateTraderOrder
	}

	e.traderOrders[order.TraderID] = order.OrderID
	e.orderTickers[order.OrderID] = order.Ticker

	b := e.bookFor(order.Ticker)
	if _, err := b.Submit(order); err != nil {
		// The book's own trader_orders is ticker-scoped and should never
		// diverge from the engine's global check above, but if it does,
		// unwind the engine-level bookkeeping rather than leave it
		// inconsistent with "no book owns this order" reality.
		delete(e.traderOrders, order.TraderID)
		delete(e.orderTickers, order.OrderID)
		return order, false, err
	}

	e.clearIfDone(order)
	for _, fill := range order.Trades {
		if cp, ok := e.orderHistory[fill.CounterpartyOrderID]; ok {
			e.clearIfDone(cp)
		}
	}

	e.publishReports(order)

	if order.OrderType == domain.IOC {
		return order, order.IsExecuted, nil
	}
	return order, order.IsFulfilled(), nil
}

func (e *MatchingEngine) clearIfDone(o *domain.Order) {
	if o.IsFulfilled() || (o.OrderType == domain.IOC && o.IsExecuted) {
		if current, ok := e.traderOrders[o.TraderID]; ok && current == o.OrderID {
			delete(e.traderOrders, o.TraderID)
		}
	}
}

func (e *MatchingEngine) publishReports(order *domain.Order) {
	counterpartyTrader := func(orderID string) string {
		if cp, ok := e.orderHistory[orderID]; ok {
			return cp.TraderID
		}
		return ""
	}
	for _, t := range reportsFor(order.Ticker, order, order.Trades, counterpartyTrader) {
		e.reporter.ReportTrade(t)
	}
}

// Amend looks up the order's book via order_tickers and delegates
// (spec.md §4.6). AMEND never touches trader_orders.
func (e *MatchingEngine) Amend(orderID string, newQuantity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ticker, ok := e.orderTickers[orderID]
	if !ok {
		return domain.ErrAmendImpossible
	}
	return e.bookFor(ticker).Amend(orderID, newQuantity)
}

// Cancel looks up the order's book via order_tickers, delegates, and on
// success removes the engine-level trader_orders and order_tickers entries
// (spec.md §4.6).
func (e *MatchingEngine) Cancel(orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ticker, ok := e.orderTickers[orderID]
	if !ok {
		return domain.ErrCancelImpossible
	}
	o, ok := e.orderHistory[orderID]
	if !ok {
		panic(domain.Invariant{Name: "I2", Detail: fmt.Sprintf("order %s has a ticker but no history entry", orderID)})
	}

	if err := e.bookFor(ticker).Cancel(orderID); err != nil {
		return err
	}
	delete(e.traderOrders, o.TraderID)
	delete(e.orderTickers, orderID)
	return nil
}

// Get returns the order as recorded in order_history, or ErrNotFound.
// order_history grows monotonically and is never pruned on cancel or fill
// (spec.md §3, property P6), so this always reflects the full history.
func (e *MatchingEngine) Get(orderID string) (*domain.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	o, ok := e.orderHistory[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// Depth exposes a single book's aggregated price levels for diagnostics. It
// creates no book as a side effect; an unknown ticker returns ok=false.
func (e *MatchingEngine) Depth(ticker string) (book.BookDepth, bool) {
	e.mu.RLock()
	b, ok := e.books[ticker]
	e.mu.RUnlock()
	if !ok {
		return book.BookDepth{}, false
	}
	return b.Depth(), true
}
