// Package engine implements MatchingEngine, the ticker router and
// cross-book bookkeeping layer sitting above internal/book.
package engine

import "github.com/emberex/matchengine/internal/domain"

// Trade is the execution-report shape handed to a Reporter after a match:
// both counterparties, the ticker, and the quantity/price of one fill step.
// It is distinct from domain.Trade, which is the per-order bookkeeping
// record kept inside a book.
type Trade struct {
	Ticker         string
	BuyOrderID     string
	BuyTraderID    string
	SellOrderID    string
	SellTraderID   string
	Quantity       uint64
	Price          float64
}

// Reporter receives fire-and-forget execution notifications. The core
// engine depends only on this interface; the TCP session surface
// (internal/session) is the concrete implementation that pushes reports to
// the two counterparties of a trade. A no-op Reporter is a fully conforming
// implementation; engine tests use it or a recording Reporter.
type Reporter interface {
	ReportTrade(trade Trade) error
	ReportReject(traderID string, reason string) error
}

// NopReporter discards every report. It is the default Reporter for an
// engine built without one, and is sufficient for the matching tests that
// exercise state rather than the notification path.
type NopReporter struct{}

func (NopReporter) ReportTrade(Trade) error               { return nil }
func (NopReporter) ReportReject(string, string) error     { return nil }

// reportsFor turns the per-fill trades recorded onto a just-matched order
// into Trade reports, using side to know which leg of each fill was the
// buyer versus the seller.
func reportsFor(ticker string, o *domain.Order, fills []domain.Trade, counterpartyTrader func(orderID string) string) []Trade {
	out := make([]Trade, 0, len(fills))
	for _, f := range fills {
		t := Trade{
			Ticker:   ticker,
			Quantity: f.Quantity,
			Price:    f.Price,
		}
		if o.Side == domain.Buy {
			t.BuyOrderID, t.BuyTraderID = o.OrderID, o.TraderID
			t.SellOrderID, t.SellTraderID = f.CounterpartyOrderID, counterpartyTrader(f.CounterpartyOrderID)
		} else {
			t.SellOrderID, t.SellTraderID = o.OrderID, o.TraderID
			t.BuyOrderID, t.BuyTraderID = f.CounterpartyOrderID, counterpartyTrader(f.CounterpartyOrderID)
		}
		out = append(out, t)
	}
	return out
}
