package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberex/matchengine/internal/domain"
)

type recordingReporter struct {
	mu      sync.Mutex
	trades  []Trade
	rejects []string
}

func (r *recordingReporter) ReportTrade(t Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, t)
	return nil
}

func (r *recordingReporter) ReportReject(traderID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejects = append(r.rejects, traderID)
	return nil
}

func TestEngine_SubmitCrossesAndReports(t *testing.T) {
	reporter := &recordingReporter{}
	e := New(reporter)

	buy, filled, err := e.Submit(NewOrder{TraderID: "1", Ticker: "FB", Side: domain.Buy, OrderType: domain.Limit, Price: 100, Quantity: 5})
	require.NoError(t, err)
	assert.False(t, filled)

	sell, filled, err := e.Submit(NewOrder{TraderID: "2", Ticker: "FB", Side: domain.Sell, OrderType: domain.Limit, Price: 100, Quantity: 5})
	require.NoError(t, err)
	assert.True(t, filled)

	require.Len(t, reporter.trades, 1)
	assert.Equal(t, buy.OrderID, reporter.trades[0].BuyOrderID)
	assert.Equal(t, sell.OrderID, reporter.trades[0].SellOrderID)

	got, err := e.Get(buy.OrderID)
	require.NoError(t, err)
	assert.Same(t, buy, got)
}

func TestEngine_DuplicateTraderRejectedButHistoryRecorded(t *testing.T) {
	reporter := &recordingReporter{}
	e := New(reporter)

	first, _, err := e.Submit(NewOrder{TraderID: "7", Ticker: "FB", Side: domain.Buy, OrderType: domain.Limit, Price: 50, Quantity: 10})
	require.NoError(t, err)

	second, filled, err := e.Submit(NewOrder{TraderID: "7", Ticker: "IBM", Side: domain.Sell, OrderType: domain.Limit, Price: 60, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicateTraderOrder)
	assert.False(t, filled)
	require.NotNil(t, second)
	assert.NotEqual(t, first.OrderID, second.OrderID)

	// The rejected order is still recorded in order_history (spec.md §9 OQ3).
	historied, err := e.Get(second.OrderID)
	require.NoError(t, err)
	assert.Same(t, second, historied)

	// But it never touched order_tickers: no book was created for IBM.
	_, ok := e.Depth("IBM")
	assert.False(t, ok)

	assert.Equal(t, []string{"7"}, reporter.rejects)
}

func TestEngine_AmendAndCancel(t *testing.T) {
	e := New(nil)

	o, _, err := e.Submit(NewOrder{TraderID: "1", Ticker: "FB", Side: domain.Buy, OrderType: domain.Limit, Price: 100, Quantity: 10})
	require.NoError(t, err)

	require.NoError(t, e.Amend(o.OrderID, 4))
	assert.Equal(t, uint64(4), o.Quantity)

	require.NoError(t, e.Cancel(o.OrderID))
	assert.ErrorIs(t, e.Cancel(o.OrderID), domain.ErrCancelImpossible)

	// order_history retains the order even after cancel (P6).
	still, err := e.Get(o.OrderID)
	require.NoError(t, err)
	assert.Same(t, o, still)
}

func TestEngine_GetUnknownOrder(t *testing.T) {
	e := New(nil)
	_, err := e.Get("does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_IOCAcrossTickersKeepsTraderOrdersConsistent(t *testing.T) {
	e := New(nil)

	resting, _, err := e.Submit(NewOrder{TraderID: "1", Ticker: "FB", Side: domain.Sell, OrderType: domain.Limit, Price: 100, Quantity: 5})
	require.NoError(t, err)

	ioc, executed, err := e.Submit(NewOrder{TraderID: "2", Ticker: "FB", Side: domain.Buy, OrderType: domain.IOC, Price: 100, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, executed)
	assert.True(t, ioc.IsExecuted)

	// trader 2 is free again (IOC executed and fully filled; the resting
	// offer keeps 2 units).
	_, _, err = e.Submit(NewOrder{TraderID: "2", Ticker: "IBM", Side: domain.Sell, OrderType: domain.Limit, Price: 10, Quantity: 1})
	assert.NoError(t, err)

	assert.Equal(t, uint64(3), resting.Filled)
}
