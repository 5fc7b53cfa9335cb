package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberex/matchengine/internal/domain"
	"github.com/emberex/matchengine/internal/engine"
	"github.com/emberex/matchengine/internal/logging"
	"github.com/emberex/matchengine/internal/metrics"
	"github.com/emberex/matchengine/internal/wire"
)

// fakeMatcher lets these tests exercise dispatch without a real
// engine.MatchingEngine or book.OrderBook behind it.
type fakeMatcher struct {
	submitOrder *domain.Order
	submitOK    bool
	submitErr   error

	amendErr  error
	cancelErr error

	getOrder *domain.Order
	getErr   error
}

func (f *fakeMatcher) Submit(engine.NewOrder) (*domain.Order, bool, error) {
	return f.submitOrder, f.submitOK, f.submitErr
}
func (f *fakeMatcher) Amend(string, uint64) error      { return f.amendErr }
func (f *fakeMatcher) Cancel(string) error             { return f.cancelErr }
func (f *fakeMatcher) Get(string) (*domain.Order, error) { return f.getOrder, f.getErr }

// testMetrics is built once: metrics.New registers on the default registry
// and panics if called twice in one process.
var testMetrics = metrics.New()

func newTestServer(t *testing.T, m matcher) *Server {
	t.Helper()
	log, err := logging.New("error", nil)
	require.NoError(t, err)
	return New("localhost", 0, 2, m, testMetrics, log)
}

func TestDispatch_SubmitRejectsBadInput(t *testing.T) {
	s := newTestServer(t, &fakeMatcher{})
	resp := s.dispatch(wire.Command{RequestType: domain.Submit, TraderID: "t1"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestDispatch_SubmitSuccess(t *testing.T) {
	order := &domain.Order{OrderID: "o1", TraderID: "t1", Ticker: "ACME"}
	s := newTestServer(t, &fakeMatcher{submitOrder: order, submitOK: true})
	price := 10.0
	resp := s.dispatch(wire.Command{
		RequestType: domain.Submit,
		TraderID:    "t1",
		Ticker:      "ACME",
		OrderType:   domain.Limit,
		OrderSide:   domain.Buy,
		Quantity:    5,
		Price:       &price,
	})
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Order)
	assert.Equal(t, "o1", resp.Order.OrderID)
}

func TestDispatch_AmendAndCancel(t *testing.T) {
	s := newTestServer(t, &fakeMatcher{})
	resp := s.dispatch(wire.Command{RequestType: domain.Amend, TraderID: "t1", OrderID: "o1", Quantity: 3})
	assert.True(t, resp.Success)

	resp = s.dispatch(wire.Command{RequestType: domain.Cancel, TraderID: "t1", OrderID: "o1"})
	assert.True(t, resp.Success)
}

func TestDispatch_GetUnknownOrder(t *testing.T) {
	s := newTestServer(t, &fakeMatcher{getErr: domain.ErrNotFound})
	resp := s.dispatch(wire.Command{RequestType: domain.Get, OrderID: "missing"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "not found")
}

func TestReportTrade_DeliversToRegisteredConnOnly(t *testing.T) {
	s := newTestServer(t, &fakeMatcher{})
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	s.register("buyer", serverConn)

	go func() {
		_ = s.ReportTrade(engine.Trade{
			Ticker:       "ACME",
			BuyOrderID:   "b1",
			BuyTraderID:  "buyer",
			SellOrderID:  "s1",
			SellTraderID: "seller", // not registered, should be skipped without blocking
			Quantity:     5,
			Price:        10,
		})
	}()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	dec := wire.NewDecoder(clientConn)
	// ReportTrade uses a fresh encoder per notify call, so the buyer side
	// should receive exactly one line.
	_, err := dec.Next()
	require.NoError(t, err)
}

func TestRegisterAndDeregisterByConn(t *testing.T) {
	s := newTestServer(t, &fakeMatcher{})
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	s.register("trader1", serverConn)
	s.mu.Lock()
	_, ok := s.clients["trader1"]
	s.mu.Unlock()
	assert.True(t, ok)

	s.deregisterByConn(serverConn)
	s.mu.Lock()
	_, ok = s.clients["trader1"]
	s.mu.Unlock()
	assert.False(t, ok)
}
