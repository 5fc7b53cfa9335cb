package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"github.com/emberex/matchengine/internal/domain"
	"github.com/emberex/matchengine/internal/engine"
	"github.com/emberex/matchengine/internal/metrics"
	"github.com/emberex/matchengine/internal/wire"
)

const defaultConnTimeout = 30 * time.Second

// matcher is the subset of *engine.MatchingEngine the session layer depends
// on, narrowed so tests can supply a fake.
type matcher interface {
	Submit(engine.NewOrder) (*domain.Order, bool, error)
	Amend(orderID string, newQuantity uint64) error
	Cancel(orderID string) error
	Get(orderID string) (*domain.Order, error)
}

// Server is the TCP front door for the matching engine, grounded on the
// teacher's internal/net/server.go: a fixed worker pool drains accepted
// connections, and ReportTrade/ReportReject push execution reports back out
// over whichever connections are still registered for the traders involved.
type Server struct {
	address string
	port    int

	engine  matcher
	metrics *metrics.Registry
	log     zerolog.Logger
	pool    *connPool

	mu      sync.Mutex
	clients map[string]net.Conn // trader id -> its live connection

	cancel context.CancelFunc
}

// New builds a Server. workers sizes the fixed connection-handling pool
// (spec.md's transport is otherwise silent on concurrency, so this is the
// config-driven knob internal/config.Config.Workers exists for).
func New(address string, port, workers int, eng matcher, reg *metrics.Registry, log zerolog.Logger) *Server {
	return &Server{
		address: address,
		port:    port,
		engine:  eng,
		metrics: reg,
		log:     log,
		pool:    newConnPool(workers, log),
		clients: make(map[string]net.Conn),
	}
}

// Run listens on address:port until ctx is cancelled or a fatal listener
// error occurs.
func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()

	s.pool.Setup(t, s.handleConn)

	t.Go(func() error {
		<-t.Dying()
		return listener.Close()
	})

	s.log.Info().Str("address", listener.Addr().String()).Msg("session server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return t.Wait()
			default:
				s.log.Error().Err(err).Msg("accept failed")
				continue
			}
		}
		s.pool.AddTask(conn)
	}
}

// SetEngine binds the matcher this server dispatches to. It exists because
// engine.New needs a Reporter (this Server) and session.New needs a matcher
// (the engine) — the same circular-construction problem the teacher solves
// with eng.SetReporter(srv) in cmd/server/server.go, mirrored here in the
// opposite direction.
func (s *Server) SetEngine(e matcher) {
	s.engine = e
}

// Shutdown stops the accept loop and every worker.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

// handleConn owns conn for its entire lifetime: it decodes one Command per
// line and writes back one Response per line, until the client disconnects,
// a read, decode or write fails (including a read idle for longer than
// defaultConnTimeout), or the tomb is dying. Any trader id seen on this
// connection is registered
// so ReportTrade/ReportReject can reach it later; it is deregistered when
// the connection closes, mirroring the teacher's addClientSession /
// deleteClientSession pair.
func (s *Server) handleConn(t *tomb.Tomb, conn net.Conn) {
	addr := conn.RemoteAddr().String()
	defer func() {
		s.deregisterByConn(conn)
		conn.Close()
	}()

	dec := wire.NewDecoder(conn)
	enc := wire.NewEncoder(conn)

	for {
		select {
		case <-t.Dying():
			return
		default:
		}

		if dl, ok := conn.(interface{ SetReadDeadline(time.Time) error }); ok {
			_ = dl.SetReadDeadline(time.Now().Add(defaultConnTimeout))
		}

		cmd, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Error().Err(err).Str("address", addr).Msg("error reading command")
				s.metrics.SessionErrors.WithLabelValues("decode").Inc()
			}
			return
		}

		s.register(cmd.TraderID, conn)

		resp := s.dispatch(cmd)
		if err := enc.Encode(resp); err != nil {
			s.log.Error().Err(err).Str("address", addr).Msg("error writing response")
			return
		}
	}
}

func (s *Server) dispatch(cmd wire.Command) wire.Response {
	if err := cmd.Validate(); err != nil {
		s.metrics.OrdersRejected.WithLabelValues("bad_input").Inc()
		return wire.Response{Success: false, Error: err.Error()}
	}

	timer := prometheusTimer(s.metrics)
	defer timer()

	switch cmd.RequestType {
	case domain.Submit:
		return s.dispatchSubmit(cmd)
	case domain.Amend:
		if err := s.engine.Amend(cmd.OrderID, cmd.Quantity); err != nil {
			return wire.Response{Success: false, Error: err.Error()}
		}
		return wire.Response{Success: true}
	case domain.Cancel:
		if err := s.engine.Cancel(cmd.OrderID); err != nil {
			return wire.Response{Success: false, Error: err.Error()}
		}
		return wire.Response{Success: true}
	case domain.Get:
		o, err := s.engine.Get(cmd.OrderID)
		if err != nil {
			return wire.Response{Success: false, Error: err.Error()}
		}
		return wire.Response{Success: true, Order: wire.ToOrderDTO(o.Clone())}
	default:
		return wire.Response{Success: false, Error: "unknown request type"}
	}
}

func (s *Server) dispatchSubmit(cmd wire.Command) wire.Response {
	price := 0.0
	if cmd.Price != nil {
		price = *cmd.Price
	}
	order, success, err := s.engine.Submit(engine.NewOrder{
		TraderID:  cmd.TraderID,
		Ticker:    cmd.Ticker,
		Side:      cmd.OrderSide,
		OrderType: cmd.OrderType,
		Price:     price,
		Quantity:  cmd.Quantity,
	})
	var dto *wire.OrderDTO
	if order != nil {
		dto = wire.ToOrderDTO(order.Clone())
	}
	if err != nil && !errors.Is(err, domain.ErrDuplicateTraderOrder) {
		s.metrics.OrdersRejected.WithLabelValues("submit_error").Inc()
		return wire.Response{Success: false, Order: dto, Error: err.Error()}
	}
	if errors.Is(err, domain.ErrDuplicateTraderOrder) {
		s.metrics.OrdersRejected.WithLabelValues("duplicate_trader").Inc()
		return wire.Response{Success: false, Order: dto, Error: err.Error()}
	}
	s.metrics.OrdersSubmitted.WithLabelValues(cmd.OrderType.String(), cmd.Ticker).Inc()
	return wire.Response{Success: success, Order: dto}
}

func (s *Server) register(traderID string, conn net.Conn) {
	if traderID == "" {
		return
	}
	s.mu.Lock()
	s.clients[traderID] = conn
	s.mu.Unlock()
}

func (s *Server) deregisterByConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trader, c := range s.clients {
		if c == conn {
			delete(s.clients, trader)
		}
	}
}

// ReportTrade implements engine.Reporter: it writes one Response line to
// each counterparty currently registered on a connection, skipping whoever
// has disconnected rather than failing the whole report (spec.md's
// execution reports are best-effort delivery to a live session).
func (s *Server) ReportTrade(trade engine.Trade) error {
	s.metrics.Trades.Inc()
	s.metrics.TradeQuantity.Add(float64(trade.Quantity))

	s.notify(trade.BuyTraderID, wire.Response{Success: true, Order: &wire.OrderDTO{
		OrderID:  trade.BuyOrderID,
		TraderID: trade.BuyTraderID,
		Ticker:   trade.Ticker,
		Side:     domain.Buy,
		Price:    trade.Price,
		Quantity: trade.Quantity,
	}})
	s.notify(trade.SellTraderID, wire.Response{Success: true, Order: &wire.OrderDTO{
		OrderID:  trade.SellOrderID,
		TraderID: trade.SellTraderID,
		Ticker:   trade.Ticker,
		Side:     domain.Sell,
		Price:    trade.Price,
		Quantity: trade.Quantity,
	}})
	return nil
}

// ReportReject implements engine.Reporter.
func (s *Server) ReportReject(traderID string, reason string) error {
	s.metrics.SessionErrors.WithLabelValues("reject").Inc()
	s.notify(traderID, wire.Response{Success: false, Error: reason})
	return nil
}

func (s *Server) notify(traderID string, resp wire.Response) {
	s.mu.Lock()
	conn, ok := s.clients[traderID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := wire.NewEncoder(conn).Encode(resp); err != nil {
		s.log.Error().Err(err).Str("trader_id", traderID).Msg("unable to deliver report")
	}
}

func prometheusTimer(reg *metrics.Registry) func() {
	start := time.Now()
	return func() {
		reg.MatchDuration.Observe(time.Since(start).Seconds())
	}
}
