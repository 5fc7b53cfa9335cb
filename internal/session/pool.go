// Package session is the TCP surface in front of the matching engine: it
// accepts connections, decodes Command lines, dispatches them to a
// *engine.MatchingEngine, and implements engine.Reporter to push execution
// reports back out to the two counterparties of a trade.
package session

import (
	"net"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// connPool is a fixed-size pool of goroutines draining accepted connections,
// grounded on the teacher's internal/worker.go WorkerPool. Unlike the
// teacher's version, each worker here owns a connection for its entire
// lifetime (handleConn loops until the client disconnects) rather than
// processing one message and returning the connection to the pool, since a
// trader session is naturally long-lived rather than request-scoped.
type connPool struct {
	n     int
	tasks chan net.Conn
	log   zerolog.Logger
}

func newConnPool(n int, log zerolog.Logger) *connPool {
	return &connPool{
		n:     n,
		tasks: make(chan net.Conn, taskChanSize),
		log:   log,
	}
}

// AddTask queues an accepted connection for a worker to pick up.
func (p *connPool) AddTask(conn net.Conn) {
	p.tasks <- conn
}

// Setup starts the fixed pool of workers, each running handle until the
// tomb is dying.
func (p *connPool) Setup(t *tomb.Tomb, handle func(*tomb.Tomb, net.Conn)) {
	p.log.Info().Int("workers", p.n).Msg("starting session worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, handle)
		})
	}
}

func (p *connPool) worker(t *tomb.Tomb, handle func(*tomb.Tomb, net.Conn)) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case conn := <-p.tasks:
			handle(t, conn)
		}
	}
}
