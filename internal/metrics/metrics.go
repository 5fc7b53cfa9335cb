// Package metrics exposes Prometheus counters for the engine and session
// layers, grounded in tradSys's internal/monitoring dashboard
// (prometheus.NewCounterVec/NewHistogram + MustRegister) and perp-dex's use
// of the same client library.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every counter this module exports. A zero-value Registry
// is not usable; construct one with New.
type Registry struct {
	OrdersSubmitted  *prometheus.CounterVec
	OrdersRejected   *prometheus.CounterVec
	Trades           prometheus.Counter
	TradeQuantity    prometheus.Counter
	SessionErrors    *prometheus.CounterVec
	MatchDuration    prometheus.Histogram
}

// New registers every metric on the process-wide default registry, which is
// what Handler serves. Calling New a second time in the same process panics
// on duplicate registration.
func New() *Registry {
	reg := &Registry{
		OrdersSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "orders_submitted_total",
			Help:      "Orders accepted by the engine, by order type and ticker.",
		}, []string{"order_type", "ticker"}),
		OrdersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before reaching a book, by reason.",
		}, []string{"reason"}),
		Trades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "trades_total",
			Help:      "Completed fills across all books.",
		}),
		TradeQuantity: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "trade_quantity_total",
			Help:      "Total quantity matched across all books.",
		}),
		SessionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "session_errors_total",
			Help:      "Errors surfaced to a trader session, by error kind.",
		}, []string{"kind"}),
		MatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchengine",
			Name:      "match_duration_seconds",
			Help:      "Wall-clock time of a single Submit/Amend/Cancel/Get call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	return reg
}

// Handler returns the /metrics HTTP handler for this process's default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
