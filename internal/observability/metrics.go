package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outbox metrics, read by the Outbox Relay's poll loop.
var (
	OutboxPendingRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "payauth_outbox_pending_rows",
			Help: "Number of undelivered outbox rows as of the last poll",
		},
	)

	OutboxRelayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payauth_outbox_relayed_total",
			Help: "Total number of outbox rows successfully relayed, by destination",
		},
		[]string{"destination"},
	)

	OutboxRelayFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payauth_outbox_relay_failures_total",
			Help: "Total number of outbox relay publish failures, by destination",
		},
		[]string{"destination"},
	)
)

// Lock metrics, read by the Distributed Lock adapter.
var (
	LockContentionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payauth_lock_contention_total",
			Help: "Total number of lock acquisitions that had to wait for a contended holder",
		},
		[]string{"result"}, // acquired, timed_out
	)
)

// Processor metrics, read by the Processor Adapter registry's callers.
var (
	ProcessorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payauth_processor_authorize_duration_seconds",
			Help:    "Duration of ProcessorAdapter.Authorize calls",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"processor", "outcome"},
	)

	AuthRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payauth_auth_requests_total",
			Help: "Total number of authorization requests reaching a terminal status",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus scrape endpoint handler, mounted at
// /metrics on every process role.
func Handler() http.Handler {
	return promhttp.Handler()
}
