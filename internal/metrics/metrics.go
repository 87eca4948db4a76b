// Package metrics holds the prometheus instruments for both bridge sides.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dawlink_build_info",
			Help: "Build information",
		},
		[]string{"date", "sha", "version"},
	)

	bridgeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dawlink_bridge_calls_total",
			Help: "Bridge calls by command type and outcome",
		},
		[]string{"type", "outcome"},
	)

	bridgeCallSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dawlink_bridge_call_seconds",
			Help:    "Round-trip latency of bridge calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 3, 10),
		},
	)

	bridgeReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dawlink_bridge_reconnects_total",
			Help: "Connections re-established after timeout or protocol failure",
		},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dawlink_dispatch_total",
			Help: "Dispatched commands by handler and status",
		},
		[]string{"type", "status"},
	)

	resolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dawlink_resolve_total",
			Help: "Cache resolutions by matching strategy",
		},
		[]string{"strategy"},
	)
)

// Register installs all instruments on the given registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, bridgeCallsTotal, bridgeCallSeconds,
		bridgeReconnectsTotal, dispatchTotal, resolveTotal)
}

// SetBuildInfo sets the build info gauge.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// BridgeCall records one completed bridge round trip.
func BridgeCall(cmdType, outcome string, seconds float64) {
	bridgeCallsTotal.WithLabelValues(cmdType, outcome).Inc()
	bridgeCallSeconds.Observe(seconds)
}

// BridgeReconnect counts a redial after a torn-down connection.
func BridgeReconnect() { bridgeReconnectsTotal.Inc() }

// Dispatch records one handler invocation.
func Dispatch(cmdType, status string) {
	dispatchTotal.WithLabelValues(cmdType, status).Inc()
}

// Resolve records one cache lookup by strategy.
func Resolve(strategy string) {
	resolveTotal.WithLabelValues(strategy).Inc()
}
