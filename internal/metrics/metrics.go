// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pokeguide",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pokeguide",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// AuthEvents counts session lifecycle operations: login, refresh, logout, verify.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pokeguide",
		Name:      "auth_events_total",
		Help:      "Authentication operations by kind and outcome.",
	}, []string{"event", "outcome"})

	DamageCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pokeguide",
		Name:      "damage_calculations_total",
		Help:      "Damage calculator requests by outcome.",
	}, []string{"outcome"})

	RefreshTokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pokeguide",
		Name:      "refresh_tokens_purged_total",
		Help:      "Expired refresh tokens removed by the janitor.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pokeguide",
		Name:      "ws_connections",
		Help:      "Open websocket connections.",
	})
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
