// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by method, route pattern, and
	// status class.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "serviapp",
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "route", "status"})

	// RequestDuration observes request latency per route pattern.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "serviapp",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// MutationsTotal counts record mutations by kind and outcome.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "serviapp",
		Name:      "record_mutations_total",
		Help:      "Service record create/update/delete operations.",
	}, []string{"kind", "outcome"})

	// ExportsTotal counts spreadsheet exports.
	ExportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "serviapp",
		Name:      "exports_total",
		Help:      "Completed spreadsheet exports.",
	})

	// IdleLogoutsTotal counts sessions signed out by the inactivity window.
	IdleLogoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "serviapp",
		Name:      "idle_logouts_total",
		Help:      "Sessions ended by idle timeout.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMutation increments MutationsTotal with outcome derived from err.
func RecordMutation(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	MutationsTotal.WithLabelValues(kind, outcome).Inc()
}
