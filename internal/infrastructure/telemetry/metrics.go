// Package telemetry holds the Prometheus collectors of the storefront BFF.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics is the set of collectors registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	remoteRetries  *prometheus.CounterVec
	handoffs       *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// NewMetrics creates and registers all collectors, plus the Go and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		remoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "requests_total",
				Help:      "Calls to the storefront backend and region directory by operation and outcome.",
			},
			[]string{"op", "status", "outcome"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "request_duration_seconds",
				Help:      "Duration of remote calls in seconds, retries included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		remoteRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "retries_total",
				Help:      "Retried remote attempts by operation.",
			},
			[]string{"op"},
		),
		handoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "handoffs_total",
				Help:      "Payment handoff attempts by outcome.",
			},
			[]string{"outcome"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "active_sessions",
				Help:      "Checkout sessions held by the BFF.",
			},
		),
	}

	m.registry.MustRegister(
		m.remoteRequests,
		m.remoteDuration,
		m.remoteRetries,
		m.handoffs,
		m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRemote records one completed remote call. status is 0 when no
// response was received.
func (m *Metrics) ObserveRemote(op string, status int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.remoteRequests.WithLabelValues(op, strconv.Itoa(status), outcome).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncRetry counts a retried attempt of op
func (m *Metrics) IncRetry(op string) {
	if m == nil {
		return
	}
	m.remoteRetries.WithLabelValues(op).Inc()
}

// ObserveHandoff counts a payment handoff attempt
func (m *Metrics) ObserveHandoff(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.handoffs.WithLabelValues("error").Inc()
		return
	}
	m.handoffs.WithLabelValues("success").Inc()
}

// SetSessions sets the number of live checkout sessions
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
