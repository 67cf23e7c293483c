// ABOUTME: Prometheus metrics for dispatch outcomes and open admin connections
// ABOUTME: Served from /metrics on the health HTTP server

package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/mediator-admin/internal/protocol"
)

// unknownTypeLabel replaces undeclared message types so clients cannot grow
// the label set.
const unknownTypeLabel = "unknown"

type metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
}

func newMetrics(types *protocol.Registry, connections func() int) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediator_admin",
			Name:      "dispatch_outcomes_total",
			Help:      "Dispatched admin envelopes by terminal status and message type.",
		}, []string{"status", "type"}),
	}

	m.registry.MustRegister(
		m.outcomes,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mediator_admin",
			Name:      "connections",
			Help:      "Open AdminTransport streams.",
		}, func() float64 { return float64(connections()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mediator_admin",
			Name:      "declared_types",
			Help:      "Message types declared in the registry.",
		}, func() float64 { return float64(types.Len()) }),
	)
	return m
}

func (m *metrics) observe(types *protocol.Registry, out protocol.Outcome) {
	typeLabel := unknownTypeLabel
	if _, ok := types.Lookup(out.Type); ok {
		typeLabel = string(out.Type)
	}
	m.outcomes.WithLabelValues(out.Status.String(), typeLabel).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
