package signaling

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropReasonMalformed   = "malformed"
	DropReasonBinary      = "binary"
	DropReasonUnknownType = "unknown_type"
	DropReasonNoPartner   = "no_partner"
)

const (
	metricsNamespace = "rendezvous"
	unknownTypeLabel = "unknown"
)

// Metrics holds the Prometheus collectors of one Hub. Each Hub registers on
// its own prometheus.Registry so several hubs can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	connections      prometheus.Gauge
	pairings         prometheus.Counter
	joinRejected     prometheus.Counter
	deliveryFailures prometheus.Counter
	received         *prometheus.CounterVec
	relayed          *prometheus.CounterVec
	dropped          *prometheus.CounterVec
}

// NewMetrics creates the collectors. sessions is sampled on every scrape.
func NewMetrics(sessions func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections_active",
			Help:      "Open signaling connections.",
		}),
		pairings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pairings_total",
			Help:      "Passwords that reached two members.",
		}),
		joinRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "join_rejected_total",
			Help:      "Connection requests rejected because the password already had two peers.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delivery_failures_total",
			Help:      "Envelopes that could not be queued for a partner.",
		}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "envelopes_received_total",
			Help:      "Envelopes decoded from clients.",
		}, []string{"type"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "envelopes_relayed_total",
			Help:      "Envelopes forwarded to a partner.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "envelopes_dropped_total",
			Help:      "Frames dropped without being relayed.",
		}, []string{"reason"}),
	}

	sessionsGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_active",
		Help:      "Passwords with at least one joined connection.",
	}, sessions)

	m.registry.MustRegister(
		m.connections,
		m.pairings,
		m.joinRejected,
		m.deliveryFailures,
		m.received,
		m.relayed,
		m.dropped,
		sessionsGauge,
	)
	return m
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mostly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) recordReceived(env *Envelope) {
	m.received.WithLabelValues(typeLabel(env)).Inc()
}

func (m *Metrics) recordRelayed(env *Envelope) {
	m.relayed.WithLabelValues(typeLabel(env)).Inc()
}

func (m *Metrics) recordDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// typeLabel bounds label cardinality to the known message types.
func typeLabel(env *Envelope) string {
	switch env.Type {
	case MessageTypeConnectionRequest:
		return env.Type
	}
	if env.IsRelayed() {
		return env.Type
	}
	return unknownTypeLabel
}
