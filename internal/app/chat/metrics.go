package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes router and hub activity. A nil *Metrics records nothing.
type Metrics struct {
	connections *prometheus.GaugeVec
	online      prometheus.Gauge
	known       prometheus.Gauge
	convos      prometheus.Gauge
	events      *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "buddychat_connections_active",
			Help: "Live transport connections by identity state.",
		}, []string{"state"}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buddychat_identities_online",
			Help: "Names currently bound to a live connection.",
		}),
		known: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buddychat_identities_known",
			Help: "Names that have ever been claimed.",
		}),
		convos: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buddychat_conversations",
			Help: "Transcripts holding at least one message.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buddychat_events_total",
			Help: "Inbound frames processed by type.",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buddychat_rejections_total",
			Help: "Error frames sent back to clients by reason.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buddychat_deliveries_total",
			Help: "Outbound frames by result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buddychat_event_latency_seconds",
			Help:    "Time spent dispatching one inbound frame.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.connections,
		m.online,
		m.known,
		m.convos,
		m.events,
		m.rejections,
		m.deliveries,
		m.latency,
	)
	return m
}

func (m *Metrics) setConnections(anonymous, named int) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues("anonymous").Set(float64(anonymous))
	m.connections.WithLabelValues("named").Set(float64(named))
	m.online.Set(float64(named))
}

func (m *Metrics) setKnown(n int) {
	if m == nil {
		return
	}
	m.known.Set(float64(n))
}

func (m *Metrics) setConversations(n int) {
	if m == nil {
		return
	}
	m.convos.Set(float64(n))
}

func (m *Metrics) recordEvent(t MessageType, dur time.Duration) {
	if m == nil {
		return
	}
	label := string(t)
	if label == "" {
		label = "malformed"
	}
	m.events.WithLabelValues(label).Inc()
	m.latency.WithLabelValues(label).Observe(dur.Seconds())
}

func (m *Metrics) recordRejection(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordDelivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}
