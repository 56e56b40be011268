package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the server publishes. All fields are safe
// for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	RoomsActive     prometheus.Gauge
	PeersConnected  prometheus.Gauge
	ProducersActive prometheus.Gauge
	ConsumersActive prometheus.Gauge

	MessagesIn    *prometheus.CounterVec
	MessagesOut   *prometheus.CounterVec
	EventsDropped prometheus.Counter
}

// New builds a Metrics with its own registry, pre-registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "huddle",
			Name:      "rooms_active",
			Help:      "Rooms currently open.",
		}),
		PeersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "huddle",
			Name:      "peers_connected",
			Help:      "WebSocket sessions currently attached to a room.",
		}),
		ProducersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "huddle",
			Name:      "producers_active",
			Help:      "Published tracks currently forwarded.",
		}),
		ConsumersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "huddle",
			Name:      "consumers_active",
			Help:      "Track subscriptions currently open.",
		}),
		MessagesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huddle",
			Name:      "signal_messages_in_total",
			Help:      "Signaling messages received, by action.",
		}, []string{"action"}),
		MessagesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huddle",
			Name:      "signal_messages_out_total",
			Help:      "Signaling messages sent, by action.",
		}, []string{"action"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "huddle",
			Name:      "room_events_dropped_total",
			Help:      "Room events dropped because a session queue was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RoomsActive,
		m.PeersConnected,
		m.ProducersActive,
		m.ConsumersActive,
		m.MessagesIn,
		m.MessagesOut,
		m.EventsDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
