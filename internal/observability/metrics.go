package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chat server's Prometheus collectors.
type Metrics struct {
	ConnectedSessions    prometheus.Gauge
	ActiveRooms          prometheus.Gauge
	EventsTotal          *prometheus.CounterVec
	EventDuration        *prometheus.HistogramVec
	NotificationsDropped prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
//
// Precondition: reg must be non-nil and must not already hold these collectors.
// Postcondition: Returns registered Metrics; registration conflicts panic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connected_sessions",
			Help: "Number of currently connected sessions",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_active_rooms",
			Help: "Number of rooms with at least one member",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_events_total",
			Help: "Inbound events processed by type",
		}, []string{"event"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_event_duration_seconds",
			Help:    "Time spent applying an inbound event, lock wait included",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_notifications_dropped_total",
			Help: "Notifications that could not be queued to a session outbox",
		}),
	}
	reg.MustRegister(
		m.ConnectedSessions,
		m.ActiveRooms,
		m.EventsTotal,
		m.EventDuration,
		m.NotificationsDropped,
	)
	return m
}

// ObserveEvent counts one processed event and records its latency since start.
func (m *Metrics) ObserveEvent(event string, start time.Time) {
	m.EventsTotal.WithLabelValues(event).Inc()
	m.EventDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
}

// SetDirectorySize publishes the current session and room counts.
func (m *Metrics) SetDirectorySize(sessions, rooms int) {
	m.ConnectedSessions.Set(float64(sessions))
	m.ActiveRooms.Set(float64(rooms))
}
