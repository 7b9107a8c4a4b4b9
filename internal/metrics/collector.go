// Package chatmetrics exposes the chat daemon's Prometheus metrics.
package chatmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "chatd"
	subsystem = "chat"
)

// Label names for chat metrics.
const (
	labelKind = "kind"
	labelFrom = "from_status"
	labelTo   = "to_status"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Chat Metrics
// -------------------------------------------------------------------------

// Collector holds all chat daemon Prometheus metrics.
//
// Metrics are designed for production chat-service monitoring:
//   - Sessions gauge tracks currently registered users.
//   - MessagesRouted counts dispatcher traffic per message kind.
//   - Errors counts rejected/malformed requests per error kind.
//   - StatusTransitions counts ACTIVO/OCUPADO/INACTIVO status changes.
type Collector struct {
	// Sessions tracks the number of currently registered chat sessions.
	// Incremented on registration, decremented on removal.
	Sessions prometheus.Gauge

	// MessagesRouted counts messages successfully dispatched, labeled by kind
	// (register, broadcast, private, list_users, user_info, change_status,
	// disconnect).
	MessagesRouted *prometheus.CounterVec

	// Errors counts rejected or malformed requests, labeled by error kind.
	Errors *prometheus.CounterVec

	// StatusTransitions counts user status changes, labeled by the from/to
	// status pair (e.g., ACTIVO->INACTIVO for supervisor-driven demotions).
	StatusTransitions *prometheus.CounterVec
}

// NewCollector creates a Collector with all chat metrics registered against
// the provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
//
// All metrics are created with the "chatd_chat_" prefix (namespace_subsystem)
// to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Sessions,
		c.MessagesRouted,
		c.Errors,
		c.StatusTransitions,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Number of currently registered chat sessions.",
		}),

		MessagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_routed_total",
			Help:      "Total messages routed by the dispatcher, labeled by kind.",
		}, []string{labelKind}),

		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total rejected or malformed requests, labeled by error kind.",
		}, []string{labelKind}),

		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "status_transitions_total",
			Help:      "Total user status transitions, labeled by from/to status.",
		}, []string{labelFrom, labelTo}),
	}
}

// -------------------------------------------------------------------------
// chat.MetricsReporter implementation
// -------------------------------------------------------------------------

// SessionRegistered increments the active sessions gauge. Called when a new
// user completes registration.
func (c *Collector) SessionRegistered() {
	c.Sessions.Inc()
}

// SessionRemoved decrements the active sessions gauge. Called when a session
// is removed from the registry, whether by disconnect or broken transport.
func (c *Collector) SessionRemoved() {
	c.Sessions.Dec()
}

// MessageRouted increments the routed-messages counter for the given kind.
func (c *Collector) MessageRouted(kind string) {
	c.MessagesRouted.WithLabelValues(kind).Inc()
}

// ErrorOccurred increments the errors counter for the given kind.
func (c *Collector) ErrorOccurred(kind string) {
	c.Errors.WithLabelValues(kind).Inc()
}

// StatusTransition increments the status-transition counter for the given
// from/to pair. Used to alert on unusual rates of inactivity demotion.
func (c *Collector) StatusTransition(from, to string) {
	c.StatusTransitions.WithLabelValues(from, to).Inc()
}
