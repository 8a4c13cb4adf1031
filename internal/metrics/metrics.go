// Package metrics exposes operational Prometheus counters for the watcher.
// All methods are nil-safe so wiring stays optional in tests.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prom.Registry

	transitions          *prom.CounterVec
	notificationsSent    prom.Counter
	notificationRetries  prom.Counter
	notificationFailures prom.Counter
	sensorErrors         prom.Counter
	storeErrors          prom.Counter
	commands             *prom.CounterVec
}

// New constructs and registers the collectors on reg (a fresh registry when
// nil).
func New(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{registry: reg}
	m.transitions = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "transitions_total",
		Help:      "Confirmed power state transitions by target state",
	}, []string{"to"})
	m.notificationsSent = prom.NewCounter(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "notifications_sent_total",
		Help:      "Notifications delivered to the chat",
	})
	m.notificationRetries = prom.NewCounter(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "notification_retries_total",
		Help:      "Notification send retries after transient failures",
	})
	m.notificationFailures = prom.NewCounter(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "notification_failures_total",
		Help:      "Notifications abandoned after retry exhaustion",
	})
	m.sensorErrors = prom.NewCounter(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "sensor_errors_total",
		Help:      "Sensor read errors (stale or failed samples)",
	})
	m.storeErrors = prom.NewCounter(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "store_errors_total",
		Help:      "Store operation failures after retries",
	})
	m.commands = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "powerwatch",
		Name:      "commands_total",
		Help:      "Inbound bot commands by handling result",
	}, []string{"result"})
	reg.MustRegister(m.transitions, m.notificationsSent, m.notificationRetries,
		m.notificationFailures, m.sensorErrors, m.storeErrors, m.commands)
	return m
}

// Registry returns the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prom.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncNotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}

func (m *Metrics) IncNotificationRetry() {
	if m == nil {
		return
	}
	m.notificationRetries.Inc()
}

func (m *Metrics) IncNotificationFailure() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}

func (m *Metrics) IncSensorError() {
	if m == nil {
		return
	}
	m.sensorErrors.Inc()
}

func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

func (m *Metrics) IncCommand(result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
}
