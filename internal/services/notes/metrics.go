package notes

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the registry's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	notifications prometheus.Counter
	failures      prometheus.Counter
	registered    prometheus.Gauge
	dropped       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notes_refetch_notifications_total",
			Help: "Number of refetch notifications dispatched",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notes_refetch_callback_failures_total",
			Help: "Number of refetch callbacks that returned an error or panicked",
		}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notes_refetch_callbacks",
			Help: "Number of currently registered refetch callbacks",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notes_snapshots_dropped_total",
			Help: "Number of note snapshots dropped because a consumer outbox was full",
		}),
	}
	reg.MustRegister(m.notifications, m.failures, m.registered, m.dropped)
	return m
}

func (m *Metrics) incNotify() {
	if m != nil {
		m.notifications.Inc()
	}
}

func (m *Metrics) incFailure() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) setRegistered(n int) {
	if m != nil {
		m.registered.Set(float64(n))
	}
}

// IncDropped records a snapshot a consumer could not accept.
func (m *Metrics) IncDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
