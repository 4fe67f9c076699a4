// Package metrics exposes Prometheus collectors for the assistant core.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report reminder and storage
// activity.
type Metrics struct {
	remindersScheduled prometheus.Counter
	remindersFired     *prometheus.CounterVec
	remindersCancelled prometheus.Counter
	timersActive       prometheus.Gauge
	storeWriteFailures *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level metrics instance registered with the
// global Prometheus registry. The collectors are created only once to avoid
// duplicate registration panics when subsystems are instantiated multiple
// times (e.g. in unit tests).
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs a Metrics instance using the provided registerer. The
// caller supplies a fresh registry when isolated collectors are required (for
// example in tests). Registration errors for anything other than an already
// registered identical collector panic, mirroring promauto semantics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	remindersScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "iris",
		Subsystem: "reminder",
		Name:      "scheduled_total",
		Help:      "Total number of reminder timers armed.",
	})
	remindersFired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iris",
		Subsystem: "reminder",
		Name:      "fired_total",
		Help:      "Total number of reminder fire attempts by outcome.",
	}, []string{"outcome"})
	remindersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "iris",
		Subsystem: "reminder",
		Name:      "cancelled_total",
		Help:      "Total number of reminders cancelled before firing.",
	})
	timersActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "iris",
		Subsystem: "reminder",
		Name:      "timers_active",
		Help:      "Number of in-memory reminder timers currently armed.",
	})
	storeWriteFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iris",
		Subsystem: "storage",
		Name:      "write_failures_total",
		Help:      "Total number of atomic collection writes that failed.",
	}, []string{"collection"})

	m := &Metrics{
		remindersScheduled: remindersScheduled,
		remindersFired:     remindersFired,
		remindersCancelled: remindersCancelled,
		timersActive:       timersActive,
		storeWriteFailures: storeWriteFailures,
	}

	for _, collector := range []prometheus.Collector{
		remindersScheduled, remindersFired, remindersCancelled, timersActive, storeWriteFailures,
	} {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector {
				case remindersScheduled:
					m.remindersScheduled = already.ExistingCollector.(prometheus.Counter)
				case remindersFired:
					m.remindersFired = already.ExistingCollector.(*prometheus.CounterVec)
				case remindersCancelled:
					m.remindersCancelled = already.ExistingCollector.(prometheus.Counter)
				case timersActive:
					m.timersActive = already.ExistingCollector.(prometheus.Gauge)
				case storeWriteFailures:
					m.storeWriteFailures = already.ExistingCollector.(*prometheus.CounterVec)
				}
				continue
			}
			panic(err)
		}
	}

	return m
}

// ReminderScheduled records a newly armed reminder timer.
func (m *Metrics) ReminderScheduled() {
	if m == nil {
		return
	}
	m.remindersScheduled.Inc()
	m.timersActive.Inc()
}

// ReminderFired records a fire attempt with its outcome
// ("sent", "send_failed", "blocked").
func (m *Metrics) ReminderFired(outcome string) {
	if m == nil {
		return
	}
	m.remindersFired.WithLabelValues(outcome).Inc()
}

// ReminderCancelled records a timer cancelled before it fired.
func (m *Metrics) ReminderCancelled() {
	if m == nil {
		return
	}
	m.remindersCancelled.Inc()
}

// TimerReleased records an armed timer leaving the table (fired or cancelled).
func (m *Metrics) TimerReleased() {
	if m == nil {
		return
	}
	m.timersActive.Dec()
}

// StoreWriteFailure records a failed atomic write for a collection.
func (m *Metrics) StoreWriteFailure(collection string) {
	if m == nil {
		return
	}
	m.storeWriteFailures.WithLabelValues(collection).Inc()
}
