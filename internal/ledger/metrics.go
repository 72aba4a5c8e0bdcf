package ledger

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for ledger reconciliation.
type Metrics struct {
	events    *prometheus.CounterVec
	completed prometheus.Counter
	duration  prometheus.Histogram
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the ledger metrics against the registerer. A nil registerer uses
// the default Prometheus registerer, registered once per process.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_ledger_events_total",
		Help: "Withholding events seen by the ledger, partitioned by outcome.",
	}, []string{"outcome"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payroll_ledger_orders_completed_total",
		Help: "Garnishment orders marked completed.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payroll_ledger_apply_duration_seconds",
		Help:    "Duration in seconds of a single ledger apply.",
		Buckets: prometheus.DefBuckets,
	})
	registerer.MustRegister(events, completed, duration)
	return &Metrics{events: events, completed: completed, duration: duration}
}

func (m *Metrics) observeApply(start time.Time, duplicate bool, err error) {
	if m == nil {
		return
	}
	outcome := "applied"
	switch {
	case err != nil:
		outcome = "error"
	case duplicate:
		outcome = "duplicate"
	}
	m.events.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) orderCompleted() {
	if m == nil {
		return
	}
	m.completed.Inc()
}
