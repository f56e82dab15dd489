// Package metrics exposes assignment engine counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons recorded for parcels a pass did not admit.
const (
	SkipCapacity    = "capacity"
	SkipClaimed     = "claimed"
	SkipDestination = "destination"
)

// Pass results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Assignment records what assignment passes do. A nil *Assignment is valid and records nothing.
type Assignment struct {
	passes   *prometheus.CounterVec
	admitted prometheus.Counter
	skipped  *prometheus.CounterVec
	revenue  prometheus.Counter
	duration prometheus.Histogram
}

// NewAssignment creates the collectors and registers them with reg.
func NewAssignment(reg prometheus.Registerer) *Assignment {
	m := &Assignment{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longmail",
			Name:      "assignment_passes_total",
			Help:      "Assignment passes by result.",
		}, []string{"result"}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "longmail",
			Name:      "parcels_admitted_total",
			Help:      "Parcels loaded onto a train.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longmail",
			Name:      "parcels_skipped_total",
			Help:      "Candidate parcels a pass did not load, by reason.",
		}, []string{"reason"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "longmail",
			Name:      "admitted_cost_total",
			Help:      "Sum of shipping cost over admitted parcels.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "longmail",
			Name:      "assignment_pass_duration_seconds",
			Help:      "Wall time of one assignment pass, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.passes, m.admitted, m.skipped, m.revenue, m.duration)
	return m
}

// ObservePass records one finished pass.
func (m *Assignment) ObservePass(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Admitted records one admission and its cost.
func (m *Assignment) Admitted(cost float64) {
	if m == nil {
		return
	}
	m.admitted.Inc()
	m.revenue.Add(cost)
}

// Skipped records a candidate the pass passed over.
func (m *Assignment) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}
