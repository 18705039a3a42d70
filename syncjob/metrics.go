package syncjob

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultPartial = "partial"
	resultError   = "error"

	outcomeImported  = "imported"
	outcomeRefreshed = "refreshed"
	outcomeFailed    = "failed"
)

// Metrics are the Prometheus collectors updated by every run.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Movies      *prometheus.CounterVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinerate",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Completed TMDB sync runs by result.",
		}, []string{"result"}),
		Movies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinerate",
			Subsystem: "sync",
			Name:      "movies_total",
			Help:      "Movies processed by the TMDB sync by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cinerate",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of TMDB sync runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cinerate",
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without errors.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Movies, m.Duration, m.LastSuccess)
	}
	return m
}
