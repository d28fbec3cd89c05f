// Package metrics exposes Prometheus collectors for the notifier service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal            *prometheus.CounterVec
	recordsNewTotal      prometheus.Counter
	emailsTotal          *prometheus.CounterVec
	fetchDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_runs_total",
				Help: "Total number of scrape runs, labeled by outcome status.",
			},
			[]string{"status"},
		)

		recordsNewTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "notifier_records_new_total",
				Help: "Total number of newly persisted announcements.",
			},
		)

		emailsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_emails_total",
				Help: "Total number of email transport calls, labeled by result.",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifier_fetch_duration_seconds",
				Help:    "Histogram of source page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun increments the run counter for the given outcome status.
func ObserveRun(status string) {
	if runsTotal != nil {
		runsTotal.WithLabelValues(status).Inc()
	}
}

// ObserveNewRecords adds newly persisted announcements to the counter.
func ObserveNewRecords(n int) {
	if recordsNewTotal != nil && n > 0 {
		recordsNewTotal.Add(float64(n))
	}
}

// ObserveEmail increments the email counter with the given result label.
func ObserveEmail(result string) {
	if emailsTotal != nil {
		emailsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveFetch records the duration of a source page fetch.
func ObserveFetch(d time.Duration) {
	if fetchDurationSeconds != nil {
		fetchDurationSeconds.Observe(d.Seconds())
	}
}
