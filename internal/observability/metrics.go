package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	progressMutationsTotal    *prometheus.CounterVec
	progressPercentage        prometheus.Histogram
	progressRecomputeTotal    *prometheus.CounterVec
	progressRecomputeFailures prometheus.Counter
	progressRecomputeSeconds  prometheus.Histogram
	progressEventsTotal       *prometheus.CounterVec
	notificationsTotal        *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		progressMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_mutations_total",
			Help: "Progress set mutations by action and whether the set changed.",
		}, []string{"action", "changed"})

		progressPercentage = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "progress_percentage",
			Help:    "Distribution of computed course progress percentages.",
			Buckets: []float64{0, 10, 25, 50, 75, 90, 100},
		})

		progressRecomputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_recompute_total",
			Help: "Per-student recomputes run by course-wide fan-out, by outcome.",
		}, []string{"outcome"})

		progressRecomputeFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_recompute_failures_total",
			Help: "Per-student recompute failures swallowed by course-wide fan-out.",
		})

		progressRecomputeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "progress_recompute_seconds",
			Help:    "Duration of course-wide recompute runs.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		})

		progressEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_events_total",
			Help: "Inbound progress events by source and outcome.",
		}, []string{"source", "outcome"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications handled by the dispatcher, by type and outcome.",
		}, []string{"type", "outcome"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			progressMutationsTotal, progressPercentage,
			progressRecomputeTotal, progressRecomputeFailures, progressRecomputeSeconds,
			progressEventsTotal, notificationsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

func ProgressMutations() *prometheus.CounterVec {
	RegisterMetrics()
	return progressMutationsTotal
}

func ProgressPercentage() prometheus.Histogram {
	RegisterMetrics()
	return progressPercentage
}

func ProgressRecomputes() *prometheus.CounterVec {
	RegisterMetrics()
	return progressRecomputeTotal
}

func ProgressRecomputeFailures() prometheus.Counter {
	RegisterMetrics()
	return progressRecomputeFailures
}

func ProgressRecomputeDuration() prometheus.Histogram {
	RegisterMetrics()
	return progressRecomputeSeconds
}

func ProgressEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return progressEventsTotal
}

func Notifications() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}
