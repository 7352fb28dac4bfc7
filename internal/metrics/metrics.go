package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dancymeals",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dancymeals",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	scheduleValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dancymeals",
			Name:      "schedule_validation_failures_total",
			Help:      "Count of rejected schedule submissions by field.",
		},
		[]string{"field"},
	)

	dateValidationRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dancymeals",
			Name:      "scheduled_date_rejections_total",
			Help:      "Count of client-chosen dates rejected by the ordering window.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, scheduleValidationFailures, dateValidationRejections)
	})
}

func ObserveRequest(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

func IncScheduleValidationFailure(field string) {
	scheduleValidationFailures.WithLabelValues(field).Inc()
}

func IncDateRejection() {
	dateValidationRejections.Inc()
}
