package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	applicationSavesTotal *prometheus.CounterVec
	schemaCacheTotal      *prometheus.CounterVec
	reviewDecisionsTotal  *prometheus.CounterVec
	uploadRequestsTotal   *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
	eventPublishFailures  *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	streamClientsActive   prometheus.Gauge
	rateLimitedTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "awards_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		applicationSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_application_saves_total",
			Help: "Application saves partitioned by the resulting status.",
		}, []string{"status"})

		schemaCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_schema_cache_lookups_total",
			Help: "Field schema cache lookups by result.",
		}, []string{"result"})

		reviewDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_review_decisions_total",
			Help: "Reviewer decisions recorded, by outcome.",
		}, []string{"outcome"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_upload_requests_total",
			Help: "Accepted uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "awards_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		eventPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_event_publish_failures_total",
			Help: "Domain events that could not be published.",
		}, []string{"subject"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_notifications_delivered_total",
			Help: "Student notifications delivered, by type and origin.",
		}, []string{"type", "origin"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "awards_notification_streams_active",
			Help: "Open notification event streams.",
		})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awards_rate_limited_total",
			Help: "Requests rejected by a rate limiter.",
		}, []string{"limiter"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			applicationSavesTotal,
			schemaCacheTotal,
			reviewDecisionsTotal,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			eventPublishFailures,
			notificationsTotal,
			streamClientsActive,
			rateLimitedTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ApplicationSaves counts drafts and submissions.
func ApplicationSaves() *prometheus.CounterVec {
	RegisterMetrics()
	return applicationSavesTotal
}

// SchemaCacheLookups counts hits and misses of the field schema cache.
func SchemaCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return schemaCacheTotal
}

// ReviewDecisions counts shortlist decisions.
func ReviewDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewDecisionsTotal
}

// UploadRequests counts accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// EventPublishFailures counts events dropped by the publisher.
func EventPublishFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return eventPublishFailures
}

// NotificationsDelivered counts notifications pushed to students.
func NotificationsDelivered() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// NotificationStreamsActive tracks open notification streams.
func NotificationStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// RateLimited counts requests turned away by a limiter.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}
