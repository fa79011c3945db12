package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Envista API metrics
var (
	// APIRequestsTotal tracks requests to the Envista API by operation and outcome
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envista_api_requests_total",
			Help: "Total number of requests made to the Envista API",
		},
		[]string{"operation", "status"},
	)

	// APIRequestDuration tracks the duration of Envista API round trips
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envista_api_request_duration_seconds",
			Help:    "Duration of Envista API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Collector metrics
var (
	// ReadingsPublishedTotal tracks readings pushed to the Redis stream
	ReadingsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envista_readings_published_total",
			Help: "Total number of station readings published to the stream",
		},
		[]string{"station_id", "status"},
	)

	// AppInfo provides static information about the application
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "envista_app_info",
			Help: "Application information (always 1)",
		},
		[]string{"app", "version"},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "envista_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppStartTime.SetToCurrentTime()
}

// SetAppInfo marks the running binary
func SetAppInfo(app, version string) {
	AppInfo.WithLabelValues(app, version).Set(1)
}

// RecordAPIRequest records one Envista API round trip. status is the
// HTTP status code, or "error" when no response was received.
func RecordAPIRequest(operation, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(operation, status).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPublish records a publish attempt for a station
func RecordPublish(stationID string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ReadingsPublishedTotal.WithLabelValues(stationID, status).Inc()
}
