package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terraso_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "terraso_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "terraso_api_active_requests",
			Help: "Requests currently being served",
		},
	)

	SoilIDRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terraso_soil_id_requests_total",
			Help: "Calls to the soil-id service by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	SoilIDDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "terraso_soil_id_request_duration_seconds",
			Help:    "Soil-id service latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	SoilIDCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terraso_soil_id_cache_lookups_total",
			Help: "Soil-id cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "terraso_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "terraso_websocket_clients",
			Help: "Connected notification websocket clients",
		},
	)

	WebSocketMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "terraso_websocket_messages_total",
			Help: "Notifications delivered over websockets",
		},
	)

	PushEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terraso_push_entries_total",
			Help: "Offline push entries by kind and result",
		},
		[]string{"kind", "result"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terraso_emails_total",
			Help: "Notification emails by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terraso_upload_bytes_total",
			Help: "Bytes written to object storage by bucket",
		},
		[]string{"bucket"},
	)
)

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordSoilIDRequest(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SoilIDRequests.WithLabelValues(operation, outcome).Inc()
	SoilIDDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordCacheLookup(hit bool) {
	if hit {
		SoilIDCacheLookups.WithLabelValues("hit").Inc()
	} else {
		SoilIDCacheLookups.WithLabelValues("miss").Inc()
	}
}

func RecordPushEntry(kind, result string) {
	PushEntries.WithLabelValues(kind, result).Inc()
}

func RecordEmail(template string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	EmailsSent.WithLabelValues(template, outcome).Inc()
}
