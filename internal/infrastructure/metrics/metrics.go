// Package metrics provides Prometheus metrics for the chat-sync engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts REST calls to the chat service.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_api_requests_total",
			Help: "Total number of REST requests to the chat service",
		},
		[]string{"operation", "status"},
	)

	// APIRequestDuration tracks REST call latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_api_request_duration_seconds",
			Help:    "Duration of REST requests to the chat service",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"operation"},
	)

	// PushConnected is 1 while the push connection is established.
	PushConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsync_push_connected",
			Help: "Whether the push connection is currently established",
		},
	)

	// PushReconnects counts reconnect attempts.
	PushReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_push_reconnect_attempts_total",
			Help: "Total number of push reconnect attempts",
		},
	)

	// PushEventsReceived counts inbound push events by name.
	PushEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_push_events_received_total",
			Help: "Total number of push events received",
		},
		[]string{"event"},
	)

	// PushEventsSent counts outbound push signals by name and result.
	PushEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_push_events_sent_total",
			Help: "Total number of push signals sent",
		},
		[]string{"event", "status"},
	)

	// DirectoryRefreshes counts directory refresh outcomes.
	DirectoryRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_directory_refreshes_total",
			Help: "Total number of directory refreshes by outcome",
		},
		[]string{"result"},
	)

	// ReadAcknowledgements counts read acknowledgement calls.
	ReadAcknowledgements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_read_acknowledgements_total",
			Help: "Total number of read acknowledgements by status",
		},
		[]string{"status"},
	)

	// StaleResultsDiscarded counts REST results dropped because newer state exists.
	StaleResultsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_stale_results_discarded_total",
			Help: "Total number of late REST results discarded",
		},
		[]string{"kind"},
	)

	// StateTransitions tracks controller state changes.
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_state_transitions_total",
			Help: "Total number of controller state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// HTTPRequestsTotal counts bridge requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_http_requests_total",
			Help: "Total number of HTTP bridge requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks bridge request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_http_request_duration_seconds",
			Help:    "Duration of HTTP bridge requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordHTTPRequest records one bridge request.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAPIRequest records the outcome and duration of a REST call.
func RecordAPIRequest(operation string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequestsTotal.WithLabelValues(operation, status).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordPushSent records an outbound push signal.
func RecordPushSent(event string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PushEventsSent.WithLabelValues(event, status).Inc()
}

// SetPushConnected updates the connection gauge.
func SetPushConnected(connected bool) {
	if connected {
		PushConnected.Set(1)
		return
	}
	PushConnected.Set(0)
}

// RecordStateTransition records a controller state change.
func RecordStateTransition(fromState, toState string) {
	StateTransitions.WithLabelValues(fromState, toState).Inc()
}
