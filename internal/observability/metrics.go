package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	MessagesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_created_total",
			Help: "Total number of messages accepted into the queue",
		},
	)

	MessagesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_delivered_total",
			Help: "Total number of mark-delivered calls that found their message",
		},
	)

	PendingMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_pending_messages",
			Help: "Pending messages seen by the last pending listing",
		},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_event_publish_failures_total",
			Help: "Queue events that could not be published",
		},
		[]string{"type"},
	)

	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_queue_events_consumed_total",
			Help: "Queue events read by the relay, by type",
		},
		[]string{"type"},
	)

	PeripheralTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peripheral_state_transitions_total",
			Help: "Connection state transitions of the simulated display",
		},
		[]string{"state"},
	)

	PeripheralSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peripheral_send_total",
			Help: "Writes to the display characteristic by result",
		},
		[]string{"result"},
	)

	ConsoleViewersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_websocket_viewers_active",
			Help: "Current number of connection-state websocket viewers",
		},
	)
)
