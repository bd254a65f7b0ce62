package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks outbound request attempts per method and path.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashcore_requests_total",
			Help: "Total number of outbound request attempts",
		},
		[]string{"method", "path"},
	)

	// RequestFailures tracks classified request failures by error kind.
	RequestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashcore_request_failures_total",
			Help: "Total number of classified request failures",
		},
		[]string{"kind"},
	)

	// RequestRetries tracks automatic transport-level retries.
	RequestRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashcore_request_retries_total",
			Help: "Total number of automatic 502/503 retries",
		},
	)

	// RequestLatency tracks request latency per path.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashcore_request_latency_seconds",
			Help:    "Outbound request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ProgressEventsApplied tracks progress events applied to a tracker.
	ProgressEventsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashcore_progress_events_applied_total",
			Help: "Total number of progress events applied",
		},
	)

	// ProgressEventsDropped tracks stale or post-terminal events ignored by trackers.
	ProgressEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashcore_progress_events_dropped_total",
			Help: "Total number of progress events dropped",
		},
		[]string{"reason"},
	)

	// NotificationsUpserted tracks notification feed upserts.
	NotificationsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashcore_notifications_upserted_total",
			Help: "Total number of notification upserts",
		},
	)

	// UnreadNotifications tracks the current unread notification count.
	UnreadNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashcore_unread_notifications",
			Help: "Current number of unread notifications",
		},
	)
)
