// Package metrics defines Prometheus metrics for price-drop-tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pdt"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last /healthz probe succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last /readyz probe succeeded, 0 otherwise.",
	})
)

// Scan metrics.
var (
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of price scans in seconds.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Total number of scans by outcome.",
	}, []string{"status"})

	ScanSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scan_subscriptions",
		Help:      "Subscriptions in the snapshot taken by the last scan.",
	})

	ScanQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scan_distinct_queries",
		Help:      "Distinct queries searched by the last scan.",
	})

	SchedulerNextScanTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_scan_timestamp_seconds",
		Help:      "Unix timestamp of the next scheduled scan.",
	})
)

// Price oracle metrics.
var (
	OracleCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_calls_total",
		Help:      "Total number of price oracle searches.",
	})

	OracleErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_errors_total",
		Help:      "Total number of failed price oracle searches by kind.",
	}, []string{"kind"})

	OracleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "oracle_duration_seconds",
		Help:      "Duration of price oracle searches in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Drop and notification metrics.
var (
	DropsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "drops_detected_total",
		Help:      "Total number of price drops detected.",
	})

	StaleWritebacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_writebacks_total",
		Help:      "Detected drops discarded because the subscription was removed or changed.",
	})

	ReferencesSeededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "references_seeded_total",
		Help:      "Subscriptions whose unknown reference price was filled in by a scan.",
	})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of drop notifications delivered.",
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures.",
	})

	NotificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification deliveries in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Subscription metrics.
var (
	SubscriptionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscriptions_created_total",
		Help:      "Total number of subscriptions created.",
	})

	SubscriptionsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscriptions_removed_total",
		Help:      "Total number of subscriptions removed.",
	})
)
