package main

import "errors"

// KnownMetrics is the set of metric names exported by price-drop-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"pdt_http_request_duration_seconds": true,
	"pdt_http_requests_total":           true,

	// Health metrics.
	"pdt_healthz_up": true,
	"pdt_readyz_up":  true,

	// Scan metrics.
	"pdt_scan_duration_seconds":                 true,
	"pdt_scans_total":                           true,
	"pdt_scan_subscriptions":                    true,
	"pdt_scan_distinct_queries":                 true,
	"pdt_scheduler_next_scan_timestamp_seconds": true,

	// Price oracle metrics.
	"pdt_oracle_calls_total":      true,
	"pdt_oracle_errors_total":     true,
	"pdt_oracle_duration_seconds": true,

	// Drop and notification metrics.
	"pdt_drops_detected_total":          true,
	"pdt_stale_writebacks_total":        true,
	"pdt_references_seeded_total":       true,
	"pdt_notifications_sent_total":      true,
	"pdt_notification_failures_total":   true,
	"pdt_notification_duration_seconds": true,

	// Subscription metrics.
	"pdt_subscriptions_created_total": true,
	"pdt_subscriptions_removed_total": true,

	// Recording rules.
	"pdt:http_requests:rate5m":  true,
	"pdt:http_errors:rate5m":    true,
	"pdt:oracle_calls:rate5m":   true,
	"pdt:oracle_errors:rate5m":  true,
	"pdt:drops_detected:rate5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
