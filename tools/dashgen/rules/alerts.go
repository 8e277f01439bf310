package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// price-drop-tracker operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "pdt-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "pdt-alerts",
					Rules: []Rule{
						{
							Alert: "PdtDown",
							Expr:  `absent(up{job="price-drop-tracker"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Price Drop Tracker is down",
								"description": "The price-drop-tracker job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "PdtReadinessDown",
							Expr:  `pdt_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Price Drop Tracker readiness check is failing",
								"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
							},
						},
						{
							Alert: "PdtHighErrorRate",
							Expr:  `pdt:http_errors:rate5m / pdt:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on Price Drop Tracker",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "PdtScanFailures",
							Expr:  `increase(pdt_scans_total{status="failed"}[30m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Price scans are failing",
								"description": "At least one scan failed in the last 30 minutes, usually because the store is unreachable.",
							},
						},
						{
							Alert: "PdtSchedulerStalled",
							Expr:  `time() - pdt_scheduler_next_scan_timestamp_seconds > 900`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Scan scheduler has stopped",
								"description": "The next scheduled scan is more than 15 minutes overdue.",
							},
						},
						{
							Alert: "PdtOracleErrors",
							Expr:  `pdt:oracle_errors:rate5m / pdt:oracle_calls:rate5m > 0.5`,
							For:   "15m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Price oracle searches are mostly failing",
								"description": "More than half of price oracle searches have failed for 15 minutes. Drops are not being detected.",
							},
						},
						{
							Alert: "PdtNotificationFailures",
							Expr:  `increase(pdt_notification_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Notification delivery failures detected",
								"description": "One or more drop notifications have failed to send.",
							},
						},
					},
				},
			},
		},
	}
}
