package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "pdt-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "pdt-recording",
					Rules: []Rule{
						{
							Record: "pdt:http_requests:rate5m",
							Expr:   `sum(rate(pdt_http_requests_total[5m]))`,
						},
						{
							Record: "pdt:http_errors:rate5m",
							Expr:   `sum(rate(pdt_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "pdt:oracle_calls:rate5m",
							Expr:   `rate(pdt_oracle_calls_total[5m])`,
						},
						{
							Record: "pdt:oracle_errors:rate5m",
							Expr:   `sum(rate(pdt_oracle_errors_total[5m]))`,
						},
						{
							Record: "pdt:drops_detected:rate5m",
							Expr:   `rate(pdt_drops_detected_total[5m])`,
						},
					},
				},
			},
		},
	}
}
