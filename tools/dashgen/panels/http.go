package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RequestRate charts API requests per second.
func RequestRate() *timeseries.PanelBuilder {
	return newTimeseries("Request Rate", "HTTP requests per second", ThirdWidth).
		WithTarget(PromQuery(`pdt:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// LatencyPercentiles charts p50, p95 and p99 request latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	return newTimeseries("Latency Percentiles", "HTTP request duration percentiles", ThirdWidth).
		WithTarget(PromQuery(latencyQuantile(0.50), "p50", "A")).
		WithTarget(PromQuery(latencyQuantile(0.95), "p95", "B")).
		WithTarget(PromQuery(latencyQuantile(0.99), "p99", "C")).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// ErrorRate charts the share of 5xx responses.
func ErrorRate() *timeseries.PanelBuilder {
	return newTimeseries("Error Rate %", "HTTP 5xx responses as a percentage of all requests", ThirdWidth).
		WithTarget(PromQuery(`pdt:http_errors:rate5m / pdt:http_requests:rate5m * 100`, "error %", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}

func latencyQuantile(q float64) string {
	return fmt.Sprintf(
		`histogram_quantile(%.2f, sum(rate(pdt_http_request_duration_seconds_bucket%s[5m])) by (le))`,
		q, jobSel(),
	)
}
