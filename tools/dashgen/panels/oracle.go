package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// OracleCallsRate charts oracle searches against oracle failures.
func OracleCallsRate() *timeseries.PanelBuilder {
	return newTimeseries("Oracle Calls", "Price oracle searches and failures per second", ThirdWidth).
		WithTarget(PromQuery(`pdt:oracle_calls:rate5m`, "calls/s", "A")).
		WithTarget(PromQuery(`pdt:oracle_errors:rate5m`, "errors/s", "B")).
		Unit("reqps").
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// OracleErrorsByKind splits oracle failures into transient and permanent.
func OracleErrorsByKind() *timeseries.PanelBuilder {
	return newTimeseries("Oracle Errors by Kind", "Failed price oracle searches per hour by error kind", ThirdWidth).
		WithTarget(PromQuery(`sum(increase(pdt_oracle_errors_total`+jobSel()+`[1h])) by (kind)`, "{{kind}}", "A")).
		Legend(TableLegend("sum")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// OracleLatency charts p95 oracle search latency.
func OracleLatency() *timeseries.PanelBuilder {
	return newTimeseries("Oracle Latency (p95)", "95th percentile price oracle search latency", ThirdWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(pdt_oracle_duration_seconds_bucket`+jobSel()+`[5m])) by (le))`,
			"p95", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(5, 20)).
		ColorScheme(ColorSchemePaletteClassic())
}
