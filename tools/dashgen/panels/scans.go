package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ScansByStatus charts scans per hour by outcome.
func ScansByStatus() *timeseries.PanelBuilder {
	return newTimeseries("Scans by Status", "Scans per hour by outcome (succeeded, failed, skipped, canceled)", ThirdWidth).
		WithTarget(PromQuery(`sum(increase(pdt_scans_total`+jobSel()+`[1h])) by (status)`, "{{status}}", "A")).
		Legend(TableLegend("sum")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// ScanDuration charts the p95 wall time of a full scan.
func ScanDuration() *timeseries.PanelBuilder {
	return newTimeseries("Scan Duration (p95)", "95th percentile wall time of a full price scan", ThirdWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(pdt_scan_duration_seconds_bucket`+jobSel()+`[1h])) by (le))`,
			"p95", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// ScanWorkload shows how many subscriptions and distinct queries the last
// scan covered.
func ScanWorkload() *stat.PanelBuilder {
	return newStat("Scan Workload", "Subscriptions and distinct queries in the last scan", TSHeight, ThirdWidth).
		WithTarget(PromQuery(`max(pdt_scan_subscriptions`+jobSel()+`)`, "subscriptions", "A")).
		WithTarget(PromQuery(`max(pdt_scan_distinct_queries`+jobSel()+`)`, "queries", "B")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeArea)
}
