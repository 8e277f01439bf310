package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// DropsRate compares detected drops with delivered notifications.
func DropsRate() *timeseries.PanelBuilder {
	return newTimeseries("Drops and Notifications", "Price drops detected and notifications delivered per hour", ThirdWidth).
		WithTarget(PromQuery(`sum(increase(pdt_drops_detected_total`+jobSel()+`[1h]))`, "drops", "A")).
		WithTarget(PromQuery(`sum(increase(pdt_notifications_sent_total`+jobSel()+`[1h]))`, "notified", "B")).
		Legend(TableLegend("sum")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// NotificationLatency charts p95 notification delivery latency.
func NotificationLatency() *timeseries.PanelBuilder {
	return newTimeseries("Notification Latency (p95)", "95th percentile notification delivery latency", ThirdWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(pdt_notification_duration_seconds_bucket`+jobSel()+`[5m])) by (le))`,
			"p95", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemePaletteClassic())
}

// NotificationFailures shows failed deliveries over the last day.
func NotificationFailures() *stat.PanelBuilder {
	return newStat("Notification Failures (24h)", "Failed drop notification deliveries in the last 24 hours", TSHeight, ThirdWidth).
		WithTarget(PromQuery(`increase(pdt_notification_failures_total`+jobSel()+`[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
