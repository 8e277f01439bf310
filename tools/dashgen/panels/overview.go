package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func probeStat(title, description, metric string) *stat.PanelBuilder {
	return newStat(title, description, StatHeight, StatWidth).
		WithTarget(PromQuery(metric, "", "A")).
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValue)
}

// HealthzStat shows the liveness probe result.
func HealthzStat() *stat.PanelBuilder {
	return probeStat("Healthz", "Health check status (1 = ok, 0 = failing)", `pdt_healthz_up`)
}

// ReadyzStat shows the readiness probe result.
func ReadyzStat() *stat.PanelBuilder {
	return probeStat("Readyz", "Readiness check status (1 = ready, 0 = store unreachable)", `pdt_readyz_up`)
}

// NextScanStat counts down to the next scheduled scan. A negative value
// means the scheduler has stopped advancing.
func NextScanStat() *stat.PanelBuilder {
	return newStat("Next Scan", "Seconds until the next scheduled price scan", StatHeight, StatWidth).
		WithTarget(PromQuery(`pdt_scheduler_next_scan_timestamp_seconds`+jobSel()+` - time()`, "", "A")).
		Unit("s").
		Thresholds(ThresholdsRedGreen(0)).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}

// UptimeStat shows process uptime.
func UptimeStat() *stat.PanelBuilder {
	return newStat("Uptime", "Time since process start", StatHeight, StatWidth).
		WithTarget(PromQuery(`time() - process_start_time_seconds`+jobSel(), "", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}
