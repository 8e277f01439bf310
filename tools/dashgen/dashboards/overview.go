// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/panels"
)

// BuildOverview constructs the PDT Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("PDT Overview").
		Uid("pdt-overview").
		Tags([]string{"pdt", "price-drop-tracker"}).
		Refresh("30s").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.NextScanStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Scans").
		WithPanel(panels.ScansByStatus()).
		WithPanel(panels.ScanDuration()).
		WithPanel(panels.ScanWorkload()))

	b.WithRow(dashboard.NewRowBuilder("Price Oracle").
		WithPanel(panels.OracleCallsRate()).
		WithPanel(panels.OracleErrorsByKind()).
		WithPanel(panels.OracleLatency()))

	b.WithRow(dashboard.NewRowBuilder("Drops").
		WithPanel(panels.DropsRate()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
