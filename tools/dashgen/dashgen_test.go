package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/dashboards"
	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/rules"
	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/validate"
)

func TestDefaultConfigValid(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_EmptyOutputDir(t *testing.T) {
	t.Parallel()
	cfg := Config{OutputDir: "", DashboardEnabled: true}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate_NothingEnabled(t *testing.T) {
	t.Parallel()
	cfg := Config{OutputDir: "/tmp", DashboardEnabled: false, RulesEnabled: false}
	assert.Error(t, cfg.Validate())
}

func TestBuildOverviewDashboard(t *testing.T) {
	t.Parallel()

	dash, err := dashboards.BuildOverview().Build()
	require.NoError(t, err)

	require.NotNil(t, dash.Uid)
	assert.Equal(t, "pdt-overview", *dash.Uid)

	require.NotNil(t, dash.Title)
	assert.Equal(t, "PDT Overview", *dash.Title)

	require.NotNil(t, dash.Templating)
	assert.Len(t, dash.Templating.List, 1)
	assert.Equal(t, "datasource", dash.Templating.List[0].Name)

	assert.Len(t, dash.Panels, 5)

	totalPanels := 0
	for _, p := range dash.Panels {
		if p.RowPanel != nil {
			totalPanels += len(p.RowPanel.Panels)
		}
	}
	assert.Equal(t, 16, totalPanels)

	result := validate.Dashboard(dash, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
	assert.Empty(t, result.Warnings, "unexpected warnings: %v", result.Warnings)
}

func TestRecordingRules(t *testing.T) {
	t.Parallel()

	cr := rules.RecordingRules()
	assert.Equal(t, "monitoring.coreos.com/v1", cr.APIVersion)
	assert.Equal(t, "PrometheusRule", cr.Kind)
	assert.Equal(t, "pdt-recording-rules", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "pdt-recording", group.Name)

	expectedRecords := []string{
		"pdt:http_requests:rate5m",
		"pdt:http_errors:rate5m",
		"pdt:oracle_calls:rate5m",
		"pdt:oracle_errors:rate5m",
		"pdt:drops_detected:rate5m",
	}
	require.Len(t, group.Rules, len(expectedRecords))
	for i, rule := range group.Rules {
		assert.Equal(t, expectedRecords[i], rule.Record)
		assert.True(t, KnownMetrics[rule.Record], "recording rule %s missing from KnownMetrics", rule.Record)
	}

	result := validate.Rules(cr, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)

	data, err := yaml.Marshal(cr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "apiVersion: monitoring.coreos.com/v1")
}

func TestAlertRules(t *testing.T) {
	t.Parallel()

	cr := rules.AlertRules()
	assert.Equal(t, "pdt-alerts", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "pdt-alerts", group.Name)

	expectedAlerts := []string{
		"PdtDown",
		"PdtReadinessDown",
		"PdtHighErrorRate",
		"PdtScanFailures",
		"PdtSchedulerStalled",
		"PdtOracleErrors",
		"PdtNotificationFailures",
	}
	require.Len(t, group.Rules, len(expectedAlerts))
	for i, rule := range group.Rules {
		assert.Equal(t, expectedAlerts[i], rule.Name())
		assert.NotEmpty(t, rule.Labels["severity"], "alert %s missing severity", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], "alert %s missing summary", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], "alert %s missing description", rule.Alert)
	}

	result := validate.Rules(cr, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
}

func TestStandalone(t *testing.T) {
	t.Parallel()

	f := rules.Standalone(rules.RecordingRules(), rules.AlertRules())
	require.Len(t, f.Groups, 2)
	assert.Equal(t, "pdt-recording", f.Groups[0].Name)
	assert.Equal(t, "pdt-alerts", f.Groups[1].Name)

	data, err := yaml.Marshal(f)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "apiVersion")
	assert.Contains(t, string(data), "PdtSchedulerStalled")
}

func TestRun_WritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, run(Config{OutputDir: dir, DashboardEnabled: true, RulesEnabled: true}, false))

	for _, p := range []string{
		filepath.Join("grafana", "data", "pdt-overview.json"),
		filepath.Join("prometheus", "pdt-recording-rules.yaml"),
		filepath.Join("prometheus", "pdt-alerts.yaml"),
		filepath.Join("prometheus", "local", "pdt-rules.yaml"),
	} {
		data, err := os.ReadFile(filepath.Join(dir, p))
		require.NoError(t, err, p)
		assert.NotEmpty(t, data, p)
	}

	alerts, err := os.ReadFile(filepath.Join(dir, "prometheus", "pdt-alerts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(alerts), generatedHeader)
}

func TestRun_ValidateOnlyWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, run(Config{OutputDir: dir, RulesEnabled: true}, true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
