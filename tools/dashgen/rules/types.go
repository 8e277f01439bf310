// Package rules generates Prometheus recording and alert rules, both as
// Prometheus Operator custom resources and as a plain rules file.
package rules

// PrometheusRule is the monitoring.coreos.com/v1 PrometheusRule resource.
type PrometheusRule struct {
	APIVersion string                 `yaml:"apiVersion"`
	Kind       string                 `yaml:"kind"`
	Metadata   PrometheusRuleMetadata `yaml:"metadata"`
	Spec       PrometheusRuleSpec     `yaml:"spec"`
}

// PrometheusRuleMetadata holds the resource name and labels.
type PrometheusRuleMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// PrometheusRuleSpec holds the rule groups.
type PrometheusRuleSpec struct {
	Groups []RuleGroup `yaml:"groups"`
}

// RuleGroup is a named set of rules evaluated together.
type RuleGroup struct {
	Name     string `yaml:"name"`
	Interval string `yaml:"interval,omitempty"`
	Rules    []Rule `yaml:"rules"`
}

// Rule is either a recording rule (Record set) or an alert (Alert set).
type Rule struct {
	Record      string            `yaml:"record,omitempty"`
	Alert       string            `yaml:"alert,omitempty"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// Name returns the recorded series or alert name.
func (r Rule) Name() string {
	if r.Record != "" {
		return r.Record
	}
	return r.Alert
}

// Rules returns every rule in the resource, in group order.
func (cr PrometheusRule) Rules() []Rule {
	var out []Rule
	for _, g := range cr.Spec.Groups {
		out = append(out, g.Rules...)
	}
	return out
}

// RuleFile is a plain Prometheus rules file, as loaded via rule_files.
type RuleFile struct {
	Groups []RuleGroup `yaml:"groups"`
}

// Standalone merges the groups of crs into one rules file for a Prometheus
// that runs without the operator, such as a local compose stack.
func Standalone(crs ...PrometheusRule) RuleFile {
	var f RuleFile
	for _, cr := range crs {
		f.Groups = append(f.Groups, cr.Spec.Groups...)
	}
	return f
}
