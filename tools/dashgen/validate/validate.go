// Package validate checks generated dashboards and rules for PromQL syntax
// errors and references to metrics the tracker does not export.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/rules"
)

// Result collects validation findings. Errors fail generation; warnings
// are reported only.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether validation found no errors.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// Dashboard validates every query expression in a built dashboard.
func Dashboard(dash any, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("marshaling dashboard: %v", err))
		return res
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("decoding dashboard: %v", err))
		return res
	}

	exprs := collectExprs(doc, nil)
	if len(exprs) == 0 {
		res.Warnings = append(res.Warnings, "dashboard contains no queries")
	}
	for _, e := range exprs {
		res.merge(Expr(e, known))
	}
	return res
}

// Rules validates every expression in a PrometheusRule CR.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for _, r := range cr.Rules() {
		if r.Name() == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: rule without record or alert name", cr.Metadata.Name))
		}
		res.merge(Expr(r.Expr, known))
	}
	return res
}

// Expr parses a single PromQL expression and checks that every metric it
// selects is known.
func Expr(expr string, known map[string]bool) Result {
	var res Result

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%q: %v", expr, err))
		return res
	}

	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok {
			return nil
		}
		if vs.Name == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%q: selector without metric name", expr))
			return nil
		}
		if !known[vs.Name] && !known[baseName(vs.Name)] {
			res.Errors = append(res.Errors, fmt.Sprintf("%q: unknown metric %s", expr, vs.Name))
		}
		return nil
	})
	return res
}

// baseName strips histogram series suffixes.
func baseName(name string) string {
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if b, ok := strings.CutSuffix(name, suffix); ok {
			return b
		}
	}
	return name
}

func collectExprs(v any, out []string) []string {
	switch t := v.(type) {
	case map[string]any:
		if e, ok := t["expr"].(string); ok && e != "" {
			out = append(out, e)
		}
		for _, child := range t {
			out = collectExprs(child, out)
		}
	case []any:
		for _, child := range t {
			out = collectExprs(child, out)
		}
	}
	return out
}
