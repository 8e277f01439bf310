package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/dashboards"
	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/rules"
	"github.com/donaldgifford/price-drop-tracker/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file, relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	arts, err := generate(cfg)
	if err != nil {
		return err
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range arts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("dashgen: wrote %s\n", path)
	}
	return nil
}

// generate builds and validates every enabled artifact.
func generate(cfg Config) ([]artifact, error) {
	var (
		arts []artifact
		res  validate.Result
	)

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, fmt.Errorf("building overview dashboard: %w", err)
		}
		r := validate.Dashboard(dash, KnownMetrics)
		res.Errors = append(res.Errors, r.Errors...)
		res.Warnings = append(res.Warnings, r.Warnings...)

		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling dashboard: %w", err)
		}
		arts = append(arts, artifact{
			path: filepath.Join("grafana", "data", "pdt-overview.json"),
			data: append(data, '\n'),
		})
	}

	if cfg.RulesEnabled {
		crs := []rules.PrometheusRule{rules.RecordingRules(), rules.AlertRules()}
		for _, cr := range crs {
			r := validate.Rules(cr, KnownMetrics)
			res.Errors = append(res.Errors, r.Errors...)
			res.Warnings = append(res.Warnings, r.Warnings...)

			data, err := yaml.Marshal(cr)
			if err != nil {
				return nil, fmt.Errorf("marshaling %s: %w", cr.Metadata.Name, err)
			}
			arts = append(arts, artifact{
				path: filepath.Join("prometheus", cr.Metadata.Name+".yaml"),
				data: append([]byte(generatedHeader), data...),
			})
		}

		data, err := yaml.Marshal(rules.Standalone(crs...))
		if err != nil {
			return nil, fmt.Errorf("marshaling standalone rules: %w", err)
		}
		arts = append(arts, artifact{
			path: filepath.Join("prometheus", "local", "pdt-rules.yaml"),
			data: append([]byte(generatedHeader), data...),
		})
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !res.Ok() {
		return nil, errors.New("validation failed:\n  " + strings.Join(res.Errors, "\n  "))
	}
	return arts, nil
}
