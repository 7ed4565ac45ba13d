// Package dashboard renders Grafana dashboards for the GreptimeDB export tables.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"guidelight-panel/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Params fill the dashboard templates.
type Params struct {
	Title          string
	DeviceID       string
	TelemetryTable string
	EventTable     string
}

// DefaultParams targets the configured export tables.
func DefaultParams(deviceID string) Params {
	return Params{
		Title:          "Guidelight Panel",
		DeviceID:       deviceID,
		TelemetryTable: telemetry.TelemetryTableName,
		EventTable:     telemetry.EventTableName,
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// The GreptimeDB datasource uid comes from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string, p Params) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	tpl, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, t := range tpl.Templates() {
		if !strings.HasSuffix(t.Name(), ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(t.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, p); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", t.Name(), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
