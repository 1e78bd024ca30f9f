package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Zone is a named, normalized rectangle within a template.
type Zone struct {
	XPct      float64 `yaml:"x_pct"`
	YPct      float64 `yaml:"y_pct"`
	WidthPct  float64 `yaml:"width_pct"`
	HeightPct float64 `yaml:"height_pct"`
}

// Template maps zone name to normalized rect.
type Template map[string]Zone

// TemplateTable is the static, startup-loaded map of template name to
// Template, replacing the reference's layout_templates.py static map with
// an auditable, data-driven YAML document.
type TemplateTable map[string]Template

//go:embed layout_templates.yaml
var defaultLayoutTemplatesYAML []byte

// LoadLayoutTemplates parses the embedded layout-template YAML document.
// It is called once at process startup; a malformed document is a fatal
// configuration error, not a per-request failure.
func LoadLayoutTemplates() (TemplateTable, error) {
	return ParseLayoutTemplates(defaultLayoutTemplatesYAML)
}

// ParseLayoutTemplates parses a layout-template YAML document from raw
// bytes, exposed separately from LoadLayoutTemplates so callers (and
// tests) can supply an override table.
func ParseLayoutTemplates(data []byte) (TemplateTable, error) {
	var table TemplateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse layout templates: %w", err)
	}
	return table, nil
}

// Zone looks up a named zone within a named template.
func (t TemplateTable) Zone(template, zone string) (Zone, bool) {
	tpl, ok := t[template]
	if !ok {
		return Zone{}, false
	}
	z, ok := tpl[zone]
	return z, ok
}
