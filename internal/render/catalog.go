// Package render turns computed dashboard panels into Chart.js
// configurations and formats KPI values for display.
package render

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"covidmx/internal/dashboard"
)

//go:embed panels.yaml
var panelsYAML []byte

// Kind is the chart drawn for a panel.
type Kind string

const (
	KindBar       Kind = "bar"
	KindHBar      Kind = "hbar"
	KindPie       Kind = "pie"
	KindDoughnut  Kind = "doughnut"
	KindGrouped   Kind = "grouped"
	KindStacked   Kind = "stacked"
	KindLine      Kind = "line"
	KindHistogram Kind = "histogram"
)

func (k Kind) valid() bool {
	switch k {
	case KindBar, KindHBar, KindPie, KindDoughnut, KindGrouped, KindStacked, KindLine, KindHistogram:
		return true
	}
	return false
}

// forShares reports whether the kind draws a category -> percentage mapping.
func (k Kind) forShares() bool {
	switch k {
	case KindBar, KindHBar, KindPie, KindDoughnut:
		return true
	}
	return false
}

// Style parameterises the renderer for one panel.
type Style struct {
	Kind      Kind           `yaml:"kind"`
	XAxis     string         `yaml:"x_axis"`
	YAxis     string         `yaml:"y_axis"`
	ValueAxis string         `yaml:"value_axis"`
	LineAxis  string         `yaml:"line_axis"`
	Graded    bool           `yaml:"graded"`
	Colors    map[int]string `yaml:"colors"`
}

// Catalog holds the palette and the per-panel styles.
type Catalog struct {
	Palette   []string                   `yaml:"palette"`
	Levels    map[dashboard.Level]string `yaml:"levels"`
	LineColor string                     `yaml:"line_color"`
	Panels    map[string]Style           `yaml:"panels"`
}

// LoadCatalog parses the embedded panel catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(panelsYAML)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse panel catalog: %w", err)
	}
	if len(c.Palette) == 0 {
		return nil, fmt.Errorf("panel catalog: empty palette")
	}
	for id, s := range c.Panels {
		if !s.Kind.valid() {
			return nil, fmt.Errorf("panel %s: unknown kind %q", id, s.Kind)
		}
	}
	return &c, nil
}

// Style returns the style of a panel, falling back to a plain chart for its
// shape when the catalog does not list it.
func (c *Catalog) Style(p dashboard.Panel) Style {
	if s, ok := c.Panels[p.ID]; ok {
		return s
	}
	if p.Shape == dashboard.ShapeShares {
		return Style{Kind: KindBar}
	}
	return Style{Kind: KindGrouped}
}

func (c *Catalog) color(i int) string {
	return c.Palette[i%len(c.Palette)]
}
