package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"covidmx/internal/dashboard"
)

// ErrNotChart is returned for panels that carry a single scalar.
var ErrNotChart = errors.New("panel is not a chart")

// ChartConfig is the Chart.js configuration of one panel.
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Type            string    `json:"type,omitempty"`
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor any       `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	YAxisID         string    `json:"yAxisID,omitempty"`
	BarPercentage   float64   `json:"barPercentage,omitempty"`
	CategoryPercent float64   `json:"categoryPercentage,omitempty"`
}

type ChartOptions struct {
	IndexAxis           string           `json:"indexAxis,omitempty"`
	Responsive          bool             `json:"responsive"`
	MaintainAspectRatio bool             `json:"maintainAspectRatio"`
	Plugins             Plugins          `json:"plugins"`
	Scales              map[string]Scale `json:"scales,omitempty"`
}

type Plugins struct {
	Title  Toggle `json:"title"`
	Legend Toggle `json:"legend"`
}

type Toggle struct {
	Display bool   `json:"display"`
	Text    string `json:"text,omitempty"`
}

type Scale struct {
	Title       *Toggle  `json:"title,omitempty"`
	Stacked     bool     `json:"stacked,omitempty"`
	BeginAtZero bool     `json:"beginAtZero,omitempty"`
	Position    string   `json:"position,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Renderer is the one parameterised chart builder shared by every panel.
type Renderer struct {
	catalog *Catalog
	printer *message.Printer
}

// NewRenderer formats numbers for tag. A nil catalog loads the embedded one.
func NewRenderer(catalog *Catalog, tag language.Tag) (*Renderer, error) {
	if catalog == nil {
		var err error
		if catalog, err = LoadCatalog(); err != nil {
			return nil, err
		}
	}
	return &Renderer{catalog: catalog, printer: message.NewPrinter(tag)}, nil
}

// Chart builds the configuration of p according to its catalog style.
func (r *Renderer) Chart(p dashboard.Panel) (ChartConfig, error) {
	style := r.catalog.Style(p)
	switch p.Shape {
	case dashboard.ShapeShares:
		if !style.Kind.forShares() {
			return ChartConfig{}, fmt.Errorf("panel %s: kind %s cannot draw shares", p.ID, style.Kind)
		}
		return r.sharesChart(p, style), nil
	case dashboard.ShapeMatrix:
		if style.Kind.forShares() {
			return ChartConfig{}, fmt.Errorf("panel %s: kind %s cannot draw a matrix", p.ID, style.Kind)
		}
		return r.matrixChart(p, style), nil
	}
	return ChartConfig{}, fmt.Errorf("%w: %s", ErrNotChart, p.ID)
}

// JSON renders the chart configuration for embedding in a script element.
func (r *Renderer) JSON(p dashboard.Panel) (template.JS, error) {
	cfg, err := r.Chart(p)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal chart %s: %w", p.ID, err)
	}
	return template.JS(b), nil
}

func (r *Renderer) base(p dashboard.Panel, chartType string) ChartConfig {
	return ChartConfig{
		Type: chartType,
		Options: ChartOptions{
			Responsive: true,
			Plugins: Plugins{
				Title:  Toggle{Display: true, Text: p.Title},
				Legend: Toggle{Display: true},
			},
		},
	}
}

func (r *Renderer) sharesChart(p dashboard.Panel, style Style) ChartConfig {
	labels := make([]string, len(p.Shares))
	values := make([]float64, len(p.Shares))
	for i, s := range p.Shares {
		labels[i] = s.Label
		values[i] = s.Percent
	}

	ds := Dataset{Label: "Porcentaje (%)", Data: values}
	switch {
	case style.Graded && len(p.Levels) == len(p.Shares):
		colors := make([]string, len(p.Levels))
		for i, l := range p.Levels {
			colors[i] = r.catalog.Levels[l]
		}
		ds.BackgroundColor = colors
	case style.Kind == KindPie || style.Kind == KindDoughnut:
		colors := make([]string, len(values))
		for i := range values {
			colors[i] = r.catalog.color(i)
		}
		ds.BackgroundColor = colors
	default:
		ds.BackgroundColor = r.catalog.color(0)
	}

	chartType := string(style.Kind)
	if style.Kind == KindHBar {
		chartType = "bar"
	}
	cfg := r.base(p, chartType)
	cfg.Data = ChartData{Labels: labels, Datasets: []Dataset{ds}}

	switch style.Kind {
	case KindBar:
		cfg.Options.Plugins.Legend.Display = false
		cfg.Options.Scales = map[string]Scale{
			"x": {Title: axisTitle(style.XAxis)},
			"y": {Title: axisTitle(style.ValueAxis), BeginAtZero: true},
		}
	case KindHBar:
		cfg.Options.IndexAxis = "y"
		cfg.Options.Plugins.Legend.Display = false
		cfg.Options.Scales = map[string]Scale{
			"x": {Title: axisTitle(style.ValueAxis), BeginAtZero: true},
			"y": {Title: axisTitle(style.XAxis)},
		}
	}
	return cfg
}

func (r *Renderer) matrixChart(p dashboard.Panel, style Style) ChartConfig {
	m := p.Matrix
	if m == nil {
		m = &dashboard.Matrix{}
	}

	chartType := "bar"
	if style.Kind == KindLine {
		chartType = "line"
	}
	cfg := r.base(p, chartType)
	cfg.Data.Labels = append([]string(nil), m.Buckets...)

	for i, s := range m.Series {
		color, ok := style.Colors[s.Code]
		if !ok {
			color = r.catalog.color(i)
		}
		ds := Dataset{
			Label:           s.Label,
			Data:            floats(s.Counts),
			BackgroundColor: color,
			BorderColor:     color,
		}
		if style.Kind == KindHistogram {
			ds.BarPercentage = 1
			ds.CategoryPercent = 1
		}
		cfg.Data.Datasets = append(cfg.Data.Datasets, ds)
	}

	stacked := style.Kind == KindStacked
	cfg.Options.Scales = map[string]Scale{
		"x": {Title: axisTitle(style.XAxis), Stacked: stacked},
		"y": {Title: axisTitle(style.YAxis), Stacked: stacked, BeginAtZero: true},
	}
	if style.Kind == KindHistogram && len(m.Series) == 1 {
		cfg.Options.Plugins.Legend.Display = false
	}

	if len(m.Lines) > 0 {
		for _, l := range m.Lines {
			cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
				Type:            "line",
				Label:           l.Label,
				Data:            append([]float64(nil), l.Values...),
				BorderColor:     r.catalog.LineColor,
				BackgroundColor: r.catalog.LineColor,
				YAxisID:         "y1",
			})
		}
		lo, hi := 0.0, 100.0
		cfg.Options.Scales["y1"] = Scale{
			Title:    axisTitle(style.LineAxis),
			Position: "right",
			Min:      &lo,
			Max:      &hi,
		}
	}
	return cfg
}

func axisTitle(text string) *Toggle {
	if text == "" {
		return nil
	}
	return &Toggle{Display: true, Text: text}
}

func floats(counts []int) []float64 {
	out := make([]float64, len(counts))
	for i, n := range counts {
		out[i] = float64(n)
	}
	return out
}
