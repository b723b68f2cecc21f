package api

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/quakewatch/quakewatch/internal/dashboard"
	"github.com/quakewatch/quakewatch/internal/maprender"
	"github.com/quakewatch/quakewatch/internal/quake"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"mag": func(f float64) string {
			return fmt.Sprintf("%.1f", f)
		},
		"utctime": func(ev quake.Event) string {
			return ev.Time().Format("15:04 UTC")
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

type indexData struct {
	Snapshot        dashboard.Snapshot
	Summary         SummaryVM
	MarkerJSON      []byte
	MapReady        bool
	MapError        string
	TileURL         string
	TileAttribution string
	Windows         []windowOption
	MagSteps        []magStep
	ShowFilters     bool
}

// MarkerData exposes the marker JSON to the template as a trusted script
// payload. The descriptors are built server-side; place text inside popup
// HTML is already escaped during projection.
func (d indexData) MarkerData() template.JS {
	return template.JS(d.MarkerJSON)
}

// Attribution returns the fixed tile attribution HTML.
func (d indexData) Attribution() template.HTML {
	return template.HTML(d.TileAttribution)
}

type windowOption struct {
	Value    quake.TimeWindow
	Label    string
	Selected bool
}

func windowOptions(current quake.TimeWindow) []windowOption {
	windows := []quake.TimeWindow{quake.WindowAll, quake.WindowHour, quake.Window6Hours, quake.Window12Hours}
	opts := make([]windowOption, 0, len(windows))
	for _, w := range windows {
		opts = append(opts, windowOption{Value: w, Label: w.Label(), Selected: w == current})
	}
	return opts
}

type magStep struct {
	Value    float64
	Label    string
	Selected bool
}

// magnitudeSteps enumerates the minimum-magnitude control: 0 to 8 in
// half-magnitude steps.
func magnitudeSteps(current float64) []magStep {
	var steps []magStep
	for v := 0.0; v <= maxMinMagnitude; v += 0.5 {
		label := fmt.Sprintf("M %.1f+", v)
		if v == 0 {
			label = "All magnitudes"
		}
		steps = append(steps, magStep{Value: v, Label: label, Selected: v == current})
	}
	return steps
}

func (s *Server) tileURL() string         { return maprender.TileURL }
func (s *Server) tileAttribution() string { return maprender.TileAttribution }
