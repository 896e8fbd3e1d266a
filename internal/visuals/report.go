package visuals

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"

	"orsim/internal/schedule"
	"orsim/internal/simulation"
)

// Report is the data behind the HTML schedule report.
type Report struct {
	Title     string
	Planned   []schedule.PlannedCase
	Simulated []schedule.SimulatedCase
	// Rooms restricts the charts; empty shows every room.
	Rooms []string
}

type reportView struct {
	Title     string
	Planned   string
	Simulated string
	Overrun   string
	Legend    []legendEntry
	Summary   []simulation.RoomSummary
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
<script>mermaid.initialize({ startOnLoad: true, gantt: { useWidth: 1400 } });</script>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.2em 0.6em; text-align: right; }
.swatch { display: inline-block; width: 1em; height: 1em; margin-right: 0.4em; vertical-align: middle; }
{{range .Legend}}rect[id^="{{.Class}}_"] { fill: {{.Color}} !important; }
{{end}}</style>
</head>
<body>
<h1>{{.Title}}</h1>
<h2>Legend</h2>
<ul>{{range .Legend}}<li><span class="swatch" style="background: {{.Color}}"></span>{{.Label}}</li>{{end}}</ul>
{{if .Planned}}<h2>Planned</h2>
<pre class="mermaid">{{.Planned}}</pre>{{end}}
{{if .Simulated}}<h2>Simulated</h2>
<pre class="mermaid">{{.Simulated}}</pre>{{end}}
{{if .Summary}}<h2>Rooms</h2>
<table>
<tr><th>Room</th><th>Cases</th><th>Cancelled</th><th>First start delay (min)</th><th>Overrun (min)</th></tr>
{{range .Summary}}<tr><td>{{.Room}}</td><td>{{.Cases}}</td><td>{{.Cancelled}}</td><td>{{printf "%.0f" .FirstStartDelay}}</td><td>{{printf "%.0f" .Overrun}}</td></tr>
{{end}}</table>
{{end}}{{if .Overrun}}<pre class="mermaid">{{.Overrun}}</pre>{{end}}
</body>
</html>
`))

// WriteReport renders the report as a standalone HTML page at path.
func WriteReport(path string, r Report) error {
	view := reportView{Title: r.Title}
	if view.Title == "" {
		view.Title = "OR schedule"
	}

	used := make(map[schedule.ServiceLine]bool)
	if len(r.Planned) > 0 {
		g, err := GeneratePlannedGantt(r.Planned, r.Rooms)
		if err != nil {
			return err
		}
		view.Planned = g
		for _, c := range r.Planned {
			used[c.ServiceLine] = true
		}
	}
	if len(r.Simulated) > 0 {
		g, err := GenerateSimulatedGantt(r.Simulated, r.Rooms)
		if err != nil {
			return err
		}
		view.Simulated = g
		view.Summary = simulation.Summarize(r.Simulated)
		view.Overrun = GenerateOverrunChart(view.Summary)
		for _, c := range r.Simulated {
			used[c.ServiceLine] = true
		}
	}
	view.Legend = legend(used)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := reportTemplate.Execute(f, view); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Report written")
	return nil
}

// OpenReport opens a written report in the default browser.
func OpenReport(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return browser.OpenFile(abs)
}
