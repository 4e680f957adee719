package export

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/sadopc/wellness/internal/metrics"
)

// PrintDelay is how long the report waits after loading before it opens the
// print dialog.
const PrintDelay = 250 * time.Millisecond

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Wellness Tracker Report</title>
<style>
  body { font-family: Arial, sans-serif; margin: 20px; }
  h1 { color: #4f46e5; }
  table { width: 100%; border-collapse: collapse; margin-top: 20px; }
  th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
  th { background-color: #f2f2f2; }
  tr:nth-child(even) { background-color: #f9f9f9; }
</style>
</head>
<body>
<h1>Wellness Tracker Report</h1>
<p>Generated on: {{.Generated}}</p>
<table>
  <thead>
    <tr><th>Date</th><th>Steps</th><th>Sleep (hrs)</th><th>Mood</th><th>Notes</th></tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr><td>{{.Date}}</td><td>{{.Steps}}</td><td>{{.Sleep}}</td><td>{{.Mood}}</td><td>{{.Notes}}</td></tr>
{{- end}}
  </tbody>
</table>
{{- if .AutoPrint}}
<script>
  window.onload = function() { setTimeout(function() { window.print(); }, {{.DelayMillis}}); };
</script>
{{- end}}
</body>
</html>
`))

type reportRow struct {
	Date  string
	Steps string
	Sleep string
	Mood  string
	Notes string
}

type reportData struct {
	Generated   string
	Rows        []reportRow
	AutoPrint   bool
	DelayMillis int64
}

// ReportOptions controls report rendering.
type ReportOptions struct {
	DateLayout string
	// AutoPrint embeds the script that opens the print dialog.
	AutoPrint bool
}

// WriteReport renders the printable HTML report. Rows keep record order;
// empty notes render as N/A.
func WriteReport(w io.Writer, records []metrics.MetricRecord, generated time.Time, opts ReportOptions) error {
	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	data := reportData{
		Generated:   generated.Format(layout),
		Rows:        make([]reportRow, 0, len(records)),
		AutoPrint:   opts.AutoPrint,
		DelayMillis: PrintDelay.Milliseconds(),
	}
	for _, r := range records {
		mood := string(r.Mood)
		if e := r.Mood.Emoji(); e != "" {
			mood = e + " " + mood
		}
		notes := r.Notes
		if notes == "" {
			notes = "N/A"
		}
		data.Rows = append(data.Rows, reportRow{
			Date:  r.Date.Format(layout),
			Steps: strconv.Itoa(r.Steps),
			Sleep: formatSleep(r.SleepHours),
			Mood:  mood,
			Notes: notes,
		})
	}

	if err := reportTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
