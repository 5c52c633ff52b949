// Package report summarizes the search-run audit log.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/strategicvalueplus/scout/internal/storage"
)

// SourceStats aggregates the runs of one source.
type SourceStats struct {
	Source      string
	Runs        int
	Successes   int
	Failures    int
	Records     int
	Unauthed    int // runs that reported a failed or skipped login
	AvgDuration time.Duration
}

// SuccessRate is Successes/Runs in [0,1].
func (s SourceStats) SuccessRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Runs)
}

// ErrorCount is one distinct error message and how often it occurred.
type ErrorCount struct {
	Message string
	Count   int
}

// Summary contains aggregated metrics about a set of search runs.
type Summary struct {
	TotalRuns     int
	TotalSearches int
	TotalFailures int
	TotalRecords  int
	Sources       []SourceStats
	TopErrors     []ErrorCount
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// maxErrors caps Summary.TopErrors.
const maxErrors = 5

// GenerateSummary processes search runs into summary metrics.
func GenerateSummary(runs []*storage.SearchRun) Summary {
	s := Summary{}
	if len(runs) == 0 {
		return s
	}

	s.StartTime = runs[0].CreatedAt
	s.EndTime = runs[0].CreatedAt

	bySource := map[string]*SourceStats{}
	durations := map[string]time.Duration{}
	requests := map[string]bool{}
	errorCounts := map[string]int{}

	for _, r := range runs {
		s.TotalRuns++
		s.TotalRecords += r.Count
		if r.RequestID != "" {
			requests[r.RequestID] = true
		}

		st, ok := bySource[r.Source]
		if !ok {
			st = &SourceStats{Source: r.Source}
			bySource[r.Source] = st
		}
		st.Runs++
		st.Records += r.Count
		durations[r.Source] += r.Duration
		if r.Success {
			st.Successes++
		} else {
			st.Failures++
			s.TotalFailures++
			if r.Error != "" {
				errorCounts[r.Error]++
			}
		}
		if r.Authenticated != nil && !*r.Authenticated {
			st.Unauthed++
		}

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.TotalSearches = len(requests)
	for name, st := range bySource {
		st.AvgDuration = durations[name] / time.Duration(st.Runs)
		s.Sources = append(s.Sources, *st)
	}
	sort.Slice(s.Sources, func(i, j int) bool { return s.Sources[i].Source < s.Sources[j].Source })

	for msg, n := range errorCounts {
		s.TopErrors = append(s.TopErrors, ErrorCount{Message: msg, Count: n})
	}
	sort.Slice(s.TopErrors, func(i, j int) bool {
		if s.TopErrors[i].Count != s.TopErrors[j].Count {
			return s.TopErrors[i].Count > s.TopErrors[j].Count
		}
		return s.TopErrors[i].Message < s.TopErrors[j].Message
	})
	if len(s.TopErrors) > maxErrors {
		s.TopErrors = s.TopErrors[:maxErrors]
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

var funcs = map[string]any{
	"pct": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Scout Search Summary
--------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Searches:      {{.TotalSearches}}
Source Runs:   {{.TotalRuns}}
Records:       {{.TotalRecords}}
Failures:      {{.TotalFailures}}

Sources:
{{- range .Sources}}
  {{.Source}}: {{.Runs}} runs, {{pct .SuccessRate}} ok, {{.Records}} records, avg {{.AvgDuration}}{{if .Unauthed}}, {{.Unauthed}} signed out{{end}}
{{- else}}
  None
{{- end}}

Top Errors:
{{- range .TopErrors}}
  {{.Count}}x {{.Message}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer. Error
// messages come from remote pages and are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Scout Search Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .bad { color: red; }
  .good { color: green; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Scout Search Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Searches</div>
    <div class="stat-val">{{.TotalSearches}}</div>
  </div>
  <div class="stat-card">
    <div>Records</div>
    <div class="stat-val">{{.TotalRecords}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Runs</div>
    <div class="stat-val {{if gt .TotalFailures 0}}bad{{else}}good{{end}}">{{.TotalFailures}}</div>
  </div>

  <h3>Sources</h3>
  <table>
    <tr><th>Source</th><th>Runs</th><th>Success</th><th>Records</th><th>Avg Duration</th><th>Signed Out</th></tr>
    {{- range .Sources}}
    <tr><td>{{.Source}}</td><td>{{.Runs}}</td><td>{{pct .SuccessRate}}</td><td>{{.Records}}</td><td>{{.AvgDuration}}</td><td>{{.Unauthed}}</td></tr>
    {{- else}}
    <tr><td colspan="6">None</td></tr>
    {{- end}}
  </table>

  <h3>Top Errors</h3>
  <table>
    <tr><th>Count</th><th>Message</th></tr>
    {{- range .TopErrors}}
    <tr><td>{{.Count}}</td><td>{{.Message}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Funcs(funcs).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}

	return nil
}
