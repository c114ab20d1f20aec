package output

import (
	"html/template"
	"io"

	"github.com/yugasec/yuga-bench/internal/models"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>YugabyteDB CIS Benchmark Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: 0.2em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.6em; text-align: left; vertical-align: top; }
th { background: #f0f0f0; }
.status-PASS { color: #1a7f37; font-weight: bold; }
.status-FAIL { color: #cf222e; font-weight: bold; }
.status-WARN { color: #9a6700; font-weight: bold; }
.status-SKIP, .status-INFO { color: #57606a; }
.status-MANUAL { color: #0969da; }
.summary { margin-bottom: 1.5em; }
</style>
</head>
<body>
<h1>YugabyteDB CIS Benchmark Report</h1>

<div class="summary">
<p>Scan time: {{.ScanTime.Format "2006-01-02 15:04:05 MST"}}{{if .ProfileLevel}} &middot; Profile: {{.ProfileLevel}}{{end}}</p>
<p>{{.TotalControls}} controls &middot; {{.Passed}} passed &middot; {{.Failed}} failed &middot; {{.Warnings}} warnings &middot; {{.Skipped}} skipped &middot; {{.Manual}} manual &middot; {{.Info}} info &middot; {{printf "%.1f" .PassPercentage}}% pass rate</p>
</div>

<h2>Cluster</h2>
<table>
{{range $k, $v := .ClusterInfo}}<tr><th>{{$k}}</th><td>{{$v}}</td></tr>
{{end}}</table>

<h2>Section summary</h2>
<table>
<tr><th>Section</th><th>Total</th><th>Pass</th><th>Fail</th><th>Warn</th><th>Skip</th><th>Manual</th><th>Info</th><th>Pass %</th></tr>
{{range .SectionSummaries}}<tr>
<td>{{.SectionName}}</td><td>{{.TotalControls}}</td><td>{{.Passed}}</td><td>{{.Failed}}</td><td>{{.Warnings}}</td><td>{{.Skipped}}</td><td>{{.Manual}}</td><td>{{.Info}}</td><td>{{printf "%.1f" .PassPercentage}}</td>
</tr>
{{end}}</table>

<h2>Results</h2>
<table>
<tr><th>ID</th><th>Status</th><th>Title</th><th>Section</th><th>Message</th><th>Expected</th><th>Actual</th><th>Remediation</th></tr>
{{range .Results}}<tr>
<td>{{.ControlID}}</td>
<td class="status-{{.Status}}">{{.Status}}</td>
<td>{{.Title}}</td>
<td>{{.Section}}</td>
<td>{{.Message}}</td>
<td>{{.Expected}}</td>
<td>{{.Actual}}</td>
<td>{{.Remediation}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

// RenderHTML writes the report as a standalone HTML document.
func RenderHTML(w io.Writer, report *models.BenchmarkReport) error {
	return htmlTemplate.Execute(w, report)
}
