package reporter

import (
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// htmlReport is self-contained: inline styles, no scripts or external assets
var htmlReport = template.Must(template.New("report").Funcs(sprig.FuncMap()).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>API test report {{ .SessionID }}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.5rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; font-size: 0.9rem; }
th { background: #f4f4f4; }
.passed { color: #1a7f37; } .failed { color: #cf222e; } .error { color: #bc4c00; } .skipped { color: #6e7781; }
pre { white-space: pre-wrap; word-break: break-all; margin: 0; font-size: 0.8rem; }
.summary td { font-weight: 600; }
</style>
</head>
<body>
<h1>API test report</h1>
<p>Session <code>{{ .SessionID }}</code> &middot; {{ .SpecType | toString | upper }} &middot; {{ .BaseURL | default "no base URL" }} &middot; {{ .GeneratedAt.UTC.Format "2006-01-02 15:04:05 UTC" }}</p>

<table class="summary">
<tr><th>Total</th><th>Passed</th><th>Failed</th><th>Error</th><th>Skipped</th><th>Pass rate</th></tr>
<tr><td>{{ .Summary.Total }}</td><td class="passed">{{ .Summary.Passed }}</td><td class="failed">{{ .Summary.Failed }}</td><td class="error">{{ .Summary.Errors }}</td><td class="skipped">{{ .Summary.Skipped }}</td><td>{{ printf "%.2f" .Summary.PassRate }}%</td></tr>
</table>

{{- with .Environment }}
<h2>Environment</h2>
<table>
<tr><th>Variable</th><th>Value</th></tr>
{{- range $name, $value := . }}
<tr><td>{{ $name }}</td><td><code>{{ $value }}</code></td></tr>
{{- end }}
</table>
{{- end }}

{{- range .Categories }}
<h2>{{ .Category | toString | title }} ({{ .Summary.Passed }}/{{ .Summary.Total }} passed, {{ printf "%.2f" .Summary.PassRate }}%)</h2>
<table>
<tr><th>Test</th><th>Request</th><th>Expected</th><th>Status</th><th>Response</th><th>Time</th><th>Assertions</th></tr>
{{- range .Results }}
<tr>
<td>{{ .Name }}</td>
<td>{{ .Method }} <code>{{ .URL }}</code>
{{- if .RequestHeaders }}<pre>{{ range $k, $v := .RequestHeaders }}{{ $k }}: {{ $v }}
{{ end }}</pre>{{ end }}
{{- with .RequestBody }}<pre>{{ . | trunc 2000 }}</pre>{{ end }}</td>
<td>{{ if .ExpectedStatus }}{{ .ExpectedStatus }}{{ end }}</td>
<td class="{{ .Status }}">{{ .Status }}{{ with .ErrorMessage }}<br><small>{{ . }}</small>{{ end }}</td>
<td>{{ with .ResponseStatus }}{{ . }}{{ end }}{{ with .ResponseBody }}<pre>{{ . | trunc 2000 }}</pre>{{ end }}</td>
<td>{{ printf "%.3f" .ExecutionTime }}s</td>
<td>{{ .AssertionsPassed }} passed, {{ .AssertionsFailed }} failed
{{- with .AssertionDetails }}<ul>{{ range . }}<li class="{{ if .Passed }}passed{{ else }}failed{{ end }}">{{ .Assertion }}{{ if not .Passed }}: {{ .Message }}{{ end }}</li>{{ end }}</ul>{{ end }}</td>
</tr>
{{- end }}
</table>
{{- end }}
</body>
</html>
`))
