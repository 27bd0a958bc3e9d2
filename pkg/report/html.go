package report

import (
	"html/template"
	"io"
	"strings"

	"github.com/gofhir/txaudit/pkg/result"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": func(l result.Label) string { return strings.ToLower(string(l)) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Terminology Checks</title>
<style>
body { font-family: sans-serif; margin: 1.5em; }
table { border-collapse: collapse; font-size: 0.9em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
th { background: #f3f3f3; }
td.pass { background: #C6EFCE; }
td.fail { background: #FFC7CE; }
td.error { background: #FFEB9C; }
.meta { color: #555; margin-bottom: 1em; }
</style>
</head>
<body>
<h1>Terminology Checks</h1>
<div class="meta">
{{- with .Meta}}
<div>Run: {{.RunID}}</div>
<div>Endpoint: {{.Endpoint}}</div>
<div>Started: {{.Started.Format "2006-01-02 15:04:05"}}</div>
{{- end}}
<div>
{{- range $i, $c := .Counts}}{{if $i}} · {{end}}{{$c.Label}}: {{$c.N}}{{end -}}
</div>
</div>
<table>
<thead>
<tr><th></th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{- range $i, $r := .Rows}}
<tr><th>{{$i}}</th>
{{- range $j, $cell := $r.Cells}}<td{{if eq $j 7}} class="{{lower $r.Result}}"{{end}}>{{$cell}}</td>{{end -}}
</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

type htmlCount struct {
	Label result.Label
	N     int
}

type htmlRow struct {
	Result result.Label
	Cells  []string
}

type htmlData struct {
	Meta    Meta
	Counts  []htmlCount
	Columns []string
	Rows    []htmlRow
}

// WriteHTML writes a standalone HTML table of the results.
func WriteHTML(w io.Writer, meta Meta, rows []result.ValidationResult) error {
	data := htmlData{Meta: meta, Columns: result.Columns}

	tally := result.Tally(rows)
	for _, l := range result.Labels {
		if n := tally[l]; n > 0 {
			data.Counts = append(data.Counts, htmlCount{Label: l, N: n})
		}
	}

	data.Rows = make([]htmlRow, len(rows))
	for i, r := range rows {
		data.Rows[i] = htmlRow{Result: r.Result, Cells: r.Row()}
	}
	return htmlTemplate.Execute(w, data)
}
