package entries

import (
	"encoding/base64"
	"errors"
	"html/template"
)

var errUnsupported = errors.New("unsupported export")

func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// reportTemplate is the printable report. Each page of rows breaks before the
// next one when printed.
var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"chartURL": func(b64 string) template.URL { return template.URL("data:image/png;base64," + b64) },
}).Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>{{.Title}}{{if .Name}}: {{.Name}}{{end}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
.page { page-break-after: always; break-after: page; }
.page.last { page-break-after: auto; break-after: auto; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Tabelle {{.Table}}{{if .Name}}, Name {{.Name}}{{end}}, erstellt {{.Generated}}, {{.Count}} Einträge</p>
{{- with .Summary}}
<section class="summary">
<p>Mittelwert {{printf "%.1f" .Mean}}, Minimum {{printf "%g" .Min}}, Maximum {{printf "%g" .Max}}{{if .Count}}, Zeitraum {{.First.Format "02.01.2006"}} bis {{.Last.Format "02.01.2006"}}{{end}}</p>
</section>
{{- end}}
{{- if .Chart}}
<img src="{{chartURL .Chart}}" alt="Verlauf der Schmerzstärke">
{{- end}}
{{- if .Doses}}
<h2>Tagesdosen</h2>
<table>
<tr><th>Datum</th><th>Medikament</th><th>Menge</th><th>Einnahmen</th></tr>
{{- range .Doses}}
<tr><td>{{.Date}}</td><td>{{.Medication}}</td><td>{{printf "%g" .Amount}} {{.Unit}}</td><td>{{.Entries}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- range .Pages}}
<div class="page{{if .Last}} last{{end}}">
<table>
<tr>{{range $.Columns}}<th>{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</table>
</div>
{{- end}}
</body>
</html>
`))
