package report

import (
	"html/template"
	"strings"

	"github.com/streetwatch/patrol-log/internal/aggregate"
	"github.com/streetwatch/patrol-log/internal/model"
)

// View-model types for the HTML template. The template only ever reads
// pre-computed values, it never touches the aggregation inputs itself.

type statCard struct {
	Label string
	Value int
}

type matrixRow struct {
	AgeLabel string
	Cells    []int
}

type patrolCard struct {
	Location   string
	Date       string
	TeamLeader string
	Status     string
	Notes      string
}

type htmlReport struct {
	Title           string
	DateRangeLabel  string
	NoData          bool
	NoDataMessage   string
	Stats           []statCard
	EthnicityLabels []string
	MatrixRows      []matrixRow
	Patrols         []patrolCard
}

var htmlTpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 1200px; margin: 0 auto; padding: 20px; }
h1, h2 { color: #1e3a8a; margin-top: 1.5em; }
h1 { font-size: 28px; border-bottom: 2px solid #1e3a8a; padding-bottom: 10px; }
h2 { font-size: 22px; border-bottom: 1px solid #ddd; padding-bottom: 5px; }
.date-range { color: #666; font-style: italic; margin-bottom: 20px; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: center; }
th { background-color: #f0f4ff; font-weight: bold; }
.stats-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 15px; margin: 20px 0; }
.stat-card { background-color: #f9fafb; border-radius: 8px; padding: 15px; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
.stat-label { font-size: 14px; color: #666; margin-bottom: 5px; }
.stat-value { font-size: 24px; font-weight: bold; color: #1e3a8a; }
.patrol-card { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.patrol-header { display: flex; justify-content: space-between; margin-bottom: 10px; }
.patrol-location { font-weight: bold; color: #1e3a8a; }
.patrol-meta { font-size: 14px; color: #666; }
.patrol-status { background-color: #e0f2fe; color: #0369a1; font-size: 12px; padding: 3px 8px; border-radius: 12px; font-weight: 500; }
.patrol-notes { font-size: 14px; white-space: pre-wrap; margin-top: 10px; }
.no-data { text-align: center; font-style: italic; color: #666; }
@media print { body { padding: 0; font-size: 12px; } .patrol-card { break-inside: avoid; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="date-range">{{.DateRangeLabel}}</div>

<h2>Statistics Summary</h2>
<div class="stats-grid">
{{- range .Stats}}
  <div class="stat-card">
    <div class="stat-label">{{.Label}}</div>
    <div class="stat-value">{{.Value}}</div>
  </div>
{{- end}}
</div>

<h2>Contact Matrix</h2>
{{- if .NoData}}
<div class="no-data">{{.NoDataMessage}}</div>
{{- else}}
<table>
  <thead>
    <tr>
      <th></th>
{{- range .EthnicityLabels}}
      <th colspan="2">{{.}}</th>
{{- end}}
    </tr>
    <tr>
      <th></th>
{{- range .EthnicityLabels}}
      <th>Male</th><th>Female</th>
{{- end}}
    </tr>
  </thead>
  <tbody>
{{- range .MatrixRows}}
    <tr>
      <td><strong>{{.AgeLabel}}</strong></td>
{{- range .Cells}}
      <td>{{.}}</td>
{{- end}}
    </tr>
{{- end}}
  </tbody>
</table>
{{- end}}

<h2>Patrol Notes</h2>
{{- if .NoData}}
<div class="no-data">{{.NoDataMessage}}</div>
{{- else}}
{{- range .Patrols}}
<div class="patrol-card">
  <div class="patrol-header">
    <div>
      <div class="patrol-location">{{.Location}}</div>
      <div class="patrol-meta">{{.Date}} &bull; Team Leader: {{.TeamLeader}}</div>
    </div>
    <div class="patrol-status">{{.Status}}</div>
  </div>
{{- if .Notes}}
  <div class="patrol-notes">{{.Notes}}</div>
{{- end}}
</div>
{{- end}}
{{- end}}
</body>
</html>
`))

// BuildHTML renders the report as one self-contained HTML document with
// inline styles and no external resources. Totals are taken verbatim from
// res; patrols must be the filtered set the result was computed from.
// Notes are never truncated in exports.
func BuildHTML(res aggregate.Result, patrols []model.Patrol, title, dateRangeLabel string) (string, error) {
	data := htmlReport{
		Title:          title,
		DateRangeLabel: dateRangeLabel,
		NoData:         res.NoData,
		NoDataMessage:  noDataMessage,
		Stats:          []statCard{{Label: "Total Patrols", Value: res.Patrols}},
	}
	for _, key := range model.CounterKeys {
		data.Stats = append(data.Stats, statCard{
			Label: model.CounterLabels[key],
			Value: res.Totals.Get(key),
		})
	}
	for _, e := range model.Ethnicities {
		data.EthnicityLabels = append(data.EthnicityLabels, model.EthnicityLabels[e])
	}
	for _, a := range model.AgeBands {
		row := matrixRow{AgeLabel: model.AgeBandLabels[a]}
		for _, e := range model.Ethnicities {
			for _, g := range model.Genders {
				row.Cells = append(row.Cells, res.Contacts.Get(e+g+a))
			}
		}
		data.MatrixRows = append(data.MatrixRows, row)
	}
	for i := range patrols {
		p := &patrols[i]
		data.Patrols = append(data.Patrols, patrolCard{
			Location:   p.Location,
			Date:       longDate(p.StartTime),
			TeamLeader: p.TeamLeader,
			Status:     statusLabel(p.Status),
			Notes:      p.Notes,
		})
	}
	var b strings.Builder
	if err := htmlTpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
