package report

import (
	"strconv"
	"strings"

	"github.com/streetwatch/patrol-log/internal/aggregate"
	"github.com/streetwatch/patrol-log/internal/model"
)

// noDataMessage is rendered in place of the matrix and notes sections when
// the period holds no patrols. Exports never fail on empty input.
const noDataMessage = "No patrol data available for this period"

// field quotes a single CSV value. Every field in the export is quoted and
// embedded quotes are doubled, so spreadsheet imports survive commas,
// newlines and quote characters inside notes.
func field(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func intField(n int) string { return field(strconv.Itoa(n)) }

func writeRow(b *strings.Builder, fields ...string) {
	b.WriteString(strings.Join(fields, ","))
	b.WriteByte('\n')
}

// BuildCSV renders the report as CSV text with three sections: summary
// totals, the contact matrix, and one detail row per patrol. The totals
// come straight from res; patrols must be the same filtered set the result
// was computed from (callers pass aggregate.Filter output).
func BuildCSV(res aggregate.Result, patrols []model.Patrol, title, dateRangeLabel string) string {
	var b strings.Builder
	writeRow(&b, field(title))
	writeRow(&b, field(dateRangeLabel))
	b.WriteByte('\n')
	writeRow(&b, field("Total Patrols"), intField(res.Patrols))
	b.WriteByte('\n')

	if res.NoData {
		writeRow(&b, field(noDataMessage))
		return b.String()
	}

	writeRow(&b, field("STATISTICS SUMMARY"))
	for _, key := range model.CounterKeys {
		writeRow(&b, field(model.CounterLabels[key]), intField(res.Totals.Get(key)))
	}
	b.WriteByte('\n')

	writeRow(&b, field("CONTACT MATRIX"))
	// Ethnicity header: each group label spans two columns, so every label
	// is followed by one empty field.
	ethnicityHeader := []string{field("")}
	genderHeader := []string{field("")}
	for _, e := range model.Ethnicities {
		ethnicityHeader = append(ethnicityHeader, field(model.EthnicityLabels[e]), field(""))
		for _, g := range model.Genders {
			genderHeader = append(genderHeader, field(g))
		}
	}
	writeRow(&b, ethnicityHeader...)
	writeRow(&b, genderHeader...)
	for _, a := range model.AgeBands {
		row := []string{field(model.AgeBandLabels[a])}
		for _, e := range model.Ethnicities {
			for _, g := range model.Genders {
				row = append(row, intField(res.Contacts.Get(e+g+a)))
			}
		}
		writeRow(&b, row...)
	}
	b.WriteByte('\n')

	writeRow(&b, field("PATROL DETAILS"))
	writeRow(&b, field("Date"), field("Location"), field("Team Leader"), field("Status"), field("Notes"))
	for i := range patrols {
		p := &patrols[i]
		writeRow(&b,
			field(p.StartTime.Format("2006-01-02")),
			field(p.Location),
			field(p.TeamLeader),
			field(statusLabel(p.Status)),
			field(p.Notes),
		)
	}
	return b.String()
}

func statusLabel(status string) string {
	if status == model.StatusCompleted {
		return "Completed"
	}
	return "Active"
}
