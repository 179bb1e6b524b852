package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetwatch/patrol-log/internal/aggregate"
	"github.com/streetwatch/patrol-log/internal/model"
)

func TestBuildHTML(t *testing.T) {
	res, patrols := sampleReportInput()
	doc, err := BuildHTML(res, patrols, "January 2024 Report", "January 1, 2024 - January 31, 2024")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>January 2024 Report</title>")
	assert.Contains(t, doc, "January 1, 2024 - January 31, 2024")

	// Self-contained: styles inline, no external fetches.
	assert.Contains(t, doc, "<style>")
	assert.NotContains(t, doc, "<link")
	assert.NotContains(t, doc, "<script")

	// Stat cards: total patrols first, then all nine counters by label.
	assert.Contains(t, doc, "Total Patrols")
	for _, key := range model.CounterKeys {
		assert.Contains(t, doc, model.CounterLabels[key])
	}
	assert.Contains(t, doc, `<div class="stat-value">9</div>`, "summed conversations")

	// Matrix headers.
	for _, e := range model.Ethnicities {
		assert.Contains(t, doc, `<th colspan="2">`+model.EthnicityLabels[e]+`</th>`)
	}
	assert.Contains(t, doc, "<strong>Over 25</strong>")

	// Patrol cards carry the full notes text, HTML-escaped.
	assert.Contains(t, doc, "High Street")
	assert.Contains(t, doc, "&#34;all fine&#34;")
	assert.Contains(t, doc, "Completed")
}

func TestBuildHTMLNoData(t *testing.T) {
	r := aggregate.Range{
		Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
	}
	res := aggregate.Aggregate(nil, r)
	doc, err := BuildHTML(res, nil, "January 2024 Report", "range")
	require.NoError(t, err)

	assert.Contains(t, doc, noDataMessage)
	assert.NotContains(t, doc, "<table>")
	assert.NotContains(t, doc, "patrol-card")
}

func TestBuildHTMLEscapesUserText(t *testing.T) {
	patrols := []model.Patrol{{
		ID:         "p1",
		Location:   "<script>alert(1)</script>",
		TeamLeader: "Sam",
		StartTime:  time.Date(2024, time.January, 6, 22, 0, 0, 0, time.UTC),
		Status:     model.StatusCompleted,
	}}
	r := aggregate.Range{
		Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC),
	}
	res := aggregate.Aggregate(patrols, r)
	doc, err := BuildHTML(res, aggregate.Filter(patrols, r), "t", "r")
	require.NoError(t, err)

	assert.NotContains(t, doc, "<script>alert(1)</script>")
	assert.Contains(t, doc, "&lt;script&gt;")
}
